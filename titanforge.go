/*
Copyright 2024 TitanForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package titanforge

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/redis/go-redis/v9"

	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/database"
	"github.com/titanforge/titanforge/internal/agent"
	"github.com/titanforge/titanforge/internal/llm"
	redlock "github.com/titanforge/titanforge/internal/lock"
	"github.com/titanforge/titanforge/internal/mailbox"
	redis_db "github.com/titanforge/titanforge/internal/redis-db"
	"github.com/titanforge/titanforge/internal/tools"
	"github.com/titanforge/titanforge/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// TitanForge is the master control program: it owns the task store, the agent
// mailboxes and the swarm, and is the only thing the API and workers talk to.
type TitanForge struct {
	config     *config.Configuration
	datasource database.IDataSource
	redis      redis.UniversalClient
	mailbox    *mailbox.Mailbox
	queue      *Queue
	swarm      *agent.Swarm
	workspace  *tools.Workspace
	httpClient *http.Client
	posthog    posthog.Client
}

// NewTitanForge wires a TitanForge from the loaded configuration.
func NewTitanForge(db database.IDataSource) (*TitanForge, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	return newTitanForge(configuration, db, redisClient.Client(), NewQueue(configuration), llm.New(configuration.LLM))
}

func newTitanForge(cfg *config.Configuration, db database.IDataSource, rdb redis.UniversalClient, queue *Queue, completer llm.Completer) (*TitanForge, error) {
	workspace, err := tools.NewWorkspace(cfg.Agents.WorkspaceDir)
	if err != nil {
		return nil, err
	}

	t := &TitanForge{
		config:     cfg,
		datasource: db,
		redis:      rdb,
		mailbox:    mailbox.New(rdb),
		queue:      queue,
		workspace:  workspace,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	swarm, err := agent.NewSwarm(agent.Deps{
		Mailbox: dispatcher{t},
		Tasks:   t,
		Events:  t,
		Alerts:  t,
		Memory:  t,
		LLM:     completer,
		NewRunLock: func(agentID, owner string) agent.RunLock {
			return redlock.NewLocker(rdb, redlock.AgentRunKey(agentID), owner)
		},
		RunLockTTL:   time.Duration(cfg.Agents.RunLockSeconds) * time.Second,
		Workspace:    workspace,
		EnableShell:  cfg.Agents.EnableShell,
		ShellTimeout: time.Duration(cfg.Agents.ShellTimeoutSeconds) * time.Second,
		Backlog:      agent.LoadBacklog(cfg.Agents.BacklogFile),
	})
	if err != nil {
		return nil, err
	}
	t.swarm = swarm
	return t, nil
}

// dispatcher is the mailbox agents see: every delegation also schedules a run
// of the recipient.
type dispatcher struct {
	*TitanForge
}

func (d dispatcher) Send(ctx context.Context, recipientID string, msg model.AgentMessage) error {
	return d.DeliverMessage(ctx, recipientID, msg)
}

func (d dispatcher) Claim(ctx context.Context, agentID string) (*mailbox.Delivery, error) {
	return d.mailbox.Claim(ctx, agentID)
}

func (d dispatcher) Ack(ctx context.Context, delivery *mailbox.Delivery) error {
	return d.mailbox.Ack(ctx, delivery)
}

func (d dispatcher) Nack(ctx context.Context, delivery *mailbox.Delivery) error {
	return d.mailbox.Nack(ctx, delivery)
}

func (d dispatcher) Restore(ctx context.Context, agentID string) (int, error) {
	return d.mailbox.Restore(ctx, agentID)
}

// SetAnalyticsSink forwards recorded events to PostHog.
func (t *TitanForge) SetAnalyticsSink(client posthog.Client) {
	t.posthog = client
}

func (t *TitanForge) Config() *config.Configuration {
	return t.config
}

func (t *TitanForge) Workspace() *tools.Workspace {
	return t.workspace
}

// Ping checks the Redis connection the mailboxes depend on.
func (t *TitanForge) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return t.redis.Ping(ctx).Err()
}

func (t *TitanForge) Close() error {
	if t.queue != nil {
		t.queue.Close()
	}
	return t.redis.Close()
}
