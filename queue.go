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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/internal/apierror"
	redis_db "github.com/titanforge/titanforge/internal/redis-db"
)

const (
	TypeAgentRun = "agent:run"
	TypeWebhook  = "webhook:send"
)

var tracer = otel.Tracer("titanforge")

// Queue represents the asynq queues that trigger agent runs and deliver webhooks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	conf      config.QueueConfig
}

// AgentRunPayload asks a worker to run an agent once. An empty Input announces
// a delivered message: the agent handles its oldest mailbox message, and does
// nothing if the mailbox is empty. A non-empty Input is handed to the agent
// directly.
type AgentRunPayload struct {
	AgentID string `json:"agent_id"`
	Input   string `json:"input,omitempty"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		logrus.Fatalf("Error parsing Redis URL: %v", err)
	}
	return newQueue(RedisConnOpt(redisOption), conf.Queue)
}

func newQueue(opt asynq.RedisConnOpt, conf config.QueueConfig) *Queue {
	return &Queue{
		Client:    asynq.NewClient(opt),
		Inspector: asynq.NewInspector(opt),
		conf:      conf,
	}
}

// RedisConnOpt converts go-redis options to the asynq connection options.
func RedisConnOpt(opt *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}
}

// EnqueueAgentRun schedules one run of agentID. Runs that fail are retried
// with backoff; runs that exhaust their retries are archived.
func (q *Queue) EnqueueAgentRun(ctx context.Context, agentID, input string) error {
	ctx, span := tracer.Start(ctx, "Enqueue Agent Run")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	payload, err := json.Marshal(AgentRunPayload{AgentID: agentID, Input: input})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeAgentRun, payload, asynq.Queue(q.conf.AgentRunQueue), asynq.MaxRetry(q.conf.MaxRetry))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("enqueue run for %s: %w", agentID, err)
	}
	logrus.WithFields(logrus.Fields{"agent_id": agentID, "job_id": info.ID}).Debug("agent run enqueued")
	return nil
}

// EnqueueWebhook queues a webhook delivery. id deduplicates deliveries: a
// second enqueue with the same id returns asynq.ErrTaskIDConflict.
func (q *Queue) EnqueueWebhook(ctx context.Context, hook NewWebhook, id string) error {
	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(q.conf.WebhookQueue), asynq.MaxRetry(q.conf.MaxRetry)}
	if id != "" {
		opts = append(opts, asynq.TaskID(id))
	}
	_, err = q.Client.EnqueueContext(ctx, asynq.NewTask(TypeWebhook, payload, opts...))
	return err
}

// Stats reports queue depth per configured queue. Queues that have never
// received a job are omitted.
func (q *Queue) Stats() (map[string]*asynq.QueueInfo, error) {
	stats := map[string]*asynq.QueueInfo{}
	for _, name := range []string{q.conf.AgentRunQueue, q.conf.WebhookQueue} {
		info, err := q.Inspector.GetQueueInfo(name)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		stats[name] = info
	}
	return stats, nil
}

// Queues maps queue names to their asynq priority for the worker server.
func (q *Queue) Queues() map[string]int {
	return map[string]int{q.conf.AgentRunQueue: 3, q.conf.WebhookQueue: 1}
}

func (q *Queue) Close() {
	if err := q.Client.Close(); err != nil {
		logrus.Warnf("closing queue client: %v", err)
	}
	if err := q.Inspector.Close(); err != nil {
		logrus.Warnf("closing queue inspector: %v", err)
	}
}

// ProcessAgentRun runs the agent named by the job. Failures, including a held
// run lock, are returned so asynq retries the job; the message the run claimed
// is back in the mailbox by then. Unknown agents are not retried.
func (t *TitanForge) ProcessAgentRun(ctx context.Context, task *asynq.Task) error {
	var payload AgentRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode agent run: %v: %w", err, asynq.SkipRetry)
	}

	var out string
	var err error
	if payload.Input == "" {
		out, err = t.swarm.Deliver(ctx, payload.AgentID)
	} else {
		out, err = t.swarm.Execute(ctx, payload.AgentID, payload.Input)
	}
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logrus.WithField("agent_id", payload.AgentID).Infof("agent run finished: %s", out)
	return nil
}

func (t *TitanForge) QueueStats() (map[string]*asynq.QueueInfo, error) {
	return t.queue.Stats()
}

// Queues reports the worker queue priorities for this instance.
func (t *TitanForge) Queues() map[string]int {
	return t.queue.Queues()
}
