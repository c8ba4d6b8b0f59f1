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

package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/delegation"
	"github.com/titanforge/titanforge/internal/llm"
	"github.com/titanforge/titanforge/internal/mailbox"
	redlock "github.com/titanforge/titanforge/internal/lock"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/internal/tools"
	"github.com/titanforge/titanforge/model"
)

// Deps are the collaborators shared by every agent in the swarm.
type Deps struct {
	Mailbox Mailbox
	Tasks   TaskUpdater
	Events  EventRecorder
	Alerts  Alerter
	Memory  Memory
	LLM     llm.Completer

	// NewRunLock returns the lock guarding one agent's runs. Nil disables locking.
	NewRunLock func(agentID, owner string) RunLock
	RunLockTTL time.Duration

	Workspace    *tools.Workspace
	EnableShell  bool
	ShellTimeout time.Duration
	Backlog      *Backlog
}

// Swarm holds one agent per registered id.
type Swarm struct {
	deps    Deps
	agents  map[string]*Agent
	backlog *Backlog
}

func NewSwarm(deps Deps) (*Swarm, error) {
	if deps.Mailbox == nil {
		return nil, errors.New("swarm: mailbox is required")
	}
	if deps.LLM == nil {
		return nil, errors.New("swarm: llm is required")
	}
	if deps.Workspace == nil {
		return nil, errors.New("swarm: workspace is required")
	}
	if deps.RunLockTTL <= 0 {
		deps.RunLockTTL = 2 * time.Minute
	}
	if deps.ShellTimeout <= 0 {
		deps.ShellTimeout = time.Minute
	}
	s := &Swarm{deps: deps, agents: map[string]*Agent{}, backlog: deps.Backlog}
	if s.backlog == nil {
		s.backlog = NewBacklog(nil)
	}
	s.build()
	return s, nil
}

func (s *Swarm) build() {
	ws := s.deps.Workspace
	writer := tools.NewFileWriter(ws)
	reader := tools.NewFileReader(ws)
	shell := tools.NewShellCommand(ws, s.deps.EnableShell, s.deps.ShellTimeout)

	add := func(id string, dept model.Department, set tools.Set, b behaviour) {
		s.agents[id] = newAgent(s, id, dept, set, b)
	}
	none := tools.NewSet()

	add(registry.CEO, model.ExecutiveBoard, none, ceo)
	add(registry.Architect, model.ExecutiveBoard, tools.NewSet(writer, reader), worker("Architecture task handled", nil))

	add(registry.EngineeringManager, model.Engineering, tools.NewSet(writer, reader), engineeringManager)
	add(registry.BackendDeveloper, model.Engineering, tools.NewSet(writer, reader, shell), worker("Completed backend task", requestReview))
	add(registry.FrontendDeveloper, model.Engineering, tools.NewSet(writer, reader), worker("Completed frontend task", nil))

	add(registry.MarketingManager, model.Marketing, none, forwardTo(delegation.MarketingAssignee))
	add(registry.ContentCreator, model.Marketing, tools.NewSet(writer), worker("Content drafted", nil))
	add(registry.SocialMediaManager, model.Marketing, none, worker("Social media task handled", nil))
	add(registry.LeadGenerationAgent, model.Marketing, none, worker("Lead generation task handled", nil))
	add(registry.CommunityManager, model.Marketing, none, worker("Community task handled", nil))

	add(registry.DesignManager, model.Design, none, forwardTo(delegation.DesignAssignee))
	add(registry.GraphicDesigner, model.Design, tools.NewSet(writer), worker("Design task handled", nil))

	add(registry.QAManager, model.QA, none, forwardTo(delegation.QAAssignee))
	add(registry.TestEngineer, model.QA, tools.NewSet(shell), worker("Performed manual testing based on the description", nil))
	add(registry.CodeReviewer, model.QA, tools.NewSet(reader), codeReviewer)

	add(registry.HRManager, model.HumanCapital, none, worker("Workforce request recorded", nil))
	add(registry.Orchestrator, model.Operations, tools.NewSet(shell), worker("Operations task handled", nil))
	add(registry.ProvisioningAgent, model.Operations, tools.NewSet(shell), worker("Provisioning task handled", nil))
	add(registry.BillingManager, model.Department("Finance"), none, worker("Billing task handled", nil))

	add(registry.AnalyticsAgent, model.DataIntelligence, none, analytics)
	add(registry.NotificationAgent, model.Department("Communications"), none, notifications)
}

func (s *Swarm) Agent(id string) (*Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

// Agents returns every agent ordered by id.
func (s *Swarm) Agents() []*Agent {
	out := make([]*Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run executes one run of the agent while holding its run lock.
func (s *Swarm) Run(ctx context.Context, agentID, input string) (string, error) {
	return s.locked(ctx, agentID, func(a *Agent) (string, error) {
		return a.Run(ctx, input)
	})
}

// Deliver has the agent work on its oldest mailbox message. Jobs that announce
// a delivered message use it, so an empty mailbox never triggers input-less
// behaviour such as the CEO backlog.
func (s *Swarm) Deliver(ctx context.Context, agentID string) (string, error) {
	return s.locked(ctx, agentID, func(a *Agent) (string, error) {
		return a.Deliver(ctx)
	})
}

// Execute hands task straight to the agent, bypassing its mailbox. Coordinator
// entry points such as goal submission use it.
func (s *Swarm) Execute(ctx context.Context, agentID, task string) (string, error) {
	return s.locked(ctx, agentID, func(a *Agent) (string, error) {
		return a.Execute(ctx, task)
	})
}

func (s *Swarm) locked(ctx context.Context, agentID string, fn func(a *Agent) (string, error)) (string, error) {
	a, ok := s.agents[agentID]
	if !ok {
		return "", mailbox.CheckAgent(agentID)
	}

	if s.deps.NewRunLock != nil {
		lock := s.deps.NewRunLock(agentID, uuid.NewString())
		if err := lock.Lock(ctx, s.deps.RunLockTTL); err != nil {
			if errors.Is(err, redlock.ErrLockHeld) {
				return "", apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("agent '%s' is already running", agentID), nil)
			}
			return "", fmt.Errorf("lock %s: %w", agentID, err)
		}
		stop := s.keepAlive(ctx, agentID, lock)
		defer func() {
			stop()
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				logrus.WithError(err).WithField("agent_id", agentID).Warn("failed to release run lock")
			}
		}()
	}

	return fn(a)
}

// keepAlive extends the run lock every third of its TTL until stop is called,
// so runs longer than the TTL keep exclusive ownership.
func (s *Swarm) keepAlive(ctx context.Context, agentID string, lock RunLock) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.deps.RunLockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.ExtendLock(ctx, s.deps.RunLockTTL); err != nil && ctx.Err() == nil {
					logrus.WithError(err).WithField("agent_id", agentID).Warn("failed to extend run lock")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
