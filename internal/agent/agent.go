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
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/titanforge/titanforge/internal/llm"
	"github.com/titanforge/titanforge/internal/mailbox"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/internal/tools"
	"github.com/titanforge/titanforge/model"
)

// Mailbox is the subset of the mailbox an agent uses. A claimed message is only
// dropped once the run that claimed it succeeds.
type Mailbox interface {
	Send(ctx context.Context, recipientID string, msg model.AgentMessage) error
	Claim(ctx context.Context, agentID string) (*mailbox.Delivery, error)
	Ack(ctx context.Context, d *mailbox.Delivery) error
	Nack(ctx context.Context, d *mailbox.Delivery) error
	Restore(ctx context.Context, agentID string) (int, error)
}

type TaskUpdater interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus, agentID string) (*model.Task, error)
}

type EventRecorder interface {
	RecordEvent(ctx context.Context, event *model.Event) error
	CountEvents(ctx context.Context, eventType string, from, to time.Time) (int64, error)
}

// Alerter forwards internal errors to operators.
type Alerter interface {
	Alert(ctx context.Context, source string, cause error) error
}

type Memory interface {
	AddShortTermMemory(ctx context.Context, agentID, key, value string) error
}

// RunLock serialises runs of a single agent across processes.
type RunLock interface {
	Lock(ctx context.Context, ttl time.Duration) error
	ExtendLock(ctx context.Context, ttl time.Duration) error
	Unlock(ctx context.Context) error
}

var taskIDPattern = regexp.MustCompile(`Task ID: ([\w-]+)`)

// TaskIDFrom extracts the id from a "Task ID: <id>" marker.
func TaskIDFrom(description string) (string, bool) {
	m := taskIDPattern.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Input is what an agent works on during a run: the popped message when there
// was one, else the literal input.
type Input struct {
	Text    string
	Message *model.AgentMessage
}

type behaviour func(ctx context.Context, a *Agent, in Input) (string, error)

type Agent struct {
	ID         string
	Role       string
	Department model.Department
	Tools      tools.Set

	swarm  *Swarm
	behave behaviour
}

func (a *Agent) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"agent_id": a.ID, "department": a.Department})
}

// NoPendingMessages is the result of a delivery run that found an empty mailbox.
const NoPendingMessages = "No pending messages."

// Run works on the oldest mailbox message, or on input when the mailbox is empty.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	d, err := a.claim(ctx)
	if err != nil {
		return "", err
	}
	if d == nil {
		a.log().WithField("task", input).Info("received task")
		return a.behave(ctx, a, Input{Text: input})
	}
	return a.handle(ctx, d)
}

// Deliver works on the oldest mailbox message only. An empty mailbox is not an
// error and runs nothing.
func (a *Agent) Deliver(ctx context.Context) (string, error) {
	d, err := a.claim(ctx)
	if err != nil {
		return "", err
	}
	if d == nil {
		return NoPendingMessages, nil
	}
	return a.handle(ctx, d)
}

func (a *Agent) claim(ctx context.Context) (*mailbox.Delivery, error) {
	mb := a.swarm.deps.Mailbox
	n, err := mb.Restore(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		a.log().WithField("count", n).Warn("requeued messages from an interrupted run")
	}

	d, err := mb.Claim(ctx, a.ID)
	if errors.Is(err, mailbox.ErrUndecodable) {
		a.log().WithError(err).Warn("skipping undecodable message")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive for %s: %w", a.ID, err)
	}
	return d, nil
}

// handle runs the behaviour on a claimed message. On failure the message goes
// back to the mailbox for the retry; on success it is acknowledged.
func (a *Agent) handle(ctx context.Context, d *mailbox.Delivery) (string, error) {
	in := Input{Text: d.Message.Text(), Message: d.Message}
	a.log().WithField("task", in.Text).Info("received task")

	out, err := a.behave(ctx, a, in)
	if err != nil {
		if nackErr := a.swarm.deps.Mailbox.Nack(context.WithoutCancel(ctx), d); nackErr != nil {
			a.log().WithError(nackErr).Error("failed to return message to mailbox")
		}
		return "", err
	}
	if ackErr := a.swarm.deps.Mailbox.Ack(context.WithoutCancel(ctx), d); ackErr != nil {
		a.log().WithError(ackErr).Warn("failed to acknowledge message")
	}
	return out, nil
}

// Execute works on task directly without reading the mailbox.
func (a *Agent) Execute(ctx context.Context, task string) (string, error) {
	a.log().WithField("task", task).Info("executing task")
	return a.behave(ctx, a, Input{Text: task})
}

var ErrUnknownTool = errors.New("unknown tool")

// UseTool runs a tool and renders failures as text, the way results are fed back to agents.
func (a *Agent) UseTool(ctx context.Context, name string, params map[string]interface{}) string {
	out, err := a.useTool(ctx, name, params)
	switch {
	case errors.Is(err, ErrUnknownTool):
		return fmt.Sprintf("Error: Tool '%s' not found.", name)
	case err != nil:
		return fmt.Sprintf("Error executing tool '%s': %v", name, errors.Unwrap(err))
	}
	return out
}

func (a *Agent) useTool(ctx context.Context, name string, params map[string]interface{}) (out string, err error) {
	tool, ok := a.Tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s: %w", name, fmt.Errorf("panic: %v", r))
		}
	}()
	out, err = tool.Execute(ctx, params)
	if err != nil {
		return out, fmt.Errorf("tool %s: %w", name, err)
	}
	return out, nil
}

func (a *Agent) send(ctx context.Context, recipientID, text string) error {
	return a.swarm.deps.Mailbox.Send(ctx, recipientID, model.NewTextMessage(a.ID, text))
}

// setStatus records a status change for the task. Failures are logged only: a
// follow-up task (for example a review of completed work) reuses the id of a
// task that may already be terminal.
func (a *Agent) setStatus(ctx context.Context, taskID string, status model.TaskStatus) {
	if taskID == "" || a.swarm.deps.Tasks == nil {
		return
	}
	if _, err := a.swarm.deps.Tasks.UpdateTaskStatus(ctx, taskID, status, a.ID); err != nil {
		a.log().WithError(err).WithFields(logrus.Fields{"task_id": taskID, "status": status}).Warn("task status not updated")
	}
}

func (a *Agent) remember(ctx context.Context, key, value string) {
	if a.swarm.deps.Memory == nil {
		return
	}
	if err := a.swarm.deps.Memory.AddShortTermMemory(ctx, a.ID, key, value); err != nil {
		a.log().WithError(err).Warn("failed to save short-term memory")
	}
}

func (a *Agent) complete(ctx context.Context, messages []llm.Message) (string, error) {
	return a.swarm.deps.LLM.Complete(ctx, messages)
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent(id=%s, role=%s, department=%s)", a.ID, a.Role, a.Department)
}

func newAgent(s *Swarm, id string, dept model.Department, set tools.Set, b behaviour) *Agent {
	return &Agent{
		ID:         id,
		Role:       registry.DisplayName(id),
		Department: dept,
		Tools:      set,
		swarm:      s,
		behave:     b,
	}
}
