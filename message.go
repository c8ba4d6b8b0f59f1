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
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/titanforge/titanforge/internal/delegation"
	"github.com/titanforge/titanforge/internal/mailbox"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

// SendMessage queues msg in the recipient's mailbox. Nothing consumes it until
// the agent runs or someone receives it.
func (t *TitanForge) SendMessage(ctx context.Context, recipientID string, msg model.AgentMessage) error {
	return t.mailbox.Send(ctx, recipientID, msg)
}

// DeliverMessage queues msg and schedules a worker run of the recipient to
// handle it. A failed run hands the message back for the job's retry.
func (t *TitanForge) DeliverMessage(ctx context.Context, recipientID string, msg model.AgentMessage) error {
	if err := t.mailbox.Send(ctx, recipientID, msg); err != nil {
		return err
	}
	if t.queue == nil {
		return nil
	}
	if err := t.queue.EnqueueAgentRun(ctx, recipientID, ""); err != nil {
		// the message is already stored; the next run will see it
		logrus.WithError(err).WithField("agent_id", recipientID).Warn("could not schedule agent run")
	}
	return nil
}

// ReceiveMessage pops the agent's oldest message, or returns nil when the
// mailbox is empty. Undecodable payloads are dead-lettered and skipped.
func (t *TitanForge) ReceiveMessage(ctx context.Context, agentID string) (*model.AgentMessage, error) {
	msg, err := t.mailbox.Receive(ctx, agentID)
	if errors.Is(err, mailbox.ErrUndecodable) {
		return nil, nil
	}
	return msg, err
}

// MaxReceiveWait bounds how long WaitMessage may block.
const MaxReceiveWait = 30 * time.Second

// WaitMessage is ReceiveMessage that blocks for up to timeout for a message.
func (t *TitanForge) WaitMessage(ctx context.Context, agentID string, timeout time.Duration) (*model.AgentMessage, error) {
	if timeout <= 0 {
		return t.ReceiveMessage(ctx, agentID)
	}
	if timeout > MaxReceiveWait {
		timeout = MaxReceiveWait
	}
	msg, err := t.mailbox.Wait(ctx, agentID, timeout)
	if errors.Is(err, mailbox.ErrUndecodable) {
		return nil, nil
	}
	return msg, err
}

func (t *TitanForge) DeadLetters(ctx context.Context, agentID string) ([]string, error) {
	return t.mailbox.DeadLetters(ctx, agentID)
}

// RunAgent runs one agent synchronously. An empty input lets the agent work
// off its mailbox.
func (t *TitanForge) RunAgent(ctx context.Context, agentID, input string) (string, error) {
	ctx, span := tracer.Start(ctx, "RunAgent")
	defer span.End()
	return t.swarm.Run(ctx, agentID, input)
}

type AgentInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Tools      []string `json:"tools"`
	Pending    int64    `json:"pending_messages"`
}

func (t *TitanForge) ListAgents(ctx context.Context) ([]AgentInfo, error) {
	agents := t.swarm.Agents()
	out := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		pending, err := t.mailbox.Len(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, AgentInfo{
			ID:         a.ID,
			Name:       a.Role,
			Department: string(a.Department),
			Tools:      a.Tools.Names(),
			Pending:    pending,
		})
	}
	return out, nil
}

type GraphNode struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Department  string `json:"department,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

const graphTaskLimit = 50

// Graph returns the delegation tree plus recent tasks, each linked to the
// agent that last touched it.
func (t *TitanForge) Graph(ctx context.Context) (*Graph, error) {
	g := &Graph{Nodes: []GraphNode{}, Links: []GraphLink{}}

	managerOf := map[model.Department]string{}
	for _, dept := range delegation.Departments() {
		if m, ok := delegation.Manager(dept); ok {
			managerOf[dept] = m
			if m != registry.CEO {
				g.Links = append(g.Links, GraphLink{Source: registry.CEO, Target: m})
			}
		}
	}

	for _, a := range t.swarm.Agents() {
		g.Nodes = append(g.Nodes, GraphNode{ID: a.ID, Category: "AGENT", Department: string(a.Department)})
		if m, ok := managerOf[a.Department]; ok && m != a.ID && a.ID != registry.CEO {
			g.Links = append(g.Links, GraphLink{Source: m, Target: a.ID})
		}
	}

	tasks, err := t.datasource.GetAllTasks(ctx, graphTaskLimit, 0)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:          task.TaskID,
			Category:    "TASK",
			Description: task.Description,
			Status:      string(task.Status),
		})
		if last := task.LastEntry(); last != nil && registry.IsRegistered(last.AgentID) {
			g.Links = append(g.Links, GraphLink{Source: task.TaskID, Target: last.AgentID})
		}
	}
	return g, nil
}
