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

package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

// ErrUndecodable is returned by Receive when the popped payload was not a valid
// message. The payload has already been moved to the agent's dead letter list.
var ErrUndecodable = errors.New("undecodable mailbox payload")

func Key(agentID string) string {
	return "mailbox:" + agentID
}

func DeadLetterKey(agentID string) string {
	return Key(agentID) + ":dead"
}

// ProcessingKey holds messages claimed by a run that has not finished yet. The
// hash tag keeps it in the mailbox's cluster slot so LMOVE between them works.
func ProcessingKey(agentID string) string {
	return "{" + Key(agentID) + "}:processing"
}

// Mailbox is a per-agent FIFO queue on a Redis list. Producers RPUSH, the single
// consumer LPOPs.
type Mailbox struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Mailbox {
	return &Mailbox{client: client}
}

// CheckAgent returns a not-found error for ids outside the registry.
func CheckAgent(agentID string) error {
	if registry.IsRegistered(agentID) {
		return nil
	}
	msg := fmt.Sprintf("agent '%s' not found", agentID)
	if s := registry.Suggest(agentID); s != "" {
		msg = fmt.Sprintf("%s, did you mean '%s'?", msg, s)
	}
	return apierror.NewAPIError(apierror.ErrNotFound, msg, nil)
}

func (m *Mailbox) Send(ctx context.Context, recipientID string, msg model.AgentMessage) error {
	if err := CheckAgent(recipientID); err != nil {
		return err
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", recipientID, err)
	}
	if err := m.client.RPush(ctx, Key(recipientID), payload).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", Key(recipientID), err)
	}
	return nil
}

// Receive pops the oldest message. It returns nil, nil when the mailbox is empty.
func (m *Mailbox) Receive(ctx context.Context, agentID string) (*model.AgentMessage, error) {
	if err := CheckAgent(agentID); err != nil {
		return nil, err
	}
	raw, err := m.client.LPop(ctx, Key(agentID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop from %s: %w", Key(agentID), err)
	}
	return m.decode(ctx, agentID, raw)
}

// Delivery is a claimed message. It stays in the agent's processing list until
// it is acknowledged or handed back.
type Delivery struct {
	AgentID string
	Message *model.AgentMessage
	raw     string
}

// Claim moves the oldest message into the processing list and returns it. It
// returns nil, nil when the mailbox is empty.
func (m *Mailbox) Claim(ctx context.Context, agentID string) (*Delivery, error) {
	if err := CheckAgent(agentID); err != nil {
		return nil, err
	}
	raw, err := m.client.LMove(ctx, Key(agentID), ProcessingKey(agentID), "LEFT", "RIGHT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim from %s: %w", Key(agentID), err)
	}
	msg, err := m.decode(ctx, agentID, raw)
	if err != nil {
		if remErr := m.client.LRem(ctx, ProcessingKey(agentID), 1, raw).Err(); remErr != nil {
			logrus.WithError(remErr).WithField("agent_id", agentID).Warn("undecodable payload left in processing list")
		}
		return nil, err
	}
	return &Delivery{AgentID: agentID, Message: msg, raw: raw}, nil
}

// Ack drops a delivery once its run succeeded.
func (m *Mailbox) Ack(ctx context.Context, d *Delivery) error {
	if err := m.client.LRem(ctx, ProcessingKey(d.AgentID), 1, d.raw).Err(); err != nil {
		return fmt.Errorf("ack for %s: %w", d.AgentID, err)
	}
	return nil
}

// Nack puts a delivery back at the head of the mailbox so the next run sees it first.
func (m *Mailbox) Nack(ctx context.Context, d *Delivery) error {
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, ProcessingKey(d.AgentID), 1, d.raw)
		pipe.LPush(ctx, Key(d.AgentID), d.raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("nack for %s: %w", d.AgentID, err)
	}
	return nil
}

// Restore hands messages claimed by an interrupted run back to the head of the
// mailbox, keeping their order. Callers must hold the agent's run lock.
func (m *Mailbox) Restore(ctx context.Context, agentID string) (int, error) {
	n := 0
	for {
		err := m.client.LMove(ctx, ProcessingKey(agentID), Key(agentID), "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("restore %s: %w", ProcessingKey(agentID), err)
		}
		n++
	}
}

// Wait blocks for up to timeout for a message. It returns nil, nil on timeout.
func (m *Mailbox) Wait(ctx context.Context, agentID string, timeout time.Duration) (*model.AgentMessage, error) {
	if err := CheckAgent(agentID); err != nil {
		return nil, err
	}
	res, err := m.client.BLPop(ctx, timeout, Key(agentID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blocking pop from %s: %w", Key(agentID), err)
	}
	// BLPOP replies with [key, value]
	return m.decode(ctx, agentID, res[1])
}

func (m *Mailbox) decode(ctx context.Context, agentID, raw string) (*model.AgentMessage, error) {
	var msg model.AgentMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil || len(msg.Message) == 0 {
		if dlErr := m.client.RPush(ctx, DeadLetterKey(agentID), raw).Err(); dlErr != nil {
			logrus.WithError(dlErr).WithField("agent_id", agentID).Error("failed to dead-letter mailbox payload")
		}
		logrus.WithField("agent_id", agentID).Warn("moved undecodable payload to dead letters")
		return nil, fmt.Errorf("%w for %s", ErrUndecodable, agentID)
	}
	return &msg, nil
}

func (m *Mailbox) Len(ctx context.Context, agentID string) (int64, error) {
	if err := CheckAgent(agentID); err != nil {
		return 0, err
	}
	return m.client.LLen(ctx, Key(agentID)).Result()
}

// DeadLetters returns the raw payloads that could not be decoded, oldest first.
func (m *Mailbox) DeadLetters(ctx context.Context, agentID string) ([]string, error) {
	if err := CheckAgent(agentID); err != nil {
		return nil, err
	}
	return m.client.LRange(ctx, DeadLetterKey(agentID), 0, -1).Result()
}
