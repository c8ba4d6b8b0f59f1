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

package model

import (
	"encoding/json"
	"time"
)

// AgentMessage is a mailbox entry. Message holds either a JSON string or a JSON object.
type AgentMessage struct {
	SenderID string          `json:"sender_id"`
	Message  json.RawMessage `json:"message"`
	UserID   string          `json:"user_id,omitempty"`
	SentAt   time.Time       `json:"sent_at,omitempty"`
}

// NewTextMessage builds a message whose payload is a plain string.
func NewTextMessage(senderID, text string) AgentMessage {
	raw, _ := json.Marshal(text)
	return AgentMessage{SenderID: senderID, Message: raw, SentAt: time.Now().UTC()}
}

// NewObjectMessage builds a message whose payload is a JSON object.
func NewObjectMessage(senderID string, payload map[string]interface{}) (AgentMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return AgentMessage{}, err
	}
	return AgentMessage{SenderID: senderID, Message: raw, SentAt: time.Now().UTC()}, nil
}

// Text returns the payload as a string. Object payloads come back as their JSON text.
func (m AgentMessage) Text() string {
	var s string
	if err := json.Unmarshal(m.Message, &s); err == nil {
		return s
	}
	return string(m.Message)
}

// Object decodes an object payload. ok is false for string payloads.
func (m AgentMessage) Object() (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal(m.Message, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
