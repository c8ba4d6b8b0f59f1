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
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/titanforge/titanforge/model"
)

type SubmitGoal struct {
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

type UpdateTask struct {
	Status  string `json:"status"`
	AgentID string `json:"agent_id"`
}

type SendMessage struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	UserID      string `json:"user_id"`
	// Run also schedules a worker run of the recipient.
	Run bool `json:"run"`
}

type RunAgent struct {
	Input string `json:"input"`
}

type AddMemory struct {
	AgentID string `json:"agent_id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

type CreateLead struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

type Register struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type FilePath struct {
	Path string `json:"path"`
}

type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type RecoverTasks struct {
	ThresholdMinutes int `json:"threshold_minutes"`
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func (g *SubmitGoal) ValidateSubmitGoal() error {
	return validation.ValidateStruct(g,
		validation.Field(&g.Description, validation.Required, validation.By(notBlank), validation.Length(1, 4000)),
	)
}

// ValidateUpdateTask only accepts the statuses a task can move into.
func (u *UpdateTask) ValidateUpdateTask() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Status, validation.Required, validation.In(
			string(model.TaskInProgress), string(model.TaskCompleted), string(model.TaskFailed),
		).Error("must be one of in_progress, completed, failed")),
		validation.Field(&u.AgentID, validation.Required),
	)
}

func (u *UpdateTask) TaskStatus() model.TaskStatus {
	return model.TaskStatus(u.Status)
}

func (m *SendMessage) ValidateSendMessage() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.SenderID, validation.Required),
		validation.Field(&m.RecipientID, validation.Required),
		validation.Field(&m.Message, validation.Required),
	)
}

func (m *SendMessage) ToAgentMessage() model.AgentMessage {
	msg := model.NewTextMessage(m.SenderID, m.Message)
	msg.UserID = m.UserID
	return msg
}

func (m *AddMemory) ValidateAddMemory() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.AgentID, validation.Required),
		validation.Field(&m.Key, validation.Required),
	)
}

func (l *CreateLead) ValidateCreateLead() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Email, validation.Required, is.EmailFormat),
		validation.Field(&l.Name, validation.Required, validation.Length(1, 200)),
	)
}

func (l *CreateLead) ToLead() model.Lead {
	return model.Lead{
		Email:   l.Email,
		Name:    l.Name,
		Company: l.Company,
		Phone:   l.Phone,
		Message: l.Message,
		Source:  l.Source,
	}
}

func (r *Register) ValidateRegister() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

func (l *Login) ValidateLogin() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Email, validation.Required),
		validation.Field(&l.Password, validation.Required),
	)
}

func (f *FilePath) ValidateFilePath() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Path, validation.Required),
	)
}

func (f *FileContent) ValidateFileContent() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Path, validation.Required),
	)
}

func (r *RecoverTasks) ValidateRecoverTasks() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ThresholdMinutes, validation.Min(0)),
	)
}
