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

package database

import (
	"context"
	"time"

	"github.com/titanforge/titanforge/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	task  // Interface for task lifecycle operations
	lead  // Interface for lead capture
	user  // Interface for user accounts
	event // Interface for analytics events
}

type task interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetAllTasks(ctx context.Context, limit, offset int) ([]model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, agentID string) (*model.Task, bool, error)
	GetStuckTasks(ctx context.Context, status model.TaskStatus, olderThan time.Duration, limit int) ([]model.Task, error)
	CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error)
}

type lead interface {
	CreateLead(ctx context.Context, lead model.Lead) (model.Lead, error)
	CountLeads(ctx context.Context) (int64, error)
}

type user interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CountUsers(ctx context.Context, activeOnly bool) (int64, error)
}

type event interface {
	RecordEvent(ctx context.Context, event *model.Event) error
	CountEvents(ctx context.Context, eventType string, from, to time.Time) (int64, error)
}
