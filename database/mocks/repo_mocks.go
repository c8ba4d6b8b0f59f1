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

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/titanforge/titanforge/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Task methods

func (m *MockDataSource) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	args := m.Called(ctx, task)
	if fn, ok := args.Get(0).(func(context.Context, *model.Task) *model.Task); ok {
		return fn(ctx, task), args.Error(1)
	}
	if t, ok := args.Get(0).(*model.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetTask(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*model.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetAllTasks(ctx context.Context, limit, offset int) ([]model.Task, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockDataSource) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, agentID string) (*model.Task, bool, error) {
	args := m.Called(ctx, id, status, agentID)
	if t, ok := args.Get(0).(*model.Task); ok {
		return t, args.Bool(1), args.Error(2)
	}
	return nil, false, args.Error(2)
}

func (m *MockDataSource) GetStuckTasks(ctx context.Context, status model.TaskStatus, olderThan time.Duration, limit int) ([]model.Task, error) {
	args := m.Called(ctx, status, olderThan, limit)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockDataSource) CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[model.TaskStatus]int64), args.Error(1)
}

// Lead methods

func (m *MockDataSource) CreateLead(ctx context.Context, lead model.Lead) (model.Lead, error) {
	args := m.Called(ctx, lead)
	return args.Get(0).(model.Lead), args.Error(1)
}

func (m *MockDataSource) CountLeads(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// User methods

func (m *MockDataSource) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockDataSource) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) CountUsers(ctx context.Context, activeOnly bool) (int64, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).(int64), args.Error(1)
}

// Event methods

func (m *MockDataSource) RecordEvent(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDataSource) CountEvents(ctx context.Context, eventType string, from, to time.Time) (int64, error) {
	args := m.Called(ctx, eventType, from, to)
	return args.Get(0).(int64), args.Error(1)
}
