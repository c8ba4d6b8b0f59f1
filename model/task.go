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
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// allowedTransitions is the task lifecycle. completed and failed are terminal.
var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskFailed},
	TaskInProgress: {TaskCompleted, TaskFailed},
	TaskCompleted:  {},
	TaskFailed:     {},
}

type Task struct {
	TaskID      string             `json:"task_id"`
	Description string             `json:"description"`
	Status      TaskStatus         `json:"status"`
	Version     int                `json:"version"`
	History     []TaskHistoryEntry `json:"history"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type TaskHistoryEntry struct {
	Status    TaskStatus `json:"status"`
	AgentID   string     `json:"agent_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ParseTaskStatus validates a status string received from outside the process.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewTask returns a pending task with its creation recorded in the history.
func NewTask(description string) *Task {
	now := time.Now().UTC()
	return &Task{
		TaskID:      NewTaskID(),
		Description: description,
		Status:      TaskPending,
		Version:     1,
		History:     []TaskHistoryEntry{{Status: TaskPending, Timestamp: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// LastEntry returns the most recent history entry, or nil for an empty history.
func (t *Task) LastEntry() *TaskHistoryEntry {
	if len(t.History) == 0 {
		return nil
	}
	return &t.History[len(t.History)-1]
}
