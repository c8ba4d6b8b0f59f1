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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/model"
)

const taskCacheTTL = 5 * time.Minute

const taskColumns = `task_id, description, status, version, history, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func taskCacheKey(id string) string {
	return "task:" + id
}

func scanTask(row scanner) (*model.Task, error) {
	t := model.Task{}
	var historyJSON []byte
	if err := row.Scan(&t.TaskID, &t.Description, &t.Status, &t.Version, &historyJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(historyJSON, &t.History); err != nil {
		return nil, fmt.Errorf("decode history of task %s: %w", t.TaskID, err)
	}
	return &t, nil
}

func (d Datasource) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	historyJSON, err := json.Marshal(task.History)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal task history", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO titanforge.tasks (task_id, description, status, version, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, task.TaskID, task.Description, task.Status, task.Version, historyJSON, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Task with this ID already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create task", err)
	}
	return task, nil
}

// GetTask reads through the cache. Status updates never use it: they need the
// current version.
func (d Datasource) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if d.Cache != nil {
		cached := model.Task{}
		if err := d.Cache.Get(ctx, taskCacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	task, err := d.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, taskCacheKey(id), task, taskCacheTTL); err != nil {
			logrus.Warnf("failed to cache task %s: %v", id, err)
		}
	}
	return task, nil
}

func (d Datasource) getTask(ctx context.Context, id string) (*model.Task, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM titanforge.tasks WHERE task_id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Task with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve task", err)
	}
	return task, nil
}

// GetAllTasks lists tasks newest first.
func (d Datasource) GetAllTasks(ctx context.Context, limit, offset int) ([]model.Task, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM titanforge.tasks
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve tasks", err)
	}
	return collectTasks(rows)
}

// GetStuckTasks returns tasks that have sat in status for longer than olderThan,
// oldest first.
func (d Datasource) GetStuckTasks(ctx context.Context, status model.TaskStatus, olderThan time.Duration, limit int) ([]model.Task, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM titanforge.tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`, status, cutoff, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve stuck tasks", err)
	}
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan task data", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over tasks", err)
	}
	return tasks, nil
}

// UpdateTaskStatus moves a task along its lifecycle. The write is a
// compare-and-swap on version and appends the history entry in the same
// statement, so a lost race leaves both status and history untouched.
// changed is false when the same agent re-applies the current status.
func (d Datasource) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, agentID string) (task *model.Task, changed bool, err error) {
	if _, err := model.ParseTaskStatus(string(status)); err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	task, err = d.getTask(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if task.Status == status {
		if last := task.LastEntry(); last != nil && last.AgentID == agentID {
			return task, false, nil
		}
	}
	if task.Status.IsTerminal() {
		return nil, false, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("Task is already %s and cannot move to '%s'", task.Status, status), nil)
	}
	if !model.CanTransition(task.Status, status) {
		return nil, false, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("Task cannot move from '%s' to '%s'", task.Status, status), nil)
	}

	now := time.Now().UTC()
	entry := model.TaskHistoryEntry{Status: status, AgentID: agentID, Timestamp: now}
	entryJSON, err := json.Marshal([]model.TaskHistoryEntry{entry})
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal task history", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE titanforge.tasks
		SET status = $1, history = history || $2::jsonb, version = version + 1, updated_at = $3
		WHERE task_id = $4 AND version = $5
	`, status, entryJSON, now, id, task.Version)
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update task", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, false, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Task '%s' was modified concurrently, retry the update", id), nil)
	}

	d.invalidateTask(ctx, id)

	task.Status = status
	task.Version++
	task.History = append(task.History, entry)
	task.UpdatedAt = now
	return task, true, nil
}

func (d Datasource) invalidateTask(ctx context.Context, id string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Delete(ctx, taskCacheKey(id)); err != nil {
		logrus.Warnf("failed to invalidate cached task %s: %v", id, err)
	}
}

func (d Datasource) CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	rows, err := d.Conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM titanforge.tasks GROUP BY status`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count tasks", err)
	}
	defer rows.Close()

	counts := map[model.TaskStatus]int64{}
	for rows.Next() {
		var status model.TaskStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan task counts", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while counting tasks", err)
	}
	return counts, nil
}
