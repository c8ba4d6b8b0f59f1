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

	"go.opentelemetry.io/otel/attribute"

	"github.com/titanforge/titanforge/model"
)

func (t *TitanForge) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return t.datasource.GetTask(ctx, id)
}

// GetAllTasks lists tasks newest first.
func (t *TitanForge) GetAllTasks(ctx context.Context, limit, offset int) ([]model.Task, error) {
	return t.datasource.GetAllTasks(ctx, limit, offset)
}

// UpdateTaskStatus applies a guarded status transition and emits the matching
// task webhook. Re-applying the current status emits nothing.
func (t *TitanForge) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, agentID string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "UpdateTaskStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", id),
		attribute.String("task.status", string(status)),
		attribute.String("agent.id", agentID),
	)

	task, changed, err := t.datasource.UpdateTaskStatus(ctx, id, status, agentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if changed {
		t.emitTaskWebhook(ctx, task)
	}
	return task, nil
}
