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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/titanforge/titanforge/internal/request"
	"github.com/titanforge/titanforge/model"
)

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// getEventFromStatus maps a task status to its webhook event. Pending tasks
// emit nothing.
func getEventFromStatus(status model.TaskStatus) string {
	switch status {
	case model.TaskInProgress:
		return "task.in_progress"
	case model.TaskCompleted:
		return "task.completed"
	case model.TaskFailed:
		return "task.failed"
	default:
		return ""
	}
}

// SendWebhook enqueues a webhook delivery when a webhook url is configured.
func (t *TitanForge) SendWebhook(ctx context.Context, hook NewWebhook, id string) error {
	if t.config.Notification.Webhook.Url == "" {
		return nil
	}
	return t.queue.EnqueueWebhook(ctx, hook, id)
}

// emitTaskWebhook announces a task's current status. The job id is keyed on
// the task version so replays of the same transition are delivered once.
func (t *TitanForge) emitTaskWebhook(ctx context.Context, task *model.Task) {
	event := getEventFromStatus(task.Status)
	if event == "" {
		return
	}
	id := fmt.Sprintf("%s:%d", task.TaskID, task.Version)
	err := t.SendWebhook(ctx, NewWebhook{Event: event, Payload: task}, id)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.WithError(err).WithField("task_id", task.TaskID).Warn("failed to queue task webhook")
	}
}

// ProcessWebhook delivers a queued webhook. Client errors are not retried.
func (t *TitanForge) ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	if t.config.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode webhook: %v: %w", err, asynq.SkipRetry)
	}
	logrus.Infof("Processing webhook: %s", payload.Event)

	err := t.processHTTP(ctx, payload)
	var statusErr *request.StatusError
	if errors.As(err, &statusErr) && !statusErr.Retryable() {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

func (t *TitanForge) processHTTP(ctx context.Context, data NewWebhook) error {
	hook := t.config.Notification.Webhook
	req, err := request.NewJSONRequest(ctx, http.MethodPost, hook.Url, data, hook.Headers)
	if err != nil {
		return err
	}
	if _, err := request.Call(t.httpClient, req, nil); err != nil {
		return fmt.Errorf("deliver %s webhook: %w", data.Event, err)
	}
	return nil
}
