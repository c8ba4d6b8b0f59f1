package titanforge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

const hookURL = "https://hooks.example.com/titanforge"

func withWebhook(cfg *config.Configuration) {
	cfg.Notification.Webhook = config.WebhookConfig{
		Url:     hookURL,
		Headers: map[string]string{"X-Hook-Secret": "s3cret"},
	}
}

func TestGetEventFromStatus(t *testing.T) {
	assert.Equal(t, "task.in_progress", getEventFromStatus(model.TaskInProgress))
	assert.Equal(t, "task.completed", getEventFromStatus(model.TaskCompleted))
	assert.Equal(t, "task.failed", getEventFromStatus(model.TaskFailed))
	assert.Empty(t, getEventFromStatus(model.TaskPending))
}

func TestUpdateTaskStatusQueuesWebhookOnce(t *testing.T) {
	f := newFixture(t, withWebhook)
	updated := &model.Task{TaskID: "task_1", Status: model.TaskCompleted, Version: 3}
	f.ds.On("UpdateTaskStatus", mock.Anything, "task_1", model.TaskCompleted, registry.GraphicDesigner).Return(updated, true, nil).Twice()

	for i := 0; i < 2; i++ {
		task, err := f.tf.UpdateTaskStatus(context.Background(), "task_1", model.TaskCompleted, registry.GraphicDesigner)
		require.NoError(t, err)
		assert.Equal(t, updated, task)
	}

	pending, err := f.inspector.ListPendingTasks(f.cfg.Queue.WebhookQueue)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "task_1:3", pending[0].ID)

	var hook NewWebhook
	require.NoError(t, json.Unmarshal(pending[0].Payload, &hook))
	assert.Equal(t, "task.completed", hook.Event)
}

func TestUpdateTaskStatusNoopAfterDeliverySendsNothing(t *testing.T) {
	f := newFixture(t, withWebhook)
	updated := &model.Task{TaskID: "task_1", Status: model.TaskCompleted, Version: 3}
	f.ds.On("UpdateTaskStatus", mock.Anything, "task_1", model.TaskCompleted, registry.GraphicDesigner).Return(updated, true, nil).Once()
	f.ds.On("UpdateTaskStatus", mock.Anything, "task_1", model.TaskCompleted, registry.GraphicDesigner).Return(updated, false, nil).Once()

	_, err := f.tf.UpdateTaskStatus(context.Background(), "task_1", model.TaskCompleted, registry.GraphicDesigner)
	require.NoError(t, err)

	// the first delivery finished and its job is gone
	require.NoError(t, f.inspector.DeleteTask(f.cfg.Queue.WebhookQueue, "task_1:3"))

	task, err := f.tf.UpdateTaskStatus(context.Background(), "task_1", model.TaskCompleted, registry.GraphicDesigner)
	require.NoError(t, err)
	assert.Equal(t, 3, task.Version)

	pending, err := f.inspector.ListPendingTasks(f.cfg.Queue.WebhookQueue)
	require.NoError(t, err)
	assert.Empty(t, pending)
	f.ds.AssertExpectations(t)
}

func TestUpdateTaskStatusWithoutWebhookURL(t *testing.T) {
	f := newFixture(t)
	f.ds.On("UpdateTaskStatus", mock.Anything, "task_1", model.TaskFailed, "mcp").
		Return(&model.Task{TaskID: "task_1", Status: model.TaskFailed, Version: 2}, true, nil).Once()

	_, err := f.tf.UpdateTaskStatus(context.Background(), "task_1", model.TaskFailed, "mcp")
	require.NoError(t, err)

	assert.False(t, f.qr.Exists("asynq:{"+f.cfg.Queue.WebhookQueue+"}:pending"))
}

func TestUpdateTaskStatusPropagatesGuardErrors(t *testing.T) {
	f := newFixture(t, withWebhook)
	f.ds.On("UpdateTaskStatus", mock.Anything, "task_1", model.TaskPending, "mcp").
		Return(nil, false, apierror.NewAPIError(apierror.ErrInvalidTransition, "Task cannot move from 'completed' to 'pending'", nil)).Once()

	_, err := f.tf.UpdateTaskStatus(context.Background(), "task_1", model.TaskPending, "mcp")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidTransition))
}

func webhookTask(t *testing.T) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(NewWebhook{Event: "task.completed", Payload: map[string]string{"task_id": "task_1"}})
	require.NoError(t, err)
	return asynq.NewTask(TypeWebhook, payload)
}

func TestProcessWebhook(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		skipRetry bool
	}{
		{name: "delivered", status: http.StatusOK},
		{name: "rejected", status: http.StatusBadRequest, wantErr: true, skipRetry: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, withWebhook)
			httpmock.ActivateNonDefault(f.tf.httpClient)
			defer httpmock.DeactivateAndReset()

			httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "s3cret", req.Header.Get("X-Hook-Secret"))
				var body NewWebhook
				assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
				assert.Equal(t, "task.completed", body.Event)
				return httpmock.NewStringResponse(tt.status, `{}`), nil
			})

			err := f.tf.ProcessWebhook(context.Background(), webhookTask(t))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
		})
	}
}

func TestProcessWebhookWithoutURLIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.tf.ProcessWebhook(context.Background(), webhookTask(t)))
}
