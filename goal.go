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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

// GoalResult is returned to whoever submitted a goal.
type GoalResult struct {
	Message     string `json:"message"`
	TaskID      string `json:"task_id"`
	CEOResponse string `json:"ceo_response"`
}

const busyCEOResponse = "CEO is busy, goal queued for delegation."

// SubmitGoal records a goal as a pending task, tells the analytics agent about
// it and has the CEO delegate it. If the CEO is mid-run the goal is queued in
// its mailbox instead.
func (t *TitanForge) SubmitGoal(ctx context.Context, userID, description string) (*GoalResult, error) {
	ctx, span := tracer.Start(ctx, "SubmitGoal")
	defer span.End()

	task, err := t.datasource.CreateTask(ctx, model.NewTask(description))
	if err != nil {
		span.RecordError(err)
		return nil, t.goalFailed(ctx, userID, err)
	}

	t.recordAnalytics(ctx, userID, "goal_submitted", map[string]interface{}{
		"task_id":          task.TaskID,
		"goal_description": description,
	})

	goal := fmt.Sprintf("Task ID: %s. Goal: %s", task.TaskID, description)
	out, err := t.swarm.Execute(ctx, registry.CEO, goal)
	if apierror.Is(err, apierror.ErrConflict) {
		if sendErr := t.DeliverMessage(ctx, registry.CEO, model.NewTextMessage(registry.MCP, goal)); sendErr == nil {
			return &GoalResult{Message: "Goal received and task created.", TaskID: task.TaskID, CEOResponse: busyCEOResponse}, nil
		}
	}
	if err != nil {
		span.RecordError(err)
		if _, failErr := t.UpdateTaskStatus(ctx, task.TaskID, model.TaskFailed, registry.MCP); failErr != nil {
			logrus.WithError(failErr).WithField("task_id", task.TaskID).Warn("could not mark goal task failed")
		}
		return nil, t.goalFailed(ctx, userID, err)
	}

	return &GoalResult{Message: "Goal received and task created.", TaskID: task.TaskID, CEOResponse: out}, nil
}

// goalFailed reports the cause to the notification agent and returns an error
// that is safe to show the caller.
func (t *TitanForge) goalFailed(ctx context.Context, userID string, cause error) error {
	logrus.WithError(cause).WithField("user_id", userID).Error("failed to process goal")
	t.sendObject(ctx, registry.NotificationAgent, "", map[string]interface{}{
		"action":            "process_notification_request",
		"notification_type": "internal_error",
		"data": map[string]interface{}{
			"error_message": fmt.Sprintf("Failed to process goal for user %s: %v", userID, cause),
		},
	})
	return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to process goal.", cause)
}

// recordAnalytics hands an event to the analytics agent. Delivery is best effort.
func (t *TitanForge) recordAnalytics(ctx context.Context, userID, eventType string, payload map[string]interface{}) {
	t.sendObject(ctx, registry.AnalyticsAgent, userID, map[string]interface{}{
		"action":     "record_event",
		"event_type": eventType,
		"user_id":    userID,
		"payload":    payload,
	})
}

func (t *TitanForge) sendObject(ctx context.Context, recipientID, userID string, payload map[string]interface{}) {
	msg, err := model.NewObjectMessage(registry.MCP, payload)
	if err == nil {
		msg.UserID = userID
		err = t.DeliverMessage(ctx, recipientID, msg)
	}
	if err != nil {
		logrus.WithError(err).WithField("recipient_id", recipientID).Warn("coordinator message not delivered")
	}
}
