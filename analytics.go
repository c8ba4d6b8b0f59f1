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
	"errors"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/sirupsen/logrus"

	"github.com/titanforge/titanforge/internal/notification"
	"github.com/titanforge/titanforge/model"
)

// RecordEvent stores an analytics event and mirrors it to PostHog when a sink
// is configured.
func (t *TitanForge) RecordEvent(ctx context.Context, event *model.Event) error {
	if err := t.datasource.RecordEvent(ctx, event); err != nil {
		return err
	}
	if t.posthog != nil {
		distinctID := event.UserID
		if distinctID == "" {
			distinctID = t.config.ProjectName
		}
		props := posthog.NewProperties()
		for k, v := range event.Data {
			props.Set(k, v)
		}
		if err := t.posthog.Enqueue(posthog.Capture{
			DistinctId: distinctID,
			Event:      event.EventType,
			Timestamp:  event.Timestamp,
			Properties: props,
		}); err != nil {
			logrus.WithError(err).Warn("failed to forward event to posthog")
		}
	}
	return nil
}

func (t *TitanForge) CountEvents(ctx context.Context, eventType string, from, to time.Time) (int64, error) {
	return t.datasource.CountEvents(ctx, eventType, from, to)
}

// AnalyticsSummary rolls up users, signups, goals, leads and task states.
func (t *TitanForge) AnalyticsSummary(ctx context.Context) (*model.AnalyticsSummary, error) {
	var err error
	summary := &model.AnalyticsSummary{}

	if summary.TotalUsers, err = t.datasource.CountUsers(ctx, false); err != nil {
		return nil, err
	}
	if summary.ActiveUsers, err = t.datasource.CountUsers(ctx, true); err != nil {
		return nil, err
	}
	if summary.Signups, err = t.datasource.CountEvents(ctx, "user_signup", time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	if summary.GoalsReceived, err = t.datasource.CountEvents(ctx, "goal_submitted", time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	if summary.TotalLeads, err = t.datasource.CountLeads(ctx); err != nil {
		return nil, err
	}
	if summary.TasksByStatus, err = t.datasource.CountTasksByStatus(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

// Alert forwards an internal error to the Slack webhook. Without a webhook the
// error is only logged.
func (t *TitanForge) Alert(ctx context.Context, source string, cause error) error {
	logrus.WithField("source", source).Error(cause)
	err := notification.SlackNotification(ctx, t.httpClient, t.config.Notification.Slack.WebhookUrl, source, cause)
	if errors.Is(err, notification.ErrSlackNotConfigured) {
		return nil
	}
	return err
}
