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

package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/internal/request"
)

var ErrSlackNotConfigured = errors.New("slack webhook url not configured")

type textObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type block struct {
	Type   string       `json:"type"`
	Text   *textObject  `json:"text,omitempty"`
	Fields []textObject `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []block `json:"blocks"`
}

func buildSlackMessage(title, source string, cause error, at time.Time) slackMessage {
	return slackMessage{Blocks: []block{
		{Type: "header", Text: &textObject{Type: "plain_text", Text: title, Emoji: true}},
		{Type: "section", Fields: []textObject{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Source:*\n%s", source)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n%v", cause)},
		}},
		{Type: "section", Fields: []textObject{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%s", at.Format(time.RFC822))},
		}},
	}}
}

// SlackNotification posts an internal error to the Slack incoming webhook at url.
func SlackNotification(ctx context.Context, client *http.Client, url, source string, cause error) error {
	if url == "" {
		return ErrSlackNotConfigured
	}
	msg := buildSlackMessage("Error From TitanForge 🐞", source, cause, time.Now())
	req, err := request.NewJSONRequest(ctx, http.MethodPost, url, msg, nil)
	if err != nil {
		return err
	}
	_, err = request.Call(client, req, nil)
	return err
}

// NotifyError logs the error and forwards it to Slack when a webhook is configured.
// It does not block the caller.
func NotifyError(source string, systemError error) {
	go func() {
		logrus.WithField("source", source).Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Error(err)
			return
		}
		if conf.Notification.Slack.WebhookUrl == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := SlackNotification(ctx, nil, conf.Notification.Slack.WebhookUrl, source, systemError); err != nil {
			logrus.WithError(err).Warn("failed to deliver slack notification")
		}
	}()
}
