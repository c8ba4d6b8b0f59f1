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

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/internal/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MockModel answers every completion with MockCompletion without a network call.
const MockModel = "mock-response"

const MockCompletion = `{"tool":"none","params":{}}`

var tracer = otel.Tracer("titanforge.llm")

var ErrEmptyCompletion = errors.New("completion returned no choices")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Completer is what agents need from a language model.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	endpoint    string
	model       string
	apiKey      string
	maxAttempts int
	httpClient  *http.Client
	newBackOff  func() backoff.BackOff
}

func New(cfg config.LLMConfig) *Client {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxAttempts: attempts,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 8 * time.Second
			return b
		},
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.model == MockModel {
		return MockCompletion, nil
	}

	ctx, span := tracer.Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	body := chatRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	attempt := 0
	var out chatResponse
	op := func() error {
		attempt++
		req, err := request.NewJSONRequest(ctx, http.MethodPost, c.endpoint, body, headers)
		if err != nil {
			return backoff.Permanent(err)
		}
		out = chatResponse{}
		_, err = request.Call(c.httpClient, req, &out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		logrus.WithFields(logrus.Fields{"attempt": attempt, "model": c.model}).WithError(err).Warn("llm completion failed, retrying")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llm completion after %d attempt(s): %w", attempt, err)
	}
	span.SetAttributes(attribute.Int("llm.attempts", attempt))

	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// retryable covers network failures, 5xx and 429.
func retryable(err error) bool {
	var statusErr *request.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
