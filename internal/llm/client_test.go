package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titanforge/titanforge/config"
)

const endpoint = "https://llm.test/v1/chat/completions"

func newTestClient(model string, attempts int) *Client {
	c := New(config.LLMConfig{Endpoint: endpoint, Model: model, APIKey: "sk-test", TimeoutSeconds: 5, MaxAttempts: attempts})
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
}

func TestMockModelSkipsNetwork(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	out, err := newTestClient(MockModel, 3).Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool":"none","params":{}}`, out)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestComplete(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, endpoint, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		var body chatRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Len(t, body.Messages, 2)
		return httpmock.NewJsonResponse(200, completion(`{"tool":"file_writer","params":{}}`))
	})

	out, err := newTestClient("gpt-4o-mini", 3).Complete(context.Background(), []Message{
		{Role: "system", Content: "pick a tool"},
		{Role: "user", Content: "Task: write main.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tool":"file_writer","params":{}}`, out)
}

func TestRetriesOnServerErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, endpoint, func(req *http.Request) (*http.Response, error) {
		calls++
		switch calls {
		case 1:
			return httpmock.NewStringResponse(503, "unavailable"), nil
		case 2:
			return httpmock.NewStringResponse(429, "slow down"), nil
		}
		return httpmock.NewJsonResponse(200, completion("ok"))
	})

	out, err := newTestClient("gpt-4o-mini", 3).Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, endpoint, httpmock.NewStringResponder(500, "boom"))

	_, err := newTestClient("gpt-4o-mini", 2).Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestNoRetryOnClientErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, endpoint, httpmock.NewStringResponder(401, "bad key"))

	_, err := newTestClient("gpt-4o-mini", 5).Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestEmptyChoices(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, endpoint, httpmock.NewStringResponder(200, `{"choices":[]}`))

	_, err := newTestClient("gpt-4o-mini", 1).Complete(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}
