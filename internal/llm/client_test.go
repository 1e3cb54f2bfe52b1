package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecache-ai/codecache/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ModelConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1/",
		Name:    "gemini-2.0-flash",
		Timeout: timeout,
	})
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gemini-2.0-flash",
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}
}

func TestClientSend_WireFormat(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("use a map"))
	}, time.Second)

	history := []Turn{
		{Role: TurnRoleUser, Parts: []Part{{Text: "hi"}}},
		{Role: TurnRoleModel, Parts: []Part{{Text: "hello"}}},
	}

	reply, err := client.Send(context.Background(), history, "continue")
	require.NoError(t, err)
	assert.Equal(t, "use a map", reply)

	assert.Equal(t, "gemini-2.0-flash", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[2].Role)
	assert.Equal(t, "continue", got.Messages[2].Content)
}

func TestClientSend_ProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	}, time.Second)

	_, err := client.Send(context.Background(), nil, "hi")
	require.Error(t, err)

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
}

func TestClientSend_EmptyReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}, time.Second)

	_, err := client.Send(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestClientSend_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.Send(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
