package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/codecache-ai/codecache/internal/config"
	"github.com/codecache-ai/codecache/internal/metrics"
)

// ErrEmptyReply is returned when the model answers without any text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Client sends conversation turns to an OpenAI-compatible chat-completion
// endpoint. One Client is shared by all requests.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

func NewClient(cfg config.ModelConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		model:   cfg.Name,
		timeout: cfg.Timeout,
	}
}

// Send submits history followed by liveText as the newest user turn and
// returns the model's reply. It never retries.
func (c *Client) Send(ctx context.Context, history []Turn, liveText string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toChatMessages(history, liveText),
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		metrics.ModelCallDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		return "", fmt.Errorf("requesting chat completion: %w", err)
	}
	metrics.ModelCallDuration.WithLabelValues("ok").Observe(elapsed.Seconds())

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}

	slog.Debug("model replied",
		"model", c.model,
		"history_turns", len(history),
		"duration", elapsed,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(history []Turn, liveText string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == TurnRoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text()})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: liveText,
	})
}
