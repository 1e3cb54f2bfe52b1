package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/codecache-ai/codecache/internal/nats"
)

func TestDecodeTurnRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req, err := decodeTurnRequest([]byte(`{"request_id":"r1","user_id":"u","message":"hi"}`))
		require.NoError(t, err)
		assert.Equal(t, "r1", req.RequestID)
		assert.Equal(t, "hi", req.Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := decodeTurnRequest([]byte(`{not json`))
		assert.Error(t, err)
	})

	t.Run("missing request id", func(t *testing.T) {
		_, err := decodeTurnRequest([]byte(`{"user_id":"u","message":"hi"}`))
		assert.Error(t, err)
	})
}

func TestConsumerProcess(t *testing.T) {
	h := newHarness()
	c := NewConsumer(h.orch, &fakeResults{}, nil, time.Minute)

	t.Run("success carries conversation", func(t *testing.T) {
		res := c.process(context.Background(), inats.TurnRequest{
			RequestID: "r1",
			UserID:    "user_a",
			Message:   "What is a snippet?",
		})

		assert.Equal(t, "r1", res.RequestID)
		assert.Empty(t, res.ErrorKind)
		require.NotNil(t, res.Conversation)
		assert.Equal(t, res.Conversation.ID.String(), res.ConversationID)
		assert.Equal(t, "Here you go.", res.Reply)
	})

	t.Run("failure carries kind", func(t *testing.T) {
		h.model.err = errors.New("quota")
		defer func() { h.model.err = nil }()

		res := c.process(context.Background(), inats.TurnRequest{
			RequestID: "r2",
			UserID:    "user_a",
			Message:   "hi",
		})

		assert.Equal(t, KindUpstream, res.ErrorKind)
		assert.Nil(t, res.Conversation)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		res := c.process(context.Background(), inats.TurnRequest{
			RequestID:      "r3",
			UserID:         "user_a",
			ConversationID: "abc",
			Message:        "hi",
		})

		assert.Equal(t, KindNotFound, res.ErrorKind)
		assert.Equal(t, "abc", res.ConversationID)
	})
}

func turnPayload(t *testing.T, req inats.TurnRequest) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestConsumerHandleMessage(t *testing.T) {
	t.Run("completed turn is published and acked", func(t *testing.T) {
		h := newHarness()
		results := &fakeResults{}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: turnPayload(t, inats.TurnRequest{RequestID: "r1", UserID: "user_a", Message: "hi"})}

		c.handleMessage(context.Background(), msg)

		assert.True(t, msg.acked)
		assert.False(t, msg.naked)
		require.Len(t, results.results, 1)
		assert.Equal(t, "r1", results.results[0].RequestID)
		assert.Equal(t, "Here you go.", results.results[0].Reply)
	})

	t.Run("failed turn is published and acked", func(t *testing.T) {
		h := newHarness()
		results := &fakeResults{}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: turnPayload(t, inats.TurnRequest{RequestID: "r2", UserID: "user_a", ConversationID: "abc", Message: "hi"})}

		c.handleMessage(context.Background(), msg)

		assert.True(t, msg.acked)
		require.Len(t, results.results, 1)
		assert.Equal(t, KindNotFound, results.results[0].ErrorKind)
	})

	t.Run("undecodable payload is terminated", func(t *testing.T) {
		h := newHarness()
		results := &fakeResults{}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: []byte(`{not json`)}

		c.handleMessage(context.Background(), msg)

		assert.True(t, msg.termed)
		assert.False(t, msg.acked)
		assert.False(t, msg.naked)
		assert.Empty(t, results.results)
	})

	t.Run("buffered message after shutdown is requeued untouched", func(t *testing.T) {
		h := newHarness()
		results := &fakeResults{}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: turnPayload(t, inats.TurnRequest{RequestID: "r3", UserID: "user_a", Message: "hi"})}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c.handleMessage(ctx, msg)

		assert.True(t, msg.naked)
		assert.False(t, msg.acked)
		assert.Empty(t, h.model.calls)
		assert.Empty(t, results.results)
	})

	t.Run("turn interrupted by shutdown is requeued", func(t *testing.T) {
		h := newHarness()
		results := &fakeResults{}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: turnPayload(t, inats.TurnRequest{RequestID: "r4", UserID: "user_a", Message: "hi"})}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.model.onSend = cancel
		c.handleMessage(ctx, msg)

		assert.True(t, msg.naked)
		assert.False(t, msg.acked)
		assert.Equal(t, 0, h.store.saveCalls)
		assert.Empty(t, results.results)
	})

	t.Run("failed turn whose result cannot be published is requeued", func(t *testing.T) {
		h := newHarness()
		h.model.err = errors.New("quota")
		results := &fakeResults{err: errors.New("nats down")}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: turnPayload(t, inats.TurnRequest{RequestID: "r5", UserID: "user_a", Message: "hi"})}

		c.handleMessage(context.Background(), msg)

		assert.True(t, msg.naked)
		assert.False(t, msg.acked)
	})

	t.Run("completed turn whose result cannot be published is still acked", func(t *testing.T) {
		h := newHarness()
		results := &fakeResults{err: errors.New("nats down")}
		c := NewConsumer(h.orch, results, nil, time.Minute)
		msg := &fakeMsg{data: turnPayload(t, inats.TurnRequest{RequestID: "r6", UserID: "user_a", Message: "hi"})}

		c.handleMessage(context.Background(), msg)

		assert.True(t, msg.acked)
		assert.False(t, msg.naked)
		assert.Equal(t, 1, h.store.saveCalls)
	})
}
