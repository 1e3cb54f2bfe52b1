package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/codecache-ai/codecache/internal/nats"
)

const turnConsumerName = "turn-handler"

// ResultPublisher delivers turn results to the outbound subject.
type ResultPublisher interface {
	PublishTurnResult(ctx context.Context, res inats.TurnResult) error
}

// Consumer feeds turn requests from JetStream through the Orchestrator and
// publishes one result per request.
type Consumer struct {
	orch        *Orchestrator
	results     ResultPublisher
	consumerMgr *inats.ConsumerManager
	ackWait     time.Duration
	now         func() time.Time
}

// NewConsumer creates a turn Consumer. ackWait should cover a full model call.
func NewConsumer(orch *Orchestrator, results ResultPublisher, consumerMgr *inats.ConsumerManager, ackWait time.Duration) *Consumer {
	return &Consumer{
		orch:        orch,
		results:     results,
		consumerMgr: consumerMgr,
		ackWait:     ackWait,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamTurns, turnConsumerName, inats.SubjectTurnInbound, c.ackWait)
	if err != nil {
		return err
	}
	return inats.FetchLoop(ctx, turnConsumerName, consumer, c.handleMessage)
}

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	req, err := decodeTurnRequest(msg.Data())
	if err != nil {
		slog.Error("turn consumer: decoding request", "error", err)
		_ = msg.Term()
		return
	}

	// Messages still buffered from the last batch go back to the stream.
	if ctx.Err() != nil {
		_ = msg.Nak()
		return
	}

	res := c.process(ctx, req)

	// A turn cut short by shutdown persisted nothing and is redelivered.
	if res.ErrorKind != "" && ctx.Err() != nil {
		slog.Warn("turn consumer: turn interrupted, requeueing", "request_id", req.RequestID)
		_ = msg.Nak()
		return
	}

	if err := c.results.PublishTurnResult(context.WithoutCancel(ctx), res); err != nil {
		slog.Error("turn consumer: publishing result", "error", err, "request_id", req.RequestID)
		// A failed turn has no side effects, so it is safe to run again.
		if res.ErrorKind != "" {
			_ = msg.Nak()
			return
		}
	}

	// Completed turns are not redelivered; retry is the producer's call.
	_ = msg.Ack()
}

func decodeTurnRequest(data []byte) (inats.TurnRequest, error) {
	var req inats.TurnRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("unmarshaling turn request: %w", err)
	}
	if req.RequestID == "" {
		return req, fmt.Errorf("turn request has no request_id")
	}
	return req, nil
}

func (c *Consumer) process(ctx context.Context, req inats.TurnRequest) inats.TurnResult {
	slog.Debug("turn consumer: processing request",
		"request_id", req.RequestID,
		"user_id", req.UserID,
		"conversation_id", req.ConversationID,
	)

	conv, err := c.orch.HandleTurn(ctx, TurnRequest{
		UserID:         req.UserID,
		Text:           req.Message,
		ConversationID: req.ConversationID,
	})

	res := inats.TurnResult{
		RequestID:      req.RequestID,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		CompletedAt:    c.now(),
	}
	if err != nil {
		res.ErrorKind = Kind(err)
		res.Error = err.Error()
		return res
	}

	res.ConversationID = conv.ID.String()
	res.Conversation = conv
	if n := len(conv.Messages); n > 0 {
		res.Reply = conv.Messages[n-1].Content
	}
	return res
}
