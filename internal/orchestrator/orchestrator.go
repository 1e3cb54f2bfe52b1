// Package orchestrator runs one chat turn end to end: resolve the
// conversation, build the outgoing text, call the model, persist the pair.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codecache-ai/codecache/internal/conversation"
	"github.com/codecache-ai/codecache/internal/llm"
	"github.com/codecache-ai/codecache/internal/metrics"
	inats "github.com/codecache-ai/codecache/internal/nats"
)

// ConversationStore loads and saves conversations scoped to their owner.
type ConversationStore interface {
	FindByID(ctx context.Context, id uuid.UUID, userID string) (*conversation.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*conversation.Conversation, error)
	Save(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error)
}

// CompletionModel produces a reply for history plus a live user turn.
type CompletionModel interface {
	Send(ctx context.Context, history []llm.Turn, liveText string) (string, error)
}

// EventPublisher receives audit events. Failures never fail a turn.
type EventPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// TurnRequest is one inbound user message. An empty ConversationID starts a
// new conversation.
type TurnRequest struct {
	UserID         string
	Text           string
	ConversationID string
}

type Orchestrator struct {
	store    ConversationStore
	injector *Injector
	model    CompletionModel
	events   EventPublisher
	now      func() time.Time
}

// NewOrchestrator wires the turn pipeline. events may be nil.
func NewOrchestrator(store ConversationStore, injector *Injector, model CompletionModel, events EventPublisher) *Orchestrator {
	return &Orchestrator{
		store:    store,
		injector: injector,
		model:    model,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleTurn appends the user message and the model's reply to the
// conversation and persists both in a single write. On any error nothing is
// written and the returned conversation is nil.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (*conversation.Conversation, error) {
	start := time.Now()
	conv, err := o.handleTurn(ctx, req)

	outcome := outcomeFor(err)
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		level := slog.LevelWarn
		if Kind(err) == KindPersistence {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "turn failed",
			"user_id", req.UserID,
			"conversation_id", req.ConversationID,
			"kind", Kind(err),
			"error", err,
		)
	} else {
		slog.Info("turn completed",
			"user_id", req.UserID,
			"conversation_id", conv.ID,
			"messages", len(conv.Messages),
			"duration", time.Since(start),
		)
	}

	o.publishAudit(ctx, req, conv, err)
	return conv, err
}

func (o *Orchestrator) handleTurn(ctx context.Context, req TurnRequest) (*conversation.Conversation, error) {
	if req.UserID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := o.load(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	conv.Append(conversation.RoleUser, req.Text, o.now())
	isFirstTurn := len(conv.Messages) == 1

	outgoing := o.injector.BuildOutgoing(ctx, req.UserID, req.Text, isFirstTurn)
	history := llm.ToModelHistory(conv.Messages[:len(conv.Messages)-1])

	slog.Debug("calling model",
		"user_id", req.UserID,
		"conversation_id", conv.ID,
		"history_turns", len(history),
		"first_turn", isFirstTurn,
	)

	reply, err := o.model.Send(ctx, history, outgoing)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	now := o.now()
	conv.Append(conversation.RoleAssistant, reply, now)
	conv.UpdatedAt = now

	saved, err := o.store.Save(ctx, conv)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return saved, nil
}

// load resolves an existing conversation for userID, or starts a new
// unsaved one when id is empty. The result is a private copy.
func (o *Orchestrator) load(ctx context.Context, userID, id string) (*conversation.Conversation, error) {
	if id == "" {
		return conversation.New(userID, o.now()), nil
	}
	conv, err := o.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return conv.Clone(), nil
}

// find treats a malformed id, a missing row and another user's row alike.
func (o *Orchestrator) find(ctx context.Context, userID, id string) (*conversation.Conversation, error) {
	convID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	conv, err := o.store.FindByID(ctx, convID, userID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Err: err}
	}
	if conv == nil || conv.UserID != userID {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Conversations lists the caller's conversations, most recently updated first.
func (o *Orchestrator) Conversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	list, err := o.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return list, nil
}

// Conversation returns one of the caller's conversations.
func (o *Orchestrator) Conversation(ctx context.Context, userID, id string) (*conversation.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return o.find(ctx, userID, id)
}

func (o *Orchestrator) publishAudit(ctx context.Context, req TurnRequest, conv *conversation.Conversation, err error) {
	if o.events == nil {
		return
	}

	event := inats.AuditEvent{
		UserID:       req.UserID,
		EventType:    "turn_completed",
		Severity:     "info",
		ResourceType: "conversation",
		ResourceID:   req.ConversationID,
		Details:      map[string]any{},
		Timestamp:    o.now(),
	}
	if conv != nil {
		event.ResourceID = conv.ID.String()
		event.Details["message_count"] = len(conv.Messages)
		event.Details["new_conversation"] = req.ConversationID == ""
	}
	if err != nil {
		event.EventType = "turn_failed"
		event.Severity = "warn"
		if Kind(err) == KindPersistence {
			event.Severity = "error"
		}
		event.Details["kind"] = Kind(err)
	}
	if event.UserID == "" {
		event.UserID = "anonymous"
	}

	if pubErr := o.events.PublishAuditEvent(ctx, event); pubErr != nil {
		slog.Error("publishing audit event", "error", pubErr, "event_type", event.EventType)
	}
}

func outcomeFor(err error) string {
	switch Kind(err) {
	case "":
		return metrics.OutcomeOK
	case KindUnauthorized:
		return metrics.OutcomeUnauthorized
	case KindNotFound:
		return metrics.OutcomeNotFound
	case KindUpstream:
		return metrics.OutcomeUpstream
	case KindPersistence:
		return metrics.OutcomePersistence
	default:
		return Kind(err)
	}
}
