package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/codecache-ai/codecache/internal/nats"
)

const consumerName = "audit-persister"

// Inserter stores audit log rows.
type Inserter interface {
	Insert(ctx context.Context, log *Log) error
}

// Consumer listens on the audit subject and persists entries to the database.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectAuditEvent, 30*time.Second)
	if err != nil {
		return err
	}
	return inats.FetchLoop(ctx, consumerName, consumer, c.handleEvent)
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var event inats.AuditEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err)
		_ = msg.Term()
		return
	}

	if err := c.persist(ctx, event); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_type", event.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

func (c *Consumer) persist(ctx context.Context, event inats.AuditEvent) error {
	log := toLog(event)
	if err := c.repo.Insert(ctx, log); err != nil {
		return err
	}
	slog.Debug("audit consumer: persisted event",
		"event_type", event.EventType,
		"user_id", event.UserID,
		"resource_id", event.ResourceID,
	)
	return nil
}

// toLog converts a wire event into a row. A resource id that is not a UUID
// is dropped rather than rejected.
func toLog(event inats.AuditEvent) *Log {
	log := &Log{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		CreatedAt:    event.Timestamp,
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	if event.ResourceID != "" {
		if parsed, err := uuid.Parse(event.ResourceID); err == nil {
			log.ResourceID = &parsed
		}
	}

	if len(event.Details) > 0 {
		if data, err := json.Marshal(event.Details); err == nil {
			log.Details = data
		}
	}
	return log
}
