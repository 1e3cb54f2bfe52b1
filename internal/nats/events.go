package nats

import (
	"time"

	"github.com/codecache-ai/codecache/internal/conversation"
)

// FetchTimeout bounds each batch fetch from a durable consumer.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamTurns  = "CODECACHE_TURNS"
	StreamEvents = "CODECACHE_EVENTS"
)

// Subject constants.
const (
	SubjectTurnInbound  = "codecache.turns.inbound"
	SubjectTurnOutbound = "codecache.turns.outbound"
	SubjectAuditEvent   = "codecache.events.audit"
)

// TurnRequest asks the orchestrator to handle one chat turn. An empty
// ConversationID starts a new conversation.
type TurnRequest struct {
	RequestID      string    `json:"request_id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Message        string    `json:"message"`
	ReceivedAt     time.Time `json:"received_at"`
}

// TurnResult answers a TurnRequest. On success it carries the full updated
// conversation; otherwise ErrorKind is one of unauthorized, not_found,
// upstream_error, persistence_error or invalid_request.
type TurnResult struct {
	RequestID      string                     `json:"request_id"`
	UserID         string                     `json:"user_id"`
	ConversationID string                     `json:"conversation_id,omitempty"`
	Conversation   *conversation.Conversation `json:"conversation,omitempty"`
	Reply          string                     `json:"reply,omitempty"`
	ErrorKind      string                     `json:"error_kind,omitempty"`
	Error          string                     `json:"error,omitempty"`
	CompletedAt    time.Time                  `json:"completed_at"`
}

// AuditEvent is published for every handled turn.
type AuditEvent struct {
	UserID       string         `json:"user_id"`
	EventType    string         `json:"event_type"`
	Severity     string         `json:"severity"` // info, warn, error
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
