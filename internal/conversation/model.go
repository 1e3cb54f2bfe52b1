package conversation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a conversation does not exist or is owned
	// by another user. The two cases are indistinguishable to callers.
	ErrNotFound = errors.New("conversation not found")

	// ErrConflict is returned by Save when the stored version moved on
	// since the conversation was loaded.
	ErrConflict = errors.New("conversation was modified concurrently")
)

// Role is the author of a message. Only RoleUser and RoleAssistant are ever
// written by this service.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is an append-only log of messages owned by one user. A zero
// ID means the conversation has not been persisted yet.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty, unsaved conversation for userID.
func New(userID string, now time.Time) *Conversation {
	return &Conversation{
		UserID:    userID,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsNew reports whether the conversation has never been saved.
func (c *Conversation) IsNew() bool {
	return c.ID == uuid.Nil
}

// Append adds a message, defaulting its timestamp to now.
func (c *Conversation) Append(role Role, content string, now time.Time) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content, Timestamp: now})
}

// Clone returns a deep copy so that in-flight appends never leak into a
// caller-held value.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}
