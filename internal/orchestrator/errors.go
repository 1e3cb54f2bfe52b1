package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the turn carried no user identity. No store
	// access happens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the conversation id does not resolve to a
	// conversation owned by the caller.
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyMessage rejects a turn with no text.
	ErrEmptyMessage = errors.New("message must not be empty")
)

// UpstreamError wraps a failed model call. Nothing was persisted, so the
// same turn can be retried safely.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream model error: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed store access. When it follows a
// successful model call the reply was computed but not durably saved.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Error kinds as exposed on the wire.
const (
	KindUnauthorized   = "unauthorized"
	KindNotFound       = "not_found"
	KindUpstream       = "upstream_error"
	KindPersistence    = "persistence_error"
	KindInvalidRequest = "invalid_request"
	KindInternal       = "internal"
)

// Kind classifies err into one of the wire kinds, or "" for nil.
func Kind(err error) string {
	var (
		upstream    *UpstreamError
		persistence *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrEmptyMessage):
		return KindInvalidRequest
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.As(err, &persistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
