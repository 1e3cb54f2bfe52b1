package snippets

import (
	"time"

	"github.com/google/uuid"
)

// Snippet is a stored reference document. Only Title and Description feed
// the retrieval context; the rest belongs to the admin approval workflow.
type Snippet struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Language    string    `json:"language,omitempty"`
	Code        string    `json:"code,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
}
