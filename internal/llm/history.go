// Package llm talks to the chat-completion model and owns the translation
// from stored conversation messages to the model's turn format.
package llm

import "github.com/codecache-ai/codecache/internal/conversation"

// TurnRole is the model-side speaker vocabulary.
type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleModel TurnRole = "model"
)

type Part struct {
	Text string `json:"text"`
}

// Turn is one entry of model-call history.
type Turn struct {
	Role  TurnRole `json:"role"`
	Parts []Part   `json:"parts"`
}

// Text concatenates the turn's text parts.
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var s string
	for _, p := range t.Parts {
		s += p.Text
	}
	return s
}

// ToModelHistory maps messages to model turns one-to-one, preserving order
// and content. Assistant messages become model turns; anything else,
// including unrecognised stored roles, is sent as a user turn.
func ToModelHistory(messages []conversation.Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{
			Role:  roleFor(m.Role),
			Parts: []Part{{Text: m.Content}},
		})
	}
	return turns
}

func roleFor(r conversation.Role) TurnRole {
	if r == conversation.RoleAssistant {
		return TurnRoleModel
	}
	return TurnRoleUser
}
