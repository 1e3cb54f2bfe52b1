package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecache-ai/codecache/internal/conversation"
)

func TestToModelHistory(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		messages []conversation.Message
		want     []Turn
	}{
		{
			name:     "empty",
			messages: nil,
			want:     []Turn{},
		},
		{
			name: "roles map and order is kept",
			messages: []conversation.Message{
				{Role: conversation.RoleUser, Content: "hi", Timestamp: now},
				{Role: conversation.RoleAssistant, Content: "hello", Timestamp: now},
				{Role: conversation.RoleUser, Content: "how?", Timestamp: now},
			},
			want: []Turn{
				{Role: TurnRoleUser, Parts: []Part{{Text: "hi"}}},
				{Role: TurnRoleModel, Parts: []Part{{Text: "hello"}}},
				{Role: TurnRoleUser, Parts: []Part{{Text: "how?"}}},
			},
		},
		{
			name: "content is verbatim",
			messages: []conversation.Message{
				{Role: conversation.RoleAssistant, Content: "  ```go\nfmt.Println(\"x\")\n```  "},
			},
			want: []Turn{
				{Role: TurnRoleModel, Parts: []Part{{Text: "  ```go\nfmt.Println(\"x\")\n```  "}}},
			},
		},
		{
			name: "unknown role falls back to user",
			messages: []conversation.Message{
				{Role: "system", Content: "legacy"},
				{Role: "", Content: "blank"},
			},
			want: []Turn{
				{Role: TurnRoleUser, Parts: []Part{{Text: "legacy"}}},
				{Role: TurnRoleUser, Parts: []Part{{Text: "blank"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToModelHistory(tt.messages)
			require.Len(t, got, len(tt.messages))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTurnText(t *testing.T) {
	turn := Turn{Role: TurnRoleUser, Parts: []Part{{Text: "a"}, {Text: "b"}}}
	assert.Equal(t, "ab", turn.Text())
}
