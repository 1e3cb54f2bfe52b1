package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConversation(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New("user_1", now)

	assert.True(t, c.IsNew())
	assert.Equal(t, "user_1", c.UserID)
	assert.Empty(t, c.Messages)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestClone_IsolatesMessages(t *testing.T) {
	now := time.Now()
	c := New("user_1", now)
	c.Append(RoleUser, "hi", now)

	cp := c.Clone()
	cp.Append(RoleAssistant, "hello", now)

	assert.Len(t, c.Messages, 1)
	assert.Len(t, cp.Messages, 2)
}
