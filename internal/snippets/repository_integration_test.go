//go:build integration

package snippets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecache-ai/codecache/internal/testutil"
)

func TestListByUser(t *testing.T) {
	pool := testutil.StartPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 7; i++ {
		_, err := pool.Exec(ctx, `
			INSERT INTO snippets (id, user_id, title, description, language, code, tags, approved, created_at)
			VALUES ($1, $2, $3, $4, 'go', 'fmt.Println()', $5, true, $6)`,
			uuid.New(), "user_a", fmt.Sprintf("title-%d", i), fmt.Sprintf("desc-%d", i),
			[]string{"go"}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO snippets (id, user_id, title, description, created_at)
		VALUES ($1, 'user_b', 'other', 'not yours', now())`, uuid.New())
	require.NoError(t, err)

	t.Run("bounded and scoped", func(t *testing.T) {
		got, err := repo.ListByUser(ctx, "user_a", 5)
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, "title-6", got[0].Title)
		for _, s := range got {
			assert.Equal(t, "user_a", s.UserID)
		}
	})

	t.Run("no snippets", func(t *testing.T) {
		got, err := repo.ListByUser(ctx, "nobody", 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
