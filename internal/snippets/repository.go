package snippets

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]Snippet, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// ListByUser returns at most limit of the user's most recent snippets.
func (r *postgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Snippet, error) {
	query := `
		SELECT id, user_id, title, description, language, code, tags, approved, created_at
		FROM snippets
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		var s Snippet
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Description,
			&s.Language, &s.Code, &s.Tags, &s.Approved, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snippet row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
