package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID, userID string) (*Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*Conversation, error)
	Save(ctx context.Context, c *Conversation) (*Conversation, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const selectColumns = `id, user_id, messages, version, created_at, updated_at`

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID, userID string) (*Conversation, error) {
	query := `SELECT ` + selectColumns + ` FROM conversations WHERE id = $1 AND user_id = $2`

	c, err := scanConversation(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying conversation by id: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID string) ([]*Conversation, error) {
	query := `SELECT ` + selectColumns + ` FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	conversations := []*Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// Save inserts a new conversation or updates an existing one. Updates are
// conditional on the version the caller loaded; a mismatch yields ErrConflict.
// The returned value carries the stored id and version.
func (r *postgresRepository) Save(ctx context.Context, c *Conversation) (*Conversation, error) {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshaling messages: %w", err)
	}

	saved := c.Clone()

	if c.IsNew() {
		saved.ID = uuid.New()
		saved.Version = 1
		_, err := r.pool.Exec(ctx, `
			INSERT INTO conversations (id, user_id, messages, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			saved.ID, saved.UserID, messages, saved.Version, saved.CreatedAt, saved.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting conversation: %w", err)
		}
		return saved, nil
	}

	err = r.pool.QueryRow(ctx, `
		UPDATE conversations
		SET messages = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND user_id = $2 AND version = $3
		RETURNING version`,
		c.ID, c.UserID, c.Version, messages, c.UpdatedAt).Scan(&saved.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("updating conversation: %w", err)
	}
	return saved, nil
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var (
		c        Conversation
		messages []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &messages, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages of %s: %w", c.ID, err)
	}
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return &c, nil
}
