package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manu-0990/motion/internal/types"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// validID reports whether id can address a row at all. Ids are opaque
// strings to callers but uuids in the database, so a malformed id is just a
// miss, not a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ConversationRepository handles database operations for conversations.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Create creates a new conversation for the given user.
func (r *ConversationRepository) Create(ctx context.Context, userID string) (*types.Conversation, error) {
	const q = `
		INSERT INTO conversations (user_id)
		VALUES ($1)
		RETURNING id, user_id, title, created_at, updated_at, archived_at`

	var conv types.Conversation
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.ArchivedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conv, nil
}

// GetByID returns a conversation if it exists and belongs to the given user.
func (r *ConversationRepository) GetByID(ctx context.Context, id, userID string) (*types.Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at, archived_at
		FROM conversations
		WHERE id = $1 AND user_id = $2 AND archived_at IS NULL`

	if !validID(id) {
		return nil, ErrNotFound
	}

	var conv types.Conversation
	err := r.pool.QueryRow(ctx, q, id, userID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.ArchivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// List returns paginated conversations for a user, most recently active first.
func (r *ConversationRepository) List(ctx context.Context, userID string, skip, take int) ([]types.Conversation, int, error) {
	const countQ = `SELECT COUNT(*) FROM conversations WHERE user_id = $1 AND archived_at IS NULL`

	var totalCount int
	if err := r.pool.QueryRow(ctx, countQ, userID).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	const q = `
		SELECT id, user_id, title, created_at, updated_at, archived_at
		FROM conversations
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, q, userID, take, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []types.Conversation
	for rows.Next() {
		var conv types.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.ArchivedAt); err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}

	return convs, totalCount, nil
}

// Archive soft-deletes a conversation by setting archived_at.
func (r *ConversationRepository) Archive(ctx context.Context, id, userID string) error {
	const q = `
		UPDATE conversations SET archived_at = now()
		WHERE id = $1 AND user_id = $2 AND archived_at IS NULL`

	if !validID(id) {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTitle updates the title of a conversation.
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	const q = `UPDATE conversations SET title = $1, updated_at = now() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, q, title, id)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
