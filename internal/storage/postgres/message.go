package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manu-0990/motion/internal/types"
)

// MessageRepository handles database operations for messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create stores a new message and bumps the conversation's activity time.
// The generated id and timestamp are written back to msg.
func (r *MessageRepository) Create(ctx context.Context, msg *types.Message) error {
	const q = `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, q, msg.ConversationID, string(msg.Role), msg.Content).
		Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	const touch = `UPDATE conversations SET updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, touch, msg.ConversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// GetByID returns a single message.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*types.Message, error) {
	const q = `
		SELECT id, conversation_id, role, content, is_approved, is_rejected, COALESCE(video_id, ''), created_at
		FROM messages
		WHERE id = $1`

	if !validID(id) {
		return nil, ErrNotFound
	}

	var msg types.Message
	var role string
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&msg.ID, &msg.ConversationID, &role, &msg.Content,
		&msg.IsApproved, &msg.IsRejected, &msg.VideoID, &msg.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	msg.Role = types.MessageRole(role)
	return &msg, nil
}

// GetByConversationID returns all messages for a conversation, ordered by creation time.
func (r *MessageRepository) GetByConversationID(ctx context.Context, convID string) ([]types.Message, error) {
	const q = `
		SELECT id, conversation_id, role, content, is_approved, is_rejected, COALESCE(video_id, ''), created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, q, convID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var msg types.Message
		var role string
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &role, &msg.Content,
			&msg.IsApproved, &msg.IsRejected, &msg.VideoID, &msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = types.MessageRole(role)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return msgs, nil
}

// SetApproved marks a message approved, clears any prior rejection, and
// attaches the rendered video id.
func (r *MessageRepository) SetApproved(ctx context.Context, id, videoID string) error {
	const q = `
		UPDATE messages
		SET is_approved = TRUE, is_rejected = FALSE, video_id = $2
		WHERE id = $1`

	if !validID(id) {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, q, id, videoID)
	if err != nil {
		return fmt.Errorf("approve message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRejected marks a message rejected. Approval state is left as is; a
// later approval clears the rejection, not the other way around.
func (r *MessageRepository) SetRejected(ctx context.Context, id string) error {
	const q = `UPDATE messages SET is_rejected = TRUE WHERE id = $1`

	if !validID(id) {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("reject message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
