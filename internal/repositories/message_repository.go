package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"group-service/internal/models"
)

// MessageRepository defines interactions for group messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, groupID, senderID int, content string) (models.Message, error)
	ListMessages(ctx context.Context, groupID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage persists a message with the next per-group sequence number.
// Callers serialize sends per group, so the MAX(seq) read cannot race for
// a given group; the unique index on (group_id, seq) backstops that
// assumption.
func (r *MessageRepo) CreateMessage(ctx context.Context, groupID, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO group_messages (group_id, seq, sender_id, content)
        SELECT $1, COALESCE(MAX(seq), 0)+1, $2, $3 FROM group_messages WHERE group_id=$1
        RETURNING id, group_id, seq, sender_id, content, created_at`, groupID, senderID, content).StructScan(&msg)
	return msg, err
}

// ListMessages returns all messages of a group in sequence order.
func (r *MessageRepo) ListMessages(ctx context.Context, groupID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, group_id, seq, sender_id, content, created_at FROM group_messages WHERE group_id=$1 ORDER BY seq ASC`, groupID)
	return msgs, err
}
