package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID int, userID int, content *string, imagePath *string) (models.ChatMessage, error)
	ListMessages(ctx context.Context, chatID int, beforeID *int, limit int) ([]models.ChatMessage, error)
	SoftDeleteMessage(ctx context.Context, messageID int, userID int) (models.ChatMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, user_id, content, image_path, deleted, created_at`

// CreateMessage stores a message. The row is committed when it returns.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID int, userID int, content *string, imagePath *string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.GetContext(ctx, &msg, `INSERT INTO chat_messages (chat_id, user_id, content, image_path) VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		chatID, userID, content, imagePath)
	return msg, err
}

// ListMessages returns up to limit messages newest first. With beforeID set
// only messages with a smaller id are returned.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int, beforeID *int, limit int) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	var err error
	if beforeID != nil {
		err = r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM chat_messages
            WHERE chat_id=$1 AND id < $2
            ORDER BY id DESC
            LIMIT $3`, chatID, *beforeID, limit)
	} else {
		err = r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM chat_messages
            WHERE chat_id=$1
            ORDER BY id DESC
            LIMIT $2`, chatID, limit)
	}
	return msgs, err
}

const softDeleteMessageQuery = `UPDATE chat_messages m SET content=NULL, image_path=NULL, deleted=TRUE
    WHERE m.id=$1 AND m.user_id=$2 AND m.deleted=FALSE
    AND EXISTS (SELECT 1 FROM chat_members cm
        WHERE cm.chat_id = m.chat_id AND cm.user_id = $2 AND cm.removed_at IS NULL)
    RETURNING m.id, m.chat_id, m.user_id, m.content, m.image_path, m.deleted, m.created_at`

// SoftDeleteMessage clears the content of a message authored by userID that
// is not deleted yet, provided userID is still an active member of its chat.
// Any other case returns ErrMessageNotFound.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int, userID int) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.GetContext(ctx, &msg, softDeleteMessageQuery, messageID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatMessage{}, ErrMessageNotFound
	}
	return msg, err
}
