package models

import "time"

// ChatMessage represents a message posted to a thread. Deleted messages keep
// their row with Content and ImagePath cleared.
type ChatMessage struct {
	ID        int       `db:"id" json:"id"`
	ChatID    int       `db:"chat_id" json:"chat_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Content   *string   `db:"content" json:"content"`
	ImagePath *string   `db:"image_path" json:"image_path"`
	Deleted   bool      `db:"deleted" json:"deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Event names pushed over realtime connections.
const (
	EventMessage        = "message"
	EventMessageDeleted = "message_deleted"
)

// ChatEvent is pushed to live connections.
type ChatEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// MessageDeleted is the payload of a message_deleted event.
type MessageDeleted struct {
	ChatID    int `json:"chat_id"`
	MessageID int `json:"message_id"`
}
