package models

import "time"

// ChatThread is a conversation, either direct (two members) or a group.
type ChatThread struct {
	ID        int       `db:"id" json:"id"`
	IsGroup   bool      `db:"is_group" json:"group"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMembership links a user to a thread. A membership with RemovedAt set
// no longer grants access.
type ChatMembership struct {
	ID        int        `db:"id" json:"id"`
	ChatID    int        `db:"chat_id" json:"chat_id"`
	UserID    int        `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	RemovedAt *time.Time `db:"removed_at" json:"-"`
}

// ChatSummary provides API-friendly view of a chat for a user.
type ChatSummary struct {
	ChatID    int          `json:"id"`
	IsGroup   bool         `json:"group"`
	Title     string       `json:"chat_title"`
	Members   []PublicUser `json:"chat_users"`
	CreatedAt time.Time    `json:"created_at"`
}
