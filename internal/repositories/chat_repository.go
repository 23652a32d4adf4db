package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-backend/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts thread and membership persistence.
type ChatRepository interface {
	IsMember(ctx context.Context, chatID int, userID int) (bool, error)
	FindDirectChat(ctx context.Context, userID int, otherID int) (models.ChatThread, error)
	CreateDirectChat(ctx context.Context, userID int, otherID int) (models.ChatThread, bool, error)
	ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error)
	MemberIDs(ctx context.Context, chatID int) ([]int, error)
	UpdateTitle(ctx context.Context, chatID int, userID int, title string) (bool, error)
	RemoveMember(ctx context.Context, chatID int, userID int) (bool, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const findDirectChatQuery = `SELECT c.id, c.is_group, c.created_at FROM chat_threads c
    INNER JOIN chat_members a ON a.chat_id = c.id AND a.user_id=$1 AND a.removed_at IS NULL
    INNER JOIN chat_members b ON b.chat_id = c.id AND b.user_id=$2 AND b.removed_at IS NULL
    WHERE c.is_group = FALSE
    ORDER BY c.id
    LIMIT 1`

// IsMember checks whether a user holds an active membership on the chat.
func (r *ChatRepo) IsMember(ctx context.Context, chatID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2 AND removed_at IS NULL)`, chatID, userID)
	return exists, err
}

// FindDirectChat returns the direct chat both users are active members of.
func (r *ChatRepo) FindDirectChat(ctx context.Context, userID int, otherID int) (models.ChatThread, error) {
	return findDirectChat(ctx, r.db, userID, otherID)
}

func findDirectChat(ctx context.Context, q sqlx.QueryerContext, userID int, otherID int) (models.ChatThread, error) {
	var chat models.ChatThread
	err := sqlx.GetContext(ctx, q, &chat, findDirectChatQuery, userID, otherID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatThread{}, ErrChatNotFound
	}
	return chat, err
}

// CreateDirectChat creates a direct chat and both memberships in one
// transaction. An advisory lock on the user pair serializes concurrent
// creators; if a chat appeared meanwhile it is returned with created=false.
func (r *ChatRepo) CreateDirectChat(ctx context.Context, userID int, otherID int) (chat models.ChatThread, created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ChatThread{}, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockKey(userID, otherID)); err != nil {
		return models.ChatThread{}, false, err
	}

	existing, findErr := findDirectChat(ctx, tx, userID, otherID)
	switch {
	case findErr == nil:
		if err = tx.Commit(); err != nil {
			return models.ChatThread{}, false, err
		}
		return existing, false, nil
	case !errors.Is(findErr, ErrChatNotFound):
		err = findErr
		return models.ChatThread{}, false, err
	}

	if err = tx.QueryRowxContext(ctx, `INSERT INTO chat_threads (is_group) VALUES (FALSE) RETURNING id, is_group, created_at`).
		Scan(&chat.ID, &chat.IsGroup, &chat.CreatedAt); err != nil {
		return models.ChatThread{}, false, err
	}
	for _, id := range []int{userID, otherID} {
		if _, err = tx.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`, chat.ID, id); err != nil {
			return models.ChatThread{}, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.ChatThread{}, false, err
	}
	return chat, true, nil
}

// pairLockKey maps an unordered user pair to a single advisory lock key.
func pairLockKey(a, b int) int64 {
	if a > b {
		a, b = b, a
	}
	return int64(a)<<32 | int64(uint32(b))
}

type chatRow struct {
	ID        int       `db:"id"`
	IsGroup   bool      `db:"is_group"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

type memberRow struct {
	ChatID int `db:"chat_id"`
	models.PublicUser
}

// ListChats returns the chats the user is an active member of, newest first,
// each with the caller's title and the other active members.
func (r *ChatRepo) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	var rows []chatRow
	err := r.db.SelectContext(ctx, &rows, `SELECT c.id, c.is_group, m.title, c.created_at FROM chat_threads c
        INNER JOIN chat_members m ON m.chat_id = c.id
        WHERE m.user_id=$1 AND m.removed_at IS NULL
        ORDER BY c.created_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.ChatSummary{}, nil
	}

	chatIDs := make([]int, 0, len(rows))
	for _, row := range rows {
		chatIDs = append(chatIDs, row.ID)
	}

	var members []memberRow
	err = r.db.SelectContext(ctx, &members, `SELECT m.chat_id, u.id, u.name, u.image_path FROM chat_members m
        INNER JOIN users u ON u.id = m.user_id
        WHERE m.chat_id = ANY($1) AND m.user_id <> $2 AND m.removed_at IS NULL
        ORDER BY m.chat_id, u.id`, pq.Array(chatIDs), userID)
	if err != nil {
		return nil, err
	}

	byChat := map[int][]models.PublicUser{}
	for _, m := range members {
		byChat[m.ChatID] = append(byChat[m.ChatID], m.PublicUser)
	}

	result := make([]models.ChatSummary, 0, len(rows))
	for _, row := range rows {
		users := byChat[row.ID]
		if users == nil {
			users = []models.PublicUser{}
		}
		result = append(result, models.ChatSummary{
			ChatID:    row.ID,
			IsGroup:   row.IsGroup,
			Title:     row.Title,
			Members:   users,
			CreatedAt: row.CreatedAt,
		})
	}
	return result, nil
}

// MemberIDs returns the active member ids of a chat.
func (r *ChatRepo) MemberIDs(ctx context.Context, chatID int) ([]int, error) {
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM chat_members WHERE chat_id=$1 AND removed_at IS NULL ORDER BY user_id`, chatID)
	return ids, err
}

// UpdateTitle sets the caller's title override. It reports false when the
// user has no active membership.
func (r *ChatRepo) UpdateTitle(ctx context.Context, chatID int, userID int, title string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_members SET title=$3 WHERE chat_id=$1 AND user_id=$2 AND removed_at IS NULL`, chatID, userID, title)
	return affected(res, err)
}

// RemoveMember marks the caller's membership removed. The chat and the other
// memberships are kept.
func (r *ChatRepo) RemoveMember(ctx context.Context, chatID int, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_members SET removed_at=NOW() WHERE chat_id=$1 AND user_id=$2 AND removed_at IS NULL`, chatID, userID)
	return affected(res, err)
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
