package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/models"
)

// FriendRepository manages the symmetric friends relation.
type FriendRepository interface {
	ListFriends(ctx context.Context, userID int) ([]models.PublicUser, error)
	AddFriend(ctx context.Context, userID int, friendID int) error
	RemoveFriend(ctx context.Context, userID int, friendID int) (bool, error)
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// ListFriends returns the user's friends ordered by name.
func (r *FriendRepo) ListFriends(ctx context.Context, userID int) ([]models.PublicUser, error) {
	friends := []models.PublicUser{}
	err := r.db.SelectContext(ctx, &friends, `SELECT u.id, u.name, u.image_path FROM friends f
        INNER JOIN users u ON u.id = f.friend_id
        WHERE f.user_id=$1
        ORDER BY u.name, u.id`, userID)
	return friends, err
}

// AddFriend stores both directions of the relation. Adding an existing
// friend is a no-op.
func (r *FriendRepo) AddFriend(ctx context.Context, userID int, friendID int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	const insert = `INSERT INTO friends (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err = tx.ExecContext(ctx, insert, userID, friendID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, insert, friendID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveFriend deletes both directions and reports whether the users were friends.
func (r *FriendRepo) RemoveFriend(ctx context.Context, userID int, friendID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM friends
        WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)`, userID, friendID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
