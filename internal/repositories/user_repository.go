package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads user rows and edits the caller's own profile.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	UserExists(ctx context.Context, userID int) (bool, error)
	UpdateProfile(ctx context.Context, userID int, name *string, imagePath *string) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, image_path, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UserExists reports whether a user row exists.
func (r *UserRepo) UserExists(ctx context.Context, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID)
	return exists, err
}

const upsertProfileQuery = `INSERT INTO users (id, name, image_path) VALUES ($1, COALESCE($2, ''), COALESCE($3, ''))
    ON CONFLICT (id) DO UPDATE SET
        name = COALESCE($2, users.name),
        image_path = COALESCE($3, users.image_path)
    RETURNING id, name, image_path, created_at`

// UpdateProfile sets the given profile fields and keeps the others. The row
// is created on first use, since accounts are owned by the auth service.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, name *string, imagePath *string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, upsertProfileQuery, userID, name, imagePath)
	return user, err
}
