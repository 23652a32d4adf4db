package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "name", "image_path", "created_at"}

func TestGetUserNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, image_path, created_at FROM users WHERE id=$1`)).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetUser(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileUpsertsGivenFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	name := "alice"

	mock.ExpectQuery(regexp.QuoteMeta(upsertProfileQuery)).
		WithArgs(1, "alice", nil).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "alice", "/old.png", time.Now()))

	user, err := repo.UpdateProfile(context.Background(), 1, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, "/old.png", user.ImagePath)
	assert.Contains(t, upsertProfileQuery, "ON CONFLICT (id) DO UPDATE")
	assert.NoError(t, mock.ExpectationsWereMet())
}
