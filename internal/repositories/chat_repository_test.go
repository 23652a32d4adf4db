package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/models"
)

var threadCols = []string{"id", "is_group", "created_at"}

func TestPairLockKey(t *testing.T) {
	assert.Equal(t, pairLockKey(1, 2), pairLockKey(2, 1))
	assert.Equal(t, int64(1)<<32|2, pairLockKey(2, 1))
	assert.NotEqual(t, pairLockKey(1, 2), pairLockKey(1, 3))
	assert.NotEqual(t, pairLockKey(1, 2), pairLockKey(2, 3))
	assert.NotEqual(t, pairLockKey(0, 1<<20), pairLockKey(1<<20, 1<<21))
}

func TestIsMember(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2 AND removed_at IS NULL)`)).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsMember(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDirectChatInsertsThreadAndMembers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(pairLockKey(1, 2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_threads c`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(threadCols))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO chat_threads (is_group) VALUES (FALSE)`)).
		WillReturnRows(sqlmock.NewRows(threadCols).AddRow(9, false, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`)).
		WithArgs(9, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`)).
		WithArgs(9, 2).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	chat, created, err := repo.CreateDirectChat(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.ChatThread{ID: 9, IsGroup: false, CreatedAt: now}, chat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDirectChatReturnsChatCreatedMeanwhile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(pairLockKey(2, 1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_threads c`)).
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows(threadCols).AddRow(4, false, now))
	mock.ExpectCommit()

	chat, created, err := repo.CreateDirectChat(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 4, chat.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDirectChatRollsBackOnMemberInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)
	boom := errors.New("foreign key violation")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(pairLockKey(1, 2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_threads c`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(threadCols))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO chat_threads`)).
		WillReturnRows(sqlmock.NewRows(threadCols).AddRow(9, false, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chat_members`)).
		WithArgs(9, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chat_members`)).
		WithArgs(9, 2).
		WillReturnError(boom)
	mock.ExpectRollback()

	chat, created, err := repo.CreateDirectChat(context.Background(), 1, 2)
	assert.ErrorIs(t, err, boom)
	assert.False(t, created)
	assert.Zero(t, chat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDirectChatRollsBackWhenLockFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)
	boom := errors.New("lock timeout")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(pairLockKey(1, 2)).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, _, err := repo.CreateDirectChat(context.Background(), 1, 2)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListChatsProjection(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)
	newer, older := time.Now(), time.Now().Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT c.id, c.is_group, m.title, c.created_at FROM chat_threads c`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_group", "title", "created_at"}).
			AddRow(5, true, "team", newer).
			AddRow(3, false, "", older))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE m.chat_id = ANY($1) AND m.user_id <> $2 AND m.removed_at IS NULL`)).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "id", "name", "image_path"}).
			AddRow(5, 2, "bob", "").
			AddRow(5, 3, "carol", "/c.png"))

	chats, err := repo.ListChats(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, 5, chats[0].ChatID)
	assert.True(t, chats[0].IsGroup)
	assert.Equal(t, "team", chats[0].Title)
	assert.Equal(t, []models.PublicUser{{ID: 2, Name: "bob"}, {ID: 3, Name: "carol", ImagePath: "/c.png"}}, chats[0].Members)

	assert.Equal(t, 3, chats[1].ChatID)
	assert.NotNil(t, chats[1].Members)
	assert.Empty(t, chats[1].Members)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListChatsEmptySkipsMemberQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_threads c`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_group", "title", "created_at"}))

	chats, err := repo.ListChats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.ChatSummary{}, chats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM chat_members WHERE chat_id=$1 AND removed_at IS NULL`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1).AddRow(2))

	ids, err := repo.MemberIDs(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTitleAndRemoveMemberReportAffectedRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE chat_members SET title=$3 WHERE chat_id=$1 AND user_id=$2 AND removed_at IS NULL`)).
		WithArgs(7, 1, "renamed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE chat_members SET removed_at=NOW() WHERE chat_id=$1 AND user_id=$2 AND removed_at IS NULL`)).
		WithArgs(7, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateTitle(context.Background(), 7, 1, "renamed")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RemoveMember(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
