package service

import (
	"context"
	"errors"

	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
)

// Authorizer answers whether a user may act on a thread.
type Authorizer struct {
	chats repositories.ChatRepository
	users repositories.UserRepository
}

func NewAuthorizer(chats repositories.ChatRepository, users repositories.UserRepository) *Authorizer {
	return &Authorizer{chats: chats, users: users}
}

// IsMember reports whether userID holds an active membership in threadID.
func (a *Authorizer) IsMember(ctx context.Context, userID, threadID int) (bool, error) {
	ok, err := a.chats.IsMember(ctx, threadID, userID)
	if err != nil {
		return false, storageErr("is member", err)
	}
	return ok, nil
}

// Authorize returns ErrPermission unless userID is an active member. A
// missing thread is reported the same way.
func (a *Authorizer) Authorize(ctx context.Context, userID, threadID int) error {
	ok, err := a.IsMember(ctx, userID, threadID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermission
	}
	return nil
}

// FindOrCreateDirectThread returns the direct thread shared by both users,
// creating it when none exists.
func (a *Authorizer) FindOrCreateDirectThread(ctx context.Context, userID, otherID int) (models.ChatThread, bool, error) {
	if userID == otherID {
		return models.ChatThread{}, false, ErrSelfChat
	}

	exists, err := a.users.UserExists(ctx, otherID)
	if err != nil {
		return models.ChatThread{}, false, storageErr("user exists", err)
	}
	if !exists {
		return models.ChatThread{}, false, ErrNotFound
	}

	thread, err := a.chats.FindDirectChat(ctx, userID, otherID)
	switch {
	case err == nil:
		return thread, false, nil
	case !errors.Is(err, repositories.ErrChatNotFound):
		return models.ChatThread{}, false, storageErr("find direct chat", err)
	}

	thread, created, err := a.chats.CreateDirectChat(ctx, userID, otherID)
	if err != nil {
		return models.ChatThread{}, false, storageErr("create direct chat", err)
	}
	return thread, created, nil
}
