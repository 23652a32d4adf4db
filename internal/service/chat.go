package service

import (
	"context"
	"fmt"
	"strings"

	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
)

const MaxTitleLength = 100

// ChatService serves a user's view of their threads.
type ChatService struct {
	auth  *Authorizer
	chats repositories.ChatRepository
}

func NewChatService(auth *Authorizer, chats repositories.ChatRepository) *ChatService {
	return &ChatService{auth: auth, chats: chats}
}

// ListChats returns the threads userID is an active member of.
func (s *ChatService) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	chats, err := s.chats.ListChats(ctx, userID)
	if err != nil {
		return nil, storageErr("list chats", err)
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}
	return chats, nil
}

// UpdateTitle sets the title userID sees for the thread.
func (s *ChatService) UpdateTitle(ctx context.Context, userID, threadID int, title string) error {
	title = strings.TrimSpace(title)
	if len([]rune(title)) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if err := s.auth.Authorize(ctx, userID, threadID); err != nil {
		return err
	}
	ok, err := s.chats.UpdateTitle(ctx, threadID, userID, title)
	if err != nil {
		return storageErr("update title", err)
	}
	if !ok {
		return ErrPermission
	}
	return nil
}

// LeaveChat removes userID's membership. The thread and the other members
// are kept.
func (s *ChatService) LeaveChat(ctx context.Context, userID, threadID int) error {
	ok, err := s.chats.RemoveMember(ctx, threadID, userID)
	if err != nil {
		return storageErr("remove member", err)
	}
	if !ok {
		return ErrPermission
	}
	return nil
}
