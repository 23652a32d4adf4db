package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
)

// FriendService manages the symmetric friends relation and user lookups.
type FriendService struct {
	friends repositories.FriendRepository
	users   repositories.UserRepository
}

func NewFriendService(friends repositories.FriendRepository, users repositories.UserRepository) *FriendService {
	return &FriendService{friends: friends, users: users}
}

func (s *FriendService) ListFriends(ctx context.Context, userID int) ([]models.PublicUser, error) {
	friends, err := s.friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, storageErr("list friends", err)
	}
	if friends == nil {
		friends = []models.PublicUser{}
	}
	return friends, nil
}

// AddFriend befriends friendID. Adding an existing friend succeeds.
func (s *FriendService) AddFriend(ctx context.Context, userID, friendID int) error {
	if userID == friendID {
		return ErrSelfFriend
	}
	exists, err := s.users.UserExists(ctx, friendID)
	if err != nil {
		return storageErr("user exists", err)
	}
	if !exists {
		return ErrNotFound
	}
	if err := s.friends.AddFriend(ctx, userID, friendID); err != nil {
		return storageErr("add friend", err)
	}
	return nil
}

func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID int) error {
	ok, err := s.friends.RemoveFriend(ctx, userID, friendID)
	if err != nil {
		return storageErr("remove friend", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// GetUser returns the public projection of a user.
func (s *FriendService) GetUser(ctx context.Context, userID int) (models.PublicUser, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.PublicUser{}, ErrNotFound
	}
	if err != nil {
		return models.PublicUser{}, storageErr("get user", err)
	}
	return user.Public(), nil
}

const (
	MaxNameLength      = 64
	MaxImagePathLength = 255
)

// UpdateProfile changes the caller's name and/or image path. Absent or blank
// fields keep their current value.
func (s *FriendService) UpdateProfile(ctx context.Context, userID int, name, imagePath *string) (models.PublicUser, error) {
	name, imagePath = trimmedOrNil(name), trimmedOrNil(imagePath)
	if name == nil && imagePath == nil {
		return models.PublicUser{}, fmt.Errorf("%w: name or image_path is required", ErrValidation)
	}
	if name != nil && utf8.RuneCountInString(*name) > MaxNameLength {
		return models.PublicUser{}, fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}
	if imagePath != nil && len(*imagePath) > MaxImagePathLength {
		return models.PublicUser{}, fmt.Errorf("%w: image_path exceeds %d characters", ErrValidation, MaxImagePathLength)
	}

	user, err := s.users.UpdateProfile(ctx, userID, name, imagePath)
	if err != nil {
		return models.PublicUser{}, storageErr("update profile", err)
	}
	return user.Public(), nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
