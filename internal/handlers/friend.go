package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chat-backend/internal/service"
	"chat-backend/internal/telemetry"
)

// FriendHandler serves friends and user lookups.
type FriendHandler struct {
	friends *service.FriendService
	audit   *telemetry.AuditEmitter
	log     *logrus.Logger
}

func NewFriendHandler(friends *service.FriendService, audit *telemetry.AuditEmitter, log *logrus.Logger) *FriendHandler {
	return &FriendHandler{friends: friends, audit: audit, log: log}
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	friends, err := h.friends.ListFriends(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", friends)
}

func (h *FriendHandler) AddFriend(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required,gt=0"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.friends.AddFriend(c.Request.Context(), currentUser(c), req.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	audit(c, h.audit, "friend.add", "user:"+strconv.Itoa(req.UserID), nil)
	respond(c, http.StatusCreated, "friend added", nil)
}

func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	friendID, err := pathID(c, "user_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.friends.RemoveFriend(c.Request.Context(), currentUser(c), friendID); err != nil {
		respondError(c, h.log, err)
		return
	}
	audit(c, h.audit, "friend.remove", "user:"+strconv.Itoa(friendID), nil)
	respond(c, http.StatusCreated, "friend removed", nil)
}

// GetUser returns another user's public profile.
func (h *FriendHandler) GetUser(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	user, err := h.friends.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

// UpdateProfile edits the caller's own name and image path.
func (h *FriendHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name      *string `json:"name"`
		ImagePath *string `json:"image_path"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	user, err := h.friends.UpdateProfile(c.Request.Context(), currentUser(c), req.Name, req.ImagePath)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	audit(c, h.audit, "user.update", "user:"+strconv.Itoa(user.ID), nil)
	respond(c, http.StatusCreated, "profile updated", user)
}
