package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chat-backend/internal/service"
	"chat-backend/internal/telemetry"
)

// ChatHandler serves threads and their messages.
type ChatHandler struct {
	auth     *service.Authorizer
	chats    *service.ChatService
	messages *service.MessageService
	audit    *telemetry.AuditEmitter
	log      *logrus.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(auth *service.Authorizer, chats *service.ChatService, messages *service.MessageService, audit *telemetry.AuditEmitter, log *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		auth:     auth,
		chats:    chats,
		messages: messages,
		audit:    audit,
		log:      log,
	}
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", chats)
}

// StartChat returns the direct chat with another user, creating it first
// when needed.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required,gt=0"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	thread, created, err := h.auth.FindOrCreateDirectThread(c.Request.Context(), currentUser(c), req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !created {
		respond(c, http.StatusOK, "chat already exists", thread)
		return
	}

	audit(c, h.audit, "chat.create", "chat:"+strconv.Itoa(thread.ID), map[string]any{"other_user_id": req.UserID})
	respond(c, http.StatusCreated, "chat created", thread)
}

// UpdateTitle sets the caller's title for a chat.
func (h *ChatHandler) UpdateTitle(c *gin.Context) {
	chatID, err := pathID(c, "chat_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req struct {
		Title string `json:"title" binding:"max=100"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.chats.UpdateTitle(c.Request.Context(), currentUser(c), chatID, req.Title); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "title updated", nil)
}

// LeaveChat removes the caller from a chat.
func (h *ChatHandler) LeaveChat(c *gin.Context) {
	chatID, err := pathID(c, "chat_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.chats.LeaveChat(c.Request.Context(), currentUser(c), chatID); err != nil {
		respondError(c, h.log, err)
		return
	}
	audit(c, h.audit, "chat.leave", "chat:"+strconv.Itoa(chatID), nil)
	respond(c, http.StatusCreated, "left chat", nil)
}

// GetChatMessages returns one page of messages, newest first.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := pathID(c, "chat_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var before *int
	if raw := c.Query("before"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			fail(c, http.StatusBadRequest, "invalid before")
			return
		}
		before = &id
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), currentUser(c), chatID, before)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", msgs)
}

// PostChatMessage stores a message and pushes it to the other members.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, err := pathID(c, "chat_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req struct {
		Content   *string `json:"content"`
		ImagePath *string `json:"image_path"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), currentUser(c), chatID, req.Content, req.ImagePath)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "message created", msg)
}

// DeleteMessage soft-deletes one of the caller's messages.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, err := pathID(c, "message_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.messages.DeleteMessage(c.Request.Context(), currentUser(c), messageID); err != nil {
		respondError(c, h.log, err)
		return
	}
	audit(c, h.audit, "message.delete", "message:"+strconv.Itoa(messageID), nil)
	respond(c, http.StatusCreated, "message deleted", nil)
}
