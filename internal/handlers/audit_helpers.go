package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-backend/internal/middleware"
	"chat-backend/internal/telemetry"
)

func requestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	id := c.GetHeader(middleware.RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, id)
	return id
}

func currentUser(c *gin.Context) int {
	return c.GetInt(middleware.UserIDKey)
}

func audit(c *gin.Context, emitter *telemetry.AuditEmitter, action, resource string, details map[string]any) {
	emitter.Emit(c.Request.Context(), requestID(c), currentUser(c), action, resource, details)
}
