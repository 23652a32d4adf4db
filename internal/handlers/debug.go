package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, conns ConnectionCounter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			fail(c, http.StatusServiceUnavailable, "audit emitter not configured")
			return
		}
		audit(c, emitter, "debug.audit_test", "service", nil)
		respond(c, http.StatusOK, "audit event sent", nil)
	})

	router.GET("/debug/connections", func(c *gin.Context) {
		respond(c, http.StatusOK, "", gin.H{"connections": conns.Len()})
	})
}
