package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// ConnectionCounter reports the number of live realtime connections.
type ConnectionCounter interface {
	Len() int
}

// Health reports database reachability and the live connection count.
func Health(db Pinger, conns ConnectionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, dbState := http.StatusOK, "ok"
		if err := db.PingContext(ctx); err != nil {
			status, dbState = http.StatusServiceUnavailable, "unreachable"
		}
		c.JSON(status, gin.H{
			"database":    dbState,
			"connections": conns.Len(),
		})
	}
}
