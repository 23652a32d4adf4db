package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"chat-backend/internal/auth"
	"chat-backend/internal/models"
	"chat-backend/internal/observability"
)

// EventConnected is the first frame on a new connection.
const EventConnected = "connected"

// Handler upgrades authenticated requests and keeps the registry in sync
// with the connection lifecycle.
type Handler struct {
	registry   *Registry
	auth       auth.TokenValidator
	log        *logrus.Logger
	sendBuffer int
	upgrader   websocket.Upgrader
}

// NewHandler constructs a Handler.
func NewHandler(registry *Registry, validator auth.TokenValidator, log *logrus.Logger, sendBuffer int) *Handler {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Handler{
		registry:   registry,
		auth:       validator,
		log:        log,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle authenticates the handshake, upgrades and registers the connection.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-backend/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.authenticate(ctx, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.Envelope{Success: false, Message: "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Debug("websocket upgrade failed")
		return
	}

	info := newConnInfo(c, userID, span.SpanContext().TraceID().String())
	client := newClient(conn, info, h.sendBuffer)
	h.registry.Register(userID, client)

	// Lifecycle events outlive the handshake request.
	bg := context.WithoutCancel(ctx)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publish(bg, info, "ws_connect", "")
	h.log.WithFields(logrus.Fields{"user_id": userID, "conn_id": info.ConnID, "ip": info.IP}).Info("realtime connection opened")

	hello, _ := json.Marshal(models.ChatEvent{
		Event: EventConnected,
		Data:  map[string]interface{}{"connection_id": info.ConnID, "user_id": userID},
	})
	_ = client.Send(hello)

	go client.writePump()
	go func() {
		err := client.readPump()

		h.registry.Unregister(client.ID())
		client.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")

		reason := err.Error()
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			observability.IncWSEvent("ws_error")
			h.publish(bg, info, "ws_error", reason)
		}
		h.publish(bg, info, "ws_disconnect", reason)
		h.log.WithFields(logrus.Fields{"user_id": userID, "conn_id": info.ConnID, "reason": reason}).Info("realtime connection closed")
	}()
}

func (h *Handler) authenticate(ctx context.Context, c *gin.Context) (int, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return 0, auth.ErrInvalidToken
		}
		token = parts[1]
	}
	if token == "" {
		return 0, auth.ErrInvalidToken
	}
	return h.auth.ValidateToken(ctx, token)
}

func (h *Handler) publish(ctx context.Context, info ConnInfo, event, reason string) {
	err := observability.PublishEvent(ctx, observability.RoutingWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   info.eventPayload(event, reason),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	if err != nil {
		h.log.WithError(err).WithField("event", event).Debug("publish ws event failed")
	}
}
