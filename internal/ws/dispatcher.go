package ws

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chat-backend/internal/models"
	"chat-backend/internal/observability"
)

// DispatchStats summarizes one fan-out.
type DispatchStats struct {
	Recipients int
	Offline    int
	Delivered  int
	Failed     int
}

// Dispatcher pushes events to every live connection of a set of users.
type Dispatcher struct {
	registry *Registry
	log      *logrus.Logger
}

// NewDispatcher constructs a Dispatcher over registry.
func NewDispatcher(registry *Registry, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

// Dispatch delivers event to the recipients' live connections. Offline
// recipients are skipped. A failed send closes and unregisters that
// connection only; the remaining deliveries continue.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []int, event models.ChatEvent) DispatchStats {
	_, span := otel.Tracer("chat-backend/ws").Start(ctx, "ws.dispatch")
	defer span.End()

	var stats DispatchStats
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.WithError(err).WithField("event", event.Event).Error("encode realtime event")
		return stats
	}

	seen := make(map[int]struct{}, len(recipients))
	for _, userID := range recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		stats.Recipients++

		conns := d.registry.ConnectionsFor(userID)
		if len(conns) == 0 {
			stats.Offline++
			observability.IncOfflineRecipient()
			continue
		}
		for _, conn := range conns {
			err := conn.Send(payload)
			observability.ObservePush(event.Event, err)
			if err != nil {
				stats.Failed++
				d.log.WithError(err).WithFields(logrus.Fields{
					"user_id": userID,
					"conn_id": conn.ID(),
					"event":   event.Event,
				}).Warn("realtime push failed, dropping connection")
				_ = conn.Close()
				d.registry.Unregister(conn.ID())
				continue
			}
			stats.Delivered++
		}
	}

	span.SetAttributes(
		attribute.String("chat.event", event.Event),
		attribute.Int("chat.recipients", stats.Recipients),
		attribute.Int("chat.delivered", stats.Delivered),
		attribute.Int("chat.failed", stats.Failed),
	)
	return stats
}
