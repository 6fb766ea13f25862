package handlers

import (
	"io"
	"net/http"

	"servly/models"
	"servly/services/booking"
	"servly/services/realtime"
	"servly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventsHandler serves the real-time subscription endpoints as SSE
// streams. Delivery is at-most-once with no persistence; a client
// that reconnects is expected to reconcile through the REST queries
// before relying on the stream again.
type EventsHandler struct {
	Hub    *realtime.Hub
	Engine booking.BookingEngine
	Logger *zap.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(hub *realtime.Hub, engine booking.BookingEngine, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{Hub: hub, Engine: engine, Logger: logger}
}

// SubscribeBooking handles GET /api/events/booking/:id.
func (h *EventsHandler) SubscribeBooking(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	b, err := h.Engine.GetBooking(c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found", err.Error())
		return
	}
	if actor.Role != models.RoleAdmin && b.CustomerID != actor.ID && b.ProviderID != actor.ID {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "booking belongs to another party")
		return
	}
	h.stream(c, realtime.ChannelBooking, b.ID)
}

// SubscribeProvider handles GET /api/events/provider. Each provider
// listens on their own direct channel for targeted assignments and
// reassignment notices.
func (h *EventsHandler) SubscribeProvider(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if actor.Role != models.RoleProvider {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "provider channel requires a provider session")
		return
	}
	h.stream(c, realtime.ChannelProvider, actor.ID)
}

// SubscribePool handles GET /api/events/pool: new poolable bookings
// announced to every listening provider so they can race to claim.
func (h *EventsHandler) SubscribePool(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if actor.Role != models.RoleProvider {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "pool channel requires a provider session")
		return
	}
	h.stream(c, realtime.ChannelPool, "")
}

func (h *EventsHandler) stream(c *gin.Context, kind realtime.ChannelKind, id string) {
	sub := h.Hub.Subscribe(kind, id)
	defer h.Hub.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("transition", evt)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
