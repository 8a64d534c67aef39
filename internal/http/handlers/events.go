package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	redisclient "github.com/upbeat-works/edgecms/internal/clients/redis"
	"github.com/upbeat-works/edgecms/internal/http/response"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

// ReleaseEventsHandler streams release events to editor UIs over SSE so
// they can refresh after a publish or rollback without polling the
// version table.
type ReleaseEventsHandler struct {
	log *logger.Logger
	bus redisclient.ReleaseEventBus
}

func NewReleaseEventsHandler(log *logger.Logger, bus redisclient.ReleaseEventBus) *ReleaseEventsHandler {
	return &ReleaseEventsHandler{
		log: log.With("handler", "ReleaseEventsHandler"),
		bus: bus,
	}
}

// GET /api/releases/events
func (h *ReleaseEventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	events := make(chan redisclient.ReleaseEvent, 16)
	err := h.bus.Subscribe(ctx, func(ev redisclient.ReleaseEvent) {
		select {
		case events <- ev:
		default:
			// Slow client; drop rather than block the bus.
		}
	})
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "subscribe_failed", err)
		return
	}

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent("release", ev)
			return true
		}
	})
}
