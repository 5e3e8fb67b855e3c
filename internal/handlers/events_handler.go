package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
)

const eventWriteTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// EventStreamHandler streams the engine events of one session over a
// websocket: finished attempts, autosave error changes and offline
// fallbacks.
type EventStreamHandler struct {
	BaseHandler
	manager    *services.SessionManager
	subscriber events.Subscriber
	upgrader   websocket.Upgrader
}

// NewEventStreamHandler takes the in-process subscriber; nil disables the
// stream.
func NewEventStreamHandler(
	manager *services.SessionManager,
	subscriber events.Subscriber,
	allowedOrigins []string,
	logger utils.Logger,
) *EventStreamHandler {
	return &EventStreamHandler{
		BaseHandler: NewBaseHandler(logger),
		manager:     manager,
		subscriber:  subscriber,
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// StreamSessionEvents upgrades to a websocket and forwards the session events
// WS /api/v1/sessions/:id/events
func (h *EventStreamHandler) StreamSessionEvents(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if h.subscriber == nil {
		h.RespondWithError(c, http.StatusNotImplemented, "Event streaming is not enabled", nil)
		return
	}

	if _, err := h.manager.Get(id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// subscribe before the upgrade so nothing published after the handshake is missed
	messages, err := h.subscriber.Subscribe(ctx, h.subscriber.Topic())
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to subscribe to events", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.LogError(c, err, "WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.LogInfo(c, "Event stream connected")

	// the client never sends anything; reading detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.LogInfo(c, "Event stream closed")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := events.DecodeEvent(msg)
			msg.Ack()
			if err != nil {
				h.LogWarn(c, "Dropping undecodable event", "error", err)
				continue
			}
			if event.SessionID != id {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.LogWarn(c, "Event stream write failed", "error", err)
				}
				return
			}
		}
	}
}
