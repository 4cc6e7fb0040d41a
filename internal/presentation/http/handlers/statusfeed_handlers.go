package handlers

import (
	"net/http"

	"github.com/fady17/garagehub-go/internal/infrastructure/messaging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var statusFeedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatusFeedHandlers serves the websocket session status feed
type StatusFeedHandlers struct {
	broadcaster *messaging.StatusBroadcaster
	logger      *logging.ChanneledLogger
}

// NewStatusFeedHandlers creates status feed handlers
func NewStatusFeedHandlers(broadcaster *messaging.StatusBroadcaster, logger *logging.ChanneledLogger) *StatusFeedHandlers {
	return &StatusFeedHandlers{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Stream handles GET /api/session-status/feed
func (h *StatusFeedHandlers) Stream(c *gin.Context) {
	conn, err := statusFeedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.HTTP().Warn("Status feed upgrade failed", "error", err.Error())
		return
	}

	client := &messaging.StatusClient{
		Conn: conn,
		Send: make(chan []byte, 8),
	}
	h.broadcaster.Register(client)

	go h.writePump(client)
	h.readPump(client)
}

func (h *StatusFeedHandlers) writePump(client *messaging.StatusClient) {
	defer client.Conn.Close()
	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; its job is noticing the close.
func (h *StatusFeedHandlers) readPump(client *messaging.StatusClient) {
	defer h.broadcaster.Unregister(client)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
