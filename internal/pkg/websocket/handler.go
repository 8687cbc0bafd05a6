package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RecipientFunc resolves the recipient key of the signed-in caller.
type RecipientFunc func(c *gin.Context) (string, bool)

// Handler upgrades notification socket requests
type Handler struct {
	hub     *Hub
	resolve RecipientFunc
	logger  zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, resolve RecipientFunc, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, resolve: resolve, logger: logger}
}

// HandleConnection upgrades the request and registers the connection under the
// caller's recipient key.
func (h *Handler) HandleConnection(c *gin.Context) {
	recipient, ok := h.resolve(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("recipient", recipient).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, 16),
		recipient: recipient,
		logger:    h.logger,
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Str("recipient", recipient).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
