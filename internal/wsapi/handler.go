package wsapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades /ws/telemetry requests to WebSocket connections and
// hands them to the Hub.
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// ServeHTTP implements http.Handler so it can be mounted directly on a
// gin route via gin.WrapH.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("telemetry websocket upgrade failed")
		return
	}
	client := NewClient(h.hub, conn)
	client.Start()
}
