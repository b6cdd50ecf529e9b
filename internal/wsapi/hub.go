// Package wsapi adapts the teacher's workflow-execution WebSocket hub
// (internal/infrastructure/websocket) into a single-stream telemetry
// broadcaster: every connected client receives every domain.
// DecisionLogRecord emitted by internal/telemetry.Sink, rather than the
// teacher's per-workflow/per-execution subscription routing, since
// spec.md's discovery traces have no equivalent per-request audience to
// route by.
package wsapi

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/toolgraph/shgat/internal/domain"
)

// Hub manages connected telemetry clients and fans out every record it
// receives to all of them.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.DecisionLogRecord

	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewHub creates a Hub. Call Run in a goroutine before use.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.DecisionLogRecord, 256),
		logger:     logger,
	}
}

// Run is the hub's event loop. It never returns; callers start it once
// in a goroutine and simply stop sending once the server shuts down.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug().Int("clients", len(h.clients)).Msg("telemetry client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug().Int("clients", len(h.clients)).Msg("telemetry client disconnected")

		case rec := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- rec:
				default:
					h.logger.Warn().Msg("telemetry client send buffer full, dropping frame")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues rec for delivery to every connected client.
func (h *Hub) Broadcast(rec domain.DecisionLogRecord) {
	select {
	case h.broadcast <- rec:
	default:
		h.logger.Warn().Msg("telemetry hub broadcast queue full, dropping frame")
	}
}

// Register adds a client to the hub; Client.Start calls it after the
// connection is upgraded and before the client's pumps start.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client, called from the client's own pumps on
// disconnect.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Pump forwards every record received on records (for example the channel
// internal/telemetry.Sink's Subscribe returns) to the hub's broadcast
// queue until that channel is closed, which Sink's unsubscribe func does.
func Pump(h *Hub, records <-chan domain.DecisionLogRecord) {
	go func() {
		for rec := range records {
			h.Broadcast(rec)
		}
	}()
}
