package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/telemetry"
)

// writeTimeout bounds each broadcast write; a client that cannot keep up
// is dropped rather than stalling the rest.
const writeTimeout = 5 * time.Second

// Frame is one JSON message pushed to connected stream clients.
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans frames out to connected websocket clients. Clients are
// read-only consumers: inbound messages are drained and discarded, and a
// read error removes the client.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a hub. Requests without an Origin header (non-browser
// clients) are always accepted; browser origins must appear in
// allowedOrigins.
func NewHub(allowedOrigins []string, logger zerolog.Logger) *Hub {
	hub := &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			logger.Warn().Str("origin", origin).Msg("Rejected websocket origin")
			return false
		},
	}
	return hub
}

// HandleWebSocket upgrades the request and tracks the connection until
// the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	telemetry.StreamClients.Inc()

	h.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("Stream client connected")

	go func() {
		defer func() {
			h.remove(conn)
			h.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("Stream client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one frame to every connected client, dropping clients
// whose writes fail.
func (h *Hub) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error().Err(err).Str("type", frame.Type).Msg("Failed to marshal stream frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
			telemetry.StreamClients.Dec()
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
		telemetry.StreamClients.Dec()
	}
}

// remove drops a single connection, closing it if still tracked.
func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, tracked := h.clients[conn]
	if tracked {
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	if tracked {
		conn.Close()
		telemetry.StreamClients.Dec()
	}
}
