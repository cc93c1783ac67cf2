package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/assetpulse/assetpulse-core/internal/metrics"
	"github.com/assetpulse/assetpulse-core/pkg/types"
)

// defaultOrigins are the development dashboard origins permitted when no
// allow list is configured.
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// newUpgrader builds a WebSocket upgrader whose origin check honors the
// configured allow list. An empty list falls back to development
// origins, "*" allows everything, and requests without an Origin header
// (non-browser clients) are always allowed.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := allowedOrigins
	if len(allowed) == 0 {
		allowed = defaultOrigins
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || strings.EqualFold(a, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Hub fans live stream messages out to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan types.StreamMessage
	// assetID filters the feed; empty means all assets.
	assetID string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Broadcast delivers a message to every subscriber whose filter matches.
// Slow clients are skipped rather than blocking the ingest path.
func (h *Hub) Broadcast(msg types.StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.assetID != "" && msg.AssetID != "" && c.assetID != msg.AssetID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// Client buffer full, drop the message for this client
		}
	}
}

// ClientCount returns how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WebSocketConnections.Inc()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		metrics.WebSocketConnections.Dec()
	}
}

// handleStream upgrades the connection and streams reports and
// condition events as they happen. An optional asset_id query parameter
// narrows the feed to one asset.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	upgrader := newUpgrader(s.config.Server.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:    conn,
		send:    make(chan types.StreamMessage, 64),
		assetID: r.URL.Query().Get("asset_id"),
	}

	s.hub.register(client)
	s.logger.Info("websocket client connected", zap.String("asset_filter", client.assetID))

	go s.writePump(client)
	s.readPump(client)
}

// writePump drains the client's send channel and emits heartbeats so
// idle connections stay alive through proxies.
func (s *Server) writePump(c *wsClient) {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
			metrics.WebSocketMessagesTotal.WithLabelValues("outbound").Inc()

		case <-heartbeat.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(types.StreamMessage{
				Type:      "heartbeat",
				Timestamp: time.Now().UTC(),
			}); err != nil {
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// readPump discards client messages and detects disconnects.
func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
		s.logger.Info("websocket client disconnected")
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		metrics.WebSocketMessagesTotal.WithLabelValues("inbound").Inc()
	}
}
