package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rushdelivery/rush-core/internal/infrastructure/config"
	"github.com/rushdelivery/rush-core/internal/infrastructure/logging"
)

// sendBufferSize is the per-client outbound queue. A client whose queue
// fills up is disconnected rather than allowed to stall the broadcast.
const sendBufferSize = 256

// wsEvent is the wire envelope for every frame pushed to clients.
type wsEvent struct {
	Type              string `json:"type"`
	Timestamp         string `json:"timestamp"`
	Data              any    `json:"data,omitempty"`
	ActiveConnections int    `json:"active_connections,omitempty"`
}

// Hub tracks connected WebSocket clients and fans events out to all of
// them. Registration, unregistration and broadcast are safe to call
// concurrently.
type Hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	closed  bool

	cfg    config.WebSocketConfig
	logger *logging.Logger
}

// NewHub creates a hub with no connected clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*WSClient]struct{}),
		cfg:     cfg,
		logger:  logger,
	}
}

// Register adds a client to the broadcast set.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(client.send)
		return
	}
	h.clients[client] = struct{}{}
	h.logger.Debug("websocket client registered", "clients", len(h.clients))
}

// Unregister removes a client and closes its send channel. Safe to call
// more than once for the same client.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Debug("websocket client unregistered", "clients", len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast marshals an event frame and queues it on every connected
// client. Snapshot the client set first so slow clients never hold the
// hub lock.
func (h *Hub) Broadcast(eventType string, data any) {
	h.broadcastFrame(wsEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// BroadcastHeartbeat pushes a liveness frame carrying the current
// connection count.
func (h *Hub) BroadcastHeartbeat() {
	h.broadcastFrame(wsEvent{
		Type:              "heartbeat",
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		ActiveConnections: h.ClientCount(),
	})
}

func (h *Hub) broadcastFrame(frame wsEvent) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal websocket frame", "type", frame.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.trySend(payload)
	}
}

// Close disconnects every client and rejects future registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// WSClient is a single WebSocket connection managed by the hub.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	dropOnce sync.Once
}

// NewWSClient wraps an upgraded connection.
func NewWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// trySend queues a frame without blocking. A full queue means the client
// cannot keep up, so it is dropped.
//
// Unregister can close the send channel between the broadcast snapshot
// and this send; recover turns that race into a no-op instead of taking
// down the broadcaster.
func (c *WSClient) trySend(payload []byte) {
	defer func() {
		recover() //nolint:errcheck // send on closed channel: client already gone
	}()

	select {
	case c.send <- payload:
	default:
		c.dropOnce.Do(func() {
			c.hub.logger.Warn("dropping slow websocket client")
			go func() {
				c.hub.Unregister(c)
				c.conn.Close()
			}()
		})
	}
}

// readPump drains inbound frames and enforces pong deadlines. Inbound
// payloads are discarded; the feed is one-way.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	pongTimeout := time.Duration(c.hub.cfg.PongTimeout) * time.Second
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

// writePump forwards queued frames to the connection and keeps it alive
// with pings.
func (c *WSClient) writePump() {
	pingInterval := time.Duration(c.hub.cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser dashboards connect cross-origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleDashboardWS upgrades the connection and attaches it to the live
// event feed.
func (s *Server) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r)
}

// handleTrackingWS serves the per-parcel feed. The tracking ID in the
// path is accepted as a client hint; every client currently receives the
// full event stream and filters locally.
func (s *Server) handleTrackingWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := NewWSClient(s.hub, conn)
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}
