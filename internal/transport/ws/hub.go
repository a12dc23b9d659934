package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/embedchat/pkg/logger"
)

// Hub tracks open relay connections so they can be closed on shutdown.
type Hub struct {
	mu          sync.Mutex
	connections map[string]*websocket.Conn
	closed      bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register adds conn and returns its ID. It returns false once the hub is closed.
func (h *Hub) Register(conn *websocket.Conn) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", false
	}
	id := "conn_" + uuid.New().String()[:8]
	h.connections[id] = conn
	logger.Debugf("Connection registered: %s", id)
	return id, true
}

// Unregister removes a connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[id]; ok {
		delete(h.connections, id)
		logger.Debugf("Connection unregistered: %s", id)
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// CloseAll sends a going-away close frame to every connection and refuses new ones.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	conns := h.connections
	h.connections = make(map[string]*websocket.Conn)
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down")
	for id, conn := range conns {
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			logger.Debugf("close frame to %s failed: %v", id, err)
		}
		conn.Close()
	}
}
