// Package ws exposes the forwarding relay over WebSocket.
// Each inbound text frame is one relay request body; each reply is a protocol.Frame.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/embedchat/internal/protocol"
	"github.com/xiaot623/embedchat/internal/relay"
	"github.com/xiaot623/embedchat/pkg/logger"
)

const (
	maxMessageSize = 65536
	writeTimeout   = 10 * time.Second
)

// Forwarder relays one request body and normalizes the outcome.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) relay.Result
}

// Server handles relay WebSocket connections.
type Server struct {
	relay    Forwarder
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(r Forwarder) *Server {
	return &Server{
		relay: r,
		hub:   NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the connection and serves frames until the peer disconnects.
// GET /ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warnf("failed to upgrade WebSocket: %v", err)
		return err
	}
	defer conn.Close()

	id, ok := s.hub.Register(conn)
	if !ok {
		return nil
	}
	defer s.hub.Unregister(id)

	conn.SetReadLimit(maxMessageSize)
	s.serve(c.Request().Context(), conn)
	return nil
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	return s.hub.Count()
}

// Shutdown closes every open connection. The HTTP server does not track upgraded connections.
func (s *Server) Shutdown() {
	s.hub.CloseAll()
}

// serve handles frames one at a time, so replies keep request order.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("WebSocket read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		res := s.relay.Forward(ctx, data)
		frame, err := json.Marshal(protocol.Frame{Status: res.Status, Body: res.Body})
		if err != nil {
			logger.Errorf("failed to marshal frame: %v", err)
			return
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Warnf("failed to write frame: %v", err)
			return
		}
	}
}
