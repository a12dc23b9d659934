package relayclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/embedchat/internal/protocol"
	"github.com/xiaot623/embedchat/pkg/logger"
)

// WSClient sends chat requests over a single relay WebSocket connection.
// Requests are serialized; each one waits for its reply frame.
type WSClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWS connects to the relay WebSocket endpoint.
func DialWS(ctx context.Context, addr string) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &WSClient{conn: conn}, nil
}

// Send writes one request frame and reads its reply frame.
func (c *WSClient) Send(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// zero deadline when ctx has none
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var frame protocol.Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}

	return decodeReply(frame.Status, frame.Body)
}

// Close sends a close frame and closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		logger.Debugf("close frame to relay failed: %v", err)
	}
	return c.conn.Close()
}
