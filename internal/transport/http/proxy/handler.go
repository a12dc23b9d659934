// Package proxy exposes the forwarding relay over HTTP.
package proxy

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/embedchat/internal/relay"
)

// Forwarder relays one request body and normalizes the outcome.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) relay.Result
}

// Handler handles relay HTTP requests.
type Handler struct {
	relay Forwarder
}

// NewHandler creates a new relay handler.
func NewHandler(r Forwarder) *Handler {
	return &Handler{relay: r}
}

// RegisterRoutes registers relay routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat", h.Chat)
	e.GET("/health", h.Health)
}

// Chat relays a chat request to the backend.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}

	res := h.relay.Forward(c.Request().Context(), body)
	return c.JSONBlob(res.Status, res.Body)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
