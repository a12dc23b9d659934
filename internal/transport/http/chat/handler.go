// Package chat serves the backend chat API.
package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/embedchat/internal/protocol"
	"github.com/xiaot623/embedchat/internal/service"
)

// DefaultSessionID is used when a request carries no session_id.
const DefaultSessionID = "default"

// Chatter answers one chat turn.
type Chatter interface {
	Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error)
}

// Handler handles backend chat HTTP requests.
type Handler struct {
	service Chatter
}

// NewHandler creates a new chat handler.
func NewHandler(service Chatter) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers backend routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/chat", h.Chat)
	e.GET("/health", h.Health)
}

// Chat answers one turn.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req protocol.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, protocol.ErrorResponse{Detail: "invalid request body"})
	}
	if req.SessionID == "" {
		req.SessionID = DefaultSessionID
	}

	resp, err := h.service.Chat(c.Request().Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRejected) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, protocol.ErrorResponse{Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
