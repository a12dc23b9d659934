// Package http builds the echo servers for the relay and the backend.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/embedchat/internal/relay"
	"github.com/xiaot623/embedchat/internal/service"
	"github.com/xiaot623/embedchat/internal/transport/http/chat"
	"github.com/xiaot623/embedchat/internal/transport/http/proxy"
	"github.com/xiaot623/embedchat/internal/transport/ws"
	"github.com/xiaot623/embedchat/pkg/logger"
)

// NewRelayServer creates the client-facing relay server.
// It serves POST /api/chat, GET /ws and GET /health.
func NewRelayServer(r *relay.Relay, wsServer *ws.Server) *echo.Echo {
	e := newEcho()
	e.Use(middleware.CORS())

	proxy.NewHandler(r).RegisterRoutes(e)
	e.GET("/ws", wsServer.HandleWebSocket)

	return e
}

// NewBackendServer creates the chat backend server.
func NewBackendServer(svc *service.ChatService) *echo.Echo {
	e := newEcho()
	e.Use(middleware.CORS())

	chat.NewHandler(svc).RegisterRoutes(e)

	return e
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(logger.Logger().WriterLevel(logrus.ErrorLevel))

	// Access logs go through the shared logger so they follow its level and output.
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Output: logger.Logger().Writer(),
	}))
	e.Use(middleware.Recover())

	return e
}
