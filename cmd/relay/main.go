// Command relay forwards chat requests from clients to the configured backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/embedchat/internal/config"
	"github.com/xiaot623/embedchat/internal/relay"
	transport "github.com/xiaot623/embedchat/internal/transport/http"
	"github.com/xiaot623/embedchat/internal/transport/ws"
	"github.com/xiaot623/embedchat/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	logger.Info("Starting relay...")
	logger.Infof("HTTP Port: %d", cfg.Relay.Port)
	if cfg.BackendURL() == "" {
		logger.Warnf("BACKEND_URL and NEXT_PUBLIC_API_URL are unset; requests fail until one is set")
	}

	r := relay.New(cfg.BackendURL, cfg.Relay.UpstreamTimeout)
	wsServer := ws.NewServer(r)
	server := transport.NewRelayServer(r, wsServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Relay.Port)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start relay: %v", err)
		}
	}()

	logger.Infof("Relay started on port %d", cfg.Relay.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down relay...")

	logger.Infof("Closing %d WebSocket connections", wsServer.Connections())
	wsServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Relay shutdown error: %v", err)
	}

	logger.Info("Relay stopped")
}
