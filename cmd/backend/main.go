// Command backend answers chat turns with an embedding and a completion.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/embedchat/internal/adapter/llm"
	"github.com/xiaot623/embedchat/internal/config"
	"github.com/xiaot623/embedchat/internal/policy"
	"github.com/xiaot623/embedchat/internal/repository"
	"github.com/xiaot623/embedchat/internal/service"
	transport "github.com/xiaot623/embedchat/internal/transport/http"
	"github.com/xiaot623/embedchat/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	logger.Info("Starting backend...")
	logger.Infof("HTTP Port: %d", cfg.Backend.Port)
	logger.Infof("LLM provider: %s (chat %s, embedding %s)", cfg.Backend.Provider, cfg.Backend.ChatModel, cfg.Backend.EmbeddingModel)
	logger.Infof("History store: %s", cfg.Backend.HistoryStore)

	configured := cfg.Backend.APIKey != "" || !llm.RequiresAPIKey(cfg.Backend.Provider)
	if !configured {
		logger.Warnf("No LLM API key set; /chat answers 500 until LLM_API_KEY is configured")
	}

	llmClient, err := llm.NewClient(cfg.Backend)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM client: %v", err)
	}

	store, err := repository.NewStore(cfg.Backend)
	if err != nil {
		logger.Fatalf("Failed to initialize history store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	guard, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.Backend.MaxMessageChars)
	if err != nil {
		logger.Fatalf("Failed to initialize policy engine: %v", err)
	}

	svc := service.NewChatService(llmClient, store, guard, service.Options{
		SystemPrompt: cfg.Backend.SystemPrompt,
		MaxHistory:   cfg.Backend.HistoryMaxMessages,
		Configured:   configured,
	})
	server := transport.NewBackendServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Backend.Port)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start backend: %v", err)
		}
	}()

	logger.Infof("Backend started on port %d", cfg.Backend.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down backend...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Backend shutdown error: %v", err)
	}

	logger.Info("Backend stopped")
}
