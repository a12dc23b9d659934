package llm

import (
	"fmt"

	"github.com/xiaot623/embedchat/internal/config"
	"github.com/xiaot623/embedchat/pkg/logger"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// NewClient creates the Client selected by cfg.Provider.
func NewClient(cfg config.BackendConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderMock:
		logger.Info("LLM_PROVIDER=mock detected, using mock LLM client")
		return NewMockClient(), nil
	case ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.ChatModel, cfg.EmbeddingModel)
	case ProviderAzure:
		return NewAzureClient(cfg.APIKey, cfg.BaseURL, cfg.APIVersion, cfg.ChatModel, cfg.EmbeddingModel), nil
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.ChatModel, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// RequiresAPIKey reports whether provider cannot serve requests without an API key.
func RequiresAPIKey(provider string) bool {
	switch provider {
	case ProviderMock, ProviderOllama:
		return false
	default:
		return true
	}
}
