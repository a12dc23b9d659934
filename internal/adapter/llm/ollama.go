package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const keepAlive = 60 * time.Minute

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	client         *api.Client
	chatModel      string
	embeddingModel string
}

// Ensure OllamaClient implements Client interface.
var _ Client = (*OllamaClient)(nil)

// NewOllamaClient creates a client for the server at baseURL.
// An empty baseURL falls back to OLLAMA_HOST.
func NewOllamaClient(baseURL, chatModel, embeddingModel string) (*OllamaClient, error) {
	var (
		cli *api.Client
		err error
	)
	if baseURL == "" {
		cli, err = api.ClientFromEnvironment()
	} else {
		var u *url.URL
		u, err = url.Parse(baseURL)
		if err == nil {
			cli = api.NewClient(u, http.DefaultClient)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}

	return &OllamaClient{
		client:         cli,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}, nil
}

// Complete runs a non-streaming chat request.
func (c *OllamaClient) Complete(ctx context.Context, messages []Message) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:     c.chatModel,
		Messages:  make([]api.Message, 0, len(messages)),
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: keepAlive},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, api.Message{Role: m.Role, Content: m.Content})
	}

	var reply string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return reply, nil
}

// Embed runs a blocking embedding request.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:     c.embeddingModel,
		Prompt:    text,
		KeepAlive: &api.Duration{Duration: keepAlive},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	return resp.Embedding, nil
}
