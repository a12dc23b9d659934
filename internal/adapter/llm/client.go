// Package llm provides the chat completion and embedding backends used by the chat service.
package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when a provider answers without any completion.
var ErrNoChoices = errors.New("no response from model")

// Message is one entry of a completion prompt.
type Message struct {
	Role    string
	Content string
}

// Client defines the model operations needed for one chat turn.
type Client interface {
	// Complete returns the assistant reply for the given conversation.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Embed returns the embedding vector of text.
	Embed(ctx context.Context, text string) ([]float64, error)
}
