// Package service implements the chat backend: one embedding plus one completion per turn
// over a bounded per-session history.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/embedchat/internal/adapter/llm"
	"github.com/xiaot623/embedchat/internal/policy"
	"github.com/xiaot623/embedchat/internal/protocol"
	"github.com/xiaot623/embedchat/internal/repository"
	"github.com/xiaot623/embedchat/pkg/logger"
)

var (
	// ErrNotConfigured is returned when the provider needs an API key and none is set.
	ErrNotConfigured = errors.New("LLM API key not configured")
	// ErrRejected wraps the reason the input guard gave.
	ErrRejected = errors.New("message rejected")
)

// Guard admits or rejects a chat message.
type Guard interface {
	Evaluate(ctx context.Context, sessionID, message string) (policy.Decision, error)
}

// Options tune a ChatService.
type Options struct {
	SystemPrompt string
	// MaxHistory bounds the non-system messages sent to the model.
	MaxHistory int
	// Configured is false when the provider lacks credentials.
	Configured bool
}

// ChatService answers chat turns.
type ChatService struct {
	llm   llm.Client
	store repository.Store
	guard Guard
	opts  Options
}

// NewChatService creates a chat service. guard may be nil.
func NewChatService(client llm.Client, store repository.Store, guard Guard, opts Options) *ChatService {
	return &ChatService{
		llm:   client,
		store: store,
		guard: guard,
		opts:  opts,
	}
}

// Chat embeds message, completes it over the session history and records the turn.
// The turn is only stored when both model calls succeed.
func (s *ChatService) Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	requestID := "chat_" + uuid.New().String()[:8]
	log := logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": req.SessionID,
	})
	log.Debugf("processing chat request: %s", truncate(req.Message, 50))

	if !s.opts.Configured {
		log.Error("LLM API key is missing")
		return nil, ErrNotConfigured
	}

	if s.guard != nil {
		decision, err := s.guard.Evaluate(ctx, req.SessionID, req.Message)
		if err != nil {
			return nil, fmt.Errorf("input guard: %w", err)
		}
		if !decision.Allow {
			log.Infof("message rejected: %s", decision.Reason)
			return nil, fmt.Errorf("%w: %s", ErrRejected, decision.Reason)
		}
	}

	startTime := time.Now()
	embedding, err := s.llm.Embed(ctx, req.Message)
	if err != nil {
		log.Errorf("embedding failed: %v", err)
		return nil, err
	}

	history, err := s.store.History(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	prompt := s.buildPrompt(history, req.Message)
	log.Debugf("sending %d messages to LLM", len(prompt))

	content, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Errorf("completion failed: %v", err)
		return nil, err
	}

	if err := s.store.Append(ctx, req.SessionID,
		repository.Entry{Role: protocol.RoleUser, Content: req.Message},
		repository.Entry{Role: protocol.RoleAssistant, Content: content},
	); err != nil {
		// The reply is still returned; only the history lags behind.
		log.Warnf("failed to save history: %v", err)
	}

	log.Infof("chat turn done in %dms, embedding dim %d", time.Since(startTime).Milliseconds(), len(embedding))
	return &protocol.ChatResponse{Response: content, Embedding: embedding}, nil
}

// buildPrompt returns the system prompt followed by the newest MaxHistory messages ending with message.
func (s *ChatService) buildPrompt(history []repository.Entry, message string) []llm.Message {
	turns := make([]llm.Message, 0, len(history)+1)
	for _, e := range history {
		turns = append(turns, llm.Message{Role: e.Role, Content: e.Content})
	}
	turns = append(turns, llm.Message{Role: protocol.RoleUser, Content: message})
	if s.opts.MaxHistory > 0 && len(turns) > s.opts.MaxHistory {
		turns = turns[len(turns)-s.opts.MaxHistory:]
	}

	prompt := make([]llm.Message, 0, len(turns)+1)
	if s.opts.SystemPrompt != "" {
		prompt = append(prompt, llm.Message{Role: protocol.RoleSystem, Content: s.opts.SystemPrompt})
	}
	return append(prompt, turns...)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
