// Package repository persists per-session conversation history for the chat backend.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/embedchat/internal/config"
)

// ErrUnknownStore is returned by NewStore for an unsupported HISTORY_STORE value.
var ErrUnknownStore = errors.New("unknown history store")

// Entry is one stored conversation turn. System prompts are never stored.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps the most recent entries of each session.
// A session idle for longer than the TTL is forgotten.
type Store interface {
	// Append adds entries to the session, keeping only the newest ones.
	Append(ctx context.Context, sessionID string, entries ...Entry) error

	// History returns the session entries, oldest first. Unknown sessions are empty.
	History(ctx context.Context, sessionID string) ([]Entry, error)

	Close() error
}

// Limits bound what a Store retains.
type Limits struct {
	MaxEntries int
	TTL        time.Duration
}

func (l Limits) trim(entries []Entry) []Entry {
	if l.MaxEntries > 0 && len(entries) > l.MaxEntries {
		return entries[len(entries)-l.MaxEntries:]
	}
	return entries
}

// NewStore creates the Store selected by cfg.HistoryStore.
func NewStore(cfg config.BackendConfig) (Store, error) {
	limits := Limits{MaxEntries: cfg.HistoryMaxMessages, TTL: cfg.HistoryTTL}

	switch cfg.HistoryStore {
	case "memory", "":
		return NewMemoryStore(limits), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLiteDSN, limits)
	case "redis":
		return NewRedisStore(cfg.RedisURL, limits)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.HistoryStore)
	}
}
