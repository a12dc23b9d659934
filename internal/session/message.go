// Package session implements the chat session client: an append-only message
// log, a busy flag and one relay request per user turn.
package session

import (
	"github.com/google/uuid"

	"github.com/xiaot623/embedchat/internal/protocol"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = protocol.RoleUser
	RoleAssistant Role = protocol.RoleAssistant
)

// Message is one entry of the log. Embedding is nil for user turns and for failed turns.
type Message struct {
	Role      Role
	Content   string
	Embedding []float64
}

// HasEmbedding reports whether the message carries a vector.
func (m Message) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return "sess_" + uuid.New().String()[:8]
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

func cloneMessage(m Message) Message {
	m.Embedding = cloneVector(m.Embedding)
	return m
}
