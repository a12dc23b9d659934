// Package protocol defines the JSON envelopes exchanged between the chat client, the relay and the backend.
package protocol

import "encoding/json"

// Roles of a chat message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the relay request body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the success body returned by the backend and passed through by the relay.
type ChatResponse struct {
	Response  string    `json:"response"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// ErrorResponse is the failure body used by the relay and the backend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Frame is the reply sent on the relay WebSocket for each inbound request frame.
type Frame struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}
