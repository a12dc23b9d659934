package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/embedchat/internal/protocol"
	"github.com/xiaot623/embedchat/pkg/logger"
)

// Transport delivers one chat request to the relay.
type Transport interface {
	Send(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error)
}

// Outcome reports what SendTurn did.
type Outcome int

const (
	// OutcomeIgnored means the text was blank; nothing changed.
	OutcomeIgnored Outcome = iota
	// OutcomeBusy means a turn was already in flight; nothing changed.
	OutcomeBusy
	// OutcomeAnswered means the assistant reply was appended.
	OutcomeAnswered
	// OutcomeFailed means an "Error: " assistant message was appended.
	OutcomeFailed
)

var errNoReply = errors.New("empty response from relay")

const noSelection = -1

// Option configures a Client.
type Option func(*Client)

// WithObserver registers fn to be called after every state change.
// Observers run outside the client lock and may read the client.
func WithObserver(fn func()) Option {
	return func(c *Client) {
		c.observers = append(c.observers, fn)
	}
}

// Client is a chat session. At most one request is in flight at a time.
type Client struct {
	sessionID string
	transport Transport
	observers []func()

	mu       sync.Mutex
	phase    Phase
	log      []Message
	input    string
	expanded int
}

// NewClient creates a session client bound to sessionID for its whole lifetime.
func NewClient(sessionID string, transport Transport, opts ...Option) *Client {
	c := &Client{
		sessionID: sessionID,
		transport: transport,
		expanded:  noSelection,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendTurn sends userText as one turn and appends the reply, or an error message, to the log.
// It never returns an error; failures become assistant messages prefixed with "Error: ".
func (c *Client) SendTurn(ctx context.Context, userText string) (outcome Outcome) {
	req, outcome, ok := c.begin(userText)
	if !ok {
		return outcome
	}

	ev := Event(Failed{Err: errNoReply})
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("chat turn panicked: %v", r)
			ev = Failed{Err: fmt.Errorf("%v", r)}
		}
		outcome = OutcomeAnswered
		if _, failed := ev.(Failed); failed {
			outcome = OutcomeFailed
		}
		c.apply(ev)
	}()

	reply, err := c.transport.Send(ctx, req)
	switch {
	case err != nil:
		logger.Warnf("chat turn failed for session %s: %v", c.sessionID, err)
		ev = Failed{Err: err}
	case reply == nil:
		ev = Failed{Err: errNoReply}
	default:
		ev = Replied{Reply: *reply}
	}
	return outcome
}

// Submit sends the current input buffer.
func (c *Client) Submit(ctx context.Context) Outcome {
	return c.SendTurn(ctx, c.Input())
}

// begin checks and sets the busy flag atomically and records the user message.
func (c *Client) begin(text string) (protocol.ChatRequest, Outcome, bool) {
	if strings.TrimSpace(text) == "" {
		return protocol.ChatRequest{}, OutcomeIgnored, false
	}

	c.mu.Lock()
	next, effects := Transition(c.phase, c.sessionID, Submit{Text: text})
	if len(effects) == 0 {
		c.mu.Unlock()
		return protocol.ChatRequest{}, OutcomeBusy, false
	}
	req := c.run(effects)
	c.phase = next
	c.mu.Unlock()

	c.notify()
	return req, OutcomeAnswered, true
}

func (c *Client) apply(ev Event) {
	c.mu.Lock()
	next, effects := Transition(c.phase, c.sessionID, ev)
	c.run(effects)
	c.phase = next
	c.mu.Unlock()

	c.notify()
}

// run executes effects; the caller holds c.mu. It returns the request to issue, if any.
func (c *Client) run(effects []Effect) protocol.ChatRequest {
	var req protocol.ChatRequest
	for _, eff := range effects {
		switch eff := eff.(type) {
		case AppendMessage:
			c.log = append(c.log, eff.Message)
		case ClearInput:
			c.input = ""
		case IssueRequest:
			req = eff.Request
		}
	}
	return req
}

func (c *Client) notify() {
	for _, fn := range c.observers {
		fn()
	}
}

// SelectEmbedding toggles the expanded embedding. Selecting the expanded index
// collapses it; indices without an embedding are ignored.
// It returns the expanded index afterwards and whether one is expanded.
func (c *Client) SelectEmbedding(index int) (int, bool) {
	c.mu.Lock()
	if index < 0 || index >= len(c.log) || !c.log[index].HasEmbedding() {
		expanded := c.expanded
		c.mu.Unlock()
		return expanded, expanded != noSelection
	}
	if c.expanded == index {
		c.expanded = noSelection
	} else {
		c.expanded = index
	}
	expanded := c.expanded
	c.mu.Unlock()

	c.notify()
	return expanded, expanded != noSelection
}

// ExpandedEmbedding returns the expanded message index, if any.
func (c *Client) ExpandedEmbedding() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded, c.expanded != noSelection
}

// SessionID returns the session identifier.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Messages returns a copy of the log.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.log))
	for i, m := range c.log {
		out[i] = cloneMessage(m)
	}
	return out
}

// Busy reports whether a turn is in flight.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseAwaitingResponse
}

// Input returns the input buffer.
func (c *Client) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the input buffer.
func (c *Client) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.notify()
}
