package session

import (
	"strings"

	"github.com/xiaot623/embedchat/internal/protocol"
)

// Phase is the request phase of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingResponse
)

func (p Phase) String() string {
	if p == PhaseAwaitingResponse {
		return "awaiting-response"
	}
	return "idle"
}

// Event drives a phase transition.
type Event interface{ isEvent() }

// Submit is a user send.
type Submit struct{ Text string }

// Replied carries a successful backend reply.
type Replied struct{ Reply protocol.ChatResponse }

// Failed carries any failure of the outstanding request.
type Failed struct{ Err error }

func (Submit) isEvent()  {}
func (Replied) isEvent() {}
func (Failed) isEvent()  {}

// Effect is work the client performs after a transition.
type Effect interface{ isEffect() }

// AppendMessage appends a message to the log.
type AppendMessage struct{ Message Message }

// ClearInput empties the input buffer.
type ClearInput struct{}

// IssueRequest sends a request to the relay.
type IssueRequest struct{ Request protocol.ChatRequest }

func (AppendMessage) isEffect() {}
func (ClearInput) isEffect()    {}
func (IssueRequest) isEffect()  {}

// ErrorPrefix starts the content of every failed assistant turn.
const ErrorPrefix = "Error: "

// Transition computes the next phase and the effects of an event. It has no side effects.
//
// Sends with blank text, sends while awaiting a response, and replies that
// arrive while idle leave the phase unchanged and produce no effects.
func Transition(phase Phase, sessionID string, ev Event) (Phase, []Effect) {
	switch ev := ev.(type) {
	case Submit:
		if phase != PhaseIdle || strings.TrimSpace(ev.Text) == "" {
			return phase, nil
		}
		return PhaseAwaitingResponse, []Effect{
			AppendMessage{Message: Message{Role: RoleUser, Content: ev.Text}},
			ClearInput{},
			IssueRequest{Request: protocol.ChatRequest{Message: ev.Text, SessionID: sessionID}},
		}

	case Replied:
		if phase != PhaseAwaitingResponse {
			return phase, nil
		}
		return PhaseIdle, []Effect{
			AppendMessage{Message: Message{
				Role:      RoleAssistant,
				Content:   ev.Reply.Response,
				Embedding: cloneVector(ev.Reply.Embedding),
			}},
		}

	case Failed:
		if phase != PhaseAwaitingResponse {
			return phase, nil
		}
		return PhaseIdle, []Effect{
			AppendMessage{Message: Message{Role: RoleAssistant, Content: ErrorPrefix + failureReason(ev.Err)}},
		}
	}

	return phase, nil
}

func failureReason(err error) string {
	if err == nil || err.Error() == "" {
		return "Sorry, something went wrong."
	}
	return err.Error()
}
