// Package conversation holds the client-side conversation state machine.
//
// Reduce is a pure function from (State, Event) to the next State plus the
// side effects the caller must perform. Controller owns a State, runs those
// effects against a stream client, and feeds stream callbacks back in as
// events.
package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/streamclient"
)

// Status is the phase of the conversation.
type Status string

const (
	Idle      Status = "idle"
	Sending   Status = "sending"
	Streaming Status = "streaming"
	Failed    Status = "error"
)

// State is an immutable snapshot of the conversation. Reduce never mutates
// the State it is given.
//
// While Status is Streaming the last element of Messages is the in-flight
// assistant message.
type State struct {
	Status   Status
	Messages []llm.Message

	// SessionID identifies the open stream while Sending or Streaming.
	SessionID string

	// Err is the failure that moved the conversation to Failed.
	Err error
}

// Busy reports whether a turn is in flight.
func (s State) Busy() bool {
	return s.Status == Sending || s.Status == Streaming
}

// Event is an input to Reduce.
type Event interface {
	event()
}

// Send starts a new turn with Text as the user message.
type Send struct {
	Text      string
	SessionID string
	At        time.Time

	Model    string
	Provider string
}

// ChunkReceived carries a chunk delivered for SessionID.
type ChunkReceived struct {
	SessionID string
	Chunk     llm.Chunk
}

// Completed reports that SessionID's stream finished.
type Completed struct {
	SessionID string
	At        time.Time
}

// Errored reports that SessionID's stream failed.
type Errored struct {
	SessionID string
	Err       error
}

// Cancel aborts the in-flight turn, if any.
type Cancel struct{}

func (Send) event()          {}
func (ChunkReceived) event() {}
func (Completed) event()     {}
func (Errored) event()       {}
func (Cancel) event()        {}

// Effect is a side effect requested by Reduce.
type Effect interface {
	effect()
}

// StartStream asks the caller to open a stream for Request.
type StartStream struct {
	SessionID string
	Request   *llm.ChatRequest
}

// AbortStream asks the caller to cancel SessionID's stream.
type AbortStream struct {
	SessionID string
}

// SignOut asks the caller to discard the session credential.
type SignOut struct{}

func (StartStream) effect() {}
func (AbortStream) effect() {}
func (SignOut) effect()     {}

// Reduce applies ev to s. Events for a session other than the open one are
// stale and ignored, which keeps late callbacks from a cancelled stream from
// touching the conversation.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Send:
		return reduceSend(s, ev)
	case ChunkReceived:
		return reduceChunk(s, ev), nil
	case Completed:
		return reduceCompleted(s, ev), nil
	case Errored:
		return reduceErrored(s, ev)
	case Cancel:
		return reduceCancel(s)
	default:
		return s, nil
	}
}

func reduceSend(s State, ev Send) (State, []Effect) {
	if s.Busy() || strings.TrimSpace(ev.Text) == "" {
		return s, nil
	}

	next := State{
		Status:    Sending,
		SessionID: ev.SessionID,
		Messages: append(slices.Clone(s.Messages), llm.Message{
			ID:        ev.SessionID + "-user",
			Role:      llm.RoleUser,
			Content:   ev.Text,
			Timestamp: ev.At,
		}),
	}

	req := &llm.ChatRequest{
		Messages: slices.Clone(next.Messages),
		Model:    ev.Model,
		Provider: ev.Provider,
	}

	return next, []Effect{StartStream{SessionID: ev.SessionID, Request: req}}
}

func reduceChunk(s State, ev ChunkReceived) State {
	if !s.Busy() || ev.SessionID != s.SessionID {
		return s
	}

	chunk := ev.Chunk
	if chunk.Type != llm.ChunkText && chunk.Type != llm.ChunkDone {
		return s
	}

	switch s.Status {
	case Sending:
		if chunk.Content == "" {
			return s
		}
		s.Messages = append(slices.Clone(s.Messages), llm.Message{
			ID:      chunk.ID,
			Role:    llm.RoleAssistant,
			Content: chunk.Content,
		})
		s.Status = Streaming
	case Streaming:
		last := len(s.Messages) - 1
		if s.Messages[last].Content == chunk.Content {
			return s
		}
		s.Messages = slices.Clone(s.Messages)
		s.Messages[last].Content = chunk.Content
	}
	return s
}

func reduceCompleted(s State, ev Completed) State {
	if !s.Busy() || ev.SessionID != s.SessionID {
		return s
	}

	if s.Status == Streaming {
		s.Messages = slices.Clone(s.Messages)
		s.Messages[len(s.Messages)-1].Timestamp = ev.At
	}
	s.Status = Idle
	s.SessionID = ""
	return s
}

// reduceErrored keeps any partial assistant content that already arrived.
// A session token rejected by the gateway additionally requests a sign-out.
func reduceErrored(s State, ev Errored) (State, []Effect) {
	if !s.Busy() || ev.SessionID != s.SessionID {
		return s, nil
	}

	s.Status = Failed
	s.SessionID = ""
	s.Err = ev.Err

	if streamclient.IsSessionRejected(ev.Err) {
		return s, []Effect{SignOut{}}
	}
	return s, nil
}

func reduceCancel(s State) (State, []Effect) {
	if !s.Busy() {
		return s, nil
	}

	session := s.SessionID
	if s.Status == Streaming {
		s.Messages = slices.Clone(s.Messages[:len(s.Messages)-1])
	}
	s.Status = Idle
	s.SessionID = ""

	return s, []Effect{AbortStream{SessionID: session}}
}
