// Package sse implements Server-Sent Events framing for chatgate.
//
// Reader parses the SSE streams the gateway consumes from upstream
// providers. Writer emits the gateway's own "data: <json>" frames and
// keepalive comments. Decoder is the client-side splitter that carries an
// incomplete trailing line across network reads.
//
// Framing follows https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "strings"

// DoneSentinel is the data payload OpenAI-style streams send last.
const DoneSentinel = "[DONE]"

// Event is one blank-line delimited SSE event.
type Event struct {
	// Type is the "event:" field. Empty means "message".
	Type string

	// Data holds every "data:" line of the event joined with "\n".
	Data string

	// ID is the last "id:" field seen, if any.
	ID string
}

// Name returns the event type, defaulting to "message".
func (e *Event) Name() string {
	if e.Type == "" {
		return "message"
	}
	return e.Type
}

// Payload returns Data with surrounding whitespace removed.
func (e *Event) Payload() string {
	return strings.TrimSpace(e.Data)
}

// IsDone reports whether the event carries DoneSentinel.
func (e *Event) IsDone() bool {
	return e.Payload() == DoneSentinel
}
