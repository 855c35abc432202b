package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialLineBuffer = 64 * 1024

	// MaxLineSize bounds a single SSE line. Providers send one JSON
	// fragment per data line, so this also bounds a fragment.
	MaxLineSize = 1024 * 1024
)

// Reader parses SSE events from an upstream body. It is not safe for
// concurrent use.
type Reader struct {
	scanner *bufio.Scanner

	event     Event
	data      strings.Builder
	dataLines int
	pending   bool
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialLineBuffer), MaxLineSize)
	return &Reader{scanner: scanner}
}

// Next blocks until a complete event has been read. It returns nil, nil once
// src is exhausted; an event cut off by EOF without its blank line is still
// returned first.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		switch {
		case line == "":
			if r.pending {
				return r.dispatch(), nil
			}
		case line[0] == ':':
			// comment or keepalive
		default:
			r.field(line)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if r.pending {
		return r.dispatch(), nil
	}
	return nil, nil
}

// field applies one "name:value" line. A single space after the colon is
// dropped; a line without a colon is a field with an empty value.
func (r *Reader) field(line string) {
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "data":
		if r.dataLines > 0 {
			r.data.WriteByte('\n')
		}
		r.data.WriteString(value)
		r.dataLines++
	case "event":
		r.event.Type = value
	case "id":
		r.event.ID = value
	default:
		// retry and unknown fields
		return
	}
	r.pending = true
}

func (r *Reader) dispatch() *Event {
	ev := r.event
	ev.Data = r.data.String()

	r.event = Event{}
	r.data.Reset()
	r.dataLines = 0
	r.pending = false

	return &ev
}
