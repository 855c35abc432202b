package sse

import (
	"bytes"
	"strings"
)

// Decoder incrementally splits an inbound byte stream into frame payloads.
//
// Bytes from each network read are appended to an internal buffer, the buffer
// is split on line boundaries, and the final (possibly incomplete) element is
// kept for the next read. Splitting happens on raw bytes before text decoding,
// so a multi-byte UTF-8 character split across two reads is reassembled
// before it is ever interpreted: '\n' never occurs inside a UTF-8 sequence.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes p and returns the payloads of all complete "data: " lines.
// Empty lines, comments and any other field lines are skipped.
func (d *Decoder) Feed(p []byte) []string {
	d.buf = append(d.buf, p...)

	var payloads []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}

		line := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]

		if payload, ok := dataPayload(line); ok {
			payloads = append(payloads, payload)
		}
	}

	// Avoid retaining a large backing array once everything is consumed.
	if len(d.buf) == 0 {
		d.buf = nil
	}

	return payloads
}

// Flush returns the payload of a trailing line that was never terminated,
// for use once the source is exhausted.
func (d *Decoder) Flush() []string {
	line := string(d.buf)
	d.buf = nil

	if payload, ok := dataPayload(line); ok {
		return []string{payload}
	}
	return nil
}

// Buffered returns the number of bytes held for the next Feed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func dataPayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	return strings.TrimPrefix(line, DataPrefix), true
}
