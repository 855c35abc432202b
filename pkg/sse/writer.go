package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

const (
	// DataPrefix starts every data line of a frame.
	DataPrefix = "data: "

	// FrameTerminator ends every frame.
	FrameTerminator = "\n\n"
)

// Flusher is implemented by destinations that buffer writes
// (e.g. http.ResponseWriter via http.Flusher, or bufio.Writer).
type Flusher interface {
	Flush() error
}

// Writer emits one SSE frame per call. Each frame is written with a single
// Write to the destination so concurrent heartbeats never interleave with
// a frame.
type Writer struct {
	mu  sync.Mutex
	dst io.Writer
}

// NewWriter returns a Writer framing onto dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// Frame returns the bytes of a single "data: <payload>\n\n" frame.
func Frame(payload []byte) []byte {
	frame := make([]byte, 0, len(DataPrefix)+len(payload)+len(FrameTerminator))
	frame = append(frame, DataPrefix...)
	frame = append(frame, payload...)
	frame = append(frame, FrameTerminator...)
	return frame
}

// WriteJSON serializes v as one frame.
func (w *Writer) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return w.write(Frame(payload))
}

// WriteComment writes an SSE comment line. Comments carry no event and are
// ignored by conforming readers, which makes them suitable as keep-alives.
func (w *Writer) WriteComment(text string) error {
	return w.write([]byte(": " + text + FrameTerminator))
}

func (w *Writer) write(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.dst.Write(b); err != nil {
		return err
	}
	if f, ok := w.dst.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
