package llm

import (
	"encoding/json"
	"fmt"
)

// Chunk types of the normalized streaming protocol.
const (
	ChunkText  = "text"
	ChunkDone  = "done"
	ChunkError = "error"
)

// Chunk is the normalized streaming protocol unit exchanged between the
// gateway and its clients. It is a tagged union on Type:
//
//   - text:  Content (cumulative text so far) and Delta (only the new fragment)
//   - done:  Content (final cumulative text)
//   - error: Error
//
// Within one turn every text/done Content extends the previous one by exactly
// the Delta of the chunk, so clients replace rather than append.
type Chunk struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Delta   string `json:"delta,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TextChunk builds a "text" chunk.
func TextChunk(id, content, delta string) Chunk {
	return Chunk{ID: id, Type: ChunkText, Content: content, Delta: delta}
}

// DoneChunk builds a "done" chunk.
func DoneChunk(id, content string) Chunk {
	return Chunk{ID: id, Type: ChunkDone, Content: content}
}

// ErrorChunk builds an "error" chunk.
func ErrorChunk(id, msg string) Chunk {
	return Chunk{ID: id, Type: ChunkError, Error: msg}
}

// IsTerminal reports whether the chunk ends the turn.
func (c Chunk) IsTerminal() bool {
	return c.Type == ChunkDone || c.Type == ChunkError
}

// MarshalJSON emits exactly the fields defined for the chunk's type:
// content+delta on text, content on done, error on error. Empty strings are
// kept for the fields a type defines.
func (c Chunk) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ChunkText:
		return json.Marshal(struct {
			ID      string `json:"id"`
			Type    string `json:"type"`
			Content string `json:"content"`
			Delta   string `json:"delta"`
		}{c.ID, c.Type, c.Content, c.Delta})
	case ChunkDone:
		return json.Marshal(struct {
			ID      string `json:"id"`
			Type    string `json:"type"`
			Content string `json:"content"`
		}{c.ID, c.Type, c.Content})
	case ChunkError:
		return json.Marshal(struct {
			ID    string `json:"id"`
			Type  string `json:"type"`
			Error string `json:"error"`
		}{c.ID, c.Type, c.Error})
	default:
		return nil, fmt.Errorf("unknown chunk type: %q", c.Type)
	}
}
