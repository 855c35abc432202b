package provider

import (
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatgate/pkg/llm"
)

// Accumulator is the per-call state of one Stream invocation. It owns the
// running full content and guarantees the Chunk sequence shape: zero or more
// text Chunks whose content grows by exactly their delta, then one done Chunk.
type Accumulator struct {
	id      string
	emit    EmitFunc
	content strings.Builder
	emitted int
	done    bool

	// Model is the model reported by the upstream, if any.
	Model string

	// FinishReason is the upstream finish signal, if any.
	FinishReason string

	// Usage holds token counts reported by the upstream, if any.
	Usage *llm.Usage
}

// NewAccumulator returns a fresh Accumulator with a generated id.
func NewAccumulator(emit EmitFunc) *Accumulator {
	return &Accumulator{
		id:   uuid.NewString(),
		emit: emit,
	}
}

// SetID adopts the upstream's response id. It is ignored once any Chunk has
// been emitted so every Chunk of a turn carries the same id.
func (a *Accumulator) SetID(id string) {
	if id == "" || a.emitted > 0 {
		return
	}
	a.id = id
}

// ID returns the turn id carried by every Chunk.
func (a *Accumulator) ID() string {
	return a.id
}

// Content returns the text accumulated so far.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Done reports whether the done Chunk has been emitted.
func (a *Accumulator) Done() bool {
	return a.done
}

// Append adds a fragment of new text and emits a text Chunk.
// Empty fragments and fragments arriving after done are ignored.
func (a *Accumulator) Append(delta string) error {
	if delta == "" || a.done {
		return nil
	}

	a.content.WriteString(delta)
	a.emitted++
	return a.emit(llm.TextChunk(a.id, a.content.String(), delta))
}

// Finish emits the single done Chunk and returns the Completion.
// Calling Finish again returns the same Completion without emitting.
func (a *Accumulator) Finish() (*llm.Completion, error) {
	if !a.done {
		a.done = true
		a.emitted++
		if err := a.emit(llm.DoneChunk(a.id, a.content.String())); err != nil {
			return nil, err
		}
	}

	if a.Usage != nil && a.Usage.TotalTokens == 0 {
		a.Usage.TotalTokens = a.Usage.PromptTokens + a.Usage.CompletionTokens
	}

	return &llm.Completion{
		ID:           a.id,
		Content:      a.content.String(),
		Model:        a.Model,
		FinishReason: a.FinishReason,
		Usage:        a.Usage,
	}, nil
}
