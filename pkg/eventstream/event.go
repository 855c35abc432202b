package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a streamed turn completes and is persisted.
	EventTypeTurnCompleted = "chatgate.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a completed turn.
type TurnCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Turn          TurnPayload     `json:"turn"`
}

// EventSource identifies where the turn was served.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
}

// TurnPayload is the conversation content of the turn.
type TurnPayload struct {
	ID           string        `json:"id"`
	Messages     []llm.Message `json:"messages"`
	Content      string        `json:"content"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *llm.Usage    `json:"usage,omitempty"`
}

// NewTurnCompletedEvent builds the v1 event for a stored turn.
func NewTurnCompletedEvent(turn *storage.Turn) *TurnCompletedEvent {
	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Provider: turn.Provider,
			Model:    turn.Model,
		},
		RequestMeta: TurnRequestMeta{
			StartedAt:   turn.CreatedAt.Add(-turn.Duration),
			CompletedAt: turn.CreatedAt,
			DurationMs:  turn.Duration.Milliseconds(),
			Streaming:   true,
		},
		Turn: TurnPayload{
			ID:           turn.ID,
			Messages:     turn.Messages,
			Content:      turn.Content,
			FinishReason: turn.FinishReason,
			Usage:        turn.Usage,
		},
	}
}
