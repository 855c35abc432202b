package eventstream

import (
	"context"
	"fmt"
)

// Publisher delivers completed turn events to a downstream sink. The worker
// pool calls PublishTurn once per persisted turn and Close once on shutdown.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCompletedEvent) error
	Close() error
}

// Validate reports whether event can be published. Publishers call it before
// touching their transport.
func Validate(event *TurnCompletedEvent) error {
	switch {
	case event == nil:
		return ErrNilTurnEvent
	case event.SchemaVersion != SchemaVersionV1:
		return fmt.Errorf("%w: version %d", ErrUnsupportedSchema, event.SchemaVersion)
	case event.Turn.ID == "":
		return ErrMissingTurnID
	}
	return nil
}
