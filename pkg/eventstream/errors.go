package eventstream

import "errors"

var (
	// ErrNilTurnEvent is returned when a publisher is handed a nil event.
	ErrNilTurnEvent = errors.New("nil turn event")

	// ErrMissingTurnID is returned for events without a turn id, which keyed
	// transports use as the partition key.
	ErrMissingTurnID = errors.New("turn event has no turn id")

	// ErrUnsupportedSchema is returned for events whose schema version this
	// build does not know how to emit.
	ErrUnsupportedSchema = errors.New("unsupported turn event schema")

	// ErrPublisherClosed is returned by PublishTurn after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)
