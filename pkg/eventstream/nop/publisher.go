// Package nop provides the publisher used when no event transport is
// configured. It validates events like a real sink and then discards them.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/chatgate/pkg/eventstream"
)

// Publisher discards events after validating them.
type Publisher struct {
	published atomic.Int64
	closed    atomic.Bool
}

var _ eventstream.Publisher = (*Publisher)(nil)

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if p.closed.Load() {
		return eventstream.ErrPublisherClosed
	}
	if err := eventstream.Validate(event); err != nil {
		return err
	}
	p.published.Add(1)
	return nil
}

// Published is the number of events accepted so far.
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

// Close is idempotent.
func (p *Publisher) Close() error {
	p.closed.Store(true)
	return nil
}
