// Package storage
package storage

import (
	"context"
)

// Driver defines the interface for persisting and retrieving completed
// conversation turns in a storage backend.
type Driver interface {
	// Put stores a turn. Returns true if the turn was newly inserted,
	// false if a turn with the same ID already exists. Put is idempotent so a
	// retried job never duplicates a turn.
	Put(ctx context.Context, turn *Turn) (bool, error)

	// Get retrieves a turn by its ID.
	Get(ctx context.Context, id string) (*Turn, error)

	// List returns turns matching query, newest first.
	List(ctx context.Context, query Query) ([]*Turn, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Query filters List.
type Query struct {
	// Provider restricts results to one provider id when non-empty.
	Provider string

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int
}

// DefaultLimit is the List limit when none is given.
const DefaultLimit = 50

// EffectiveLimit returns q.Limit or DefaultLimit.
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}
