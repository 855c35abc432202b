// Package inmemory provides a map-backed storage driver. It is the default
// when no database is configured and is used in tests.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/chatgate/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of turns
	mu sync.RWMutex

	// turns is the in memory map of turns keyed by turn ID
	turns map[string]*storage.Turn
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		turns: make(map[string]*storage.Turn),
	}
}

// Put stores a turn. Returns true if the turn was newly inserted,
// false if it already existed.
func (s *Driver) Put(_ context.Context, turn *storage.Turn) (bool, error) {
	if turn == nil {
		return false, errors.New("cannot store nil turn")
	}
	if turn.ID == "" {
		return false, errors.New("cannot store turn without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turns[turn.ID]; ok {
		return false, nil
	}

	stored := *turn
	stored.Messages = slices.Clone(turn.Messages)
	s.turns[turn.ID] = &stored
	return true, nil
}

// Get retrieves a turn by its ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turn, ok := s.turns[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return turn, nil
}

// List returns turns newest first.
func (s *Driver) List(_ context.Context, query storage.Query) ([]*storage.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]*storage.Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if query.Provider != "" && t.Provider != query.Provider {
			continue
		}
		turns = append(turns, t)
	}

	slices.SortFunc(turns, func(a, b *storage.Turn) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	if limit := query.EffectiveLimit(); len(turns) > limit {
		turns = turns[:limit]
	}
	return turns, nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}
