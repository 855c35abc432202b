package storage

import "errors"

// ErrNotFound matches any NotFoundError under errors.Is.
var ErrNotFound = errors.New("turn not found")

// NotFoundError reports a lookup for a turn id the driver does not hold.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return ErrNotFound.Error()
	}
	return ErrNotFound.Error() + ": " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
