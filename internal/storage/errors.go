package storage

import "errors"

var (
	// ErrNotFound is returned when a referenced row does not exist or is
	// not visible to the caller
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert or update violates a unique
	// constraint, typically a duplicate name or email
	ErrConflict = errors.New("already exists")
)
