package storage

import "errors"

var (
	// ErrObjectNotFound indicates a vault reference that resolves to no
	// stored object.
	ErrObjectNotFound = errors.New("vault object not found")

	// ErrInvalidObjectRef indicates a vault reference that does not have
	// the shard/id shape the vault writes.
	ErrInvalidObjectRef = errors.New("invalid vault object reference")
)
