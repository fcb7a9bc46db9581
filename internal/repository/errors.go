package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrStaleVersion indicates the record changed since it was read.
	ErrStaleVersion = errors.New("repository: stale version")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("repository: backend unavailable")
)
