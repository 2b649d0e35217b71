package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict indicates a conditional write lost against a
	// concurrent writer; the caller saw a stale version token.
	ErrVersionConflict = errors.New("repository: version conflict")
)
