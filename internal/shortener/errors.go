package shortener

import "errors"

var (
	// ErrInvalidAddress is returned when an address cannot be canonicalized.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNotFound is returned when no active entry matches the identifier.
	ErrNotFound = errors.New("entry not found")

	// ErrBadRequest is returned when a required identifier is missing or malformed.
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is returned when a code is already in use.
	ErrConflict = errors.New("code already in use")

	// ErrUnavailable is returned when the persistent store failed or timed out.
	ErrUnavailable = errors.New("store unavailable")

	// ErrCacheMiss is returned by Cache implementations when no value is held.
	ErrCacheMiss = errors.New("cache miss")
)
