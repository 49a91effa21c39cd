package model

import "errors"

// Error taxonomy for the platform. Callers match with errors.Is; the HTTP
// layer owns the mapping to status codes.
var (
	// ErrValidation indicates a bad input shape or range the caller can fix.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the entity exists but the caller does not own it.
	// Surfaced to clients identically to ErrNotFound so ownership checks
	// never leak existence.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a uniqueness violation (duplicate agent name).
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated indicates the identity gate rejected the caller.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUpstreamTimeout indicates the completion provider exceeded its
	// deadline. Never retried automatically.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstream indicates a non-timeout completion provider failure.
	ErrUpstream = errors.New("upstream error")
)
