package types

import "errors"

// Domain errors shared across the engine
var (
	// ErrNotFound is returned for lookups of unknown symbols, files, or
	// sessions. It is an expected miss, not a fault.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when an operation's input is rejected
	// before analysis (e.g. a path outside the declared root). It fails
	// only the operation that triggered it.
	ErrInvalidInput = errors.New("invalid input")
)
