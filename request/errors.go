package request

import "errors"

// Sentinel errors for request outcomes.
var (
	// ErrCancelled is the error carried by a cancellation outcome.
	ErrCancelled = errors.New("request: cancelled")

	// ErrNilDelegate is returned by New when no delegate is supplied.
	ErrNilDelegate = errors.New("request: delegate is nil")
)
