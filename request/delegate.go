package request

import "time"

// DefaultPollingInterval is the progress polling cadence used when a
// delegate reports no interval of its own (~20Hz).
const DefaultPollingInterval = 50 * time.Millisecond

// Delegate is the transport abstraction a Handle drives. Concrete transports
// (HTTP clients, test doubles, composed transports) implement it.
//
// Contract:
//   - Ownership: a Handle exclusively owns its delegate. RepeatedDelegate
//     hands ownership of the returned delegate to a new Handle.
//   - StartOperation begins the underlying operation asynchronously and must
//     not block; the eventual result is delivered to the sink, from any
//     goroutine.
//   - CancelOperation is a cooperative abort request; it may be called before
//     StartOperation and must be tolerated at any time.
//   - ProgressEstimate must be safe to call from the polling goroutine while
//     the operation is in flight; values outside [0, 1] are clamped.
type Delegate interface {
	// StartOperation begins the underlying network operation, delivering the
	// eventual outcome to sink.
	StartOperation(sink CompletionSink)

	// CancelOperation asks the transport to abort the underlying operation.
	CancelOperation()

	// RepeatedDelegate returns a fresh delegate representing the same logical
	// request, for restart.
	RepeatedDelegate() Delegate

	// ProgressEstimate reports the current progress in [0, 1].
	ProgressEstimate() float64

	// PollingInterval is the progress polling cadence. Zero or negative means
	// DefaultPollingInterval.
	PollingInterval() time.Duration

	// Description is a human-readable request description, e.g. "GET /users/42".
	Description() string
}

// CompletionSink is the surface a Handle exposes to its delegate for
// delivering the terminal outcome.
//
// Contract:
//   - Concurrency: both methods are safe to call from any goroutine.
//   - ShouldIgnoreResponse peeks without committing; BroadcastResponse
//     commits or discards per the duplicate rules.
type CompletionSink interface {
	// ShouldIgnoreResponse reports whether the outcome would be discarded if
	// broadcast now.
	ShouldIgnoreResponse(outcome Outcome) bool

	// BroadcastResponse delivers the outcome; at most one outcome is ever
	// accepted and broadcast to observers.
	BroadcastResponse(outcome Outcome)
}
