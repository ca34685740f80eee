package cache

import (
	"context"

	"github.com/aarifsumra/siesta/observe"
)

// Store is the interface for persisting typed response entities.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Misses: Read returns (nil, false, nil) on miss; a miss is never an error
//   and never logged as a failure.
// - Errors: I/O and deserialization failures other than a miss are returned
//   as recoverable errors; the caller decides retry/ignore.
// - Removal: Remove of a missing entry is idempotent success.
type Store[T any] interface {
	// Key derives the cache key for a resource identifier. Pure, no I/O.
	Key(identifier string) Key

	// Read retrieves the entity stored under key.
	Read(ctx context.Context, key Key) (*Entity[T], bool, error)

	// Write persists the entity under key with an all-or-nothing guarantee.
	Write(ctx context.Context, key Key, entity Entity[T]) error

	// Remove deletes the entry stored under key.
	Remove(ctx context.Context, key Key) error
}

// Option configures a cache implementation.
type Option func(*options)

type options struct {
	logger  observe.Logger
	metrics observe.Metrics
}

func newOptions(opts []Option) options {
	o := options{
		logger:  observe.NewNopLogger(),
		metrics: observe.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the diagnostic logger. Defaults to a no-op sink.
func WithLogger(logger observe.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(metrics observe.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}
