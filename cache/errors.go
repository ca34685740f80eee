package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrEmptyPool is returned when a cache is constructed with an empty pool name.
	ErrEmptyPool = errors.New("cache: pool name is empty")

	// ErrCorruptEntry wraps deserialization failures for entries that exist on disk
	// but cannot be decoded. A format-version mismatch is a miss, not corruption.
	ErrCorruptEntry = errors.New("cache: corrupt entry")
)
