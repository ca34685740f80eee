package cache

import (
	"context"
	"sync"

	"github.com/aarifsumra/siesta/observe"
)

// MemoryCache is an in-memory Store implementation with the same contract as
// DiskCache. It keeps nothing across process restarts; useful for tests and
// for short-lived shared pools.
type MemoryCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entity[T]
	pool    string
	keyer   Keyer
	metrics observe.Metrics
}

// NewMemoryCache creates a new in-memory cache for the given partition.
func NewMemoryCache[T any](pool string, partition Partition, opts ...Option) (*MemoryCache[T], error) {
	if pool == "" {
		return nil, ErrEmptyPool
	}

	o := newOptions(opts)
	return &MemoryCache[T]{
		entries: make(map[string]Entity[T]),
		pool:    pool,
		keyer:   NewKeyer(partition),
		metrics: o.metrics,
	}, nil
}

// Key derives the cache key for a resource identifier.
func (c *MemoryCache[T]) Key(identifier string) Key {
	return c.keyer.Key(identifier)
}

// Read retrieves the entity stored under key. Returns (nil, false, nil) on miss.
func (c *MemoryCache[T]) Read(ctx context.Context, key Key) (*Entity[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	entity, ok := c.entries[key.Filename()]
	c.mu.RUnlock()

	c.metrics.RecordCacheRead(ctx, c.pool, ok)
	if !ok {
		return nil, false, nil
	}
	return &entity, true, nil
}

// Write stores the entity under key.
func (c *MemoryCache[T]) Write(ctx context.Context, key Key, entity Entity[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key.Filename()] = entity
	c.mu.Unlock()
	return nil
}

// Remove deletes the entry stored under key. Idempotent - no error on miss.
func (c *MemoryCache[T]) Remove(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, key.Filename())
	c.mu.Unlock()
	return nil
}

// Ensure MemoryCache implements Store
var _ Store[string] = (*MemoryCache[string])(nil)
