package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/aarifsumra/siesta/observe"
)

// DiskCache stores one file per entry under root/pool, named by the derived
// key. Writes are atomic (temp file + rename) so a concurrent reader never
// observes a partial file. Concurrent writes to the same key rely on the
// rename guarantee: the last atomic write wins.
type DiskCache[T any] struct {
	dir     string
	pool    string
	keyer   Keyer
	group   singleflight.Group
	logger  observe.Logger
	metrics observe.Metrics
}

// NewDiskCache creates a disk cache rooted at root/pool for the given
// partition. Failure to create the directory is fatal to the instance.
func NewDiskCache[T any](root, pool string, partition Partition, opts ...Option) (*DiskCache[T], error) {
	if pool == "" {
		return nil, ErrEmptyPool
	}

	dir := filepath.Join(root, pool)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cache: create storage root: %w", err)
	}

	o := newOptions(opts)
	return &DiskCache[T]{
		dir:     dir,
		pool:    pool,
		keyer:   NewKeyer(partition),
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Key derives the cache key for a resource identifier.
func (c *DiskCache[T]) Key(identifier string) Key {
	return c.keyer.Key(identifier)
}

// Read retrieves the entity stored under key. Concurrent reads of the same
// key are coalesced into a single file access.
func (c *DiskCache[T]) Read(ctx context.Context, key Key) (*Entity[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	name := key.Filename()
	v, err, _ := c.group.Do(name, func() (any, error) {
		return c.readFile(name)
	})
	if err != nil {
		return nil, false, err
	}

	entity, ok := v.(*Entity[T])
	hit := ok && entity != nil
	c.metrics.RecordCacheRead(ctx, c.pool, hit)
	if !hit {
		return nil, false, nil
	}
	return entity, true, nil
}

func (c *DiskCache[T]) readFile(name string) (*Entity[T], error) {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read entry: %w", err)
	}

	var rec record[T]
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	// Entries written under a different format version are stranded, not corrupt.
	if rec.Version != int(formatVersion) {
		return nil, nil
	}

	entity := rec.entity()
	return &entity, nil
}

// Write persists the entity under key atomically.
func (c *DiskCache[T]) Write(ctx context.Context, key Key, entity Entity[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(newRecord(entity))
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	// CreateTemp creates the file 0600; cached content is never group- or
	// world-readable.
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp entry: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: close temp entry: %w", err)
	}

	path := filepath.Join(c.dir, key.Filename())
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: commit entry: %w", err)
	}

	c.logger.Debug(ctx, "cache entry written",
		observe.Field{Key: "pool", Value: c.pool},
		observe.Field{Key: "file", Value: key.Filename()},
	)
	return nil
}

// Remove deletes the entry stored under key. A missing entry is success,
// mirroring the silent-miss read path.
func (c *DiskCache[T]) Remove(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(c.dir, key.Filename()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: remove entry: %w", err)
	}
	return nil
}

// Ensure DiskCache implements Store
var _ Store[string] = (*DiskCache[string])(nil)
