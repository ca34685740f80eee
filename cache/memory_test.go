package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

func newTestMemoryCache(t *testing.T) *MemoryCache[string] {
	t.Helper()
	c, err := NewMemoryCache[string]("shared", SharedByAllUsers())
	if err != nil {
		t.Fatalf("NewMemoryCache() error = %v", err)
	}
	return c
}

// TestMemoryCache_RoundTrip verifies write-then-read yields an equal entity.
func TestMemoryCache_RoundTrip(t *testing.T) {
	c := newTestMemoryCache(t)
	ctx := context.Background()

	entity := Entity[string]{
		Timestamp: 1000.0,
		Headers:   map[string]string{"etag": "abc"},
		Charset:   "utf-8",
		Content:   "hello",
	}

	key := c.Key("https://api.example.com/users/42")
	if err := c.Write(ctx, key, entity); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok, err := c.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !ok {
		t.Fatal("Read() reported a miss after Write()")
	}
	if !reflect.DeepEqual(*got, entity) {
		t.Errorf("Read() = %+v, want %+v", *got, entity)
	}
}

// TestMemoryCache_MissAndRemove verifies silent miss and idempotent removal.
func TestMemoryCache_MissAndRemove(t *testing.T) {
	c := newTestMemoryCache(t)
	ctx := context.Background()

	key := c.Key("https://never.example.com/")
	if _, ok, err := c.Read(ctx, key); ok || err != nil {
		t.Errorf("Read() on missing key = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	if err := c.Remove(ctx, key); err != nil {
		t.Errorf("Remove() of missing entry error = %v", err)
	}

	if err := c.Write(ctx, key, NewEntity("x", nil)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := c.Remove(ctx, key); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if _, ok, _ := c.Read(ctx, key); ok {
		t.Error("entry still readable after Remove()")
	}
}

// TestMemoryCache_EmptyPool verifies the pool name is required.
func TestMemoryCache_EmptyPool(t *testing.T) {
	_, err := NewMemoryCache[string]("", SharedByAllUsers())
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("NewMemoryCache() error = %v, want ErrEmptyPool", err)
	}
}

// TestMemoryCache_ConcurrentAccess exercises concurrent readers and writers
// for the race detector.
func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := newTestMemoryCache(t)
	ctx := context.Background()
	key := c.Key("https://api.example.com/users/42")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Write(ctx, key, NewEntity("payload", nil))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = c.Read(ctx, key)
		}()
	}
	wg.Wait()
}
