package cache

import "time"

// Entity is a typed response entity persisted by the cache.
//
// Headers keys are expected to be case-normalized by the caller. Entities are
// immutable once written: the cache is read-create-delete, never
// update-in-place.
type Entity[T any] struct {
	// Timestamp is seconds since the Unix epoch at which the entity was captured.
	Timestamp float64

	// Headers carries response metadata, e.g. validators like "etag".
	Headers map[string]string

	// Charset is the optional character set of the content.
	Charset string

	// Content is the typed payload.
	Content T
}

// NewEntity creates an entity stamped with the current time.
func NewEntity[T any](content T, headers map[string]string) Entity[T] {
	return Entity[T]{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Headers:   headers,
		Content:   content,
	}
}

// Header returns the named header value, or "" when absent.
func (e Entity[T]) Header(name string) string {
	return e.Headers[name]
}

// record is the self-describing on-disk form of an entity. The version field
// lets a format bump read old entries as misses rather than corruption.
type record[T any] struct {
	Version   int               `json:"version"`
	Timestamp float64           `json:"timestamp"`
	Headers   map[string]string `json:"headers,omitempty"`
	Charset   string            `json:"charset,omitempty"`
	Content   T                 `json:"content"`
}

func newRecord[T any](e Entity[T]) record[T] {
	return record[T]{
		Version:   int(formatVersion),
		Timestamp: e.Timestamp,
		Headers:   e.Headers,
		Charset:   e.Charset,
		Content:   e.Content,
	}
}

func (r record[T]) entity() Entity[T] {
	return Entity[T]{
		Timestamp: r.Timestamp,
		Headers:   r.Headers,
		Charset:   r.Charset,
		Content:   r.Content,
	}
}
