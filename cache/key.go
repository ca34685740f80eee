package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// formatVersion is the first byte of the key-derivation material and the
// version field of serialized records. Bumping it changes every derived
// filename, stranding old entries as misses.
const formatVersion byte = 1

// cacheFileExt is the extension of entry files. Not semantically load-bearing.
const cacheFileExt = ".cache"

// Partition is a privacy boundary for cache entries. Two partitions' files
// cannot be distinguished or correlated without the partition identifier.
type Partition struct {
	secret []byte
}

// SharedByAllUsers returns the shared-pool partition with an empty secret.
func SharedByAllUsers() Partition {
	return Partition{}
}

// PerUser derives a partition from an arbitrary JSON-serializable identifier,
// e.g. a user ID. Serialized identifiers longer than 32 bytes are shortened
// through SHA-256; shorter ones are used raw.
func PerUser(identifier any) (Partition, error) {
	raw, err := json.Marshal([]any{identifier})
	if err != nil {
		return Partition{}, fmt.Errorf("cache: serialize partition identifier: %w", err)
	}
	if len(raw) > sha256.Size {
		sum := sha256.Sum256(raw)
		return Partition{secret: sum[:]}, nil
	}
	return Partition{secret: raw}, nil
}

// Key addresses one cache entry.
type Key struct {
	// Identifier is the resource identifier the key was derived from.
	Identifier string

	// Sum is the derived SHA-256 digest.
	Sum []byte
}

// Filename returns the filesystem-safe name of the backing file:
// unpadded base64url of the digest plus the cache extension.
func (k Key) Filename() string {
	return base64.RawURLEncoding.EncodeToString(k.Sum) + cacheFileExt
}

// Keyer derives stable, collision-resistant cache keys for one partition.
//
// Contract:
// - Determinism: the same (partition, identifier) pair always yields the same key.
// - Purity: Key performs no I/O.
// - Concurrency: safe for concurrent use.
type Keyer struct {
	partition Partition
}

// NewKeyer creates a keyer bound to the given partition.
func NewKeyer(partition Partition) Keyer {
	return Keyer{partition: partition}
}

// Key derives the key for a resource identifier. The derivation material is
// formatVersion ++ partitionSecret ++ 0x00 ++ utf8(identifier), hashed with
// SHA-256.
func (kr Keyer) Key(identifier string) Key {
	h := sha256.New()
	h.Write([]byte{formatVersion})
	h.Write(kr.partition.secret)
	h.Write([]byte{0x00})
	h.Write([]byte(identifier))
	return Key{Identifier: identifier, Sum: h.Sum(nil)}
}
