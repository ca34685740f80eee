// Package cache provides a content-addressable on-disk store for typed
// response entities.
//
// Entries are keyed by a privacy-partitioned SHA-256 hash of the resource
// identifier, written atomically (temp file + rename), and read back with
// silent-miss semantics: a missing entry is an expected outcome, not an
// error. An in-memory implementation of the same Store contract is provided
// for tests and shared-pool use.
package cache
