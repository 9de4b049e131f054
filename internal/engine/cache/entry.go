package cache

import (
	"time"
)

// Entry is a single cached value with its bookkeeping timestamps.
// Entries are owned by the LRU and are only handed out as copies.
type Entry[V any] struct {
	// Key is the normalized cache key.
	Key string

	// Value is the cached value.
	Value V

	// CreatedAt is when the entry was last written by Put.
	CreatedAt time.Time

	// AccessedAt is when the entry was last read or written.
	AccessedAt time.Time

	// ExpiresAt is zero when the entry never expires.
	ExpiresAt time.Time
}

func newEntry[V any](key string, value V, now time.Time, ttl time.Duration) *Entry[V] {
	e := &Entry[V]{
		Key:        key,
		Value:      value,
		CreatedAt:  now,
		AccessedAt: now,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// IsExpired reports whether the entry has expired at now.
// Entries without an expiry never expire.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return now.After(e.ExpiresAt)
}

// Age returns how long ago the entry was written, measured at now.
func (e *Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// touch records an access at now.
func (e *Entry[V]) touch(now time.Time) {
	e.AccessedAt = now
}
