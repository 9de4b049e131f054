package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures an LRU.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires entries ttl after they were written. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
}

// LRU is a fixed-capacity key/value cache with least-recently-used eviction.
// Thread-safe for concurrent access.
type LRU[V any] struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	now       func() time.Time
	items     map[string]*list.Element
	evictList *list.List

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewLRU creates a cache holding at most capacity entries.
// Returns ErrInvalidCapacity if capacity is below 1 and ErrInvalidTTL for an
// out-of-range TTL option.
func NewLRU[V any](capacity int, opts ...Option) (*LRU[V], error) {
	if err := ValidateCapacity(capacity); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ValidateTTL(o.ttl); err != nil {
		return nil, err
	}

	return &LRU[V]{
		capacity:  capacity,
		ttl:       o.ttl,
		now:       o.now,
		items:     make(map[string]*list.Element, capacity),
		evictList: list.New(),
	}, nil
}

// Get returns the value stored under key and moves it to the
// most-recently-used position. Expired entries are removed and reported as
// misses.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*Entry[V])
		if !ent.IsExpired(now) {
			c.hits.Add(1)
			ent.touch(now)
			c.evictList.MoveToFront(el)
			return ent.Value, true
		}
		c.removeElement(el)
	}

	c.misses.Add(1)
	var zero V
	return zero, false
}

// Peek returns the entry stored under key without touching its recency or the
// hit counters.
func (c *LRU[V]) Peek(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return Entry[V]{}, false
	}
	ent := el.Value.(*Entry[V])
	if ent.IsExpired(c.now()) {
		return Entry[V]{}, false
	}
	return *ent, true
}

// Put inserts or replaces the value for key and marks it most recently used.
// If the cache grows beyond capacity the least-recently-used entry is evicted.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		el.Value = newEntry(key, value, now, c.ttl)
		return
	}

	el := c.evictList.PushFront(newEntry(key, value, now, c.ttl))
	c.items[key] = el

	if c.evictList.Len() > c.capacity {
		if oldest := c.evictList.Back(); oldest != nil {
			c.removeElement(oldest)
			c.evictions.Add(1)
		}
	}
}

// Remove deletes key from the cache. It reports whether the key was present.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Capacity returns the configured maximum number of entries.
func (c *LRU[V]) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys ordered from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.evictList.Len())
	for el := c.evictList.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*Entry[V]).Key)
	}
	return keys
}

// Purge removes every entry. Counters are left untouched.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.evictList.Init()
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
		Capacity:  c.capacity,
	}
}

// removeElement unlinks el. Must be called with mu held.
func (c *LRU[V]) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*Entry[V]).Key)
}
