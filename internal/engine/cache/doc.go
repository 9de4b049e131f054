// Package cache provides the bounded in-memory result cache used by the lookup
// engine.
//
// The cache is a fixed-capacity LRU keyed by normalized subject and intent:
//   - Capacity is fixed at construction (default 100) and must be at least 1
//   - Get bumps an entry to most-recently-used; Put inserts or replaces
//   - When a Put pushes the size over capacity the least-recently-used entry
//     is evicted
//   - An optional TTL expires entries on access (0 disables expiry)
//
// All methods are safe for concurrent use. A single mutex guards the entry
// map and the recency list, so every Get or Put is one atomic step.
package cache
