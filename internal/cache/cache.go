// Package cache holds the keyed in-memory caches shared by every view-model
// in the process. Entries are never evicted by age: staleness is a question
// the caller asks with a window, and a stale entry is still served while it
// is being revalidated.
package cache

import (
	"strings"
	"sync"
	"time"
)

const (
	// ShortWindow applies to frequently mutated entities (completion state).
	ShortWindow = 30 * time.Second
	// LongWindow applies to lists and feeds that change less often.
	LongWindow = 2 * time.Minute
)

// Entry is a cached payload and the wall-clock time of the write that
// produced it.
type Entry[T any] struct {
	Data      T
	FetchedAt time.Time
}

// Cache maps composite keys to entries. It is safe for concurrent use; a Put
// is visible to every Get that starts after it returns.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	now     func() time.Time
}

// New creates an empty cache using the system clock.
func New[T any]() *Cache[T] {
	return NewWithClock[T](time.Now)
}

// NewWithClock creates an empty cache that stamps and ages entries with now.
func NewWithClock[T any](now func() time.Time) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]Entry[T]),
		now:     now,
	}
}

// Key joins an entity type and its scope parts into a cache key.
func Key(entity string, parts ...string) string {
	var b strings.Builder
	b.WriteString(entity)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Get returns the entry for key, if any.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put replaces the entry for key and stamps it with the current time.
func (c *Cache[T]) Put(key string, data T) Entry[T] {
	e := Entry[T]{Data: data, FetchedAt: c.now()}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e
}

// IsStale reports whether key is absent or older than window.
func (c *Cache[T]) IsStale(key string, window time.Duration) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return true
	}
	return c.Stale(e, window)
}

// Stale reports whether e is older than window.
func (c *Cache[T]) Stale(e Entry[T], window time.Duration) bool {
	return c.now().Sub(e.FetchedAt) > window
}

// Delete drops key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Now returns the cache's notion of the current time.
func (c *Cache[T]) Now() time.Time {
	return c.now()
}
