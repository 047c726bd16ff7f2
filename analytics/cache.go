package analytics

import (
	"sync"
	"time"
)

// viewCache holds one computed view until it expires or is cleared.
// A value computed before the latest clear is never stored.
type viewCache[T any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	value      T
	expiresAt  time.Time
	valid      bool
	generation uint64
}

func newViewCache[T any](ttl time.Duration) *viewCache[T] {
	return &viewCache[T]{ttl: ttl}
}

func (c *viewCache[T]) get(now time.Time) (value T, generation uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	generation = c.generation
	if c.valid && now.Before(c.expiresAt) {
		value, ok = c.value, true
	}
	return
}

func (c *viewCache[T]) set(value T, generation uint64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	c.value = value
	c.expiresAt = now.Add(c.ttl)
	c.valid = true
}

func (c *viewCache[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.valid = false
	c.generation++
}
