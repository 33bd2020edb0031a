package llm

import (
	"sync"
	"time"
)

// expiring holds one value that goes stale after ttl.
type expiring[T any] struct {
	mu       sync.RWMutex
	value    T
	set      bool
	storedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func newExpiring[T any](ttl time.Duration) *expiring[T] {
	return &expiring[T]{ttl: ttl, now: time.Now}
}

func (c *expiring[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.set || c.now().Sub(c.storedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *expiring[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.set = true
	c.storedAt = c.now()
}
