// Package cache provides TTL caches behind port.Cache: an in-memory map
// for single-instance runs and a Redis backend when REDIS_URL is set.
//
// A non-positive TTL means entries never expire.
package cache

import (
	"sync"
	"time"
)

// minSweepInterval bounds how often expired entries are purged.
const minSweepInterval = time.Second

type item[T any] struct {
	value     T
	expiresAt time.Time // zero: no expiry
}

func (i item[T]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// InMemory holds profiles, thresholds and reminder markers for one process.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]item[T]
	ttl   time.Duration

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates an in-memory cache. With a positive TTL a sweeper purges
// expired entries until Close is called.
func New[T any](ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	if ttl > 0 {
		interval := ttl
		if interval < minSweepInterval {
			interval = minSweepInterval
		}
		go c.sweep(interval)
	}
	return c
}

func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || it.expired(time.Now()) {
		var zero T
		return zero, false
	}
	return it.value, true
}

func (c *InMemory[T]) Set(key string, value T) {
	it := item[T]{value: value}
	if c.ttl > 0 {
		it.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
}

func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Close stops the sweeper. The cache stays usable; expired entries are then
// only hidden on read. Safe to call more than once.
func (c *InMemory[T]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *InMemory[T]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, it := range c.items {
				if it.expired(now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
