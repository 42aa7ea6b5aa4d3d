package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// entry represents a cached remote id with expiration
type entry struct {
	id        int64
	expiresAt time.Time
}

// InMemoryLookupCache implements fulfillment.LookupCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryLookupCache struct {
	ttl       time.Duration
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryLookupCache creates a new in-memory lookup cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryLookupCache(ttl time.Duration) *InMemoryLookupCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &InMemoryLookupCache{
		ttl:      ttl,
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the cached id for name
func (c *InMemoryLookupCache) Get(_ context.Context, kind fulfillment.LookupKind, name string) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[cacheKey(kind, name)]
	if !exists || time.Now().After(e.expiresAt) {
		return 0, false, nil
	}
	return e.id, true, nil
}

// Set stores id for name until the cache TTL elapses
func (c *InMemoryLookupCache) Set(_ context.Context, kind fulfillment.LookupKind, name string, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(kind, name)] = entry{
		id:        id,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (c *InMemoryLookupCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryLookupCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryLookupCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryLookupCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryLookupCache implements LookupCache
var _ LookupCache = (*InMemoryLookupCache)(nil)
