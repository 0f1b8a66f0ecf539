// ABOUTME: Thread-safe, size-bounded cache of revoked token IDs
// ABOUTME: Lets the verifier reject known-revoked tokens without a registry round trip

package denylist

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry stores the token's own expiry and its position in insertion order.
type cacheEntry struct {
	expiresAt time.Time
	element   *list.Element
}

// Cache remembers revoked token IDs until the tokens themselves expire.
// Revocation never reverts, so a hit is always authoritative; a miss only
// means the registry has to be consulted. When full, the oldest entry is
// evicted in O(1) using a doubly-linked list.
type Cache struct {
	mu      sync.RWMutex
	revoked map[string]*cacheEntry
	order   *list.List // token IDs in insertion order (oldest at front)
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a denylist holding at most maxSize token IDs.
// A background goroutine periodically drops entries whose tokens have expired.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache{
		revoked: make(map[string]*cacheEntry),
		order:   list.New(),
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Contains reports whether the token ID is known to be revoked.
func (c *Cache) Contains(tokenID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.revoked[tokenID]
	return ok
}

// Add records a revoked token ID. expiresAt is the token's exp claim; after
// that instant the entry is useless because the token fails expiry checks.
func (c *Cache) Add(tokenID string, expiresAt time.Time) {
	if !expiresAt.After(c.now()) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.revoked[tokenID]; exists {
		entry.expiresAt = expiresAt
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.revoked) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(tokenID)
	c.revoked[tokenID] = &cacheEntry{
		expiresAt: expiresAt,
		element:   elem,
	}
}

// Len returns the number of cached token IDs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.revoked)
}

// evictOldest removes the oldest entry from the cache.
// Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	tokenID, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.revoked, tokenID)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes entries whose tokens have expired.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for tokenID, entry := range c.revoked {
		if !entry.expiresAt.After(now) {
			c.order.Remove(entry.element)
			delete(c.revoked, tokenID)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
