// ABOUTME: Tests for the revoked token denylist cache
// ABOUTME: Validates expiry handling, size limits, eviction order, cleanup, and concurrency safety

package denylist

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_ContainsUnknown(t *testing.T) {
	cache := New(100)
	defer cache.Close()

	assert.False(t, cache.Contains("never-revoked"))
}

func TestCache_Add(t *testing.T) {
	cache := New(100)
	defer cache.Close()

	cache.Add("tok-1", time.Now().Add(time.Hour))
	cache.Add("tok-2", time.Now().Add(time.Hour))

	assert.True(t, cache.Contains("tok-1"))
	assert.True(t, cache.Contains("tok-2"))
	assert.False(t, cache.Contains("tok-3"))
	assert.Equal(t, 2, cache.Len())
}

func TestCache_AddExpiredIsIgnored(t *testing.T) {
	cache := New(100)
	defer cache.Close()

	cache.Add("stale", time.Now().Add(-time.Second))

	assert.False(t, cache.Contains("stale"))
	assert.Equal(t, 0, cache.Len())
}

func TestCache_EvictionOrder(t *testing.T) {
	cache := New(3)
	defer cache.Close()

	exp := time.Now().Add(time.Hour)
	cache.Add("first", exp)
	cache.Add("second", exp)
	cache.Add("third", exp)

	cache.Add("fourth", exp)
	assert.False(t, cache.Contains("first"), "oldest entry should be evicted")
	assert.True(t, cache.Contains("second"))
	assert.True(t, cache.Contains("fourth"))

	// Re-adding refreshes position
	cache.Add("second", exp)
	cache.Add("fifth", exp)
	assert.False(t, cache.Contains("third"))
	assert.True(t, cache.Contains("second"))
	assert.Equal(t, 3, cache.Len())
}

func TestCache_Cleanup(t *testing.T) {
	cache := New(100)
	defer cache.Close()

	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Add("short", now.Add(time.Minute))
	cache.Add("long", now.Add(time.Hour))

	cache.now = func() time.Time { return now.Add(2 * time.Minute) }
	cache.runCleanup()

	assert.False(t, cache.Contains("short"))
	assert.True(t, cache.Contains("long"))

	cache.mu.RLock()
	listLen := cache.order.Len()
	cache.mu.RUnlock()
	assert.Equal(t, 1, listLen, "cleanup should keep list and map in sync")
}

func TestCache_Concurrent(t *testing.T) {
	cache := New(1000)
	defer cache.Close()

	exp := time.Now().Add(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("tok-%d-%d", id, j%10)
				cache.Add(key, exp)
				cache.Contains(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 500, cache.Len())
}

func TestCache_Close(t *testing.T) {
	cache := New(10)
	cache.Close()
	cache.Close()
}
