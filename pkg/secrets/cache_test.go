package secrets

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries[T any](c *Cache[T]) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func TestCache_PutAndGet(t *testing.T) {
	cache := NewCache[map[string]string](2 * time.Second)
	key := "prod/cardlock/credentials"

	_, ok := cache.Get(key)
	require.False(t, ok, "expected miss on empty cache")

	cache.Put(key, map[string]string{"lock_id": "lock-5f1a"})

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "lock-5f1a", got["lock_id"])
}

func TestCache_Expiration(t *testing.T) {
	cache := NewCache[string](50 * time.Millisecond)
	cache.Put("k", "v")

	time.Sleep(80 * time.Millisecond)

	_, ok := cache.Get("k")
	assert.False(t, ok, "expected expired cache entry")
	assert.Equal(t, 0, entries(cache))
}

func TestCache_PutOverwrites(t *testing.T) {
	cache := NewCache[string](5 * time.Second)
	cache.Put("k", "v1")
	cache.Put("k", "v2")

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
	assert.Equal(t, 1, entries(cache))
}

func TestCache_CleanerRemovesExpired(t *testing.T) {
	cache := NewCache[string](10 * time.Millisecond)
	cache.Put("a", "1")
	cache.Put("b", "2")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.StartCleaner(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return entries(cache) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache[int](time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			cache.Put("k", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			cache.Get("k")
		}
	}()
	wg.Wait()

	_, ok := cache.Get("k")
	assert.True(t, ok)
}
