package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// smallCacheConfig keeps levels tiny so eviction paths are easy to hit.
func smallCacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		Levels: map[domain.CacheLevel]domain.CacheLevelConfig{
			domain.CacheHot:           {MaxSize: 4, TTL: time.Hour},
			domain.CacheWarm:          {MaxSize: 4, TTL: time.Hour},
			domain.CacheCold:          {MaxSize: 2, TTL: 15 * time.Minute},
			domain.CacheMetadata:      {MaxSize: 2, TTL: time.Hour},
			domain.CacheSearchResults: {MaxSize: 2, TTL: 5 * time.Minute},
		},
		WarmPromotionThreshold: 3,
		HotPromotionThreshold:  5,
		EvictionAge:            10 * time.Minute,
		PreloadBatchSize:       2,
		MaxHotGrowth:           4,
	}
}

func items(ids ...string) []domain.ContentItem {
	out := make([]domain.ContentItem, len(ids))
	for i, id := range ids {
		out[i] = domain.ContentItem{ID: id}
	}
	return out
}

func TestCache_StoreAndLookup(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreContent("k1", items("bp-01"))

	level, ok := cache.levelOf("k1")
	require.True(t, ok)
	assert.Equal(t, domain.CacheCold, level)

	got, ok := cache.GetContent("k1")
	require.True(t, ok)
	assert.Equal(t, "bp-01", got[0].ID)

	_, ok = cache.GetContent("missing")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Levels[domain.CacheCold].Hits)
	assert.Equal(t, int64(1), stats.Levels[domain.CacheHot].Misses)
}

func TestCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreContent("k1", items("bp-01"))
	clock.Advance(16 * time.Minute)

	_, ok := cache.GetContent("k1")
	assert.False(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Levels[domain.CacheCold].Expirations)

	_, stillThere := cache.levelOf("k1")
	assert.False(t, stillThere)
}

func TestCache_PromotionClimbsLevels(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreContent("k1", items("bp-01"))

	// Third access crosses the warm threshold.
	for i := 0; i < 3; i++ {
		_, ok := cache.GetContent("k1")
		require.True(t, ok)
	}
	level, _ := cache.levelOf("k1")
	assert.Equal(t, domain.CacheWarm, level)

	// Two more accesses cross the hot threshold; the count travels with
	// the entry.
	for i := 0; i < 2; i++ {
		_, ok := cache.GetContent("k1")
		require.True(t, ok)
	}
	level, _ = cache.levelOf("k1")
	assert.Equal(t, domain.CacheHot, level)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Levels[domain.CacheWarm].Promotions)
	assert.Equal(t, int64(1), stats.Levels[domain.CacheHot].Promotions)
}

func TestCache_LRUEviction(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreContent("k1", items("bp-01"))
	clock.Advance(time.Second)
	cache.StoreContent("k2", items("bp-02"))
	clock.Advance(time.Second)

	// Touch k1 so k2 becomes the LRU entry.
	_, ok := cache.GetContent("k1")
	require.True(t, ok)
	clock.Advance(time.Second)

	// Cold holds 2 entries; a third evicts k2.
	cache.StoreContent("k3", items("bp-03"))

	_, ok = cache.levelOf("k2")
	assert.False(t, ok)
	_, ok = cache.levelOf("k1")
	assert.True(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Levels[domain.CacheCold].Evictions)
}

func TestCache_SweepRemovesIdleEntries(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreContent("idle", items("bp-01"))
	clock.Advance(5 * time.Minute)
	cache.StoreContent("fresh", items("bp-02"))

	// 11 minutes since "idle" was touched, 6 since "fresh".
	clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, cache.Sweep())
	_, ok := cache.levelOf("idle")
	assert.False(t, ok)
	_, ok = cache.levelOf("fresh")
	assert.True(t, ok)
}

func TestCache_SearchAndMetadataNamespaces(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreSearch("s1", items("bp-01"))
	cache.StoreMetadata("m1", items("bp-02"))

	got, ok := cache.GetSearch("s1")
	require.True(t, ok)
	assert.Equal(t, "bp-01", got[0].ID)

	// Search results never surface through the content chain.
	_, ok = cache.GetContent("s1")
	assert.False(t, ok)

	// Search entries expire on their own shorter TTL.
	clock.Advance(6 * time.Minute)
	_, ok = cache.GetSearch("s1")
	assert.False(t, ok)

	_, ok = cache.GetMetadata("m1")
	assert.True(t, ok)
}

func TestCache_InvalidateAll(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.StoreContent("k1", items("bp-01"))
	cache.StoreSearch("s1", items("bp-02"))
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketAE, Key: "p1"})

	cache.InvalidateAll()

	_, ok := cache.levelOf("k1")
	assert.False(t, ok)
	_, ok = cache.GetSearch("s1")
	assert.False(t, ok)
	assert.Zero(t, cache.Stats().PreloadQueueLen)

	// The dedupe marker was dropped with the queue.
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketAE, Key: "p1"})
	assert.Equal(t, 1, cache.Stats().PreloadQueueLen)
}

func TestCache_PreloadQueue(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketAE, Key: "p1"})
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketAE, Key: "p1"}) // duplicate
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketGeneral, Key: "p2"})
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketDPA, Key: "p3"})

	// Already cached content is never queued.
	cache.StoreContent("p4", items("bp-01"))
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketDPA, Key: "p4"})

	assert.Equal(t, 3, cache.Stats().PreloadQueueLen)

	batch := cache.DrainPreload()
	require.Len(t, batch, 2) // batch size
	assert.Equal(t, "p1", batch[0].Key)
	assert.Equal(t, "p2", batch[1].Key)
	assert.Equal(t, 1, cache.Stats().PreloadQueueLen)

	// Drained keys may be queued again.
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketAE, Key: "p1"})
	assert.Equal(t, 2, cache.Stats().PreloadQueueLen)

	assert.Len(t, cache.DrainPreload(), 2)
	assert.Nil(t, cache.DrainPreload())
	assert.Equal(t, int64(4), cache.Stats().PreloadsServed)
}

func TestCache_PreloadNeverDuplicatesAcrossLevels(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	occupancy := func(key string) int {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		n := 0
		for _, name := range contentChain {
			if _, ok := cache.levels[name].entries[key]; ok {
				n++
			}
		}
		return n
	}

	// Promote k1 out of the cold level.
	cache.StoreContent("k1", items("bp-01"))
	for i := 0; i < 3; i++ {
		_, ok := cache.GetContent("k1")
		require.True(t, ok)
	}
	level, _ := cache.levelOf("k1")
	require.Equal(t, domain.CacheWarm, level)

	// A preload of a key resident anywhere in the chain is dropped.
	cache.EnqueuePreload(PreloadJob{Bucket: domain.BucketDPA, Key: "k1"})
	assert.Zero(t, cache.Stats().PreloadQueueLen)

	// A racing store refreshes the resident entry instead of re-inserting
	// into cold.
	cache.StoreContent("k1", items("bp-01", "bp-02"))
	assert.Equal(t, 1, occupancy("k1"))
	level, _ = cache.levelOf("k1")
	assert.Equal(t, domain.CacheWarm, level)

	got, ok := cache.GetContent("k1")
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestCache_OptimizeGrowsHotLevel(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)

	// Fill the hot level and generate a perfect hit rate on it.
	for i := 0; i < 4; i++ {
		cache.store(domain.CacheHot, fmt.Sprintf("h%d", i), items("bp-01"))
	}
	for i := 0; i < 4; i++ {
		_, ok := cache.GetContent(fmt.Sprintf("h%d", i))
		require.True(t, ok)
	}

	cache.Optimize()

	assert.Equal(t, 5, cache.Stats().Levels[domain.CacheHot].MaxSize)
}

func TestCache_OptimizeLowersWarmThreshold(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(smallCacheConfig(), clock)
	require.Equal(t, 3, cache.WarmThreshold())

	cache.StoreContent("k1", items("bp-01"))
	_, ok := cache.GetContent("k1")
	require.True(t, ok)

	cache.Optimize()
	assert.Equal(t, 2, cache.WarmThreshold())

	// Never below the floor.
	cache.Optimize()
	assert.Equal(t, 2, cache.WarmThreshold())
}
