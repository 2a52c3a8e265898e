package services

import (
	"sync"
	"time"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/logger"
)

// maxPreloadQueue bounds the preload backlog; further jobs are dropped.
const maxPreloadQueue = 100

// cacheEntry is the uniform shape across all namespaces. An entry lives in
// exactly one namespace at a time; promotion moves it, never copies it.
type cacheEntry struct {
	data        []domain.ContentItem
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheLevel is one namespace with its own capacity, TTL and counters.
type cacheLevel struct {
	entries map[string]*cacheEntry
	maxSize int
	ttl     time.Duration

	hits        int64
	misses      int64
	evictions   int64
	promotions  int64
	expirations int64
}

// PreloadJob is a queued background warm-up of a sibling bucket query.
type PreloadJob struct {
	// Bucket to preload.
	Bucket domain.Bucket

	// Opts mirror the query that caused the preload.
	Opts domain.QueryOptions

	// Key is the cache fingerprint of the preload query.
	Key string
}

// Cache is the three-level content cache (hot, warm, cold) plus the
// separate search-result and metadata namespaces. Content lookups traverse
// hot, warm and cold in order; repeated access promotes entries upward.
type Cache struct {
	clock driven.Clock

	mu     sync.Mutex
	levels map[domain.CacheLevel]*cacheLevel

	warmThreshold int
	hotThreshold  int
	evictionAge   time.Duration
	maxHotSize    int
	batchSize     int

	preload        []PreloadJob
	preloadQueued  map[string]bool
	preloadsServed int64
}

// NewCache creates a cache with the given tuning.
func NewCache(cfg domain.CacheConfig, clock driven.Clock) *Cache {
	levels := make(map[domain.CacheLevel]*cacheLevel, len(cfg.Levels))
	for name, lc := range cfg.Levels {
		levels[name] = &cacheLevel{
			entries: make(map[string]*cacheEntry),
			maxSize: lc.MaxSize,
			ttl:     lc.TTL,
		}
	}

	hot := cfg.Levels[domain.CacheHot]

	return &Cache{
		clock:         clock,
		levels:        levels,
		warmThreshold: cfg.WarmPromotionThreshold,
		hotThreshold:  cfg.HotPromotionThreshold,
		evictionAge:   cfg.EvictionAge,
		maxHotSize:    hot.MaxSize + cfg.MaxHotGrowth,
		batchSize:     cfg.PreloadBatchSize,
		preloadQueued: make(map[string]bool),
	}
}

// contentChain is the lookup order for content queries.
var contentChain = []domain.CacheLevel{domain.CacheHot, domain.CacheWarm, domain.CacheCold}

// GetContent looks a content query up across hot, warm and cold.
// The first valid hit wins; a full miss counts against the hot level.
func (c *Cache) GetContent(key string) ([]domain.ContentItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for _, name := range contentChain {
		level := c.levels[name]
		entry, ok := level.entries[key]
		if !ok {
			continue
		}
		if now.Sub(entry.createdAt) >= level.ttl {
			delete(level.entries, key)
			level.expirations++
			continue
		}

		entry.lastAccess = now
		entry.accessCount++
		level.hits++
		c.maybePromote(name, key, entry)
		return entry.data, true
	}

	c.levels[domain.CacheHot].misses++
	return nil, false
}

// StoreContent inserts a content query result into the cold level.
// Promotion moves it upward on repeated access. A key already resident in
// the chain is refreshed in place; a content key never occupies two levels.
func (c *Cache) StoreContent(key string, data []domain.ContentItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for _, name := range contentChain {
		if entry, ok := c.levels[name].entries[key]; ok {
			entry.data = data
			entry.createdAt = now
			entry.lastAccess = now
			return
		}
	}
	c.insert(domain.CacheCold, key, &cacheEntry{
		data:       data,
		createdAt:  now,
		lastAccess: now,
	})
}

// GetSearch looks a search result up in its own namespace.
func (c *Cache) GetSearch(key string) ([]domain.ContentItem, bool) {
	return c.getSingle(domain.CacheSearchResults, key)
}

// StoreSearch stores a search result.
func (c *Cache) StoreSearch(key string, data []domain.ContentItem) {
	c.store(domain.CacheSearchResults, key, data)
}

// GetMetadata looks a metadata entry up in its own namespace.
func (c *Cache) GetMetadata(key string) ([]domain.ContentItem, bool) {
	return c.getSingle(domain.CacheMetadata, key)
}

// StoreMetadata stores a metadata entry.
func (c *Cache) StoreMetadata(key string, data []domain.ContentItem) {
	c.store(domain.CacheMetadata, key, data)
}

func (c *Cache) getSingle(name domain.CacheLevel, key string) ([]domain.ContentItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level := c.levels[name]
	entry, ok := level.entries[key]
	if !ok {
		level.misses++
		return nil, false
	}

	now := c.clock.Now()
	if now.Sub(entry.createdAt) >= level.ttl {
		delete(level.entries, key)
		level.expirations++
		level.misses++
		return nil, false
	}

	entry.lastAccess = now
	entry.accessCount++
	level.hits++
	return entry.data, true
}

func (c *Cache) store(name domain.CacheLevel, key string, data []domain.ContentItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.insert(name, key, &cacheEntry{
		data:       data,
		createdAt:  now,
		lastAccess: now,
	})
}

// insert places the entry, evicting the LRU entry when the level is full.
// Caller holds the lock.
func (c *Cache) insert(name domain.CacheLevel, key string, entry *cacheEntry) {
	level := c.levels[name]
	if _, exists := level.entries[key]; !exists && len(level.entries) >= level.maxSize {
		c.evictLRU(level)
	}
	level.entries[key] = entry
}

// evictLRU removes the entry with the oldest last access. Caller holds the
// lock.
func (c *Cache) evictLRU(level *cacheLevel) {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range level.entries {
		if first || entry.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccess
			first = false
		}
	}
	if oldestKey != "" {
		delete(level.entries, oldestKey)
		level.evictions++
	}
}

// maybePromote moves an entry upward when its access count crosses the
// level threshold. Caller holds the lock.
func (c *Cache) maybePromote(name domain.CacheLevel, key string, entry *cacheEntry) {
	var target domain.CacheLevel
	switch {
	case name == domain.CacheCold && entry.accessCount >= c.warmThreshold:
		target = domain.CacheWarm
	case name == domain.CacheWarm && entry.accessCount >= c.hotThreshold:
		target = domain.CacheHot
	default:
		return
	}

	delete(c.levels[name].entries, key)
	c.insert(target, key, entry)
	c.levels[target].promotions++
	logger.Debug("cache promotion: %s -> %s (%s)", name, target, key)
}

// Invalidate removes the keys from every namespace.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, level := range c.levels {
		for _, key := range keys {
			delete(level.entries, key)
		}
	}
	for _, key := range keys {
		delete(c.preloadQueued, key)
	}
}

// InvalidateAll clears every namespace and the preload queue.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, level := range c.levels {
		level.entries = make(map[string]*cacheEntry)
	}
	c.preload = nil
	c.preloadQueued = make(map[string]bool)
}

// Sweep removes entries idle beyond the eviction age, regardless of TTL.
// Returns the number of removed entries.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for _, level := range c.levels {
		for key, entry := range level.entries {
			if now.Sub(entry.lastAccess) > c.evictionAge {
				delete(level.entries, key)
				level.evictions++
				removed++
			}
		}
	}
	if removed > 0 {
		logger.Debug("cache sweep removed %d idle entries", removed)
	}
	return removed
}

// Optimizer tuning limits.
const (
	hotGrowHitRate   = 0.8
	coldBusyHitRate  = 0.5
	minWarmThreshold = 2
)

// Optimize adjusts tuning from observed traffic: a well-hit, full hot level
// grows (bounded), and an unusually busy cold level lowers the warm
// promotion threshold so entries climb faster.
func (c *Cache) Optimize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	hot := c.levels[domain.CacheHot]
	hotTotal := hot.hits + hot.misses
	if hotTotal > 0 && float64(hot.hits)/float64(hotTotal) >= hotGrowHitRate &&
		len(hot.entries) >= hot.maxSize && hot.maxSize < c.maxHotSize {
		grown := hot.maxSize + hot.maxSize/4
		if grown > c.maxHotSize {
			grown = c.maxHotSize
		}
		logger.Info("cache optimizer: hot level %d -> %d entries", hot.maxSize, grown)
		hot.maxSize = grown
	}

	cold := c.levels[domain.CacheCold]
	coldTotal := cold.hits + cold.misses
	if coldTotal > 0 && float64(cold.hits)/float64(coldTotal) >= coldBusyHitRate &&
		c.warmThreshold > minWarmThreshold {
		c.warmThreshold--
		logger.Info("cache optimizer: warm promotion threshold lowered to %d", c.warmThreshold)
	}
}

// EnqueuePreload schedules a sibling-bucket warm-up. Jobs already queued or
// beyond the backlog bound are dropped.
func (c *Cache) EnqueuePreload(job PreloadJob) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.preloadQueued[job.Key] || len(c.preload) >= maxPreloadQueue {
		return
	}
	for _, name := range contentChain {
		if _, cached := c.levels[name].entries[job.Key]; cached {
			return
		}
	}
	c.preloadQueued[job.Key] = true
	c.preload = append(c.preload, job)
}

// DrainPreload removes and returns up to one batch of queued preload jobs.
func (c *Cache) DrainPreload() []PreloadJob {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.batchSize
	if n > len(c.preload) {
		n = len(c.preload)
	}
	if n == 0 {
		return nil
	}

	batch := c.preload[:n]
	c.preload = append([]PreloadJob(nil), c.preload[n:]...)
	for _, job := range batch {
		delete(c.preloadQueued, job.Key)
	}
	c.preloadsServed += int64(n)
	return batch
}

// Stats exports all counters for the monitor.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Levels:          make(map[domain.CacheLevel]domain.CacheLevelStats, len(c.levels)),
		PreloadQueueLen: len(c.preload),
		PreloadsServed:  c.preloadsServed,
	}
	for name, level := range c.levels {
		stats.Levels[name] = domain.CacheLevelStats{
			Size:        len(level.entries),
			MaxSize:     level.maxSize,
			Hits:        level.hits,
			Misses:      level.misses,
			Evictions:   level.evictions,
			Promotions:  level.promotions,
			Expirations: level.expirations,
		}
	}
	return stats
}

// levelOf reports which namespace currently holds the key, for tests and
// coherence checks.
func (c *Cache) levelOf(key string) (domain.CacheLevel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, level := range c.levels {
		if _, ok := level.entries[key]; ok {
			return name, true
		}
	}
	return "", false
}

// WarmThreshold returns the current cold-to-warm promotion threshold.
func (c *Cache) WarmThreshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warmThreshold
}
