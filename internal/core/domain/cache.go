package domain

import "time"

// CacheLevel names one of the five cache namespaces.
type CacheLevel string

// Available cache levels. Content queries traverse hot, warm and cold in
// order; search results and metadata live in their own namespaces.
const (
	CacheHot           CacheLevel = "hot"
	CacheWarm          CacheLevel = "warm"
	CacheCold          CacheLevel = "cold"
	CacheMetadata      CacheLevel = "metadata"
	CacheSearchResults CacheLevel = "searchResults"
)

// CacheLevelConfig holds capacity and lifetime for one level.
type CacheLevelConfig struct {
	// MaxSize is the entry cap; reaching it evicts the LRU entry.
	MaxSize int

	// TTL bounds entry validity from creation time.
	TTL time.Duration
}

// CacheConfig holds the full cache tuning.
type CacheConfig struct {
	// Levels configures each namespace.
	Levels map[CacheLevel]CacheLevelConfig

	// WarmPromotionThreshold is the access count that promotes cold→warm.
	WarmPromotionThreshold int

	// HotPromotionThreshold is the access count that promotes warm→hot.
	HotPromotionThreshold int

	// EvictionAge is the idle time after which the periodic sweep removes
	// an entry regardless of TTL.
	EvictionAge time.Duration

	// PreloadBatchSize caps how many queued preloads one worker run
	// processes.
	PreloadBatchSize int

	// MaxHotGrowth bounds how far the optimizer may grow the hot level
	// beyond its configured MaxSize.
	MaxHotGrowth int
}

// DefaultCacheConfig returns the standard tuning.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Levels: map[CacheLevel]CacheLevelConfig{
			CacheHot:           {MaxSize: 100, TTL: time.Hour},
			CacheWarm:          {MaxSize: 500, TTL: 30 * time.Minute},
			CacheCold:          {MaxSize: 2000, TTL: 15 * time.Minute},
			CacheMetadata:      {MaxSize: 50, TTL: 2 * time.Hour},
			CacheSearchResults: {MaxSize: 200, TTL: 5 * time.Minute},
		},
		WarmPromotionThreshold: 3,
		HotPromotionThreshold:  5,
		EvictionAge:            time.Hour,
		PreloadBatchSize:       10,
		MaxHotGrowth:           100,
	}
}

// CacheLevelStats holds per-level counters exported to the monitor.
type CacheLevelStats struct {
	// Size is the current entry count.
	Size int `json:"size"`

	// MaxSize is the current (possibly optimizer-grown) cap.
	MaxSize int `json:"maxSize"`

	// Hits counts valid lookups answered by this level.
	Hits int64 `json:"hits"`

	// Misses counts lookups this level could not answer.
	Misses int64 `json:"misses"`

	// Evictions counts LRU and sweep removals.
	Evictions int64 `json:"evictions"`

	// Promotions counts entries moved into this level by access count.
	Promotions int64 `json:"promotions"`

	// Expirations counts entries dropped on access because their TTL ran
	// out.
	Expirations int64 `json:"expirations"`
}

// HitRate returns hits / (hits + misses), or 0 without traffic.
func (s CacheLevelStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CacheStats aggregates all level counters.
type CacheStats struct {
	// Levels holds the per-namespace counters.
	Levels map[CacheLevel]CacheLevelStats `json:"levels"`

	// PreloadQueueLen is the current preload backlog.
	PreloadQueueLen int `json:"preloadQueueLen"`

	// PreloadsServed counts processed preload jobs.
	PreloadsServed int64 `json:"preloadsServed"`
}
