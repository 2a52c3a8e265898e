package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/logger"
)

// systemClock is the production Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() driven.Clock { return systemClock{} }

// Dependencies carries everything the core needs from the outside.
type Dependencies struct {
	// Catalog loads the content library.
	Catalog driven.CatalogProvider

	// Rules supplies category definitions and mapping rules.
	Rules driven.RuleStore

	// Progress persists the user's progress record.
	Progress driven.ProgressStore

	// Config persists application settings.
	Config driven.ConfigStore

	// Clock supplies timestamps; nil means the wall clock.
	Clock driven.Clock

	// CacheConfig overrides the cache tuning; nil means defaults.
	CacheConfig *domain.CacheConfig

	// MonitorConfig overrides the monitor tuning; nil means defaults.
	MonitorConfig *domain.MonitorConfig
}

// ContentCore is the façade over the catalog, mapping, index, cache, query,
// monitoring, migration and specialization services. The host constructs one
// core and drives everything through it.
type ContentCore struct {
	deps  Dependencies
	clock driven.Clock

	cache          *Cache
	monitor        *Monitor
	mapper         *CategoryMapper
	specialization *SpecializationPolicy
	categories     []domain.CategoryMetadata

	// Catalog-dependent services; replaced wholesale on reload.
	mu       sync.RWMutex
	store    *ContentStore
	indexer  *Indexer
	engine   *QueryEngine
	migrator *ProgressMigrator

	maintenance *Maintenance
}

// NewContentCore initialises the full service graph: rules, catalog, bucket
// assignment, indexes, cache and monitoring. A catalog or rule failure fails
// the whole initialisation.
func NewContentCore(ctx context.Context, deps Dependencies) (*ContentCore, error) {
	clock := deps.Clock
	if clock == nil {
		clock = systemClock{}
	}

	mapper, err := NewCategoryMapper(ctx, deps.Rules)
	if err != nil {
		return nil, fmt.Errorf("initialising category mapper: %w", err)
	}

	categories, err := deps.Rules.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading category metadata: %w", err)
	}

	store, err := NewContentStore(ctx, deps.Catalog)
	if err != nil {
		return nil, err
	}
	store.assignBuckets(mapper)

	if report := mapper.Validate(store.All()); !report.OK() {
		for _, msg := range report.Errors {
			logger.Warn("mapping validation: %s", msg)
		}
	} else {
		for _, msg := range report.Warnings {
			logger.Debug("mapping validation: %s", msg)
		}
	}

	cacheCfg := domain.DefaultCacheConfig()
	if deps.CacheConfig != nil {
		cacheCfg = *deps.CacheConfig
	}
	monitorCfg := domain.DefaultMonitorConfig()
	if deps.MonitorConfig != nil {
		monitorCfg = *deps.MonitorConfig
	}

	cache := NewCache(cacheCfg, clock)
	monitor := NewMonitor(monitorCfg, clock, cache)
	indexer := NewIndexer(store, clock)
	engine := NewQueryEngine(store, indexer, cache, monitor, clock)
	migrator := NewProgressMigrator(store, mapper, deps.Progress, clock)
	specialization := NewSpecializationPolicy(deps.Config, deps.Progress)

	core := &ContentCore{
		deps:           deps,
		clock:          clock,
		cache:          cache,
		monitor:        monitor,
		mapper:         mapper,
		specialization: specialization,
		categories:     categories,
		store:          store,
		indexer:        indexer,
		engine:         engine,
		migrator:       migrator,
	}
	core.maintenance = NewMaintenance(cache, engine, monitor, indexer)

	logger.Info("content core initialised: %d items, %d mapping rules", store.Len(), len(mapper.Rules()))

	return core, nil
}

// ReloadCatalog rebuilds the catalog-dependent services after the content
// files changed on disk, and drops every cached result. Queries in flight
// finish against the old store.
func (c *ContentCore) ReloadCatalog(ctx context.Context) error {
	store, err := NewContentStore(ctx, c.deps.Catalog)
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}
	store.assignBuckets(c.mapper)

	indexer := NewIndexer(store, c.clock)
	engine := NewQueryEngine(store, indexer, c.cache, c.monitor, c.clock)
	migrator := NewProgressMigrator(store, c.mapper, c.deps.Progress, c.clock)

	c.mu.Lock()
	c.store = store
	c.indexer = indexer
	c.engine = engine
	c.migrator = migrator
	c.mu.Unlock()

	c.maintenance.Retarget(engine, indexer)
	c.cache.InvalidateAll()
	logger.Info("catalog reloaded: %d items", store.Len())
	return nil
}

// GetByBucket returns the items of one bucket, filtered, sorted and
// paginated.
func (c *ContentCore) GetByBucket(ctx context.Context, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error) {
	c.mu.RLock()
	engine := c.engine
	c.mu.RUnlock()
	return engine.GetByBucket(ctx, bucket, opts)
}

// SearchInBucket runs a full-text search scoped to one bucket.
func (c *ContentCore) SearchInBucket(ctx context.Context, query string, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error) {
	c.mu.RLock()
	engine := c.engine
	c.mu.RUnlock()
	return engine.SearchInBucket(ctx, query, bucket, opts)
}

// GetContentItem returns one item by id, served through the metadata cache.
func (c *ContentCore) GetContentItem(id string) (*domain.ContentItem, bool) {
	key := "item:" + id
	if cached, ok := c.cache.GetMetadata(key); ok && len(cached) == 1 {
		return &cached[0], true
	}

	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()

	item, ok := store.Get(id)
	if !ok {
		return nil, false
	}
	c.cache.StoreMetadata(key, []domain.ContentItem{*item})
	return item, true
}

// CategoryMetadata returns the display metadata of the three buckets.
func (c *ContentCore) CategoryMetadata() []domain.CategoryMetadata {
	return c.categories
}

// MappingReport validates the current catalog against the mapping rules.
func (c *ContentCore) MappingReport() *domain.MappingReport {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()
	return c.mapper.Validate(store.All())
}

// Invalidate drops the given cache keys from every namespace.
func (c *ContentCore) Invalidate(keys ...string) {
	c.cache.Invalidate(keys...)
}

// InvalidateAll drops every cached result.
func (c *ContentCore) InvalidateAll() {
	c.cache.InvalidateAll()
}

// RebuildIndex forces an immediate index rebuild.
func (c *ContentCore) RebuildIndex() {
	c.mu.RLock()
	indexer := c.indexer
	c.mu.RUnlock()
	indexer.Rebuild()
}

// MetricsReport summarises the monitoring window; zero uses full retention.
func (c *ContentCore) MetricsReport(window time.Duration) *domain.MonitorReport {
	return c.monitor.Report(window)
}

// AcknowledgeAlert marks an alert as seen.
func (c *ContentCore) AcknowledgeAlert(alertID string) bool {
	return c.monitor.Acknowledge(alertID)
}

// Progress returns the current progress record.
func (c *ContentCore) Progress(ctx context.Context) (*domain.ProgressRecord, error) {
	return c.deps.Progress.Get(ctx)
}

// MigrateProgress runs the transactional progress migration.
func (c *ContentCore) MigrateProgress(ctx context.Context, progress *domain.ProgressRecord, force bool) (*domain.MigrationResult, error) {
	c.mu.RLock()
	migrator := c.migrator
	c.mu.RUnlock()
	return migrator.Migrate(ctx, progress, force)
}

// RollbackMigration restores the backup of a committed migration.
func (c *ContentCore) RollbackMigration(ctx context.Context, migrationID string) error {
	c.mu.RLock()
	migrator := c.migrator
	c.mu.RUnlock()
	return migrator.Rollback(ctx, migrationID)
}

// IsMigrated reports whether the record carries a migration stamp.
func (c *ContentCore) IsMigrated(progress *domain.ProgressRecord) bool {
	return progress.IsMigrated()
}

// SetSpecialization selects the exam track.
func (c *ContentCore) SetSpecialization(ctx context.Context, spec domain.Specialization) error {
	return c.specialization.Set(ctx, spec)
}

// Specialization returns the selected exam track, if any.
func (c *ContentCore) Specialization() (domain.Specialization, bool) {
	return c.specialization.Get()
}

// FilterForSpecialization narrows items to those relevant for the track.
func (c *ContentCore) FilterForSpecialization(items []domain.ContentItem, spec domain.Specialization, minLevel domain.Relevance) []domain.ContentItem {
	return c.specialization.Filter(items, spec, minLevel)
}

// Maintenance returns the background worker for the host to start.
func (c *ContentCore) Maintenance() *Maintenance {
	return c.maintenance
}

// CacheStats exports the cache counters.
func (c *ContentCore) CacheStats() domain.CacheStats {
	return c.cache.Stats()
}
