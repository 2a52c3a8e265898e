package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lernkern/lernkern/internal/logger"
)

// Maintenance task intervals.
const (
	tickInterval         = 10 * time.Second
	snapshotInterval     = 10 * time.Second
	trendInterval        = 5 * time.Minute
	sweepInterval        = 5 * time.Minute
	optimizeInterval     = 10 * time.Minute
	retentionInterval    = 10 * time.Minute
	preloadBatchesPerMin = 6
	preloadBurst         = 2
)

// maintenanceTask is one periodic job with its own cadence.
type maintenanceTask struct {
	name     string
	interval time.Duration
	nextRun  time.Time
	run      func(ctx context.Context)
}

// Maintenance drives the periodic background work: cache sweeps, the cache
// optimizer, preload processing, monitor snapshots, trend analysis and
// retention. It is a pure core service with no external control API.
type Maintenance struct {
	cache   *Cache
	monitor *Monitor

	limiter *rate.Limiter

	// engine and indexer are replaced by Retarget on a catalog reload.
	mu      sync.Mutex
	engine  *QueryEngine
	indexer *Indexer
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	tasks   []*maintenanceTask
}

// NewMaintenance wires the worker. Preload batches are rate limited so a
// burst of queries cannot monopolise the store.
func NewMaintenance(cache *Cache, engine *QueryEngine, monitor *Monitor, indexer *Indexer) *Maintenance {
	m := &Maintenance{
		cache:   cache,
		engine:  engine,
		monitor: monitor,
		indexer: indexer,
		limiter: rate.NewLimiter(rate.Every(time.Minute/preloadBatchesPerMin), preloadBurst),
	}

	m.tasks = []*maintenanceTask{
		{name: "preload", interval: tickInterval, run: m.runPreloads},
		{name: "snapshot", interval: snapshotInterval, run: m.runSnapshot},
		{name: "trends", interval: trendInterval, run: m.runTrends},
		{name: "sweep", interval: sweepInterval, run: m.runSweep},
		{name: "optimize", interval: optimizeInterval, run: m.runOptimize},
		{name: "retention", interval: retentionInterval, run: m.runRetention},
	}

	return m
}

// Start begins the maintenance loop. This method blocks until Stop is called
// or the context is cancelled.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil // Already running
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	logger.Debug("maintenance loop started")

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stopCh:
			return nil
		case now := <-ticker.C:
			m.runDueTasks(ctx, now)
		}
	}
}

// Retarget points the background tasks at the engine and indexer built by a
// catalog reload, so preloads never resurrect results from a discarded
// catalog. Safe to call while the loop runs.
func (m *Maintenance) Retarget(engine *QueryEngine, indexer *Indexer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine = engine
	m.indexer = indexer
}

// Stop gracefully shuts down the loop and waits for running tasks.
func (m *Maintenance) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// runDueTasks executes every task whose cadence has elapsed.
func (m *Maintenance) runDueTasks(ctx context.Context, now time.Time) {
	for _, task := range m.tasks {
		if now.Before(task.nextRun) {
			continue
		}
		task.nextRun = now.Add(task.interval)

		m.wg.Add(1)
		go func(t *maintenanceTask) {
			defer m.wg.Done()
			t.run(ctx)
		}(task)
	}
}

// runPreloads drains one rate-limited batch of queued preload jobs.
func (m *Maintenance) runPreloads(ctx context.Context) {
	if !m.limiter.Allow() {
		return
	}
	m.mu.Lock()
	engine := m.engine
	m.mu.Unlock()
	if n := engine.ProcessPreloads(); n > 0 {
		logger.Debug("maintenance: preloaded %d queries", n)
	}
}

// runSnapshot collects the periodic monitor snapshot.
func (m *Maintenance) runSnapshot(ctx context.Context) {
	m.monitor.CollectSnapshot()
}

// runTrends refreshes the trend analysis.
func (m *Maintenance) runTrends(ctx context.Context) {
	m.monitor.AnalyzeTrends()
}

// runSweep evicts idle cache entries and refreshes a stale index so the next
// query does not pay for the rebuild.
func (m *Maintenance) runSweep(ctx context.Context) {
	m.cache.Sweep()
	m.mu.Lock()
	indexer := m.indexer
	m.mu.Unlock()
	if indexer.Stale() {
		indexer.Rebuild()
	}
}

// runOptimize lets the cache adjust its tuning from observed traffic.
func (m *Maintenance) runOptimize(ctx context.Context) {
	m.cache.Optimize()
}

// runRetention drops metrics and acknowledged alerts past the retention
// window.
func (m *Maintenance) runRetention(ctx context.Context) {
	m.monitor.DropExpired()
}
