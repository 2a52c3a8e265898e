package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernkern/lernkern/internal/core/domain"
)

func testMonitorConfig() domain.MonitorConfig {
	return domain.MonitorConfig{
		RingSize:  100,
		Retention: time.Hour,
		Thresholds: map[string]time.Duration{
			domain.OpCategoryFilter: 100 * time.Millisecond,
		},
		MemoryThresholdMB: 256,
		CoalesceWindow:    time.Minute,
		TrendWindow:       30 * time.Minute,
		TrendMinSamples:   5,
	}
}

func newTestMonitor() (*Monitor, *fakeClock) {
	clock := newFakeClock()
	return NewMonitor(testMonitorConfig(), clock, nil), clock
}

func metric(clock *fakeClock, op string, d time.Duration, hit bool) domain.Metric {
	return domain.Metric{
		Timestamp: clock.Now(),
		Op:        op,
		Duration:  d,
		CacheHit:  hit,
	}
}

func TestMonitor_ThresholdAlerts(t *testing.T) {
	m, clock := newTestMonitor()

	// Under the threshold: no alert.
	m.Record(metric(clock, domain.OpCategoryFilter, 50*time.Millisecond, false))
	assert.Empty(t, m.Report(0).Alerts)

	// Over the threshold: medium severity.
	m.Record(metric(clock, domain.OpCategoryFilter, 150*time.Millisecond, false))
	alerts := m.Report(0).Alerts
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityMedium, alerts[0].Severity)
	assert.Equal(t, domain.AlertPerformance, alerts[0].Kind)
	assert.Equal(t, float64(100), alerts[0].Threshold)
	assert.Equal(t, float64(150), alerts[0].Actual)

	// Over twice the threshold: high severity, separate alert.
	m.Record(metric(clock, domain.OpCategoryFilter, 250*time.Millisecond, false))
	alerts = m.Report(0).Alerts
	require.Len(t, alerts, 2)
	assert.Equal(t, domain.SeverityHigh, alerts[1].Severity)
}

func TestMonitor_AlertCoalescing(t *testing.T) {
	m, clock := newTestMonitor()

	m.Record(metric(clock, domain.OpCategoryFilter, 150*time.Millisecond, false))
	clock.Advance(10 * time.Second)
	m.Record(metric(clock, domain.OpCategoryFilter, 160*time.Millisecond, false))
	assert.Len(t, m.Report(0).Alerts, 1)

	// Outside the coalescing window a fresh alert is raised.
	clock.Advance(2 * time.Minute)
	m.Record(metric(clock, domain.OpCategoryFilter, 150*time.Millisecond, false))
	assert.Len(t, m.Report(0).Alerts, 2)
}

func TestMonitor_MemoryAlert(t *testing.T) {
	m, clock := newTestMonitor()

	m.Record(domain.Metric{
		Timestamp: clock.Now(),
		Op:        domain.OpCategoryFilter,
		Duration:  time.Millisecond,
		MemoryMB:  600,
	})

	alerts := m.Report(0).Alerts
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertMemory, alerts[0].Kind)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)
}

func TestMonitor_Acknowledge(t *testing.T) {
	m, clock := newTestMonitor()
	m.Record(metric(clock, domain.OpCategoryFilter, 150*time.Millisecond, false))

	alerts := m.Report(0).Alerts
	require.Len(t, alerts, 1)

	assert.False(t, m.Acknowledge("alert-99"))
	assert.True(t, m.Acknowledge(alerts[0].ID))
	assert.Empty(t, m.Report(0).Alerts)
}

func TestMonitor_RingSizeCap(t *testing.T) {
	clock := newFakeClock()
	cfg := testMonitorConfig()
	cfg.RingSize = 3
	m := NewMonitor(cfg, clock, nil)

	for i := 0; i < 5; i++ {
		m.Record(metric(clock, domain.OpCategorySearch, time.Millisecond, false))
	}

	stats := m.Report(0).PerOp[domain.OpCategorySearch]
	assert.Equal(t, 3, stats.Count)
}

func TestMonitor_OpStats(t *testing.T) {
	m, clock := newTestMonitor()

	m.Record(metric(clock, domain.OpCategorySearch, 10*time.Millisecond, true))
	m.Record(metric(clock, domain.OpCategorySearch, 30*time.Millisecond, false))
	m.Record(domain.Metric{
		Timestamp:   clock.Now(),
		Op:          domain.OpCategorySearch,
		Duration:    20 * time.Millisecond,
		ResultCount: 6,
		CacheHit:    true,
	})

	stats := m.Report(0).PerOp[domain.OpCategorySearch]
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 20*time.Millisecond, stats.Avg)
	assert.Equal(t, 30*time.Millisecond, stats.Max)
	assert.Equal(t, 10*time.Millisecond, stats.Min)
	assert.InDelta(t, 2.0/3.0, stats.CacheHitRate, 1e-9)
	assert.InDelta(t, 2.0, stats.AvgResultCount, 1e-9)
}

func TestMonitor_WindowPercentiles(t *testing.T) {
	m, clock := newTestMonitor()

	for i := 1; i <= 10; i++ {
		m.Record(metric(clock, domain.OpCategorySearch, time.Duration(i)*time.Millisecond, false))
	}

	stats := m.windowStats(domain.OpCategorySearch, 5*time.Minute)
	assert.Equal(t, 10, stats.Count)
	assert.Equal(t, 5*time.Millisecond, stats.P50)
	assert.Equal(t, 10*time.Millisecond, stats.P95)
	assert.Equal(t, 10*time.Millisecond, stats.P99)
	assert.Zero(t, stats.ErrorRate)
}

func TestMonitor_Trends(t *testing.T) {
	m, clock := newTestMonitor()

	// Durations growing by 2ms per minute: a clear upward trend.
	for i := 0; i < 8; i++ {
		m.Record(metric(clock, domain.OpCategorySearch, time.Duration(10+2*i)*time.Millisecond, false))
		clock.Advance(time.Minute)
	}
	m.AnalyzeTrends()

	trend, ok := m.Report(0).Trends[domain.OpCategorySearch]
	require.True(t, ok)
	assert.Equal(t, domain.TrendIncreasing, trend.Direction)
	assert.InDelta(t, 2.0, trend.SlopeMsPerMin, 0.01)
	assert.InDelta(t, 1.0, trend.Confidence, 0.01)
	assert.Equal(t, 8, trend.Samples)
}

func TestMonitor_Trends_StableAndSparse(t *testing.T) {
	m, clock := newTestMonitor()

	// Constant durations regress to a flat line.
	for i := 0; i < 6; i++ {
		m.Record(metric(clock, domain.OpCategorySearch, 10*time.Millisecond, false))
		clock.Advance(time.Minute)
	}
	// Too few samples for a second operation.
	m.Record(metric(clock, domain.OpCategoryFilter, 10*time.Millisecond, false))

	m.AnalyzeTrends()
	trends := m.Report(0).Trends

	trend, ok := trends[domain.OpCategorySearch]
	require.True(t, ok)
	assert.Equal(t, domain.TrendStable, trend.Direction)

	_, ok = trends[domain.OpCategoryFilter]
	assert.False(t, ok)
}

func TestMonitor_Health(t *testing.T) {
	m, clock := newTestMonitor()
	assert.Equal(t, domain.HealthGood, m.Report(0).Health)

	// A single unacknowledged high alert is critical. Memory keeps the
	// durations fast so only the alert drives the state.
	m.Record(domain.Metric{
		Timestamp: clock.Now(),
		Op:        domain.OpCategoryFilter,
		Duration:  time.Millisecond,
		MemoryMB:  600,
	})
	report := m.Report(0)
	assert.Equal(t, domain.HealthCritical, report.Health)

	// Acknowledged alerts do not count.
	require.True(t, m.Acknowledge(report.Alerts[0].ID))
	assert.Equal(t, domain.HealthGood, m.Report(0).Health)
}

func TestMonitor_Health_SlowAverage(t *testing.T) {
	m, clock := newTestMonitor()

	// No threshold configured for this op, but the average drags health
	// down.
	m.Record(metric(clock, domain.OpCategorySearch, 300*time.Millisecond, false))
	assert.Equal(t, domain.HealthWarning, m.Report(0).Health)
}

func TestMonitor_DropExpired(t *testing.T) {
	m, clock := newTestMonitor()

	m.Record(metric(clock, domain.OpCategorySearch, time.Millisecond, false))
	clock.Advance(2 * time.Hour)
	m.Record(metric(clock, domain.OpCategorySearch, time.Millisecond, false))

	assert.Equal(t, 1, m.DropExpired())
	assert.Equal(t, 1, m.Report(0).PerOp[domain.OpCategorySearch].Count)
}

func TestMonitor_RecommendsIndexRebuild(t *testing.T) {
	m, clock := newTestMonitor()

	for i := 0; i < 5; i++ {
		m.Record(metric(clock, domain.OpCategoryFilter, 150*time.Millisecond, false))
	}

	report := m.Report(time.Hour)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "consider an index rebuild")
}

func TestMonitor_RecommendsWarmEnlargement(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(domain.DefaultCacheConfig(), clock)
	m := NewMonitor(testMonitorConfig(), clock, cache)

	// Ten straight misses keep the content hit rate at zero.
	for i := 0; i < 10; i++ {
		_, ok := cache.GetContent("missing")
		require.False(t, ok)
	}

	report := m.Report(0)
	assert.Contains(t, report.Recommendations, "content cache hit rate below target: enlarge the warm level")
}
