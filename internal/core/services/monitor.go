package services

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/core/ports/driving"
	"github.com/lernkern/lernkern/internal/logger"
)

// Ensure Monitor implements the interface.
var _ driving.MonitorService = (*Monitor)(nil)

// Monitor tuning derived from the health rules.
const (
	// healthAlertWindow is the span of unacknowledged alerts considered
	// for system health.
	healthAlertWindow = 5 * time.Minute

	// healthMediumLimit is how many medium alerts turn health to warning.
	healthMediumLimit = 3

	// healthSlowAvg turns health to warning when the recent average
	// duration exceeds it.
	healthSlowAvg = 200 * time.Millisecond

	// trendStableSlope is the slope magnitude (ms per minute) below which
	// a trend is labelled stable.
	trendStableSlope = 0.1

	// trendMinConfidence is the |r| below which a trend is labelled
	// stable regardless of slope.
	trendMinConfidence = 0.3

	// hitRateTarget is the combined content hit rate below which the
	// report recommends enlarging the warm level.
	hitRateTarget = 0.5
)

// aggregateWindows are the sliding windows the periodic aggregation spans.
var aggregateWindows = []time.Duration{5 * time.Minute, 15 * time.Minute, time.Hour}

// Monitor records per-operation metrics, raises threshold alerts and
// derives sliding-window statistics, trends and tuning recommendations.
type Monitor struct {
	cfg   domain.MonitorConfig
	clock driven.Clock
	cache *Cache

	mu       sync.Mutex
	rings    map[string][]domain.Metric
	alerts   []domain.Alert
	trends   map[string]domain.Trend
	alertSeq int
}

// NewMonitor creates a monitor. The cache is optional; when present its
// counters are embedded in reports.
func NewMonitor(cfg domain.MonitorConfig, clock driven.Clock, cache *Cache) *Monitor {
	return &Monitor{
		cfg:    cfg,
		clock:  clock,
		cache:  cache,
		rings:  make(map[string][]domain.Metric),
		trends: make(map[string]domain.Trend),
	}
}

// Record appends a metric to its operation's ring buffer and evaluates the
// thresholds. Called on every read-path completion.
func (m *Monitor) Record(metric domain.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ring := append(m.rings[metric.Op], metric)
	if len(ring) > m.cfg.RingSize {
		ring = ring[len(ring)-m.cfg.RingSize:]
	}
	m.rings[metric.Op] = ring

	m.evaluateThresholds(metric)
}

// evaluateThresholds raises alerts for threshold crossings. Caller holds
// the lock.
func (m *Monitor) evaluateThresholds(metric domain.Metric) {
	if threshold, ok := m.cfg.Thresholds[metric.Op]; ok && metric.Duration > threshold {
		severity := domain.SeverityMedium
		if metric.Duration > 2*threshold {
			severity = domain.SeverityHigh
		}
		m.raise(domain.AlertPerformance, severity, metric.Op,
			float64(threshold.Milliseconds()), float64(metric.Duration.Milliseconds()))
	}

	if metric.MemoryMB > 0 && metric.MemoryMB > m.cfg.MemoryThresholdMB {
		severity := domain.SeverityMedium
		if metric.MemoryMB > 2*m.cfg.MemoryThresholdMB {
			severity = domain.SeverityHigh
		}
		m.raise(domain.AlertMemory, severity, metric.Op, m.cfg.MemoryThresholdMB, metric.MemoryMB)
	}
}

// raise adds an alert unless an identical one was raised within the
// coalescing window. Caller holds the lock.
func (m *Monitor) raise(kind domain.AlertKind, severity domain.AlertSeverity, op string, threshold, actual float64) {
	now := m.clock.Now()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.Kind == kind && a.Severity == severity && a.Op == op &&
			!a.Acknowledged && now.Sub(a.CreatedAt) < m.cfg.CoalesceWindow {
			return
		}
	}

	m.alertSeq++
	alert := domain.Alert{
		ID:        fmt.Sprintf("alert-%d", m.alertSeq),
		Kind:      kind,
		Severity:  severity,
		Op:        op,
		Threshold: threshold,
		Actual:    actual,
		CreatedAt: now,
	}
	m.alerts = append(m.alerts, alert)
	logger.Warn("%s alert (%s) for %s: %.1f over threshold %.1f", kind, severity, op, actual, threshold)
}

// Acknowledge marks an alert as seen.
func (m *Monitor) Acknowledge(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == alertID {
			m.alerts[i].Acknowledged = true
			return true
		}
	}
	return false
}

// opStats summarises one operation over the given window. Caller holds the
// lock.
func (m *Monitor) opStats(op string, window time.Duration) domain.OpStats {
	cutoff := m.clock.Now().Add(-window)

	var stats domain.OpStats
	var total time.Duration
	var hits, results int
	for _, metric := range m.rings[op] {
		if metric.Timestamp.Before(cutoff) {
			continue
		}
		stats.Count++
		total += metric.Duration
		if metric.Duration > stats.Max {
			stats.Max = metric.Duration
		}
		if stats.Min == 0 || metric.Duration < stats.Min {
			stats.Min = metric.Duration
		}
		if metric.CacheHit {
			hits++
		}
		results += metric.ResultCount
	}

	if stats.Count > 0 {
		stats.Avg = total / time.Duration(stats.Count)
		stats.CacheHitRate = float64(hits) / float64(stats.Count)
		stats.AvgResultCount = float64(results) / float64(stats.Count)
	}
	return stats
}

// windowStats aggregates one operation over a sliding window. Caller holds
// the lock.
func (m *Monitor) windowStats(op string, window time.Duration) domain.WindowStats {
	cutoff := m.clock.Now().Add(-window)

	durations := make([]time.Duration, 0)
	var hits, errors int
	for _, metric := range m.rings[op] {
		if metric.Timestamp.Before(cutoff) {
			continue
		}
		durations = append(durations, metric.Duration)
		if metric.CacheHit {
			hits++
		}
		if metric.Err != "" {
			errors++
		}
	}

	stats := domain.WindowStats{Window: window, Count: len(durations)}
	if len(durations) == 0 {
		return stats
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	stats.P50 = percentile(durations, 0.50)
	stats.P95 = percentile(durations, 0.95)
	stats.P99 = percentile(durations, 0.99)
	stats.HitRate = float64(hits) / float64(len(durations))
	stats.ErrorRate = float64(errors) / float64(len(durations))
	stats.Throughput = float64(len(durations)) / window.Seconds()
	return stats
}

// percentile picks from sorted durations by nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// AnalyzeTrends regresses each operation's recent durations over time by
// ordinary least squares and labels the direction. Run periodically.
func (m *Monitor) AnalyzeTrends() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.cfg.TrendWindow)
	for op, ring := range m.rings {
		var xs, ys []float64
		var t0 time.Time
		for _, metric := range ring {
			if metric.Timestamp.Before(cutoff) {
				continue
			}
			if t0.IsZero() {
				t0 = metric.Timestamp
			}
			xs = append(xs, metric.Timestamp.Sub(t0).Minutes())
			ys = append(ys, float64(metric.Duration.Microseconds())/1000.0)
		}
		if len(xs) < m.cfg.TrendMinSamples {
			delete(m.trends, op)
			continue
		}

		slope, r := leastSquares(xs, ys)
		direction := domain.TrendStable
		if math.Abs(r) >= trendMinConfidence && math.Abs(slope) >= trendStableSlope {
			if slope > 0 {
				direction = domain.TrendIncreasing
			} else {
				direction = domain.TrendDecreasing
			}
		}

		m.trends[op] = domain.Trend{
			Op:            op,
			Direction:     direction,
			SlopeMsPerMin: slope,
			Confidence:    math.Abs(r),
			Samples:       len(xs),
		}
	}
}

// leastSquares returns the OLS slope and the correlation coefficient r.
func leastSquares(xs, ys []float64) (slope, r float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
		sumYY += ys[i] * ys[i]
	}

	denomX := n*sumXX - sumX*sumX
	if denomX == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denomX

	denomY := n*sumYY - sumY*sumY
	if denomY <= 0 {
		return slope, 0
	}
	r = (n*sumXY - sumX*sumY) / math.Sqrt(denomX*denomY)
	return slope, r
}

// DropExpired removes metrics older than the retention window and prunes
// acknowledged alerts beyond it. Run periodically.
func (m *Monitor) DropExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.cfg.Retention)
	dropped := 0
	for op, ring := range m.rings {
		kept := ring[:0]
		for _, metric := range ring {
			if metric.Timestamp.Before(cutoff) {
				dropped++
				continue
			}
			kept = append(kept, metric)
		}
		if len(kept) == 0 {
			delete(m.rings, op)
		} else {
			m.rings[op] = kept
		}
	}

	keptAlerts := m.alerts[:0]
	for _, a := range m.alerts {
		if a.Acknowledged && a.CreatedAt.Before(cutoff) {
			continue
		}
		keptAlerts = append(keptAlerts, a)
	}
	m.alerts = keptAlerts

	return dropped
}

// health derives the system state from recent unacknowledged alerts and the
// recent average duration. Caller holds the lock.
func (m *Monitor) health() domain.HealthState {
	cutoff := m.clock.Now().Add(-healthAlertWindow)

	medium := 0
	for _, a := range m.alerts {
		if a.Acknowledged || a.CreatedAt.Before(cutoff) {
			continue
		}
		if a.Severity == domain.SeverityHigh {
			return domain.HealthCritical
		}
		medium++
	}
	if medium >= healthMediumLimit {
		return domain.HealthWarning
	}

	var total time.Duration
	var count int
	for op := range m.rings {
		stats := m.opStats(op, time.Minute)
		total += stats.Avg * time.Duration(stats.Count)
		count += stats.Count
	}
	if count > 0 && total/time.Duration(count) > healthSlowAvg {
		return domain.HealthWarning
	}

	return domain.HealthGood
}

// Report summarises the given window; zero covers the full retention.
func (m *Monitor) Report(window time.Duration) *domain.MonitorReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if window <= 0 {
		window = m.cfg.Retention
	}

	report := &domain.MonitorReport{
		GeneratedAt: m.clock.Now(),
		Window:      window,
		Health:      m.health(),
		PerOp:       make(map[string]domain.OpStats),
		Windows:     make(map[string][]domain.WindowStats),
		Trends:      make(map[string]domain.Trend, len(m.trends)),
	}

	for op := range m.rings {
		report.PerOp[op] = m.opStats(op, time.Minute)
		for _, w := range aggregateWindows {
			if w > window {
				continue
			}
			report.Windows[op] = append(report.Windows[op], m.windowStats(op, w))
		}
	}
	for op, trend := range m.trends {
		report.Trends[op] = trend
	}

	for _, a := range m.alerts {
		if !a.Acknowledged {
			report.Alerts = append(report.Alerts, a)
		}
	}

	if m.cache != nil {
		report.Cache = m.cache.Stats()
	}

	report.Recommendations = m.recommend(report)
	return report
}

// recommend derives tuning hints from the report. Caller holds the lock.
func (m *Monitor) recommend(report *domain.MonitorReport) []string {
	var recs []string

	for op, windows := range report.Windows {
		threshold, ok := m.cfg.Thresholds[op]
		if !ok {
			continue
		}
		for _, w := range windows {
			if w.Count > 0 && w.P95 > threshold {
				recs = append(recs, fmt.Sprintf(
					"high p95 for %s (%v over %v): consider an index rebuild", op, w.P95, w.Window))
				break
			}
		}
	}

	if m.cache != nil {
		stats := report.Cache
		var hits, misses int64
		for _, name := range contentChain {
			hits += stats.Levels[name].Hits
			misses += stats.Levels[name].Misses
		}
		if total := hits + misses; total >= 10 && float64(hits)/float64(total) < hitRateTarget {
			recs = append(recs, "content cache hit rate below target: enlarge the warm level")
		}
	}

	for op, trend := range report.Trends {
		if trend.Direction == domain.TrendIncreasing && trend.Confidence >= 0.7 {
			recs = append(recs, fmt.Sprintf("durations for %s trend upward (confidence %.2f)", op, trend.Confidence))
		}
	}

	return recs
}

// CollectSnapshot exists for the periodic task cadence: it materialises the
// last-minute stats so slow drifts show up in logs even without a report
// consumer.
func (m *Monitor) CollectSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for op := range m.rings {
		stats := m.opStats(op, time.Minute)
		if stats.Count > 0 {
			logger.Debug("op %s: count=%d avg=%v max=%v hitRate=%.2f",
				op, stats.Count, stats.Avg, stats.Max, stats.CacheHitRate)
		}
	}
}
