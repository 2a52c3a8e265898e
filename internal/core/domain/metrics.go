package domain

import "time"

// Operation names recorded by the monitor.
const (
	OpCategoryFilter = "categoryFilter"
	OpCategorySearch = "categorySearch"
	OpIndexBuild     = "indexBuild"
	OpMigration      = "migration"
)

// Metric is a single per-operation measurement. Metrics are append-only
// within the retention window.
type Metric struct {
	// Timestamp is when the operation completed.
	Timestamp time.Time `json:"timestamp"`

	// Op names the operation.
	Op string `json:"op"`

	// Duration is the wall-clock time the operation took.
	Duration time.Duration `json:"durationMs"`

	// Fingerprint identifies the parameters (cache key).
	Fingerprint string `json:"paramsFingerprint,omitempty"`

	// ResultCount is the number of items returned.
	ResultCount int `json:"resultCount"`

	// CacheHit reports whether the result came from the cache.
	CacheHit bool `json:"cacheHit"`

	// MemoryMB optionally reports memory usage at completion.
	MemoryMB float64 `json:"memoryMB,omitempty"`

	// Err holds the error message for failed operations.
	Err string `json:"error,omitempty"`
}

// AlertKind classifies an alert.
type AlertKind string

// Available alert kinds.
const (
	AlertPerformance AlertKind = "performance"
	AlertMemory      AlertKind = "memory"
)

// AlertSeverity grades an alert.
type AlertSeverity string

// Available severities. Crossing twice the threshold raises high.
const (
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Alert is raised when a metric crosses its threshold.
type Alert struct {
	// ID identifies the alert for acknowledgement.
	ID string `json:"id"`

	// Kind classifies the alert.
	Kind AlertKind `json:"kind"`

	// Severity grades the alert.
	Severity AlertSeverity `json:"severity"`

	// Op names the operation that crossed the threshold.
	Op string `json:"op"`

	// Threshold is the configured limit.
	Threshold float64 `json:"threshold"`

	// Actual is the observed value.
	Actual float64 `json:"actual"`

	// CreatedAt is when the alert was raised.
	CreatedAt time.Time `json:"createdAt"`

	// Acknowledged marks the alert as seen.
	Acknowledged bool `json:"acknowledged"`
}

// OpStats summarises one operation over the last minute.
type OpStats struct {
	// Count is the number of recorded operations.
	Count int `json:"count"`

	// Avg is the mean duration.
	Avg time.Duration `json:"avg"`

	// Max is the slowest duration.
	Max time.Duration `json:"max"`

	// Min is the fastest duration.
	Min time.Duration `json:"min"`

	// CacheHitRate is the share of cache hits.
	CacheHitRate float64 `json:"cacheHitRate"`

	// AvgResultCount is the mean result size.
	AvgResultCount float64 `json:"avgResultCount"`
}

// WindowStats aggregates one operation over a sliding window.
type WindowStats struct {
	// Window is the aggregation span.
	Window time.Duration `json:"window"`

	// Count is the number of operations in the window.
	Count int `json:"count"`

	// P50, P95 and P99 are duration percentiles.
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`

	// HitRate is the cache hit share.
	HitRate float64 `json:"hitRate"`

	// ErrorRate is the failed-operation share.
	ErrorRate float64 `json:"errorRate"`

	// Throughput is operations per second over the window.
	Throughput float64 `json:"throughput"`
}

// TrendDirection labels the slope of a duration trend.
type TrendDirection string

// Available trend directions.
const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Trend is the least-squares regression over recent durations of one
// operation.
type Trend struct {
	// Op names the operation.
	Op string `json:"op"`

	// Direction labels the slope.
	Direction TrendDirection `json:"direction"`

	// SlopeMsPerMin is the regression slope in milliseconds per minute.
	SlopeMsPerMin float64 `json:"slopeMsPerMin"`

	// Confidence is |r| of the regression.
	Confidence float64 `json:"confidence"`

	// Samples is the number of durations regressed.
	Samples int `json:"samples"`
}

// HealthState summarises the system from recent unacknowledged alerts.
type HealthState string

// Available health states.
const (
	HealthGood     HealthState = "good"
	HealthWarning  HealthState = "warning"
	HealthCritical HealthState = "critical"
)

// MonitorReport is the full monitoring summary.
type MonitorReport struct {
	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generatedAt"`

	// Window is the span the report covers.
	Window time.Duration `json:"window"`

	// Health is the derived system state.
	Health HealthState `json:"health"`

	// PerOp holds last-minute stats per operation.
	PerOp map[string]OpStats `json:"perOp"`

	// Windows holds sliding-window aggregates per operation.
	Windows map[string][]WindowStats `json:"windows"`

	// Trends holds the latest trend labels per operation.
	Trends map[string]Trend `json:"trends"`

	// Alerts lists unacknowledged alerts.
	Alerts []Alert `json:"alerts"`

	// Recommendations lists tuning hints derived from the stats.
	Recommendations []string `json:"recommendations"`

	// Cache carries the current cache counters.
	Cache CacheStats `json:"cache"`
}

// MonitorConfig holds the monitor tuning.
type MonitorConfig struct {
	// RingSize caps metrics kept per operation.
	RingSize int

	// Retention bounds how long metrics are kept.
	Retention time.Duration

	// Thresholds maps operations to duration limits.
	Thresholds map[string]time.Duration

	// MemoryThresholdMB limits reported memory before a memory alert.
	MemoryThresholdMB float64

	// CoalesceWindow suppresses duplicate alerts raised within it.
	CoalesceWindow time.Duration

	// TrendWindow is the span trends regress over.
	TrendWindow time.Duration

	// TrendMinSamples is the minimum sample count for a trend.
	TrendMinSamples int
}

// DefaultMonitorConfig returns the standard monitor tuning.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		RingSize:  500,
		Retention: time.Hour,
		Thresholds: map[string]time.Duration{
			OpCategoryFilter: 100 * time.Millisecond,
			OpCategorySearch: 150 * time.Millisecond,
			OpIndexBuild:     time.Second,
			OpMigration:      5 * time.Second,
		},
		MemoryThresholdMB: 256,
		CoalesceWindow:    time.Minute,
		TrendWindow:       30 * time.Minute,
		TrendMinSamples:   10,
	}
}
