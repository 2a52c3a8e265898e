package driving

import (
	"time"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// MonitorService exposes recorded metrics, alerts and recommendations.
type MonitorService interface {
	// Report summarises the given window; zero uses the full retention.
	Report(window time.Duration) *domain.MonitorReport

	// Acknowledge marks an alert as seen. Returns false for unknown IDs.
	Acknowledge(alertID string) bool
}
