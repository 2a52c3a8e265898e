package driving

import (
	"context"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// SpecializationService persists the chosen exam track and preserves
// per-specialization progress snapshots across switches.
type SpecializationService interface {
	// Set selects a specialization. Switching away snapshots the current
	// progress and restores the target's saved snapshot merged with
	// general items.
	Set(ctx context.Context, spec domain.Specialization) error

	// Get returns the selected specialization, if any.
	Get() (domain.Specialization, bool)

	// HasSelected reports whether a specialization was ever chosen.
	HasSelected() bool

	// Relevance returns the fixed bucket-to-specialization relevance.
	Relevance(bucket domain.Bucket, spec domain.Specialization) domain.Relevance

	// Filter narrows items to those relevant for the specialization.
	Filter(items []domain.ContentItem, spec domain.Specialization, minLevel domain.Relevance) []domain.ContentItem
}
