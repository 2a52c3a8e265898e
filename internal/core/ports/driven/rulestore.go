package driven

import (
	"context"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// RuleStore supplies the static three-tier category definitions and the
// category mapping rules. Backed by the JSON files bundled with the
// application.
type RuleStore interface {
	// MappingRules returns the rules with compiled patterns, unordered.
	// The mapper sorts them by priority.
	MappingRules(ctx context.Context) ([]domain.MappingRule, error)

	// Categories returns the display metadata for the three buckets.
	Categories(ctx context.Context) ([]domain.CategoryMetadata, error)
}
