package driving

import (
	"context"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// ContentQueryService executes category filters and category-scoped search.
type ContentQueryService interface {
	// GetByBucket returns the items of one bucket, filtered, sorted and
	// paginated per the options. An unknown bucket yields an empty result.
	GetByBucket(ctx context.Context, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error)

	// SearchInBucket runs a full-text search scoped to one bucket.
	// An empty query degenerates to GetByBucket.
	SearchInBucket(ctx context.Context, query string, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error)
}
