package services

import (
	"context"
	"fmt"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/logger"
)

// ContentStore owns the in-memory catalog of modules and quizzes.
// It is loaded once at initialisation and read-only afterwards; a content
// reload discards the store and constructs a new one.
type ContentStore struct {
	items []domain.ContentItem
	byID  map[string]int
}

// NewContentStore loads and validates the full catalog through the provider.
// Any entry failing schema validation or a duplicate id fails the load.
func NewContentStore(ctx context.Context, provider driven.CatalogProvider) (*ContentStore, error) {
	catalog, err := provider.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(catalog.Modules)+len(catalog.Quizzes))
	items = append(items, catalog.Modules...)
	items = append(items, catalog.Quizzes...)

	byID := make(map[string]int, len(items))
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[items[i].ID]; dup {
			return nil, fmt.Errorf("duplicate content id %q: %w", items[i].ID, domain.ErrCatalogInvalid)
		}
		byID[items[i].ID] = i
	}

	logger.Info("catalog loaded: %d modules, %d quizzes", len(catalog.Modules), len(catalog.Quizzes))

	return &ContentStore{items: items, byID: byID}, nil
}

// All returns every item in load order. The slice is shared; callers must
// not mutate it.
func (s *ContentStore) All() []domain.ContentItem {
	return s.items
}

// Get returns the item with the given id.
func (s *ContentStore) Get(id string) (*domain.ContentItem, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.items[i], true
}

// Len returns the catalog size.
func (s *ContentStore) Len() int {
	return len(s.items)
}

// assignBuckets stamps every item with its mapped bucket. Called exactly
// once at initialisation, before the store is published.
func (s *ContentStore) assignBuckets(mapper *CategoryMapper) {
	for i := range s.items {
		res := mapper.Map(&s.items[i])
		s.items[i].Bucket = res.Bucket
	}
}
