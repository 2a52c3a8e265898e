package driven

import (
	"context"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// CatalogProvider loads the content library at initialisation.
// Backed by the bundled JSON catalog on disk.
type CatalogProvider interface {
	// LoadAll returns every module and quiz. Entries failing schema
	// validation make the whole load fail with domain.ErrCatalogInvalid.
	LoadAll(ctx context.Context) (*domain.Catalog, error)
}
