// Package file provides the JSON catalog provider and a watcher that
// reloads the core when the catalog files change on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.CatalogProvider = (*Provider)(nil)

// Catalog file names within the content directory.
const (
	modulesFile = "modules.json"
	quizzesFile = "quizzes.json"
)

// Provider loads the content library from JSON files in one directory.
type Provider struct {
	dir string
}

// NewProvider creates a provider over the given content directory.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Dir returns the content directory.
func (p *Provider) Dir() string {
	return p.dir
}

// LoadAll reads modules.json and quizzes.json. A missing quizzes file is
// tolerated; a missing modules file or any malformed entry fails the load
// with domain.ErrCatalogInvalid.
func (p *Provider) LoadAll(ctx context.Context) (*domain.Catalog, error) {
	modules, err := p.loadItems(modulesFile, domain.KindModule)
	if err != nil {
		return nil, err
	}

	quizzes, err := p.loadItems(quizzesFile, domain.KindQuiz)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		quizzes = nil
	}

	return &domain.Catalog{Modules: modules, Quizzes: quizzes}, nil
}

// loadItems reads one catalog file and stamps the kind on entries that omit
// it.
func (p *Provider) loadItems(name string, kind domain.Kind) ([]domain.ContentItem, error) {
	path := filepath.Join(p.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var items []domain.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %v: %w", path, err, domain.ErrCatalogInvalid)
	}

	for i := range items {
		if items[i].Kind == "" {
			items[i].Kind = kind
		}
	}
	return items, nil
}
