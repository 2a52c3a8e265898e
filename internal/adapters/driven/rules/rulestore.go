// Package rules supplies the static three-tier category definitions and the
// category mapping rules from JSON files bundled into the binary.
package rules

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RuleStore = (*Store)(nil)

//go:embed three-tier-categories.json
var categoriesJSON []byte

//go:embed category-mapping-rules.json
var rulesJSON []byte

// ruleDTO is the on-disk shape of a mapping rule.
type ruleDTO struct {
	ID         string                 `json:"id"`
	Priority   int                    `json:"priority"`
	Pattern    string                 `json:"pattern"`
	Target     domain.Bucket          `json:"target"`
	Active     bool                   `json:"active"`
	Conditions []domain.RuleCondition `json:"conditions,omitempty"`
}

// Store serves the bundled rule and category definitions. Parsing and regex
// compilation happen once at construction.
type Store struct {
	rules      []domain.MappingRule
	categories []domain.CategoryMetadata
}

// NewStore parses the bundled definitions. A malformed pattern fails the
// whole construction.
func NewStore() (*Store, error) {
	var categories []domain.CategoryMetadata
	if err := json.Unmarshal(categoriesJSON, &categories); err != nil {
		return nil, fmt.Errorf("parsing category definitions: %w", err)
	}

	var dtos []ruleDTO
	if err := json.Unmarshal(rulesJSON, &dtos); err != nil {
		return nil, fmt.Errorf("parsing mapping rules: %w", err)
	}

	rules := make([]domain.MappingRule, 0, len(dtos))
	for _, dto := range dtos {
		pattern, err := regexp.Compile(dto.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern of rule %s: %w", dto.ID, err)
		}
		rules = append(rules, domain.MappingRule{
			ID:            dto.ID,
			Priority:      dto.Priority,
			SourcePattern: dto.Pattern,
			Pattern:       pattern,
			Target:        dto.Target,
			Active:        dto.Active,
			Conditions:    dto.Conditions,
		})
	}

	return &Store{rules: rules, categories: categories}, nil
}

// MappingRules returns the rules with compiled patterns, unordered.
func (s *Store) MappingRules(ctx context.Context) ([]domain.MappingRule, error) {
	return append([]domain.MappingRule(nil), s.rules...), nil
}

// Categories returns the display metadata for the three buckets.
func (s *Store) Categories(ctx context.Context) ([]domain.CategoryMetadata, error) {
	return append([]domain.CategoryMetadata(nil), s.categories...), nil
}
