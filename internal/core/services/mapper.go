package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/logger"
)

// CategoryMapper maps native exam-catalog categories onto the three-tier
// taxonomy via prioritised rules. Mapping is total: a terminal default rule
// (priority 1, matches everything, target allgemein) always exists.
type CategoryMapper struct {
	rules []domain.MappingRule
}

// lowPriorityWarningLimit flags important items resolved by rules at or
// below this priority.
const lowPriorityWarningLimit = 1

// NewCategoryMapper loads and orders the mapping rules. Rules are sorted by
// descending priority; ties keep declaration order. A missing terminal
// default rule is a configuration error.
func NewCategoryMapper(ctx context.Context, store driven.RuleStore) (*CategoryMapper, error) {
	rules, err := store.MappingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading mapping rules: %w", err)
	}

	active := make([]domain.MappingRule, 0, len(rules))
	hasDefault := false
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, err
		}
		if !rules[i].Active {
			continue
		}
		if rules[i].Priority == 1 && rules[i].Target == domain.BucketGeneral &&
			len(rules[i].Conditions) == 0 && rules[i].Pattern.MatchString("") {
			hasDefault = true
		}
		active = append(active, rules[i])
	}
	if !hasDefault {
		return nil, fmt.Errorf("no terminal default rule: %w", domain.ErrCatalogInvalid)
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	logger.Debug("category mapper ready: %d active rules", len(active))

	return &CategoryMapper{rules: active}, nil
}

// Rules returns the ordered active rules.
func (m *CategoryMapper) Rules() []domain.MappingRule {
	return m.rules
}

// Map assigns a bucket to the item. The first rule, in priority order,
// whose pattern matches the native category and whose conditions hold wins.
// The terminal default guarantees a result.
func (m *CategoryMapper) Map(item *domain.ContentItem) domain.MappingResult {
	for i := range m.rules {
		r := &m.rules[i]
		if r.Matches(item) {
			return domain.MappingResult{
				Bucket: r.Target,
				RuleID: r.ID,
				Reason: fmt.Sprintf("category %q matched rule %s (priority %d)", item.NativeCategory, r.ID, r.Priority),
			}
		}
	}

	// Unreachable while the terminal default rule exists.
	return domain.MappingResult{
		Bucket: domain.BucketGeneral,
		RuleID: "",
		Reason: "no rule matched; defaulted to allgemein",
	}
}

// MapID assigns a bucket by id prefix alone, for references whose item is
// absent from the catalog (used by the progress migrator).
func MapID(id string) domain.Bucket {
	lower := strings.ToLower(id)
	switch {
	case strings.HasPrefix(lower, "bp-dpa-"):
		return domain.BucketDPA
	case strings.HasPrefix(lower, "bp-ae-"):
		return domain.BucketAE
	default:
		return domain.BucketGeneral
	}
}

// Validate maps every item and reports the distribution, rule usage and
// conflicts: an id whose prefix contradicts its bucket, or an important
// item that only the terminal default resolved.
func (m *CategoryMapper) Validate(items []domain.ContentItem) *domain.MappingReport {
	report := &domain.MappingReport{
		Distribution: make(map[domain.Bucket]int),
		RuleUsage:    make(map[string]int),
	}

	priorityByID := make(map[string]int, len(m.rules))
	for i := range m.rules {
		priorityByID[m.rules[i].ID] = m.rules[i].Priority
	}

	for i := range items {
		item := &items[i]
		res := m.Map(item)

		if !res.Bucket.IsValid() {
			report.Invalid++
			report.Errors = append(report.Errors,
				fmt.Sprintf("item %s: mapped to unknown bucket %q", item.ID, res.Bucket))
			continue
		}

		report.Valid++
		report.Distribution[res.Bucket]++
		report.RuleUsage[res.RuleID]++

		if inferred := MapID(item.ID); inferred != domain.BucketGeneral && inferred != res.Bucket {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("item %s: id prefix suggests %s but rules mapped it to %s",
					item.ID, inferred, res.Bucket))
		}
		if item.Important && priorityByID[res.RuleID] <= lowPriorityWarningLimit {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("important item %s resolved by low-priority rule %s", item.ID, res.RuleID))
		}
	}

	return report
}
