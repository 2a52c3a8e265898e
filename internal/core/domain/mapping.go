package domain

import (
	"fmt"
	"regexp"
)

// RuleCondition is an optional predicate on a mapping rule. All conditions
// of a rule must hold (AND semantics) in addition to the pattern match.
type RuleCondition struct {
	// Specialization whose relevance level is inspected.
	Specialization Specialization `json:"specialization"`

	// Relevance is the level the item's specializationRelevance entry is
	// compared against.
	Relevance Relevance `json:"relevance"`

	// Negate inverts the comparison ("DPA relevance is NOT high").
	Negate bool `json:"negate,omitempty"`
}

// Holds returns true if the condition is satisfied for the item.
// An absent specializationRelevance entry never equals a level, so a
// positive condition fails and a negated one holds.
func (c RuleCondition) Holds(item *ContentItem) bool {
	level, ok := item.SpecializationRelevance[c.Specialization]
	matches := ok && level == c.Relevance
	if c.Negate {
		return !matches
	}
	return matches
}

// MappingRule maps native exam-catalog categories onto a bucket.
// Rules are evaluated in descending priority order; ties keep declaration
// order. Exactly one terminal default rule (priority 1, matches everything,
// target allgemein) must exist so that mapping is total.
type MappingRule struct {
	// ID identifies the rule in validation reports and mapping results.
	ID string

	// Priority orders evaluation, highest first.
	Priority int

	// SourcePattern is the original pattern string as configured.
	SourcePattern string

	// Pattern is the compiled form of SourcePattern.
	Pattern *regexp.Regexp

	// Target is the bucket assigned when the rule wins.
	Target Bucket

	// Active disables the rule without removing it.
	Active bool

	// Conditions further restrict the rule (AND semantics).
	Conditions []RuleCondition
}

// Matches returns true if the rule applies to the item: the pattern matches
// the native category and every condition holds.
func (r *MappingRule) Matches(item *ContentItem) bool {
	if !r.Active || r.Pattern == nil {
		return false
	}
	if !r.Pattern.MatchString(item.NativeCategory) {
		return false
	}
	for _, cond := range r.Conditions {
		if !cond.Holds(item) {
			return false
		}
	}
	return true
}

// Validate checks the rule configuration.
func (r *MappingRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("mapping rule has no id: %w", ErrCatalogInvalid)
	}
	if r.Pattern == nil {
		return fmt.Errorf("mapping rule %s: no compiled pattern: %w", r.ID, ErrCatalogInvalid)
	}
	if !r.Target.IsValid() {
		return fmt.Errorf("mapping rule %s: unknown target %q: %w", r.ID, r.Target, ErrCatalogInvalid)
	}
	if r.Priority < 1 {
		return fmt.Errorf("mapping rule %s: priority %d below 1: %w", r.ID, r.Priority, ErrCatalogInvalid)
	}
	return nil
}

// MappingResult is the outcome of mapping a single item.
type MappingResult struct {
	// Bucket is the assigned canonical category.
	Bucket Bucket

	// RuleID identifies the rule that won.
	RuleID string

	// Reason is a human-readable explanation.
	Reason string
}

// MappingReport is the outcome of validating the mapping over a catalog.
type MappingReport struct {
	// Valid counts items that mapped without findings.
	Valid int

	// Invalid counts items with errors.
	Invalid int

	// Warnings lists non-fatal findings, e.g. a DPA-prefixed id that
	// resolved to a non-DPA bucket.
	Warnings []string

	// Errors lists fatal findings.
	Errors []string

	// Distribution counts mapped items per bucket.
	Distribution map[Bucket]int

	// RuleUsage counts how often each rule won.
	RuleUsage map[string]int
}

// OK returns true when no errors were found.
func (r *MappingReport) OK() bool {
	return len(r.Errors) == 0
}
