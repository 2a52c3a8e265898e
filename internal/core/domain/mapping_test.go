package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleCondition_Holds(t *testing.T) {
	item := &ContentItem{
		SpecializationRelevance: map[Specialization]Relevance{
			SpecializationDPA: RelevanceHigh,
		},
	}

	tests := []struct {
		name string
		cond RuleCondition
		want bool
	}{
		{
			"matching level",
			RuleCondition{Specialization: SpecializationDPA, Relevance: RelevanceHigh},
			true,
		},
		{
			"wrong level",
			RuleCondition{Specialization: SpecializationDPA, Relevance: RelevanceLow},
			false,
		},
		{
			"absent entry fails positive condition",
			RuleCondition{Specialization: SpecializationAE, Relevance: RelevanceHigh},
			false,
		},
		{
			"negate inverts a match",
			RuleCondition{Specialization: SpecializationDPA, Relevance: RelevanceHigh, Negate: true},
			false,
		},
		{
			"absent entry satisfies negated condition",
			RuleCondition{Specialization: SpecializationAE, Relevance: RelevanceHigh, Negate: true},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Holds(item))
		})
	}
}

func TestMappingRule_Matches(t *testing.T) {
	r := MappingRule{
		ID:       "dpa-native",
		Priority: 100,
		Pattern:  regexp.MustCompile(`(?i)^daten`),
		Target:   BucketDPA,
		Active:   true,
	}

	assert.True(t, r.Matches(&ContentItem{NativeCategory: "Datenbanken"}))
	assert.False(t, r.Matches(&ContentItem{NativeCategory: "Programmierung"}))

	r.Active = false
	assert.False(t, r.Matches(&ContentItem{NativeCategory: "Datenbanken"}))
}

func TestMappingRule_Validate(t *testing.T) {
	valid := MappingRule{
		ID:       "r1",
		Priority: 10,
		Pattern:  regexp.MustCompile(`.*`),
		Target:   BucketGeneral,
	}
	assert.NoError(t, valid.Validate())

	noID := valid
	noID.ID = ""
	assert.ErrorIs(t, noID.Validate(), ErrCatalogInvalid)

	noPattern := valid
	noPattern.Pattern = nil
	assert.ErrorIs(t, noPattern.Validate(), ErrCatalogInvalid)

	badTarget := valid
	badTarget.Target = "netzwerke"
	assert.ErrorIs(t, badTarget.Validate(), ErrCatalogInvalid)

	badPriority := valid
	badPriority.Priority = 0
	assert.ErrorIs(t, badPriority.Validate(), ErrCatalogInvalid)
}
