package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// stubCatalog serves a fixed catalog.
type stubCatalog struct {
	catalog *domain.Catalog
	err     error
}

func (s *stubCatalog) LoadAll(ctx context.Context) (*domain.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

// stubRules serves fixed mapping rules and category metadata.
type stubRules struct {
	rules      []domain.MappingRule
	categories []domain.CategoryMetadata
	err        error
}

func (s *stubRules) MappingRules(ctx context.Context) ([]domain.MappingRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

func (s *stubRules) Categories(ctx context.Context) ([]domain.CategoryMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.categories, nil
}

func rule(id string, priority int, pattern string, target domain.Bucket, conds ...domain.RuleCondition) domain.MappingRule {
	return domain.MappingRule{
		ID:            id,
		Priority:      priority,
		SourcePattern: pattern,
		Pattern:       regexp.MustCompile(pattern),
		Target:        target,
		Active:        true,
		Conditions:    conds,
	}
}

func testRules() []domain.MappingRule {
	return []domain.MappingRule{
		rule("dpa-native", 100, `(?i)^(daten|prozess)`, domain.BucketDPA),
		rule("ae-native", 100, `(?i)^(programmierung|software)`, domain.BucketAE),
		rule("default-general", 1, `.*`, domain.BucketGeneral),
	}
}

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Modules: []domain.ContentItem{
			{
				ID:             "bp-dpa-01",
				Kind:           domain.KindModule,
				NativeCategory: "Datenbanken",
				Title:          "SQL Grundlagen",
				Description:    "Abfragen mit SELECT",
				Content:        "SELECT Anweisungen, Joins und Aggregatfunktionen.",
				Tags:           []string{"sql", "datenbank"},
				Difficulty:     domain.DifficultyBeginner,
				ExamRelevance:  domain.RelevanceHigh,
				Important:      true,
				SpecializationRelevance: map[domain.Specialization]domain.Relevance{
					domain.SpecializationDPA: domain.RelevanceHigh,
					domain.SpecializationAE:  domain.RelevanceLow,
				},
			},
			{
				ID:             "bp-dpa-02",
				Kind:           domain.KindModule,
				NativeCategory: "Prozessanalyse",
				Title:          "Änderungsprozesse modellieren",
				Description:    "Geschäftsprozesse mit BPMN",
				Tags:           []string{"bpmn"},
				Difficulty:     domain.DifficultyIntermediate,
				ExamRelevance:  domain.RelevanceMedium,
			},
			{
				ID:             "bp-ae-01",
				Kind:           domain.KindModule,
				NativeCategory: "Programmierung",
				Title:          "Objektorientierte Programmierung",
				Description:    "Klassen, Vererbung und Polymorphie",
				Difficulty:     domain.DifficultyIntermediate,
				ExamRelevance:  domain.RelevanceHigh,
				SpecializationRelevance: map[domain.Specialization]domain.Relevance{
					domain.SpecializationAE: domain.RelevanceHigh,
				},
			},
			{
				ID:             "bp-03",
				Kind:           domain.KindModule,
				NativeCategory: "Wirtschaft",
				Title:          "Projektmanagement Grundlagen",
				Description:    "Projektphasen und Meilensteine",
				Difficulty:     domain.DifficultyBeginner,
				ExamRelevance:  domain.RelevanceMedium,
			},
		},
		Quizzes: []domain.ContentItem{
			{
				ID:             "bp-dpa-quiz-01",
				Kind:           domain.KindQuiz,
				NativeCategory: "Datenbanken",
				Title:          "SQL Quiz",
				Description:    "Wissenstest Datenbanken",
				Difficulty:     domain.DifficultyBeginner,
				ExamRelevance:  domain.RelevanceHigh,
				Questions: []domain.Question{
					{
						ID:             "q1",
						Type:           domain.QuestionSingle,
						Text:           "Welche Anweisung liest Daten?",
						Options:        []string{"SELECT", "INSERT", "DELETE"},
						CorrectAnswers: []string{"SELECT"},
						Points:         1,
					},
				},
			},
		},
	}
}

// newTestStore builds a store over the fixture catalog with buckets assigned.
func newTestStore(t *testing.T) (*ContentStore, *CategoryMapper) {
	t.Helper()
	ctx := context.Background()

	mapper, err := NewCategoryMapper(ctx, &stubRules{rules: testRules()})
	require.NoError(t, err)

	store, err := NewContentStore(ctx, &stubCatalog{catalog: testCatalog()})
	require.NoError(t, err)
	store.assignBuckets(mapper)

	return store, mapper
}

// newTestEngine wires a query engine over the fixture catalog.
func newTestEngine(t *testing.T) (*QueryEngine, *Cache, *Monitor, *fakeClock) {
	t.Helper()
	store, _ := newTestStore(t)
	clock := newFakeClock()
	cache := NewCache(domain.DefaultCacheConfig(), clock)
	monitor := NewMonitor(domain.DefaultMonitorConfig(), clock, cache)
	indexer := NewIndexer(store, clock)
	engine := NewQueryEngine(store, indexer, cache, monitor, clock)
	return engine, cache, monitor, clock
}
