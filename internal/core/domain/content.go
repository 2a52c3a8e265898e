package domain

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two content types in the catalog.
type Kind string

// Available content kinds.
const (
	// KindModule is a static learning module (Markdown body).
	KindModule Kind = "module"

	// KindQuiz is a multiple-choice or true/false quiz.
	KindQuiz Kind = "quiz"
)

// IsValid returns true if the kind is recognised.
func (k Kind) IsValid() bool {
	return k == KindModule || k == KindQuiz
}

// Difficulty grades how demanding a content item is.
type Difficulty string

// Available difficulties.
const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid returns true if the difficulty is recognised.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// Relevance grades how relevant a content item is, either for the exam
// overall or for a single specialization.
type Relevance string

// Available relevance levels.
const (
	RelevanceLow    Relevance = "low"
	RelevanceMedium Relevance = "medium"
	RelevanceHigh   Relevance = "high"
)

// IsValid returns true if the relevance level is recognised.
func (r Relevance) IsValid() bool {
	switch r {
	case RelevanceLow, RelevanceMedium, RelevanceHigh:
		return true
	default:
		return false
	}
}

// Specialization is the exam track chosen by the user.
// The identifiers are stored in user data and must stay bit-exact.
type Specialization string

// Available specializations.
const (
	// SpecializationDPA is Daten- und Prozessanalyse.
	SpecializationDPA Specialization = "daten-prozessanalyse"

	// SpecializationAE is Anwendungsentwicklung.
	SpecializationAE Specialization = "anwendungsentwicklung"
)

// IsValid returns true if the specialization is recognised.
func (s Specialization) IsValid() bool {
	return s == SpecializationDPA || s == SpecializationAE
}

// AllSpecializations returns the fixed set of specializations.
func AllSpecializations() []Specialization {
	return []Specialization{SpecializationDPA, SpecializationAE}
}

// QuestionType identifies how a quiz question is answered.
type QuestionType string

// Available question types.
const (
	QuestionSingle    QuestionType = "single"
	QuestionMulti     QuestionType = "multi"
	QuestionTrueFalse QuestionType = "true-false"
)

// IsValid returns true if the question type is recognised.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionSingle, QuestionMulti, QuestionTrueFalse:
		return true
	default:
		return false
	}
}

// Question is a single quiz question.
type Question struct {
	// ID is unique within the quiz.
	ID string `json:"id"`

	// Type determines how the question is answered.
	Type QuestionType `json:"type"`

	// Text is the question prompt.
	Text string `json:"text"`

	// Options holds the answer options for single/multi questions.
	Options []string `json:"options,omitempty"`

	// CorrectAnswers lists the correct options. For single and true-false
	// questions it holds exactly one entry; true-false uses "true"/"false".
	CorrectAnswers []string `json:"correctAnswer"`

	// Points awarded for a correct answer.
	Points int `json:"points"`

	// Explanation shown after answering.
	Explanation string `json:"explanation,omitempty"`
}

// Validate checks the question against the catalog schema.
// Single and multi questions must list their correct answers among the
// options; true-false questions accept only "true" or "false".
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has no id: %w", ErrCatalogInvalid)
	}
	if !q.Type.IsValid() {
		return fmt.Errorf("question %s: unknown type %q: %w", q.ID, q.Type, ErrCatalogInvalid)
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("question %s: no correct answer: %w", q.ID, ErrCatalogInvalid)
	}

	switch q.Type {
	case QuestionSingle, QuestionMulti:
		if q.Type == QuestionSingle && len(q.CorrectAnswers) != 1 {
			return fmt.Errorf("question %s: single question with %d answers: %w",
				q.ID, len(q.CorrectAnswers), ErrCatalogInvalid)
		}
		options := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			options[o] = true
		}
		for _, a := range q.CorrectAnswers {
			if !options[a] {
				return fmt.Errorf("question %s: correct answer %q not among options: %w",
					q.ID, a, ErrCatalogInvalid)
			}
		}
	case QuestionTrueFalse:
		if len(q.CorrectAnswers) != 1 || (q.CorrectAnswers[0] != "true" && q.CorrectAnswers[0] != "false") {
			return fmt.Errorf("question %s: true-false answer must be true or false: %w",
				q.ID, ErrCatalogInvalid)
		}
	}

	return nil
}

// ContentItem represents a single module or quiz in the catalog.
// Items are created once at catalog load and never mutated afterwards;
// the bucket is assigned exactly once by the category mapper.
type ContentItem struct {
	// ID is unique across modules and quizzes.
	ID string `json:"id"`

	// Kind is module or quiz.
	Kind Kind `json:"kind"`

	// NativeCategory is the original exam-catalog category string,
	// e.g. "BP-DPA-01" or "FÜ-02".
	NativeCategory string `json:"nativeCategory"`

	// Bucket is the canonical category assigned at load.
	Bucket Bucket `json:"bucket,omitempty"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Description is a short summary.
	Description string `json:"description,omitempty"`

	// Content is the Markdown body for modules.
	Content string `json:"content,omitempty"`

	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Difficulty grades the item.
	Difficulty Difficulty `json:"difficulty"`

	// ExamRelevance grades importance for the final exam.
	ExamRelevance Relevance `json:"examRelevance"`

	// SpecializationRelevance maps specializations to relevance levels
	// for enhanced scoring. Partial: missing entries mean unspecified.
	SpecializationRelevance map[Specialization]Relevance `json:"specializationRelevance,omitempty"`

	// Important boosts the search score.
	Important bool `json:"important,omitempty"`

	// Questions holds the quiz questions. Empty for modules.
	Questions []Question `json:"questions,omitempty"`
}

// Validate checks the item against the catalog schema.
func (c *ContentItem) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("item has no id: %w", ErrCatalogInvalid)
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("item %s: unknown kind %q: %w", c.ID, c.Kind, ErrCatalogInvalid)
	}
	if c.Title == "" {
		return fmt.Errorf("item %s: no title: %w", c.ID, ErrCatalogInvalid)
	}
	if c.NativeCategory == "" {
		return fmt.Errorf("item %s: no native category: %w", c.ID, ErrCatalogInvalid)
	}
	if !c.Difficulty.IsValid() {
		return fmt.Errorf("item %s: unknown difficulty %q: %w", c.ID, c.Difficulty, ErrCatalogInvalid)
	}
	if !c.ExamRelevance.IsValid() {
		return fmt.Errorf("item %s: unknown exam relevance %q: %w", c.ID, c.ExamRelevance, ErrCatalogInvalid)
	}
	for spec, rel := range c.SpecializationRelevance {
		if !spec.IsValid() {
			return fmt.Errorf("item %s: unknown specialization %q: %w", c.ID, spec, ErrCatalogInvalid)
		}
		if !rel.IsValid() {
			return fmt.Errorf("item %s: unknown relevance %q: %w", c.ID, rel, ErrCatalogInvalid)
		}
	}
	if c.Kind == KindQuiz && len(c.Questions) == 0 {
		return fmt.Errorf("quiz %s: no questions: %w", c.ID, ErrCatalogInvalid)
	}
	for i := range c.Questions {
		if err := c.Questions[i].Validate(); err != nil {
			return fmt.Errorf("item %s: %w", c.ID, err)
		}
	}
	return nil
}

// SearchableText returns the concatenated text the search index and the
// fallback substring scan operate on.
func (c *ContentItem) SearchableText() string {
	parts := make([]string, 0, 4+len(c.Tags))
	parts = append(parts, c.Title, c.Description, c.NativeCategory)
	parts = append(parts, c.Tags...)
	if c.Content != "" {
		parts = append(parts, c.Content)
	}
	for i := range c.Questions {
		parts = append(parts, c.Questions[i].Text)
	}
	return strings.Join(parts, " ")
}

// Catalog is the full content library returned by the catalog provider.
type Catalog struct {
	// Modules are the static learning modules.
	Modules []ContentItem `json:"modules"`

	// Quizzes are the quiz items.
	Quizzes []ContentItem `json:"quizzes"`
}
