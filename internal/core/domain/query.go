package domain

// SortOrder directs query result ordering.
type SortOrder string

// Available sort orders.
const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// QueryOptions configures a category filter or a category-scoped search.
// All fields are optional; the zero value means "no constraint".
type QueryOptions struct {
	// Difficulty restricts results to one difficulty.
	Difficulty Difficulty `json:"difficulty,omitempty"`

	// Kind restricts results to modules or quizzes.
	Kind Kind `json:"kind,omitempty"`

	// Specialization, together with RelevanceLevel, restricts results to
	// items whose specializationRelevance entry matches.
	Specialization Specialization `json:"specialization,omitempty"`

	// RelevanceLevel is the level required for Specialization.
	RelevanceLevel Relevance `json:"relevanceLevel,omitempty"`

	// SortBy names the field to sort by: "title", "difficulty",
	// "examRelevance" or "id". Empty keeps index order.
	SortBy string `json:"sortBy,omitempty"`

	// SortOrder directs the sort; defaults to ascending.
	SortOrder SortOrder `json:"sortOrder,omitempty"`

	// Limit caps the number of results; 0 means no cap.
	Limit int `json:"limit,omitempty"`

	// Offset skips leading results.
	Offset int `json:"offset,omitempty"`
}

// HasRelevanceFilter returns true when both specialization and level are set.
func (o QueryOptions) HasRelevanceFilter() bool {
	return o.Specialization != "" && o.RelevanceLevel != ""
}
