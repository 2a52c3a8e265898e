package domain

// Bucket is one of the three canonical categories every content item is
// assigned to. The identifiers appear in stored user data and must stay
// bit-exact.
type Bucket string

// The fixed three-tier taxonomy.
const (
	// BucketDPA holds Daten- und Prozessanalyse content.
	BucketDPA Bucket = "daten-prozessanalyse"

	// BucketAE holds Anwendungsentwicklung content.
	BucketAE Bucket = "anwendungsentwicklung"

	// BucketGeneral holds content relevant to both specializations.
	BucketGeneral Bucket = "allgemein"
)

// IsValid returns true if the bucket is one of the fixed three.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketDPA, BucketAE, BucketGeneral:
		return true
	default:
		return false
	}
}

// String returns the stable string identifier.
func (b Bucket) String() string {
	return string(b)
}

// AllBuckets returns the fixed taxonomy in declaration order.
func AllBuckets() []Bucket {
	return []Bucket{BucketDPA, BucketAE, BucketGeneral}
}

// Siblings returns the other two buckets, used for cache preloading.
func (b Bucket) Siblings() []Bucket {
	siblings := make([]Bucket, 0, 2)
	for _, other := range AllBuckets() {
		if other != b {
			siblings = append(siblings, other)
		}
	}
	return siblings
}

// BucketRelevance returns the fixed bucket-to-specialization relevance:
// specialization buckets are highly relevant to their own track and of low
// relevance to the other; general content is highly relevant to both.
func BucketRelevance(b Bucket, spec Specialization) Relevance {
	switch b {
	case BucketDPA:
		if spec == SpecializationDPA {
			return RelevanceHigh
		}
		return RelevanceLow
	case BucketAE:
		if spec == SpecializationAE {
			return RelevanceHigh
		}
		return RelevanceLow
	case BucketGeneral:
		return RelevanceHigh
	default:
		return RelevanceLow
	}
}

// CategoryMetadata describes a bucket for display purposes.
// Served from the static three-tier category definition.
type CategoryMetadata struct {
	// ID is the stable bucket identifier.
	ID Bucket `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Description explains what the category covers.
	Description string `json:"description"`

	// Color is the display colour (hex).
	Color string `json:"color"`

	// Icon is the display icon identifier.
	Icon string `json:"icon"`
}
