package services

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/logger"
)

// Index tuning.
const (
	// maxIndexAge is the staleness limit; a read observing an older
	// snapshot triggers a rebuild.
	maxIndexAge = 5 * time.Minute

	// maxTermsPerItem caps how many distinct terms one item contributes.
	maxTermsPerItem = 50

	// minTermLength drops one-character tokens.
	minTermLength = 2

	// maxTextIndexTerms triggers pruning when exceeded.
	maxTextIndexTerms = 5000

	// pruneMinDocs drops terms appearing in fewer items.
	pruneMinDocs = 2

	// pruneMaxDocShare drops terms appearing in more than this share of
	// the catalog.
	pruneMaxDocShare = 0.8
)

// idSet is a set of content ids.
type idSet map[string]struct{}

// IndexSnapshot is one immutable build of all indexes. A running query works
// against the snapshot captured at its first index touch; rebuilds only
// affect subsequent queries.
type IndexSnapshot struct {
	// ByBucket maps each bucket to its item ids.
	ByBucket map[domain.Bucket]idSet

	// ByDifficulty maps difficulties to item ids.
	ByDifficulty map[domain.Difficulty]idSet

	// ByKind maps kinds to item ids.
	ByKind map[domain.Kind]idSet

	// ByRelevance maps "<specialization>-<level>" to item ids.
	ByRelevance map[string]idSet

	// Text is the inverted index from term to item ids.
	Text map[string]idSet

	// Order maps item ids to their catalog position, for stable
	// tie-breaking.
	Order map[string]int

	// BuiltAt stamps the build.
	BuiltAt time.Time

	// BuildDuration is how long the build took.
	BuildDuration time.Duration

	// ItemCount is the catalog size at build time.
	ItemCount int
}

// RelevanceKey builds the ByRelevance lookup key.
func RelevanceKey(spec domain.Specialization, level domain.Relevance) string {
	return string(spec) + "-" + string(level)
}

// Indexer builds and refreshes the index snapshots.
type Indexer struct {
	store *ContentStore
	clock driven.Clock

	mu      sync.RWMutex
	current *IndexSnapshot
}

// NewIndexer creates an indexer over the store. No build happens yet;
// the first Snapshot call builds.
func NewIndexer(store *ContentStore, clock driven.Clock) *Indexer {
	return &Indexer{store: store, clock: clock}
}

// Snapshot returns a fresh-enough snapshot, rebuilding when none exists or
// the current one exceeded the staleness limit.
func (ix *Indexer) Snapshot() *IndexSnapshot {
	ix.mu.RLock()
	snap := ix.current
	ix.mu.RUnlock()

	if snap != nil && ix.clock.Now().Sub(snap.BuiltAt) <= maxIndexAge {
		return snap
	}
	return ix.Rebuild()
}

// Current returns the latest snapshot without a staleness check, or nil
// before the first build.
func (ix *Indexer) Current() *IndexSnapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.current
}

// Stale reports whether the current snapshot exceeded the staleness limit.
func (ix *Indexer) Stale() bool {
	ix.mu.RLock()
	snap := ix.current
	ix.mu.RUnlock()
	return snap == nil || ix.clock.Now().Sub(snap.BuiltAt) > maxIndexAge
}

// Rebuild constructs a new snapshot from the content store and publishes it.
func (ix *Indexer) Rebuild() *IndexSnapshot {
	started := ix.clock.Now()
	items := ix.store.All()

	snap := &IndexSnapshot{
		ByBucket:     make(map[domain.Bucket]idSet, 3),
		ByDifficulty: make(map[domain.Difficulty]idSet, 3),
		ByKind:       make(map[domain.Kind]idSet, 2),
		ByRelevance:  make(map[string]idSet),
		Text:         make(map[string]idSet),
		Order:        make(map[string]int, len(items)),
		ItemCount:    len(items),
	}

	for i := range items {
		item := &items[i]
		snap.Order[item.ID] = i

		add(snap.ByBucket, item.Bucket, item.ID)
		add(snap.ByDifficulty, item.Difficulty, item.ID)
		add(snap.ByKind, item.Kind, item.ID)
		for spec, level := range item.SpecializationRelevance {
			addStr(snap.ByRelevance, RelevanceKey(spec, level), item.ID)
		}
		for _, term := range Tokenize(item.SearchableText()) {
			addStr(snap.Text, term, item.ID)
		}
	}

	if len(snap.Text) > maxTextIndexTerms {
		pruneTextIndex(snap.Text, len(items))
	}

	snap.BuiltAt = ix.clock.Now()
	snap.BuildDuration = snap.BuiltAt.Sub(started)

	ix.mu.Lock()
	ix.current = snap
	ix.mu.Unlock()

	logger.Debug("index rebuilt: %d items, %d terms, %v", snap.ItemCount, len(snap.Text), snap.BuildDuration)

	return snap
}

func add[K comparable](m map[K]idSet, key K, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

func addStr(m map[string]idSet, key, id string) {
	add(m, key, id)
}

// pruneTextIndex drops rare terms (below pruneMinDocs items) and overly
// common terms (above pruneMaxDocShare of the catalog).
func pruneTextIndex(text map[string]idSet, itemCount int) {
	maxDocs := int(float64(itemCount) * pruneMaxDocShare)
	for term, ids := range text {
		if len(ids) < pruneMinDocs || len(ids) > maxDocs {
			delete(text, term)
		}
	}
}

// Tokenize lower-cases the text, splits on non-word characters, drops
// tokens shorter than two runes and caps the distinct terms per item.
// The same tokenizer serves indexing and query parsing.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTermLength {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
		if len(terms) >= maxTermsPerItem {
			break
		}
	}
	return terms
}
