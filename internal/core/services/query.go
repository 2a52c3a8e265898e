package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/core/ports/driving"
	"github.com/lernkern/lernkern/internal/logger"
)

// Ensure QueryEngine implements the interface.
var _ driving.ContentQueryService = (*QueryEngine)(nil)

// Search scoring weights.
const (
	scoreTitleHit        = 10.0
	scoreDescriptionHit  = 5.0
	scoreAnyTextHit      = 1.0
	scoreWordBoundaryHit = 2.0
	boostImportant       = 1.5
	boostHighRelevance   = 1.3
)

// QueryEngine executes category filters and category-scoped search against
// the index snapshots, with the cache in front. Every read records a metric.
type QueryEngine struct {
	store   *ContentStore
	indexer *Indexer
	cache   *Cache
	monitor *Monitor
	clock   driven.Clock

	// snapshot is the index access seam; it defaults to the indexer and
	// is swapped in tests to exercise the linear-scan fallback.
	snapshot func() (*IndexSnapshot, error)
}

// NewQueryEngine wires the engine.
func NewQueryEngine(store *ContentStore, indexer *Indexer, cache *Cache, monitor *Monitor, clock driven.Clock) *QueryEngine {
	e := &QueryEngine{
		store:   store,
		indexer: indexer,
		cache:   cache,
		monitor: monitor,
		clock:   clock,
	}
	e.snapshot = func() (*IndexSnapshot, error) {
		return indexer.Snapshot(), nil
	}
	return e
}

// fingerprint builds the cache key for a category query. QueryOptions
// marshals with a fixed field order, so the JSON is canonical.
func fingerprint(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case domain.Bucket:
			b.WriteString(string(v))
		default:
			data, err := json.Marshal(v)
			if err != nil {
				b.WriteString(fmt.Sprintf("%v", v))
				continue
			}
			b.Write(data)
		}
	}
	return b.String()
}

// GetByBucket returns the items of one bucket, filtered, sorted and
// paginated. Results are cached; a miss stores into the cold level and
// schedules sibling-bucket preloads.
func (e *QueryEngine) GetByBucket(ctx context.Context, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error) {
	started := e.clock.Now()

	if !bucket.IsValid() {
		logger.Warn("query for unknown bucket %q", bucket)
		e.record(domain.OpCategoryFilter, started, "", 0, false, "")
		return []domain.ContentItem{}, nil
	}

	key := fingerprint("category", bucket, opts)
	if cached, ok := e.cache.GetContent(key); ok {
		e.record(domain.OpCategoryFilter, started, key, len(cached), true, "")
		return cached, nil
	}

	results, err := e.computeBucket(bucket, opts)
	if err != nil {
		// Index trouble: fall back to a linear scan but keep serving.
		logger.Warn("index unavailable, falling back to linear scan: %v", err)
		results = e.fallbackScan(bucket, "", opts)
		e.record(domain.OpCategoryFilter, started, key, len(results), false, err.Error())
		return results, nil
	}

	e.cache.StoreContent(key, results)
	e.schedulePreloads(bucket, opts)
	e.record(domain.OpCategoryFilter, started, key, len(results), false, "")
	return results, nil
}

// computeBucket resolves a bucket query against the current index snapshot.
func (e *QueryEngine) computeBucket(bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuildFailed, err)
	}

	ids := snap.ByBucket[bucket]
	ids = e.applyIndexFilters(snap, ids, opts)

	results := e.materialize(snap, ids)
	e.sortItems(results, opts)
	return paginate(results, opts), nil
}

// applyIndexFilters intersects the id set with every present option. A
// missing index entry for a requested value empties the result immediately.
func (e *QueryEngine) applyIndexFilters(snap *IndexSnapshot, ids idSet, opts domain.QueryOptions) idSet {
	if len(ids) == 0 {
		return nil
	}
	if opts.Difficulty != "" {
		ids = intersect(ids, snap.ByDifficulty[opts.Difficulty])
	}
	if opts.Kind != "" {
		ids = intersect(ids, snap.ByKind[opts.Kind])
	}
	if opts.HasRelevanceFilter() {
		ids = intersect(ids, snap.ByRelevance[RelevanceKey(opts.Specialization, opts.RelevanceLevel)])
	}
	return ids
}

// SearchInBucket runs a full-text search scoped to one bucket. Matching
// requires every query token; scores weight title hits over body hits and
// boost important and high-relevance items. An empty or tokenless query
// degenerates to GetByBucket.
func (e *QueryEngine) SearchInBucket(ctx context.Context, query string, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error) {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return e.GetByBucket(ctx, bucket, opts)
	}

	started := e.clock.Now()

	if !bucket.IsValid() {
		logger.Warn("search in unknown bucket %q", bucket)
		e.record(domain.OpCategorySearch, started, "", 0, false, "")
		return []domain.ContentItem{}, nil
	}

	key := fingerprint("search", strings.Join(terms, " "), bucket, opts)
	if cached, ok := e.cache.GetSearch(key); ok {
		e.record(domain.OpCategorySearch, started, key, len(cached), true, "")
		return cached, nil
	}

	results, err := e.computeSearch(terms, bucket, opts)
	if err != nil {
		logger.Warn("index unavailable, falling back to linear scan: %v", err)
		results = e.fallbackScan(bucket, strings.ToLower(query), opts)
		e.record(domain.OpCategorySearch, started, key, len(results), false, err.Error())
		return results, nil
	}

	e.cache.StoreSearch(key, results)
	e.record(domain.OpCategorySearch, started, key, len(results), false, "")
	return results, nil
}

// computeSearch resolves the token AND-intersection, scores survivors and
// applies secondary filters and pagination.
func (e *QueryEngine) computeSearch(terms []string, bucket domain.Bucket, opts domain.QueryOptions) ([]domain.ContentItem, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuildFailed, err)
	}

	var ids idSet
	for i, term := range terms {
		termIDs := snap.Text[term]
		if i == 0 {
			ids = termIDs
		} else {
			ids = intersect(ids, termIDs)
		}
		if len(ids) == 0 {
			return []domain.ContentItem{}, nil
		}
	}
	ids = intersect(ids, snap.ByBucket[bucket])

	scored := e.scoreItems(snap, ids, terms)

	// Secondary filters after scoring, then pagination.
	results := make([]domain.ContentItem, 0, len(scored))
	for _, s := range scored {
		if opts.Difficulty != "" && s.item.Difficulty != opts.Difficulty {
			continue
		}
		if opts.Kind != "" && s.item.Kind != opts.Kind {
			continue
		}
		results = append(results, s.item)
	}

	return paginate(results, opts), nil
}

// scoredItem pairs an item with its search score and insertion order.
type scoredItem struct {
	item  domain.ContentItem
	score float64
	order int
}

// scoreItems computes per-item scores and sorts descending; equal scores
// keep catalog insertion order.
func (e *QueryEngine) scoreItems(snap *IndexSnapshot, ids idSet, terms []string) []scoredItem {
	scored := make([]scoredItem, 0, len(ids))
	for id := range ids {
		item, ok := e.store.Get(id)
		if !ok {
			continue
		}
		scored = append(scored, scoredItem{
			item:  *item,
			score: scoreItem(item, terms),
			order: snap.Order[id],
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].order < scored[j].order
	})

	return scored
}

// scoreItem weights where the terms appear: title hits dominate,
// description and tag hits count medium, any other searchable text counts
// low, and exact word-boundary matches add on top. Important items and
// high exam relevance multiply the total.
func scoreItem(item *domain.ContentItem, terms []string) float64 {
	title := strings.ToLower(item.Title)
	description := strings.ToLower(item.Description)
	tags := strings.ToLower(strings.Join(item.Tags, " "))
	all := strings.ToLower(item.SearchableText())

	var score float64
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			score += scoreTitleHit
		case strings.Contains(description, term) || strings.Contains(tags, term):
			score += scoreDescriptionHit
		case strings.Contains(all, term):
			score += scoreAnyTextHit
		}
		if containsWord(all, term) {
			score += scoreWordBoundaryHit
		}
	}

	if item.Important {
		score *= boostImportant
	}
	if item.ExamRelevance == domain.RelevanceHigh {
		score *= boostHighRelevance
	}
	return score
}

// containsWord reports an exact word-boundary hit of term in lowered text.
func containsWord(text, term string) bool {
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == term {
			return true
		}
	}
	return false
}

// fallbackScan serves a degraded result by scanning the whole store when
// indexes are unusable: bucket match plus substring match for searches.
func (e *QueryEngine) fallbackScan(bucket domain.Bucket, loweredQuery string, opts domain.QueryOptions) []domain.ContentItem {
	results := make([]domain.ContentItem, 0)
	for _, item := range e.store.All() {
		if item.Bucket != bucket {
			continue
		}
		if opts.Difficulty != "" && item.Difficulty != opts.Difficulty {
			continue
		}
		if opts.Kind != "" && item.Kind != opts.Kind {
			continue
		}
		if loweredQuery != "" && !strings.Contains(strings.ToLower(item.SearchableText()), loweredQuery) {
			continue
		}
		results = append(results, item)
	}
	e.sortItems(results, opts)
	return paginate(results, opts)
}

// schedulePreloads queues the sibling buckets' equivalent queries.
func (e *QueryEngine) schedulePreloads(bucket domain.Bucket, opts domain.QueryOptions) {
	for _, sibling := range bucket.Siblings() {
		e.cache.EnqueuePreload(PreloadJob{
			Bucket: sibling,
			Opts:   opts,
			Key:    fingerprint("category", sibling, opts),
		})
	}
}

// ProcessPreloads drains one batch of preload jobs and stores their results
// in the cold level. Run by the periodic maintenance worker.
func (e *QueryEngine) ProcessPreloads() int {
	batch := e.cache.DrainPreload()
	for _, job := range batch {
		results, err := e.computeBucket(job.Bucket, job.Opts)
		if err != nil {
			logger.Warn("preload of %s failed: %v", job.Bucket, err)
			continue
		}
		e.cache.StoreContent(job.Key, results)
	}
	return len(batch)
}

// materialize resolves an id set into items in catalog order.
func (e *QueryEngine) materialize(snap *IndexSnapshot, ids idSet) []domain.ContentItem {
	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return snap.Order[ordered[i]] < snap.Order[ordered[j]]
	})

	results := make([]domain.ContentItem, 0, len(ordered))
	for _, id := range ordered {
		if item, ok := e.store.Get(id); ok {
			results = append(results, *item)
		}
	}
	return results
}

// difficultyRank orders difficulties for sorting.
var difficultyRank = map[domain.Difficulty]int{
	domain.DifficultyBeginner:     0,
	domain.DifficultyIntermediate: 1,
	domain.DifficultyAdvanced:     2,
}

// relevanceRank orders relevance levels for sorting.
var relevanceRank = map[domain.Relevance]int{
	domain.RelevanceLow:    0,
	domain.RelevanceMedium: 1,
	domain.RelevanceHigh:   2,
}

// sortItems sorts stably by the requested field. String fields compare with
// German collation; graded fields compare by rank.
func (e *QueryEngine) sortItems(items []domain.ContentItem, opts domain.QueryOptions) {
	if opts.SortBy == "" {
		return
	}

	desc := opts.SortOrder == domain.SortDescending
	col := collate.New(language.German)

	less := func(a, b *domain.ContentItem) int {
		switch opts.SortBy {
		case "title":
			return col.CompareString(a.Title, b.Title)
		case "id":
			return col.CompareString(a.ID, b.ID)
		case "difficulty":
			return difficultyRank[a.Difficulty] - difficultyRank[b.Difficulty]
		case "examRelevance":
			return relevanceRank[a.ExamRelevance] - relevanceRank[b.ExamRelevance]
		default:
			return 0
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		cmp := less(&items[i], &items[j])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// paginate applies offset and limit.
func paginate(items []domain.ContentItem, opts domain.QueryOptions) []domain.ContentItem {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []domain.ContentItem{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// intersect returns the ids present in both sets.
func intersect(a, b idSet) idSet {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(idSet)
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// record hands a completed read to the monitor.
func (e *QueryEngine) record(op string, started time.Time, key string, count int, hit bool, errMsg string) {
	if e.monitor == nil {
		return
	}
	now := e.clock.Now()
	e.monitor.Record(domain.Metric{
		Timestamp:   now,
		Op:          op,
		Duration:    now.Sub(started),
		Fingerprint: key,
		ResultCount: count,
		CacheHit:    hit,
		Err:         errMsg,
	})
}
