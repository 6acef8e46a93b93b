package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// MemorySearch is memory_search: the unified read operation across
// semantic, exact, and hybrid modes, with optional time/tag filters and
// quality-boosted reranking (spec.md §4.3/§4.5).
func (e *Engine) MemorySearch(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	mode := req.Mode
	// An explicit mode with no query is an error (spec.md §7); no mode and
	// no query falls back to a pure time/tag browse over recall(), the
	// same shape spec.md §8 scenario 3 exercises.
	if (mode == SearchSemantic || mode == SearchExact || mode == SearchHybrid) && req.Query == "" {
		return SearchResponse{}, fmt.Errorf("%w: query is required in %s mode", errs.ErrInvalidArgument, mode)
	}
	if mode == "" && req.Query != "" {
		mode = SearchSemantic
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	after, before := req.After, req.Before
	if req.TimeExpr != "" {
		a, b, err := store.ParseTimeExpr(req.TimeExpr, time.Now())
		if err != nil {
			return SearchResponse{}, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
		}
		after, before = a, b
	}
	if !after.IsZero() && !before.IsZero() && after.After(before) {
		return SearchResponse{}, nil
	}

	fetchLimit := limit
	if req.QualityBoost > 0 {
		fetchLimit = limit * 3
	}

	var candidates []store.ScoredMemory
	var err error
	switch {
	case mode == "" && req.Query == "":
		var matches []store.Memory
		matches, err = e.store.Recall(ctx, after, before, fetchLimit)
		candidates = asScored(matches)
	case mode == SearchSemantic:
		candidates, err = e.store.Retrieve(ctx, req.Query, fetchLimit, nil)
	case mode == SearchExact:
		var matches []store.Memory
		matches, err = e.store.ExactMatchSearch(ctx, req.Query, fetchLimit)
		candidates = asScored(matches)
	case mode == SearchHybrid:
		candidates, err = e.hybridModeSearch(ctx, req.Query, fetchLimit)
	default:
		return SearchResponse{}, fmt.Errorf("%w: unknown search mode %q", errs.ErrInvalidArgument, mode)
	}
	if err != nil {
		return SearchResponse{}, err
	}

	candidates = filterByTimeAndTags(candidates, after, before, req.Tags, req.TagMatch)
	preFilterCount := len(candidates)

	if req.QualityBoost > 0 {
		rerankByQuality(candidates, req.QualityBoost)
	} else {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Score != candidates[j].Score {
				return candidates[i].Score > candidates[j].Score
			}
			return candidates[i].Memory.UpdatedAt > candidates[j].Memory.UpdatedAt
		})
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		qs, _ := asFloat(c.Memory.Metadata[store.MetaQualityScore])
		results = append(results, SearchResult{
			Memory:        toMemoryView(c.Memory),
			Score:         c.Score,
			QualityScore:  qs,
			RawSimilarity: c.Score,
		})
	}

	resp := SearchResponse{Results: results}
	if req.IncludeDebug {
		resp.Debug = &SearchDebug{Mode: mode, QualityBoost: req.QualityBoost, PreFilterCount: preFilterCount}
	}
	return resp, nil
}

// hybridModeSearch blends semantic retrieval with an exact-match pass,
// preferring the semantic score when a memory appears in both.
func (e *Engine) hybridModeSearch(ctx context.Context, query string, limit int) ([]store.ScoredMemory, error) {
	semantic, err := e.store.Retrieve(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	exact, err := e.store.ExactMatchSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(semantic))
	out := make([]store.ScoredMemory, 0, len(semantic)+len(exact))
	for _, s := range semantic {
		seen[s.Memory.ContentHash] = true
		out = append(out, s)
	}
	for _, m := range exact {
		if !seen[m.ContentHash] {
			out = append(out, store.ScoredMemory{Memory: m, Score: 1.0})
		}
	}
	return out, nil
}

func asScored(memories []store.Memory) []store.ScoredMemory {
	out := make([]store.ScoredMemory, 0, len(memories))
	for _, m := range memories {
		out = append(out, store.ScoredMemory{Memory: m, Score: 1.0})
	}
	return out
}

func filterByTimeAndTags(candidates []store.ScoredMemory, after, before time.Time, tags []string, tagMatch string) []store.ScoredMemory {
	if after.IsZero() && before.IsZero() && len(tags) == 0 {
		return candidates
	}
	match := store.TagMatch(tagMatch)
	if match == "" {
		match = store.TagMatchAny
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if !after.IsZero() && c.Memory.UpdatedAtTime().Before(after) {
			continue
		}
		if !before.IsZero() && !c.Memory.UpdatedAtTime().Before(before) {
			continue
		}
		if len(tags) > 0 && !tagsMatch(c.Memory.Tags, tags, match) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func tagsMatch(have, want []string, match store.TagMatch) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	if match == store.TagMatchAll {
		for _, t := range want {
			if !set[t] {
				return false
			}
		}
		return true
	}
	for _, t := range want {
		if set[t] {
			return true
		}
	}
	return false
}

// rerankByQuality applies spec.md §4.5's quality-boosted reranking
// formula: (1-w)*similarity + w*quality_score, sorted descending.
func rerankByQuality(candidates []store.ScoredMemory, weight float64) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return blendedScore(candidates[i], weight) > blendedScore(candidates[j], weight)
	})
}

func blendedScore(c store.ScoredMemory, weight float64) float64 {
	qs, _ := asFloat(c.Memory.Metadata[store.MetaQualityScore])
	return (1-weight)*float64(c.Score) + weight*qs
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
