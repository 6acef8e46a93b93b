package consolidate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// qualityPass implements spec.md §4.8 phase 3: for every candidate lacking
// a quality score fresher than cfg.SRefresh, score it via the quality
// evaluator and persist quality_score/quality_provider/quality_components,
// appending to the capped ai_scores history. Concurrency is bounded by
// cfg.MaxConcurrency via a weighted semaphore; a failure scoring one
// memory is logged and skipped, never aborting the pass.
func (c *Consolidator) qualityPass(ctx context.Context, candidates []store.Memory, now time.Time) (int, error) {
	if !c.cfg.QualityEnabled || c.evaluator == nil {
		return 0, nil
	}

	sem := semaphore.NewWeighted(int64(c.cfg.MaxConcurrency))
	var wg sync.WaitGroup
	var scored int64

	for _, cand := range candidates {
		cand := cand
		if !needsQualityRefresh(cand, c.cfg.SRefresh, now) {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			if c.scoreOne(ctx, cand, now) {
				atomic.AddInt64(&scored, 1)
			}
		}()
	}
	wg.Wait()
	return int(scored), nil
}

func (c *Consolidator) scoreOne(ctx context.Context, cand store.Memory, now time.Time) bool {
	req := quality.ScoreRequest{
		ContentHash:    cand.ContentHash,
		Content:        cand.Content,
		AccessCount:    accessCount(cand),
		LastAccessedAt: lastAccessedAt(cand),
		Now:            now,
		ProjectID:      cand.MemoryType,
	}
	if v, ok := cand.Metadata[store.MetaUserRating]; ok {
		if f, ok := asFloat(v); ok {
			rating := int(f)
			req.UserRating = &rating
		}
	}

	result, err := c.evaluator.Evaluate(ctx, req)
	if err != nil {
		c.logger.Warn(ctx, "consolidate: quality evaluation failed, skipping memory",
			zap.String("hash", cand.ContentHash), zap.Error(err))
		return false
	}

	components := make(map[string]float64, len(result.Components))
	for k, v := range result.Components {
		components[k] = v
	}

	history, _ := cand.Metadata[store.MetaAIScores].([]interface{})
	history = quality.AppendAIScore(history, quality.AIScoreEntry{
		Score:      result.Score,
		Provider:   result.Provider,
		Timestamp:  float64(now.Unix()),
		Components: components,
	}, c.cfg.AIScoresCap)

	partial := map[string]interface{}{
		store.MetaQualityScore:      result.Score,
		store.MetaQualityProvider:   result.Provider,
		store.MetaQualityComponents: toInterfaceMap(components),
		store.MetaAIScores:          history,
	}
	if c.cfg.DecayEnabled {
		// spec.md §4.8 phase 5: decay_multiplier is derived directly from
		// the freshly computed quality_score, so it is maintained here
		// rather than as a separate pass over the candidate set.
		partial[store.MetaDecayMultiplier] = 1 + 0.5*result.Score
	}
	if err := c.store.UpdateMetadata(ctx, cand.ContentHash, partial); err != nil {
		c.logger.Warn(ctx, "consolidate: persisting quality score failed",
			zap.String("hash", cand.ContentHash), zap.Error(err))
		return false
	}
	return true
}

func toInterfaceMap(m map[string]float64) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// needsQualityRefresh reports whether cand lacks a quality score newer
// than sRefresh, reading the timestamp of the most recent ai_scores entry.
func needsQualityRefresh(m store.Memory, sRefresh time.Duration, now time.Time) bool {
	raw, ok := m.Metadata[store.MetaAIScores]
	if !ok {
		return true
	}
	arr, ok := raw.([]interface{})
	if !ok || len(arr) == 0 {
		return true
	}
	last, ok := arr[len(arr)-1].(map[string]interface{})
	if !ok {
		return true
	}
	ts, ok := asFloat(last["timestamp"])
	if !ok {
		return true
	}
	scoredAt := time.Unix(int64(ts), 0).UTC()
	return now.Sub(scoredAt) > sRefresh
}
