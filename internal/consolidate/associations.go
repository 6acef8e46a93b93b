package consolidate

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/memengine/internal/store"
)

type assocCandidate struct {
	lo, hi   string
	reason   string
	strength float64
}

// discoverAssociations implements spec.md §4.8 phase 2: for every
// candidate, find its top-K nearest neighbors by embedding cosine and emit
// embedding_proximity associations above TauAssoc, plus co_tag associations
// for any pair (candidate, neighbor) whose tag-Jaccard clears TauTag.
// Concurrency across candidates is bounded by cfg.MaxConcurrency via
// errgroup.Group.SetLimit; per-candidate failures are logged, never
// propagated, so one bad candidate cannot abort the whole phase.
func (c *Consolidator) discoverAssociations(ctx context.Context, candidates, all []store.Memory) (int, error) {
	if len(all) < 2 || len(candidates) == 0 {
		return 0, nil
	}

	var mu sync.Mutex
	pairs := make(map[[2]string]assocCandidate)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrency)

	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			for _, nb := range topKNeighbors(cand, all, c.cfg.TopK) {
				reason, strength := classifyPair(cand, nb, c.cfg.TauAssoc, c.cfg.TauTag)
				if reason == "" {
					continue
				}
				lo, hi := store.NormalizePair(cand.ContentHash, nb.ContentHash)
				mu.Lock()
				pairs[[2]string{lo, hi}] = assocCandidate{lo: lo, hi: hi, reason: reason, strength: strength}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return a non-nil error; this only waits

	added := 0
	for _, p := range pairs {
		if err := c.store.UpsertAssociation(ctx, p.lo, p.hi, p.strength, p.reason); err != nil {
			c.logger.Warn(ctx, "consolidate: upserting association failed, skipping pair",
				zap.String("hash_a", p.lo), zap.String("hash_b", p.hi), zap.Error(err))
			continue
		}
		added++
	}
	return added, nil
}

// classifyPair decides whether (a, b) clears the embedding-proximity or
// co_tag threshold, preferring the stronger signal when both qualify.
func classifyPair(a, b store.Memory, tauAssoc, tauTag float64) (reason string, strength float64) {
	sim := cosineSimilarity(a.Embedding, b.Embedding)
	tagJ := jaccard(a.Tags, b.Tags)

	simOK := sim >= tauAssoc
	tagOK := tauTag > 0 && tagJ >= tauTag

	switch {
	case simOK && tagOK:
		if sim >= tagJ {
			return store.ReasonEmbeddingProximity, sim
		}
		return store.ReasonCoTag, tagJ
	case simOK:
		return store.ReasonEmbeddingProximity, sim
	case tagOK:
		return store.ReasonCoTag, tagJ
	default:
		return "", 0
	}
}

type neighbor struct {
	store.Memory
	sim float64
}

// topKNeighbors ranks pool by cosine similarity to cand's embedding,
// excluding cand itself, and returns the top k.
func topKNeighbors(cand store.Memory, pool []store.Memory, k int) []store.Memory {
	candidates := make([]neighbor, 0, len(pool))
	for _, m := range pool {
		if m.ContentHash == cand.ContentHash {
			continue
		}
		candidates = append(candidates, neighbor{Memory: m, sim: cosineSimilarity(cand.Embedding, m.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]store.Memory, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].Memory
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// jaccard computes the tag-set Jaccard similarity of a and b.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]int, len(a))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	var union, intersection int
	for _, v := range set {
		union++
		if v == 3 {
			intersection++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
