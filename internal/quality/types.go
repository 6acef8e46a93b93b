package quality

import (
	"context"
	"time"
)

// ScoreRequest carries everything a tier might need to score one memory.
// Query is optional: the cross-encoder tier requires it and declares
// itself unavailable without one; the classifier and remote tiers do not
// need it.
type ScoreRequest struct {
	ContentHash string
	Content     string
	Query       string

	AccessCount    int
	LastAccessedAt time.Time
	Now            time.Time

	// RecentRanks holds the normalized rank (0=best) this memory achieved
	// in its last few retrievals, used by the implicit formula's
	// rank_quality term. Empty means "no recent retrievals", which
	// defaults rank_quality to 0.5 per spec.md §4.7.
	RecentRanks []float64

	ProjectID string
	UserRating *int // -1, 0, or 1; nil means no manual rating
}

// Tier is one link in the fallback chain. Score returns
// errs.ErrEvaluatorUnavailable (wrapped) when this tier cannot run right
// now (no query supplied, model not loaded, remote down) so the chain
// proceeds to the next tier.
type Tier interface {
	Name() string
	Score(ctx context.Context, req ScoreRequest) (float64, error)
}

// Decision records the rescue-mode bookkeeping spec.md §4.7 mandates
// when FallbackEnabled and both local tiers are available.
type Decision struct {
	Decision     string // "primary" | "rescue" | "primary_after_rescue_miss" | "unavailable"
	ScorePrimary float64
	ScoreRescue  float64
	FinalScore   float64
}

// Result is the outcome of Evaluate: the composite score plus the
// diagnostic components spec.md §3 wants surfaced in quality_components.
type Result struct {
	Score    float64
	Provider string
	Components map[string]float64
	Rescue   *Decision
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
