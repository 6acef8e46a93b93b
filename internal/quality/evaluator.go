package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
)

// Evaluator is C7: the tiered quality-scoring fallback chain plus the
// always-on implicit-signal component. Construct via NewEvaluator.
type Evaluator struct {
	cfg Config

	crossEncoder Tier
	classifier   Tier
	remoteA      Tier
	remoteB      Tier

	signals SignalStore
}

// NewEvaluator constructs an Evaluator. remoteA/remoteB/signals may be
// nil: a nil remote tier is simply never reached (ProviderAuto treats
// a nil tier the same as one that reports ErrEvaluatorUnavailable); a
// nil signals store falls back to spec.md §4.7's fixed-weight formula
// for the implicit component regardless of cfg.ImplicitMixer.
//
// Per spec.md §9's open question on fallback-mode model loading, both
// local tiers (cross-encoder, classifier) are constructed eagerly here
// rather than lazily on first rescue, matching the teacher's
// eager-init-with-readiness-check idiom.
func NewEvaluator(cfg Config, embedder embedding.Provider, remoteA, remoteB Tier, signals SignalStore) *Evaluator {
	cfg.ApplyDefaults()
	return &Evaluator{
		cfg:          cfg,
		crossEncoder: NewCrossEncoderTier(embedder),
		classifier:   NewClassifierTier(),
		remoteA:      remoteA,
		remoteB:      remoteB,
		signals:      signals,
	}
}

// Evaluate scores one memory, producing the composite score and the
// diagnostic components spec.md §3 wants in quality_components.
func (e *Evaluator) Evaluate(ctx context.Context, req ScoreRequest) (Result, error) {
	implicitComponent := e.implicitComponent(ctx, req)
	components := map[string]float64{"implicit": implicitComponent}

	var aiComponent float64
	var providerUsed string
	var rescue *Decision

	switch {
	case e.cfg.AIProvider == ProviderNone:
		aiComponent = implicitComponent
		providerUsed = "implicit_only"

	case e.cfg.FallbackEnabled && e.crossEncoder != nil && e.classifier != nil &&
		(e.cfg.AIProvider == ProviderLocal || e.cfg.AIProvider == ProviderAuto):
		score, dec := e.rescueChain(ctx, req)
		aiComponent = score
		rescue = dec
		providerUsed = "local_rescue_" + dec.Decision

	default:
		score, name, err := e.runChain(ctx, req)
		if err != nil {
			aiComponent = implicitComponent
			providerUsed = "implicit_only"
		} else {
			aiComponent = score
			providerUsed = name
		}
	}
	components["ai"] = aiComponent

	base := 0.5*aiComponent + 0.5*implicitComponent
	final := base
	if req.UserRating != nil {
		userMapped := mapUserRating(*req.UserRating)
		components["user_rating"] = userMapped
		final = 0.6*userMapped + 0.4*base
	}

	return Result{
		Score:      clamp01(final),
		Provider:   providerUsed,
		Components: components,
		Rescue:     rescue,
	}, nil
}

// tiersForProvider returns the ordered list of tiers runChain tries for
// the configured provider, per spec.md §4.7: "local" tries cross-encoder
// then classifier; "remote_a"/"remote_b" try only that tier; "auto"
// tries every AI tier in order.
func (e *Evaluator) tiersForProvider() []Tier {
	switch e.cfg.AIProvider {
	case ProviderLocal:
		return []Tier{e.crossEncoder, e.classifier}
	case ProviderRemoteA:
		return []Tier{e.remoteA}
	case ProviderRemoteB:
		return []Tier{e.remoteB}
	case ProviderAuto:
		return []Tier{e.crossEncoder, e.classifier, e.remoteA, e.remoteB}
	default:
		return nil
	}
}

// runChain tries each configured tier in order, returning the first
// successful score. A tier reporting errs.ErrEvaluatorUnavailable (or a
// nil tier) is skipped, not treated as fatal.
func (e *Evaluator) runChain(ctx context.Context, req ScoreRequest) (float64, string, error) {
	for _, tier := range e.tiersForProvider() {
		if tier == nil {
			continue
		}
		score, err := tier.Score(ctx, req)
		if err == nil {
			return score, tier.Name(), nil
		}
		if !errors.Is(err, errs.ErrEvaluatorUnavailable) {
			return 0, "", err
		}
	}
	return 0, "", fmt.Errorf("%w: no AI tier available", errs.ErrEvaluatorUnavailable)
}

// rescueChain implements spec.md §4.7's optional fallback composite
// mode: prefer the primary (cross-encoder) score when confident, else
// try the rescue (classifier) score, else fall back to the primary
// regardless. This explicitly does not average the two signals; it
// preserves the stronger one.
func (e *Evaluator) rescueChain(ctx context.Context, req ScoreRequest) (float64, *Decision) {
	s1, err1 := e.crossEncoder.Score(ctx, req)
	if err1 == nil && s1 >= e.cfg.DebertaThreshold {
		return s1, &Decision{Decision: "primary", ScorePrimary: s1, FinalScore: s1}
	}

	s2, err2 := e.classifier.Score(ctx, req)
	if err1 != nil {
		if err2 != nil {
			return 0, &Decision{Decision: "unavailable", FinalScore: 0}
		}
		return s2, &Decision{Decision: "rescue", ScoreRescue: s2, FinalScore: s2}
	}
	if err2 == nil && s2 >= e.cfg.MsmarcoThreshold {
		return s2, &Decision{Decision: "rescue", ScorePrimary: s1, ScoreRescue: s2, FinalScore: s2}
	}
	return s1, &Decision{Decision: "primary_after_rescue_miss", ScorePrimary: s1, ScoreRescue: s2, FinalScore: s1}
}

// implicitComponent computes the always-on implicit-signal component,
// using the hybrid Beta-mix mixer when configured and a SignalStore is
// available, falling back to spec.md §4.7's exact fixed-weight formula
// otherwise.
func (e *Evaluator) implicitComponent(ctx context.Context, req ScoreRequest) float64 {
	if e.cfg.ImplicitMixer != MixerHybrid || e.signals == nil {
		return implicitFormula(req, e.cfg.FRef, e.cfg.Tau)
	}

	agg, err := e.signals.Aggregate(ctx, req.ContentHash)
	if err != nil {
		return implicitFormula(req, e.cfg.FRef, e.cfg.Tau)
	}
	recent, err := e.signals.RecentSignals(ctx, req.ContentHash, time.Duration(e.cfg.Tau*24)*time.Hour)
	if err != nil {
		recent = nil
	}
	weights, err := e.signals.ProjectWeights(ctx, req.ProjectID)
	if err != nil {
		weights = DefaultProjectWeights(req.ProjectID)
	}
	return clamp01(computeConfidenceFromHybrid(agg, recent, weights))
}

func mapUserRating(rating int) float64 {
	switch rating {
	case -1:
		return 0.0
	case 1:
		return 1.0
	default:
		return 0.5
	}
}

