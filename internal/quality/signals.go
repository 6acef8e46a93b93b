package quality

import (
	"context"
	"sync"
	"time"
)

// SignalType classifies one observation feeding the hybrid implicit
// mixer, mirroring reasoningbank's explicit/usage/outcome signal
// classes.
type SignalType string

const (
	SignalExplicit SignalType = "explicit" // manual user_rating
	SignalUsage    SignalType = "usage"    // access_count activity
	SignalOutcome  SignalType = "outcome"  // retrieval rank quality
)

// Signal is one observation about a memory's usefulness.
type Signal struct {
	ContentHash string
	Type        SignalType
	Positive    bool
	Timestamp   time.Time
}

// ProjectWeights holds per-project learned weights for the three signal
// classes, normalized by ComputeWeights. Adapted from reasoningbank's
// ProjectWeights/ComputeWeights/WeightFor trio.
type ProjectWeights struct {
	ProjectID string
	Explicit  float64
	Usage     float64
	Outcome   float64
}

// DefaultProjectWeights returns the mixer's starting weights before any
// learning: 0.3 explicit, 0.4 usage, 0.3 outcome.
func DefaultProjectWeights(projectID string) *ProjectWeights {
	return &ProjectWeights{ProjectID: projectID, Explicit: 0.3, Usage: 0.4, Outcome: 0.3}
}

// ComputeWeights normalizes the three weights to sum to 1.
func (w *ProjectWeights) ComputeWeights() (explicit, usage, outcome float64) {
	sum := w.Explicit + w.Usage + w.Outcome
	if sum <= 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	return w.Explicit / sum, w.Usage / sum, w.Outcome / sum
}

func (w *ProjectWeights) WeightFor(t SignalType) float64 {
	e, u, o := w.ComputeWeights()
	switch t {
	case SignalExplicit:
		return e
	case SignalUsage:
		return u
	case SignalOutcome:
		return o
	default:
		return 0
	}
}

// SignalAggregate rolls up historical signal counts for one memory.
type SignalAggregate struct {
	ContentHash string
	ExplicitPos, ExplicitNeg int
	UsagePos, UsageNeg       int
	OutcomePos, OutcomeNeg   int
}

// SignalStore persists signal observations and learned project weights.
// Grounded on reasoningbank/confidence.go's SignalStore; narrowed to the
// subset the quality package's hybrid mixer needs.
type SignalStore interface {
	RecordSignal(ctx context.Context, s Signal) error
	Aggregate(ctx context.Context, contentHash string) (*SignalAggregate, error)
	RecentSignals(ctx context.Context, contentHash string, since time.Duration) ([]Signal, error)
	ProjectWeights(ctx context.Context, projectID string) (*ProjectWeights, error)
	LearnFromFeedback(ctx context.Context, projectID string, signalType SignalType, positive bool) error
}

// InMemorySignalStore is an in-memory SignalStore for tests and small
// deployments, adapted from reasoningbank's InMemorySignalStore.
type InMemorySignalStore struct {
	mu      sync.RWMutex
	signals map[string][]Signal
	weights map[string]*ProjectWeights
}

// NewInMemorySignalStore constructs an empty store.
func NewInMemorySignalStore() *InMemorySignalStore {
	return &InMemorySignalStore{
		signals: make(map[string][]Signal),
		weights: make(map[string]*ProjectWeights),
	}
}

func (s *InMemorySignalStore) RecordSignal(_ context.Context, sig Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now().UTC()
	}
	s.signals[sig.ContentHash] = append(s.signals[sig.ContentHash], sig)
	return nil
}

func (s *InMemorySignalStore) Aggregate(_ context.Context, hash string) (*SignalAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg := &SignalAggregate{ContentHash: hash}
	for _, sig := range s.signals[hash] {
		pos := sig.Positive
		switch sig.Type {
		case SignalExplicit:
			if pos {
				agg.ExplicitPos++
			} else {
				agg.ExplicitNeg++
			}
		case SignalUsage:
			if pos {
				agg.UsagePos++
			} else {
				agg.UsageNeg++
			}
		case SignalOutcome:
			if pos {
				agg.OutcomePos++
			} else {
				agg.OutcomeNeg++
			}
		}
	}
	return agg, nil
}

func (s *InMemorySignalStore) RecentSignals(_ context.Context, hash string, since time.Duration) ([]Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-since)
	var out []Signal
	for _, sig := range s.signals[hash] {
		if sig.Timestamp.After(cutoff) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *InMemorySignalStore) ProjectWeights(_ context.Context, projectID string) (*ProjectWeights, error) {
	s.mu.RLock()
	w, ok := s.weights[projectID]
	s.mu.RUnlock()
	if ok {
		cp := *w
		return &cp, nil
	}
	return DefaultProjectWeights(projectID), nil
}

// LearnFromFeedback nudges the weight for signalType up or down based on
// whether it correlated with a positive outcome, matching the teacher's
// simple additive-then-renormalize learning rule.
func (s *InMemorySignalStore) LearnFromFeedback(_ context.Context, projectID string, signalType SignalType, positive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weights[projectID]
	if !ok {
		w = DefaultProjectWeights(projectID)
		s.weights[projectID] = w
	}
	delta := 0.05
	if !positive {
		delta = -0.05
	}
	switch signalType {
	case SignalExplicit:
		w.Explicit = clamp01(w.Explicit + delta)
	case SignalUsage:
		w.Usage = clamp01(w.Usage + delta)
	case SignalOutcome:
		w.Outcome = clamp01(w.Outcome + delta)
	}
	return nil
}

// computeConfidenceFromHybrid is spec.md's hybrid mixer, ported from
// reasoningbank's ComputeConfidenceFromHybrid: a Beta-distribution blend
// of historical aggregates, recent signals, and learned per-project
// weights.
func computeConfidenceFromHybrid(agg *SignalAggregate, recent []Signal, weights *ProjectWeights) float64 {
	explicitW, usageW, outcomeW := weights.ComputeWeights()

	alpha, beta := 1.0, 1.0
	if agg != nil {
		alpha += float64(agg.ExplicitPos)*explicitW + float64(agg.UsagePos)*usageW + float64(agg.OutcomePos)*outcomeW
		beta += float64(agg.ExplicitNeg)*explicitW + float64(agg.UsageNeg)*usageW + float64(agg.OutcomeNeg)*outcomeW
	}
	for _, sig := range recent {
		w := weights.WeightFor(sig.Type)
		if sig.Positive {
			alpha += w
		} else {
			beta += w
		}
	}
	if alpha+beta == 0 {
		return 0.5
	}
	return alpha / (alpha + beta)
}
