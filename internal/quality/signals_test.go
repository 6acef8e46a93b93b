package quality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemorySignalStore_AggregateCountsByTypeAndPolarity(t *testing.T) {
	s := NewInMemorySignalStore()
	ctx := context.Background()
	hash := "abc123"

	require.NoError(t, s.RecordSignal(ctx, Signal{ContentHash: hash, Type: SignalExplicit, Positive: true}))
	require.NoError(t, s.RecordSignal(ctx, Signal{ContentHash: hash, Type: SignalUsage, Positive: true}))
	require.NoError(t, s.RecordSignal(ctx, Signal{ContentHash: hash, Type: SignalUsage, Positive: false}))
	require.NoError(t, s.RecordSignal(ctx, Signal{ContentHash: hash, Type: SignalOutcome, Positive: false}))

	agg, err := s.Aggregate(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, 1, agg.ExplicitPos)
	require.Equal(t, 0, agg.ExplicitNeg)
	require.Equal(t, 1, agg.UsagePos)
	require.Equal(t, 1, agg.UsageNeg)
	require.Equal(t, 0, agg.OutcomePos)
	require.Equal(t, 1, agg.OutcomeNeg)
}

func TestInMemorySignalStore_RecentSignalsExcludesOld(t *testing.T) {
	s := NewInMemorySignalStore()
	ctx := context.Background()
	hash := "abc123"

	require.NoError(t, s.RecordSignal(ctx, Signal{ContentHash: hash, Type: SignalUsage, Positive: true, Timestamp: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, s.RecordSignal(ctx, Signal{ContentHash: hash, Type: SignalUsage, Positive: true, Timestamp: time.Now()}))

	recent, err := s.RecentSignals(ctx, hash, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestInMemorySignalStore_ProjectWeightsDefaultsThenLearns(t *testing.T) {
	s := NewInMemorySignalStore()
	ctx := context.Background()

	w, err := s.ProjectWeights(ctx, "proj1")
	require.NoError(t, err)
	require.Equal(t, 0.3, w.Explicit)

	require.NoError(t, s.LearnFromFeedback(ctx, "proj1", SignalUsage, true))
	w2, err := s.ProjectWeights(ctx, "proj1")
	require.NoError(t, err)
	require.InDelta(t, 0.45, w2.Usage, 1e-9)
}

func TestProjectWeights_ComputeWeightsNormalizes(t *testing.T) {
	w := &ProjectWeights{Explicit: 1, Usage: 1, Outcome: 2}
	e, u, o := w.ComputeWeights()
	require.InDelta(t, 0.25, e, 1e-9)
	require.InDelta(t, 0.25, u, 1e-9)
	require.InDelta(t, 0.5, o, 1e-9)
}

func TestComputeConfidenceFromHybrid_MorePositiveRaisesConfidence(t *testing.T) {
	weights := DefaultProjectWeights("p")

	low := computeConfidenceFromHybrid(&SignalAggregate{OutcomeNeg: 5}, nil, weights)
	high := computeConfidenceFromHybrid(&SignalAggregate{OutcomePos: 5}, nil, weights)

	require.Less(t, low, 0.5)
	require.Greater(t, high, 0.5)
}

func TestComputeConfidenceFromHybrid_NoEvidenceIsNeutral(t *testing.T) {
	require.Equal(t, 0.5, computeConfidenceFromHybrid(nil, nil, DefaultProjectWeights("p")))
}
