package quality

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
)

type fakeTier struct {
	name  string
	score float64
	err   error
}

func (f *fakeTier) Name() string { return f.name }
func (f *fakeTier) Score(_ context.Context, _ ScoreRequest) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}

func TestEvaluator_ProviderNoneUsesImplicitOnly(t *testing.T) {
	cfg := Config{AIProvider: ProviderNone}
	e := NewEvaluator(cfg, embedding.NewFake(8), nil, nil, nil)

	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "c"})
	require.NoError(t, err)
	require.Equal(t, "implicit_only", res.Provider)
	require.Equal(t, res.Components["implicit"], res.Components["ai"])
}

func TestEvaluator_RemoteProviderRunsOnlyThatTier(t *testing.T) {
	cfg := Config{AIProvider: ProviderRemoteA}
	remoteA := &fakeTier{name: "remote_a", score: 0.9}
	e := NewEvaluator(cfg, embedding.NewFake(8), remoteA, nil, nil)

	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "c"})
	require.NoError(t, err)
	require.Equal(t, "remote_a", res.Provider)
	require.InDelta(t, 0.9, res.Components["ai"], 1e-9)
}

func TestEvaluator_AutoFallsBackWhenTierUnavailable(t *testing.T) {
	cfg := Config{AIProvider: ProviderAuto, FallbackEnabled: false}
	remoteA := &fakeTier{name: "remote_a", err: fmt.Errorf("%w: down", errs.ErrEvaluatorUnavailable)}
	remoteB := &fakeTier{name: "remote_b", score: 0.4}
	// no embedder -> cross-encoder tier unavailable (requires a query); classifier never unavailable
	e := NewEvaluator(cfg, nil, remoteA, remoteB, nil)

	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "c"})
	require.NoError(t, err)
	require.Equal(t, "local_classifier", res.Provider)
}

func TestEvaluator_AllTiersUnavailableFallsBackToImplicit(t *testing.T) {
	cfg := Config{AIProvider: ProviderRemoteA}
	remoteA := &fakeTier{name: "remote_a", err: fmt.Errorf("%w: down", errs.ErrEvaluatorUnavailable)}
	e := NewEvaluator(cfg, embedding.NewFake(8), remoteA, nil, nil)

	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "c"})
	require.NoError(t, err)
	require.Equal(t, "implicit_only", res.Provider)
}

func TestEvaluator_UserRatingOverridesTowardManualSignal(t *testing.T) {
	cfg := Config{AIProvider: ProviderNone}
	e := NewEvaluator(cfg, embedding.NewFake(8), nil, nil, nil)

	positive := 1
	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "c", UserRating: &positive})
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Components["user_rating"])
	require.Greater(t, res.Score, res.Components["implicit"])
}

func TestEvaluator_RescueChainPrefersPrimaryWhenConfident(t *testing.T) {
	cfg := Config{AIProvider: ProviderLocal, FallbackEnabled: true, DebertaThreshold: 0.5}
	e := NewEvaluator(cfg, embedding.NewFake(8), nil, nil, nil)

	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "same", Query: "same"})
	require.NoError(t, err)
	require.NotNil(t, res.Rescue)
	require.Equal(t, "primary", res.Rescue.Decision)
}

func TestEvaluator_RescueChainFallsBackToClassifierWhenPrimaryWeak(t *testing.T) {
	cfg := Config{AIProvider: ProviderLocal, FallbackEnabled: true, DebertaThreshold: 0.99, MsmarcoThreshold: 0.0}
	e := NewEvaluator(cfg, embedding.NewFake(8), nil, nil, nil)

	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "completely different content here", Query: "unrelated query text"})
	require.NoError(t, err)
	require.NotNil(t, res.Rescue)
	require.Contains(t, []string{"rescue", "primary_after_rescue_miss"}, res.Rescue.Decision)
}

func TestEvaluator_HybridMixerUsesSignalStore(t *testing.T) {
	cfg := Config{AIProvider: ProviderNone, ImplicitMixer: MixerHybrid}
	signals := NewInMemorySignalStore()
	require.NoError(t, signals.RecordSignal(context.Background(), Signal{ContentHash: "h", Type: SignalOutcome, Positive: true}))

	e := NewEvaluator(cfg, embedding.NewFake(8), nil, nil, signals)
	res, err := e.Evaluate(context.Background(), ScoreRequest{ContentHash: "h", Content: "c", ProjectID: "p"})
	require.NoError(t, err)
	require.Greater(t, res.Components["implicit"], 0.5)
}
