package quality

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifierTier_LongStructuredTextScoresHigherThanShort(t *testing.T) {
	tier := NewClassifierTier()
	ctx := context.Background()

	long := strings.Repeat("The deployment pipeline failed on step 3 because of a TIMEOUT error. ", 5)
	short := "ok"

	highScore, err := tier.Score(ctx, ScoreRequest{Content: long})
	require.NoError(t, err)
	lowScore, err := tier.Score(ctx, ScoreRequest{Content: short})
	require.NoError(t, err)

	require.Greater(t, highScore, lowScore)
	require.GreaterOrEqual(t, highScore, 0.0)
	require.LessOrEqual(t, highScore, 1.0)
}

func TestClassifierTier_NeverUnavailable(t *testing.T) {
	tier := NewClassifierTier()
	_, err := tier.Score(context.Background(), ScoreRequest{Content: ""})
	require.NoError(t, err)
}

func TestSoftmax3_SumsToOne(t *testing.T) {
	a, b, c := softmax3(1, 2, 3)
	require.InDelta(t, 1.0, a+b+c, 1e-9)

	a, b, c = softmax3(0, 0, 0)
	require.InDelta(t, 1.0/3, a, 1e-9)
}
