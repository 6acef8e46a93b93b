package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
)

func TestCrossEncoderTier_ScoresIdenticalTextHigh(t *testing.T) {
	tier := NewCrossEncoderTier(embedding.NewFake(16))
	score, err := tier.Score(context.Background(), ScoreRequest{
		Query:   "remember the milk",
		Content: "remember the milk",
	})
	require.NoError(t, err)
	require.InDelta(t, 1.0, score, 0.01)
}

func TestCrossEncoderTier_RequiresQueryAndContent(t *testing.T) {
	tier := NewCrossEncoderTier(embedding.NewFake(16))

	_, err := tier.Score(context.Background(), ScoreRequest{Content: "x"})
	require.ErrorIs(t, err, errs.ErrEvaluatorUnavailable)

	_, err = tier.Score(context.Background(), ScoreRequest{Query: "x"})
	require.ErrorIs(t, err, errs.ErrEvaluatorUnavailable)
}

func TestCrossEncoderTier_NilEmbedderUnavailable(t *testing.T) {
	tier := NewCrossEncoderTier(nil)
	_, err := tier.Score(context.Background(), ScoreRequest{Query: "q", Content: "c"})
	require.ErrorIs(t, err, errs.ErrEvaluatorUnavailable)
}

func TestCosineSimilarity(t *testing.T) {
	require.Equal(t, 0.0, cosineSimilarity(nil, []float32{1}))
	require.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1}))
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
}
