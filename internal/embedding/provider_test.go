package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeProvider_Deterministic(t *testing.T) {
	p := NewFake(8)
	ctx := context.Background()
	v1, err := p.EmbedQuery(ctx, "hello")
	require.NoError(t, err)
	v2, err := p.EmbedQuery(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Len(t, v1, 8)
}

func TestFakeProvider_DistinctInputsDiffer(t *testing.T) {
	p := NewFake(8)
	ctx := context.Background()
	v1, _ := p.EmbedQuery(ctx, "hello")
	v2, _ := p.EmbedQuery(ctx, "goodbye")
	require.NotEqual(t, v1, v2)
}

func TestFakeProvider_EmbedDocumentsBatch(t *testing.T) {
	p := NewFake(4)
	out, err := p.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, v := range out {
		require.Len(t, v, 4)
	}
}

func TestDetectDimensionFromModel(t *testing.T) {
	require.Equal(t, 768, detectDimensionFromModel("some-base-model"))
	require.Equal(t, 1024, detectDimensionFromModel("some-large-model"))
	require.Equal(t, 384, detectDimensionFromModel("some-small-model"))
	require.Equal(t, 384, detectDimensionFromModel("unknown-model-xyz"))
}

func TestFakeProvider_DimensionAndClose(t *testing.T) {
	p := NewFake(16)
	require.Equal(t, 16, p.Dimension())
	require.NoError(t, p.Close())
}
