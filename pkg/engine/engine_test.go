package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// newTestEngine builds an Engine the same way New does for a local-only
// backend, but with a fake embedder so tests don't depend on a fastembed
// model download. Mirrors the internal/store test helpers' shape.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := Config{StorageBackend: BackendLocal, DataDir: t.TempDir()}
	cfg.ApplyDefaults()

	embedder := embedding.NewFake(8)
	local, err := store.NewLocalStore(store.LocalConfig{DataDir: cfg.DataDir, Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, local.Initialize(context.Background()))

	signals := quality.NewInMemorySignalStore()
	e := &Engine{
		cfg:       cfg,
		store:     local,
		embedder:  embedder,
		signals:   signals,
		evaluator: quality.NewEvaluator(cfg.Quality, embedder, nil, nil, signals),
	}
	e.consolidator = consolidate.NewConsolidator(e.store, e.evaluator, nil, cfg.Consolidate, nil, consolidate.NoopPublisher{})
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestMemoryStore_DedupIgnoresTagOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.MemoryStore(ctx, StoreRequest{Content: "hello", Tags: []string{"a", "b"}})
	require.NoError(t, err)
	require.True(t, first.Inserted)

	second, err := e.MemoryStore(ctx, StoreRequest{Content: "hello", Tags: []string{"b", "a"}})
	require.NoError(t, err)
	require.False(t, second.Inserted)
	require.Equal(t, "duplicate", second.Reason)
	require.Equal(t, first.ContentHash, second.ContentHash)

	list, err := e.MemoryList(ctx, ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Memories, 1)
}

func TestMemoryStore_RejectsEmptyContent(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.MemoryStore(context.Background(), StoreRequest{Content: ""})
	require.Error(t, err)
}

// TestMemorySearch_QualityBoostFlipsRanking exercises spec.md §4.5's
// rerank formula directly: with boost 0.5, a 0.78-similarity/0.9-quality
// result outranks a 0.82-similarity/0.2-quality result once blended,
// since (0.5*0.78 + 0.5*0.9) = 0.84 > (0.5*0.82 + 0.5*0.2) = 0.51.
func TestMemorySearch_QualityBoostFlipsRanking(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	highSim, err := e.MemoryStore(ctx, StoreRequest{Content: "the quick brown fox jumps over the lazy dog"})
	require.NoError(t, err)
	lowSim, err := e.MemoryStore(ctx, StoreRequest{Content: "completely unrelated filler text about weather"})
	require.NoError(t, err)

	require.NoError(t, e.store.UpdateMetadata(ctx, highSim.ContentHash, map[string]interface{}{store.MetaQualityScore: 0.2}))
	require.NoError(t, e.store.UpdateMetadata(ctx, lowSim.ContentHash, map[string]interface{}{store.MetaQualityScore: 0.9}))

	candidates := []store.ScoredMemory{
		{Memory: store.Memory{ContentHash: highSim.ContentHash, Metadata: map[string]interface{}{store.MetaQualityScore: 0.2}}, Score: 0.82},
		{Memory: store.Memory{ContentHash: lowSim.ContentHash, Metadata: map[string]interface{}{store.MetaQualityScore: 0.9}}, Score: 0.78},
	}
	rerankByQuality(candidates, 0.5)

	require.Equal(t, lowSim.ContentHash, candidates[0].Memory.ContentHash)
	require.Equal(t, highSim.ContentHash, candidates[1].Memory.ContentHash)
}

func TestMemorySearch_TimeBrowseFiltersByWindow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.MemoryStore(ctx, StoreRequest{Content: "stored just now"})
	require.NoError(t, err)

	within, err := e.MemorySearch(ctx, SearchRequest{TimeExpr: "today"})
	require.NoError(t, err)
	require.Len(t, within.Results, 1)

	outside, err := e.MemorySearch(ctx, SearchRequest{TimeExpr: "last week"})
	require.NoError(t, err)
	require.Empty(t, outside.Results)
}

func TestMemorySearch_RequiresQueryInSemanticMode(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.MemorySearch(context.Background(), SearchRequest{Mode: SearchSemantic})
	require.Error(t, err)
}

func TestMemoryUpdate_RejectsTagChange(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.MemoryStore(ctx, StoreRequest{Content: "keep me", Tags: []string{"x"}})
	require.NoError(t, err)

	err = e.MemoryUpdate(ctx, UpdateRequest{Hash: res.ContentHash, Tags: []string{"y"}})
	require.Error(t, err)

	err = e.MemoryUpdate(ctx, UpdateRequest{Hash: res.ContentHash, MemoryType: "fact"})
	require.NoError(t, err)
}

func TestMemoryDelete_DryRunDoesNotRemove(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.MemoryStore(ctx, StoreRequest{Content: "temporary"})
	require.NoError(t, err)

	dry, err := e.MemoryDelete(ctx, DeleteRequest{ContentHash: res.ContentHash, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, dry.Count)

	list, err := e.MemoryList(ctx, ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Memories, 1)

	deleted, err := e.MemoryDelete(ctx, DeleteRequest{ContentHash: res.ContentHash})
	require.NoError(t, err)
	require.Equal(t, 1, deleted.Count)

	list, err = e.MemoryList(ctx, ListRequest{})
	require.NoError(t, err)
	require.Empty(t, list.Memories)
}

func TestMemoryHealth_ReflectsStoredCount(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.MemoryStore(ctx, StoreRequest{Content: "one"})
	require.NoError(t, err)
	_, err = e.MemoryStore(ctx, StoreRequest{Content: "two"})
	require.NoError(t, err)

	health, err := e.MemoryHealth(ctx)
	require.NoError(t, err)
	require.True(t, health.Ready)
	require.Equal(t, 2, health.Count)
}
