package consolidate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

func newTestStore(t *testing.T) store.MemoryStore {
	t.Helper()
	embedder := embedding.NewFake(8)
	s, err := store.NewLocalStore(store.LocalConfig{DataDir: t.TempDir(), Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestConsolidator(t *testing.T, st store.MemoryStore) (*Consolidator, string) {
	t.Helper()
	reportsDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ReportsDir = reportsDir
	cfg.SRefresh = 0 // ApplyDefaults replaces 0 with the 7-day default
	evaluator := quality.NewEvaluator(quality.Config{AIProvider: quality.ProviderNone}, embedding.NewFake(8), nil, nil, nil)
	c := NewConsolidator(st, evaluator, nil, cfg, nil, nil)
	return c, reportsDir
}

func TestConsolidator_RunProducesReportAndScoresCandidates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, _, err := st.Store(ctx, store.Memory{Content: "remember the milk", Tags: []string{"todo"}})
	require.NoError(t, err)
	_, _, err = st.Store(ctx, store.Memory{Content: "buy milk and eggs", Tags: []string{"todo", "groceries"}})
	require.NoError(t, err)

	c, reportsDir := newTestConsolidator(t, st)

	report, err := c.Run(ctx, HorizonDaily)
	require.NoError(t, err)
	require.Equal(t, 2, report.Counts.Scanned)
	require.Equal(t, 2, report.Counts.Scored)

	entries, err := os.ReadDir(reportsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, filepath.Ext(entries[0].Name()) == ".json")

	all, err := st.GetAllMemories(ctx, 0, 0)
	require.NoError(t, err)
	for _, m := range all {
		_, ok := m.Metadata[store.MetaQualityScore]
		require.True(t, ok, "expected quality_score to be set after consolidation")
	}
}

func TestConsolidator_RejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c, _ := newTestConsolidator(t, st)

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	_, err := c.Run(ctx, HorizonDaily)
	require.ErrorIs(t, err, errs.ErrAlreadyRunning)
}

func TestConsolidator_IdempotentOnRepeatedRuns(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, _, err := st.Store(ctx, store.Memory{Content: "a fact worth remembering", Tags: []string{"a"}})
	require.NoError(t, err)

	c, _ := newTestConsolidator(t, st)

	_, err = c.Run(ctx, HorizonDaily)
	require.NoError(t, err)
	_, err = c.Run(ctx, HorizonDaily)
	require.NoError(t, err)

	associations, err := st.ListAssociations(ctx, "", 1)
	require.NoError(t, err)
	require.Empty(t, associations)
}

func TestRetentionDays_ScalesLinearlyInLowTier(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, cfg.RetentionHigh, retentionDays(0.9, cfg))
	require.Equal(t, cfg.RetentionMedium, retentionDays(0.6, cfg))
	require.Equal(t, cfg.RetentionLowMin, retentionDays(0.0, cfg))
	require.Equal(t, cfg.RetentionLowMax, retentionDays(0.5-1e-9, cfg))
}

func TestJaccard(t *testing.T) {
	require.Equal(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}))
	require.Equal(t, 0.0, jaccard([]string{"a"}, []string{"b"}))
	require.Equal(t, 0.0, jaccard(nil, nil))
}

func TestConsolidator_ArchivesInactiveLowQualityMemory(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, _, err := st.Store(ctx, store.Memory{Content: "x", Tags: nil})
	require.NoError(t, err)

	all, err := st.GetAllMemories(ctx, 0, 0)
	require.NoError(t, err)
	hash := all[0].ContentHash

	longAgo := time.Now().Add(-1000 * 24 * time.Hour).Unix()
	require.NoError(t, st.UpdateMetadata(ctx, hash, map[string]interface{}{
		store.MetaQualityScore:   0.1,
		store.MetaLastAccessedAt: float64(longAgo),
	}))

	cfg := DefaultConfig()
	cfg.ReportsDir = t.TempDir()
	cfg.QualityEnabled = false // keep the low score we just set
	evaluator := quality.NewEvaluator(quality.Config{AIProvider: quality.ProviderNone}, embedding.NewFake(8), nil, nil, nil)
	c := NewConsolidator(st, evaluator, nil, cfg, nil, nil)

	report, err := c.Run(ctx, HorizonYearly)
	require.NoError(t, err)
	require.Contains(t, report.ArchivedHashes, hash)

	_, err = st.GetByHash(ctx, hash)
	require.Error(t, err)
}
