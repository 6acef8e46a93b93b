package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	embedder := embedding.NewFake(8)
	s, err := NewLocalStore(LocalConfig{DataDir: t.TempDir(), Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLocalStore_StoreAndGetByHash(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	inserted, reason, err := s.Store(ctx, Memory{Content: "remember the milk", Tags: []string{"todo", "groceries"}})
	require.NoError(t, err)
	require.True(t, inserted)
	require.Empty(t, reason)

	got, err := s.GetByHash(ctx, "")
	require.Error(t, err)
	_ = got

	all, err := s.GetAllMemories(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	m, err := s.GetByHash(ctx, all[0].ContentHash)
	require.NoError(t, err)
	require.Equal(t, "remember the milk", m.Content)
}

func TestLocalStore_StoreDuplicateRejected(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	_, _, err := s.Store(ctx, Memory{Content: "dup", Tags: []string{"a"}})
	require.NoError(t, err)

	inserted, reason, err := s.Store(ctx, Memory{Content: "dup", Tags: []string{"a"}})
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, "duplicate", reason)
}

func TestLocalStore_RetrieveRanksBySimilarity(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	_, _, err := s.Store(ctx, Memory{Content: "the quick brown fox", Tags: []string{"animals"}})
	require.NoError(t, err)
	_, _, err = s.Store(ctx, Memory{Content: "quarterly earnings report", Tags: []string{"finance"}})
	require.NoError(t, err)

	results, err := s.Retrieve(ctx, "the quick brown fox", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "the quick brown fox", results[0].Memory.Content)
}

func TestLocalStore_RetrieveRejectsEmptyQuery(t *testing.T) {
	s := newTestLocalStore(t)
	_, err := s.Retrieve(context.Background(), "", 5, nil)
	require.Error(t, err)
}

func TestLocalStore_SearchByTagAnyAndAll(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	_, _, err := s.Store(ctx, Memory{Content: "a", Tags: []string{"x", "y"}})
	require.NoError(t, err)
	_, _, err = s.Store(ctx, Memory{Content: "b", Tags: []string{"y"}})
	require.NoError(t, err)

	anyResults, err := s.SearchByTag(ctx, []string{"x"}, TagMatchAny)
	require.NoError(t, err)
	require.Len(t, anyResults, 1)

	allResults, err := s.SearchByTag(ctx, []string{"x", "y"}, TagMatchAll)
	require.NoError(t, err)
	require.Len(t, allResults, 1)
	require.Equal(t, "a", allResults[0].Content)
}

func TestLocalStore_DeleteRemovesMemoryAndAssociations(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	s.Store(ctx, Memory{Content: "a", Tags: nil})
	s.Store(ctx, Memory{Content: "b", Tags: nil})
	all, _ := s.GetAllMemories(ctx, 0, 0)
	require.Len(t, all, 2)

	require.NoError(t, s.UpsertAssociation(ctx, all[0].ContentHash, all[1].ContentHash, 0.8, ReasonManual))

	n, err := s.Delete(ctx, all[0].ContentHash)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	assocs, err := s.ListAssociations(ctx, all[1].ContentHash, 2)
	require.NoError(t, err)
	require.Empty(t, assocs[all[1].ContentHash])
}

func TestLocalStore_DeleteByFiltersDryRun(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	s.Store(ctx, Memory{Content: "a", Tags: []string{"keep"}})
	s.Store(ctx, Memory{Content: "b", Tags: []string{"drop"}})

	count, hashes, err := s.DeleteByFilters(ctx, DeleteFilter{Tags: []string{"drop"}, Match: TagMatchAny, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, hashes, 1)

	all, _ := s.GetAllMemories(ctx, 0, 0)
	require.Len(t, all, 2, "dry run must not delete")
}

func TestLocalStore_UpdateMetadataMerges(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	s.Store(ctx, Memory{Content: "a"})
	all, _ := s.GetAllMemories(ctx, 0, 0)
	hash := all[0].ContentHash

	require.NoError(t, s.UpdateMetadata(ctx, hash, map[string]interface{}{MetaQualityScore: 0.9}))
	m, err := s.GetByHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, 0.9, m.Metadata[MetaQualityScore])
}

func TestLocalStore_RecallOrdersNewestFirst(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	s.Store(ctx, Memory{Content: "older"})
	time.Sleep(2 * time.Millisecond)
	s.Store(ctx, Memory{Content: "newer"})

	out, err := s.Recall(ctx, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "newer", out[0].Content)
}

func TestLocalStore_UpsertAssociationReinforces(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	s.Store(ctx, Memory{Content: "a"})
	s.Store(ctx, Memory{Content: "b"})
	all, _ := s.GetAllMemories(ctx, 0, 0)

	require.NoError(t, s.UpsertAssociation(ctx, all[0].ContentHash, all[1].ContentHash, 0.5, ReasonCoTag))
	require.NoError(t, s.UpsertAssociation(ctx, all[0].ContentHash, all[1].ContentHash, 0.9, ReasonEmbeddingProximity))

	assocs, err := s.ListAssociations(ctx, all[0].ContentHash, 1)
	require.NoError(t, err)
	require.Len(t, assocs[all[0].ContentHash], 1)
	require.Equal(t, 0.9, assocs[all[0].ContentHash][0].Strength)
}

func TestLocalStore_ArchiveExcludesFromRetrievalButRecoverable(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	s.Store(ctx, Memory{Content: "archive me", Tags: []string{"a"}})
	all, _ := s.GetAllMemories(ctx, 0, 0)
	hash := all[0].ContentHash

	require.NoError(t, s.Archive(ctx, hash))

	all, err := s.GetAllMemories(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, all, "archived memory must be excluded from the primary index")

	_, err = s.GetByHash(ctx, hash)
	require.ErrorIs(t, err, errs.ErrNotFound)

	archived, err := s.GetArchived(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, "archive me", archived.Content)

	listed, err := s.ListArchived(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, s.Unarchive(ctx, hash))
	all, err = s.GetAllMemories(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, err = s.GetArchived(ctx, hash)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLocalStore_ArchiveUnknownHashNotFound(t *testing.T) {
	s := newTestLocalStore(t)
	require.ErrorIs(t, s.Archive(context.Background(), "deadbeef"), errs.ErrNotFound)
}

func TestLocalStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewFake(8)

	s1, err := NewLocalStore(LocalConfig{DataDir: dir, Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Initialize(context.Background()))
	_, _, err = s1.Store(context.Background(), Memory{Content: "durable"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewLocalStore(LocalConfig{DataDir: dir, Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, s2.Initialize(context.Background()))

	all, err := s2.GetAllMemories(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "durable", all[0].Content)
}
