package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
)

type recordingQueue struct {
	mu       sync.Mutex
	ops      []SyncOp
	bypassed bool
}

func (q *recordingQueue) Enqueue(ctx context.Context, op SyncOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, op)
	return nil
}

func (q *recordingQueue) Bypassed() bool { return q.bypassed }

func (q *recordingQueue) snapshot() []SyncOp {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]SyncOp, len(q.ops))
	copy(out, q.ops)
	return out
}

func newTestHybridStore(t *testing.T, queue SyncQueue) (*HybridStore, *LocalStore) {
	t.Helper()
	embedder := embedding.NewFake(8)
	local, err := NewLocalStore(LocalConfig{DataDir: t.TempDir(), Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, local.Initialize(context.Background()))
	t.Cleanup(func() { _ = local.Close() })
	return NewHybridStore(local, queue, nil), local
}

func TestHybridStore_StoreEnqueuesMirrorOp(t *testing.T) {
	queue := &recordingQueue{}
	h, _ := newTestHybridStore(t, queue)
	ctx := context.Background()

	inserted, _, err := h.Store(ctx, Memory{Content: "hello", Tags: []string{"a"}})
	require.NoError(t, err)
	require.True(t, inserted)

	ops := queue.snapshot()
	require.Len(t, ops, 1)
	require.Equal(t, SyncOpStore, ops[0].Kind)
	require.Equal(t, "hello", ops[0].Memory.Content)
}

func TestHybridStore_StoreBypassedWhenQueueSaysSo(t *testing.T) {
	queue := &recordingQueue{bypassed: true}
	h, _ := newTestHybridStore(t, queue)
	ctx := context.Background()

	_, _, err := h.Store(ctx, Memory{Content: "hello"})
	require.NoError(t, err)
	require.Empty(t, queue.snapshot())
}

func TestHybridStore_DuplicateStoreDoesNotEnqueue(t *testing.T) {
	queue := &recordingQueue{}
	h, _ := newTestHybridStore(t, queue)
	ctx := context.Background()

	_, _, err := h.Store(ctx, Memory{Content: "x", Tags: []string{"t"}})
	require.NoError(t, err)
	_, _, err = h.Store(ctx, Memory{Content: "x", Tags: []string{"t"}})
	require.NoError(t, err)

	require.Len(t, queue.snapshot(), 1)
}

func TestHybridStore_DeleteEnqueuesMirrorOp(t *testing.T) {
	queue := &recordingQueue{}
	h, _ := newTestHybridStore(t, queue)
	ctx := context.Background()

	h.Store(ctx, Memory{Content: "to delete"})
	all, err := h.GetAllMemories(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	n, err := h.Delete(ctx, all[0].ContentHash)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ops := queue.snapshot()
	require.Len(t, ops, 2)
	require.Equal(t, SyncOpDelete, ops[1].Kind)
}

func TestHybridStore_ReadPathNeverTouchesQueue(t *testing.T) {
	queue := &recordingQueue{}
	h, _ := newTestHybridStore(t, queue)
	ctx := context.Background()

	h.Store(ctx, Memory{Content: "findable"})
	_, err := h.Retrieve(ctx, "findable", 5, nil)
	require.NoError(t, err)
	_, err = h.SearchByTag(ctx, nil, TagMatchAny)
	require.NoError(t, err)

	require.Len(t, queue.snapshot(), 1, "retrieval must not produce sync ops")
}

func TestHybridStore_UpdateMetadataEnqueuesPartial(t *testing.T) {
	queue := &recordingQueue{}
	h, _ := newTestHybridStore(t, queue)
	ctx := context.Background()

	h.Store(ctx, Memory{Content: "m"})
	all, _ := h.GetAllMemories(ctx, 0, 0)
	hash := all[0].ContentHash

	require.NoError(t, h.UpdateMetadata(ctx, hash, map[string]interface{}{MetaQualityScore: 0.7}))

	ops := queue.snapshot()
	require.Len(t, ops, 2)
	require.Equal(t, SyncOpUpdate, ops[1].Kind)
	require.Equal(t, 0.7, ops[1].Partial[MetaQualityScore])
}

func TestHybridStore_NilQueueDefaultsToNoop(t *testing.T) {
	h, _ := newTestHybridStore(t, nil)
	ctx := context.Background()
	inserted, _, err := h.Store(ctx, Memory{Content: "no queue"})
	require.NoError(t, err)
	require.True(t, inserted)
}
