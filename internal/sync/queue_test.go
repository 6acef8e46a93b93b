package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/store"
)

func TestQueue_EnqueueDequeueFIFO(t *testing.T) {
	q := newQueue(QueueConfig{Capacity: 10})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "a"}))
	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "b"}))

	op, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "a", op.Hash)

	op, ok = q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "b", op.Hash)
}

func TestQueue_CoalescesUpdateAfterStore(t *testing.T) {
	q := newQueue(QueueConfig{Capacity: 10})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "a", Memory: store.Memory{Content: "c"}}))
	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpUpdate, Hash: "a", Partial: map[string]interface{}{"quality_score": 0.9}}))

	require.Equal(t, 1, q.Depth())
	op, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, store.SyncOpStore, op.Kind)
	require.Equal(t, 0.9, op.Memory.Metadata["quality_score"])
}

func TestQueue_CoalescesDeleteAfterStore(t *testing.T) {
	q := newQueue(QueueConfig{Capacity: 10})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "a"}))
	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpDelete, Hash: "a"}))

	require.Equal(t, 1, q.Depth())
	op, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, store.SyncOpDelete, op.Kind)
}

func TestQueue_DropOldestWhenFull(t *testing.T) {
	q := newQueue(QueueConfig{Capacity: 2, DropPolicy: DropOldest})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "a"}))
	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "b"}))
	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "c"}))

	require.Equal(t, 2, q.Depth())
	dropped, _ := q.Stats()
	require.Equal(t, int64(1), dropped)

	op, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "b", op.Hash, "oldest entry a must have been dropped")
}

func TestQueue_DropNewWhenFull(t *testing.T) {
	q := newQueue(QueueConfig{Capacity: 1, DropPolicy: DropNew})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "a"}))
	require.NoError(t, q.Enqueue(ctx, store.SyncOp{Kind: store.SyncOpStore, Hash: "b"}))

	require.Equal(t, 1, q.Depth())
	op, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "a", op.Hash)
}

func TestQueue_DequeueReturnsFalseOnCanceledContext(t *testing.T) {
	q := newQueue(QueueConfig{Capacity: 10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Dequeue(ctx)
	require.False(t, ok)
}
