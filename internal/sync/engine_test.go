package sync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

type fakeRemote struct {
	mu       sync.Mutex
	puts     []store.Memory
	deletes  []string
	failNext int
	permanentErr bool
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }

func (f *fakeRemote) Put(ctx context.Context, m store.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		if f.permanentErr {
			return fmt.Errorf("%w: bad payload", errs.ErrPermanent)
		}
		return fmt.Errorf("%w: unavailable", errs.ErrTransient)
	}
	f.puts = append(f.puts, m)
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, hash)
	return nil
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) snapshot() (puts []store.Memory, deletes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Memory{}, f.puts...), append([]string{}, f.deletes...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEngine_StartTransitionsToRunning(t *testing.T) {
	remote := &fakeRemote{}
	e := NewEngine(remote, Config{}, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.Equal(t, StateRunning, e.SyncStatus().State)
}

func TestEngine_DrainsQueueToRemote(t *testing.T) {
	remote := &fakeRemote{}
	e := NewEngine(remote, Config{RetryBaseMs: 5, RetryCapMs: 50}, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.NoError(t, e.Enqueue(context.Background(), store.SyncOp{Kind: store.SyncOpStore, Hash: "a", Memory: store.Memory{Content: "x"}}))

	waitFor(t, time.Second, func() bool {
		puts, _ := remote.snapshot()
		return len(puts) == 1
	})
}

func TestEngine_RetriesTransientFailures(t *testing.T) {
	remote := &fakeRemote{failNext: 2}
	e := NewEngine(remote, Config{RetryBaseMs: 5, RetryCapMs: 20}, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.NoError(t, e.Enqueue(context.Background(), store.SyncOp{Kind: store.SyncOpStore, Hash: "a", Memory: store.Memory{Content: "x"}}))

	waitFor(t, 2*time.Second, func() bool {
		puts, _ := remote.snapshot()
		return len(puts) == 1
	})
	require.GreaterOrEqual(t, e.SyncStatus().RetriedOps, int64(1))
}

func TestEngine_DropsPermanentFailuresWithoutRetry(t *testing.T) {
	remote := &fakeRemote{failNext: 1, permanentErr: true}
	e := NewEngine(remote, Config{RetryBaseMs: 5, RetryCapMs: 20}, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.NoError(t, e.Enqueue(context.Background(), store.SyncOp{Kind: store.SyncOpStore, Hash: "a", Memory: store.Memory{Content: "x"}}))

	waitFor(t, time.Second, func() bool {
		return e.SyncStatus().DroppedOps >= 1
	})
	puts, _ := remote.snapshot()
	require.Empty(t, puts)
}

func TestEngine_PauseBypassesWhenConsolidationActive(t *testing.T) {
	remote := &fakeRemote{}
	e := NewEngine(remote, Config{}, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.NoError(t, e.Pause(true))
	require.True(t, e.Bypassed())
	require.Equal(t, StatePaused, e.SyncStatus().State)

	require.NoError(t, e.Resume())
	require.False(t, e.Bypassed())
	require.Equal(t, StateRunning, e.SyncStatus().State)
}

func TestEngine_EnqueueRejectedAfterStop(t *testing.T) {
	remote := &fakeRemote{}
	e := NewEngine(remote, Config{}, nil)
	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Stop())

	err := e.Enqueue(context.Background(), store.SyncOp{Kind: store.SyncOpStore, Hash: "a"})
	require.Error(t, err)
}

func TestEngine_DeleteOpReachesRemote(t *testing.T) {
	remote := &fakeRemote{}
	e := NewEngine(remote, Config{}, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.NoError(t, e.Enqueue(context.Background(), store.SyncOp{Kind: store.SyncOpDelete, Hash: "a"}))

	waitFor(t, time.Second, func() bool {
		_, deletes := remote.snapshot()
		return len(deletes) == 1
	})
}
