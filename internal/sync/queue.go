package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// DropPolicy selects how the queue behaves when full.
type DropPolicy string

const (
	DropOldest   DropPolicy = "drop_oldest"
	DropNew      DropPolicy = "drop_new"
	BlockWriter  DropPolicy = "block_writer"
)

// QueueConfig configures queue capacity and overflow behavior.
type QueueConfig struct {
	Capacity           int
	DropPolicy         DropPolicy
	BlockWriterTimeout time.Duration
}

// ApplyDefaults fills capacity 1000, the drop_oldest policy, and a 5s
// block_writer timeout. A dropped op is only counted in the queue's drop
// statistics; no log line is written when an op is dropped.
func (c *QueueConfig) ApplyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 1000
	}
	if c.DropPolicy == "" {
		c.DropPolicy = DropOldest
	}
	if c.BlockWriterTimeout == 0 {
		c.BlockWriterTimeout = 5 * time.Second
	}
}

// queue is a FIFO of pending sync ops with per-hash coalescing: a
// store->update->update sequence collapses to one store carrying the
// latest metadata, and a store->delete sequence collapses to a delete,
// per spec.md §4.6. Coalescing mutates the existing slot in place so the
// op's position in delivery order is unaffected.
type queue struct {
	mu sync.Mutex

	items []*store.SyncOp
	index map[string]*store.SyncOp

	cfg QueueConfig

	droppedOps int64
	retriedOps int64
}

func newQueue(cfg QueueConfig) *queue {
	cfg.ApplyDefaults()
	return &queue{
		items: nil,
		index: make(map[string]*store.SyncOp),
		cfg:   cfg,
	}
}

// Enqueue adds or coalesces op. Blocks (up to cfg.BlockWriterTimeout, or
// ctx's deadline) only under the block_writer policy when full; otherwise
// returns immediately, possibly dropping an op per the configured policy.
func (q *queue) Enqueue(ctx context.Context, op store.SyncOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.index[op.Hash]; ok {
		coalesce(existing, op)
		return nil
	}

	if len(q.items) >= q.cfg.Capacity {
		switch q.cfg.DropPolicy {
		case DropNew:
			q.droppedOps++
			return nil
		case BlockWriter:
			if err := q.waitForSpace(ctx); err != nil {
				return err
			}
		default: // drop_oldest
			q.dropOldestLocked()
		}
	}

	item := op
	q.items = append(q.items, &item)
	q.index[op.Hash] = &item
	return nil
}

func (q *queue) waitForSpace(ctx context.Context) error {
	deadline := time.Now().Add(q.cfg.BlockWriterTimeout)
	for len(q.items) >= q.cfg.Capacity {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: sync queue full after waiting %s", errs.ErrTimeout, q.cfg.BlockWriterTimeout)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
		}
		// Cond.Wait requires holding the lock; release briefly via timer by
		// polling, since Wait has no timeout primitive in the stdlib.
		q.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		q.mu.Lock()
	}
	return nil
}

func (q *queue) dropOldestLocked() {
	if len(q.items) == 0 {
		return
	}
	oldest := q.items[0]
	q.items = q.items[1:]
	delete(q.index, oldest.Hash)
	q.droppedOps++
}

// coalesce merges next into existing, preserving existing's queue position.
func coalesce(existing *store.SyncOp, next store.SyncOp) {
	switch {
	case next.Kind == store.SyncOpDelete:
		existing.Kind = store.SyncOpDelete
		existing.Memory = store.Memory{}
		existing.Partial = nil
	case existing.Kind == store.SyncOpDelete && next.Kind == store.SyncOpStore:
		existing.Kind = store.SyncOpStore
		existing.Memory = next.Memory
	case next.Kind == store.SyncOpUpdate:
		if existing.Partial == nil {
			existing.Partial = make(map[string]interface{}, len(next.Partial))
		}
		for k, v := range next.Partial {
			existing.Partial[k] = v
		}
		if existing.Kind == store.SyncOpStore {
			if existing.Memory.Metadata == nil {
				existing.Memory.Metadata = make(map[string]interface{}, len(next.Partial))
			}
			for k, v := range next.Partial {
				existing.Memory.Metadata[k] = v
			}
		}
	case next.Kind == store.SyncOpStore:
		existing.Kind = store.SyncOpStore
		existing.Memory = next.Memory
	}
	// Attempt tracks delivery retry history for the hash, not write
	// content: a fresh application write (Attempt 0) coalescing into an
	// already-retrying op must not reset its backoff escalation, but a
	// requeued retry coalescing into a newer queued item should carry its
	// higher attempt count forward.
	if next.Attempt > existing.Attempt {
		existing.Attempt = next.Attempt
	}
}

// Dequeue blocks until an op is available or ctx is done. It polls rather
// than using sync.Cond directly so it can also watch ctx's cancellation.
func (q *queue) Dequeue(ctx context.Context) (store.SyncOp, bool) {
	q.mu.Lock()
	for len(q.items) == 0 {
		if ctx.Err() != nil {
			q.mu.Unlock()
			return store.SyncOp{}, false
		}
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return store.SyncOp{}, false
		case <-time.After(10 * time.Millisecond):
		}
		q.mu.Lock()
	}

	item := q.items[0]
	q.items = q.items[1:]
	delete(q.index, item.Hash)
	q.mu.Unlock()
	return *item, true
}

// Depth returns the current queue length.
func (q *queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns drop/retry counters.
func (q *queue) Stats() (dropped, retried int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.droppedOps, q.retriedOps
}

func (q *queue) recordRetry() {
	q.mu.Lock()
	q.retriedOps++
	q.mu.Unlock()
}
