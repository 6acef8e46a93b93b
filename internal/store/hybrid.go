package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memengine/internal/hashing"
	"github.com/fyrsmithlabs/memengine/internal/logging"
)

// SyncOpKind identifies the write that produced a SyncOp.
type SyncOpKind string

const (
	SyncOpStore  SyncOpKind = "store"
	SyncOpUpdate SyncOpKind = "update"
	SyncOpDelete SyncOpKind = "delete"
)

// SyncOp is a unit of work handed to the sync engine (C6) to mirror a
// local write to the remote store. HybridStore is the producer; C6 is the
// consumer. The interface is declared here, on the consumer side the
// producer needs it, so internal/sync can depend on internal/store without
// a back-reference.
type SyncOp struct {
	Kind    SyncOpKind
	Hash    string
	Memory  Memory
	Partial map[string]interface{}

	// Attempt counts prior delivery attempts for this op (0 for a
	// freshly-produced write). The sync engine increments it on each
	// retry and uses it to escalate backoff per spec.md §4.6; producers
	// always leave it at the zero value.
	Attempt int
}

// SyncQueue is the subset of the sync engine's surface HybridStore needs:
// enqueue a mirrored write, and learn whether the engine wants writes
// bypassed entirely (paused for consolidation).
type SyncQueue interface {
	Enqueue(ctx context.Context, op SyncOp) error
	Bypassed() bool
}

// noopSyncQueue discards every operation; used when NewHybridStore is
// given a nil queue.
type noopSyncQueue struct{}

func (noopSyncQueue) Enqueue(ctx context.Context, op SyncOp) error { return nil }
func (noopSyncQueue) Bypassed() bool                               { return true }

// HybridStore is C5: local is authoritative and synchronous, remote is an
// eventually-consistent async mirror fed through a SyncQueue. This is a
// deliberate inversion of the teacher's FallbackStore, which treats the
// remote (Qdrant) as primary and local (chromem) as an outage fallback;
// spec.md's storage model puts local first and never serves reads from
// remote. Only FallbackStore's logging texture is kept; HybridStore holds
// no lock of its own and has no mode switch.
type HybridStore struct {
	local MemoryStore
	queue SyncQueue

	logger *logging.Logger
}

// NewHybridStore wraps local with a SyncQueue that mirrors writes to the
// remote store. queue may be nil, in which case writes are local-only.
func NewHybridStore(local MemoryStore, queue SyncQueue, logger *logging.Logger) *HybridStore {
	if queue == nil {
		queue = noopSyncQueue{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HybridStore{local: local, queue: queue, logger: logger}
}

func (h *HybridStore) Initialize(ctx context.Context) error {
	return h.local.Initialize(ctx)
}

// Store commits synchronously to local, then enqueues a mirror op unless
// the sync engine has asked for writes to bypass it (paused for an
// in-progress consolidation pass).
func (h *HybridStore) Store(ctx context.Context, m Memory) (bool, string, error) {
	inserted, reason, err := h.local.Store(ctx, m)
	if err != nil || !inserted {
		return inserted, reason, err
	}

	hash := hashing.Hash(m.Content, m.Tags)
	if stored, getErr := h.local.GetByHash(ctx, hash); getErr == nil && stored != nil {
		m = *stored
	}

	if h.queue.Bypassed() {
		return inserted, reason, nil
	}
	if err := h.queue.Enqueue(ctx, SyncOp{Kind: SyncOpStore, Hash: hash, Memory: m}); err != nil {
		h.logger.Warn(ctx, "sync enqueue failed after local store", zap.String("hash", hash), zap.Error(err))
	}
	return inserted, reason, nil
}

func (h *HybridStore) GetByHash(ctx context.Context, hashOrPrefix string) (*Memory, error) {
	return h.local.GetByHash(ctx, hashOrPrefix)
}

func (h *HybridStore) Retrieve(ctx context.Context, query string, n int, minScore *float32) ([]ScoredMemory, error) {
	return h.local.Retrieve(ctx, query, n, minScore)
}

func (h *HybridStore) SearchByTag(ctx context.Context, tags []string, match TagMatch) ([]Memory, error) {
	return h.local.SearchByTag(ctx, tags, match)
}

func (h *HybridStore) Recall(ctx context.Context, after, before time.Time, n int) ([]Memory, error) {
	return h.local.Recall(ctx, after, before, n)
}

func (h *HybridStore) ExactMatchSearch(ctx context.Context, needle string, n int) ([]Memory, error) {
	return h.local.ExactMatchSearch(ctx, needle, n)
}

func (h *HybridStore) Delete(ctx context.Context, hash string) (int, error) {
	n, err := h.local.Delete(ctx, hash)
	if err != nil || n == 0 {
		return n, err
	}
	if !h.queue.Bypassed() {
		if err := h.queue.Enqueue(ctx, SyncOp{Kind: SyncOpDelete, Hash: hash}); err != nil {
			h.logger.Warn(ctx, "sync enqueue failed after local delete", zap.String("hash", hash), zap.Error(err))
		}
	}
	return n, nil
}

func (h *HybridStore) DeleteByFilters(ctx context.Context, f DeleteFilter) (int, []string, error) {
	if f.DryRun {
		return h.local.DeleteByFilters(ctx, f)
	}

	_, hashes, err := h.local.DeleteByFilters(ctx, DeleteFilter{Tags: f.Tags, Match: f.Match, After: f.After, Before: f.Before, DryRun: true})
	if err != nil {
		return 0, nil, err
	}
	count, _, err := h.local.DeleteByFilters(ctx, f)
	if err != nil {
		return 0, nil, err
	}
	if !h.queue.Bypassed() {
		for _, hash := range hashes {
			if err := h.queue.Enqueue(ctx, SyncOp{Kind: SyncOpDelete, Hash: hash}); err != nil {
				h.logger.Warn(ctx, "sync enqueue failed during bulk delete", zap.String("hash", hash), zap.Error(err))
			}
		}
	}
	return count, nil, nil
}

// UpdateMetadata merges partial into the local record, then enqueues a
// mirror op. The sync engine coalesces consecutive update ops for the
// same hash, so a burst of metadata writes (e.g. from consolidation)
// produces at most one remote round trip per hash.
func (h *HybridStore) UpdateMetadata(ctx context.Context, hash string, partial map[string]interface{}) error {
	if err := h.local.UpdateMetadata(ctx, hash, partial); err != nil {
		return err
	}
	if h.queue.Bypassed() {
		return nil
	}
	if err := h.queue.Enqueue(ctx, SyncOp{Kind: SyncOpUpdate, Hash: hash, Partial: partial}); err != nil {
		h.logger.Warn(ctx, "sync enqueue failed after metadata update", zap.String("hash", hash), zap.Error(err))
	}
	return nil
}

// UpdateMemoryType mirrors memory_type changes like any other metadata
// mutation: committed locally first, then enqueued (unless bypassed).
func (h *HybridStore) UpdateMemoryType(ctx context.Context, hash, memoryType string) error {
	if err := h.local.UpdateMemoryType(ctx, hash, memoryType); err != nil {
		return err
	}
	if h.queue.Bypassed() {
		return nil
	}
	partial := map[string]interface{}{"__memory_type__": memoryType}
	if err := h.queue.Enqueue(ctx, SyncOp{Kind: SyncOpUpdate, Hash: hash, Partial: partial}); err != nil {
		h.logger.Warn(ctx, "sync enqueue failed after memory_type update", zap.String("hash", hash), zap.Error(err))
	}
	return nil
}

func (h *HybridStore) GetStats(ctx context.Context) (Stats, error) {
	return h.local.GetStats(ctx)
}

func (h *HybridStore) GetAllMemories(ctx context.Context, limit, offset int) ([]Memory, error) {
	return h.local.GetAllMemories(ctx, limit, offset)
}

func (h *HybridStore) UpsertAssociation(ctx context.Context, a, b string, strength float64, reason string) error {
	return h.local.UpsertAssociation(ctx, a, b, strength, reason)
}

func (h *HybridStore) ListAssociations(ctx context.Context, hash string, maxHops int) (map[string][]Association, error) {
	return h.local.ListAssociations(ctx, hash, maxHops)
}

// Archive moves a memory to the archival table. Archival is a purely
// local structural change (the remote store never models archive state;
// it only mirrors the memories table), so it bypasses the sync queue
// entirely rather than enqueueing a mirror op.
func (h *HybridStore) Archive(ctx context.Context, hash string) error {
	return h.local.Archive(ctx, hash)
}

func (h *HybridStore) Unarchive(ctx context.Context, hash string) error {
	return h.local.Unarchive(ctx, hash)
}

func (h *HybridStore) GetArchived(ctx context.Context, hash string) (*Memory, error) {
	return h.local.GetArchived(ctx, hash)
}

func (h *HybridStore) ListArchived(ctx context.Context, limit, offset int) ([]Memory, error) {
	return h.local.ListArchived(ctx, limit, offset)
}

func (h *HybridStore) Close() error {
	return h.local.Close()
}

var _ MemoryStore = (*HybridStore)(nil)
