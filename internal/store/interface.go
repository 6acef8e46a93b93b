package store

import (
	"context"
	"time"
)

// MemoryStore is the capability interface implemented by the Local (C3)
// and Hybrid (C5) store variants; the Remote store (C4) implements only
// the narrower RemoteMirror. It replaces the
// duck-typed storage backends of the source system with one fixed,
// explicit interface.
type MemoryStore interface {
	// Initialize prepares the store for use (opens files, connects,
	// reconciles). Must be called once before any other method.
	Initialize(ctx context.Context) error

	// Store inserts memory if its content hash is new. Returns
	// (true, "") on insert, (false, "duplicate") if the hash already
	// exists. embedding may be nil, in which case the store computes it.
	Store(ctx context.Context, m Memory) (inserted bool, reason string, err error)

	// GetByHash looks up a memory by full hash or an unambiguous prefix
	// of at least 8 hex characters.
	GetByHash(ctx context.Context, hashOrPrefix string) (*Memory, error)

	// Retrieve performs semantic retrieval: embeds query, ranks by
	// cosine similarity, returns the top n above minScore (if set).
	Retrieve(ctx context.Context, query string, n int, minScore *float32) ([]ScoredMemory, error)

	// SearchByTag returns memories whose tags match per match ("any"|"all").
	SearchByTag(ctx context.Context, tags []string, match TagMatch) ([]Memory, error)

	// Recall returns memories updated within [after, before), newest first.
	// after/before may be zero to mean unbounded.
	Recall(ctx context.Context, after, before time.Time, n int) ([]Memory, error)

	// ExactMatchSearch returns memories whose content contains needle.
	ExactMatchSearch(ctx context.Context, needle string, n int) ([]Memory, error)

	// Delete removes the memory with the given full hash. Returns the
	// number of memories deleted (0 or 1).
	Delete(ctx context.Context, hash string) (int, error)

	// DeleteByFilters deletes (or, if dryRun, previews) memories matching
	// the given tag/time predicate. Returns the count and, for dry runs,
	// the matched hashes.
	DeleteByFilters(ctx context.Context, f DeleteFilter) (count int, hashes []string, err error)

	// UpdateMetadata merges partial into the memory's metadata map.
	// Never touches content or tags.
	UpdateMetadata(ctx context.Context, hash string, partial map[string]interface{}) error

	// UpdateMemoryType changes a memory's memory_type classification.
	// Unlike tags, memory_type is not part of the content hash and can
	// change without affecting the memory's identity.
	UpdateMemoryType(ctx context.Context, hash, memoryType string) error

	// GetStats reports store size and health.
	GetStats(ctx context.Context) (Stats, error)

	// GetAllMemories pages through every memory, newest first.
	GetAllMemories(ctx context.Context, limit, offset int) ([]Memory, error)

	// UpsertAssociation creates or reinforces an association between a
	// and b (order-independent).
	UpsertAssociation(ctx context.Context, a, b string, strength float64, reason string) error

	// ListAssociations performs a bounded BFS over the association graph
	// starting from hash.
	ListAssociations(ctx context.Context, hash string, maxHops int) (map[string][]Association, error)

	// Archive moves the memory with the given hash out of the primary
	// index into the archival table: it is excluded from Retrieve,
	// SearchByTag, Recall, ExactMatchSearch, and GetAllMemories, but
	// remains recoverable via GetArchived/Unarchive for the retention
	// window. Associations referencing the archived hash are left in
	// place (only Delete removes them).
	Archive(ctx context.Context, hash string) error

	// Unarchive restores a previously archived memory to the primary
	// index.
	Unarchive(ctx context.Context, hash string) error

	// GetArchived looks up a memory in the archival table by full hash.
	GetArchived(ctx context.Context, hash string) (*Memory, error)

	// ListArchived pages through the archival table, newest-archived
	// first.
	ListArchived(ctx context.Context, limit, offset int) ([]Memory, error)

	// Close releases all resources. Idempotent.
	Close() error
}

// DeleteFilter selects memories for DeleteByFilters.
type DeleteFilter struct {
	Tags   []string
	Match  TagMatch
	After  time.Time
	Before time.Time
	DryRun bool
}
