package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/hashing"
	"github.com/fyrsmithlabs/memengine/internal/logging"
)

const defaultCollection = "memories"

func init() {
	// Memory.Metadata is map[string]interface{}; gob requires concrete
	// types stored behind an interface to be registered up front.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register([]interface{}(nil))
	gob.Register(map[string]interface{}(nil))
	gob.Register([]string(nil))
}

// LocalConfig configures a LocalStore.
type LocalConfig struct {
	// DataDir is the root of the persisted state for this engine instance.
	DataDir string
	// Dimension is the store-wide embedding width, stamped at first init.
	Dimension int
	// Compress enables chromem-go's on-disk gob compression.
	Compress bool
}

// ApplyDefaults fills unset fields with their defaults.
func (c *LocalConfig) ApplyDefaults() {
	if c.Dimension == 0 {
		c.Dimension = 384
	}
}

// LocalStore is C3: the primary persistent store for memories, embeddings,
// tags, metadata, access stats, and associations. It composes chromem-go
// (vector index, string-only metadata) with an in-memory relational index
// that is the authoritative source for typed Memory fields, associations,
// the archive table, and the sync cursor; the index is mirrored to disk
// with an atomic temp-file-then-rename write.
type LocalStore struct {
	mu sync.RWMutex

	dataDir   string
	dimension int

	db         *chromem.DB
	collection *chromem.Collection
	embedder   embedding.Provider

	memories     map[string]*Memory          // content_hash -> memory
	associations map[string]map[string]*Association // hash -> peer hash -> association
	archive      map[string]*Memory          // archived memories, excluded from retrieval
	syncCursor   SyncCursor

	indexPath string
	logger    *logging.Logger
}

// SyncCursor is the hybrid store's persisted (epoch, seq) bookmark for
// initial reconciliation.
type SyncCursor struct {
	Epoch float64
	Seq   int64
}

// NewLocalStore constructs a LocalStore bound to cfg.DataDir. Call
// Initialize before use.
func NewLocalStore(cfg LocalConfig, embedder embedding.Provider, logger *logging.Logger) (*LocalStore, error) {
	cfg.ApplyDefaults()
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data_dir must not be empty", errs.ErrInvalidArgument)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LocalStore{
		dataDir:      cfg.DataDir,
		dimension:    cfg.Dimension,
		embedder:     embedder,
		memories:     make(map[string]*Memory),
		associations: make(map[string]map[string]*Association),
		archive:      make(map[string]*Memory),
		indexPath:    filepath.Join(cfg.DataDir, "index.gob"),
		logger:       logger,
	}, nil
}

// Initialize opens the chromem database, loads the relational index from
// disk if present, and checks the embedding dimension invariant.
func (s *LocalStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dataDir, 0700); err != nil {
		return fmt.Errorf("%w: creating data dir: %v", errs.ErrStorageIO, err)
	}

	db, err := chromem.NewPersistentDB(filepath.Join(s.dataDir, "vectorstore"), false)
	if err != nil {
		return fmt.Errorf("%w: opening vector store: %v", errs.ErrStorageIO, err)
	}
	s.db = db

	collection, err := db.GetOrCreateCollection(defaultCollection, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("%w: opening collection: %v", errs.ErrStorageIO, err)
	}
	s.collection = collection

	if err := s.loadIndex(); err != nil {
		return fmt.Errorf("%w: loading index: %v", errs.ErrStorageIO, err)
	}

	if len(s.memories) > 0 {
		for _, m := range s.memories {
			if len(m.Embedding) != 0 && len(m.Embedding) != s.dimension {
				return fmt.Errorf("%w: store has dimension %d, configured %d", errs.ErrDimensionMismatch, len(m.Embedding), s.dimension)
			}
			break
		}
	}

	return nil
}

func (s *LocalStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Store inserts m if its hash is new.
func (s *LocalStore) Store(ctx context.Context, m Memory) (bool, string, error) {
	hash := hashing.Hash(m.Content, m.Tags)

	s.mu.Lock()
	if _, exists := s.memories[hash]; exists {
		s.mu.Unlock()
		return false, "duplicate", nil
	}
	s.mu.Unlock()

	if len(m.Embedding) == 0 {
		emb, err := s.embedder.EmbedQuery(ctx, m.Content)
		if err != nil {
			return false, "", fmt.Errorf("%w: embedding failed: %v", errs.ErrStorageIO, err)
		}
		m.Embedding = emb
	}
	if len(m.Embedding) != s.dimension {
		return false, "", fmt.Errorf("%w: embedding has %d dims, store configured for %d", errs.ErrDimensionMismatch, len(m.Embedding), s.dimension)
	}

	now := nowEpoch()
	m.ContentHash = hash
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[MetaAccessCount] = 0

	doc := chromem.Document{
		ID:        hash,
		Content:   m.Content,
		Metadata:  stringifyTags(m.Tags),
		Embedding: m.Embedding,
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return false, "", fmt.Errorf("%w: %v", errs.ErrStorageIO, err)
	}

	s.mu.Lock()
	s.memories[hash] = &m
	s.mu.Unlock()

	if err := s.persistIndex(); err != nil {
		s.logger.Error(ctx, "persisting index after store failed", zap.Error(err))
	}

	return true, "", nil
}

// GetByHash returns the memory with the given full hash or unambiguous
// hex prefix (minimum 8 characters).
func (s *LocalStore) GetByHash(ctx context.Context, hashOrPrefix string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.memories[hashOrPrefix]; ok {
		cp := *m
		return &cp, nil
	}
	if len(hashOrPrefix) < 8 {
		return nil, fmt.Errorf("%w: hash %q", errs.ErrNotFound, hashOrPrefix)
	}
	var match *Memory
	for h, m := range s.memories {
		if strings.HasPrefix(h, hashOrPrefix) {
			if match != nil {
				return nil, fmt.Errorf("%w: ambiguous prefix %q", errs.ErrInvalidArgument, hashOrPrefix)
			}
			cp := *m
			match = &cp
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: hash %q", errs.ErrNotFound, hashOrPrefix)
	}
	return match, nil
}

// Retrieve performs semantic retrieval via chromem, then reconciles
// results against the authoritative in-memory record so callers see
// typed metadata and current access stats.
func (s *LocalStore) Retrieve(ctx context.Context, query string, n int, minScore *float32) ([]ScoredMemory, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", errs.ErrInvalidArgument)
	}
	if n <= 0 {
		n = 10
	}

	s.mu.RLock()
	count := s.collection.Count()
	s.mu.RUnlock()
	if count == 0 {
		return nil, nil
	}
	k := n
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorageIO, err)
	}

	s.mu.Lock()
	out := make([]ScoredMemory, 0, len(results))
	for _, r := range results {
		m, ok := s.memories[r.ID]
		if !ok {
			continue
		}
		if minScore != nil && r.Similarity < *minScore {
			continue
		}
		m.Metadata[MetaAccessCount] = asInt(m.Metadata[MetaAccessCount]) + 1
		m.Metadata[MetaLastAccessedAt] = nowEpoch()
		cp := *m
		out = append(out, ScoredMemory{Memory: cp, Score: r.Similarity})
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Memory.UpdatedAt > out[j].Memory.UpdatedAt
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// SearchByTag returns memories matching the tag predicate.
func (s *LocalStore) SearchByTag(ctx context.Context, tags []string, match TagMatch) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Memory
	for _, m := range s.memories {
		if tagsMatch(m.Tags, tags, match) {
			out = append(out, *m)
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

// Recall returns memories updated within [after, before), newest first.
func (s *LocalStore) Recall(ctx context.Context, after, before time.Time, n int) ([]Memory, error) {
	if !after.IsZero() && !before.IsZero() && after.After(before) {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Memory
	for _, m := range s.memories {
		t := epochToTime(m.UpdatedAt)
		if !after.IsZero() && t.Before(after) {
			continue
		}
		if !before.IsZero() && !t.Before(before) {
			continue
		}
		out = append(out, *m)
	}
	sortByUpdatedDesc(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// ExactMatchSearch returns memories whose content contains needle.
func (s *LocalStore) ExactMatchSearch(ctx context.Context, needle string, n int) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Memory
	for _, m := range s.memories {
		if strings.Contains(m.Content, needle) {
			out = append(out, *m)
		}
	}
	sortByUpdatedDesc(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Delete removes the memory with the given full hash, and any
// associations that reference it.
func (s *LocalStore) Delete(ctx context.Context, hash string) (int, error) {
	s.mu.Lock()
	_, exists := s.memories[hash]
	if !exists {
		s.mu.Unlock()
		return 0, nil
	}
	delete(s.memories, hash)
	s.removeAssociationsForLocked(hash)
	s.mu.Unlock()

	if err := s.collection.Delete(ctx, nil, nil, hash); err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrStorageIO, err)
	}
	if err := s.persistIndex(); err != nil {
		s.logger.Error(ctx, "persisting index after delete failed", zap.Error(err))
	}
	return 1, nil
}

// DeleteByFilters deletes, or (if f.DryRun) previews, memories matching
// the tag/time predicate.
func (s *LocalStore) DeleteByFilters(ctx context.Context, f DeleteFilter) (int, []string, error) {
	s.mu.RLock()
	var hashes []string
	for h, m := range s.memories {
		if len(f.Tags) > 0 && !tagsMatch(m.Tags, f.Tags, f.Match) {
			continue
		}
		t := epochToTime(m.UpdatedAt)
		if !f.After.IsZero() && t.Before(f.After) {
			continue
		}
		if !f.Before.IsZero() && !t.Before(f.Before) {
			continue
		}
		hashes = append(hashes, h)
	}
	s.mu.RUnlock()

	if f.DryRun {
		return len(hashes), hashes, nil
	}
	for _, h := range hashes {
		if _, err := s.Delete(ctx, h); err != nil {
			return 0, nil, err
		}
	}
	return len(hashes), nil, nil
}

// UpdateMetadata merges partial into the memory's metadata map.
func (s *LocalStore) UpdateMetadata(ctx context.Context, hash string, partial map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[hash]
	if !ok {
		return fmt.Errorf("%w: hash %q", errs.ErrNotFound, hash)
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	for k, v := range partial {
		m.Metadata[k] = v
	}
	m.UpdatedAt = nowEpoch()

	if err := s.persistIndexLocked(); err != nil {
		s.logger.Error(ctx, "persisting index after metadata update failed", zap.Error(err))
	}
	return nil
}

// UpdateMemoryType changes a memory's memory_type classification.
// memory_type is not part of the content hash (hashing.Hash covers only
// content and tags), so unlike tags it can change without orphaning the
// memory's identity.
func (s *LocalStore) UpdateMemoryType(ctx context.Context, hash, memoryType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[hash]
	if !ok {
		return fmt.Errorf("%w: hash %q", errs.ErrNotFound, hash)
	}
	m.MemoryType = memoryType
	m.UpdatedAt = nowEpoch()

	if err := s.persistIndexLocked(); err != nil {
		s.logger.Error(ctx, "persisting index after memory_type update failed", zap.Error(err))
	}
	return nil
}

// GetStats reports store size and readiness.
func (s *LocalStore) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Count:     len(s.memories),
		Dimension: s.dimension,
		BackendID: "chromem-local",
		Ready:     s.collection != nil,
	}, nil
}

// GetAllMemories pages through every memory, newest first.
func (s *LocalStore) GetAllMemories(ctx context.Context, limit, offset int) ([]Memory, error) {
	s.mu.RLock()
	all := make([]Memory, 0, len(s.memories))
	for _, m := range s.memories {
		all = append(all, *m)
	}
	s.mu.RUnlock()

	sortByUpdatedDesc(all)
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// UpsertAssociation creates or reinforces an association between a and b.
func (s *LocalStore) UpsertAssociation(ctx context.Context, a, b string, strength float64, reason string) error {
	if a == b {
		return fmt.Errorf("%w: self-association for %q", errs.ErrInvalidArgument, a)
	}
	lo, hi := NormalizePair(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing := s.lookupAssociationLocked(lo, hi)
	if existing != nil {
		existing.Strength = strength
		existing.Reason = reason
		existing.LastReinforcedAt = now
		return s.persistIndexLocked()
	}

	assoc := &Association{HashA: lo, HashB: hi, Strength: strength, Reason: reason, CreatedAt: now, LastReinforcedAt: now}
	s.setAssociationLocked(lo, hi, assoc)
	return s.persistIndexLocked()
}

// ListAssociations performs a bounded BFS over the association graph.
func (s *LocalStore) ListAssociations(ctx context.Context, hash string, maxHops int) (map[string][]Association, error) {
	if maxHops <= 0 {
		maxHops = 1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[string]bool{hash: true}
	frontier := []string{hash}
	out := make(map[string][]Association)

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, h := range frontier {
			for peer, assoc := range s.associations[h] {
				out[h] = append(out[h], *assoc)
				if !visited[peer] {
					visited[peer] = true
					next = append(next, peer)
				}
			}
		}
		frontier = next
	}
	return out, nil
}

// metaArchivedAt is the metadata key recording when a memory entered the
// archival table, used to order ListArchived results.
const metaArchivedAt = "archived_at"

// Archive moves the memory with hash out of the primary index (removing
// it from the vector collection so it is excluded from Retrieve) into
// the archival table, where it remains recoverable via Unarchive.
func (s *LocalStore) Archive(ctx context.Context, hash string) error {
	s.mu.Lock()
	m, ok := s.memories[hash]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: hash %q", errs.ErrNotFound, hash)
	}
	delete(s.memories, hash)
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[metaArchivedAt] = nowEpoch()
	s.archive[hash] = m
	s.mu.Unlock()

	if err := s.collection.Delete(ctx, nil, nil, hash); err != nil {
		return fmt.Errorf("%w: removing archived memory from index: %v", errs.ErrStorageIO, err)
	}
	if err := s.persistIndex(); err != nil {
		s.logger.Error(ctx, "persisting index after archive failed", zap.Error(err))
	}
	return nil
}

// Unarchive restores hash from the archival table to the primary index.
func (s *LocalStore) Unarchive(ctx context.Context, hash string) error {
	s.mu.Lock()
	m, ok := s.archive[hash]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: archived hash %q", errs.ErrNotFound, hash)
	}
	delete(s.archive, hash)
	delete(m.Metadata, metaArchivedAt)
	s.memories[hash] = m
	s.mu.Unlock()

	doc := chromem.Document{
		ID:        hash,
		Content:   m.Content,
		Metadata:  stringifyTags(m.Tags),
		Embedding: m.Embedding,
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("%w: restoring unarchived memory to index: %v", errs.ErrStorageIO, err)
	}
	if err := s.persistIndex(); err != nil {
		s.logger.Error(ctx, "persisting index after unarchive failed", zap.Error(err))
	}
	return nil
}

// GetArchived looks up a memory in the archival table by full hash.
func (s *LocalStore) GetArchived(ctx context.Context, hash string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.archive[hash]
	if !ok {
		return nil, fmt.Errorf("%w: archived hash %q", errs.ErrNotFound, hash)
	}
	cp := *m
	return &cp, nil
}

// ListArchived pages through the archival table, most-recently-archived
// first.
func (s *LocalStore) ListArchived(ctx context.Context, limit, offset int) ([]Memory, error) {
	s.mu.RLock()
	all := make([]Memory, 0, len(s.archive))
	for _, m := range s.archive {
		all = append(all, *m)
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return asFloat(all[i].Metadata[metaArchivedAt]) > asFloat(all[j].Metadata[metaArchivedAt])
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Close flushes the index to disk. Idempotent; chromem persists its own
// data automatically.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistIndexLocked()
}

// --- internal helpers ---

func (s *LocalStore) removeAssociationsForLocked(hash string) {
	for peer := range s.associations[hash] {
		delete(s.associations[peer], hash)
	}
	delete(s.associations, hash)
}

func (s *LocalStore) lookupAssociationLocked(lo, hi string) *Association {
	if peers, ok := s.associations[lo]; ok {
		if a, ok := peers[hi]; ok {
			return a
		}
	}
	return nil
}

func (s *LocalStore) setAssociationLocked(lo, hi string, assoc *Association) {
	if s.associations[lo] == nil {
		s.associations[lo] = make(map[string]*Association)
	}
	if s.associations[hi] == nil {
		s.associations[hi] = make(map[string]*Association)
	}
	s.associations[lo][hi] = assoc
	s.associations[hi][lo] = assoc
}

// persistedIndex is the gob-serializable snapshot of LocalStore's
// relational state.
type persistedIndex struct {
	Memories     map[string]*Memory
	Associations []Association
	Archive      map[string]*Memory
	SyncCursor   SyncCursor
}

func (s *LocalStore) persistIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistIndexLocked()
}

// persistIndexLocked writes the index atomically: encode to a temp file in
// the same directory, then rename over the target, so a crash mid-write
// never leaves a truncated index behind.
func (s *LocalStore) persistIndexLocked() error {
	var assocs []Association
	seen := make(map[string]bool)
	for _, peers := range s.associations {
		for _, a := range peers {
			key := a.HashA + "|" + a.HashB
			if seen[key] {
				continue
			}
			seen[key] = true
			assocs = append(assocs, *a)
		}
	}

	snapshot := persistedIndex{
		Memories:     s.memories,
		Associations: assocs,
		Archive:      s.archive,
		SyncCursor:   s.syncCursor,
	}

	tmp, err := os.CreateTemp(s.dataDir, "index-*.gob.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := gob.NewEncoder(tmp).Encode(snapshot); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.indexPath)
}

func (s *LocalStore) loadIndex() error {
	data, err := os.ReadFile(s.indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snapshot persistedIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snapshot); err != nil {
		return err
	}

	if snapshot.Memories != nil {
		s.memories = snapshot.Memories
	}
	if snapshot.Archive != nil {
		s.archive = snapshot.Archive
	}
	s.syncCursor = snapshot.SyncCursor
	for _, a := range snapshot.Associations {
		a := a
		s.setAssociationLocked(a.HashA, a.HashB, &a)
	}
	return nil
}

func nowEpoch() float64 {
	return float64(time.Now().UTC().UnixNano()) / 1e9
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringifyTags(tags []string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	return map[string]string{"tags": strings.Join(tags, ",")}
}

func tagsMatch(have, want []string, match TagMatch) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	switch match {
	case TagMatchAll:
		for _, t := range want {
			if !set[t] {
				return false
			}
		}
		return true
	default: // any
		for _, t := range want {
			if set[t] {
				return true
			}
		}
		return false
	}
}

func sortByUpdatedDesc(ms []Memory) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].UpdatedAt > ms[j].UpdatedAt })
}
