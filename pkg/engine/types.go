package engine

import "time"

// SearchMode selects how memory_search matches query against content.
type SearchMode string

const (
	SearchSemantic SearchMode = "semantic"
	SearchExact    SearchMode = "exact"
	SearchHybrid   SearchMode = "hybrid"
)

// StoreRequest is memory_store's input.
type StoreRequest struct {
	Content    string
	Tags       []string
	MemoryType string
	Metadata   map[string]interface{}
}

// StoreResult is memory_store's output.
type StoreResult struct {
	ContentHash string
	Inserted    bool
	Reason      string // "duplicate" when Inserted is false
}

// SearchRequest is memory_search's input, covering all three modes plus
// time/tag filters and quality-boosted reranking.
type SearchRequest struct {
	Query        string
	Mode         SearchMode
	TimeExpr     string
	After        time.Time
	Before       time.Time
	Tags         []string
	TagMatch     string // "any" | "all"
	QualityBoost float64
	Limit        int
	IncludeDebug bool
}

// SearchResult is one ranked memory. MemorySearch leaves PreFilterCount
// at zero; the pre-filter count is reported in SearchDebug.
type SearchResult struct {
	Memory            MemoryView
	Score             float32
	QualityScore      float64
	RawSimilarity     float32
	PreFilterCount    int
}

// SearchResponse is memory_search's output.
type SearchResponse struct {
	Results []SearchResult
	Debug   *SearchDebug
}

// SearchDebug is populated only when IncludeDebug is set.
type SearchDebug struct {
	Mode           SearchMode
	QualityBoost   float64
	PreFilterCount int
}

// MemoryView is the caller-facing projection of store.Memory.
type MemoryView struct {
	ContentHash string
	Content     string
	Tags        []string
	MemoryType  string
	Metadata    map[string]interface{}
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListRequest is memory_list's input.
type ListRequest struct {
	Page       int
	PageSize   int
	Tags       []string
	MemoryType string
}

// ListResponse is memory_list's output.
type ListResponse struct {
	Memories   []MemoryView
	Page       int
	PageSize   int
	TotalCount int
}

// DeleteRequest is memory_delete's input.
type DeleteRequest struct {
	ContentHash string
	Tags        []string
	TagMatch    string // "any" | "all"
	After       time.Time
	Before      time.Time
	DryRun      bool
}

// DeleteResponse is memory_delete's output.
type DeleteResponse struct {
	Count  int
	Hashes []string // populated for DryRun, or always for ContentHash deletes
}

// UpdateRequest is memory_update's input.
type UpdateRequest struct {
	Hash       string
	Tags       []string
	MemoryType string
	Metadata   map[string]interface{}
}

// HealthResponse is memory_health's output.
type HealthResponse struct {
	Backend string
	Count   int
	Ready   bool
}

// StatsResponse is memory_stats's output.
type StatsResponse struct {
	Count         int
	Dimension     int
	BackendID     string
	Ready         bool
	SyncState     string
	SyncQueueDepth int
	SyncRetried   int64
	SyncDropped   int64
}

// ConsolidateAction selects memory_consolidate's behavior.
type ConsolidateAction string

const (
	ConsolidateRun       ConsolidateAction = "run"
	ConsolidateStatus    ConsolidateAction = "status"
	ConsolidateRecommend ConsolidateAction = "recommend"
	ConsolidateScheduler ConsolidateAction = "scheduler"
	ConsolidatePause     ConsolidateAction = "pause"
	ConsolidateResume    ConsolidateAction = "resume"
)

// ConsolidateRequest is memory_consolidate's input.
type ConsolidateRequest struct {
	Action      ConsolidateAction
	TimeHorizon string
	Immediate   bool
}

// ConsolidateResponse is memory_consolidate's output. At most one of
// Report, Status, or Recommendation is populated, matching which Action
// was requested; pause and resume populate none.
type ConsolidateResponse struct {
	Report         *ConsolidateReport
	Status         *ConsolidateStatus
	Recommendation string
}

// ConsolidateReport is the caller-facing projection of a completed
// consolidation pass.
type ConsolidateReport struct {
	Horizon           string
	StartedAt         time.Time
	CompletedAt       time.Time
	Scanned           int
	Associated        int
	Scored            int
	Archived          int
	AssociationsAdded int
	ArchivedHashes    []string
}

// HorizonStatus is one horizon's schedule/pause/run state.
type HorizonStatus struct {
	Horizon     string
	Enabled     bool
	Paused      bool
	Running     bool
	LastRunAt   time.Time
	LastError   string
	NextRunExpr string
}

// ConsolidateStatus is the scheduler's full status, for action=status and
// action=scheduler.
type ConsolidateStatus struct {
	Horizons []HorizonStatus
}

// CleanupResponse is memory_cleanup's output: duplicate removal never
// happens in this engine (content hashing already guarantees no duplicate
// content_hash can be stored, per spec.md §3's dedup invariant), so this
// always reports zero removed and exists to answer legacy callers.
type CleanupResponse struct {
	Removed int
}

// IngestRequest is memory_ingest's input.
type IngestRequest struct {
	FilePath      string
	DirectoryPath string
	Tags          []string
	ChunkSize     int
	ChunkOverlap  int
	MemoryType    string
	Recursive     bool
	FileExtensions []string
	MaxFiles      int
}

// IngestResponse is memory_ingest's output.
type IngestResponse struct {
	FilesProcessed int
	ChunksStored   int
	Duplicates     int
	Skipped        []string
}

// QualityAction selects memory_quality's behavior.
type QualityAction string

const (
	QualityRate    QualityAction = "rate"
	QualityGet     QualityAction = "get"
	QualityAnalyze QualityAction = "analyze"
)

// QualityRequest is memory_quality's input.
type QualityRequest struct {
	Action     QualityAction
	Hash       string
	Rating     *int // -1, 0, 1
	Feedback   string
	MinQuality *float64
	MaxQuality *float64
}

// QualityResponse is memory_quality's output.
type QualityResponse struct {
	Hash       string
	Score      float64
	Provider   string
	Components map[string]float64
	Matches    []MemoryView // populated by action=analyze
}

// GraphAction selects memory_graph's traversal mode.
type GraphAction string

const (
	GraphConnected GraphAction = "connected"
	GraphPath      GraphAction = "path"
	GraphSubgraph  GraphAction = "subgraph"
)

// GraphRequest is memory_graph's input.
type GraphRequest struct {
	Action  GraphAction
	Hash    string
	Hash1   string
	Hash2   string
	MaxHops int
	MaxDepth int
	Radius  int
}

// GraphEdge is one traversed association.
type GraphEdge struct {
	HashA    string
	HashB    string
	Strength float64
	Reason   string
}

// GraphResponse is memory_graph's output.
type GraphResponse struct {
	Edges []GraphEdge
	Path  []string // populated by action=path: hash1 .. hash2
}
