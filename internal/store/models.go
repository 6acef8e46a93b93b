// Package store implements C3 (local), C4 (remote), and C5 (hybrid) of the
// memory engine: the capability interface MemoryStore with its local and
// hybrid implementations, and the remote mirror.
package store

import "time"

// Memory is the engine's primary entity: a content-addressed, embedded,
// tagged textual record.
type Memory struct {
	ContentHash string                 `json:"content_hash"`
	Content     string                 `json:"content"`
	Tags        []string               `json:"tags"`
	MemoryType  string                 `json:"memory_type,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Embedding   []float32              `json:"-"`

	CreatedAt float64 `json:"created_at"` // unix epoch seconds
	UpdatedAt float64 `json:"updated_at"`
}

// CreatedAtTime returns CreatedAt (unix epoch seconds) as a UTC time.Time.
func (m *Memory) CreatedAtTime() time.Time {
	return epochToTime(m.CreatedAt)
}

// UpdatedAtTime returns UpdatedAt (unix epoch seconds) as a UTC time.Time.
func (m *Memory) UpdatedAtTime() time.Time {
	return epochToTime(m.UpdatedAt)
}

func epochToTime(epoch float64) time.Time {
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// quality metadata keys, held inside Memory.Metadata per spec.md §3.
const (
	MetaQualityScore      = "quality_score"
	MetaQualityProvider    = "quality_provider"
	MetaAccessCount        = "access_count"
	MetaLastAccessedAt     = "last_accessed_at"
	MetaAIScores           = "ai_scores"
	MetaUserRating         = "user_rating"
	MetaQualityComponents  = "quality_components"
	MetaDecayMultiplier    = "decay_multiplier"
)

// ScoredMemory pairs a Memory with its relevance score from a retrieval.
type ScoredMemory struct {
	Memory Memory
	Score  float32
}

// Association is a secondary entity produced by consolidation: an
// unordered pair of memories with a strength and reason.
type Association struct {
	HashA             string    `json:"hash_a"`
	HashB             string    `json:"hash_b"`
	Strength          float64   `json:"strength"`
	Reason            string    `json:"reason"` // co_tag | embedding_proximity | temporal_cluster | manual
	CreatedAt         time.Time `json:"created_at"`
	LastReinforcedAt  time.Time `json:"last_reinforced_at"`
}

// Association reasons.
const (
	ReasonCoTag               = "co_tag"
	ReasonEmbeddingProximity  = "embedding_proximity"
	ReasonTemporalCluster     = "temporal_cluster"
	ReasonManual              = "manual"
)

// NormalizePair orders a and b so hash_a < hash_b, matching the invariant
// that associations are stored unordered but keyed canonically.
func NormalizePair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// TagMatch selects how a tag filter combines multiple tags.
type TagMatch string

const (
	TagMatchAny TagMatch = "any"
	TagMatchAll TagMatch = "all"
)

// Stats is the result of get_stats(): a snapshot of store health and size.
type Stats struct {
	Count     int    `json:"count"`
	Dimension int    `json:"dim"`
	BackendID string `json:"backend_id"`
	Ready     bool   `json:"ready"`
}
