// Package config provides configuration loading for memengine.
package config

import (
	"fmt"
)

// Config is the root configuration for a memengine instance. It maps
// directly onto the recognized options in the engine's external interface:
// storage backend selection, embedding model, remote credentials, sync
// behavior, quality policy, and the consolidation schedule.
type Config struct {
	StorageBackend string `koanf:"storage_backend"` // local | remote | hybrid

	EmbeddingModel string `koanf:"embedding_model"`
	EmbeddingDim   int    `koanf:"embedding_dim"`

	DataDir string `koanf:"data_dir"`

	Remote       RemoteConfig       `koanf:"remote"`
	Sync         SyncConfig         `koanf:"sync"`
	Quality      QualityConfig      `koanf:"quality"`
	Schedule     ScheduleConfig     `koanf:"schedule"`
	Consolidation ConsolidationConfig `koanf:"consolidation"`

	// GitHubPublisher optionally configures an ops sink that posts each
	// completed consolidation report as a GitHub issue comment. Leaving
	// Token, Owner, Repo, or IssueNumber unset keeps consolidation on the
	// no-op publisher.
	GitHubPublisher GitHubPublisherConfig `koanf:"github_publisher"`
}

// GitHubPublisherConfig holds the optional consolidation-report publisher
// credentials (C8's ReportPublisher sink).
type GitHubPublisherConfig struct {
	Token       Secret `koanf:"token"`
	Owner       string `koanf:"owner"`
	Repo        string `koanf:"repo"`
	IssueNumber int    `koanf:"issue_number"`
}

// RemoteConfig holds C4 remote store client credentials and endpoint.
type RemoteConfig struct {
	Endpoint    string `koanf:"endpoint"`
	AccountID   string `koanf:"account_id"`
	APIToken    Secret `koanf:"api_token"`
	VectorIndex string `koanf:"vector_index"`
	KVNamespace string `koanf:"kv_namespace"`
}

// SyncConfig holds C6 sync engine behavior.
type SyncConfig struct {
	QueueCapacity     int      `koanf:"queue_capacity"`
	DropPolicy        string   `koanf:"drop_policy"` // block_writer | drop_oldest | drop_new
	BlockWriterTimeout Duration `koanf:"block_writer_timeout"`
	RetryBaseMs       int      `koanf:"retry_base_ms"`
	RetryCapMs        int      `koanf:"retry_cap_ms"`
	PauseOnConsolidate bool    `koanf:"pause_on_consolidate"`
}

// QualityConfig holds C7/C8 quality policy.
type QualityConfig struct {
	SystemEnabled     bool    `koanf:"system_enabled"`
	AIProvider        string  `koanf:"ai_provider"` // local | remote_a | remote_b | auto | none
	LocalModel        string  `koanf:"local_model"`
	Device            string  `koanf:"device"`
	BoostEnabled      bool    `koanf:"boost_enabled"`
	BoostWeight       float64 `koanf:"boost_weight"`
	RetentionHigh     int     `koanf:"retention_high"`
	RetentionMedium   int     `koanf:"retention_medium"`
	RetentionLowMin   int     `koanf:"retention_low_min"`
	RetentionLowMax   int     `koanf:"retention_low_max"`
	FallbackEnabled   bool    `koanf:"fallback_enabled"`
	DebertaThreshold  float64 `koanf:"deberta_threshold"`
	MsmarcoThreshold  float64 `koanf:"msmarco_threshold"`
	AIScoresCap       int     `koanf:"ai_scores_cap"`
}

// ScheduleConfig holds C9 scheduler triggers, one expression (or "disabled")
// per horizon.
type ScheduleConfig struct {
	Daily     string `koanf:"daily"`
	Weekly    string `koanf:"weekly"`
	Monthly   string `koanf:"monthly"`
	Quarterly string `koanf:"quarterly"`
	Yearly    string `koanf:"yearly"`
}

// ConsolidationConfig is the master switch and parameters for C8.
type ConsolidationConfig struct {
	Enabled          bool    `koanf:"enabled"`
	SimilarityThreshold float64 `koanf:"similarity_threshold"` // tau_assoc
	TagJaccardThreshold float64 `koanf:"tag_jaccard_threshold"` // tau_tag
	ScoreRefreshAfter   Duration `koanf:"score_refresh_after"`  // S_refresh
	MaxClustersPerRun   int     `koanf:"max_clusters_per_run"`
	ReportsDir          string  `koanf:"reports_dir"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "local", "remote", "hybrid":
	default:
		return fmt.Errorf("storage_backend must be local, remote, or hybrid, got %q", c.StorageBackend)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be > 0, got %d", c.EmbeddingDim)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.StorageBackend != "local" {
		if c.Remote.Endpoint == "" {
			return fmt.Errorf("remote.endpoint is required for storage_backend %q", c.StorageBackend)
		}
	}
	switch c.Sync.DropPolicy {
	case "block_writer", "drop_oldest", "drop_new":
	default:
		return fmt.Errorf("sync.drop_policy must be block_writer, drop_oldest, or drop_new, got %q", c.Sync.DropPolicy)
	}
	if c.Sync.QueueCapacity <= 0 {
		return fmt.Errorf("sync.queue_capacity must be > 0, got %d", c.Sync.QueueCapacity)
	}
	if c.Quality.BoostWeight < 0 || c.Quality.BoostWeight > 1 {
		return fmt.Errorf("quality.boost_weight must be in [0,1], got %f", c.Quality.BoostWeight)
	}
	if c.Quality.AIScoresCap <= 0 {
		return fmt.Errorf("quality.ai_scores_cap must be > 0, got %d", c.Quality.AIScoresCap)
	}
	return nil
}
