package engine

import (
	fileconfig "github.com/fyrsmithlabs/memengine/internal/config"
	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/schedule"
	"github.com/fyrsmithlabs/memengine/internal/store"
	"github.com/fyrsmithlabs/memengine/internal/sync"
)

// FromFileConfig translates the koanf-loaded, externally stable
// internal/config.Config (environment variables and the on-disk YAML
// file) into the Config shape New expects. internal/config.Config exists
// because its field tags are the external contract (MEMENGINE_* env vars,
// config.yaml keys); Config's nested sub-package Config types are each
// package's own internal shape and are free to change without touching
// that contract.
func FromFileConfig(fc *fileconfig.Config) Config {
	return Config{
		StorageBackend: Backend(fc.StorageBackend),
		DataDir:        fc.DataDir,
		Embedding: embedding.Config{
			Model: fc.EmbeddingModel,
		},
		Remote: store.RemoteConfig{
			Host:       fc.Remote.Endpoint,
			APIKey:     fc.Remote.APIToken.String(),
			Collection: fc.Remote.VectorIndex,
			VectorSize: uint64(fc.EmbeddingDim),
		},
		Sync: sync.Config{
			Queue: sync.QueueConfig{
				Capacity:           fc.Sync.QueueCapacity,
				DropPolicy:         sync.DropPolicy(fc.Sync.DropPolicy),
				BlockWriterTimeout: fc.Sync.BlockWriterTimeout.Duration(),
			},
			RetryBaseMs:        fc.Sync.RetryBaseMs,
			RetryCapMs:         fc.Sync.RetryCapMs,
			PauseOnConsolidate: fc.Sync.PauseOnConsolidate,
		},
		Quality: quality.Config{
			SystemEnabled:    fc.Quality.SystemEnabled,
			AIProvider:       quality.Provider(fc.Quality.AIProvider),
			LocalModel:       fc.Quality.LocalModel,
			Device:           fc.Quality.Device,
			BoostEnabled:     fc.Quality.BoostEnabled,
			BoostWeight:      fc.Quality.BoostWeight,
			RetentionHigh:    fc.Quality.RetentionHigh,
			RetentionMedium:  fc.Quality.RetentionMedium,
			RetentionLowMin:  fc.Quality.RetentionLowMin,
			RetentionLowMax:  fc.Quality.RetentionLowMax,
			FallbackEnabled:  fc.Quality.FallbackEnabled,
			DebertaThreshold: fc.Quality.DebertaThreshold,
			MsmarcoThreshold: fc.Quality.MsmarcoThreshold,
			AIScoresCap:      fc.Quality.AIScoresCap,
		},
		Consolidate: consolidate.Config{
			ReportsDir:      fc.Consolidation.ReportsDir,
			TauAssoc:        fc.Consolidation.SimilarityThreshold,
			TauTag:          fc.Consolidation.TagJaccardThreshold,
			SRefresh:        fc.Consolidation.ScoreRefreshAfter.Duration(),
			RetentionHigh:   fc.Quality.RetentionHigh,
			RetentionMedium: fc.Quality.RetentionMedium,
			RetentionLowMin: fc.Quality.RetentionLowMin,
			RetentionLowMax: fc.Quality.RetentionLowMax,
			AssociationsEnabled: true,
			QualityEnabled:      true,
			RetentionEnabled:    true,
			DecayEnabled:        true,
		},
		Schedule: schedule.Config{
			Daily:     fc.Schedule.Daily,
			Weekly:    fc.Schedule.Weekly,
			Monthly:   fc.Schedule.Monthly,
			Quarterly: fc.Schedule.Quarterly,
			Yearly:    fc.Schedule.Yearly,
		},
		ConsolidationEnabled: fc.Consolidation.Enabled,
		GitHubPublisher: consolidate.GitHubPublisherConfig{
			Token:       fc.GitHubPublisher.Token.Value(),
			Owner:       fc.GitHubPublisher.Owner,
			Repo:        fc.GitHubPublisher.Repo,
			IssueNumber: fc.GitHubPublisher.IssueNumber,
		},
	}
}
