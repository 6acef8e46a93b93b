// Package engine composes C1-C9 into the twelve unified operations that
// are the engine's only public surface, per spec.md §6.
package engine

import (
	"fmt"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/logging"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/schedule"
	"github.com/fyrsmithlabs/memengine/internal/store"
	syncpkg "github.com/fyrsmithlabs/memengine/internal/sync"
)

// Backend selects the storage backend New builds: a LocalStore, or a
// HybridStore over it. BackendRemote is rejected by Validate.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
	BackendHybrid Backend = "hybrid"
)

// Config is the engine's single configuration object, with one section
// per internal component, field names matching spec.md §6's recognized
// configuration keys.
type Config struct {
	StorageBackend Backend `koanf:"storage_backend"`
	DataDir        string  `koanf:"data_dir"`

	Embedding embedding.Config `koanf:"embedding"`
	Remote    store.RemoteConfig `koanf:"remote"`
	Sync      syncpkg.Config     `koanf:"sync"`

	Quality     quality.Config     `koanf:"quality"`
	Consolidate consolidate.Config `koanf:"consolidation"`
	Schedule    schedule.Config    `koanf:"schedule"`

	// ConsolidationEnabled is the master switch for C8/C9 (spec.md §6's
	// consolidation.enabled). When false, New does not build a Scheduler
	// and memory_consolidate(action=run|scheduler|...) returns
	// errs.ErrInvalidArgument.
	ConsolidationEnabled bool `koanf:"consolidation_enabled"`

	// GitHubPublisher optionally configures an operator-facing sink that
	// posts each completed consolidation report as a GitHub issue comment
	// (see internal/consolidate.GitHubPublisher). Leaving Token, Owner,
	// Repo, or IssueNumber unset keeps consolidation on the no-op
	// publisher; the reports directory remains the canonical artifact
	// either way.
	GitHubPublisher consolidate.GitHubPublisherConfig `koanf:"github_publisher"`

	Logging *logging.Config `koanf:"logging"`
}

// ApplyDefaults fills every sub-config's defaults and defaults
// StorageBackend to local, the single-writer-per-data-directory mode
// spec.md's concurrency model assumes absent an explicit choice.
func (c *Config) ApplyDefaults() {
	if c.StorageBackend == "" {
		c.StorageBackend = BackendLocal
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	c.Remote.ApplyDefaults()
	c.Sync.ApplyDefaults()
	c.Quality.ApplyDefaults()
	c.Consolidate.ApplyDefaults()
	c.Schedule.ApplyDefaults()
}

// Validate reports a configuration error before New attempts to wire
// anything, so a bad storage_backend value surfaces as ErrInvalidArgument
// rather than a nil-pointer panic deep in construction.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendLocal, BackendHybrid:
	case BackendRemote:
		// C4's RemoteMirror contract (internal/store/remote.go) is
		// write-only: Ping/Put/Delete/Close, no retrieval. spec.md §4.5
		// keeps the remote store off the read path even in hybrid mode, so
		// a standalone remote backend with no local read authority has no
		// implementation here; see DESIGN.md.
		return fmt.Errorf("%w: storage_backend=remote has no standalone read path, use hybrid", errs.ErrInvalidArgument)
	default:
		return fmt.Errorf("%w: unknown storage_backend %q", errs.ErrInvalidArgument, c.StorageBackend)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", errs.ErrInvalidArgument)
	}
	return nil
}
