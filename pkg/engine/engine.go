package engine

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/logging"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/schedule"
	"github.com/fyrsmithlabs/memengine/internal/store"
	syncpkg "github.com/fyrsmithlabs/memengine/internal/sync"
)

// Engine is the public façade: it wires C1-C9 per Config and exposes the
// twelve unified operations as its only methods. Grounded on the teacher's
// "thin façade composing internal packages" shape — no single teacher file
// matches, since the teacher's dispatcher is MCP-protocol-specific and out
// of scope; this is a plain Go API instead.
type Engine struct {
	cfg Config

	store       store.MemoryStore
	embedder    embedding.Provider
	evaluator   *quality.Evaluator
	signals     quality.SignalStore
	consolidator *consolidate.Consolidator
	scheduler   *schedule.Scheduler
	syncEngine  *syncpkg.Engine

	logger *logging.Logger
}

// New constructs and initializes an Engine from cfg. The returned Engine
// owns every resource it builds (store files, the embedder's model
// runtime, the sync worker, the scheduler's cron ticker) and Close
// releases all of them.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewNop()
	if cfg.Logging != nil {
		built, err := logging.NewLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("engine: logging config: %w", err)
		}
		logger = built
	}

	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("engine: embedding provider: %w", err)
	}

	localCfg := store.LocalConfig{DataDir: cfg.DataDir, Dimension: embedder.Dimension()}
	local, err := store.NewLocalStore(localCfg, embedder, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("engine: local store: %w", err)
	}
	if err := local.Initialize(ctx); err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("engine: local store init: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		embedder: embedder,
		logger:   logger,
		signals:  quality.NewInMemorySignalStore(),
	}

	var backend store.MemoryStore = local
	if cfg.StorageBackend == BackendHybrid {
		remote, err := store.NewRemoteStore(ctx, cfg.Remote, logger)
		if err != nil {
			_ = local.Close()
			_ = embedder.Close()
			return nil, fmt.Errorf("engine: remote store: %w", err)
		}
		syncEngine := syncpkg.NewEngine(remote, cfg.Sync, logger)
		hybrid := store.NewHybridStore(local, syncEngine, logger)
		if err := syncEngine.Start(ctx); err != nil {
			_ = remote.Close()
			_ = local.Close()
			_ = embedder.Close()
			return nil, fmt.Errorf("engine: sync engine start: %w", err)
		}
		e.syncEngine = syncEngine
		backend = hybrid
	}
	e.store = backend

	e.evaluator = quality.NewEvaluator(cfg.Quality, embedder, nil, nil, e.signals)

	var pauser consolidate.Pauser
	if e.syncEngine != nil {
		pauser = e.syncEngine
	}
	publisher := consolidate.NewGitHubPublisher(ctx, cfg.GitHubPublisher)
	e.consolidator = consolidate.NewConsolidator(e.store, e.evaluator, pauser, cfg.Consolidate, logger, publisher)

	if cfg.ConsolidationEnabled {
		queueDepthFn := func() int { return 0 }
		if e.syncEngine != nil {
			queueDepthFn = func() int { return e.syncEngine.SyncStatus().QueueDepth }
		}
		e.scheduler = schedule.New(e.consolidator, cfg.Schedule, logger, queueDepthFn)
		if err := e.scheduler.Start(ctx); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: scheduler start: %w", err)
		}
	}

	return e, nil
}

// Close releases every resource New acquired, in reverse order. Idempotent
// per component (each Close below is already idempotent).
func (e *Engine) Close() error {
	if e.scheduler != nil {
		_ = e.scheduler.Stop()
	}
	if e.syncEngine != nil {
		_ = e.syncEngine.Stop()
	}
	var err error
	if e.store != nil {
		err = e.store.Close()
	}
	if e.embedder != nil {
		if cerr := e.embedder.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
