// Package consolidate implements C8: the consolidation pipeline that
// discovers associations, scores quality, and makes retention decisions
// over a bounded horizon window of memories.
package consolidate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/logging"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// Pauser is the narrow capability the consolidator borrows from the sync
// engine: pause mirroring for the duration of a pass (bypassing the queue
// entirely) and resume it afterward. Satisfied by *sync.Engine; kept as
// an interface here so consolidate never imports internal/sync, matching
// the store/sync import-direction discipline C5 already established.
type Pauser interface {
	Pause(consolidationActive bool) error
	Resume() error
}

// noopPauser is used when no sync engine is wired (e.g. a local-only
// deployment): consolidation proceeds without ever touching sync state.
type noopPauser struct{}

func (noopPauser) Pause(bool) error { return nil }
func (noopPauser) Resume() error    { return nil }

// Consolidator is C8. Construct via NewConsolidator; Run executes one
// pass for a single horizon.
type Consolidator struct {
	store     store.MemoryStore
	evaluator *quality.Evaluator
	pauser    Pauser
	publisher ReportPublisher
	cfg       Config
	logger    *logging.Logger

	mu      sync.Mutex
	running bool
}

// NewConsolidator constructs a Consolidator. pauser and publisher may be
// nil, defaulting to a no-op pauser and NoopPublisher respectively.
func NewConsolidator(st store.MemoryStore, evaluator *quality.Evaluator, pauser Pauser, cfg Config, logger *logging.Logger, publisher ReportPublisher) *Consolidator {
	cfg.ApplyDefaults()
	if pauser == nil {
		pauser = noopPauser{}
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Consolidator{
		store:     st,
		evaluator: evaluator,
		pauser:    pauser,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes a single consolidation pass over horizon's candidate
// window. Only one pass may run at a time across this Consolidator;
// concurrent Run calls return errs.ErrAlreadyRunning.
//
// Phase failures are handled per spec.md §4.8: candidate selection
// (initialization) failing aborts the pass with no report written.
// Failures within later phases are per-item — logged and skipped — and
// never abort the pass. The report is written only once every enabled
// phase has completed.
func (c *Consolidator) Run(ctx context.Context, horizon Horizon) (*Report, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: consolidation already running", errs.ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	now := time.Now().UTC()
	report := &Report{
		RunID:          uuid.NewString(),
		Horizon:        horizon,
		StartedAt:      now,
		PhaseDurations: make(map[string]time.Duration),
	}

	if err := c.pauser.Pause(true); err != nil {
		c.logger.Warn(ctx, "consolidate: sync pause failed, proceeding without bypass", zap.Error(err))
	}
	defer func() {
		if err := c.pauser.Resume(); err != nil {
			c.logger.Warn(ctx, "consolidate: sync resume failed", zap.Error(err))
		}
	}()

	t0 := time.Now()
	candidates, all, err := c.selectCandidates(ctx, horizon, now)
	report.PhaseDurations["candidate_selection"] = time.Since(t0)
	if err != nil {
		return nil, fmt.Errorf("consolidate: candidate selection failed: %w", err)
	}
	report.Counts.Scanned = len(candidates)

	if c.cfg.AssociationsEnabled {
		t0 = time.Now()
		added, err := c.discoverAssociations(ctx, candidates, all)
		report.PhaseDurations["associations"] = time.Since(t0)
		if err != nil {
			c.logger.Warn(ctx, "consolidate: association discovery phase failed, continuing", zap.Error(err))
		} else {
			report.AssociationsAdded = added
			report.Counts.Associated = len(candidates)
		}
	}

	if c.cfg.QualityEnabled {
		t0 = time.Now()
		scored, err := c.qualityPass(ctx, candidates, now)
		report.PhaseDurations["quality"] = time.Since(t0)
		if err != nil {
			c.logger.Warn(ctx, "consolidate: quality pass failed, continuing", zap.Error(err))
		}
		report.Counts.Scored = scored

		// Re-read candidates so retention/reporting see the scores just
		// written: the quality pass mutated the store, not our in-memory
		// slice.
		if refreshed, err := c.store.GetAllMemories(ctx, 0, 0); err == nil {
			candidates = intersectByHash(refreshed, candidates)
		}
	}

	if c.cfg.RetentionEnabled {
		t0 = time.Now()
		archived, err := c.retentionPass(ctx, candidates, now)
		report.PhaseDurations["retention"] = time.Since(t0)
		if err != nil {
			c.logger.Warn(ctx, "consolidate: retention pass failed, continuing", zap.Error(err))
		}
		report.Counts.Archived = len(archived)
		report.ArchivedHashes = archived
	}

	report.TopByScore, report.BottomByScore = buildScoreTables(candidates)
	report.CompletedAt = time.Now().UTC()

	path, err := writeReport(c.cfg.ReportsDir, report)
	if err != nil {
		return nil, fmt.Errorf("consolidate: writing report: %w", err)
	}
	c.logger.Info(ctx, "consolidate: pass completed",
		zap.String("run_id", report.RunID), zap.String("horizon", string(horizon)),
		zap.String("report_path", path), zap.Int("scanned", report.Counts.Scanned),
		zap.Int("archived", report.Counts.Archived))

	if err := c.publisher.Publish(ctx, report); err != nil {
		c.logger.Warn(ctx, "consolidate: report publish failed", zap.Error(err))
	}

	return report, nil
}

// Running reports whether a pass is currently in progress.
func (c *Consolidator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// intersectByHash returns the entries of refreshed whose ContentHash
// appears in candidates, preserving refreshed's (freshly read) field
// values.
func intersectByHash(refreshed, candidates []store.Memory) []store.Memory {
	want := make(map[string]struct{}, len(candidates))
	for _, m := range candidates {
		want[m.ContentHash] = struct{}{}
	}
	out := make([]store.Memory, 0, len(candidates))
	for _, m := range refreshed {
		if _, ok := want[m.ContentHash]; ok {
			out = append(out, m)
		}
	}
	return out
}
