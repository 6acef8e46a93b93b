// Package schedule implements C9: a cron-like scheduler that triggers
// C8 consolidation passes per horizon and exposes status/pause/resume.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/logging"
)

// Scheduler is C9. Grounded on the teacher's ConsolidationScheduler
// (internal/reasoningbank/scheduler.go): a mutex-guarded running/paused
// state plus a panic-recovered background trigger, generalized from one
// fixed interval to five independently cron-scheduled horizons via
// robfig/cron.
type Scheduler struct {
	cron         *cron.Cron
	consolidator *consolidate.Consolidator
	cfg          Config
	logger       *logging.Logger
	metrics      *metrics

	mu        sync.Mutex
	paused    map[consolidate.Horizon]bool
	lastRunAt map[consolidate.Horizon]time.Time
	lastError map[consolidate.Horizon]string
	started   bool
}

// New constructs a Scheduler. queueDepthFn, typically
// syncEngine.SyncStatus().QueueDepth wrapped in a closure, may be nil.
func New(consolidator *consolidate.Consolidator, cfg Config, logger *logging.Logger, queueDepthFn func() int) *Scheduler {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cron:         cron.New(),
		consolidator: consolidator,
		cfg:          cfg,
		logger:       logger,
		metrics:      newMetrics(queueDepthFn),
		paused:       make(map[consolidate.Horizon]bool),
		lastRunAt:    make(map[consolidate.Horizon]time.Time),
		lastError:    make(map[consolidate.Horizon]string),
	}
}

// Start registers a cron entry for every enabled horizon and starts the
// background ticker. Idempotent: calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	for _, h := range horizons() {
		expr, enabled := s.cfg.exprFor(h)
		if !enabled {
			continue
		}
		horizon := h
		if err := s.cron.AddFunc(expr, func() { s.safeTriggerFromCron(ctx, horizon) }); err != nil {
			return fmt.Errorf("schedule: invalid cron expression %q for %s: %w", expr, horizon, err)
		}
	}
	s.cron.Start()
	s.started = true
	s.logger.Info(ctx, "scheduler started")
	return nil
}

// Stop halts the cron ticker. Any in-progress consolidation pass is left
// to finish; Stop does not cancel it.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.cron.Stop()
	s.started = false
	return nil
}

// safeTriggerFromCron wraps a cron-driven trigger with panic recovery,
// mirroring the teacher's safeRunConsolidation idiom, and silently skips a
// paused horizon instead of surfacing AlreadyRunning to nobody.
func (s *Scheduler) safeTriggerFromCron(ctx context.Context, horizon consolidate.Horizon) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "scheduler: consolidation trigger panicked, recovering",
				zap.String("horizon", string(horizon)), zap.Any("panic", r))
		}
	}()

	s.mu.Lock()
	paused := s.paused[horizon]
	s.mu.Unlock()
	if paused {
		s.logger.Debug(ctx, "scheduler: horizon paused, skipping scheduled run", zap.String("horizon", string(horizon)))
		return
	}
	if _, err := s.Trigger(ctx, horizon, true); err != nil {
		s.logger.Warn(ctx, "scheduler: scheduled consolidation run failed",
			zap.String("horizon", string(horizon)), zap.Error(err))
	}
}

// Trigger runs horizon's consolidation pass. If immediate is true, Trigger
// blocks until the pass completes and returns its report. If false, the
// pass runs in a background goroutine and Trigger returns (nil, nil)
// immediately. A pass already running (on this or another horizon, since
// one Consolidator runs one pass at a time) rejects with
// errs.ErrAlreadyRunning.
func (s *Scheduler) Trigger(ctx context.Context, horizon consolidate.Horizon, immediate bool) (*consolidate.Report, error) {
	s.mu.Lock()
	if s.paused[horizon] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: horizon %s is paused", errs.ErrInvalidArgument, horizon)
	}
	s.mu.Unlock()

	run := func() (*consolidate.Report, error) {
		started := time.Now()
		report, err := s.consolidator.Run(ctx, horizon)
		s.mu.Lock()
		s.lastRunAt[horizon] = started
		if err != nil {
			s.lastError[horizon] = err.Error()
		} else {
			s.lastError[horizon] = ""
			s.metrics.recordRun(string(horizon), time.Since(started).Seconds(), report.Counts.Scanned, report.Counts.Archived)
		}
		s.mu.Unlock()
		return report, err
	}

	if immediate {
		return run()
	}
	go func() { _, _ = run() }()
	return nil, nil
}

// Pause stops a horizon (or, if horizon is "", every horizon) from firing
// on its cron schedule. Already-running passes are unaffected.
func (s *Scheduler) Pause(horizon consolidate.Horizon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if horizon == "" {
		for _, h := range horizons() {
			s.paused[h] = true
		}
		return nil
	}
	s.paused[horizon] = true
	return nil
}

// Resume re-enables a horizon (or every horizon, if horizon is "").
func (s *Scheduler) Resume(horizon consolidate.Horizon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if horizon == "" {
		for _, h := range horizons() {
			s.paused[h] = false
		}
		return nil
	}
	s.paused[horizon] = false
	return nil
}

// Status reports the current schedule, pause state, and last-run outcome
// for every horizon.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Status{Horizons: make([]HorizonStatus, 0, len(horizons()))}
	for _, h := range horizons() {
		expr, enabled := s.cfg.exprFor(h)
		out.Horizons = append(out.Horizons, HorizonStatus{
			Horizon:     h,
			Enabled:     enabled,
			Paused:      s.paused[h],
			Running:     s.consolidator.Running(),
			LastRunAt:   s.lastRunAt[h],
			LastError:   s.lastError[h],
			NextRunExpr: expr,
		})
	}
	return out
}
