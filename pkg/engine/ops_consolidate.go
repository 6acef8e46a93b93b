package engine

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/schedule"
)

// MemoryConsolidate is memory_consolidate: the control surface over C8/C9
// (run a pass, read status, recommend a horizon, inspect/pause/resume the
// scheduler).
func (e *Engine) MemoryConsolidate(ctx context.Context, req ConsolidateRequest) (ConsolidateResponse, error) {
	if !e.cfg.ConsolidationEnabled || e.scheduler == nil {
		return ConsolidateResponse{}, fmt.Errorf("%w: consolidation.enabled is false", errs.ErrInvalidArgument)
	}

	switch req.Action {
	case ConsolidateRun:
		horizon, err := parseHorizon(req.TimeHorizon)
		if err != nil {
			return ConsolidateResponse{}, err
		}
		report, err := e.scheduler.Trigger(ctx, horizon, req.Immediate)
		if err != nil {
			return ConsolidateResponse{}, err
		}
		return ConsolidateResponse{Report: toConsolidateReport(report)}, nil
	case ConsolidateStatus, ConsolidateScheduler:
		return ConsolidateResponse{Status: toConsolidateStatus(e.scheduler.Status())}, nil
	case ConsolidateRecommend:
		rec, err := recommendHorizon(e.scheduler.Status())
		return ConsolidateResponse{Recommendation: rec}, err
	case ConsolidatePause:
		horizon, err := parseOptionalHorizon(req.TimeHorizon)
		if err != nil {
			return ConsolidateResponse{}, err
		}
		return ConsolidateResponse{}, e.scheduler.Pause(horizon)
	case ConsolidateResume:
		horizon, err := parseOptionalHorizon(req.TimeHorizon)
		if err != nil {
			return ConsolidateResponse{}, err
		}
		return ConsolidateResponse{}, e.scheduler.Resume(horizon)
	default:
		return ConsolidateResponse{}, fmt.Errorf("%w: unknown consolidate action %q", errs.ErrInvalidArgument, req.Action)
	}
}

// MemoryCleanup is memory_cleanup: spec.md §3's content-addressing
// invariant already guarantees no duplicate content_hash can exist, so
// there is nothing for a separate dedup pass to remove; this answers
// legacy callers with a no-op result rather than scanning for impossible
// duplicates.
func (e *Engine) MemoryCleanup(ctx context.Context) (CleanupResponse, error) {
	return CleanupResponse{Removed: 0}, nil
}

func parseHorizon(s string) (consolidate.Horizon, error) {
	if s == "" {
		return consolidate.HorizonDaily, nil
	}
	return parseOptionalHorizon(s)
}

// parseOptionalHorizon treats "" as "every horizon" (valid for
// Pause/Resume, which the scheduler itself interprets that way) rather
// than defaulting to daily.
func parseOptionalHorizon(s string) (consolidate.Horizon, error) {
	switch consolidate.Horizon(s) {
	case "", consolidate.HorizonDaily, consolidate.HorizonWeekly, consolidate.HorizonMonthly, consolidate.HorizonQuarterly, consolidate.HorizonYearly:
		return consolidate.Horizon(s), nil
	default:
		return "", fmt.Errorf("%w: unknown time_horizon %q", errs.ErrInvalidArgument, s)
	}
}

func toConsolidateReport(r *consolidate.Report) *ConsolidateReport {
	if r == nil {
		return nil
	}
	return &ConsolidateReport{
		Horizon:           string(r.Horizon),
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
		Scanned:           r.Counts.Scanned,
		Associated:        r.Counts.Associated,
		Scored:            r.Counts.Scored,
		Archived:          r.Counts.Archived,
		AssociationsAdded: r.AssociationsAdded,
		ArchivedHashes:    r.ArchivedHashes,
	}
}

func toConsolidateStatus(s schedule.Status) *ConsolidateStatus {
	out := &ConsolidateStatus{Horizons: make([]HorizonStatus, 0, len(s.Horizons))}
	for _, h := range s.Horizons {
		out.Horizons = append(out.Horizons, HorizonStatus{
			Horizon:     string(h.Horizon),
			Enabled:     h.Enabled,
			Paused:      h.Paused,
			Running:     h.Running,
			LastRunAt:   h.LastRunAt,
			LastError:   h.LastError,
			NextRunExpr: h.NextRunExpr,
		})
	}
	return out
}

// recommendHorizon picks the coarsest enabled horizon that has never run
// (so a first-time caller consolidates broadly) or, once every enabled
// horizon has run at least once, the one with the oldest last run (so the
// most overdue horizon is recommended next).
func recommendHorizon(s schedule.Status) (string, error) {
	var best *schedule.HorizonStatus
	// s.Horizons runs finest (daily) to coarsest (yearly); walk it backwards.
	for i := len(s.Horizons) - 1; i >= 0; i-- {
		h := &s.Horizons[i]
		if !h.Enabled {
			continue
		}
		if h.LastRunAt.IsZero() {
			return string(h.Horizon), nil
		}
		if best == nil || h.LastRunAt.Before(best.LastRunAt) {
			best = h
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w: no horizon is enabled", errs.ErrInvalidArgument)
	}
	return string(best.Horizon), nil
}
