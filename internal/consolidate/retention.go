package consolidate

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memengine/internal/store"
)

// retentionPass implements spec.md §4.8 phase 4: for every candidate with
// a quality score, once it has been inactive longer than its tier's
// retention threshold, move it to the archive table. Candidates without a
// quality score yet are skipped — retention only acts once quality has an
// opinion.
func (c *Consolidator) retentionPass(ctx context.Context, candidates []store.Memory, now time.Time) ([]string, error) {
	if !c.cfg.RetentionEnabled {
		return nil, nil
	}

	var archived []string
	for _, cand := range candidates {
		score, ok := qualityScore(cand)
		if !ok {
			continue
		}
		thresholdDays := retentionDays(score, c.cfg)
		inactiveDays := now.Sub(lastAccessedAt(cand)).Hours() / 24
		if inactiveDays <= float64(thresholdDays) {
			continue
		}
		if err := c.store.Archive(ctx, cand.ContentHash); err != nil {
			c.logger.Warn(ctx, "consolidate: archiving memory failed, skipping",
				zap.String("hash", cand.ContentHash), zap.Error(err))
			continue
		}
		archived = append(archived, cand.ContentHash)
	}
	return archived, nil
}

// retentionDays maps a quality score to its retention window in days,
// per spec.md §4.8 phase 4's three tiers, linearly scaling the lowest tier
// between RetentionLowMin and RetentionLowMax.
func retentionDays(score float64, cfg Config) int {
	switch {
	case score >= 0.7:
		return cfg.RetentionHigh
	case score >= 0.5:
		return cfg.RetentionMedium
	default:
		frac := score / 0.5
		if frac < 0 {
			frac = 0
		}
		span := cfg.RetentionLowMax - cfg.RetentionLowMin
		return cfg.RetentionLowMin + int(math.Round(frac*float64(span)))
	}
}
