package consolidate

import (
	"context"
	"sort"
	"time"

	"github.com/fyrsmithlabs/memengine/internal/store"
)

// selectCandidates implements spec.md §4.8 phase 1: every memory whose
// updated_at falls inside the horizon window, plus a bounded tail of
// older memories sampled by lowest last_accessed_at.
func (c *Consolidator) selectCandidates(ctx context.Context, horizon Horizon, now time.Time) ([]store.Memory, []store.Memory, error) {
	all, err := c.store.GetAllMemories(ctx, 0, 0)
	if err != nil {
		return nil, nil, err
	}

	windowStart := now.Add(-horizon.window())
	var inWindow, outside []store.Memory
	for _, m := range all {
		if !m.UpdatedAtTime().Before(windowStart) {
			inWindow = append(inWindow, m)
		} else {
			outside = append(outside, m)
		}
	}

	sort.Slice(outside, func(i, j int) bool {
		return lastAccessedAt(outside[i]).Before(lastAccessedAt(outside[j]))
	})
	tailN := c.cfg.TailSampleSize
	if tailN > len(outside) {
		tailN = len(outside)
	}

	candidates := make([]store.Memory, 0, len(inWindow)+tailN)
	candidates = append(candidates, inWindow...)
	candidates = append(candidates, outside[:tailN]...)
	return candidates, all, nil
}

// lastAccessedAt reads a memory's last_accessed_at metadata, falling back
// to updated_at for memories never retrieved since being stored.
func lastAccessedAt(m store.Memory) time.Time {
	if v, ok := m.Metadata[store.MetaLastAccessedAt]; ok {
		if f, ok := asFloat(v); ok {
			return time.Unix(int64(f), 0).UTC()
		}
	}
	return m.UpdatedAtTime()
}

func accessCount(m store.Memory) int {
	if v, ok := m.Metadata[store.MetaAccessCount]; ok {
		if f, ok := asFloat(v); ok {
			return int(f)
		}
	}
	return 0
}

func qualityScore(m store.Memory) (float64, bool) {
	v, ok := m.Metadata[store.MetaQualityScore]
	if !ok {
		return 0, false
	}
	f, ok := asFloat(v)
	return f, ok
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
