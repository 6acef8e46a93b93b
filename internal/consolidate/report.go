package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fyrsmithlabs/memengine/internal/store"
)

const topBottomN = 10

// buildScoreTables populates the report's top/bottom-by-score tables from
// candidates carrying a quality score.
func buildScoreTables(candidates []store.Memory) (top, bottom []ScoreEntry) {
	scored := make([]ScoreEntry, 0, len(candidates))
	for _, m := range candidates {
		if s, ok := qualityScore(m); ok {
			scored = append(scored, ScoreEntry{ContentHash: m.ContentHash, Score: s})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	n := topBottomN
	if n > len(scored) {
		n = len(scored)
	}
	top = append(top, scored[:n]...)

	bottom = make([]ScoreEntry, n)
	copy(bottom, scored[len(scored)-n:])
	sort.Slice(bottom, func(i, j int) bool { return bottom[i].Score < bottom[j].Score })
	return top, bottom
}

// writeReport serializes report as JSON to
// <ReportsDir>/consolidation_<horizon>_<ISO8601>.json using a temp-file-
// then-rename so a reader never observes a partially written file.
// Per spec.md §4.8 phase 6 this is called only after every enabled phase
// has completed without aborting the pass.
func writeReport(reportsDir string, report *Report) (string, error) {
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}

	name := fmt.Sprintf("consolidation_%s_%s.json", report.Horizon, report.CompletedAt.Format("20060102T150405Z0700"))
	finalPath := filepath.Join(reportsDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling consolidation report: %w", err)
	}

	tmp, err := os.CreateTemp(reportsDir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp report file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming report into place: %w", err)
	}
	return finalPath, nil
}

// ReportPublisher optionally mirrors a completed report to an external
// sink. NoopPublisher (the default) does nothing, keeping the consolidator
// usable without any operator-supplied credentials.
type ReportPublisher interface {
	Publish(ctx context.Context, report *Report) error
}

// NoopPublisher implements ReportPublisher as a no-op.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Report) error { return nil }

var _ ReportPublisher = NoopPublisher{}
