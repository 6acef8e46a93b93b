package quality

// AIScoreEntry is one historical evaluation appended to a memory's
// ai_scores metadata array (spec.md §3).
type AIScoreEntry struct {
	Score      float64            `json:"score"`
	Provider   string             `json:"provider"`
	Timestamp  float64            `json:"timestamp"` // unix epoch seconds
	Components map[string]float64 `json:"components,omitempty"`
}

// ToMetadata renders e as the plain map[string]interface{}/[]interface{}
// shape the local store's gob sidecar index already has concrete types
// registered for, so callers persisting ai_scores through
// store.UpdateMetadata never need a new gob.Register for this package.
func (e AIScoreEntry) ToMetadata() map[string]interface{} {
	components := make(map[string]interface{}, len(e.Components))
	for k, v := range e.Components {
		components[k] = v
	}
	return map[string]interface{}{
		"score":      e.Score,
		"provider":   e.Provider,
		"timestamp":  e.Timestamp,
		"components": components,
	}
}

// AppendAIScore appends entry (rendered via ToMetadata) to an existing
// ai_scores history read back from metadata, capping the result to the
// most recent cap entries (spec.md open question 3: the cap value is left
// to configuration; ai_scores itself is append-only but bounded).
func AppendAIScore(history []interface{}, entry AIScoreEntry, cap int) []interface{} {
	out := append(history, entry.ToMetadata())
	if cap > 0 && len(out) > cap {
		out = out[len(out)-cap:]
	}
	return out
}
