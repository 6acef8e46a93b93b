package consolidate

import "time"

// Config configures a Consolidator's phase behavior, thresholds, and
// retention tiers (spec.md §4.8).
type Config struct {
	ReportsDir string

	AssociationsEnabled bool
	QualityEnabled      bool
	RetentionEnabled    bool
	DecayEnabled        bool

	// TauAssoc is the minimum embedding cosine similarity for an
	// embedding_proximity association.
	TauAssoc float64
	// TauTag is the minimum tag-Jaccard for a co_tag association.
	TauTag float64
	// TopK bounds how many nearest neighbors are considered per candidate
	// during association discovery.
	TopK int

	// TailSampleSize bounds how many older memories (outside the horizon
	// window, sampled by lowest last_accessed_at) are pulled in as
	// additional candidates per spec.md §4.8 phase 1.
	TailSampleSize int

	// SRefresh is the quality-score staleness window: candidates with a
	// quality score newer than this are skipped by the quality pass.
	SRefresh time.Duration

	// RetentionHigh/Medium/LowMin/LowMax are retention days per quality
	// tier (spec.md §4.8 phase 4 defaults: 365, 180, 30, 90).
	RetentionHigh   int
	RetentionMedium int
	RetentionLowMin int
	RetentionLowMax int

	// AIScoresCap bounds the ai_scores history array length.
	AIScoresCap int

	// MaxConcurrency bounds fan-out during association discovery and the
	// quality pass.
	MaxConcurrency int
}

// DefaultConfig returns a Config with every phase enabled and spec.md's
// stated threshold/retention defaults applied. Callers disable individual
// phases (e.g. Non-goal deployments that skip decay weighting) by flipping
// the relevant *Enabled field afterward.
func DefaultConfig() Config {
	c := Config{
		AssociationsEnabled: true,
		QualityEnabled:      true,
		RetentionEnabled:    true,
		DecayEnabled:        true,
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset numeric/string fields with spec.md's stated
// defaults. It never touches the four *Enabled switches, since their zero
// value (false) is a legitimate explicit choice, not "unset".
func (c *Config) ApplyDefaults() {
	if c.ReportsDir == "" {
		c.ReportsDir = "reports"
	}
	if c.TauAssoc == 0 {
		c.TauAssoc = 0.85
	}
	if c.TauTag == 0 {
		c.TauTag = 0.3
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.TailSampleSize == 0 {
		c.TailSampleSize = 200
	}
	if c.SRefresh == 0 {
		c.SRefresh = 7 * 24 * time.Hour
	}
	if c.RetentionHigh == 0 {
		c.RetentionHigh = 365
	}
	if c.RetentionMedium == 0 {
		c.RetentionMedium = 180
	}
	if c.RetentionLowMin == 0 {
		c.RetentionLowMin = 30
	}
	if c.RetentionLowMax == 0 {
		c.RetentionLowMax = 90
	}
	if c.AIScoresCap == 0 {
		c.AIScoresCap = 20
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 8
	}
}
