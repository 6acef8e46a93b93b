package quality

// Provider selects which tier(s) of the fallback chain Evaluate tries.
type Provider string

const (
	// ProviderLocal tries the local cross-encoder then the local
	// classifier, skipping the remote tiers.
	ProviderLocal Provider = "local"
	// ProviderRemoteA tries only the first remote tier.
	ProviderRemoteA Provider = "remote_a"
	// ProviderRemoteB tries only the second remote tier.
	ProviderRemoteB Provider = "remote_b"
	// ProviderAuto tries every tier in order: cross-encoder, classifier,
	// remote A, remote B, then the implicit-only fallback.
	ProviderAuto Provider = "auto"
	// ProviderNone skips every AI tier; ai_component equals the implicit
	// fallback formula, collapsing the composite to implicit_component.
	ProviderNone Provider = "none"
)

// ImplicitMixer selects the formula used for the always-on implicit
// component.
type ImplicitMixerKind string

const (
	// MixerFormula is spec.md's exact fixed-weight formula
	// (0.4*freq + 0.3*recency + 0.3*rank_quality).
	MixerFormula ImplicitMixerKind = "formula"
	// MixerHybrid is the Beta-distribution blend of explicit/usage/outcome
	// signal classes, with per-project learned weights, adapted from
	// reasoningbank's ComputeConfidenceFromHybrid.
	MixerHybrid ImplicitMixerKind = "hybrid"
)

// Config configures an Evaluator. Field names follow spec.md §6's
// quality.* configuration keys.
type Config struct {
	SystemEnabled bool
	AIProvider    Provider
	LocalModel    string
	Device        string

	BoostEnabled bool
	BoostWeight  float64

	RetentionHigh    int
	RetentionMedium  int
	RetentionLowMin  int
	RetentionLowMax  int

	// FallbackEnabled turns on the threshold-based rescue mode between
	// the two local scorers (cross-encoder as primary, classifier as
	// rescue), instead of the single-tier chain.
	FallbackEnabled bool
	// DebertaThreshold is theta_1, the primary (cross-encoder) accept
	// threshold. Named for the deberta-family cross-encoder models this
	// tier stands in for.
	DebertaThreshold float64
	// MsmarcoThreshold is theta_2, the rescue (classifier) accept
	// threshold. Named for the ms-marco-family classifier models this
	// tier stands in for.
	MsmarcoThreshold float64

	ImplicitMixer ImplicitMixerKind

	// FRef and Tau parameterize the implicit formula's freq and recency
	// terms (spec.md §4.7).
	FRef float64
	Tau  float64

	// AIScoresCap bounds the length of the ai_scores history array
	// (spec.md open question 3, default 20).
	AIScoresCap int
}

// ApplyDefaults fills unset fields with spec.md's stated defaults.
func (c *Config) ApplyDefaults() {
	if c.AIProvider == "" {
		c.AIProvider = ProviderAuto
	}
	if c.BoostWeight == 0 {
		c.BoostWeight = 0.5
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
	if c.DebertaThreshold == 0 {
		c.DebertaThreshold = 0.75
	}
	if c.MsmarcoThreshold == 0 {
		c.MsmarcoThreshold = 0.6
	}
	if c.ImplicitMixer == "" {
		c.ImplicitMixer = MixerFormula
	}
	if c.FRef == 0 {
		c.FRef = 10
	}
	if c.Tau == 0 {
		c.Tau = 30 // days
	}
	if c.AIScoresCap == 0 {
		c.AIScoresCap = 20
	}
}
