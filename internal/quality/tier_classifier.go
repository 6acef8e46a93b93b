package quality

import (
	"context"
	"math"
	"strings"
)

// ClassifierTier is spec.md §4.7 tier 2: a local absolute classifier
// that needs no query, making it the preferred tier for ingest-time and
// consolidation-time scoring. It never declares itself unavailable.
//
// Lacking a trained 3-class checkpoint in the pack, class probabilities
// are derived from a small set of lexical features (length, specificity
// markers, sentence structure) combined through a fixed linear scorer
// and a softmax, in place of a neural classifier's logits. This keeps
// the tier's documented contract — score = 0*P_low + 0.5*P_med +
// 1*P_high — intact and independently swappable for a real checkpoint
// later without touching the chain.
type ClassifierTier struct{}

// NewClassifierTier constructs a ClassifierTier.
func NewClassifierTier() *ClassifierTier { return &ClassifierTier{} }

func (t *ClassifierTier) Name() string { return "local_classifier" }

func (t *ClassifierTier) Score(_ context.Context, req ScoreRequest) (float64, error) {
	lowLogit, medLogit, highLogit := classifierLogits(req.Content)
	pLow, pMed, pHigh := softmax3(lowLogit, medLogit, highLogit)
	return clamp01(0*pLow + 0.5*pMed + 1.0*pHigh), nil
}

// classifierLogits derives unnormalized class scores from lexical
// features of content: longer, more structured, more specific text
// scores toward "high"; very short or low-information text scores
// toward "low".
func classifierLogits(content string) (low, med, high float64) {
	trimmed := strings.TrimSpace(content)
	words := strings.Fields(trimmed)
	wordCount := float64(len(words))

	digitCount := 0
	upperCount := 0
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digitCount++
		case r >= 'A' && r <= 'Z':
			upperCount++
		}
	}
	specificity := float64(digitCount+upperCount) / math.Max(1, float64(len(trimmed)))

	sentenceCount := strings.Count(trimmed, ".") + strings.Count(trimmed, "!") + strings.Count(trimmed, "?")

	lengthScore := math.Min(wordCount/40, 1.0) // saturates around 40 words
	structureScore := math.Min(float64(sentenceCount)/3, 1.0)

	high = 2*lengthScore + 1.5*structureScore + 3*specificity
	med = 1.0
	low = 2 * (1 - lengthScore)
	return low, med, high
}

func softmax3(a, b, c float64) (pa, pb, pc float64) {
	m := math.Max(a, math.Max(b, c))
	ea, eb, ec := math.Exp(a-m), math.Exp(b-m), math.Exp(c-m)
	sum := ea + eb + ec
	if sum == 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	return ea / sum, eb / sum, ec / sum
}

var _ Tier = (*ClassifierTier)(nil)
