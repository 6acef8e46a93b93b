package quality

import "math"

// implicitFormula computes spec.md §4.7's fixed-weight implicit
// component: 0.4*freq + 0.3*recency + 0.3*rank_quality.
func implicitFormula(req ScoreRequest, fRef, tauDays float64) float64 {
	freq := float64(req.AccessCount) / fRef
	if freq > 1 {
		freq = 1
	}
	if freq < 0 {
		freq = 0
	}

	recency := 0.5
	if !req.LastAccessedAt.IsZero() && !req.Now.IsZero() && tauDays > 0 {
		deltaDays := req.Now.Sub(req.LastAccessedAt).Hours() / 24
		if deltaDays < 0 {
			deltaDays = 0
		}
		recency = math.Exp(-deltaDays / tauDays)
	}

	rankQuality := 0.5
	if len(req.RecentRanks) > 0 {
		sum := 0.0
		for _, r := range req.RecentRanks {
			sum += r
		}
		meanRank := sum / float64(len(req.RecentRanks))
		rankQuality = 1 - meanRank
	}

	return clamp01(0.4*freq + 0.3*recency + 0.3*rankQuality)
}
