package recommend

import (
	"math"

	"github.com/spigell/job-recommender/internal/catalog"
)

// NormalizationEpsilon keeps min-max normalization finite when all raw scores are equal.
const NormalizationEpsilon = 1e-5

// Normalize rescales raw similarities with the min and max of this very sequence:
// (x - min) / (max - min + NormalizationEpsilon). A new slice is returned.
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	den := hi - lo + NormalizationEpsilon
	for i, v := range raw {
		out[i] = (v - lo) / den
	}
	return out
}

// ExperienceScore rates how well candidate years of experience fit a posting range.
// Inside the range (bounds included) the score is 1. Below the minimum it falls linearly with
// the deficit relative to the minimum, above the maximum with the surplus relative to the
// candidate experience. Both sides bottom out at 0. A zero minimum has no deficit to penalize.
func ExperienceScore(candidate int, r catalog.ExperienceRange) float64 {
	switch {
	case candidate < r.Min:
		if r.Min == 0 {
			return 1
		}
		return math.Max(0, 1-float64(r.Min-candidate)/float64(r.Min))
	case candidate > r.Max:
		return math.Max(0, 1-float64(candidate-r.Max)/float64(candidate))
	default:
		return 1
	}
}
