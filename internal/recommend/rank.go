package recommend

import "sort"

// Ranked is one catalog entry selected by Rank.
type Ranked struct {
	Index int
	Score float64
}

// Rank fuses per-entry scores into (skills+titles)/2*experience and returns at most k entries
// with a positive score, best first. Equal scores keep catalog order. An empty result means
// nothing is relevant. All slices must have the same length.
func Rank(skills, titles, experience []float64, k int) []Ranked {
	if k <= 0 {
		return []Ranked{}
	}

	scored := make([]Ranked, 0, len(skills))
	for i := range skills {
		score := (skills[i] + titles[i]) / 2 * experience[i]
		if score > 0 {
			scored = append(scored, Ranked{Index: i, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
