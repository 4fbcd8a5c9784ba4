package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-recommender/internal/catalog"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	got := Normalize([]float64{0.2, 0.6, 1.0})
	require.Len(t, got, 3)
	assert.InDelta(t, 0, got[0], 1e-12)
	assert.InDelta(t, 0.4/(0.8+NormalizationEpsilon), got[1], 1e-12)
	assert.InDelta(t, 0.8/(0.8+NormalizationEpsilon), got[2], 1e-12)
	assert.Less(t, got[2], 1.0)
}

func TestNormalizeEqualScores(t *testing.T) {
	t.Parallel()

	for _, raw := range [][]float64{{0, 0, 0}, {0.5, 0.5}, {1}} {
		for _, v := range Normalize(raw) {
			assert.InDelta(t, 0, v, 1e-9, "raw %v", raw)
		}
	}

	assert.Empty(t, Normalize(nil))
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	raw := []float64{0.1, 0.3}
	_ = Normalize(raw)
	assert.Equal(t, []float64{0.1, 0.3}, raw)
}

func TestExperienceScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate int
		r         catalog.ExperienceRange
		expect    float64
	}{
		{name: "inside", candidate: 3, r: catalog.ExperienceRange{Min: 2, Max: 5}, expect: 1},
		{name: "exactly min", candidate: 2, r: catalog.ExperienceRange{Min: 2, Max: 5}, expect: 1},
		{name: "exactly max", candidate: 5, r: catalog.ExperienceRange{Min: 2, Max: 5}, expect: 1},
		{name: "below min", candidate: 1, r: catalog.ExperienceRange{Min: 4, Max: 6}, expect: 0.25},
		{name: "far below min", candidate: 0, r: catalog.ExperienceRange{Min: 4, Max: 6}, expect: 0},
		{name: "above max", candidate: 8, r: catalog.ExperienceRange{Min: 2, Max: 6}, expect: 0.75},
		{name: "far above zero max", candidate: 10, r: catalog.ExperienceRange{}, expect: 0},
		{name: "no requirement and no experience", candidate: 0, r: catalog.ExperienceRange{}, expect: 1},
		{name: "zero min open floor", candidate: 1, r: catalog.ExperienceRange{Min: 0, Max: 3}, expect: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExperienceScore(tt.candidate, tt.r)
			assert.InDelta(t, tt.expect, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestExperienceScoreBounds(t *testing.T) {
	t.Parallel()

	for candidate := 0; candidate <= 30; candidate++ {
		for lo := 0; lo <= 10; lo++ {
			for hi := lo; hi <= 12; hi++ {
				got := ExperienceScore(candidate, catalog.ExperienceRange{Min: lo, Max: hi})
				require.GreaterOrEqual(t, got, 0.0)
				require.LessOrEqual(t, got, 1.0)
			}
		}
	}
}
