package ai

import (
	"context"

	"github.com/spigell/job-recommender/internal/catalog"
)

// Profile is what the candidate told us about themselves.
type Profile struct {
	Skills     string `json:"skills"`
	Title      string `json:"title"`
	Experience int    `json:"experience_years"`
}

type FitAssessment struct {
	Fit    bool
	Score  float64
	Reason string
	Raw    string
}

type Matcher interface {
	Evaluate(ctx context.Context, profile *Profile, posting *catalog.Posting) (*FitAssessment, error)
}
