package filtering

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/recommend"
)

type aiFitFilter struct {
	enabled bool
	reason  string
	config  *AIFitFilterConfig
	deps    *AIFitFilterDeps
}

type AIFitFilterDeps struct {
	Logger      *zap.Logger
	Matcher     ai.Matcher
	Profile     *ai.Profile
	ExcludeFile string
}

type AIFitFilterConfig struct {
	Enabled         bool
	Provider        string
	MinimumFitScore float64
	Model           string
	// Limit stops reviewing once this many postings were approved. Zero reviews everything.
	Limit int
}

// NewAIFit creates the AI-based review step. Rejected postings are dropped and, when an
// exclude file is configured, remembered there.
func NewAIFit(cfg *AIFitFilterConfig, deps *AIFitFilterDeps) Filter {
	if cfg == nil {
		cfg = &AIFitFilterConfig{}
	}
	f := &aiFitFilter{enabled: cfg.Enabled, config: cfg, deps: deps}
	if !cfg.Enabled {
		f.reason = "ai.enabled is off"
	}
	return f
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return f.enabled }

func (f *aiFitFilter) Validate() error {
	if f.deps == nil || f.deps.Matcher == nil {
		return errors.New("ai matcher is not initialized: filter is not usable")
	}
	if f.deps.Profile == nil {
		return errors.New("candidate profile is required")
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, recs *recommend.Recommendations) (*recommend.Recommendations, Step, error) {
	log := logger.WithFields(f.deps.Logger)
	initial := recs.Len()
	approved := make([]*recommend.Recommendation, 0, initial)
	rejected := &recommend.Recommendations{}

	for i, r := range recs.Items {
		if f.config.Limit > 0 && len(approved) >= f.config.Limit {
			approved = append(approved, recs.Items[i:]...)
			break
		}
		if err := ctx.Err(); err != nil {
			return recs, Step{}, err
		}

		fields := logger.PostingFields(r.Posting.ID, r.Posting.CompanyID)

		assessment, err := f.deps.Matcher.Evaluate(ctx, f.deps.Profile, r.Posting)
		if err != nil {
			log.Warn("AI evaluation failed", append(fields, zap.Error(err))...)
			r.AI = &recommend.AIReview{Error: err.Error()}
			approved = append(approved, r)
			continue
		}

		r.AI = &recommend.AIReview{
			Fit:    assessment.Fit,
			Score:  assessment.Score,
			Reason: assessment.Reason,
		}

		if !assessment.Fit {
			log.Info("posting rejected by AI provider", append(fields,
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)...)
			rejected.Items = append(rejected.Items, r)
			continue
		}

		log.Debug("posting approved by AI", append(fields, zap.Float64("ai_score", assessment.Score))...)
		approved = append(approved, r)
	}

	recs.Items = approved

	if err := f.appendToExcludeFile(rejected); err != nil {
		log.Warn("failed to append rejected postings to exclude file", zap.Error(err))
	}

	return recs, Step{Initial: initial, Dropped: initial - recs.Len(), Left: recs.Len()}, nil
}

func (f *aiFitFilter) appendToExcludeFile(rejected *recommend.Recommendations) error {
	path := strings.TrimSpace(f.deps.ExcludeFile)
	if path == "" || rejected.Len() == 0 {
		return nil
	}

	excluded, err := recommend.GetExcludedPostingsFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		excluded, err = &recommend.ExcludedPostings{}, nil
	}
	if err != nil {
		return fmt.Errorf("load excluded postings: %w", err)
	}

	excluded.Append(rejected.ToExcluded())

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("write excluded postings: %w", err)
	}

	logger.WithFields(f.deps.Logger).Info("rejected postings appended to exclude file",
		zap.Strings("job_ids", rejected.PostingIDs()),
		zap.String("exclude_file", path),
	)
	return nil
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{
		"provider":          f.config.Provider,
		"model":             f.config.Model,
		"minimum_fit_score": strconv.FormatFloat(f.config.MinimumFitScore, 'f', 2, 64),
		"limit":             strconv.Itoa(f.config.Limit),
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
