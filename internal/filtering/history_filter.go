package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/store"
)

type historyFilter struct {
	enabled bool
	reason  string
	cfg     *HistoryConfig
	deps    *HistoryDeps
}

type HistoryConfig struct {
	ExcludeSeen bool
	Candidate   string
}

type HistoryDeps struct {
	Recorder store.Recorder
	Logger   *zap.Logger
}

// NewHistory creates a filter that removes postings already recommended to the candidate.
func NewHistory(cfg *HistoryConfig, deps *HistoryDeps) Filter {
	if cfg == nil {
		cfg = &HistoryConfig{}
	}

	f := &historyFilter{enabled: cfg.ExcludeSeen, cfg: cfg, deps: deps}
	switch {
	case !cfg.ExcludeSeen:
		f.reason = "history.exclude-seen is off"
	case cfg.Candidate == "":
		f.Disable("no candidate given")
	}
	return f
}

func (f *historyFilter) Name() string { return "history" }

func (f *historyFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *historyFilter) IsEnabled() bool { return f.enabled }

func (f *historyFilter) Validate() error {
	if f.deps == nil || f.deps.Recorder == nil {
		return fmt.Errorf("history store is required")
	}
	return nil
}

// Apply drops seen postings. A store failure is logged and leaves the list as it is.
func (f *historyFilter) Apply(ctx context.Context, recs *recommend.Recommendations) (*recommend.Recommendations, Step, error) {
	log := logger.WithFields(f.deps.Logger, zap.String("candidate", f.cfg.Candidate))
	initial := recs.Len()

	seen, err := f.deps.Recorder.Seen(ctx, f.cfg.Candidate)
	if err != nil {
		log.Warn("reading recommendation history failed, nothing excluded", zap.Error(err))
		return recs, Step{Initial: initial, Dropped: 0, Left: recs.Len()}, nil
	}

	excluded := recs.Exclude(catalog.PostingIDField, seen)
	if len(excluded) > 0 {
		log.Info("excluding postings recommended before",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", recs.Len()),
		)
	}

	return recs, Step{Initial: initial, Dropped: len(excluded), Left: recs.Len()}, nil
}

func (f *historyFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{
			"exclude_seen": strconv.FormatBool(f.cfg.ExcludeSeen),
			"candidate":    f.cfg.Candidate,
		},
	}
}
