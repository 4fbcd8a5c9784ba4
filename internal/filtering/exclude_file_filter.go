package filtering

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/recommend"
)

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes postings listed in the exclude file.
// A missing file excludes nothing.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{path: path}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, recs *recommend.Recommendations) (*recommend.Recommendations, Step, error) {
	initial := recs.Len()
	if f.path == "" {
		return recs, Step{Initial: initial, Dropped: 0, Left: recs.Len()}, nil
	}

	excluded, err := recommend.GetExcludedPostingsFromFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return recs, Step{Initial: initial, Dropped: 0, Left: recs.Len()}, nil
	}
	if err != nil {
		return recs, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	removed := recs.Exclude(catalog.PostingIDField, excluded.PostingIDs())

	return recs, Step{Initial: initial, Dropped: len(removed), Left: recs.Len()}, nil
}
