package filtering

import (
	"context"
	"strings"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/recommend"
)

type companiesFilter struct {
	companies []string
}

// NewExcludedCompanies creates a filter that removes postings of the companies listed in the config.
func NewExcludedCompanies(companies []string) Filter {
	cleaned := make([]string, 0, len(companies))
	for _, c := range companies {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return &companiesFilter{companies: cleaned}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate() error { return nil }

func (f *companiesFilter) Apply(_ context.Context, recs *recommend.Recommendations) (*recommend.Recommendations, Step, error) {
	initial := recs.Len()
	if len(f.companies) == 0 {
		return recs, Step{Initial: initial, Dropped: 0, Left: recs.Len()}, nil
	}

	excluded := recs.Exclude(catalog.PostingCompanyIDField, f.companies)

	return recs, Step{Initial: initial, Dropped: len(excluded), Left: recs.Len()}, nil
}
