package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spigell/job-recommender/internal/recommend"
)

const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ErrUnknownCandidate is returned when a candidate has no profile in the backing store.
var ErrUnknownCandidate = errors.New("unknown candidate")

// Recorder remembers which postings were recommended to which candidate.
// Record must not insert the same (candidate, job, company) twice.
type Recorder interface {
	Record(ctx context.Context, candidate string, recs *recommend.Recommendations) (int, error)
	Seen(ctx context.Context, candidate string) ([]string, error)
}

// Directory resolves company details by company identifier.
type Directory interface {
	Companies(ctx context.Context, ids []string) (map[string]recommend.Company, error)
}

// Nop records nothing and has seen nothing.
type Nop struct{}

func (Nop) Record(context.Context, string, *recommend.Recommendations) (int, error) {
	return 0, nil
}

func (Nop) Seen(context.Context, string) ([]string, error) {
	return nil, nil
}

// StaticDirectory is a fixed company list, usually taken from the config file.
type StaticDirectory map[string]recommend.Company

func (d StaticDirectory) Companies(_ context.Context, ids []string) (map[string]recommend.Company, error) {
	found := make(map[string]recommend.Company, len(ids))
	for _, id := range ids {
		if c, ok := d[id]; ok {
			if c.ID == "" {
				c.ID = id
			}
			found[id] = c
		}
	}
	return found, nil
}

// JoinCompanies attaches company details to every recommendation the directory knows about.
// Recommendations are left untouched on error.
func JoinCompanies(ctx context.Context, dir Directory, recs *recommend.Recommendations) error {
	if dir == nil || recs.Len() == 0 {
		return nil
	}

	companies, err := dir.Companies(ctx, companyIDs(recs))
	if err != nil {
		return fmt.Errorf("lookup companies: %w", err)
	}

	for _, r := range recs.Items {
		if c, ok := companies[r.Posting.CompanyID]; ok {
			company := c
			r.Company = &company
		}
	}
	return nil
}

func companyIDs(recs *recommend.Recommendations) []string {
	seen := make(map[string]struct{}, recs.Len())
	for _, r := range recs.Items {
		if r.Posting.CompanyID == "" {
			continue
		}
		seen[r.Posting.CompanyID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
