package recommend

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spigell/job-recommender/internal/catalog"
)

// Company is the employer data joined in from an external directory.
type Company struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Recommendation is a ranked posting together with its score breakdown.
type Recommendation struct {
	Posting          *catalog.Posting `json:"posting"`
	Score            float64          `json:"score"`
	SkillsSimilarity float64          `json:"skills_similarity"`
	TitleSimilarity  float64          `json:"title_similarity"`
	ExperienceScore  float64          `json:"experience_score"`
	Company          *Company         `json:"company,omitempty"`
	AI               *AIReview        `json:"ai,omitempty"`
}

// AIReview is an optional second opinion attached by the ai_fit filter.
type AIReview struct {
	Fit    bool    `json:"fit"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// CombinedSimilarity is the mean of the normalized skills and title similarities.
func (r *Recommendation) CombinedSimilarity() float64 {
	return (r.SkillsSimilarity + r.TitleSimilarity) / 2
}

func (r *Recommendation) CompanyName() string {
	if r.Company == nil {
		return ""
	}
	return r.Company.Name
}

// Recommendations is an ordered result list, best first.
type Recommendations struct {
	Items []*Recommendation
}

func (rs *Recommendations) Len() int {
	return len(rs.Items)
}

func (rs *Recommendations) FindByPostingID(id string) *Recommendation {
	for _, r := range rs.Items {
		if r.Posting.ID == id {
			return r
		}
	}
	return nil
}

func (rs *Recommendations) PostingIDs() []string {
	ids := make([]string, 0, len(rs.Items))
	for _, r := range rs.Items {
		ids = append(ids, r.Posting.ID)
	}
	return ids
}

// Truncate keeps at most k leading recommendations and returns how many were cut.
func (rs *Recommendations) Truncate(k int) int {
	if k < 0 {
		k = 0
	}
	if len(rs.Items) <= k {
		return 0
	}
	cut := len(rs.Items) - k
	for i := k; i < len(rs.Items); i++ {
		rs.Items[i] = nil
	}
	rs.Items = rs.Items[:k]
	return cut
}

// Exclude drops every recommendation whose posting field matches one of targets and returns
// the posting ids that were dropped. Ranking order is preserved.
func (rs *Recommendations) Exclude(field string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		drop[t] = struct{}{}
	}

	var excluded []string
	kept := rs.Items[:0]
	for _, r := range rs.Items {
		if _, ok := drop[r.Posting.GetStringField(field)]; ok {
			excluded = append(excluded, r.Posting.ID)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(rs.Items); i++ {
		rs.Items[i] = nil
	}
	rs.Items = kept

	return excluded
}

// ReportByCompany groups recommendations by company for a human-readable summary.
func (rs *Recommendations) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, r := range rs.Items {
		key := r.Posting.CompanyID
		if name := r.CompanyName(); name != "" {
			key = fmt.Sprintf("%s (%s)", name, r.Posting.CompanyID)
		}

		entry := map[string]string{
			"job_id":     r.Posting.ID,
			"title":      r.Posting.Title,
			"key_skills": r.Posting.KeySkills,
			"experience": r.Posting.ExperienceText,
			"score":      fmt.Sprintf("%.4f", r.Score),
		}
		if r.Company != nil && r.Company.Domain != "" {
			entry["domain"] = r.Company.Domain
		}
		if r.AI != nil {
			if r.AI.Error != "" {
				entry["ai_error"] = r.AI.Error
			} else {
				entry["ai_fit"] = fmt.Sprintf("%t", r.AI.Fit)
				entry["ai_score"] = fmt.Sprintf("%.2f", r.AI.Score)
				entry["ai_reason"] = r.AI.Reason
			}
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func (rs *Recommendations) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "recommendations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rs); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (rs *Recommendations) ToExcluded() *ExcludedPostings {
	excluded := &ExcludedPostings{}
	now := time.Now().UTC()
	for _, r := range rs.Items {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			ID:         r.Posting.ID,
			CompanyID:  r.Posting.CompanyID,
			Title:      r.Posting.Title,
			ExcludedAt: now,
		})
	}
	return excluded
}
