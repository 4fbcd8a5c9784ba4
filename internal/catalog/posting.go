package catalog

import (
	"math"
	"regexp"
	"strconv"
)

const (
	PostingIDField        = "ID"
	PostingCompanyIDField = "CompanyID"
)

var digitRun = regexp.MustCompile(`\d+`)

// Posting is a single job posting of the catalog. It is never mutated after load.
type Posting struct {
	ID             string          `json:"job_id"`
	CompanyID      string          `json:"company_id"`
	Title          string          `json:"job_title"`
	KeySkills      string          `json:"key_skills"`
	ExperienceText string          `json:"job_experience"`
	Experience     ExperienceRange `json:"experience_range"`
}

// ExperienceRange is the years-of-experience requirement of a posting. Min <= Max.
type ExperienceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ParseExperience extracts the requirement range from free-form text such as "2 - 5 yrs".
// The first digit run is the minimum and the last one is the maximum. Text without digits
// means no requirement and yields [0, 0].
func ParseExperience(text string) ExperienceRange {
	runs := digitRun.FindAllString(text, -1)
	if len(runs) == 0 {
		return ExperienceRange{}
	}

	first := atoiSaturated(runs[0])
	last := atoiSaturated(runs[len(runs)-1])
	if first > last {
		first, last = last, first
	}

	return ExperienceRange{Min: first, Max: last}
}

func atoiSaturated(s string) int {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		// only ErrRange is possible for a digit run
		return math.MaxInt32
	}
	return int(n)
}

// GetStringField returns the value of a named identifier field, or "" for unknown names.
func (p *Posting) GetStringField(name string) string {
	switch name {
	case PostingIDField:
		return p.ID
	case PostingCompanyIDField:
		return p.CompanyID
	default:
		return ""
	}
}
