package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	ColumnCompanyID  = "company id"
	ColumnJobID      = "job id"
	ColumnJobTitle   = "job title"
	ColumnKeySkills  = "key skills"
	ColumnExperience = "job experience"
)

var requiredColumns = []string{
	ColumnCompanyID,
	ColumnJobID,
	ColumnJobTitle,
	ColumnKeySkills,
	ColumnExperience,
}

// row mirrors one CSV record. Column names are matched case-insensitively.
type row struct {
	CompanyID  string `mapstructure:"company id"`
	JobID      string `mapstructure:"job id"`
	JobTitle   string `mapstructure:"job title"`
	KeySkills  string `mapstructure:"key skills"`
	Experience string `mapstructure:"job experience"`
}

// Catalog is the ordered, read-only set of postings loaded at startup.
type Catalog struct {
	source   string
	postings []*Posting
}

// Load reads the catalog from a CSV file.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer file.Close()

	return parse(path, file)
}

// Parse reads the catalog from CSV data with a header row.
func Parse(r io.Reader) (*Catalog, error) {
	return parse("reader", r)
}

// New builds a catalog from already constructed postings. The slice is copied.
func New(postings []*Posting) *Catalog {
	items := make([]*Posting, len(postings))
	copy(items, postings)
	return &Catalog{source: "memory", postings: items}
}

func parse(source string, r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Source: source, Err: errors.New("empty source: header row is missing")}
		}
		return nil, &LoadError{Source: source, Err: fmt.Errorf("read header: %w", err)}
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[i] = name
		present[name] = true
	}

	var missing []string
	for _, name := range requiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	var postings []*Posting
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Source: source, Err: err}
		}

		fields := make(map[string]any, len(columns))
		for i, name := range columns {
			fields[name] = strings.TrimSpace(record[i])
		}

		var raw row
		if err := mapstructure.Decode(fields, &raw); err != nil {
			return nil, &LoadError{Source: source, Err: fmt.Errorf("decode line %d: %w", line, err)}
		}

		postings = append(postings, &Posting{
			ID:             raw.JobID,
			CompanyID:      raw.CompanyID,
			Title:          raw.JobTitle,
			KeySkills:      raw.KeySkills,
			ExperienceText: raw.Experience,
			Experience:     ParseExperience(raw.Experience),
		})
	}

	return &Catalog{source: source, postings: postings}, nil
}

// Source names where the catalog was loaded from.
func (c *Catalog) Source() string {
	return c.source
}

func (c *Catalog) Len() int {
	return len(c.postings)
}

// At returns the posting at catalog position i.
func (c *Catalog) At(i int) *Posting {
	return c.postings[i]
}

// Postings returns the postings in catalog order. The returned slice may be modified freely.
func (c *Catalog) Postings() []*Posting {
	items := make([]*Posting, len(c.postings))
	copy(items, c.postings)
	return items
}

func (c *Catalog) FindByID(id string) *Posting {
	for _, p := range c.postings {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ByCompany returns all postings published by the company, in catalog order.
func (c *Catalog) ByCompany(companyID string) []*Posting {
	var out []*Posting
	for _, p := range c.postings {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out
}

// SkillsCorpus returns the key-skills text of every posting in catalog order.
func (c *Catalog) SkillsCorpus() []string {
	corpus := make([]string, len(c.postings))
	for i, p := range c.postings {
		corpus[i] = p.KeySkills
	}
	return corpus
}

// TitlesCorpus returns the job title of every posting in catalog order.
func (c *Catalog) TitlesCorpus() []string {
	corpus := make([]string, len(c.postings))
	for i, p := range c.postings {
		corpus[i] = p.Title
	}
	return corpus
}
