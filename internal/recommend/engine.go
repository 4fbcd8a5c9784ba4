package recommend

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/textindex"
)

// DefaultTopK is the number of recommendations returned when no limit is configured.
const DefaultTopK = 10

// Query is what a candidate is looking for.
type Query struct {
	Skills     string `json:"skills"`
	Title      string `json:"title"`
	Experience int    `json:"experience"`
}

// Engine holds the catalog and both term indexes. It is built once at startup and shared by
// every request; Recommend never mutates it.
type Engine struct {
	catalog *catalog.Catalog
	skills  *textindex.Index
	titles  *textindex.Index
	topK    int
	logger  *zap.Logger
}

// New indexes the catalog skills and titles. topK <= 0 falls back to DefaultTopK.
func New(c *catalog.Catalog, log *zap.Logger, topK int) *Engine {
	log = logger.WithFields(log)
	if topK <= 0 {
		topK = DefaultTopK
	}

	started := time.Now()
	e := &Engine{
		catalog: c,
		skills:  textindex.Build(c.SkillsCorpus()),
		titles:  textindex.Build(c.TitlesCorpus()),
		topK:    topK,
		logger:  log,
	}

	log.Info("recommendation engine is ready",
		zap.Int("postings", c.Len()),
		zap.Int("skills_vocabulary", e.skills.VocabularySize()),
		zap.Int("titles_vocabulary", e.titles.VocabularySize()),
		zap.Int("top_k", topK),
		zap.Duration("took", time.Since(started)),
	)

	return e
}

func (e *Engine) TopK() int {
	return e.topK
}

// Recommend ranks the catalog against the query and keeps the best TopK entries.
// An empty result is not an error.
func (e *Engine) Recommend(q Query) *Recommendations {
	return e.rank(q, e.topK)
}

// RecommendAll returns every posting with a positive score, best first. Callers that drop
// entries afterwards (filters) cut the list to TopK with Truncate once they are done.
func (e *Engine) RecommendAll(q Query) *Recommendations {
	return e.rank(q, e.catalog.Len())
}

func (e *Engine) rank(q Query, k int) *Recommendations {
	q = q.normalized()

	skillsRaw := e.skills.Similarities(q.Skills)
	titlesRaw := e.titles.Similarities(q.Title)

	skills := Normalize(skillsRaw)
	titles := Normalize(titlesRaw)

	experience := make([]float64, e.catalog.Len())
	for i := range experience {
		experience[i] = ExperienceScore(q.Experience, e.catalog.At(i).Experience)
	}

	ranked := Rank(skills, titles, experience, k)

	result := &Recommendations{Items: make([]*Recommendation, 0, len(ranked))}
	for _, r := range ranked {
		result.Items = append(result.Items, &Recommendation{
			Posting:          e.catalog.At(r.Index),
			Score:            r.Score,
			SkillsSimilarity: skills[r.Index],
			TitleSimilarity:  titles[r.Index],
			ExperienceScore:  experience[r.Index],
		})
	}

	e.logger.Debug("recommendation computed",
		append(logger.QueryFields(q.Skills, q.Title, q.Experience),
			zap.Int("results", result.Len()),
		)...,
	)

	return result
}

func (q Query) normalized() Query {
	q.Skills = strings.TrimSpace(q.Skills)
	q.Title = strings.TrimSpace(q.Title)
	if q.Experience < 0 {
		q.Experience = 0
	}
	return q
}
