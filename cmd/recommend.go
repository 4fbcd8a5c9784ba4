package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/ai/gemini"
	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/secrets"
	"github.com/spigell/job-recommender/internal/store"
)

const (
	PromptDone                = "Done"
	PromptReportByCompany     = "Report by company"
	PromptDumpToFile          = "Dump recommendations to file"
	PromptAppendToExcludeFile = "Append all recommendations to exclude file"

	noRecommendationsMsg = "No recommendations found!"
)

var errExit = errors.New("exit requested")

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend job postings for a candidate",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("skills", "s", "", "candidate skills, free text")
	recommendCmd.Flags().StringP("title", "t", "", "desired job title")
	recommendCmd.Flags().IntP("experience", "x", 0, "years of experience")
	recommendCmd.Flags().String("candidate", "", "candidate username used for the recommendation history")
	recommendCmd.Flags().BoolP("auto-approve", "y", false, "do not prompt: use flags as given and skip the action menu")
	recommendCmd.Flags().IntP("top-k", "k", 0, "maximum number of recommendations (default 10)")
	recommendCmd.Flags().StringP("exclude-file", "e", "", "file with postings to exclude. Default is unset.")

	viper.BindPFlag("top-k", recommendCmd.Flags().Lookup("top-k"))
	viper.BindPFlag("exclude-file", recommendCmd.Flags().Lookup("exclude-file"))
}

func runRecommend(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-recommender", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	cat, err := catalog.Load(config.Catalog)
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}

	engine := recommend.New(cat, logger, config.TopK)

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	query, err := readQuery(cmd, !autoApprove)
	if err != nil {
		logger.Fatal("reading the query", zap.Error(err))
	}
	candidate, _ := cmd.Flags().GetString("candidate")
	candidate = strings.TrimSpace(candidate)

	backend := openStoreOrFallback(config, logger)
	defer backend.Close()

	// Filters see every relevant posting so that dropping seen or excluded ones still
	// leaves up to TopK results.
	recs := engine.RecommendAll(query)

	filters := prepareFilters(ctx, config, backend.recorder, query, candidate, engine.TopK(), logger)
	recs, err = filters.RunFilters(ctx, recs)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}
	recs.Truncate(engine.TopK())

	out := cmd.OutOrStdout()
	if err := deliver(ctx, out, backend, candidate, recs, logger); err != nil {
		logger.Fatal("printing recommendations", zap.Error(err))
	}

	if recs.Len() == 0 {
		return
	}

	if autoApprove {
		return
	}

	for {
		items := []string{PromptDone, PromptReportByCompany, PromptDumpToFile}
		if config.ExcludeFile != "" {
			items = append(items, PromptAppendToExcludeFile)
		}

		prompt := promptui.Select{Label: "What next?", Items: items}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, out, logger, config, recs); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// deliver attaches company details, records the recommendations for the candidate and
// prints them. Collaborator failures are logged; the ranked list is printed regardless.
func deliver(ctx context.Context, out io.Writer, backend *historyBackend, candidate string, recs *recommend.Recommendations, logger *zap.Logger) error {
	if err := store.JoinCompanies(ctx, backend.directory, recs); err != nil {
		logger.Warn("company details are not available", zap.Error(err))
	}

	if candidate != "" && recs.Len() > 0 {
		inserted, err := backend.recorder.Record(ctx, candidate, recs)
		if err != nil {
			logger.Warn("recording recommendations failed", zap.String("candidate", candidate), zap.Error(err))
		} else {
			logger.Info("recommendations recorded", zap.String("candidate", candidate), zap.Int("new", inserted))
		}
	}

	if recs.Len() == 0 {
		_, err := fmt.Fprintln(out, noRecommendationsMsg)
		return err
	}

	return printRecommendations(out, recs)
}

func handleAction(action string, out io.Writer, logger *zap.Logger, config *Config, recs *recommend.Recommendations) error {
	switch action {
	case PromptDone:
		return errExit
	case PromptReportByCompany:
		pretty, err := json.MarshalIndent(recs.ReportByCompany(), "", "  ")
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}
		fmt.Fprintln(out, string(pretty))
		return nil
	case PromptDumpToFile:
		filename, err := recs.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(config.ExcludeFile, recs, logger)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToExcludeFile(path string, recs *recommend.Recommendations, logger *zap.Logger) error {
	if path == "" {
		return errors.New("exclude file is not configured")
	}

	excluded, err := recommend.GetExcludedPostingsFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		excluded, err = &recommend.ExcludedPostings{}, nil
	}
	if err != nil {
		return err
	}

	excluded.Append(recs.ToExcluded())
	if err := excluded.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", path), zap.Int("count", recs.Len()))
	return nil
}

// readQuery takes the query from flags and asks for whatever is missing when interactive.
func readQuery(cmd *cobra.Command, interactive bool) (recommend.Query, error) {
	skills, _ := cmd.Flags().GetString("skills")
	title, _ := cmd.Flags().GetString("title")
	experience, _ := cmd.Flags().GetInt("experience")

	q := recommend.Query{Skills: skills, Title: title, Experience: experience}
	if !interactive {
		return q, nil
	}

	var err error
	if strings.TrimSpace(q.Skills) == "" {
		if q.Skills, err = (&promptui.Prompt{Label: "Skills"}).Run(); err != nil {
			return q, err
		}
	}
	if strings.TrimSpace(q.Title) == "" {
		if q.Title, err = (&promptui.Prompt{Label: "Desired job title"}).Run(); err != nil {
			return q, err
		}
	}
	if !cmd.Flags().Changed("experience") {
		raw, err := (&promptui.Prompt{Label: "Years of experience", Default: "0", Validate: validateExperience}).Run()
		if err != nil {
			return q, err
		}
		q.Experience, _ = strconv.Atoi(strings.TrimSpace(raw))
	}

	return q, nil
}

func validateExperience(input string) error {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return errors.New("experience must be a whole number of years")
	}
	if n < 0 {
		return errors.New("experience must not be negative")
	}
	return nil
}

func printRecommendations(out io.Writer, recs *recommend.Recommendations) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tJOB ID\tCOMPANY\tTITLE\tKEY SKILLS\tEXPERIENCE\tSCORE")
	for i, r := range recs.Items {
		company := r.Posting.CompanyID
		if name := r.CompanyName(); name != "" {
			company = name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%.4f\n",
			i+1, r.Posting.ID, company, r.Posting.Title, r.Posting.KeySkills, r.Posting.ExperienceText, r.Score)
	}
	return w.Flush()
}

type historyBackend struct {
	recorder  store.Recorder
	directory store.Directory
	close     func() error
}

func (b *historyBackend) Close() {
	if b.close != nil {
		_ = b.close()
	}
}

// openStoreOrFallback opens the configured history backend. When that fails the run goes on
// without history and with the company list from the config.
func openStoreOrFallback(config *Config, logger *zap.Logger) *historyBackend {
	backend, err := openStore(config, logger)
	if err != nil {
		logger.Warn("history store is not available, recommendations will not be recorded", zap.Error(err))
		return &historyBackend{recorder: store.Nop{}, directory: staticDirectory(config.Companies)}
	}
	return backend
}

// openStore picks the history recorder and company directory for the configured backend.
// Only the postgres backend has its own company table; the others use the config list.
func openStore(config *Config, logger *zap.Logger) (*historyBackend, error) {
	cfg := config.History
	static := staticDirectory(config.Companies)

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", store.BackendNone:
		return &historyBackend{recorder: store.Nop{}, directory: static}, nil
	case store.BackendFile:
		fs, err := store.NewFileStore(cfg.File)
		if err != nil {
			return nil, err
		}
		logger.Debug("using history file", zap.String("path", fs.Path()))
		return &historyBackend{recorder: fs, directory: static}, nil
	case store.BackendPostgres:
		pgCfg := store.PostgresConfig{}
		if cfg.Postgres != nil {
			pgCfg = *cfg.Postgres
		}

		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: pgCfg.DSN,
			Env:   "DATABASE_URL",
			File:  pgCfg.DSNFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set history.postgres.dsn-file or DATABASE_URL)", err)
		}
		pgCfg.DSN = dsn

		pg, err := store.OpenPostgres(pgCfg, logger)
		if err != nil {
			return nil, err
		}
		return &historyBackend{recorder: pg, directory: pg, close: pg.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}

func staticDirectory(companies map[string]*CompanyConfig) store.StaticDirectory {
	if len(companies) == 0 {
		return nil
	}

	dir := make(store.StaticDirectory, len(companies))
	for id, c := range companies {
		if c == nil {
			continue
		}
		dir[id] = recommend.Company{ID: id, Name: c.Name, Domain: c.Domain}
	}
	return dir
}

func prepareFilters(ctx context.Context, config *Config, recorder store.Recorder, query recommend.Query, candidate string, topK int, logger *zap.Logger) *filtering.Filtering {
	steps := []filtering.Filter{
		filtering.NewExcludedCompanies(excludedCompanies(config)),
		filtering.NewExcludeFile(config.ExcludeFile),
		filtering.NewHistory(&filtering.HistoryConfig{
			ExcludeSeen: config.History.ExcludeSeen,
			Candidate:   candidate,
		}, &filtering.HistoryDeps{
			Recorder: recorder,
			Logger:   logger,
		}),
		prepareAIFilter(ctx, config, query, topK, logger),
	}

	f := filtering.New(steps, logger)
	for _, status := range f.Describe() {
		if !status.Enabled && status.Reason != "" {
			logger.Debug("filter is off", zap.String("name", status.Name), zap.String("reason", status.Reason))
		}
	}
	return f
}

func prepareAIFilter(ctx context.Context, config *Config, query recommend.Query, topK int, logger *zap.Logger) filtering.Filter {
	aiConfig := &filtering.AIFitFilterConfig{
		Enabled:         config.AI.Enabled,
		Provider:        config.AI.Provider,
		MinimumFitScore: config.AI.MinimumFitScore,
		Limit:           topK,
	}
	if config.AI.Gemini != nil {
		aiConfig.Model = config.AI.Gemini.Model
	}

	deps := &filtering.AIFitFilterDeps{
		Logger:      logger,
		ExcludeFile: config.ExcludeFile,
		Profile: &ai.Profile{
			Skills:     query.Skills,
			Title:      query.Title,
			Experience: query.Experience,
		},
	}

	f := filtering.NewAIFit(aiConfig, deps)
	if !config.AI.Enabled {
		return f
	}

	matcher, err := newAIMatcher(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("skipping AI filter", zap.Error(err))
		f.Disable(err.Error())
		return f
	}
	deps.Matcher = matcher

	return f
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gcfg := cfg.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		Env:   "GEMINI_API_KEY",
		File:  gcfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries,
		logger.With(zap.Int("ai_retry_attempts", gcfg.MaxRetries)))
	if err != nil {
		return nil, err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	matcherLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
		zap.Float64("minimum_fit_score", minScore),
	)

	return gemini.NewMatcher(generator, minScore, gcfg.MaxLogLength, matcherLogger), nil
}
