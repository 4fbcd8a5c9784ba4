package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-recommender/internal/store"
)

const (
	app = "job-recommender"

	defaultCatalog = "jobs_info.csv"
)

type Config struct {
	Catalog     string `mapstructure:"catalog"`
	TopK        int    `mapstructure:"top-k"`
	ExcludeFile string `mapstructure:"exclude-file"`
	Exclude     *struct {
		Companies []string `mapstructure:"companies"`
	} `mapstructure:"exclude"`
	Companies map[string]*CompanyConfig `mapstructure:"companies"`
	History   *HistoryConfig            `mapstructure:"history"`
	AI        *AIConfig                 `mapstructure:"ai"`
}

type CompanyConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"`
}

type HistoryConfig struct {
	Backend     string                `mapstructure:"backend"`
	File        string                `mapstructure:"file"`
	ExcludeSeen bool                  `mapstructure:"exclude-seen"`
	Postgres    *store.PostgresConfig `mapstructure:"postgres"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-recommender suggests job postings from a catalog for a candidate's skills, title and experience",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"catalog":                   "JOB_RECOMMENDER_CATALOG",
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
		"history.postgres.dsn-file": "DATABASE_URL_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("catalog", defaultCatalog)
	viper.SetDefault("history.backend", store.BackendNone)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-recommender.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("catalog", "c", "", "path to the job postings csv file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
}

func initConfig() {
	// .env is optional, but a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config the file is optional: everything has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.History == nil {
		config.History = &HistoryConfig{Backend: store.BackendNone}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	return config, nil
}

func excludedCompanies(config *Config) []string {
	if config.Exclude == nil {
		return nil
	}
	return config.Exclude.Companies
}
