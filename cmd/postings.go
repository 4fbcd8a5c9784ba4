package cmd

import (
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/logger"
)

var postingsCmd = &cobra.Command{
	Use:   "postings",
	Short: "List the catalog postings of one company",
	Run: func(cmd *cobra.Command, _ []string) {
		runPostings(cmd)
	},
}

func init() {
	rootCmd.AddCommand(postingsCmd)

	postingsCmd.Flags().String("company", "", "company id")
	postingsCmd.MarkFlagRequired("company")
}

func runPostings(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	cat, err := catalog.Load(config.Catalog)
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}

	company, _ := cmd.Flags().GetString("company")
	postings := cat.ByCompany(strings.TrimSpace(company))

	logger.Debug("company postings", zap.String("company_id", company), zap.Int("count", len(postings)))

	if err := printPostings(cmd.OutOrStdout(), postings); err != nil {
		logger.Fatal("printing postings", zap.Error(err))
	}
}

func printPostings(out io.Writer, postings []*catalog.Posting) error {
	if len(postings) == 0 {
		_, err := fmt.Fprintln(out, "No postings found!")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tTITLE\tKEY SKILLS\tEXPERIENCE")
	for _, p := range postings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.KeySkills, p.ExperienceText)
	}
	return w.Flush()
}
