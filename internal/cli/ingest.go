package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [query...]",
	Short: "Run job ingestion once",
	Long: `Fetch postings from the job search API, extract and embed them and
store the new ones. Without arguments the configured queries are used.`,
	RunE: runIngest,
}

var ingestPages int

func init() {
	ingestCmd.Flags().IntVar(&ingestPages, "pages", 0, "Result pages per query (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}

	queries := args
	if len(queries) == 0 {
		queries = cfg.JobSearch.Queries
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries given and none configured in jobSearch.queries")
	}
	pages := cfg.JobSearch.Pages
	if ingestPages > 0 {
		pages = ingestPages
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	report, err := a.ingestor().Run(ctx, queries, pages)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fetched=%d stored=%d skipped=%d failed=%d fetch_errors=%d duration=%s\n",
		report.Fetched, report.Stored, report.Skipped, report.Failed, report.FetchErrors, report.Duration)
	return nil
}
