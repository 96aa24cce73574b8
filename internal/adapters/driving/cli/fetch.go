package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [query...]",
	Short: "Bulk-fetch articles from PubMed Central",
	Long: `Runs the topic queries against the archive and stores the full
text of every matching article not yet seen. Progress is checkpointed
after each committed batch, so an interrupted fetch resumes where it
stopped. Without arguments the configured queries run.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchService == nil {
		return errors.New("fetch service not configured")
	}

	queries := args
	if len(queries) == 0 {
		queries = cfg.Entrez.Queries
	}
	if len(queries) == 0 {
		return errors.New("no queries given and none configured")
	}

	report, err := fetchService.Fetch(cmd.Context(), queries)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	cmd.Printf("Fetched %d new records (%d duplicates skipped, %d failed).\n",
		report.New, report.Duplicate, report.Failed)
	return nil
}
