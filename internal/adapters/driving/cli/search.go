package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

var (
	searchTopK    int
	searchTopN    int
	searchExpand  bool
	searchTimeout time.Duration
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve relevant passages from the corpus",
	Long: `Answers a free-text query in two stages: approximate vector
search over the whole index, then cross-encoder re-ranking of the
candidates. A timed-out query still prints what was retrieved in budget.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "stage-1 candidate count (0 = configured default)")
	searchCmd.Flags().IntVarP(&searchTopN, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().BoolVar(&searchExpand, "expand", false, "expand the query with domain synonyms")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 0, "retrieval time budget (0 = configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.RetrievalOptions{
		Stage1TopK:  searchTopK,
		Stage2TopN:  searchTopN,
		Budget:      searchTimeout,
		ExpandQuery: searchExpand,
	}

	results, err := retrievalService.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		if !domain.IsRetrievalTimeout(err) || len(results) == 0 {
			return fmt.Errorf("search failed: %w", err)
		}
		cmd.PrintErrf("Warning: %v; showing partial results\n", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		chunk := results[i].Chunk

		title := chunk.Title
		if title == "" {
			title = chunk.DocumentID
		}

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, results[i].Score)
		cmd.Printf("      %s, %s", chunk.DocumentID, chunk.SectionLabel)
		if chunk.Year != "" {
			cmd.Printf(", %s", chunk.Year)
		}
		if chunk.IsTable {
			cmd.Print(", table")
		}
		cmd.Println()
		cmd.Printf("      %s\n", snippet(chunk.Text, 240))
		cmd.Println()
	}
	return nil
}

// snippet truncates text for terminal display.
func snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
