package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and rebuild the index from all artifacts",
	Long: `Drops the collection, recreates it with the embedding model's
dimension, and indexes every chunk artifact. Exclusive: refuse to run
while another rebuild is in progress.`,
	RunE: runIndexRebuild,
}

var indexAppendCmd = &cobra.Command{
	Use:   "append",
	Short: "Index only chunks not yet in the collection",
	RunE:  runIndexAppend,
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexAppendCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	report, err := indexService.Rebuild(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRebuildInProgress) {
			return errors.New("a rebuild is already in progress")
		}
		return fmt.Errorf("rebuild failed: %w", err)
	}

	printIndexReport(cmd, report)
	return nil
}

func runIndexAppend(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	report, err := indexService.Append(cmd.Context())
	if err != nil {
		return fmt.Errorf("append failed: %w", err)
	}

	printIndexReport(cmd, report)
	return nil
}

func printIndexReport(cmd *cobra.Command, report domain.IndexReport) {
	cmd.Printf("Indexed %d chunks from %d documents (%d already present, %d embedding failures).\n",
		report.Indexed, report.Documents, report.Skipped, report.EmbedFailed)
}
