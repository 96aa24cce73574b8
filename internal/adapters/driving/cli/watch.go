package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marrow-labs/biblio-cli/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest article XML dropped into a directory",
	Long: `Watches a directory and runs every XML file that appears through
the filter/parse/chunk pipeline, as if it had been fetched. Files already
in the directory are processed on startup. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if processService == nil {
		return errors.New("process service not configured")
	}

	watcher, err := watch.New(args[0], processService)
	if err != nil {
		return err
	}

	err = watcher.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
