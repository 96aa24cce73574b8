package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if recordStore == nil {
		return errors.New("record store not configured")
	}

	runs, err := recordStore.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs failed: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		keys := make([]string, 0, len(run.Counts))
		for k := range run.Counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%d", k, run.Counts[k])
		}

		cmd.Printf("%s  %-8s %s (%s)\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Kind,
			strings.Join(parts, " "),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	return nil
}
