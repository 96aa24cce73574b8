package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Filter, parse and chunk stored articles",
	Long: `Runs every stored article through the relevance filter, the JATS
parser and the chunker, writing one chunk artifact per accepted document.
Rejected and unparseable articles are counted, not fatal.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	if processService == nil {
		return errors.New("process service not configured")
	}

	report, err := processService.Process(cmd.Context())
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}

	cmd.Printf("Processed %d records: %d accepted, %d parse failures, %d chunks written.\n",
		report.Records, report.Accepted, report.ParseFailed, report.Chunks)

	if len(report.Rejected) > 0 {
		cmd.Println("Rejections:")
		reasons := make([]string, 0, len(report.Rejected))
		for reason := range report.Rejected {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			cmd.Printf("  %5d  %s\n", report.Rejected[reason], reason)
		}
	}
	return nil
}
