package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show (0 for all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.svc.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no ingestion runs")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %6d records  %8s  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Records, r.Duration().Round(1e6), r.Source)
	}
	return nil
}
