package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [csv-file]",
	Short: "Compute indicators for a price table and store them",
	Long: `Read a CSV price table (Dates column followed by one column per metal),
compute MACD, MACD signal and RSI for every metal and commit all rows in a
single transaction.

The file defaults to ingest.csv_path from the config (or METALS_CSV).
Ingesting the same file twice stores its rows twice.

Examples:
  metals ingest metal_prices.csv
  metals ingest -c metals.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	path := a.cfg.Ingest.CSVPath
	if len(args) == 1 {
		path = args[0]
	}

	res, err := a.svc.IngestFile(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Ingested %s\n", res.Source)
	fmt.Fprintf(out, "  Run:     %s\n", res.RunID)
	fmt.Fprintf(out, "  Metals:  %v\n", res.Assets)
	fmt.Fprintf(out, "  Dates:   %d\n", res.Dates)
	fmt.Fprintf(out, "  Records: %d\n", res.Records)
	return nil
}
