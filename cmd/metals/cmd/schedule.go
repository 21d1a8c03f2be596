package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/metals/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [csv-file]",
	Short: "Re-run ingestion on a cron schedule",
	Long: `Ingest the price table every time the cron expression fires, until
interrupted. Expressions have six fields with seconds first, for example
"0 30 18 * * 1-5" for 18:30 on weekdays. Descriptors such as "@daily" and
"@every 1h" also work.

Examples:
  metals schedule prices.csv --cron "0 0 19 * * *"
  metals schedule --run-now`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchedule,
}

var (
	scheduleCron   string
	scheduleRunNow bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression (overrides schedule.cron)")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "ingest once immediately before waiting")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	path := a.cfg.Ingest.CSVPath
	if len(args) == 1 {
		path = args[0]
	}
	spec := a.cfg.Schedule.Cron
	if scheduleCron != "" {
		spec = scheduleCron
	}

	s := scheduler.New(ctx, a.svc, path, a.logger)
	if _, err := s.Register(spec); err != nil {
		return err
	}
	if scheduleRunNow {
		s.RunNow()
	}

	s.Start()
	for _, e := range s.Entries() {
		fmt.Fprintf(cmd.OutOrStdout(), "next ingest of %s at %s\n", path, e.Next.Format("2006-01-02 15:04:05 MST"))
	}

	<-ctx.Done()
	s.Stop()
	return nil
}
