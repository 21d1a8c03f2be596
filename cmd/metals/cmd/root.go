package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/metals/config"
)

var rootCmd = &cobra.Command{
	Use:   "metals",
	Short: "Metal price indicator store",
	Long: `Metals ingests daily metal price tables, derives MACD and RSI for every
metal, stores the enriched rows and answers concurrent queries against them.

It provides tools for:
  - Ingesting CSV price tables (once or on a cron schedule)
  - Querying stored prices and indicators
  - Serving the store over HTTP with Prometheus metrics
  - Managing configuration files`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with METALS_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}
