package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/metals/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the price store over HTTP",
	Long: `Start the HTTP API.

Endpoints:
  GET  /healthz        store liveness
  GET  /metrics        Prometheus metrics, including store operation timings
  GET  /prices         one query from URL parameters (metal, date, from, to, id,
                       min_/max_ price, macd, rsi)
  POST /prices/query   JSON array of specs, run concurrently; ?isolated=true
                       reports errors per spec
  GET  /runs           recent ingestion runs

Examples:
  metals serve
  metals serve --addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(addr, server.NewRouter(a.svc, a.reg, a.logger))

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
