package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rustyeddy/metals/config"
	"github.com/rustyeddy/metals/ingest"
	"github.com/rustyeddy/metals/internal/logging"
	"github.com/rustyeddy/metals/pipeline"
	"github.com/rustyeddy/metals/store"
	"github.com/rustyeddy/metals/timing"
)

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *store.DB
	svc    *pipeline.Service
	reg    *prometheus.Registry
	sink   *os.File
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// openApp loads config, sets up logging and metrics and opens the store.
func openApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.Init("metals", level, stderr)

	a := &app{cfg: cfg, logger: logger, reg: prometheus.NewRegistry()}
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	timingLogger := logger
	if cfg.Log.TimingFile != "" {
		a.sink, err = logging.OpenSink(cfg.Log.TimingFile)
		if err != nil {
			return nil, fmt.Errorf("open timing log: %w", err)
		}
		timingLogger = slog.New(slog.NewTextHandler(a.sink, nil))
	}

	rec, err := timing.NewRecorder(timingLogger, a.reg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.db, err = store.Open(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.svc = pipeline.New(a.db, rec,
		pipeline.WithParams(cfg.Indicators),
		pipeline.WithIngestOptions(ingest.Options{DateColumn: cfg.Ingest.DateColumn}),
		pipeline.WithLogger(logger),
	)

	logger.Debug("store open", "backend", a.db.Backend(), "max_open_conns", a.db.MaxOpenConns())
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close store", "error", err)
		}
	}
	if a.sink != nil {
		_ = a.sink.Close()
	}
}
