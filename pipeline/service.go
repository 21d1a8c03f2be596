// Package pipeline ties the pieces together: it reads a price table,
// derives indicators, commits the enriched records and answers concurrent
// reads, timing every store operation on the way.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/metals/indicators"
	"github.com/rustyeddy/metals/ingest"
	"github.com/rustyeddy/metals/internal/logging"
	"github.com/rustyeddy/metals/market"
	"github.com/rustyeddy/metals/pkg/id"
	"github.com/rustyeddy/metals/store"
	"github.com/rustyeddy/metals/timing"
)

// Operation names reported to the timing recorder.
const (
	OpPopulate = "populate_sql_table"
	OpReads    = "concurrent_reads"
	OpRead     = "read"
)

// Service ingests price tables into a store and reads them back.
type Service struct {
	db      *store.DB
	gateway *store.Gateway
	fanout  *store.Fanout
	timing  *timing.Recorder
	params  indicators.Params
	ingest  ingest.Options
	logger  *slog.Logger
	now     func() time.Time
	ids     *id.Generator

	compute func(*market.PriceTable, indicators.Params) map[string]indicators.Series
}

// Option customises a Service.
type Option func(*Service)

// WithParams sets the indicator windows.
func WithParams(p indicators.Params) Option {
	return func(s *Service) { s.params = p }
}

// WithIngestOptions sets how CSV files are read.
func WithIngestOptions(o ingest.Options) Option {
	return func(s *Service) { s.ingest = o }
}

// WithLogger sets the logger for run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service over db. rec may be nil to skip timing.
func New(db *store.DB, rec *timing.Recorder, opts ...Option) *Service {
	s := &Service{
		db:      db,
		gateway: store.NewGateway(db),
		fanout:  store.NewFanout(db),
		timing:  rec,
		params:  indicators.DefaultParams(),
		logger:  slog.Default(),
		now:     time.Now,
		compute: market.ComputeAll,
	}
	for _, o := range opts {
		o(s)
	}
	s.ids = id.NewGenerator(func() time.Time { return s.now() })
	return s
}

// Result summarises one ingestion run.
type Result struct {
	RunID   string   `json:"run_id"`
	Source  string   `json:"source"`
	Assets  []string `json:"assets"`
	Dates   int      `json:"dates"`
	Records int      `json:"records"`
}

// IngestFile reads the CSV at path and ingests it.
func (s *Service) IngestFile(ctx context.Context, path string) (Result, error) {
	t, err := ingest.ReadFile(path, s.ingest)
	if err != nil {
		return Result{}, err
	}
	return s.Ingest(ctx, path, t)
}

// Ingest computes indicators for every asset of t and commits the records
// together with the run row in one transaction. source is stored with the
// run. A malformed table is rejected before any indicator is computed.
func (s *Service) Ingest(ctx context.Context, source string, t *market.PriceTable) (Result, error) {
	if err := s.params.Validate(); err != nil {
		return Result{}, fmt.Errorf("indicator params: %w", err)
	}
	if t == nil {
		return Result{}, &market.InputShapeError{Reason: "nil price table"}
	}
	if err := t.Validate(); err != nil {
		return Result{}, err
	}

	runID, started := s.ids.Next()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx, s.logger)

	records, err := market.BuildRecords(t, s.compute(t, s.params))
	if err != nil {
		return Result{}, err
	}

	commit := timing.Instrument(s.timing, OpPopulate, func(ctx context.Context) (int, error) {
		return s.gateway.CommitRun(ctx, records, store.Run{
			ID:         runID,
			Source:     source,
			StartedAt:  started,
			FinishedAt: s.now(),
		})
	})
	n, err := commit(ctx)
	if err != nil {
		log.Error("ingest failed", "source", source, "error", err)
		return Result{}, err
	}

	log.Info("ingest complete",
		"source", source,
		"assets", len(t.Assets),
		"dates", t.Len(),
		"records", n,
	)

	return Result{
		RunID:   runID,
		Source:  source,
		Assets:  t.Assets,
		Dates:   t.Len(),
		Records: n,
	}, nil
}

// Query runs all specs concurrently and returns their results in order.
// Any failure fails the whole call.
func (s *Service) Query(ctx context.Context, specs []store.Spec) ([][]market.Record, error) {
	op := timing.Instrument(s.timing, OpReads, func(ctx context.Context) ([][]market.Record, error) {
		return s.fanout.ExecuteAll(ctx, specs)
	})
	return op(ctx)
}

// QueryIsolated runs all specs concurrently; each may fail independently.
func (s *Service) QueryIsolated(ctx context.Context, specs []store.Spec) []store.Outcome {
	op := timing.Instrument(s.timing, OpReads, func(ctx context.Context) ([]store.Outcome, error) {
		return s.fanout.Isolated(ctx, specs), nil
	})
	out, _ := op(ctx)
	return out
}

// QueryOne runs a single spec.
func (s *Service) QueryOne(ctx context.Context, spec store.Spec) ([]market.Record, error) {
	op := timing.Instrument(s.timing, OpRead, func(ctx context.Context) ([]market.Record, error) {
		return s.db.Query(ctx, spec)
	})
	return op(ctx)
}

// Runs lists recent ingestion runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	return s.db.ListRuns(ctx, limit)
}

// Run returns one ingestion run.
func (s *Service) Run(ctx context.Context, runID string) (store.Run, error) {
	return s.db.GetRun(ctx, runID)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// DemoSpecs is the example read set: one date, three ids and a metal that
// is never present.
func DemoSpecs() []store.Spec {
	return []store.Spec{
		store.Where("first trading day", store.Eq(store.FieldDate, "2021-01-01")),
		store.Where("id 1", store.Eq(store.FieldID, 1)),
		store.Where("tin", store.Eq(store.FieldMetal, "TIN")),
		store.Where("id 76", store.Eq(store.FieldID, 76)),
		store.Where("id 16", store.Eq(store.FieldID, 16)),
	}
}
