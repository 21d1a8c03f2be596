// Package scheduler re-runs ingestion on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/rustyeddy/metals/pipeline"
)

// Ingester is the part of pipeline.Service the scheduler drives.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (pipeline.Result, error)
}

// Scheduler runs ingestion of one CSV file on a cron expression with a
// leading seconds field. A run that is still going when the next tick
// fires causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	ingester Ingester
	path     string
	logger   *slog.Logger
	ctx      context.Context

	mu      sync.Mutex
	lastErr error
	runs    int
}

// New returns a stopped scheduler. ctx bounds every run.
func New(ctx context.Context, ing Ingester, path string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ingester: ing,
		path:     path,
		logger:   logger,
		ctx:      ctx,
	}
}

// Register adds the ingestion job under spec.
func (s *Scheduler) Register(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, s.RunNow)
	if err != nil {
		return 0, fmt.Errorf("register ingest %q: %w", spec, err)
	}
	return id, nil
}

// Entries exposes the registered jobs and their next run times.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// RunNow ingests immediately and logs the outcome.
func (s *Scheduler) RunNow() {
	res, err := s.ingester.IngestFile(s.ctx, s.path)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled ingest failed", "path", s.path, "error", err)
		return
	}
	s.logger.Info("scheduled ingest", "path", s.path, "run_id", res.RunID, "records", res.Records)
}

// Status returns how many runs have happened and the last run's error.
func (s *Scheduler) Status() (runs int, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastErr
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
