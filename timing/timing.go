// Package timing wraps store operations so every call reports how long it
// took, both as a log line on the timing sink and as a Prometheus
// histogram sample.
package timing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/metals/internal/logging"
)

// Op is any context-aware operation returning a value.
type Op[T any] func(context.Context) (T, error)

// Recorder receives timings from instrumented operations.
type Recorder struct {
	logger   *slog.Logger
	duration *prometheus.HistogramVec
	now      func() time.Time
}

// NewRecorder logs timings to logger and registers the duration histogram
// with reg. A nil reg skips registration; a histogram that is already
// registered is reused.
func NewRecorder(logger *slog.Logger, reg prometheus.Registerer) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metals",
		Name:      "sql_operation_duration_seconds",
		Help:      "Wall-clock duration of store operations",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"operation", "outcome"})

	if reg != nil {
		if err := reg.Register(hv); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				return nil, err
			}
			hv = existing
		}
	}

	return &Recorder{logger: logger, duration: hv, now: time.Now}, nil
}

// Observe records one completed operation.
func (r *Recorder) Observe(ctx context.Context, operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.duration.WithLabelValues(operation, outcome).Observe(d.Seconds())

	attrs := []any{
		slog.String("operation", operation),
		slog.Float64("duration_seconds", d.Seconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logging.FromContext(ctx, r.logger).InfoContext(ctx, "sql operation", attrs...)
}

// Instrument returns op wrapped so that each call is timed and reported to
// rec under name. The wrapped op returns exactly what op returns. A nil
// rec returns op unchanged.
func Instrument[T any](rec *Recorder, name string, op Op[T]) Op[T] {
	if rec == nil {
		return op
	}
	return func(ctx context.Context) (T, error) {
		start := rec.now()
		v, err := op(ctx)
		rec.Observe(ctx, name, rec.now().Sub(start), err)
		return v, err
	}
}
