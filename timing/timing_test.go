package timing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/metals/internal/logging"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func newTestRecorder(t *testing.T) (*Recorder, *prometheus.Registry, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(slog.New(slog.NewTextHandler(&buf, nil)), reg)
	require.NoError(t, err)
	rec.now = fakeClock(250 * time.Millisecond)

	return rec, reg, &buf
}

func sampleCount(t *testing.T, reg *prometheus.Registry, operation, outcome string) uint64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "metals_sql_operation_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == operation && labels["outcome"] == outcome {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func TestInstrumentPassesThroughValue(t *testing.T) {
	t.Parallel()

	rec, reg, buf := newTestRecorder(t)

	op := Instrument(rec, "populate", func(ctx context.Context) (int, error) {
		return 80, nil
	})

	n, err := op(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, n)

	assert.Equal(t, uint64(1), sampleCount(t, reg, "populate", "ok"))
	assert.Equal(t, uint64(0), sampleCount(t, reg, "populate", "error"))

	out := buf.String()
	assert.Contains(t, out, `msg="sql operation"`)
	assert.Contains(t, out, "operation=populate")
	assert.Contains(t, out, "duration_seconds=0.25")
}

func TestInstrumentPassesThroughError(t *testing.T) {
	t.Parallel()

	rec, reg, buf := newTestRecorder(t)
	boom := errors.New("boom")

	op := Instrument(rec, "read", func(ctx context.Context) ([]string, error) {
		return []string{"partial"}, boom
	})

	v, err := op(context.Background())
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"partial"}, v)

	assert.Equal(t, uint64(1), sampleCount(t, reg, "read", "error"))
	assert.Contains(t, buf.String(), "error=boom")
}

func TestInstrumentOnePerCall(t *testing.T) {
	t.Parallel()

	rec, reg, buf := newTestRecorder(t)
	op := Instrument(rec, "count", func(ctx context.Context) (int, error) { return 1, nil })

	for i := 0; i < 3; i++ {
		_, err := op(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(3), sampleCount(t, reg, "count", "ok"))
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("operation=count")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.duration))
}

func TestInstrumentCarriesRunID(t *testing.T) {
	t.Parallel()

	rec, _, buf := newTestRecorder(t)
	op := Instrument(rec, "populate", func(ctx context.Context) (int, error) { return 0, nil })

	_, err := op(logging.WithRunID(context.Background(), "01HXRUN"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run_id=01HXRUN")
}

func TestInstrumentNilRecorder(t *testing.T) {
	t.Parallel()

	called := false
	op := Instrument[int](nil, "x", func(ctx context.Context) (int, error) {
		called = true
		return 7, nil
	})

	v, err := op(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.True(t, called)
}

func TestNewRecorderReusesRegisteredHistogram(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a, err := NewRecorder(nil, reg)
	require.NoError(t, err)
	b, err := NewRecorder(nil, reg)
	require.NoError(t, err)

	assert.Same(t, a.duration, b.duration)
}
