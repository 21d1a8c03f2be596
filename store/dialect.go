package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/metals/market"
)

// dialect captures what differs between backends: driver name, DSN
// tweaks, DDL, placeholders and how dates and timestamps are bound.
type dialect struct {
	name   string
	driver string
	schema []string

	dsn         func(string) string
	placeholder func(n int) string
	bindDate    func(time.Time) any
	bindTime    func(time.Time) any
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("store: unsupported driver %q", driver)
}

var sqliteDialect = dialect{
	name:   DriverSQLite,
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS metal_prices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	metal TEXT NOT NULL CHECK (metal <> ''),
	price REAL,
	macd REAL,
	macd_signal REAL,
	rsi REAL
)`,
		`CREATE INDEX IF NOT EXISTS idx_metal_prices_date ON metal_prices(date)`,
		`CREATE INDEX IF NOT EXISTS idx_metal_prices_metal ON metal_prices(metal)`,
		`CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id TEXT PRIMARY KEY,
	source TEXT NOT NULL CHECK (source <> ''),
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	records INTEGER NOT NULL
)`,
	},
	dsn:         sqliteDSN,
	placeholder: func(int) string { return "?" },
	bindDate:    func(t time.Time) any { return t.UTC().Format(market.DateLayout) },
	bindTime:    func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

var postgresDialect = dialect{
	name:   DriverPostgres,
	driver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS metal_prices (
	id BIGSERIAL PRIMARY KEY,
	date DATE NOT NULL,
	metal TEXT NOT NULL CHECK (metal <> ''),
	price DOUBLE PRECISION,
	macd DOUBLE PRECISION,
	macd_signal DOUBLE PRECISION,
	rsi DOUBLE PRECISION
)`,
		`CREATE INDEX IF NOT EXISTS idx_metal_prices_date ON metal_prices(date)`,
		`CREATE INDEX IF NOT EXISTS idx_metal_prices_metal ON metal_prices(metal)`,
		`CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id TEXT PRIMARY KEY,
	source TEXT NOT NULL CHECK (source <> ''),
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	records INTEGER NOT NULL
)`,
	},
	dsn:         func(s string) string { return s },
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	bindDate:    func(t time.Time) any { return t.UTC() },
	bindTime:    func(t time.Time) any { return t.UTC() },
}

// memSeq names in-memory databases so each Open gets its own.
var memSeq atomic.Int64

// sqliteDSN turns on WAL and a busy timeout so concurrent readers do not
// trip over the writer.
//
// A plain in-memory DSN gives every pooled connection a separate empty
// database, so it is rewritten to a named shared-cache database that all
// connections of one pool see.
func sqliteDSN(dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") {
		return fmt.Sprintf("file:metals-mem-%d?mode=memory&cache=shared", memSeq.Add(1))
	}
	if strings.Contains(dsn, "_journal_mode") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_journal_mode=WAL&_busy_timeout=5000"
}

// scanTime converts whatever the driver hands back for a date or
// timestamp column into a UTC time.
func scanTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		return parseStoredTime(x)
	case []byte:
		return parseStoredTime(string(x))
	case nil:
		return time.Time{}, fmt.Errorf("null time")
	}
	return time.Time{}, fmt.Errorf("unexpected time type %T", v)
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{market.DateLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad stored time %q", s)
}
