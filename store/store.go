// Package store persists enriched metal price records and runs reads
// against them. It owns the connection pool: the Gateway writes batches in
// one transaction and the Fanout runs many independent reads concurrently,
// each on its own connection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	DefaultMaxOpenConns = 8
)

// Config selects the backend and sizes the pool.
type Config struct {
	Driver       string `json:"driver" yaml:"driver"`
	DSN          string `json:"dsn" yaml:"dsn"`
	MaxOpenConns int    `json:"max_open_conns" yaml:"max_open_conns"`
}

// DB is an open store. It is safe for concurrent use; sessions are drawn
// from the pool per operation and never shared.
type DB struct {
	db       *sql.DB
	dialect  dialect
	maxConns int
}

// Open connects to the configured backend and creates the schema if it is
// missing.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("store: empty dsn")
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = DefaultMaxOpenConns
	}

	db, err := sql.Open(d.driver, d.dsn(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", d.name, err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", d.name, err)
	}

	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}

	return &DB{db: db, dialect: d, maxConns: maxConns}, nil
}

// Close releases every pooled connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Backend returns the dialect name, "sqlite3" or "postgres".
func (d *DB) Backend() string { return d.dialect.name }

// MaxOpenConns returns the pool size.
func (d *DB) MaxOpenConns() int { return d.maxConns }

// Count returns the number of rows in metal_prices.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metal_prices`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Ping checks that the backend is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
