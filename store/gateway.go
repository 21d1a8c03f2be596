package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/guregu/null/v6"

	"github.com/rustyeddy/metals/market"
)

// Gateway writes batches of records.
type Gateway struct {
	db *DB

	// test hook, called with the record index after each insert
	afterInsert func(int)
}

func NewGateway(db *DB) *Gateway {
	return &Gateway{db: db}
}

// Commit inserts records on a single connection in a single transaction
// and returns how many rows were written. An empty batch is a no-op that
// never touches the pool.
//
// On any failure, including cancellation of ctx, the transaction is rolled
// back and a *PersistenceError is returned. Commit does not deduplicate:
// writing the same batch twice stores it twice.
func (g *Gateway) Commit(ctx context.Context, records []market.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	return g.commit(ctx, records, nil)
}

// CommitRun is Commit plus the ingest_runs row for run, written in the same
// transaction: either the records and the run are both stored or neither
// is. run.Records is set to len(records). The run row is written even for
// an empty batch.
func (g *Gateway) CommitRun(ctx context.Context, records []market.Record, run Run) (int, error) {
	run.Records = len(records)
	return g.commit(ctx, records, &run)
}

func (g *Gateway) commit(ctx context.Context, records []market.Record, run *Run) (n int, err error) {
	defer func() {
		if err != nil {
			n = 0
			err = &PersistenceError{BatchSize: len(records), Err: err}
		}
	}()

	conn, err := g.db.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if len(records) > 0 {
		if err := g.insertAll(ctx, tx, records); err != nil {
			return 0, err
		}
	}
	if run != nil {
		if err := g.db.insertRun(ctx, tx, *run); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return len(records), nil
}

func (g *Gateway) insertAll(ctx context.Context, tx *sql.Tx, records []market.Record) error {
	stmt, err := tx.PrepareContext(ctx, g.insertSQL())
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	d := g.db.dialect
	for i, r := range records {
		_, err := stmt.ExecContext(ctx,
			d.bindDate(r.Date),
			r.Metal,
			nullFloat(r.Price),
			nullFloat(r.MACD),
			nullFloat(r.MACDSignal),
			nullFloat(r.RSI),
		)
		if err != nil {
			return fmt.Errorf("insert record %d (%s %s): %w",
				i, r.Date.Format(market.DateLayout), r.Metal, err)
		}
		if g.afterInsert != nil {
			g.afterInsert(i)
		}
	}
	return nil
}

func (g *Gateway) insertSQL() string {
	p := g.db.dialect.placeholder
	return fmt.Sprintf(`INSERT INTO metal_prices (date, metal, price, macd, macd_signal, rsi)
		VALUES (%s, %s, %s, %s, %s, %s)`, p(1), p(2), p(3), p(4), p(5), p(6))
}

// nullFloat stores NaN as NULL; not every backend round-trips NaN.
func nullFloat(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v))
}

func floatOrNaN(v null.Float) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
