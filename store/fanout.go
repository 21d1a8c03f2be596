package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/metals/market"
)

// Fanout runs many independent reads at once. Each read gets its own
// connection; at most MaxOpenConns reads are in flight so a fan-out never
// waits on connections held by its own siblings.
type Fanout struct {
	db    *DB
	limit int

	// test hooks, called with the spec index around each read
	beforeRead func(int)
	afterRead  func(int)
}

func NewFanout(db *DB) *Fanout {
	return &Fanout{db: db, limit: db.maxConns}
}

// Outcome is the per-spec result of Isolated.
type Outcome struct {
	Records []market.Record
	Err     error
}

// ExecuteAll runs every spec concurrently and returns the results in spec
// order, whatever order the reads finish in.
//
// The first failure cancels the remaining reads and is returned as a
// *QueryError; no partial results are returned. Invalid specs are rejected
// before any connection is taken.
func (f *Fanout) ExecuteAll(ctx context.Context, specs []Spec) ([][]market.Record, error) {
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, &QueryError{Index: i, Spec: s, Err: err}
		}
	}

	results := make([][]market.Record, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)
	for i, s := range specs {
		g.Go(func() error {
			recs, err := f.readOne(gctx, i, s)
			if err != nil {
				return &QueryError{Index: i, Spec: s, Err: err}
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Isolated runs every spec concurrently but lets each one fail on its own.
// The returned slice is in spec order.
func (f *Fanout) Isolated(ctx context.Context, specs []Spec) []Outcome {
	out := make([]Outcome, len(specs))

	var g errgroup.Group
	g.SetLimit(f.limit)
	for i, s := range specs {
		g.Go(func() error {
			if err := s.Validate(); err != nil {
				out[i].Err = &QueryError{Index: i, Spec: s, Err: err}
				return nil
			}
			recs, err := f.readOne(ctx, i, s)
			if err != nil {
				out[i].Err = &QueryError{Index: i, Spec: s, Err: err}
				return nil
			}
			out[i].Records = recs
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *Fanout) readOne(ctx context.Context, i int, s Spec) ([]market.Record, error) {
	if f.beforeRead != nil {
		f.beforeRead(i)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := f.db.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	recs, err := f.db.read(ctx, conn, s)
	if err != nil {
		return nil, err
	}

	if f.afterRead != nil {
		f.afterRead(i)
	}
	return recs, nil
}
