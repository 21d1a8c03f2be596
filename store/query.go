package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/rustyeddy/metals/market"
)

// Fields a Condition may name.
const (
	FieldID         = "id"
	FieldDate       = "date"
	FieldMetal      = "metal"
	FieldPrice      = "price"
	FieldMACD       = "macd"
	FieldMACDSignal = "macd_signal"
	FieldRSI        = "rsi"
)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindDate
	kindText
	kindFloat
)

var fields = map[string]fieldKind{
	FieldID:         kindInt,
	FieldDate:       kindDate,
	FieldMetal:      kindText,
	FieldPrice:      kindFloat,
	FieldMACD:       kindFloat,
	FieldMACDSignal: kindFloat,
	FieldRSI:        kindFloat,
}

var ops = map[string]bool{"=": true, ">=": true, "<=": true, ">": true, "<": true}

// Condition is a single comparison against one column.
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Spec is a named conjunction of conditions. An empty Conditions list
// selects every row.
type Spec struct {
	Name       string      `json:"name"`
	Conditions []Condition `json:"conditions"`
}

// Eq is shorthand for an equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: "=", Value: value}
}

// Where builds a Spec from conditions.
func Where(name string, conds ...Condition) Spec {
	return Spec{Name: name, Conditions: conds}
}

// Between expands to field >= lo AND field <= hi.
func Between(field string, lo, hi any) []Condition {
	return []Condition{
		{Field: field, Op: ">=", Value: lo},
		{Field: field, Op: "<=", Value: hi},
	}
}

// Validate reports the first condition that cannot be executed.
func (s Spec) Validate() error {
	for i, c := range s.Conditions {
		if _, err := c.bind(dialect{bindDate: func(t time.Time) any { return t }}); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func (c Condition) bind(d dialect) (any, error) {
	kind, ok := fields[c.Field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidSpec, c.Field)
	}
	if !ops[c.Op] {
		return nil, fmt.Errorf("%w: unsupported operator %q on %s", ErrInvalidSpec, c.Op, c.Field)
	}

	switch kind {
	case kindInt:
		v, err := toInt(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, c.Field, err)
		}
		return v, nil
	case kindFloat:
		v, err := toFloat(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, c.Field, err)
		}
		return v, nil
	case kindDate:
		v, err := toDate(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, c.Field, err)
		}
		return d.bindDate(v), nil
	default:
		s, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want string, got %T", ErrInvalidSpec, c.Field, c.Value)
		}
		return s, nil
	}
}

const selectColumns = `SELECT id, date, metal, price, macd, macd_signal, rsi FROM metal_prices`

func (s Spec) build(d dialect) (string, []any, error) {
	var b strings.Builder
	b.WriteString(selectColumns)

	args := make([]any, 0, len(s.Conditions))
	for i, c := range s.Conditions {
		v, err := c.bind(d)
		if err != nil {
			return "", nil, fmt.Errorf("condition %d: %w", i, err)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, v)
		fmt.Fprintf(&b, "%s %s %s", c.Field, c.Op, d.placeholder(len(args)))
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args, nil
}

// queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (d *DB) read(ctx context.Context, q queryer, s Spec) ([]market.Record, error) {
	query, args, err := s.build(d.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []market.Record{}
	for rows.Next() {
		var rec market.Record
		var date any
		var price, macd, signal, rsi null.Float
		if err := rows.Scan(&rec.ID, &date, &rec.Metal, &price, &macd, &signal, &rsi); err != nil {
			return nil, err
		}
		if rec.Date, err = scanTime(date); err != nil {
			return nil, fmt.Errorf("row %d: %w", rec.ID, err)
		}
		rec.Price = floatOrNaN(price)
		rec.MACD = floatOrNaN(macd)
		rec.MACDSignal = floatOrNaN(signal)
		rec.RSI = floatOrNaN(rsi)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Query runs a single spec on a pooled connection.
func (d *DB) Query(ctx context.Context, s Spec) ([]market.Record, error) {
	return d.read(ctx, d.db, s)
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func toDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		t, err := time.Parse(market.DateLayout, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, fmt.Errorf("want %s date, got %q", market.DateLayout, x)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("want date, got %T", v)
}
