package market

import (
	"fmt"
	"time"

	"github.com/rustyeddy/metals/indicators"
)

// PriceTable is a multi-asset daily price table. Assets keeps the source
// column order; every Prices slice is aligned with Dates.
type PriceTable struct {
	Dates  []time.Time
	Assets []string
	Prices map[string][]float64
}

// NewPriceTable returns an empty table for the given assets.
func NewPriceTable(assets ...string) *PriceTable {
	t := &PriceTable{
		Assets: append([]string(nil), assets...),
		Prices: make(map[string][]float64, len(assets)),
	}
	for _, a := range assets {
		t.Prices[a] = nil
	}
	return t
}

// Len returns the number of dates in the table.
func (t *PriceTable) Len() int { return len(t.Dates) }

// Day truncates t to midnight UTC of its calendar day. The table holds one
// row per day, so any time of day is dropped.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Append adds one date with a price per asset, in Assets order. date is
// truncated to its day and must fall on a later day than the previous row.
func (t *PriceTable) Append(date time.Time, prices ...float64) error {
	date = Day(date)
	row := len(t.Dates) + 1
	if len(prices) != len(t.Assets) {
		return &InputShapeError{
			Row:    row,
			Reason: fmt.Sprintf("got %d prices for %d assets", len(prices), len(t.Assets)),
		}
	}
	if n := len(t.Dates); n > 0 && !date.After(t.Dates[n-1]) {
		return &InputShapeError{
			Row:    row,
			Reason: fmt.Sprintf("date %s is not after %s", date.Format(DateLayout), t.Dates[n-1].Format(DateLayout)),
		}
	}

	t.Dates = append(t.Dates, date)
	for i, a := range t.Assets {
		t.Prices[a] = append(t.Prices[a], prices[i])
	}
	return nil
}

// Validate checks that dates fall on strictly increasing days and that
// every asset has exactly one price per date.
func (t *PriceTable) Validate() error {
	for i := 1; i < len(t.Dates); i++ {
		if !Day(t.Dates[i]).After(Day(t.Dates[i-1])) {
			return &InputShapeError{
				Row:    i + 1,
				Reason: fmt.Sprintf("date %s is not after %s", t.Dates[i].Format(DateLayout), t.Dates[i-1].Format(DateLayout)),
			}
		}
	}

	seen := make(map[string]bool, len(t.Assets))
	for _, a := range t.Assets {
		if a == "" {
			return &InputShapeError{Reason: "empty asset name"}
		}
		if seen[a] {
			return &InputShapeError{Column: a, Reason: "duplicate asset"}
		}
		seen[a] = true

		prices, ok := t.Prices[a]
		if !ok {
			return &InputShapeError{Column: a, Reason: "no price series"}
		}
		if len(prices) != len(t.Dates) {
			return &InputShapeError{
				Column: a,
				Reason: fmt.Sprintf("%d prices for %d dates", len(prices), len(t.Dates)),
			}
		}
	}
	return nil
}

// ComputeAll runs the indicator engine over every asset of t.
func ComputeAll(t *PriceTable, p indicators.Params) map[string]indicators.Series {
	if t == nil {
		return nil
	}
	out := make(map[string]indicators.Series, len(t.Assets))
	for _, a := range t.Assets {
		out[a] = indicators.Compute(t.Prices[a], p)
	}
	return out
}

// BuildRecords flattens a validated table and its per-asset indicator
// series into records, date-major and asset-minor in column order.
//
// Any misaligned series is reported as an *InputShapeError; nothing is
// truncated or padded.
func BuildRecords(t *PriceTable, series map[string]indicators.Series) ([]Record, error) {
	if t == nil {
		return nil, &InputShapeError{Reason: "nil price table"}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	n := len(t.Dates)
	for _, a := range t.Assets {
		s, ok := series[a]
		if !ok {
			return nil, &InputShapeError{Column: a, Reason: "no indicator series"}
		}
		if len(s.MACD) != n || len(s.Signal) != n || len(s.RSI) != n {
			return nil, &InputShapeError{
				Column: a,
				Reason: fmt.Sprintf("indicator lengths macd=%d signal=%d rsi=%d for %d dates",
					len(s.MACD), len(s.Signal), len(s.RSI), n),
			}
		}
	}

	out := make([]Record, 0, n*len(t.Assets))
	for i, d := range t.Dates {
		for _, a := range t.Assets {
			s := series[a]
			out = append(out, Record{
				Date:       Day(d),
				Metal:      a,
				Price:      t.Prices[a][i],
				MACD:       s.MACD[i],
				MACDSignal: s.Signal[i],
				RSI:        s.RSI[i],
			})
		}
	}
	return out, nil
}
