package market

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-day form dates take in the store and the API.
const DateLayout = "2006-01-02"

// Record is one (date, metal) row of the metal_prices relation: the closing
// price and the indicator values derived from that metal's history.
//
// ID is zero until the store assigns one on insert. Indicator fields may be
// NaN while a series is warming up.
type Record struct {
	ID         int64
	Date       time.Time
	Metal      string
	Price      float64
	MACD       float64
	MACDSignal float64
	RSI        float64
}

func (r Record) String() string {
	return fmt.Sprintf("%d %s %s price=%.4f macd=%.4f signal=%.4f rsi=%.2f",
		r.ID, r.Date.Format(DateLayout), r.Metal, r.Price, r.MACD, r.MACDSignal, r.RSI)
}

// recordJSON is the wire form. JSON has no NaN or Inf, so those go out as
// null and come back as NaN.
type recordJSON struct {
	ID         int64      `json:"id"`
	Date       string     `json:"date"`
	Metal      string     `json:"metal"`
	Price      null.Float `json:"price"`
	MACD       null.Float `json:"macd"`
	MACDSignal null.Float `json:"macd_signal"`
	RSI        null.Float `json:"rsi"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:         r.ID,
		Date:       r.Date.Format(DateLayout),
		Metal:      r.Metal,
		Price:      finite(r.Price),
		MACD:       finite(r.MACD),
		MACDSignal: finite(r.MACDSignal),
		RSI:        finite(r.RSI),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, w.Date)
	if err != nil {
		return fmt.Errorf("record date: %w", err)
	}
	*r = Record{
		ID:         w.ID,
		Date:       d,
		Metal:      w.Metal,
		Price:      orNaN(w.Price),
		MACD:       orNaN(w.MACD),
		MACDSignal: orNaN(w.MACDSignal),
		RSI:        orNaN(w.RSI),
	}
	return nil
}

func finite(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
}

func orNaN(v null.Float) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
