// Package indicators computes the MACD and RSI series stored alongside
// every price row.
//
// All functions are pure: they never mutate their input and never fail on
// numeric data. NaN is a legitimate output meaning "not enough history".
package indicators

import "fmt"

// Params holds the window sizes used by Compute.
type Params struct {
	Slow      int `json:"slow" yaml:"slow"`
	Fast      int `json:"fast" yaml:"fast"`
	Signal    int `json:"signal" yaml:"signal"`
	RSIWindow int `json:"rsi_window" yaml:"rsi_window"`
}

// DefaultParams returns the conventional 26/12/9 MACD and 14 period RSI.
func DefaultParams() Params {
	return Params{Slow: 26, Fast: 12, Signal: 9, RSIWindow: 14}
}

// Validate reports the first non-positive window.
func (p Params) Validate() error {
	switch {
	case p.Slow <= 0:
		return fmt.Errorf("slow span must be positive, got %d", p.Slow)
	case p.Fast <= 0:
		return fmt.Errorf("fast span must be positive, got %d", p.Fast)
	case p.Signal <= 0:
		return fmt.Errorf("signal span must be positive, got %d", p.Signal)
	case p.RSIWindow <= 0:
		return fmt.Errorf("rsi window must be positive, got %d", p.RSIWindow)
	}
	return nil
}

// Series is the indicator output for one price sequence. Every slice has
// the same length as the prices it was computed from.
type Series struct {
	MACD   []float64
	Signal []float64
	RSI    []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.MACD) }

// Compute derives the MACD line, its signal line and the RSI for prices.
// Callers are expected to have validated p; Compute panics on
// non-positive windows the same way NewDecayEMA does.
func Compute(prices []float64, p Params) Series {
	macd, signal := MACD(prices, p.Fast, p.Slow, p.Signal)
	return Series{
		MACD:   macd,
		Signal: signal,
		RSI:    RSI(prices, p.RSIWindow),
	}
}
