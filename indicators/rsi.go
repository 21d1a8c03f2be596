package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RSI returns the relative strength index of prices using simple rolling
// means of gains and losses over window points.
//
// The first price has no predecessor; it contributes a zero gain and a
// zero loss. The first window-1 outputs are NaN. A window with no losses
// gives RSI 100, a window with no movement at all gives NaN (0/0).
func RSI(prices []float64, window int) []float64 {
	if window <= 0 {
		panic("RSI window must be > 0")
	}

	gains, losses := gainsAndLosses(prices)

	out := make([]float64, len(prices))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		avgGain := stat.Mean(gains[i-window+1:i+1], nil)
		avgLoss := stat.Mean(losses[i-window+1:i+1], nil)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func gainsAndLosses(prices []float64) (gains, losses []float64) {
	gains = make([]float64, len(prices))
	losses = make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}
	return gains, losses
}

// rsiFromAverages relies on IEEE division: x/0 is +Inf, which maps to 100.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
