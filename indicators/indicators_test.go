package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedFormEMA evaluates the renormalised EMA directly from its definition.
func closedFormEMA(xs []float64, span int) []float64 {
	decay := 1 - 2/float64(span+1)
	out := make([]float64, len(xs))
	for i := range xs {
		var num, den float64
		for j := 0; j <= i; j++ {
			w := math.Pow(decay, float64(i-j))
			num += w * xs[j]
			den += w
		}
		out[i] = num / den
	}
	return out
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		errMsg string
	}{
		{"defaults", DefaultParams(), ""},
		{"zero slow", Params{Slow: 0, Fast: 12, Signal: 9, RSIWindow: 14}, "slow span"},
		{"negative fast", Params{Slow: 26, Fast: -1, Signal: 9, RSIWindow: 14}, "fast span"},
		{"zero signal", Params{Slow: 26, Fast: 12, Signal: 0, RSIWindow: 14}, "signal span"},
		{"zero rsi", Params{Slow: 26, Fast: 12, Signal: 9, RSIWindow: 0}, "rsi window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestComputeLengths(t *testing.T) {
	for _, n := range []int{0, 1, 2, 13, 14, 15, 60} {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 100 + math.Sin(float64(i))
		}

		s := Compute(prices, DefaultParams())
		assert.Len(t, s.MACD, n)
		assert.Len(t, s.Signal, n)
		assert.Len(t, s.RSI, n)
		assert.Equal(t, n, s.Len())
	}
}

func TestComputeFirstPoint(t *testing.T) {
	s := Compute([]float64{42.5}, DefaultParams())

	require.Equal(t, 1, s.Len())
	// Both EMAs equal the price, so the MACD and its signal are exactly 0.
	assert.Equal(t, 0.0, s.MACD[0])
	assert.Equal(t, 0.0, s.Signal[0])
	assert.True(t, math.IsNaN(s.RSI[0]))
}

func TestEMAFirstValueIsPrice(t *testing.T) {
	for _, span := range []int{1, 2, 9, 26} {
		out := EMA([]float64{17.25, 18, 19}, span)
		assert.Equal(t, 17.25, out[0], "span %d", span)
	}
}

func TestEMAMatchesClosedForm(t *testing.T) {
	prices := []float64{101.5, 99.25, 100, 104.75, 103, 98.5, 97, 102.25, 105, 106.5, 104, 103.75}

	for _, span := range []int{2, 3, 5, 12, 26} {
		got := EMA(prices, span)
		want := closedFormEMA(prices, span)
		require.Len(t, got, len(want))
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-9, "span %d index %d", span, i)
		}
	}
}

func TestDecayEMAStreaming(t *testing.T) {
	e := NewDecayEMA(3)

	// span 3 => alpha 0.5, decay 0.5
	//  10                          -> 10
	// (0.5*10 + 11) / 1.5          -> 10.6667
	// (0.25*10 + 0.5*11 + 12)/1.75 -> 11.4286
	assert.Equal(t, 10.0, e.Update(10))
	assert.InDelta(t, 32.0/3.0, e.Update(11), 1e-12)
	assert.InDelta(t, 20.0/1.75, e.Update(12), 1e-12)
}

func TestNewDecayEMAPanicsOnBadSpan(t *testing.T) {
	assert.Panics(t, func() { NewDecayEMA(0) })
}

func TestComputeSmallSpansScenario(t *testing.T) {
	prices := []float64{10, 11, 9, 12, 13}
	s := Compute(prices, Params{Slow: 3, Fast: 2, Signal: 2, RSIWindow: 3})

	// Exact fractions from the closed form:
	// fast EMA  = 10, 43/4, 124/13, 56/5, 1501/121
	// slow EMA  = 10, 32/3, 68/7, 164/15, 12
	wantMACD := []float64{0, 1.0 / 12, -16.0 / 91, 4.0 / 15, 49.0 / 121}
	wantSignal := []float64{0, 1.0 / 16, -485.0 / 4732, 10679.0 / 72800, 8515739.0 / 26646620}

	for i := range prices {
		assert.InDelta(t, wantMACD[i], s.MACD[i], 1e-12, "macd[%d]", i)
		assert.InDelta(t, wantSignal[i], s.Signal[i], 1e-12, "signal[%d]", i)
	}

	// gains  = 0, 1, 0, 3, 1
	// losses = 0, 0, 2, 0, 0
	// i=2: 1/3 vs 2/3 -> rs 0.5 -> 33.33
	// i=3: 4/3 vs 2/3 -> rs 2   -> 66.67
	// i=4: 4/3 vs 2/3 -> rs 2   -> 66.67
	assert.True(t, math.IsNaN(s.RSI[0]))
	assert.True(t, math.IsNaN(s.RSI[1]))
	assert.InDelta(t, 100.0/3, s.RSI[2], 1e-9)
	assert.InDelta(t, 200.0/3, s.RSI[3], 1e-9)
	assert.InDelta(t, 200.0/3, s.RSI[4], 1e-9)

	again := Compute(prices, Params{Slow: 3, Fast: 2, Signal: 2, RSIWindow: 3})
	assert.Equal(t, s.MACD, again.MACD)
	assert.Equal(t, s.Signal, again.Signal)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	prices := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	orig := append([]float64(nil), prices...)

	Compute(prices, Params{Slow: 4, Fast: 2, Signal: 3, RSIWindow: 3})
	assert.Equal(t, orig, prices)
}
