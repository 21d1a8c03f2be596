package indicators

// DecayEMA is a streaming exponential moving average whose weights are
// renormalised over the history seen so far:
//
//	EMA_i = sum_j (1-a)^(i-j) * x_j / sum_j (1-a)^(i-j),  a = 2/(span+1)
//
// The first value therefore equals the first input exactly, and early
// values do not lean towards zero the way an unadjusted recurrence does.
type DecayEMA struct {
	decay float64
	num   float64
	den   float64
}

// NewDecayEMA returns an empty EMA with the given span.
func NewDecayEMA(span int) *DecayEMA {
	if span <= 0 {
		panic("EMA span must be > 0")
	}
	return &DecayEMA{decay: 1.0 - 2.0/float64(span+1)}
}

// Update folds x into the average and returns the new value. A NaN input
// yields NaN and leaves the running sums poisoned, as it would in the
// closed-form sum.
func (e *DecayEMA) Update(x float64) float64 {
	e.num = e.decay*e.num + x
	e.den = e.decay*e.den + 1
	return e.num / e.den
}

// EMA returns the decay-adjusted EMA of xs with the given span.
func EMA(xs []float64, span int) []float64 {
	e := NewDecayEMA(span)
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = e.Update(x)
	}
	return out
}
