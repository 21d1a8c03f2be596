package indicators

// MACD returns the MACD line (fast EMA minus slow EMA) and the signal line
// (EMA of the MACD line). Both are as long as prices; nothing is dropped
// during warmup.
func MACD(prices []float64, fast, slow, signal int) (line, sig []float64) {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	line = make([]float64, len(prices))
	for i := range prices {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	return line, EMA(line, signal)
}
