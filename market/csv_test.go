package market

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteCSV(&buf, []Record{
		{ID: 1, Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Metal: "GOLD", Price: 1898.36, RSI: math.NaN()},
		{ID: 2, Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Metal: "SILVER", Price: 26.41, MACD: -0.125, MACDSignal: 0.5, RSI: 55},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"1", "2021-01-01", "GOLD", "1898.360000", "0.000000", "0.000000", ""}, rows[1])
	assert.Equal(t, []string{"2", "2021-01-01", "SILVER", "26.410000", "-0.125000", "0.500000", "55.000000"}, rows[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "id,date,metal,price,macd,macd_signal,rsi\n", buf.String())
}
