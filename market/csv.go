package market

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
)

// CSVHeader is the column order written by WriteCSV.
var CSVHeader = []string{"id", "date", "metal", "price", "macd", "macd_signal", "rsi"}

// WriteCSV writes records with a header row. NaN values are written as
// empty cells.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		err := cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Date.Format(DateLayout),
			r.Metal,
			f(r.Price),
			f(r.MACD),
			f(r.MACDSignal),
			f(r.RSI),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
