package market

import (
	"fmt"
	"math"
	"strings"
)

// FormatOrg renders records as an Org-mode table under a heading, ready to
// paste into notes. NaN indicator values show as empty cells.
func FormatOrg(heading string, records []Record) string {
	var b strings.Builder
	if heading != "" {
		fmt.Fprintf(&b, "** %s (%d rows)\n", heading, len(records))
	}
	b.WriteString("| id | date | metal | price | macd | macd_signal | rsi |\n")
	b.WriteString("|----+------+-------+-------+------+-------------+-----|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			r.ID, r.Date.Format(DateLayout), r.Metal,
			orgNum(r.Price, 4), orgNum(r.MACD, 4), orgNum(r.MACDSignal, 4), orgNum(r.RSI, 2))
	}
	return b.String()
}

func orgNum(x float64, prec int) string {
	if math.IsNaN(x) {
		return ""
	}
	return fmt.Sprintf("%.*f", prec, x)
}
