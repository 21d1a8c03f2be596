package market

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatOrg(t *testing.T) {
	t.Parallel()

	out := FormatOrg("first day", []Record{
		{ID: 1, Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Metal: "GOLD", Price: 1898.36, RSI: math.NaN()},
		{ID: 2, Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Metal: "SILVER", Price: 26.41, RSI: 61.5},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "** first day (2 rows)", lines[0])
	assert.Equal(t, "| 1 | 2021-01-01 | GOLD | 1898.3600 | 0.0000 | 0.0000 |  |", lines[3])
	assert.Equal(t, "| 2 | 2021-01-01 | SILVER | 26.4100 | 0.0000 | 0.0000 | 61.50 |", lines[4])
}

func TestFormatOrgNoHeading(t *testing.T) {
	t.Parallel()

	out := FormatOrg("", nil)
	assert.True(t, strings.HasPrefix(out, "| id |"))
}
