// Package ingest reads multi-asset price tables from CSV.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/metals/market"
)

// DefaultDateColumn is the header expected in the first column.
const DefaultDateColumn = "Dates"

// dateLayouts are tried in order; the last one is month-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
}

// Options controls how a CSV table is read.
type Options struct {
	// DateColumn is the expected first header, matched case-insensitively.
	DateColumn string
}

// ReadFile opens path and reads it with ReadPriceTable.
func ReadFile(path string, opts Options) (*market.PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadPriceTable(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadPriceTable parses a CSV with a date column followed by one numeric
// column per metal. Shape problems are returned as *market.InputShapeError
// and are never repaired.
func ReadPriceTable(r io.Reader, opts Options) (*market.PriceTable, error) {
	dateCol := opts.DateColumn
	if dateCol == "" {
		dateCol = DefaultDateColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &market.InputShapeError{Column: dateCol, Reason: "empty input"}
	}
	if err != nil {
		return nil, err
	}

	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff")), dateCol) {
		return nil, &market.InputShapeError{Column: dateCol, Reason: "missing date column"}
	}

	assets := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		assets = append(assets, strings.TrimSpace(h))
	}
	if len(assets) == 0 {
		return nil, &market.InputShapeError{Reason: "no asset columns"}
	}

	t := market.NewPriceTable(assets...)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	prices := make([]float64, len(assets))
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(header) {
			return nil, &market.InputShapeError{
				Row:    row,
				Reason: fmt.Sprintf("%d fields, header has %d", len(rec), len(header)),
			}
		}

		date, err := parseDate(rec[0])
		if err != nil {
			return nil, &market.InputShapeError{Row: row, Column: dateCol, Reason: err.Error()}
		}

		for i, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, &market.InputShapeError{
					Row:    row,
					Column: assets[i],
					Reason: fmt.Sprintf("not a number: %q", cell),
				}
			}
			// ParseFloat accepts NaN and Inf spellings.
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &market.InputShapeError{
					Row:    row,
					Column: assets[i],
					Reason: fmt.Sprintf("not a finite price: %q", cell),
				}
			}
			prices[i] = v
		}

		if err := t.Append(date, prices...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}
