package market

import "fmt"

// InputShapeError reports a price table or indicator set that does not
// line up: a missing column, a bad cell, a ragged row or out-of-order
// dates. Row is the 1-based data row (0 when the problem is not tied to a
// single row); Column is the header name or metal.
type InputShapeError struct {
	Row    int
	Column string
	Reason string
}

func (e *InputShapeError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("input shape: row %d, column %q: %s", e.Row, e.Column, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("input shape: row %d: %s", e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("input shape: column %q: %s", e.Column, e.Reason)
	}
	return "input shape: " + e.Reason
}
