// Package cellref implements the addressing and value model shared by every
// component that touches a cell: canonical (column, row) coordinates, closed
// A1-style ranges, and the tagged cell-value variant.
package cellref

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// MaxCol and MaxRow are the OOXML worksheet bounds.
const (
	MaxCol = 16384 // XFD
	MaxRow = 1048576
)

// Address is a 1-based (column, row) coordinate.
type Address struct {
	Col int
	Row int
}

// ParseAddress parses an A1-style cell reference such as "B7".
func ParseAddress(s string) (Address, error) {
	col, row, err := excelize.CellNameToCoordinates(s)
	if err != nil {
		return Address{}, fmt.Errorf("cellref: invalid address %q: %w", s, err)
	}
	a := Address{Col: col, Row: row}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate reports whether the address falls within sheet bounds.
func (a Address) Validate() error {
	if a.Col < 1 || a.Col > MaxCol {
		return fmt.Errorf("cellref: column %d out of range [1,%d]", a.Col, MaxCol)
	}
	if a.Row < 1 || a.Row > MaxRow {
		return fmt.Errorf("cellref: row %d out of range [1,%d]", a.Row, MaxRow)
	}
	return nil
}

// String renders the address back to A1 notation.
func (a Address) String() string {
	s, err := excelize.CoordinatesToCellName(a.Col, a.Row)
	if err != nil {
		return fmt.Sprintf("?%d,%d?", a.Col, a.Row)
	}
	return s
}

// Offset returns the address shifted by (dCol, dRow), without bounds checking.
func (a Address) Offset(dCol, dRow int) Address {
	return Address{Col: a.Col + dCol, Row: a.Row + dRow}
}
