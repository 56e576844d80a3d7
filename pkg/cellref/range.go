package cellref

import (
	"fmt"
	"strings"
)

// Range is a closed rectangular interval (Lo,Hi inclusive). A single cell is
// represented as a degenerate range where Lo == Hi.
type Range struct {
	Lo Address
	Hi Address
}

// ParseRange parses an A1-style range ("A1:D50") or a single cell ("A1"),
// normalizing so Lo is always the top-left and Hi the bottom-right corner.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("cellref: empty range")
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		a, err := ParseAddress(parts[0])
		if err != nil {
			return Range{}, err
		}
		return Range{Lo: a, Hi: a}, nil
	case 2:
		a, err := ParseAddress(parts[0])
		if err != nil {
			return Range{}, err
		}
		b, err := ParseAddress(parts[1])
		if err != nil {
			return Range{}, err
		}
		return NewRange(a, b), nil
	default:
		return Range{}, fmt.Errorf("cellref: invalid range %q", s)
	}
}

// NewRange normalizes two corner addresses into a closed range.
func NewRange(a, b Address) Range {
	lo := Address{Col: min(a.Col, b.Col), Row: min(a.Row, b.Row)}
	hi := Address{Col: max(a.Col, b.Col), Row: max(a.Row, b.Row)}
	return Range{Lo: lo, Hi: hi}
}

// String renders the range in A1 notation, collapsing degenerate ranges to a
// single cell reference.
func (r Range) String() string {
	if r.Lo == r.Hi {
		return r.Lo.String()
	}
	return r.Lo.String() + ":" + r.Hi.String()
}

// Width is the number of columns spanned.
func (r Range) Width() int { return r.Hi.Col - r.Lo.Col + 1 }

// Height is the number of rows spanned.
func (r Range) Height() int { return r.Hi.Row - r.Lo.Row + 1 }

// Cells is the total cell count spanned by the range.
func (r Range) Cells() int { return r.Width() * r.Height() }

// Contains reports whether addr falls inside the closed range.
func (r Range) Contains(addr Address) bool {
	return addr.Col >= r.Lo.Col && addr.Col <= r.Hi.Col &&
		addr.Row >= r.Lo.Row && addr.Row <= r.Hi.Row
}

// Overlaps reports whether the two ranges share at least one cell.
func (r Range) Overlaps(o Range) bool {
	if r.Hi.Col < o.Lo.Col || o.Hi.Col < r.Lo.Col {
		return false
	}
	if r.Hi.Row < o.Lo.Row || o.Hi.Row < r.Lo.Row {
		return false
	}
	return true
}

// Union returns the smallest range containing both r and o.
func (r Range) Union(o Range) Range {
	return NewRange(
		Address{Col: min(r.Lo.Col, o.Lo.Col), Row: min(r.Lo.Row, o.Lo.Row)},
		Address{Col: max(r.Hi.Col, o.Hi.Col), Row: max(r.Hi.Row, o.Hi.Row)},
	)
}
