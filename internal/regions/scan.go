package regions

import (
	"strings"

	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/xuri/excelize/v2"
)

// grid is the stage-1 occupancy scan of a sheet: per-cell presence, raw
// values (for header/type sniffing), and formula markers, bounded to a
// scan budget the caller supplies.
type grid struct {
	rows, cols int
	// Grid-local 0-based indices map to 1-based sheet coordinates by adding
	// 1 (scans always start at sheet row/col 1).
	present  [][]bool
	values   [][]string
	formula  [][]bool
	rowCount []int // non-empty cells per row
	colCount []int // non-empty cells per column
}

// scanSheet performs the used-range scan (stage 1): walks all non-empty
// cells via excelize's streaming row iterator, bounded by maxRows/maxCols
// (a cell budget, mirroring the teacher's MaxCellsPerOp guardrail).
func scanSheet(f *excelize.File, sheet string, maxRows, maxCols int) (*grid, error) {
	if maxRows <= 0 {
		maxRows = 2000
	}
	if maxCols <= 0 {
		maxCols = 256
	}

	g := &grid{rows: maxRows, cols: maxCols}
	g.present = make([][]bool, maxRows)
	g.values = make([][]string, maxRows)
	g.formula = make([][]bool, maxRows)
	g.rowCount = make([]int, maxRows)
	g.colCount = make([]int, maxCols)
	for i := range g.present {
		g.present[i] = make([]bool, maxCols)
		g.values[i] = make([]string, maxCols)
		g.formula[i] = make([]bool, maxCols)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rowIdx := 0
	for rows.Next() {
		if rowIdx >= maxRows {
			break
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		for c := 0; c < maxCols && c < len(cols); c++ {
			v := strings.TrimSpace(cols[c])
			if v == "" {
				continue
			}
			g.present[rowIdx][c] = true
			g.values[rowIdx][c] = v
			g.rowCount[rowIdx]++
			g.colCount[c]++
		}
		rowIdx++
	}
	if err := rows.Error(); err != nil {
		return nil, err
	}
	g.rows = rowIdx
	if g.rows == 0 {
		return g, nil
	}

	// Mark formula cells using the raw cell formula lookup; bounded to the
	// occupied region actually scanned to stay within the cell budget.
	for r := 0; r < g.rows; r++ {
		for c := 0; c < maxCols; c++ {
			if !g.present[r][c] {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			if formula, ferr := f.GetCellFormula(sheet, cellName); ferr == nil && formula != "" {
				g.formula[r][c] = true
			}
		}
	}
	return g, nil
}

// usedRange returns the tight bounding box of non-empty cells, or false if
// the grid is entirely empty.
func (g *grid) usedRange() (cellref.Range, bool) {
	minR, maxR, minC, maxC := -1, -1, -1, -1
	for r := 0; r < g.rows; r++ {
		if g.rowCount[r] == 0 {
			continue
		}
		if minR == -1 {
			minR = r
		}
		maxR = r
	}
	for c := 0; c < g.cols; c++ {
		if g.colCount[c] == 0 {
			continue
		}
		if minC == -1 {
			minC = c
		}
		maxC = c
	}
	if minR == -1 || minC == -1 {
		return cellref.Range{}, false
	}
	return cellref.NewRange(
		cellref.Address{Col: minC + 1, Row: minR + 1},
		cellref.Address{Col: maxC + 1, Row: maxR + 1},
	), true
}

// nonEmptyCount counts occupied cells within a 0-based sub-rectangle
// [r1,r2]x[c1,c2], inclusive.
func (g *grid) nonEmptyCount(r1, c1, r2, c2 int) int {
	n := 0
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			if g.present[r][c] {
				n++
			}
		}
	}
	return n
}

// formulaCount counts formula cells within the same sub-rectangle.
func (g *grid) formulaCount(r1, c1, r2, c2 int) int {
	n := 0
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			if g.formula[r][c] {
				n++
			}
		}
	}
	return n
}

// textCount counts non-empty cells within the same sub-rectangle whose
// literal value parses as text (as opposed to a number or date).
func (g *grid) textCount(r1, c1, r2, c2 int) int {
	n := 0
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			if g.present[r][c] && cellref.ParseLiteral(g.values[r][c]).Kind == cellref.KindText {
				n++
			}
		}
	}
	return n
}
