package recalc

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// InProcessBackend recalculates formulas using excelize's own bundled
// calculation engine, the default backend per spec.md §4.5. It never
// shells out; cancellation is cooperative, checked between cells.
type InProcessBackend struct{}

func (InProcessBackend) Name() string { return "in_process" }

// Recalc walks every formula cell of sheet (or of all sheets when sheet is
// empty) and recalculates it via excelize's CalcCellValue, which also
// refreshes the cell's cached result in-place. Per-cell evaluation errors
// are collected rather than aborting the run; a cancelled context stops the
// walk at the next cell boundary and returns the partial Outcome alongside
// ctx.Err().
func (InProcessBackend) Recalc(ctx context.Context, file *excelize.File, sheet string) (Outcome, error) {
	sheets := []string{sheet}
	if sheet == "" {
		sheets = file.GetSheetList()
	}

	out := Outcome{Backend: "in_process"}
	for _, sh := range sheets {
		cells, err := formulaCells(file, sh)
		if err != nil {
			return out, fmt.Errorf("recalc: scan sheet %q: %w", sh, err)
		}
		for _, cell := range cells {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			default:
			}
			if _, err := file.CalcCellValue(sh, cell); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("%s!%s: %v", sh, cell, err))
				continue
			}
			out.CellsEvaluated++
		}
	}
	return out, nil
}

// formulaCells returns the A1 addresses of every cell on sheet carrying a
// formula, via excelize's streaming row iterator.
func formulaCells(file *excelize.File, sheet string) ([]string, error) {
	rows, err := file.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	r := 0
	for rows.Next() {
		r++
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		for c := range cols {
			cellName, err := excelize.CoordinatesToCellName(c+1, r)
			if err != nil {
				continue
			}
			if formula, ferr := file.GetCellFormula(sheet, cellName); ferr == nil && formula != "" {
				out = append(out, cellName)
			}
		}
	}
	return out, rows.Error()
}
