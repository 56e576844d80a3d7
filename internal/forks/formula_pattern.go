package forks

import (
	"time"

	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
)

// ApplyFormulaPattern extrapolates the formula at source across target,
// rewriting relative references by the offset from source to each target
// cell (standard spreadsheet relative-offset autofill semantics); absolute
// ($-prefixed) references are preserved, and tokens that are not plain cell
// references (named ranges, structured references) pass through verbatim
// per rewriteFormulaOffset's guards. Runs as a plain edit batch so it
// shares ApplyEdits' journal/recalc_needed bookkeeping.
func (f *Fork) ApplyFormulaPattern(sheet string, source cellref.Address, target cellref.Range, origin Origin, now func() time.Time) (ChangeSummary, error) {
	f.mu.Lock()
	file := f.handle.File
	sourceFormula, err := file.GetCellFormula(sheet, source.String())
	f.mu.Unlock()
	if err != nil || sourceFormula == "" {
		return ChangeSummary{}, mcperr.New(mcperr.InvalidParams, "no formula at source %s", source.String())
	}

	raw := make([]RawEdit, 0, target.Cells())
	for row := target.Lo.Row; row <= target.Hi.Row; row++ {
		for col := target.Lo.Col; col <= target.Hi.Col; col++ {
			addr := cellref.Address{Col: col, Row: row}
			if addr == source {
				continue
			}
			dCol := addr.Col - source.Col
			dRow := addr.Row - source.Row
			rewritten := rewriteFormulaOffset(sourceFormula, dCol, dRow)
			raw = append(raw, RawEdit{Address: addr.String(), Formula: rewritten})
		}
	}

	return f.ApplyBatch(sheet, raw, origin, now)
}
