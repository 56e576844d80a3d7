package regions

import (
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/xuri/excelize/v2"
)

// Options bounds the used-range scan (stage 1) to a practical cell budget,
// mirroring the teacher's MaxCellsPerOp guardrail.
type Options struct {
	MaxScanRows int
	MaxScanCols int
	MaxCells    int
}

// Detect runs the eight-stage region-detection pipeline of spec.md §4.2
// against sheet and returns dense, stable region ids (1-based, in scan
// order). Callers needing the spec's caching semantics should key the
// result by (workbook_id, sheet_name, sheet_version); internal/workbook
// provides that caching via Handle.Regions.
func Detect(f *excelize.File, sheet string, opts Options) ([]Region, error) {
	maxRows, maxCols := opts.MaxScanRows, opts.MaxScanCols
	budget := opts.MaxCells
	if budget <= 0 {
		budget = 10_000
	}
	if maxRows <= 0 {
		maxRows = 2000
	}
	if maxCols <= 0 {
		maxCols = 256
	}
	for maxRows*maxCols > budget {
		if maxRows > maxCols {
			maxRows--
		} else {
			maxCols--
		}
	}

	g, err := scanSheet(f, sheet, maxRows, maxCols)
	if err != nil {
		return nil, err
	}

	used, ok := g.usedRange()
	if !ok {
		return nil, nil
	}

	root := rect{r1: used.Lo.Row - 1, c1: used.Lo.Col - 1, r2: used.Hi.Row - 1, c2: used.Hi.Col - 1}
	leaves := splitRect(g, root)

	var out []Region
	var nextID uint32 = 1
	for _, leaf := range leaves {
		trimmed := trimBorders(g, leaf, tauEdge)
		nonEmpty := g.nonEmptyCount(trimmed.r1, trimmed.c1, trimmed.r2, trimmed.c2)
		if nonEmpty == 0 {
			continue
		}

		headerRows := inferHeaderRows(g, trimmed)
		orientation := detectOrientation(g, trimmed, headerRows)
		formulas := g.formulaCount(trimmed.r1, trimmed.c1, trimmed.r2, trimmed.c2)

		fRatio := 0.0
		textRatio := 0.0
		if nonEmpty > 0 {
			fRatio = float64(formulas) / float64(nonEmpty)
			textRatio = float64(g.textCount(trimmed.r1, trimmed.c1, trimmed.r2, trimmed.c2)) / float64(nonEmpty)
		}
		width := trimmed.cols()
		kind := classify(fRatio, nonEmpty, width, orientation, textRatio)

		hScore := 0.0
		if headerRows > 0 {
			hScore = headerScore(g, trimmed.r1+headerRows-1, trimmed.c1, trimmed.c2)
		}
		density := float64(nonEmpty) / float64(trimmed.cells())
		conf := confidence(hScore, fRatio, kind, density, width, trimmed.rows())

		bounds := cellrefFromRect(trimmed)
		out = append(out, Region{
			ID:          nextID,
			Sheet:       sheet,
			Bounds:      bounds,
			Kind:        kind,
			Confidence:  conf,
			HeaderRows:  headerRows,
			Orientation: orientation,
		})
		nextID++
	}
	return out, nil
}

// cellrefFromRect converts a 0-based internal rect to a 1-based cellref.Range.
func cellrefFromRect(rc rect) cellref.Range {
	return cellref.NewRange(
		cellref.Address{Col: rc.c1 + 1, Row: rc.r1 + 1},
		cellref.Address{Col: rc.c2 + 1, Row: rc.r2 + 1},
	)
}
