// Package diff computes cell, table, and named-range changesets between a
// fork's workbook and its base, per spec.md §4.6 (Component H).
package diff

import (
	"math"
	"sort"

	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/vinodismyname/mcpxcel/pkg/pagination"
	"github.com/xuri/excelize/v2"
)

// ChangeType tags the nature of a single diffed entity.
type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// CellDiff describes one cell whose value or formula differs between base
// and fork.
type CellDiff struct {
	Sheet      string
	Address    cellref.Address
	ChangeType ChangeType
	Before     *cellref.Value
	After      *cellref.Value
}

// TableDiff describes a named-table range or structural change.
type TableDiff struct {
	Name        string
	ChangeType  ChangeType
	BeforeRange string
	AfterRange  string
}

// NamedRangeDiff describes a defined-name add, remove, or redefine.
type NamedRangeDiff struct {
	Name        string
	ChangeType  ChangeType
	BeforeRefTo string
	AfterRefTo  string
}

// Changeset is the full result of a GetChangeset call, one page at a time.
type Changeset struct {
	Cells       []CellDiff
	Tables      []TableDiff
	NamedRanges []NamedRangeDiff
	NextOffset  *int
}

// Filters narrows a changeset computation: which sheets to consider (nil/
// empty means every sheet present in either workbook), which granularities to
// include, and a cells-granularity page window.
type Filters struct {
	Sheets      []string
	Cells       bool
	Tables      bool
	NamedRanges bool
	Limit       int
	Offset      int
}

// epsilon is the absolute tolerance applied to floating-point comparisons
// before a cell is reported as modified (spec.md §9 Open Question, resolved
// in DESIGN.md).
const epsilon = 1e-9

// defaultLimit bounds the number of cell diffs returned per page when
// filters.Limit is unset.
const defaultLimit = 500

// GetChangeset walks the union of non-empty cells across base and fork,
// plus their tables and defined names, and reports what differs. Cell diffs
// are paginated via pkg/pagination.Cursor semantics (offset/limit, unit
// "cells"); table and named-range diffs are small and returned in full with
// every page.
func GetChangeset(base, fork *workbook.Handle, filters Filters) (Changeset, error) {
	var out Changeset

	sheets := filters.Sheets
	if len(sheets) == 0 {
		sheets = commonSheets(base.File, fork.File)
	}

	wantCells := filters.Cells || (!filters.Cells && !filters.Tables && !filters.NamedRanges)
	wantTables := filters.Tables || (!filters.Cells && !filters.Tables && !filters.NamedRanges)
	wantNamed := filters.NamedRanges || (!filters.Cells && !filters.Tables && !filters.NamedRanges)

	if wantCells {
		all, err := cellDiffs(base.File, fork.File, sheets)
		if err != nil {
			return Changeset{}, err
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].Sheet != all[j].Sheet {
				return all[i].Sheet < all[j].Sheet
			}
			if all[i].Address.Row != all[j].Address.Row {
				return all[i].Address.Row < all[j].Address.Row
			}
			return all[i].Address.Col < all[j].Address.Col
		})

		limit := filters.Limit
		if limit <= 0 {
			limit = defaultLimit
		}
		offset := filters.Offset
		if offset < 0 {
			offset = 0
		}
		if offset > len(all) {
			offset = len(all)
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		out.Cells = all[offset:end]
		if end < len(all) {
			next := end
			out.NextOffset = &next
		}
	}

	if wantTables {
		out.Tables = tableDiffs(base.File, fork.File, sheets)
	}

	if wantNamed {
		out.NamedRanges = namedRangeDiffs(base.File, fork.File)
	}

	return out, nil
}

func commonSheets(base, fork *excelize.File) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range base.GetSheetList() {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range fork.GetSheetList() {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// cellDiffs walks every sheet present in either workbook and compares the
// union of non-empty cells, the same streaming-row approach
// internal/insights/detect_tables.go uses for sheet scans.
func cellDiffs(base, fork *excelize.File, sheets []string) ([]CellDiff, error) {
	var out []CellDiff
	for _, sheet := range sheets {
		baseCells, err := nonEmptyCells(base, sheet)
		if err != nil {
			return nil, err
		}
		forkCells, err := nonEmptyCells(fork, sheet)
		if err != nil {
			return nil, err
		}

		union := make(map[cellref.Address]struct{}, len(baseCells)+len(forkCells))
		for addr := range baseCells {
			union[addr] = struct{}{}
		}
		for addr := range forkCells {
			union[addr] = struct{}{}
		}

		for addr := range union {
			before, hasBefore := baseCells[addr]
			after, hasAfter := forkCells[addr]

			switch {
			case hasBefore && !hasAfter:
				b := before
				out = append(out, CellDiff{Sheet: sheet, Address: addr, ChangeType: Removed, Before: &b})
			case !hasBefore && hasAfter:
				a := after
				out = append(out, CellDiff{Sheet: sheet, Address: addr, ChangeType: Added, After: &a})
			default:
				if !valuesEqual(before, after) {
					b, a := before, after
					out = append(out, CellDiff{Sheet: sheet, Address: addr, ChangeType: Modified, Before: &b, After: &a})
				}
			}
		}
	}
	return out, nil
}

func nonEmptyCells(file *excelize.File, sheet string) (map[cellref.Address]cellref.Value, error) {
	out := make(map[cellref.Address]cellref.Value)
	rows, err := file.Rows(sheet)
	if err != nil {
		// sheet absent from one of the two workbooks: treat as empty rather
		// than failing the whole changeset.
		return out, nil
	}
	defer rows.Close()

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
			v, err := cellValue(file, sheet, cellName)
			if err != nil {
				continue
			}
			if v.IsEmpty() {
				continue
			}
			out[cellref.Address{Col: c + 1, Row: r}] = v
		}
	}
	return out, rows.Error()
}

// cellValue reads a cell as a formula value (carrying its cached result)
// when it holds one, otherwise as a conservatively re-typed literal.
func cellValue(file *excelize.File, sheet, cellName string) (cellref.Value, error) {
	formula, err := file.GetCellFormula(sheet, cellName)
	if err != nil {
		return cellref.Value{}, err
	}
	raw, err := file.GetCellValue(sheet, cellName)
	if err != nil {
		return cellref.Value{}, err
	}
	if formula != "" {
		cached := cellref.ParseLiteral(raw)
		return cellref.FormulaValue(formula, &cached), nil
	}
	return cellref.ParseLiteral(raw), nil
}

// valuesEqual compares two cell values, rounding floats (and formula cached
// results) to epsilon before comparing, and comparing formulas by their
// normalized expression and then by their cached result.
func valuesEqual(a, b cellref.Value) bool {
	if a.Kind == cellref.KindFormula && b.Kind == cellref.KindFormula {
		if normalizeFormula(a.Formula.Expression) != normalizeFormula(b.Formula.Expression) {
			return false
		}
		return cachedResultsEqual(a.Formula.Cached, b.Formula.Cached)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case cellref.KindFloat:
		return math.Abs(a.Float-b.Float) <= epsilon
	case cellref.KindInt:
		return a.Int == b.Int
	case cellref.KindBool:
		return a.Bool == b.Bool
	case cellref.KindText:
		return a.Text == b.Text
	case cellref.KindDate:
		return a.Date.Equal(b.Date)
	case cellref.KindError:
		return a.ErrText == b.ErrText
	default:
		return true
	}
}

// cachedResultsEqual compares two formulas' last-known cached results,
// treating a missing cache on either side as equal only when both are
// missing: a formula that now has a cached result it previously lacked (or
// vice versa, after an overwrite invalidated it) is itself a reportable
// change, per spec.md §8 scenario 3.
func cachedResultsEqual(a, b *cellref.Value) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return valuesEqual(*a, *b)
}

func normalizeFormula(expr string) string {
	out := make([]byte, 0, len(expr))
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == ' ' || c == '\t' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func tableDiffs(base, fork *excelize.File, sheets []string) []TableDiff {
	var out []TableDiff
	for _, sheet := range sheets {
		baseTables := tablesByName(base, sheet)
		forkTables := tablesByName(fork, sheet)

		names := make(map[string]struct{})
		for n := range baseTables {
			names[n] = struct{}{}
		}
		for n := range forkTables {
			names[n] = struct{}{}
		}
		sorted := make([]string, 0, len(names))
		for n := range names {
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)

		for _, name := range sorted {
			before, hasBefore := baseTables[name]
			after, hasAfter := forkTables[name]
			switch {
			case hasBefore && !hasAfter:
				out = append(out, TableDiff{Name: name, ChangeType: Removed, BeforeRange: before})
			case !hasBefore && hasAfter:
				out = append(out, TableDiff{Name: name, ChangeType: Added, AfterRange: after})
			case before != after:
				out = append(out, TableDiff{Name: name, ChangeType: Modified, BeforeRange: before, AfterRange: after})
			}
		}
	}
	return out
}

func tablesByName(file *excelize.File, sheet string) map[string]string {
	out := make(map[string]string)
	tables, err := file.GetTables(sheet)
	if err != nil {
		return out
	}
	for _, t := range tables {
		out[t.Name] = t.Range
	}
	return out
}

func namedRangeDiffs(base, fork *excelize.File) []NamedRangeDiff {
	baseNames := definedNamesByName(base)
	forkNames := definedNamesByName(fork)

	names := make(map[string]struct{})
	for n := range baseNames {
		names[n] = struct{}{}
	}
	for n := range forkNames {
		names[n] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var out []NamedRangeDiff
	for _, name := range sorted {
		before, hasBefore := baseNames[name]
		after, hasAfter := forkNames[name]
		switch {
		case hasBefore && !hasAfter:
			out = append(out, NamedRangeDiff{Name: name, ChangeType: Removed, BeforeRefTo: before})
		case !hasBefore && hasAfter:
			out = append(out, NamedRangeDiff{Name: name, ChangeType: Added, AfterRefTo: after})
		case before != after:
			out = append(out, NamedRangeDiff{Name: name, ChangeType: Modified, BeforeRefTo: before, AfterRefTo: after})
		}
	}
	return out
}

func definedNamesByName(file *excelize.File) map[string]string {
	out := make(map[string]string)
	for _, dn := range file.GetDefinedName() {
		out[dn.Name] = dn.RefersTo
	}
	return out
}

// EncodeCursor mints a resumable pkg/pagination token for a cells-granularity
// changeset page (range "changeset", unit "cells").
func EncodeCursor(workbookID, sheet string, offset, limit int, workbookVersion int64, issuedAt int64) (string, error) {
	return pagination.EncodeCursor(pagination.Cursor{
		Wid: workbookID,
		S:   sheet,
		R:   "changeset",
		U:   pagination.UnitCells,
		Off: offset,
		Ps:  limit,
		Wbv: workbookVersion,
		Iat: issuedAt,
	})
}
