package forks

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
	"github.com/vinodismyname/mcpxcel/pkg/validation"
	"github.com/xuri/excelize/v2"
)

// batchRequest captures the struct-level shape of a batch request for
// go-playground/validator/v10: sheet and kind are both required regardless
// of how many edits the batch carries.
type batchRequest struct {
	Sheet string `validate:"required"`
	Kind  string `validate:"required"`
}

// ChangeSummary estimates the shape of a batch operation's effect, returned
// from both preview and apply so the two can be compared for equality per
// spec.md §8.
type ChangeSummary struct {
	CellsTouched   int
	SheetsTouched  []string
	FormulasWritten int
}

// Patch is the deterministic, already-validated description of a batch
// operation's effect, computed once in preview mode and replayed verbatim
// by apply (or by a later apply_staged_change call).
type Patch struct {
	Sheet string
	Edits []RawEdit
	Kind  string
}

// PreviewBatch validates a batch of raw edits against a scratch copy of the
// fork's workbook (never mutating the fork itself) and returns a
// StagedChange describing the effect. Per spec.md §4.3, preview is strictly
// an analysis: it computes on a discarded scratch copy.
func (f *Fork) PreviewBatch(kind, sheet string, raw []RawEdit, idGen func() string, now func() time.Time) (*StagedChange, error) {
	if msg := validation.ValidateStruct(batchRequest{Sheet: sheet, Kind: kind}); msg != "" {
		return nil, mcperr.New(mcperr.InvalidParams, "%s", msg)
	}

	unlock := f.Lock()
	defer unlock()

	scratch, err := f.handle.Clone(f.handle.ID+"-scratch", now)
	if err != nil {
		return nil, mcperr.New(mcperr.Internal, "scratch clone failed: %v", err)
	}
	defer scratch.Close()

	summary, warnings, err := applyRawEditsToHandle(scratch, sheet, raw, now)
	if err != nil {
		return nil, err
	}

	sc := &StagedChange{
		ID:              idGen(),
		Kind:            kind,
		Patch:           &Patch{Sheet: sheet, Edits: raw, Kind: kind},
		EstimatedCounts: summary,
		Warnings:        warnings,
	}
	f.staged[sc.ID] = sc
	f.stagedOrder = append(f.stagedOrder, sc.ID)
	return sc, nil
}

// ApplyBatch commits a batch of raw edits directly to the fork's workbook,
// per spec.md §4.3's apply mode, returning the same ChangeSummary shape
// PreviewBatch would have produced for the identical patch.
func (f *Fork) ApplyBatch(sheet string, raw []RawEdit, origin Origin, now func() time.Time) (ChangeSummary, error) {
	if msg := validation.ValidateStruct(batchRequest{Sheet: sheet, Kind: string(origin)}); msg != "" {
		return ChangeSummary{}, mcperr.New(mcperr.InvalidParams, "%s", msg)
	}

	applied, err := f.ApplyEdits(sheet, raw, origin, now)
	if err != nil {
		return ChangeSummary{}, err
	}
	formulas := 0
	for _, e := range applied {
		if e.Value.Kind == cellref.KindFormula {
			formulas++
		}
	}
	return ChangeSummary{CellsTouched: len(applied), SheetsTouched: []string{sheet}, FormulasWritten: formulas}, nil
}

// ListStagedChanges returns every staged change not yet applied, in
// creation order.
func (f *Fork) ListStagedChanges() []*StagedChange {
	unlock := f.Lock()
	defer unlock()
	out := make([]*StagedChange, 0, len(f.stagedOrder))
	for _, id := range f.stagedOrder {
		if sc, ok := f.staged[id]; ok && !sc.Applied {
			out = append(out, sc)
		}
	}
	return out
}

// ApplyStagedChange commits a previously-previewed patch. Idempotent: a
// staged change already applied returns its recorded summary without
// mutating the fork again.
func (f *Fork) ApplyStagedChange(stagedID string, origin Origin, now func() time.Time) (ChangeSummary, error) {
	f.mu.Lock()
	sc, ok := f.staged[stagedID]
	if !ok {
		f.mu.Unlock()
		return ChangeSummary{}, mcperr.New(mcperr.NotFound, "staged change %s not known", stagedID)
	}
	if sc.Applied {
		f.mu.Unlock()
		return sc.EstimatedCounts, nil
	}
	f.mu.Unlock()

	summary, err := f.ApplyBatch(sc.Patch.Sheet, sc.Patch.Edits, origin, now)
	if err != nil {
		return ChangeSummary{}, err
	}

	unlock := f.Lock()
	defer unlock()
	sc.Applied = true
	sc.EstimatedCounts = summary
	return summary, nil
}

// DiscardStagedChange removes a staged change without applying it.
func (f *Fork) DiscardStagedChange(stagedID string) error {
	unlock := f.Lock()
	defer unlock()
	if _, ok := f.staged[stagedID]; !ok {
		return mcperr.New(mcperr.NotFound, "staged change %s not known", stagedID)
	}
	delete(f.staged, stagedID)
	for i, id := range f.stagedOrder {
		if id == stagedID {
			f.stagedOrder = append(f.stagedOrder[:i], f.stagedOrder[i+1:]...)
			break
		}
	}
	return nil
}

// applyRawEditsToHandle applies raw edits to a standalone handle (used by
// PreviewBatch's scratch copy), returning a ChangeSummary and any
// structural warnings, without touching a fork's journal or recalc flag.
func applyRawEditsToHandle(h *workbook.Handle, sheet string, raw []RawEdit, now func() time.Time) (ChangeSummary, []string, error) {
	file := h.File
	formulas := 0
	for i, r := range raw {
		addr, val, err := NormalizeEdit(r)
		if err != nil {
			if te, ok := err.(*mcperr.Error); ok {
				return ChangeSummary{}, nil, te.WithField("edits[" + strconv.Itoa(i) + "]")
			}
			return ChangeSummary{}, nil, err
		}
		cellName := addr.String()
		if val.Kind == cellref.KindFormula {
			if err := file.SetCellFormula(sheet, cellName, "="+val.Formula.Expression); err != nil {
				return ChangeSummary{}, nil, mcperr.New(mcperr.InvalidParams, "set formula at %s: %v", cellName, err)
			}
			formulas++
		} else if err := setPlainValue(file, sheet, cellName, val); err != nil {
			return ChangeSummary{}, nil, mcperr.New(mcperr.InvalidParams, "set value at %s: %v", cellName, err)
		}
	}
	return ChangeSummary{CellsTouched: len(raw), SheetsTouched: []string{sheet}, FormulasWritten: formulas}, nil, nil
}

// cellRefPattern matches an A1-style reference with optional absolute ($)
// markers on the column and row parts, e.g. "B7", "$B7", "B$7", "$B$7".
var cellRefPattern = regexp.MustCompile(`(\$?)([A-Za-z]{1,3})(\$?)([0-9]+)`)

// isIdentChar reports whether r can continue a bare identifier (name or
// function-call token), used to avoid rewriting references embedded in
// defined names or following a boundary that makes them part of one.
func isIdentChar(r byte) bool {
	return r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// rewriteFormulaOffset rewrites every relative cell reference in expr by
// (dCol, dRow), preserving absolute ($-prefixed) components and leaving
// structured references, named ranges, and function-name tokens that merely
// resemble a reference (e.g. "LOG10(") untouched, per spec.md §4.3's
// autofill contract.
func rewriteFormulaOffset(expr string, dCol, dRow int) string {
	matches := cellRefPattern.FindAllStringSubmatchIndex(expr, -1)
	if matches == nil {
		return expr
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]

		if start > 0 && isIdentChar(expr[start-1]) {
			continue // part of a longer identifier (defined name, sheet-qualified token's tail)
		}
		if end < len(expr) && (expr[end] == '(' || expr[end] == '[') {
			continue // function call or structured reference, not a cell ref
		}

		colAbs := expr[m[2]:m[3]] == "$"
		colLetters := expr[m[4]:m[5]]
		rowAbs := expr[m[6]:m[7]] == "$"
		rowDigits := expr[m[8]:m[9]]

		b.WriteString(expr[last:start])

		newCol := colLetters
		if !colAbs {
			col, err := cellref.ParseAddress(colLetters + "1")
			if err == nil {
				shifted := col.Offset(dCol, 0)
				if shifted.Col >= 1 && shifted.Col <= cellref.MaxCol {
					newCol = columnLetters(shifted.Col)
				}
			}
		}
		newRow := rowDigits
		if !rowAbs {
			rowNum, err := strconv.Atoi(rowDigits)
			if err == nil {
				shifted := rowNum + dRow
				if shifted >= 1 && shifted <= cellref.MaxRow {
					newRow = strconv.Itoa(shifted)
				}
			}
		}

		if colAbs {
			b.WriteString("$")
		}
		b.WriteString(newCol)
		if rowAbs {
			b.WriteString("$")
		}
		b.WriteString(newRow)
		last = end
	}
	b.WriteString(expr[last:])
	return b.String()
}

// columnLetters renders a 1-based column number as its A1 letter sequence.
func columnLetters(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}
