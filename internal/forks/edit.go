package forks

import (
	"fmt"
	"strings"
	"time"

	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// RawEdit is either a structured edit or a shorthand string, per spec.md
// §4.3. Exactly one of Shorthand or (Address set) should be populated;
// Shorthand takes precedence when non-empty.
type RawEdit struct {
	Shorthand string

	Address string
	Value   string // literal text, re-typed by cellref.ParseLiteral
	Formula string // formula body without the leading '='
}

// NormalizeEdit parses a RawEdit into an address and typed payload,
// following spec.md §4.3's shorthand grammar: "<addr>=<rest>", where a
// leading second '=' in <rest> marks a formula and everything else is a
// literal re-typed by the conservative literal parser.
func NormalizeEdit(raw RawEdit) (cellref.Address, cellref.Value, error) {
	if raw.Shorthand != "" {
		return parseShorthand(raw.Shorthand)
	}

	addr, err := cellref.ParseAddress(raw.Address)
	if err != nil {
		return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "invalid address %q: %v", raw.Address, err)
	}
	if err := addr.Validate(); err != nil {
		return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "address out of range: %v", err)
	}
	if raw.Formula != "" {
		return addr, cellref.FormulaValue(raw.Formula, nil), nil
	}
	return addr, cellref.ParseLiteral(raw.Value), nil
}

// parseShorthand implements the "<addr>=<rest>" grammar: a doubled '=' marks
// a formula ("A1==SUM(X)"), a single '=' marks a literal ("A1=42").
func parseShorthand(s string) (cellref.Address, cellref.Value, error) {
	idx := strings.Index(s, "=")
	if idx < 0 {
		return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "shorthand %q missing '='", s)
	}
	addrPart := s[:idx]
	rest := s[idx+1:]

	addr, err := cellref.ParseAddress(addrPart)
	if err != nil {
		return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "invalid address %q: %v", addrPart, err)
	}
	if err := addr.Validate(); err != nil {
		return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "address out of range: %v", err)
	}

	if strings.HasPrefix(rest, "=") {
		formula := rest[1:]
		if formula == "" {
			return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "empty formula in %q", s)
		}
		return addr, cellref.FormulaValue(formula, nil), nil
	}
	if rest == "" {
		return cellref.Address{}, cellref.Value{}, mcperr.New(mcperr.InvalidParams, "empty value in %q", s)
	}
	return addr, cellref.ParseLiteral(rest), nil
}

// Serialize renders an address and value back to shorthand form, the
// inverse of parseShorthand for the value kinds shorthand can express.
func Serialize(addr cellref.Address, v cellref.Value) string {
	if v.Kind == cellref.KindFormula {
		return fmt.Sprintf("%s==%s", addr.String(), v.Formula.Expression)
	}
	switch v.Kind {
	case cellref.KindBool:
		return fmt.Sprintf("%s=%t", addr.String(), v.Bool)
	case cellref.KindInt:
		return fmt.Sprintf("%s=%d", addr.String(), v.Int)
	case cellref.KindFloat:
		return fmt.Sprintf("%s=%v", addr.String(), v.Float)
	case cellref.KindDate:
		return fmt.Sprintf("%s=%s", addr.String(), v.Date.Format("2006-01-02"))
	case cellref.KindError:
		return fmt.Sprintf("%s=%s", addr.String(), v.ErrText)
	default:
		return fmt.Sprintf("%s=%s", addr.String(), v.Text)
	}
}

// ApplyEdits applies raw edits in order against the fork's workbook inside
// its fork-lease. Each successful edit is appended to the journal, the
// overwritten cell's cached formula result is invalidated, and
// recalc_needed is set. On the first invalid edit, InvalidParams is
// returned carrying the failing index and no edits are applied (all-or-
// nothing per spec.md §5's atomic-batch-boundary guarantee).
func (f *Fork) ApplyEdits(sheet string, raw []RawEdit, origin Origin, now func() time.Time) ([]Edit, error) {
	unlock := f.Lock()
	defer unlock()

	normalized := make([]struct {
		addr cellref.Address
		val  cellref.Value
	}, len(raw))
	for i, r := range raw {
		addr, val, err := NormalizeEdit(r)
		if err != nil {
			if te, ok := err.(*mcperr.Error); ok {
				return nil, te.WithField(fmt.Sprintf("edits[%d]", i))
			}
			return nil, err
		}
		normalized[i].addr = addr
		normalized[i].val = val
	}

	applied := make([]Edit, 0, len(raw))
	file := f.handle.File
	touchedSheets := map[string]struct{}{}

	for _, n := range normalized {
		cellName := n.addr.String()
		if n.val.Kind == cellref.KindFormula {
			if err := file.SetCellFormula(sheet, cellName, "="+n.val.Formula.Expression); err != nil {
				return nil, mcperr.New(mcperr.InvalidParams, "set formula at %s: %v", cellName, err)
			}
		} else if err := setPlainValue(file, sheet, cellName, n.val); err != nil {
			return nil, mcperr.New(mcperr.InvalidParams, "set value at %s: %v", cellName, err)
		}
		e := Edit{Sheet: sheet, Address: n.addr, Value: n.val, AppliedAt: now(), Origin: origin}
		f.Journal = append(f.Journal, e)
		applied = append(applied, e)
		touchedSheets[sheet] = struct{}{}
	}

	sheets := make([]string, 0, len(touchedSheets))
	for s := range touchedSheets {
		sheets = append(sheets, s)
	}
	f.handle.BumpVersion()
	f.handle.InvalidateSheets(sheets)
	f.RecalcNeeded = true
	f.observer.OnForkMutated(f.ID, string(origin), len(applied), f.RecalcNeeded)

	return applied, nil
}

// setPlainValue writes a non-formula cellref.Value into the workbook via
// excelize's typed setters.
func setPlainValue(file *excelize.File, sheet, cellName string, v cellref.Value) error {
	switch v.Kind {
	case cellref.KindEmpty:
		return file.SetCellValue(sheet, cellName, nil)
	case cellref.KindBool:
		return file.SetCellBool(sheet, cellName, v.Bool)
	case cellref.KindInt:
		return file.SetCellInt(sheet, cellName, v.Int)
	case cellref.KindFloat:
		return file.SetCellFloat(sheet, cellName, v.Float, -1, 64)
	case cellref.KindDate:
		return file.SetCellValue(sheet, cellName, v.Date)
	case cellref.KindError:
		return file.SetCellStr(sheet, cellName, v.ErrText)
	default:
		return file.SetCellStr(sheet, cellName, v.Text)
	}
}
