// Package recalc implements the recalculation orchestrator of spec.md
// §4.5 (Component G): a pluggable Backend trait, a concurrency gate
// bounding simultaneous recalculations, and the fork-level
// recalc_needed bookkeeping.
package recalc

import (
	"context"

	"github.com/xuri/excelize/v2"
)

// Outcome is the result of a single recalculation run against one workbook.
type Outcome struct {
	Backend        string
	CellsEvaluated int
	Errors         []string
}

// Backend is the recalculation capability set of spec.md §9: "recalc(workbook)
// -> Outcome". Implementations may be in-process or drive an external
// process; the orchestrator is agnostic to which.
type Backend interface {
	Name() string
	Recalc(ctx context.Context, file *excelize.File, sheet string) (Outcome, error)
}
