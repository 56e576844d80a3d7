package forks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/xuri/excelize/v2"
)

func fixedClock() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func newBaseHandle(t *testing.T) *workbook.Handle {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellInt("Sheet1", "B2", 10))
	require.NoError(t, f.SetCellInt("Sheet1", "B3", 20))
	require.NoError(t, f.SetCellFormula("Sheet1", "B4", "=SUM(B2:B3)"))
	return workbook.New("wb-base", "/tmp/base.xlsx", f, fixedClock(), 0, fixedClock())
}

func newTestFork(t *testing.T) *Fork {
	t.Helper()
	reg := NewRegistry(WithClock(fixedClock))
	fk, err := reg.Create("session-1", "wb-base", newBaseHandle(t))
	require.NoError(t, err)
	return fk
}

func TestParseShorthandPrecedence(t *testing.T) {
	addr, v, err := parseShorthand("A1=10")
	require.NoError(t, err)
	assert.Equal(t, "A1", addr.String())
	assert.Equal(t, cellref.KindInt, v.Kind)
	assert.Equal(t, int64(10), v.Int)

	addr, v, err = parseShorthand("A2==10")
	require.NoError(t, err)
	assert.Equal(t, "A2", addr.String())
	require.Equal(t, cellref.KindFormula, v.Kind)
	assert.Equal(t, "10", v.Formula.Expression)

	addr, v, err = parseShorthand("A3=true")
	require.NoError(t, err)
	assert.Equal(t, "A3", addr.String())
	assert.Equal(t, cellref.KindBool, v.Kind)
	assert.True(t, v.Bool)

	addr, v, err = parseShorthand("A4=2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, "A4", addr.String())
	assert.Equal(t, cellref.KindDate, v.Kind)
	assert.Equal(t, 2024, v.Date.Year())
}

func TestApplyEditsSetsRecalcNeededAndJournal(t *testing.T) {
	fk := newTestFork(t)
	assert.False(t, fk.RecalcNeeded)

	applied, err := fk.ApplyEdits("Sheet1", []RawEdit{
		{Shorthand: "B2=100"},
		{Shorthand: "B3=200"},
	}, OriginUser, fixedClock)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.True(t, fk.RecalcNeeded)
	assert.Len(t, fk.Journal, 2)

	v, err := fk.handle.File.GetCellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "100", v)
}

func TestApplyEditsRejectsInvalidAddressAtomically(t *testing.T) {
	fk := newTestFork(t)
	_, err := fk.ApplyEdits("Sheet1", []RawEdit{
		{Shorthand: "B2=1"},
		{Shorthand: "ZZZZZ999999999=1"},
	}, OriginUser, fixedClock)
	require.Error(t, err)
	assert.Empty(t, fk.Journal, "no edits should be applied when any edit in the batch is invalid")
}

func TestCheckpointRestoreReversesEdits(t *testing.T) {
	fk := newTestFork(t)
	ck, err := fk.CreateCheckpoint("before", fixedClock)
	require.NoError(t, err)

	_, err = fk.ApplyEdits("Sheet1", []RawEdit{{Shorthand: "B2=999"}}, OriginUser, fixedClock)
	require.NoError(t, err)
	v, _ := fk.handle.File.GetCellValue("Sheet1", "B2")
	assert.Equal(t, "999", v)

	require.NoError(t, fk.RestoreCheckpoint(ck.ID, fixedClock))
	v, _ = fk.handle.File.GetCellValue("Sheet1", "B2")
	assert.Equal(t, "10", v)
	assert.Empty(t, fk.Journal)
}

func TestCheckpointRestoreIsIdempotent(t *testing.T) {
	fk := newTestFork(t)
	ck, err := fk.CreateCheckpoint("before", fixedClock)
	require.NoError(t, err)
	_, err = fk.ApplyEdits("Sheet1", []RawEdit{{Shorthand: "B2=999"}}, OriginUser, fixedClock)
	require.NoError(t, err)

	require.NoError(t, fk.RestoreCheckpoint(ck.ID, fixedClock))
	first, _ := fk.handle.File.GetCellValue("Sheet1", "B2")

	require.NoError(t, fk.RestoreCheckpoint(ck.ID, fixedClock))
	second, _ := fk.handle.File.GetCellValue("Sheet1", "B2")

	assert.Equal(t, first, second)
}

func TestPreviewIsNonMutatingAndMatchesApply(t *testing.T) {
	fkPreview := newTestFork(t)
	idCounter := 0
	idGen := func() string { idCounter++; return "staged-1" }

	edits := []RawEdit{{Shorthand: "B2=555"}}
	sc, err := fkPreview.PreviewBatch("transform_batch", "Sheet1", edits, idGen, fixedClock)
	require.NoError(t, err)

	before, _ := fkPreview.handle.File.GetCellValue("Sheet1", "B2")
	assert.Equal(t, "10", before, "preview must not mutate the fork's workbook")
	assert.Len(t, fkPreview.ListStagedChanges(), 1)

	applySummary, err := fkPreview.ApplyStagedChange(sc.ID, OriginUser, fixedClock)
	require.NoError(t, err)
	assert.Equal(t, sc.EstimatedCounts, applySummary)

	after, _ := fkPreview.handle.File.GetCellValue("Sheet1", "B2")
	assert.Equal(t, "555", after)
}

func TestPreviewBatchRejectsMissingSheet(t *testing.T) {
	fk := newTestFork(t)
	idGen := func() string { return "staged-1" }
	_, err := fk.PreviewBatch("transform_batch", "", []RawEdit{{Shorthand: "B2=42"}}, idGen, fixedClock)
	require.Error(t, err)
	assert.Empty(t, fk.ListStagedChanges())
}

func TestApplyStagedChangeIsIdempotent(t *testing.T) {
	fk := newTestFork(t)
	idGen := func() string { return "staged-1" }
	sc, err := fk.PreviewBatch("transform_batch", "Sheet1", []RawEdit{{Shorthand: "B2=42"}}, idGen, fixedClock)
	require.NoError(t, err)

	first, err := fk.ApplyStagedChange(sc.ID, OriginUser, fixedClock)
	require.NoError(t, err)
	journalLenAfterFirst := len(fk.Journal)

	second, err := fk.ApplyStagedChange(sc.ID, OriginUser, fixedClock)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, fk.Journal, journalLenAfterFirst, "re-applying a staged change must not append to the journal again")
}

func TestApplyFormulaPatternRewritesRelativeReferences(t *testing.T) {
	fk := newTestFork(t)
	summary, err := fk.ApplyFormulaPattern("Sheet1",
		cellref.Address{Col: 2, Row: 4}, // B4 holds =SUM(B2:B3)
		cellref.Range{Lo: cellref.Address{Col: 3, Row: 4}, Hi: cellref.Address{Col: 3, Row: 4}}, // C4
		OriginPatternFill, fixedClock)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CellsTouched)

	got, err := fk.handle.File.GetCellFormula("Sheet1", "C4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(C2:C3)", got)
}

func TestRewriteFormulaOffsetPreservesAbsoluteRefs(t *testing.T) {
	got := rewriteFormulaOffset("$A$1+B2", 1, 1)
	assert.Equal(t, "$A$1+C3", got)
}

func TestRewriteFormulaOffsetLeavesFunctionNamesAlone(t *testing.T) {
	got := rewriteFormulaOffset("LOG10(B2)", 1, 0)
	assert.Equal(t, "LOG10(C2)", got)
}
