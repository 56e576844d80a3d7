package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/xuri/excelize/v2"
)

func fixedClock() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func newBaseHandle(t *testing.T) *workbook.Handle {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellInt("Sheet1", "B2", 10))
	require.NoError(t, f.SetCellInt("Sheet1", "B3", 20))
	require.NoError(t, f.SetCellFormula("Sheet1", "B4", "=SUM(B2:B3)"))
	return workbook.New("wb-1", "/tmp/x.xlsx", f, fixedClock(), 0, fixedClock())
}

func TestGetChangesetReportsEditedCells(t *testing.T) {
	base := newBaseHandle(t)
	reg := forks.NewRegistry(forks.WithClock(fixedClock))
	fk, err := reg.Create("session-1", "wb-1", base)
	require.NoError(t, err)

	_, err = fk.ApplyEdits("Sheet1", []forks.RawEdit{
		{Address: "B2", Value: "100"},
		{Address: "B3", Value: "200"},
	}, forks.OriginUser, fixedClock)
	require.NoError(t, err)
	_, err = fk.Handle().File.CalcCellValue("Sheet1", "B4")
	require.NoError(t, err)

	cs, err := GetChangeset(base, fk.Handle(), Filters{Cells: true})
	require.NoError(t, err)

	bySheetAddr := make(map[string]CellDiff)
	for _, c := range cs.Cells {
		bySheetAddr[c.Sheet+"!"+c.Address.String()] = c
	}

	b2, ok := bySheetAddr["Sheet1!B2"]
	require.True(t, ok, "B2 must appear in the changeset")
	assert.Equal(t, Modified, b2.ChangeType)

	b3, ok := bySheetAddr["Sheet1!B3"]
	require.True(t, ok, "B3 must appear in the changeset")
	assert.Equal(t, Modified, b3.ChangeType)

	_, ok = bySheetAddr["Sheet1!B4"]
	assert.True(t, ok, "B4's cached result changed so it must appear in the changeset too")
	assert.Nil(t, cs.NextOffset)
}

func TestGetChangesetEmptyDuringPreviewMatchesApply(t *testing.T) {
	base := newBaseHandle(t)
	reg := forks.NewRegistry(forks.WithClock(fixedClock))
	fk, err := reg.Create("session-1", "wb-1", base)
	require.NoError(t, err)

	idGen := func() string { return "staged-1" }
	preview, err := fk.PreviewBatch("transform", "Sheet1", []forks.RawEdit{{Address: "B2", Value: "999"}}, idGen, fixedClock)
	require.NoError(t, err)
	require.NotNil(t, preview)

	csDuringPreview, err := GetChangeset(base, fk.Handle(), Filters{Cells: true})
	require.NoError(t, err)
	assert.Empty(t, csDuringPreview.Cells, "a preview must never mutate the fork's own workbook")

	_, err = fk.ApplyEdits("Sheet1", []forks.RawEdit{{Address: "B2", Value: "999"}}, forks.OriginUser, fixedClock)
	require.NoError(t, err)

	csAfterApply, err := GetChangeset(base, fk.Handle(), Filters{Cells: true})
	require.NoError(t, err)
	require.Len(t, csAfterApply.Cells, 1)
	assert.Equal(t, "B2", csAfterApply.Cells[0].Address.String())
}
