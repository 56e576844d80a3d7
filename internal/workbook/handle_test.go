package workbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpxcel/internal/regions"
	"github.com/xuri/excelize/v2"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "hello"))
	return New("wb-1", "/tmp/x.xlsx", f, time.Now(), 0, time.Now())
}

func TestVersionBumpsOnMutatingRelease(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, int64(0), h.Version())
	assert.Equal(t, int64(1), h.BumpVersion())
	assert.Equal(t, int64(1), h.Version())
}

func TestInvalidateSheetIsCoarsePerSheet(t *testing.T) {
	h := newTestHandle(t)
	h.SetMetrics("Sheet1", &SheetMetrics{NonEmptyCount: 1})
	h.SetMetrics("Sheet2", &SheetMetrics{NonEmptyCount: 2})

	h.InvalidateSheet("Sheet1")

	_, ok1 := h.Metrics("Sheet1")
	m2, ok2 := h.Metrics("Sheet2")
	assert.False(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, 2, m2.NonEmptyCount)
}

func TestCloneIsIndependentCopy(t *testing.T) {
	h := newTestHandle(t)
	clone, err := h.Clone("wb-2", time.Now)
	require.NoError(t, err)
	defer clone.Close()

	require.NoError(t, clone.File.SetCellValue("Sheet1", "A1", "changed"))

	orig, err := h.File.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "hello", orig)

	changed, err := clone.File.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "changed", changed)
}

// TestRegionsCachesUntilVersionBump confirms Handle.Regions reuses a prior
// detection result at the same sheet version, and recomputes once a
// mutating release bumps the version.
func TestRegionsCachesUntilVersionBump(t *testing.T) {
	h := newTestHandle(t)
	opts := regions.Options{}

	first, err := h.Regions("Sheet1", opts)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	m, ok := h.Metrics("Sheet1")
	require.True(t, ok)
	assert.Equal(t, h.Version(), m.RegionsAt)

	second, err := h.Regions("Sheet1", opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	h.BumpVersion()
	require.NoError(t, h.File.SetCellValue("Sheet1", "B1", "world"))
	third, err := h.Regions("Sheet1", opts)
	require.NoError(t, err)
	require.NotEmpty(t, third)

	m, ok = h.Metrics("Sheet1")
	require.True(t, ok)
	assert.Equal(t, h.Version(), m.RegionsAt)
}
