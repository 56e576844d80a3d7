package regions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectVerticalKeyValueBlock(t *testing.T) {
	f := excelize.NewFile()
	keys := []string{"Name", "Type", "Rate", "Limit", "Owner"}
	values := []string{"Acme Corp", "Revolving", "0.045", "250000", "J Smith"}
	for i := range keys {
		row := i + 1
		require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("A%d", row), keys[i]))
		require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("B%d", row), values[i]))
	}

	got, err := Detect(f, "Sheet1", Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, "A1:B5", r.Bounds.String())
	assert.Equal(t, OrientationVerticalKV, r.Orientation)
	assert.Equal(t, KindParameters, r.Kind)
	assert.GreaterOrEqual(t, r.Confidence, 0.6)
}

func TestDetectColumnGutterSplitsTwoRegions(t *testing.T) {
	f := excelize.NewFile()
	for row := 1; row <= 10; row++ {
		for _, col := range []string{"A", "B", "C"} {
			require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("%s%d", col, row), row))
		}
		for _, col := range []string{"E", "F", "G"} {
			require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("%s%d", col, row), row))
		}
		// Column D stays entirely empty, forming the gutter.
	}

	got, err := Detect(f, "Sheet1", Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.False(t, got[0].Bounds.Overlaps(got[1].Bounds))

	bounds := map[string]bool{}
	for _, r := range got {
		bounds[r.Bounds.String()] = true
	}
	assert.True(t, bounds["A1:C10"])
	assert.True(t, bounds["E1:G10"])
}
