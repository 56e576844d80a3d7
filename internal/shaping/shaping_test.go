package shaping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateSetsNextOffsetOnlyWhenMoreDataRemains(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, next, err := Paginate(items, 2, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, page)
	require.NotNil(t, next)
	assert.Equal(t, 2, *next)

	page, next, err = Paginate(items, 2, 4, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, page)
	assert.Nil(t, next, "a response carrying all remaining data must omit next_offset")
}

func TestPaginateTruncatesAtElementBoundary(t *testing.T) {
	items := []string{"aaaa", "bbbb", "cccc", "dddd"}
	encode := func(s string) ([]byte, error) { return json.Marshal(s) }

	// each encoded element is 6 bytes (`"aaaa"`); a budget of 13 bytes
	// admits exactly two elements (12 bytes), never a partial third.
	page, next, err := Paginate(items, 10, 0, 13, encode)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa", "bbbb"}, page)
	require.NotNil(t, next)
	assert.Equal(t, 2, *next)
}

func TestClampCellsAndItems(t *testing.T) {
	s := Shaper{MaxCells: 100, MaxItems: 50}
	assert.Equal(t, 100, s.ClampCells(0))
	assert.Equal(t, 100, s.ClampCells(500))
	assert.Equal(t, 20, s.ClampCells(20))

	unbounded := Shaper{}
	assert.Equal(t, 500, unbounded.ClampCells(500))
}

func TestPathMapperRemapsLongestMatchingPrefix(t *testing.T) {
	m := PathMapper{HostToContainer: map[string]string{
		"/Users/alice/sheets":      "/data/sheets",
		"/Users/alice/sheets/archive": "/data/sheets/archive",
	}}

	got, ok := m.Remap("/data/sheets/archive/q1.xlsx")
	require.True(t, ok)
	assert.Equal(t, "/Users/alice/sheets/archive/q1.xlsx", got)

	got, ok = m.Remap("/data/other/report.xlsx")
	assert.False(t, ok)
	assert.Equal(t, "/data/other/report.xlsx", got)
}

func TestTokenBudgetHintOnlyUnderTokenDense(t *testing.T) {
	hinted := Shaper{Profile: ProfileTokenDense, ModelContextSize: func(string) int { return 128_000 }}
	assert.Equal(t, 128_000, hinted.TokenBudgetHint("gpt-4o"))

	verbose := Shaper{Profile: ProfileVerbose, ModelContextSize: func(string) int { return 128_000 }}
	assert.Equal(t, 0, verbose.TokenBudgetHint("gpt-4o"))
}
