package cellref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("B7")
	require.NoError(t, err)
	assert.Equal(t, Address{Col: 2, Row: 7}, a)
	assert.Equal(t, "B7", a.String())
}

func TestParseAddressOutOfRange(t *testing.T) {
	_, err := ParseAddress("XFE1")
	assert.Error(t, err)
}

func TestParseRangeNormalizes(t *testing.T) {
	r, err := ParseRange("D10:A1")
	require.NoError(t, err)
	assert.Equal(t, "A1:D10", r.String())
	assert.Equal(t, 4, r.Width())
	assert.Equal(t, 10, r.Height())
	assert.Equal(t, 40, r.Cells())
}

func TestParseRangeSingleCell(t *testing.T) {
	r, err := ParseRange("C3")
	require.NoError(t, err)
	assert.Equal(t, r.Lo, r.Hi)
	assert.Equal(t, "C3", r.String())
}

func TestRangeOverlapsAndUnion(t *testing.T) {
	a, _ := ParseRange("A1:C3")
	b, _ := ParseRange("C3:E5")
	c, _ := ParseRange("E6:F7")

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.Equal(t, "A1:E5", a.Union(b).String())
}

func TestParseLiteralPrecedence(t *testing.T) {
	assert.Equal(t, KindInt, ParseLiteral("10").Kind)
	assert.Equal(t, KindBool, ParseLiteral("true").Kind)
	assert.Equal(t, KindFloat, ParseLiteral("3.14").Kind)
	assert.Equal(t, KindDate, ParseLiteral("2024-01-02").Kind)
	assert.Equal(t, KindText, ParseLiteral("Acme").Kind)
	assert.Equal(t, KindError, ParseLiteral("#DIV/0!").Kind)
	assert.True(t, ParseLiteral("").IsEmpty())
}
