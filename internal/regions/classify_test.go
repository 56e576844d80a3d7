package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClassifySparseRegionRequiresTextPredominance confirms spec.md §4.2
// stage 7's metadata case only fires when a sparse region (nonEmpty < 6) is
// also predominantly text; a sparse, mostly-numeric region falls through
// to data instead.
func TestClassifySparseRegionRequiresTextPredominance(t *testing.T) {
	assert.Equal(t, KindMetadata, classify(0.0, 5, 5, OrientationHorizontal, 0.8))
	assert.Equal(t, KindData, classify(0.0, 5, 5, OrientationHorizontal, 0.4))
	assert.Equal(t, KindData, classify(0.0, 6, 5, OrientationHorizontal, 0.9))
}
