package regions

import (
	"strings"

	"github.com/vinodismyname/mcpxcel/pkg/cellref"
)

const (
	tauHeader = 0.5
	tauEdge   = 0.15
)

// headerScore scores row r (0-based, within [c1,c2]) as a header candidate:
// text_ratio - duplicate_penalty - data_like_penalty - date_penalty.
func headerScore(g *grid, r, c1, c2 int) float64 {
	nonEmpty := 0
	textCount := 0
	numCount := 0
	dateCount := 0
	seen := map[string]struct{}{}
	for c := c1; c <= c2; c++ {
		v := g.values[r][c]
		if v == "" {
			continue
		}
		nonEmpty++
		seen[strings.ToLower(v)] = struct{}{}
		switch cellref.ParseLiteral(v).Kind {
		case cellref.KindText:
			textCount++
		case cellref.KindInt, cellref.KindFloat:
			numCount++
		case cellref.KindDate:
			dateCount++
		}
	}
	if nonEmpty == 0 {
		return -1
	}
	textRatio := float64(textCount) / float64(nonEmpty)
	duplicatePenalty := 1 - float64(len(seen))/float64(nonEmpty)
	dataLikePenalty := float64(numCount) / float64(nonEmpty)
	datePenalty := float64(dateCount) / float64(nonEmpty)
	return textRatio - duplicatePenalty - dataLikePenalty - datePenalty
}

// inferHeaderRows implements stage 5: scores the first three rows of rc as
// header candidates and picks the max scorer at-or-above tauHeader (on a tie
// the later row wins). The header band then spans every row from rc's top
// row down to that best row (at most 3 rows); the rows above the best row
// are counted without checking their non-empty column mask or text length.
func inferHeaderRows(g *grid, rc rect) int {
	candidates := rc.rows()
	if candidates > 3 {
		candidates = 3
	}
	bestRow := -1
	bestScore := tauHeader
	for i := 0; i < candidates; i++ {
		r := rc.r1 + i
		s := headerScore(g, r, rc.c1, rc.c2)
		if s >= bestScore {
			bestScore = s
			bestRow = r
		}
	}
	if bestRow == -1 {
		return 0
	}

	// The header band spans rc.r1..bestRow, whatever the rows above bestRow
	// contain. Bounded to 3 rows total by construction (candidates is capped
	// at 3).
	return bestRow - rc.r1 + 1
}

// isShortKVKey reports whether s looks like a key-value orientation's
// left-column key: short text containing letters and no digits.
func isShortKVKey(s string) bool {
	if len(s) == 0 || len(s) > 25 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return false
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
		}
	}
	return hasLetter
}

// detectOrientation implements stage 6 (vertical_kv detection) with a
// fallback heuristic between horizontal and tabular layouts.
func detectOrientation(g *grid, rc rect, headerRows int) Orientation {
	sampleRows := rc.rows()
	if sampleRows > 20 {
		sampleRows = 20
	}

	var denseCols []int
	for c := rc.c1; c <= rc.c2; c++ {
		filled := g.nonEmptyCount(rc.r1, c, rc.r1+sampleRows-1, c)
		if float64(filled)/float64(sampleRows) >= 0.4 {
			denseCols = append(denseCols, c)
		}
	}

	if len(denseCols) == 2 {
		keyCol, valCol := denseCols[0], denseCols[1]
		sampled := 0
		shortKeys := 0
		paired := 0
		for i := 0; i < sampleRows; i++ {
			r := rc.r1 + i
			key := g.values[r][keyCol]
			if key == "" {
				continue
			}
			sampled++
			if isShortKVKey(key) {
				shortKeys++
				if g.values[r][valCol] != "" {
					paired++
				}
			}
		}
		if sampled > 0 && float64(shortKeys)/float64(sampled) >= 0.3 && paired > 0 {
			return OrientationVerticalKV
		}
	}

	if rc.rows() <= 2 || headerRows >= rc.rows() {
		return OrientationHorizontal
	}
	return OrientationTabular
}
