package regions

import "math"

// rect is a 0-based, inclusive sub-rectangle of the scanned grid.
type rect struct{ r1, c1, r2, c2 int }

func (rc rect) rows() int { return rc.r2 - rc.r1 + 1 }
func (rc rect) cols() int { return rc.c2 - rc.c1 + 1 }
func (rc rect) cells() int { return rc.rows() * rc.cols() }

// band is a contiguous run [start,end] (0-based, inclusive) along one axis.
type band struct{ start, end int }

func (b band) width() int { return b.end - b.start + 1 }

// findRowGutters returns the maximal interior-empty row bands within rc:
// runs of consecutive rows with zero non-empty cells across rc's column
// span, bounded above and below by a non-empty row within rc. Prefix/suffix
// empty bands are intentionally excluded here; border trimming (stage 4)
// handles those.
func findRowGutters(g *grid, rc rect) []band {
	var gutters []band
	r := rc.r1
	for r <= rc.r2 {
		if g.nonEmptyCount(r, rc.c1, r, rc.c2) > 0 {
			r++
			continue
		}
		start := r
		for r <= rc.r2 && g.nonEmptyCount(r, rc.c1, r, rc.c2) == 0 {
			r++
		}
		end := r - 1
		// Interior only: must have a non-empty row strictly above start and
		// strictly below end, both within rc.
		if start > rc.r1 && end < rc.r2 {
			gutters = append(gutters, band{start: start, end: end})
		}
	}
	return gutters
}

// findColGutters is the column-axis analogue of findRowGutters.
func findColGutters(g *grid, rc rect) []band {
	var gutters []band
	c := rc.c1
	for c <= rc.c2 {
		if g.nonEmptyCount(rc.r1, c, rc.r2, c) > 0 {
			c++
			continue
		}
		start := c
		for c <= rc.c2 && g.nonEmptyCount(rc.r1, c, rc.r2, c) == 0 {
			c++
		}
		end := c - 1
		if start > rc.c1 && end < rc.c2 {
			gutters = append(gutters, band{start: start, end: end})
		}
	}
	return gutters
}

// splitRect recursively splits rc along its widest available gutter (ties:
// row over column, then earliest/top-left start) until no qualifying gutter
// remains inside the current rectangle, respecting a minimum 1x1 leaf and a
// recursion depth bound of log2(cells) to guard pathological sheets.
func splitRect(g *grid, rc rect) []rect {
	maxDepth := int(math.Log2(float64(rc.cells()))) + 1
	return splitRectDepth(g, rc, maxDepth)
}

func splitRectDepth(g *grid, rc rect, depthBudget int) []rect {
	if depthBudget <= 0 || rc.rows() < 1 || rc.cols() < 1 {
		return []rect{rc}
	}

	rowGutters := findRowGutters(g, rc)
	colGutters := findColGutters(g, rc)
	if len(rowGutters) == 0 && len(colGutters) == 0 {
		return []rect{rc}
	}

	widestRow, hasRow := widestBand(rowGutters)
	widestCol, hasCol := widestBand(colGutters)

	splitOnRow := hasRow && (!hasCol || widestRow.width() >= widestCol.width())

	if splitOnRow {
		top := rect{r1: rc.r1, c1: rc.c1, r2: widestRow.start - 1, c2: rc.c2}
		bottom := rect{r1: widestRow.end + 1, c1: rc.c1, r2: rc.r2, c2: rc.c2}
		out := splitRectDepth(g, top, depthBudget-1)
		out = append(out, splitRectDepth(g, bottom, depthBudget-1)...)
		return out
	}

	left := rect{r1: rc.r1, c1: rc.c1, r2: rc.r2, c2: widestCol.start - 1}
	right := rect{r1: rc.r1, c1: widestCol.end + 1, r2: rc.r2, c2: rc.c2}
	out := splitRectDepth(g, left, depthBudget-1)
	out = append(out, splitRectDepth(g, right, depthBudget-1)...)
	return out
}

// widestBand returns the widest gutter band, breaking ties toward the
// earliest (top-left-most) start.
func widestBand(bands []band) (band, bool) {
	if len(bands) == 0 {
		return band{}, false
	}
	best := bands[0]
	for _, b := range bands[1:] {
		if b.width() > best.width() || (b.width() == best.width() && b.start < best.start) {
			best = b
		}
	}
	return best, true
}

// trimBorders implements stage 4: shrink each side of rc while that side's
// fill ratio is below tauEdge, sampling at least one row/column.
func trimBorders(g *grid, rc rect, tauEdge float64) rect {
	for rc.rows() > 1 {
		fill := float64(g.nonEmptyCount(rc.r1, rc.c1, rc.r1, rc.c2)) / float64(rc.cols())
		if fill >= tauEdge {
			break
		}
		rc.r1++
	}
	for rc.rows() > 1 {
		fill := float64(g.nonEmptyCount(rc.r2, rc.c1, rc.r2, rc.c2)) / float64(rc.cols())
		if fill >= tauEdge {
			break
		}
		rc.r2--
	}
	for rc.cols() > 1 {
		fill := float64(g.nonEmptyCount(rc.r1, rc.c1, rc.r2, rc.c1)) / float64(rc.rows())
		if fill >= tauEdge {
			break
		}
		rc.c1++
	}
	for rc.cols() > 1 {
		fill := float64(g.nonEmptyCount(rc.r1, rc.c2, rc.r2, rc.c2)) / float64(rc.rows())
		if fill >= tauEdge {
			break
		}
		rc.c2--
	}
	return rc
}
