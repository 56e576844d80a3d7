package workbook

import "github.com/vinodismyname/mcpxcel/internal/regions"

// Regions returns the detected regions for sheet, reusing the cached result
// when it was computed at the workbook's current version. A cache miss runs
// the detection pipeline and stores the result keyed by that version, so
// repeated reads after a write are O(1) until the next mutating release.
func (h *Handle) Regions(sheet string, opts regions.Options) ([]regions.Region, error) {
	h.mu.RLock()
	version := h.version
	m, ok := h.metrics[sheet]
	if ok && m.Regions != nil && m.RegionsAt == version {
		cached := m.Regions
		h.mu.RUnlock()
		return cached, nil
	}
	h.mu.RUnlock()

	detected, err := regions.Detect(h.File, sheet, opts)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.metrics[sheet]
	if !ok {
		cur = &SheetMetrics{}
		h.metrics[sheet] = cur
	}
	cur.Regions = detected
	cur.RegionsAt = h.version
	return detected, nil
}
