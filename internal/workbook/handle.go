// Package workbook wraps a parsed excelize workbook with the per-sheet
// derived-metric cache the repository and region-detection pipeline rely on.
package workbook

import (
	"sync"
	"time"

	"github.com/vinodismyname/mcpxcel/internal/regions"
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/xuri/excelize/v2"
)

// SheetMetrics is the memoised per-sheet record of spec.md's "sheet-metrics
// cache": used range, density, and (once computed) detected regions.
type SheetMetrics struct {
	UsedRange     cellref.Range
	NonEmptyCount int
	FormulaCount  int
	Density       float64
	Regions       []regions.Region
	RegionsAt     int64 // sheet_version the Regions slice was computed against
	StyleDigest   string
}

// Handle is an opaque reference to a parsed workbook plus its derived-metric
// cache. A Handle is never shared concurrently between a reader and a writer;
// that guarantee is enforced by internal/repository, not by Handle itself.
type Handle struct {
	ID       string
	Path     string
	File     *excelize.File
	LoadedAt time.Time

	// fingerprint captures the source file's staleness marker at load time.
	ModTime time.Time
	Size    int64

	mu      sync.RWMutex
	version int64 // sheet_version-bearing write counter, bumped on every mutating release
	metrics map[string]*SheetMetrics
}

// New wraps an already-opened excelize file as a Handle.
func New(id, path string, f *excelize.File, modTime time.Time, size int64, loadedAt time.Time) *Handle {
	return &Handle{
		ID:       id,
		Path:     path,
		File:     f,
		LoadedAt: loadedAt,
		ModTime:  modTime,
		Size:     size,
		metrics:  make(map[string]*SheetMetrics),
	}
}

// Version returns the current write-version counter (spec.md's
// sheet_version is derived per-sheet from this workbook-wide counter: every
// mutating write lease release bumps it once).
func (h *Handle) Version() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// BumpVersion increments the write-version counter, returning the new value.
// Called by the repository on release of a write lease marked mutated.
func (h *Handle) BumpVersion() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version++
	return h.version
}

// Metrics returns the cached metrics for a sheet, if present. It does not
// check the cached Regions against the workbook's current version; Regions
// does that through RegionsAt.
func (h *Handle) Metrics(sheet string) (*SheetMetrics, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.metrics[sheet]
	return m, ok
}

// SetMetrics replaces the cached metrics for a sheet.
func (h *Handle) SetMetrics(sheet string, m *SheetMetrics) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics[sheet] = m
}

// InvalidateSheet drops cached metrics for a single sheet. Per spec.md
// §4.1 invalidation is coarse per-sheet: sibling sheets are untouched.
func (h *Handle) InvalidateSheet(sheet string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.metrics, sheet)
}

// InvalidateSheets drops cached metrics for every sheet named.
func (h *Handle) InvalidateSheets(sheets []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range sheets {
		delete(h.metrics, s)
	}
}

// Close releases the underlying excelize resources.
func (h *Handle) Close() error {
	return h.File.Close()
}

// Clone deep-copies the workbook by round-tripping it through excelize's own
// writer/reader, the cheapest faithful copy available from the delegated
// workbook library. Used by fork creation and checkpoint snapshotting.
func (h *Handle) Clone(newID string, clock func() time.Time) (*Handle, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	buf, err := h.File.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	copyFile, err := excelize.OpenReader(buf)
	if err != nil {
		return nil, err
	}
	now := clock()
	if now.IsZero() {
		now = time.Now()
	}
	return New(newID, h.Path, copyFile, h.ModTime, h.Size, now), nil
}
