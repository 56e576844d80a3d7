// Package regions implements the region-detection pipeline: gutter-based
// recursive splitting of a sheet's occupied cells into rectangular blocks,
// header inference, orientation and class detection, and confidence scoring.
package regions

import "github.com/vinodismyname/mcpxcel/pkg/cellref"

// Kind classifies a detected region by its likely role in the sheet.
type Kind string

const (
	KindData       Kind = "data"
	KindParameters Kind = "parameters"
	KindOutputs    Kind = "outputs"
	KindCalculator Kind = "calculator"
	KindMetadata   Kind = "metadata"
)

// Orientation describes how a region's content is laid out.
type Orientation string

const (
	OrientationVerticalKV Orientation = "vertical_kv"
	OrientationHorizontal Orientation = "horizontal"
	OrientationTabular    Orientation = "tabular"
)

// Region is a contiguous rectangular block of a sheet classified by
// structural heuristics. IDs are dense from 1 and stable for a given
// (sheet, sheet_version) pair until the owning sheet mutates.
type Region struct {
	ID          uint32
	Sheet       string
	Bounds      cellref.Range
	Kind        Kind
	Confidence  float64
	HeaderRows  int
	Orientation Orientation
}
