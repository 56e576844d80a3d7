package cellref

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind string

const (
	KindEmpty   Kind = "empty"
	KindBool    Kind = "boolean"
	KindInt     Kind = "integer"
	KindFloat   Kind = "floating"
	KindText    Kind = "text"
	KindDate    Kind = "date"
	KindError   Kind = "error"
	KindFormula Kind = "formula"
)

// Formula carries a formula expression and its last-known cached result.
// Cached is nil when the formula has never been evaluated or its cached
// result has been invalidated by an overwrite.
type Formula struct {
	Expression string
	Cached     *Value
}

// Value is the tagged cell-value variant shared by reads, edits, and diffs.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	Text    string
	Date    time.Time
	ErrText string
	Formula *Formula
}

// Empty constructs the empty-cell value.
func Empty() Value { return Value{Kind: KindEmpty} }

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IntValue constructs an integer value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue constructs a floating-point value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// TextValue constructs a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// DateValue constructs a date value (serial-number semantics resolved by the
// workbook's epoch at the point the value is written into a cell).
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Date: t} }

// ErrorValue constructs an error-sentinel value (e.g. "#DIV/0!").
func ErrorValue(sentinel string) Value { return Value{Kind: KindError, ErrText: sentinel} }

// FormulaValue constructs a formula value, optionally with a cached result.
func FormulaValue(expr string, cached *Value) Value {
	return Value{Kind: KindFormula, Formula: &Formula{Expression: expr, Cached: cached}}
}

// IsEmpty reports whether the value is the empty-cell sentinel.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// errorSentinels lists the canonical Excel error literals recognized by the
// literal re-typer; anything else parses as text.
var errorSentinels = map[string]struct{}{
	"#NULL!": {}, "#DIV/0!": {}, "#VALUE!": {}, "#REF!": {},
	"#NAME?": {}, "#NUM!": {}, "#N/A": {}, "#SPILL!": {}, "#CALC!": {},
}

// dateLayouts are the ISO-8601 layouts the literal re-typer accepts, tried in
// order; richer calendar parsing belongs to the OOXML library, not here.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// ParseLiteral re-types a raw literal string conservatively: bool -> int ->
// float -> ISO date -> error-sentinel -> text, the chain spec.md's edit
// normalization requires. Leading/trailing whitespace is trimmed first.
func ParseLiteral(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Empty()
	}

	if b, err := strconv.ParseBool(trimmed); err == nil {
		// strconv.ParseBool also accepts "0"/"1"; restrict to textual
		// booleans so numeric literals fall through to int/float.
		lower := strings.ToLower(trimmed)
		if lower == "true" || lower == "false" {
			return BoolValue(b)
		}
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(i)
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return FloatValue(f)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return DateValue(t)
		}
	}

	if _, ok := errorSentinels[strings.ToUpper(trimmed)]; ok {
		return ErrorValue(strings.ToUpper(trimmed))
	}

	return TextValue(trimmed)
}
