// Package mcperr defines the engine's error taxonomy and its mapping onto
// the tool-call transport's result type.
package mcperr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// Code is a canonical engine error code, per spec.md §7. These are codes,
// not type names: stable strings a client can switch on.
type Code string

const (
	InvalidParams     Code = "INVALID_PARAMS"
	NotFound          Code = "NOT_FOUND"
	Conflict          Code = "CONFLICT"
	ResourceExhausted Code = "RESOURCE_EXHAUSTED"
	Timeout           Code = "TIMEOUT"
	Unsupported       Code = "UNSUPPORTED"
	BackendError      Code = "BACKEND_ERROR"
	Internal          Code = "INTERNAL"
)

// Entry documents a code's standard message and retry semantics.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

var catalog = map[Code]Entry{
	InvalidParams:     {Code: InvalidParams, Message: "invalid parameters", Retryable: true, NextSteps: []string{"Correct the failing field and retry"}},
	NotFound:          {Code: NotFound, Message: "resource not found", Retryable: true, NextSteps: []string{"Verify the workbook, fork, sheet, region, checkpoint, or staged-change id"}},
	Conflict:          {Code: Conflict, Message: "conflicting state", Retryable: false, NextSteps: []string{"Re-fetch current state before retrying"}},
	ResourceExhausted: {Code: ResourceExhausted, Message: "resource limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay or release a lease/fork"}},
	Timeout:           {Code: Timeout, Message: "operation exceeded its deadline", Retryable: true, NextSteps: []string{"Narrow scope or increase the call timeout"}},
	Unsupported:       {Code: Unsupported, Message: "operation not supported", Retryable: false, NextSteps: []string{"Check feature gating and file format support"}},
	BackendError:      {Code: BackendError, Message: "recalculation backend failed", Retryable: true, NextSteps: []string{"Inspect backend diagnostics and retry"}},
	Internal:          {Code: Internal, Message: "internal error", Retryable: false, NextSteps: []string{"Report the correlation id to operators"}},
}

// Error is the engine's internal representation of a taxonomy error. It
// carries structured detail that the transport-facing Result collapses
// into a single message string.
type Error struct {
	Code          Code
	Message       string
	Field         string // JSON-pointer-ish path to the failing input, for InvalidParams
	CorrelationID string // set for Internal
}

func (e *Error) Error() string {
	return normalize(e.Code, e.Message)
}

// New constructs a taxonomy error. Internal errors are stamped with a fresh
// correlation id so operators can cross-reference logs.
func New(code Code, format string, args ...any) *Error {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	if code == Internal {
		e.CorrelationID = uuid.NewString()
	}
	return e
}

// WithField attaches the failing field path to an InvalidParams error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// Is reports whether err is a *Error of code.
func Is(err error, code Code) bool {
	te, ok := err.(*Error)
	return ok && te.Code == code
}

// CodeOf extracts the taxonomy code from err, defaulting to Internal for
// errors that did not originate from New.
func CodeOf(err error) Code {
	if te, ok := err.(*Error); ok {
		return te.Code
	}
	return Internal
}

// normalize builds a standard error string including guidance, for clients
// that only surface a message string.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// Result renders a taxonomy error as the tool-call transport's result type.
// The transport itself is out of scope; this is the named boundary the
// envelope hands off to.
func Result(err *Error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError(normalize(Internal, "nil error"))
	}
	msg := normalize(err.Code, err.Message)
	if err.Field != "" {
		msg = fmt.Sprintf("%s | field: %s", msg, err.Field)
	}
	if err.CorrelationID != "" {
		msg = fmt.Sprintf("%s | correlation_id: %s", msg, err.CorrelationID)
	}
	return mcp.NewToolResultError(msg)
}
