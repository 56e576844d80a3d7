// Package envelope implements the tool-call envelope of spec.md §4.8
// (Component J): per-call timeout enforcement, response-size ceiling,
// error-taxonomy mapping, and warning injection, wrapped around every tool
// operation before its payload is shaped and returned.
package envelope

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/internal/regions"
	"github.com/vinodismyname/mcpxcel/internal/shaping"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
)

// Result is the envelope's outcome: a payload plus whatever warnings were
// attached, ready for internal/shaping to paginate/truncate.
type Result struct {
	Payload  any
	Warnings []Warning
}

// Envelope bounds a single tool call's execution time and response size.
// Timeout of 0 disables the deadline (spec.md §4.8).
type Envelope struct {
	Timeout          time.Duration
	MaxResponseBytes int
}

// Fn is the shape every tool operation presents to the envelope: it returns
// a payload, any warnings the operation itself already knows about, and an
// error. The envelope adds timeout/cancellation mapping, error-taxonomy
// mapping and the response-size ceiling on top; ambient warnings (stale
// formulas, low-confidence regions) are appended by the operation itself
// through the With*Warnings helpers.
type Fn func(ctx context.Context) (payload any, warnings []Warning, err error)

// New constructs an Envelope; timeout <= 0 disables the per-call deadline.
func New(timeout time.Duration, maxResponseBytes int) Envelope {
	return Envelope{Timeout: timeout, MaxResponseBytes: maxResponseBytes}
}

// Call runs fn under the envelope's deadline, mapping a context
// cancellation to mcperr.Timeout and passing any other error through
// mcperr.CodeOf/normalize so callers get a uniform taxonomy-coded error
// regardless of which component produced it. This generalizes the
// teacher's runtime.Middleware.ToolMiddleware (acquire+timeout+
// error-translate) from an mcp-go-specific handler wrapper into a
// transport-agnostic call shape.
func (e Envelope) Call(ctx context.Context, fn Fn) (*Result, error) {
	callCtx := ctx
	cancel := func() {}
	if e.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.Timeout)
	}
	defer cancel()

	payload, warnings, err := fn(callCtx)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, mcperr.New(mcperr.Timeout, "operation exceeded its %s deadline", e.Timeout)
		}
		if te, ok := err.(*mcperr.Error); ok {
			return nil, te
		}
		return nil, mcperr.New(mcperr.Internal, "%v", err)
	}

	if e.MaxResponseBytes > 0 {
		if encoded, encErr := json.Marshal(payload); encErr == nil && len(encoded) > e.MaxResponseBytes {
			return nil, mcperr.New(mcperr.ResourceExhausted,
				"response of %d bytes exceeds the %d byte ceiling; narrow the request (smaller range, lower limit, or a token_dense profile) and retry",
				len(encoded), e.MaxResponseBytes)
		}
	}

	return &Result{Payload: payload, Warnings: warnings}, nil
}

// WithForkWarnings appends WARN_STALE_FORMULAS to warnings when f's
// recalc_needed flag is set, per spec.md §4.8/§7. Callers that read through
// a fork (rather than mutate it) should pass their collected warnings
// through this before returning from their Fn.
func WithForkWarnings(f *forks.Fork, warnings []Warning) []Warning {
	if f != nil && f.RecalcNeeded {
		warnings = append(warnings, staleFormulasWarning())
	}
	return warnings
}

// WithRegionWarnings appends WARN_REGION_LOW_CONFIDENCE for every consulted
// region scoring below threshold, per spec.md §4.8.
func WithRegionWarnings(consulted []regions.Region, threshold float64, warnings []Warning) []Warning {
	for _, r := range consulted {
		if r.Confidence < threshold {
			warnings = append(warnings, regionLowConfidenceWarning(r.ID, r.Confidence))
		}
	}
	return warnings
}

// ShapeWarnings trims each warning's Detail text under a token_dense
// profile, keeping only its Code; verbose profiles pass warnings through
// unchanged. Call this last, once every With*Warnings helper has run.
func ShapeWarnings(shaper shaping.Shaper, warnings []Warning) []Warning {
	if shaper.IncludeOptional() {
		return warnings
	}
	shaped := make([]Warning, len(warnings))
	for i, w := range warnings {
		shaped[i] = Warning{Code: w.Code}
	}
	return shaped
}

// WithPathRemapWarning appends a path-remap notice when remapped is true,
// surfacing that a server-side path has a mapped client-side (host) form.
func WithPathRemapWarning(remapped bool, original, mapped string, warnings []Warning) []Warning {
	if !remapped {
		return warnings
	}
	return append(warnings, Warning{Code: "PATH_REMAPPED", Detail: original + " -> " + mapped})
}
