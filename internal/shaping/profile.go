// Package shaping implements response-shaping for tool outputs: output
// profiles, size-aware pagination/truncation, and host/container path
// remapping, per spec.md §4.7 (Component I).
package shaping

import "github.com/tmc/langchaingo/llms"

// Profile selects how verbosely a response renders optional context.
type Profile string

const (
	// ProfileTokenDense favors compact payloads: optional fields are
	// dropped first and truncation is more aggressive.
	ProfileTokenDense Profile = "token_dense"
	// ProfileVerbose keeps optional context fields unless a hard size
	// ceiling forces truncation.
	ProfileVerbose Profile = "verbose"
)

// Shaper bounds a single tool response's size, in whichever units the
// caller is pagination over (bytes, cells, items).
type Shaper struct {
	Profile          Profile
	MaxPayloadBytes  int
	MaxCells         int
	MaxItems         int
	// ModelContextSize returns the context-window size (in tokens) for a
	// named model, consulted only under ProfileTokenDense as an extra
	// sizing hint for how aggressively to trim optional fields. Nil
	// disables the hint.
	ModelContextSize func(model string) int
}

// DefaultShaper returns verbose-profile defaults with fixed ceilings (1 MiB
// payload, 50,000 cells, 10,000 items) and no token-budget hint
// (ModelContextSize is nil; use NewShaper for a token_dense profile that
// needs one).
func DefaultShaper() Shaper {
	return Shaper{Profile: ProfileVerbose, MaxPayloadBytes: 1 << 20, MaxCells: 50_000, MaxItems: 10_000}
}

// NewShaper returns a Shaper for profile with the given size ceilings,
// wired to langchaingo's model-context-size table so TokenBudgetHint can
// report a real per-model token budget under ProfileTokenDense.
func NewShaper(profile Profile, maxPayloadBytes, maxCells, maxItems int) Shaper {
	return Shaper{
		Profile:          profile,
		MaxPayloadBytes:  maxPayloadBytes,
		MaxCells:         maxCells,
		MaxItems:         maxItems,
		ModelContextSize: llms.GetModelContextSize,
	}
}

// TokenBudgetHint reports the model-context-size hint for modelName when
// operating under ProfileTokenDense; it is zero under ProfileVerbose or
// when no sizing function is configured.
func (s Shaper) TokenBudgetHint(modelName string) int {
	if s.Profile != ProfileTokenDense || s.ModelContextSize == nil {
		return 0
	}
	return s.ModelContextSize(modelName)
}

// IncludeOptional reports whether optional context fields should render for
// this shaper's profile. token_dense always drops them; verbose keeps them
// unless forced out by a size ceiling on a specific payload.
func (s Shaper) IncludeOptional() bool {
	return s.Profile != ProfileTokenDense
}
