package recalc

import (
	"context"
	"time"

	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
)

// Gate bounds concurrent recalculations across the process (M of spec.md
// §4.5), backed by internal/runtime.Controller in the composed engine.
type Gate interface {
	AcquireRecalc(ctx context.Context) error
	ReleaseRecalc()
}

// Observer receives recalc-outcome telemetry;
// internal/telemetry.Hooks satisfies this via its OnRecalcOutcome method.
type Observer interface {
	OnRecalcOutcome(forkID, backend string, duration time.Duration, cellsEvaluated int, err error)
}

type noopObserver struct{}

func (noopObserver) OnRecalcOutcome(string, string, time.Duration, int, error) {}

// Orchestrator drives recalculate(fork_id, options?) -> RecalculateOutcome.
type Orchestrator struct {
	backend  Backend
	gate     Gate
	clock    func() time.Time
	observer Observer
}

// NewOrchestrator constructs an Orchestrator over the given backend and
// concurrency gate.
func NewOrchestrator(backend Backend, gate Gate, clock func() time.Time) *Orchestrator {
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{backend: backend, gate: gate, clock: clock, observer: noopObserver{}}
}

// WithObserver installs a telemetry sink for recalc-outcome events.
func (o *Orchestrator) WithObserver(observer Observer) *Orchestrator {
	o.observer = observer
	return o
}

// Recalculate runs the configured backend against fork's workbook, gated by
// the process-wide concurrency semaphore and bounded by ctx's deadline.
// Success clears recalc_needed and records LastRecalc; a backend failure
// leaves the fork's recalc_needed flag untouched (pre-recalc state), per
// spec.md §7's propagation policy.
func (o *Orchestrator) Recalculate(ctx context.Context, f *forks.Fork, sheet string) (forks.RecalcOutcome, error) {
	if err := o.gate.AcquireRecalc(ctx); err != nil {
		if ctx.Err() != nil {
			return forks.RecalcOutcome{}, mcperr.New(mcperr.Timeout, "recalc gate wait: %v", err)
		}
		return forks.RecalcOutcome{}, mcperr.New(mcperr.ResourceExhausted, "recalc gate: %v", err)
	}
	defer o.gate.ReleaseRecalc()

	unlock := f.Lock()
	defer unlock()

	start := o.clock()
	outcome, err := o.backend.Recalc(ctx, f.Handle().File, sheet)
	duration := o.clock().Sub(start)

	if err != nil {
		o.observer.OnRecalcOutcome(f.ID, o.backend.Name(), duration, 0, err)
		if ctx.Err() != nil {
			return forks.RecalcOutcome{}, mcperr.New(mcperr.Timeout, "recalc deadline exceeded: %v", err)
		}
		return forks.RecalcOutcome{}, mcperr.New(mcperr.BackendError, "%s: %v", o.backend.Name(), err)
	}

	result := forks.RecalcOutcome{
		Backend:        outcome.Backend,
		DurationMillis: duration.Milliseconds(),
		CellsEvaluated: outcome.CellsEvaluated,
		Errors:         outcome.Errors,
	}
	f.RecalcNeeded = false
	f.LastRecalc = &result
	f.Handle().BumpVersion()
	f.Handle().InvalidateSheets(sheetsOrAll(f, sheet))
	o.observer.OnRecalcOutcome(f.ID, outcome.Backend, duration, outcome.CellsEvaluated, nil)
	return result, nil
}

func sheetsOrAll(f *forks.Fork, sheet string) []string {
	if sheet != "" {
		return []string{sheet}
	}
	return f.Handle().File.GetSheetList()
}
