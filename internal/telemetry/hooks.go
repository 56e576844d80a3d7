package telemetry

import (
	"time"

	"github.com/rs/zerolog"
)

// Hooks records engine-internal telemetry: lease contention, fork mutation,
// and recalculation outcomes. It is intentionally minimal; metrics backends
// can be added later under this package.
type Hooks struct {
	logger zerolog.Logger
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger}
}

// OnLeaseWait records that a caller started waiting for a workbook lease
// (kind is "read" or "write").
func (h *Hooks) OnLeaseWait(workbookID, kind string) {
	h.logger.Debug().Str("workbook_id", workbookID).Str("kind", kind).Msg("lease wait started")
}

// OnLeaseGranted records that a previously-waited-for lease was granted,
// along with how long the caller waited for it.
func (h *Hooks) OnLeaseGranted(workbookID, kind string, waited time.Duration) {
	h.logger.Debug().Str("workbook_id", workbookID).Str("kind", kind).Dur("waited", waited).Msg("lease granted")
}

// OnForkMutated records a fork mutation: the originating operation, cells
// touched, and whether it left recalc_needed set.
func (h *Hooks) OnForkMutated(forkID, origin string, cellsTouched int, recalcNeeded bool) {
	h.logger.Info().
		Str("fork_id", forkID).
		Str("origin", origin).
		Int("cells_touched", cellsTouched).
		Bool("recalc_needed", recalcNeeded).
		Msg("fork mutated")
}

// OnRecalcOutcome records the result of a recalculation run.
func (h *Hooks) OnRecalcOutcome(forkID, backend string, duration time.Duration, cellsEvaluated int, err error) {
	evt := h.logger.Info().
		Str("fork_id", forkID).
		Str("backend", backend).
		Dur("duration", duration).
		Int("cells_evaluated", cellsEvaluated)
	if err != nil {
		h.logger.Error().Str("fork_id", forkID).Str("backend", backend).Dur("duration", duration).Err(err).Msg("recalc failed")
		return
	}
	evt.Msg("recalc completed")
}
