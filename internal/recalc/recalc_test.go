package recalc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/semaphore"
)

type weightedGate struct{ sem *semaphore.Weighted }

func newGate(size int64) *weightedGate { return &weightedGate{sem: semaphore.NewWeighted(size)} }

func (g *weightedGate) AcquireRecalc(ctx context.Context) error { return g.sem.Acquire(ctx, 1) }
func (g *weightedGate) ReleaseRecalc()                          { g.sem.Release(1) }

func fixedClock() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func newEditedFork(t *testing.T) *forks.Fork {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellInt("Sheet1", "B2", 100))
	require.NoError(t, f.SetCellInt("Sheet1", "B3", 200))
	require.NoError(t, f.SetCellFormula("Sheet1", "B4", "=SUM(B2:B3)"))
	h := workbook.New("wb-1", "/tmp/x.xlsx", f, fixedClock(), 0, fixedClock())

	reg := forks.NewRegistry(forks.WithClock(fixedClock))
	fk, err := reg.Create("session-1", "wb-1", h)
	require.NoError(t, err)
	return fk
}

func TestInProcessRecalcClearsRecalcNeededAndEvaluatesCells(t *testing.T) {
	fk := newEditedFork(t)
	fk.RecalcNeeded = true

	orch := NewOrchestrator(InProcessBackend{}, newGate(2), fixedClock)
	outcome, err := orch.Recalculate(context.Background(), fk, "Sheet1")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, outcome.CellsEvaluated, 1)
	assert.False(t, fk.RecalcNeeded)
	require.NotNil(t, fk.LastRecalc)
	assert.Equal(t, "in_process", fk.LastRecalc.Backend)

	got, err := fk.Handle().File.GetCellValue("Sheet1", "B4")
	require.NoError(t, err)
	assert.Equal(t, "300", got)
}

func TestRecalcGateBoundsConcurrency(t *testing.T) {
	gate := newGate(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, gate.AcquireRecalc(context.Background()))
	defer gate.ReleaseRecalc()

	err := gate.AcquireRecalc(ctx)
	assert.Error(t, err, "a second acquire must block until the deadline when the gate is saturated")
}
