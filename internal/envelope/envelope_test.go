package envelope

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/internal/regions"
	"github.com/vinodismyname/mcpxcel/internal/shaping"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

func fixedClock() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestCallMapsDeadlineExceededToTimeout(t *testing.T) {
	env := New(5*time.Millisecond, 0)
	_, err := env.Call(context.Background(), func(ctx context.Context) (any, []Warning, error) {
		<-ctx.Done()
		return nil, nil, errors.New("blocked work aborted")
	})
	require.Error(t, err)
	assert.Equal(t, mcperr.Timeout, mcperr.CodeOf(err))
}

func TestCallPassesThroughTaxonomyErrors(t *testing.T) {
	env := New(0, 0)
	_, err := env.Call(context.Background(), func(ctx context.Context) (any, []Warning, error) {
		return nil, nil, mcperr.New(mcperr.NotFound, "fork %s not known", "fork-1")
	})
	require.Error(t, err)
	assert.Equal(t, mcperr.NotFound, mcperr.CodeOf(err))
}

func TestCallEnforcesMaxResponseBytes(t *testing.T) {
	env := New(0, 16)
	_, err := env.Call(context.Background(), func(ctx context.Context) (any, []Warning, error) {
		return map[string]string{"data": "this payload is long enough to exceed sixteen bytes"}, nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, mcperr.ResourceExhausted, mcperr.CodeOf(err))
}

func TestCallAllowsResponseUnderMaxResponseBytes(t *testing.T) {
	env := New(0, 1<<20)
	res, err := env.Call(context.Background(), func(ctx context.Context) (any, []Warning, error) {
		return "ok", nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Payload)
}

func TestCallReturnsPayloadAndWarningsOnSuccess(t *testing.T) {
	env := New(0, 0)
	res, err := env.Call(context.Background(), func(ctx context.Context) (any, []Warning, error) {
		return "ok", []Warning{{Code: "X", Detail: "y"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Payload)
	assert.Len(t, res.Warnings, 1)
}

func TestWithForkWarningsInjectsStaleFormulas(t *testing.T) {
	f := excelize.NewFile()
	h := workbook.New("wb-1", "/tmp/x.xlsx", f, fixedClock(), 0, fixedClock())
	reg := forks.NewRegistry(forks.WithClock(fixedClock))
	fk, err := reg.Create("session-1", "wb-1", h)
	require.NoError(t, err)

	fk.RecalcNeeded = true
	warnings := WithForkWarnings(fk, nil)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnStaleFormulas, warnings[0].Code)

	fk.RecalcNeeded = false
	assert.Empty(t, WithForkWarnings(fk, nil))
}

func TestWithRegionWarningsFlagsLowConfidence(t *testing.T) {
	boundsA, err := cellref.ParseRange("A1:B2")
	require.NoError(t, err)
	boundsB, err := cellref.ParseRange("D1:E2")
	require.NoError(t, err)

	consulted := []regions.Region{
		{ID: 1, Bounds: boundsA, Kind: regions.KindData, Confidence: 0.9, Orientation: regions.OrientationTabular},
		{ID: 2, Bounds: boundsB, Kind: regions.KindData, Confidence: 0.3, Orientation: regions.OrientationTabular},
	}
	warnings := WithRegionWarnings(consulted, 0.5, nil)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnRegionLowConfidence, warnings[0].Code)
}

func TestShapeWarningsDropsDetailUnderTokenDense(t *testing.T) {
	warnings := []Warning{{Code: WarnStaleFormulas, Detail: "some context"}}

	dense := shaping.Shaper{Profile: shaping.ProfileTokenDense}
	shaped := ShapeWarnings(dense, warnings)
	require.Len(t, shaped, 1)
	assert.Equal(t, WarnStaleFormulas, shaped[0].Code)
	assert.Empty(t, shaped[0].Detail)

	verbose := shaping.Shaper{Profile: shaping.ProfileVerbose}
	assert.Equal(t, warnings, ShapeWarnings(verbose, warnings))
}
