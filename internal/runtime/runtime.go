package runtime

import (
	"context"
	"time"

	"github.com/vinodismyname/mcpxcel/config"
	"golang.org/x/sync/semaphore"
)

// Limits captures the concurrency and workbook guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxOpenWorkbooks      int

	// Payload and row bounds
	MaxPayloadBytes int
	MaxCellsPerOp   int
	PreviewRowLimit int

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration

	// RecalcGateSize is M: the recalc orchestrator's concurrency gate.
	RecalcGateSize int
	// ForkPerSessionMax bounds how many forks a single session may hold.
	ForkPerSessionMax int
	// WorkbookCapacity is K: the repository's bounded-LRU capacity.
	WorkbookCapacity int
}

// NewLimits initializes Limits with sensible fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxOpenWorkbooks int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxOpenWorkbooks <= 0 {
		maxOpenWorkbooks = config.DefaultMaxOpenWorkbooks
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxOpenWorkbooks:      maxOpenWorkbooks,
		MaxPayloadBytes:       config.DefaultMaxPayloadBytes,
		MaxCellsPerOp:         config.DefaultMaxCellsPerOp,
		PreviewRowLimit:       config.DefaultPreviewRowLimit,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
		RecalcGateSize:        config.DefaultRecalcGateSize,
		ForkPerSessionMax:     config.DefaultForkPerSessionMax,
		WorkbookCapacity:      config.DefaultWorkbookCapacity,
	}
}

// Controller coordinates runtime semaphores for request, workbook, and
// recalc guardrails.
type Controller struct {
	limits            Limits
	requestSemaphore  *semaphore.Weighted
	workbookSemaphore *semaphore.Weighted
	recalcSemaphore   *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	gateSize := limits.RecalcGateSize
	if gateSize <= 0 {
		gateSize = config.DefaultRecalcGateSize
	}
	return &Controller{
		limits:            limits,
		requestSemaphore:  semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		workbookSemaphore: semaphore.NewWeighted(int64(limits.MaxOpenWorkbooks)),
		recalcSemaphore:   semaphore.NewWeighted(int64(gateSize)),
	}
}

// AcquireRecalc reserves a slot in the process-global recalc concurrency
// gate (M of spec.md §4.5), honoring ctx's deadline while waiting.
func (c *Controller) AcquireRecalc(ctx context.Context) error {
	return c.recalcSemaphore.Acquire(ctx, 1)
}

// ReleaseRecalc frees a previously-acquired recalc gate slot.
func (c *Controller) ReleaseRecalc() {
	c.recalcSemaphore.Release(1)
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireWorkbook reserves an open workbook slot.
func (c *Controller) AcquireWorkbook(ctx context.Context) error {
	return c.workbookSemaphore.Acquire(ctx, 1)
}

// ReleaseWorkbook frees an open workbook slot.
func (c *Controller) ReleaseWorkbook() {
	c.workbookSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
