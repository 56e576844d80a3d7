package config

import "time"

// Default runtime limits and guardrails for the MCP Excel Analysis Server.
// These values are conservative and can be overridden by future configuration
// mechanisms (env, CLI, or files). They are referenced by internal/runtime.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenWorkbooks      = 4

	// Payload and row limits
	DefaultMaxPayloadBytes = 128 * 1024 // 128KB
	DefaultMaxCellsPerOp   = 10_000
	DefaultPreviewRowLimit = 10 // First 10 rows by default
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
)

const (
	// DefaultWorkbookIdleTTL is how long an opened workbook handle stays
	// cached without being accessed before it becomes eligible for
	// background eviction.
	DefaultWorkbookIdleTTL = 15 * time.Minute
	// DefaultWorkbookCleanupPeriod is how often the repository's background
	// loop scans for idle-expired handles.
	DefaultWorkbookCleanupPeriod = 1 * time.Minute
)

const (
	// DefaultWorkbookCapacity is K: the bounded-LRU repository capacity.
	DefaultWorkbookCapacity = 5

	// DefaultRecalcGateSize is M: the recalc orchestrator's concurrency gate.
	DefaultRecalcGateSize = 2

	// DefaultForkPerSessionMax bounds how many forks a single session may
	// hold open concurrently.
	DefaultForkPerSessionMax = 8

	// DefaultMaxCheckpointsPerFork bounds in-memory checkpoint retention;
	// beyond this the oldest checkpoint is evicted.
	DefaultMaxCheckpointsPerFork = 10

	// DefaultDiffEpsilon is the absolute tolerance used when comparing
	// floating-point cell values during changeset diff.
	DefaultDiffEpsilon = 1e-9

	// DefaultMaxItems bounds list-returning tool responses in item count,
	// independent of the byte-size cap.
	DefaultMaxItems = 500
)
