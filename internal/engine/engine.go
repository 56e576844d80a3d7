// Package engine composes the server's components into a single explicit
// value, per spec.md §9's "global process state ... modeled as a single
// value, constructed once" redesign flag: no singletons, no package-level
// mutable state. Every component that previously might have reached for a
// package global instead takes EngineContext (or one of its fields) as an
// explicit dependency.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/internal/recalc"
	"github.com/vinodismyname/mcpxcel/internal/regions"
	"github.com/vinodismyname/mcpxcel/internal/repository"
	"github.com/vinodismyname/mcpxcel/internal/runtime"
	"github.com/vinodismyname/mcpxcel/internal/security"
	"github.com/vinodismyname/mcpxcel/internal/shaping"
	"github.com/vinodismyname/mcpxcel/internal/telemetry"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
)

// Config bundles the knobs New needs. Zero MaxConcurrentRequests and
// MaxOpenWorkbooks fall back to config's defaults through
// internal/runtime.NewLimits; zero MaxCells or MaxItems leaves that count
// unclamped, and the remaining fields document their own zero values.
type Config struct {
	MaxConcurrentRequests int
	MaxOpenWorkbooks      int
	AllowedDirectories    []string
	AllowedExtensions     []string
	RecalcBackend         recalc.Backend // nil selects recalc.InProcessBackend{}
	Logger                zerolog.Logger

	// OutputProfile selects the response-shaping profile (spec.md §4.7,
	// Component I). Empty defaults to shaping.ProfileVerbose.
	OutputProfile   shaping.Profile
	MaxResponseBytes int // 0 disables the envelope's response-size ceiling
	MaxCells         int
	MaxItems         int

	// RegionScan bounds the region-detection pipeline's used-range scan
	// (spec.md §4.2, Component D). Zero values fall back to regions.Detect's
	// own defaults.
	RegionScan regions.Options
}

// EngineContext owns every long-lived component: the workbook repository,
// the fork registry, the recalc orchestrator, and the runtime controller.
// Constructed once at process startup by New and passed explicitly to
// whatever transport adapter drives it (cmd/enginectl, or eventually a full
// MCP server).
type EngineContext struct {
	Repository *repository.Repository
	Forks      *forks.Registry
	Recalc     *recalc.Orchestrator
	Controller *runtime.Controller
	Security   *security.Manager
	Telemetry  *telemetry.Hooks
	Limits     runtime.Limits

	// Shaper bounds every tool response's pagination/truncation behavior
	// and token-budget hinting (spec.md §4.7, Component I).
	Shaper shaping.Shaper
	// RegionScan is threaded through to every Regions call so callers don't
	// each have to carry their own scan budget.
	RegionScan regions.Options
}

// New wires every component together: the security allow-list becomes the
// repository's PathValidator, the runtime controller's semaphores become
// the repository's workbook-admission gate and the recalc orchestrator's
// concurrency gate, and the telemetry hooks are threaded through all three
// as the lease/fork/recalc observers.
func New(cfg Config) (*EngineContext, error) {
	secMgr, err := security.NewManager(cfg.AllowedDirectories, cfg.AllowedExtensions)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	hooks := telemetry.NewHooks(logger)

	limits := runtime.NewLimits(cfg.MaxConcurrentRequests, cfg.MaxOpenWorkbooks)
	controller := runtime.NewController(limits)

	repo := repository.New(limits.WorkbookCapacity,
		repository.WithGate(controller),
		repository.WithValidator(secMgr),
		repository.WithLeaseObserver(hooks),
		repository.WithLogger(logger),
	)
	repo.Start()

	forkRegistry := forks.NewRegistry(
		forks.WithMaxPerSession(limits.ForkPerSessionMax),
		forks.WithObserver(hooks),
	)

	backend := cfg.RecalcBackend
	if backend == nil {
		backend = recalc.InProcessBackend{}
	}
	orchestrator := recalc.NewOrchestrator(backend, controller, time.Now).WithObserver(hooks)

	profile := cfg.OutputProfile
	if profile == "" {
		profile = shaping.ProfileVerbose
	}
	shaper := shaping.NewShaper(profile, cfg.MaxResponseBytes, cfg.MaxCells, cfg.MaxItems)

	return &EngineContext{
		Repository: repo,
		Forks:      forkRegistry,
		Recalc:     orchestrator,
		Controller: controller,
		Security:   secMgr,
		Telemetry:  hooks,
		Limits:     limits,
		Shaper:     shaper,
		RegionScan: cfg.RegionScan,
	}, nil
}

// Regions detects (or reuses the cached detection for) sheet's regions in
// handle, using the engine's configured scan budget. This is the composed
// entry point for Component D; callers that already hold a *workbook.Handle
// should use it instead of calling internal/regions directly, so the scan
// budget stays centralized in one place.
func (e *EngineContext) Regions(handle *workbook.Handle, sheet string) ([]regions.Region, error) {
	return handle.Regions(sheet, e.RegionScan)
}

// Close stops the repository's background eviction loop and releases every
// handle it still holds.
func (e *EngineContext) Close(ctx context.Context) error {
	return e.Repository.Close(ctx)
}
