package forks

import (
	"sync"
	"time"

	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/vinodismyname/mcpxcel/pkg/cellref"
)

// Origin records who produced an Edit.
type Origin string

const (
	OriginUser        Origin = "user"
	OriginPatternFill Origin = "pattern-fill"
	OriginTransform   Origin = "transform"
)

// RecalcOutcome is the last recorded result of recalculating a fork, per
// spec.md §4.5. Populated by internal/recalc.
type RecalcOutcome struct {
	Backend        string
	DurationMillis int64
	CellsEvaluated int
	Errors         []string
}

// Checkpoint is a full copy of a fork's workbook at a point in time, plus
// the journal length at creation (used to truncate on restore).
type Checkpoint struct {
	ID          string
	Label       string
	CreatedAt   time.Time
	handle      *workbook.Handle
	journalMark int
}

// StagedChange is a validated batch operation held pending explicit apply,
// per spec.md §4.3.
type StagedChange struct {
	ID              string
	Kind            string
	Patch           *Patch
	EstimatedCounts ChangeSummary
	Warnings        []string
	Applied         bool
}

// Fork is the mutable, privately-owned copy of a base workbook described by
// spec.md §3. All reads and mutations against a fork's workbook serialize
// through its fork-lease (mu); two tools touching the same fork concurrently
// arrive-order-serialize on that mutex.
type Fork struct {
	ID             string
	SessionID      string
	BaseWorkbookID string
	CreatedAt      time.Time

	mu     sync.Mutex
	handle *workbook.Handle

	Journal      []Edit
	checkpoints  map[string]*Checkpoint
	ckptOrder    []string // oldest-first insertion order, for bounded eviction
	staged       map[string]*StagedChange
	stagedOrder  []string
	RecalcNeeded bool
	LastRecalc   *RecalcOutcome

	maxCheckpoints int
	clock          func() time.Time
	observer       ForkObserver
}

// ForkObserver receives fork-mutation telemetry;
// internal/telemetry.Hooks satisfies this via its OnForkMutated method.
type ForkObserver interface {
	OnForkMutated(forkID, origin string, cellsTouched int, recalcNeeded bool)
}

type noopForkObserver struct{}

func (noopForkObserver) OnForkMutated(string, string, int, bool) {}

// Edit is a single applied mutation in the fork's journal.
type Edit struct {
	Sheet     string
	Address   cellref.Address
	Value     cellref.Value // Kind == KindFormula when Formula carries an expression
	AppliedAt time.Time
	Origin    Origin
}

// Lock acquires the fork-lease for the duration of an operation. Callers
// must call the returned unlock function exactly once.
func (f *Fork) Lock() func() {
	f.mu.Lock()
	return f.mu.Unlock
}

// Handle returns the fork's private workbook handle. Callers must hold the
// fork-lease (via Lock) for the duration of any use.
func (f *Fork) Handle() *workbook.Handle { return f.handle }
