// Package forks implements the fork registry, edit-normalization and batch
// application, checkpoint snapshotting, and staged-change lifecycle of
// spec.md §4.3 and §4.4 (Components E, F).
package forks

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vinodismyname/mcpxcel/config"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
)

// Registry is the in-memory, per-process map of live forks, grouped by the
// session that created them so a per-session maximum can be enforced.
type Registry struct {
	mu            sync.RWMutex
	forks         map[string]*Fork
	bySession     map[string]map[string]struct{}
	maxPerSession int
	maxCheckpoint int
	clock         func() time.Time
	observer      ForkObserver
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*Registry)

// WithMaxPerSession overrides the per-session fork cap.
func WithMaxPerSession(n int) RegistryOption {
	return func(r *Registry) { r.maxPerSession = n }
}

// WithMaxCheckpoints overrides the per-fork checkpoint retention bound.
func WithMaxCheckpoints(n int) RegistryOption {
	return func(r *Registry) { r.maxCheckpoint = n }
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithObserver installs a telemetry sink for fork-mutation events, applied
// to every fork the registry subsequently creates.
func WithObserver(o ForkObserver) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

// NewRegistry constructs an empty fork registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		forks:         make(map[string]*Fork),
		bySession:     make(map[string]map[string]struct{}),
		maxPerSession: config.DefaultForkPerSessionMax,
		maxCheckpoint: config.DefaultMaxCheckpointsPerFork,
		clock:         time.Now,
		observer:      noopForkObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create deep-copies baseHandle into a new fork owned by sessionID. Returns
// ResourceExhausted once the session already holds maxPerSession forks.
func (r *Registry) Create(sessionID, baseWorkbookID string, baseHandle *workbook.Handle) (*Fork, error) {
	r.mu.Lock()
	if len(r.bySession[sessionID]) >= r.maxPerSession {
		r.mu.Unlock()
		return nil, mcperr.New(mcperr.ResourceExhausted, "session %s already holds %d forks", sessionID, r.maxPerSession)
	}
	r.mu.Unlock()

	forkID := uuid.NewString()
	clone, err := baseHandle.Clone(forkID, r.clock)
	if err != nil {
		return nil, mcperr.New(mcperr.Internal, "fork clone failed: %v", err)
	}

	now := r.clock()
	f := &Fork{
		ID:             forkID,
		SessionID:      sessionID,
		BaseWorkbookID: baseWorkbookID,
		CreatedAt:      now,
		handle:         clone,
		checkpoints:    make(map[string]*Checkpoint),
		staged:         make(map[string]*StagedChange),
		maxCheckpoints: r.maxCheckpoint,
		clock:          r.clock,
		observer:       r.observer,
	}

	r.mu.Lock()
	r.forks[forkID] = f
	if r.bySession[sessionID] == nil {
		r.bySession[sessionID] = make(map[string]struct{})
	}
	r.bySession[sessionID][forkID] = struct{}{}
	r.mu.Unlock()

	return f, nil
}

// Get returns the fork by id.
func (r *Registry) Get(forkID string) (*Fork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forks[forkID]
	if !ok {
		return nil, mcperr.New(mcperr.NotFound, "fork %s not known", forkID)
	}
	return f, nil
}

// Discard destroys a fork and releases its workbook. Safe to call only when
// no caller is concurrently operating against the fork.
func (r *Registry) Discard(forkID string) error {
	r.mu.Lock()
	f, ok := r.forks[forkID]
	if !ok {
		r.mu.Unlock()
		return mcperr.New(mcperr.NotFound, "fork %s not known", forkID)
	}
	delete(r.forks, forkID)
	if set, ok := r.bySession[f.SessionID]; ok {
		delete(set, forkID)
		if len(set) == 0 {
			delete(r.bySession, f.SessionID)
		}
	}
	r.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle.Close()
}

// DiscardSession destroys every fork owned by sessionID (session shutdown).
func (r *Registry) DiscardSession(sessionID string) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.bySession[sessionID]))
	for id := range r.bySession[sessionID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		_ = r.Discard(id)
	}
}

// Count returns the number of live forks across all sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forks)
}
