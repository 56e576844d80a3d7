// Package repository implements the bounded-LRU workbook repository: it maps
// workbook ids to workbook.Handle values, admits and evicts handles under a
// capacity K, and hands out exclusive/shared leases so that a handle is
// never shared concurrently between a reader and a writer.
package repository

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/mcpxcel/config"
	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/xuri/excelize/v2"
)

// ErrNotFound indicates an unknown or expired workbook id.
var ErrNotFound = errors.New("repository: workbook not found")

// ErrResourceExhausted names the condition of a repository at capacity with
// no evictable (lease-free) slot. Open and Adopt do not return it: in that
// condition they admit the new handle anyway and the cache holds more than
// its capacity.
var ErrResourceExhausted = errors.New("repository: no evictable slot available")

// ErrConflict indicates an operation that requires an idle handle found one
// with live leases (e.g. Close).
var ErrConflict = errors.New("repository: handle has live leases")

// Gate coordinates admission capacity for open workbook handles, backed by
// runtime.Controller in the composed engine.
type Gate interface {
	AcquireWorkbook(ctx context.Context) error
	ReleaseWorkbook()
}

// PathValidator abstracts filesystem allow-list validation. Implementations
// return a canonical absolute path when the input is permitted.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// LeaseObserver receives lease-wait telemetry; internal/telemetry.Hooks
// satisfies this via its OnLeaseWait/OnLeaseGranted methods.
type LeaseObserver interface {
	OnLeaseWait(workbookID, kind string)
	OnLeaseGranted(workbookID, kind string, waited time.Duration)
}

type noopLeaseObserver struct{}

func (noopLeaseObserver) OnLeaseWait(string, string)                 {}
func (noopLeaseObserver) OnLeaseGranted(string, string, time.Duration) {}

type entry struct {
	handle      *workbook.Handle
	elem        *list.Element // position in the LRU list; front = most-recently-used
	readers     int
	writerBusy  bool
	writerQueue int // count of pending write-lease waiters; gates new readers (anti-starvation)
	expiresAt   time.Time
	notify      chan struct{} // closed+replaced on any state transition; broadcast wakeup
}

func (e *entry) wake() {
	close(e.notify)
	e.notify = make(chan struct{})
}

// Repository is the Component C workbook repository of spec.md §4.1.
type Repository struct {
	mu           sync.Mutex
	byID         map[string]*entry
	lru          *list.List // list.Element.Value is the workbook id (string)
	capacity     int
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         Gate
	validator    PathValidator
	observer     LeaseObserver
	logger       zerolog.Logger
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
}

// Option configures a Repository at construction time.
type Option func(*Repository)

// WithGate installs the admission gate backing open-workbook capacity.
func WithGate(g Gate) Option { return func(r *Repository) { r.gate = g } }

// WithValidator installs the path allow-list validator.
func WithValidator(v PathValidator) Option { return func(r *Repository) { r.validator = v } }

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option { return func(r *Repository) { r.clock = clock } }

// WithLogger installs a structured logger.
func WithLogger(logger zerolog.Logger) Option { return func(r *Repository) { r.logger = logger } }

// WithIdleTTL overrides the idle-eviction TTL.
func WithIdleTTL(ttl time.Duration) Option { return func(r *Repository) { r.ttl = ttl } }

// WithLeaseObserver installs a telemetry sink for lease-wait/grant events.
func WithLeaseObserver(o LeaseObserver) Option { return func(r *Repository) { r.observer = o } }

// New constructs a Repository with the given LRU capacity K.
func New(capacity int, opts ...Option) *Repository {
	if capacity <= 0 {
		capacity = config.DefaultWorkbookCapacity
	}
	r := &Repository{
		byID:         make(map[string]*entry),
		lru:          list.New(),
		capacity:     capacity,
		ttl:          config.DefaultWorkbookIdleTTL,
		cleanupEvery: config.DefaultWorkbookCleanupPeriod,
		clock:        time.Now,
		logger:       zerolog.Nop(),
		observer:     noopLeaseObserver{},
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background idle-eviction loop.
func (r *Repository) Start() {
	r.cleanupWG.Add(1)
	ticker := time.NewTicker(r.cleanupEvery)
	go func() {
		defer r.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.evictIdle()
			}
		}
	}()
}

// Close stops the background loop and force-closes every remaining handle.
func (r *Repository) Close(ctx context.Context) error {
	close(r.stopCh)
	done := make(chan struct{})
	go func() { r.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.byID {
		_ = e.handle.Close()
		delete(r.byID, id)
		if r.gate != nil {
			r.gate.ReleaseWorkbook()
		}
	}
	return nil
}

// Open loads a workbook from path, admits it under the capacity gate and
// LRU policy, and returns its id and canonical path.
func (r *Repository) Open(ctx context.Context, path string) (id string, canonical string, err error) {
	canonical = path
	if r.validator != nil {
		canonical, err = r.validator.ValidateOpenPath(path)
		if err != nil {
			return "", "", err
		}
	}

	ext := strings.ToLower(filepath.Ext(canonical))
	switch ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
	default:
		return "", "", fmt.Errorf("repository: unsupported format %q", ext)
	}

	if err := r.admit(ctx); err != nil {
		return "", "", err
	}

	info, statErr := os.Stat(canonical)
	f, openErr := excelize.OpenFile(canonical)
	if openErr != nil {
		r.release()
		return "", "", fmt.Errorf("repository: open %q: %w", canonical, openErr)
	}
	var modTime time.Time
	var size int64
	if statErr == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	newID := uuid.NewString()
	now := r.clock()
	h := workbook.New(newID, canonical, f, modTime, size, now)

	r.mu.Lock()
	r.insertLocked(newID, h, now)
	r.mu.Unlock()

	r.logger.Info().Str("workbook_id", newID).Str("path", canonical).Msg("workbook opened")
	return newID, canonical, nil
}

// Adopt registers an already-open excelize.File (tests, or forks adopting a
// scratch copy) as a managed handle.
func (r *Repository) Adopt(ctx context.Context, path string, f *excelize.File) (id string, err error) {
	if err := r.admit(ctx); err != nil {
		return "", err
	}
	newID := uuid.NewString()
	now := r.clock()
	h := workbook.New(newID, path, f, now, 0, now)

	r.mu.Lock()
	r.insertLocked(newID, h, now)
	r.mu.Unlock()
	return newID, nil
}

// GetOrOpenByPath returns the id of an already-open handle for path if one
// exists, opening a new handle otherwise.
func (r *Repository) GetOrOpenByPath(ctx context.Context, path string) (id string, canonical string, err error) {
	r.mu.Lock()
	for wid, e := range r.byID {
		if e.handle.Path == path {
			r.touchLocked(wid, e)
			r.mu.Unlock()
			return wid, e.handle.Path, nil
		}
	}
	r.mu.Unlock()
	return r.Open(ctx, path)
}

// insertLocked adds a newly-opened handle, evicting the LRU entry with zero
// live leases if the repository is at capacity. Caller holds r.mu.
func (r *Repository) insertLocked(id string, h *workbook.Handle, now time.Time) {
	if r.lru.Len() >= r.capacity {
		r.evictOneLocked()
	}
	e := &entry{handle: h, expiresAt: now.Add(r.ttl), notify: make(chan struct{})}
	e.elem = r.lru.PushFront(id)
	r.byID[id] = e
}

// evictOneLocked evicts the least-recently-used entry with zero live leases.
// No-op if none qualifies (capacity is simply exceeded until one frees up).
func (r *Repository) evictOneLocked() {
	for el := r.lru.Back(); el != nil; el = el.Prev() {
		id := el.Value.(string)
		e := r.byID[id]
		if e.readers == 0 && !e.writerBusy && e.writerQueue == 0 {
			r.lru.Remove(el)
			delete(r.byID, id)
			_ = e.handle.Close()
			if r.gate != nil {
				r.gate.ReleaseWorkbook()
			}
			r.logger.Info().Str("workbook_id", id).Msg("workbook evicted (LRU)")
			return
		}
	}
}

func (r *Repository) touchLocked(id string, e *entry) {
	e.expiresAt = r.clock().Add(r.ttl)
	r.lru.MoveToFront(e.elem)
}

// Close drops a handle from the cache, rejecting if any lease is live.
func (r *Repository) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if e.readers > 0 || e.writerBusy || e.writerQueue > 0 {
		return ErrConflict
	}
	r.lru.Remove(e.elem)
	delete(r.byID, id)
	_ = e.handle.Close()
	if r.gate != nil {
		r.gate.ReleaseWorkbook()
	}
	return nil
}

// Handle returns the underlying workbook.Handle without acquiring a lease;
// intended for read-only introspection (e.g. Version()) by callers that
// already hold a lease obtained separately.
func (r *Repository) Handle(id string) (*workbook.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

func (r *Repository) admit(ctx context.Context) error {
	if r.gate == nil {
		return nil
	}
	return r.gate.AcquireWorkbook(ctx)
}

func (r *Repository) release() {
	if r.gate == nil {
		return
	}
	r.gate.ReleaseWorkbook()
}

func (r *Repository) evictIdle() {
	now := r.clock()
	var expired []string
	r.mu.Lock()
	for id, e := range r.byID {
		if now.After(e.expiresAt) && e.readers == 0 && !e.writerBusy && e.writerQueue == 0 {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		if err := r.Close(id); err != nil {
			r.logger.Debug().Str("workbook_id", id).Err(err).Msg("idle eviction skipped (became busy)")
		} else {
			r.logger.Info().Str("workbook_id", id).Msg("workbook evicted (idle TTL)")
		}
	}
}

// Count returns the current number of cached handles.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
