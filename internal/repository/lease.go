package repository

import (
	"context"

	"github.com/vinodismyname/mcpxcel/internal/workbook"
	"github.com/xuri/excelize/v2"
)

// ReadLease is a shared claim on a workbook handle. Multiple ReadLeases may
// be live concurrently as long as no WriteLease is held or pending.
type ReadLease struct {
	repo     *Repository
	id       string
	handle   *workbook.Handle
	released bool
}

// File returns the underlying excelize workbook for read-only use.
func (l *ReadLease) File() *excelize.File { return l.handle.File }

// Handle returns the underlying workbook handle (for version/metrics reads).
func (l *ReadLease) Handle() *workbook.Handle { return l.handle }

// Release drops the shared claim.
func (l *ReadLease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.repo.releaseRead(l.id)
}

// WriteLease is an exclusive claim on a workbook handle held across a single
// mutation batch.
type WriteLease struct {
	repo     *Repository
	id       string
	handle   *workbook.Handle
	released bool
}

// File returns the underlying excelize workbook for mutation.
func (l *WriteLease) File() *excelize.File { return l.handle.File }

// Handle returns the underlying workbook handle.
func (l *WriteLease) Handle() *workbook.Handle { return l.handle }

// Release drops the exclusive claim. When mutated is true, the workbook's
// write-version counter is bumped and the named sheets' derived-metric cache
// is invalidated (coarse per-sheet invalidation per spec.md §4.1). Passing no
// sheet names with mutated=true invalidates nothing beyond the version bump;
// callers should name every sheet they touched.
func (l *WriteLease) Release(mutated bool, mutatedSheets ...string) {
	if l.released {
		return
	}
	l.released = true
	if mutated {
		l.handle.BumpVersion()
		l.handle.InvalidateSheets(mutatedSheets)
	}
	l.repo.releaseWrite(l.id)
}

// OpenForRead acquires a shared read lease on id, waiting (bounded by ctx)
// for any pending or active writer to drain. Readers that arrive while a
// writer is queued wait behind it to avoid starving writers.
func (r *Repository) OpenForRead(ctx context.Context, id string) (*ReadLease, error) {
	start := r.clock()
	waited := false
	for {
		r.mu.Lock()
		e, ok := r.byID[id]
		if !ok {
			r.mu.Unlock()
			return nil, ErrNotFound
		}
		if !e.writerBusy && e.writerQueue == 0 {
			e.readers++
			r.touchLocked(id, e)
			r.mu.Unlock()
			if waited {
				r.observer.OnLeaseGranted(id, "read", r.clock().Sub(start))
			}
			return &ReadLease{repo: r, id: id, handle: e.handle}, nil
		}
		notify := e.notify
		r.mu.Unlock()

		if !waited {
			r.observer.OnLeaseWait(id, "read")
			waited = true
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Repository) releaseRead(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	e.readers--
	e.wake()
}

// OpenForWrite acquires an exclusive write lease on id, waiting (bounded by
// ctx) for all active readers and any other writer to drain.
func (r *Repository) OpenForWrite(ctx context.Context, id string) (*WriteLease, error) {
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	e.writerQueue++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if e2, ok := r.byID[id]; ok && e2 == e {
			e.writerQueue--
		}
		r.mu.Unlock()
	}()

	start := r.clock()
	waited := false
	for {
		r.mu.Lock()
		e, ok := r.byID[id]
		if !ok {
			r.mu.Unlock()
			return nil, ErrNotFound
		}
		if !e.writerBusy && e.readers == 0 {
			e.writerBusy = true
			r.touchLocked(id, e)
			r.mu.Unlock()
			if waited {
				r.observer.OnLeaseGranted(id, "write", r.clock().Sub(start))
			}
			return &WriteLease{repo: r, id: id, handle: e.handle}, nil
		}
		notify := e.notify
		r.mu.Unlock()

		if !waited {
			r.observer.OnLeaseWait(id, "write")
			waited = true
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Repository) releaseWrite(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	e.writerBusy = false
	e.wake()
}
