package forks

import (
	"time"

	"github.com/google/uuid"
	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
)

// CreateCheckpoint snapshots the fork's current workbook, bounded by
// maxCheckpoints (oldest evicted first once exceeded), per spec.md §4.4.
func (f *Fork) CreateCheckpoint(label string, now func() time.Time) (*Checkpoint, error) {
	unlock := f.Lock()
	defer unlock()

	id := uuid.NewString()
	snapshot, err := f.handle.Clone(id, now)
	if err != nil {
		return nil, mcperr.New(mcperr.Internal, "checkpoint snapshot failed: %v", err)
	}

	ck := &Checkpoint{
		ID:          id,
		Label:       label,
		CreatedAt:   now(),
		handle:      snapshot,
		journalMark: len(f.Journal),
	}
	f.checkpoints[id] = ck
	f.ckptOrder = append(f.ckptOrder, id)

	if f.maxCheckpoints > 0 && len(f.ckptOrder) > f.maxCheckpoints {
		evictID := f.ckptOrder[0]
		f.ckptOrder = f.ckptOrder[1:]
		if old, ok := f.checkpoints[evictID]; ok {
			_ = old.handle.Close()
			delete(f.checkpoints, evictID)
		}
	}

	return ck, nil
}

// RestoreCheckpoint replaces the fork's workbook with a fresh copy of the
// checkpoint's snapshot and truncates the journal to the point of the
// checkpoint's creation. Restoring the same checkpoint twice is idempotent:
// the second call observes the already-truncated journal and yields the
// same resulting state, per spec.md §8.
func (f *Fork) RestoreCheckpoint(checkpointID string, now func() time.Time) error {
	unlock := f.Lock()
	defer unlock()

	ck, ok := f.checkpoints[checkpointID]
	if !ok {
		return mcperr.New(mcperr.NotFound, "checkpoint %s not known", checkpointID)
	}

	restored, err := ck.handle.Clone(f.handle.ID, now)
	if err != nil {
		return mcperr.New(mcperr.Internal, "checkpoint restore failed: %v", err)
	}

	_ = f.handle.Close()
	f.handle = restored
	if ck.journalMark <= len(f.Journal) {
		f.Journal = f.Journal[:ck.journalMark]
	}
	f.RecalcNeeded = true
	return nil
}

// ListCheckpoints returns every live checkpoint, oldest first.
func (f *Fork) ListCheckpoints() []*Checkpoint {
	unlock := f.Lock()
	defer unlock()
	out := make([]*Checkpoint, 0, len(f.ckptOrder))
	for _, id := range f.ckptOrder {
		if ck, ok := f.checkpoints[id]; ok {
			out = append(out, ck)
		}
	}
	return out
}
