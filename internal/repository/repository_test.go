package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempWorkbook(t *testing.T, dir, name string) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "x"))
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

// TestLRUEvictionHonorsLiveLeases is spec.md §8 scenario 5: capacity 2, open
// W1, W2, W3 in order while holding an active read lease on W1. W2 (the
// oldest evictable handle) is evicted, not W1.
func TestLRUEvictionHonorsLiveLeases(t *testing.T) {
	dir := t.TempDir()
	repo := New(2)
	ctx := context.Background()

	p1 := writeTempWorkbook(t, dir, "w1.xlsx")
	p2 := writeTempWorkbook(t, dir, "w2.xlsx")
	p3 := writeTempWorkbook(t, dir, "w3.xlsx")

	id1, _, err := repo.Open(ctx, p1)
	require.NoError(t, err)

	lease1, err := repo.OpenForRead(ctx, id1)
	require.NoError(t, err)
	defer lease1.Release()

	id2, _, err := repo.Open(ctx, p2)
	require.NoError(t, err)

	_, _, err = repo.Open(ctx, p3)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.Count())
	_, stillOpen := repo.Handle(id1)
	assert.True(t, stillOpen, "W1 must survive eviction while leased")
	_, w2Open := repo.Handle(id2)
	assert.False(t, w2Open, "W2 is the oldest evictable handle and must be evicted")
}

func TestWriteLeaseIsExclusive(t *testing.T) {
	dir := t.TempDir()
	repo := New(5)
	ctx := context.Background()
	path := writeTempWorkbook(t, dir, "w.xlsx")

	id, _, err := repo.Open(ctx, path)
	require.NoError(t, err)

	w, err := repo.OpenForWrite(ctx, id)
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = repo.OpenForRead(shortCtx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	w.Release(true, "Sheet1")

	r, err := repo.OpenForRead(ctx, id)
	require.NoError(t, err)
	r.Release()
}

func TestWriteLeaseBumpsVersionAndInvalidatesSheet(t *testing.T) {
	dir := t.TempDir()
	repo := New(5)
	ctx := context.Background()
	path := writeTempWorkbook(t, dir, "w.xlsx")

	id, _, err := repo.Open(ctx, path)
	require.NoError(t, err)

	h, _ := repo.Handle(id)
	assert.Equal(t, int64(0), h.Version())

	w, err := repo.OpenForWrite(ctx, id)
	require.NoError(t, err)
	w.Release(true, "Sheet1")

	assert.Equal(t, int64(1), h.Version())
}

func TestCloseRejectsLiveLease(t *testing.T) {
	dir := t.TempDir()
	repo := New(5)
	ctx := context.Background()
	path := writeTempWorkbook(t, dir, "w.xlsx")

	id, _, err := repo.Open(ctx, path)
	require.NoError(t, err)

	r, err := repo.OpenForRead(ctx, id)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Close(id), ErrConflict)

	r.Release()
	assert.NoError(t, repo.Close(id))
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
