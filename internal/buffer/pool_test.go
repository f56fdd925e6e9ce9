package buffer

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/pagekit/internal/disk"
	"github.com/tuannm99/pagekit/internal/page"
)

func newTestPool(t *testing.T, poolSize int) (*Pool, *disk.Manager) {
	t.Helper()
	dir := t.TempDir()
	d, err := disk.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Shutdown() })
	return NewPool(d, poolSize), d
}

// TestDirtyWriteBackOnEviction exercises scenario B: pool size 5, fill
// every frame with a page, write to each and unpin it dirty, then force
// an eviction by allocating a sixth page. The victim (the first page
// unpinned) must have its dirty contents on disk.
func TestDirtyWriteBackOnEviction(t *testing.T) {
	p, d := newTestPool(t, 5)

	ids := make([]page.ID, 5)
	for i := range ids {
		frame, id, err := p.NewPage()
		require.NoError(t, err)
		ids[i] = id
		copy(frame.Data[:], []byte("page-data"))
		require.NoError(t, p.UnpinPage(id, true))
	}

	victim := ids[0]

	sixth, _, err := p.NewPage()
	require.NoError(t, err)
	require.NotNil(t, sixth)

	buf := make([]byte, page.Size)
	require.NoError(t, d.ReadPage(victim, buf))
	require.True(t, bytes.HasPrefix(buf, []byte("page-data")))
}

// TestPinPreventsEviction exercises scenario C: pool size 1. A second
// NewPage must fail with ErrNoVictim while the only frame stays
// pinned, and succeed once it is unpinned.
func TestPinPreventsEviction(t *testing.T) {
	p, _ := newTestPool(t, 1)

	_, id0, err := p.NewPage()
	require.NoError(t, err)

	_, _, err = p.NewPage()
	require.ErrorIs(t, err, ErrNoVictim)

	require.NoError(t, p.UnpinPage(id0, false))

	_, id1, err := p.NewPage()
	require.NoError(t, err)
	require.NotEqual(t, id0, id1)
}

// TestUnpinDiscipline exercises scenario F: double-unpinning a page
// must surface ErrPinCountUnderflow, and unpinning a page that was
// never fetched must surface ErrNotFound.
func TestUnpinDiscipline(t *testing.T) {
	p, _ := newTestPool(t, 2)

	_, id, err := p.NewPage()
	require.NoError(t, err)

	require.NoError(t, p.UnpinPage(id, false))
	err = p.UnpinPage(id, false)
	require.ErrorIs(t, err, ErrPinCountUnderflow)

	err = p.UnpinPage(page.ID(999), false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchPage_HitIncrementsPinAndReusesFrame(t *testing.T) {
	p, _ := newTestPool(t, 2)

	frame, id, err := p.NewPage()
	require.NoError(t, err)
	copy(frame.Data[:], []byte("hit-me"))
	require.NoError(t, p.UnpinPage(id, true))

	got, err := p.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, 1, got.PinCount)
	require.True(t, bytes.HasPrefix(got.Data[:], []byte("hit-me")))
}

func TestFetchPage_MissLoadsFromDisk(t *testing.T) {
	p, d := newTestPool(t, 2)

	id, err := d.AllocatePage()
	require.NoError(t, err)

	want := make([]byte, page.Size)
	copy(want, []byte("from-disk"))
	require.NoError(t, d.WritePage(id, want))

	frame, err := p.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, want, frame.Data[:])
}

func TestDeletePage_RejectsPinned(t *testing.T) {
	p, _ := newTestPool(t, 2)

	_, id, err := p.NewPage()
	require.NoError(t, err)

	err = p.DeletePage(id)
	require.ErrorIs(t, err, ErrPagePinned)

	require.NoError(t, p.UnpinPage(id, false))
	require.NoError(t, p.DeletePage(id))
}

func TestFlushPage_WritesRegardlessOfPinCount(t *testing.T) {
	p, d := newTestPool(t, 2)

	frame, id, err := p.NewPage()
	require.NoError(t, err)
	copy(frame.Data[:], []byte("flush-me"))

	require.NoError(t, p.FlushPage(id))

	buf := make([]byte, page.Size)
	require.NoError(t, d.ReadPage(id, buf))
	require.True(t, bytes.HasPrefix(buf, []byte("flush-me")))
}
