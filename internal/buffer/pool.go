// Package buffer implements the buffer pool manager: the cache
// coherency point between clients and the disk manager. It caches
// pages in a fixed set of frames, tracks pin counts, writes dirty
// pages back on eviction, and picks eviction victims via an LRU
// replacer.
package buffer

import (
	"container/list"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuannm99/pagekit/internal/disk"
	"github.com/tuannm99/pagekit/internal/page"
	"github.com/tuannm99/pagekit/internal/replacer"
)

var logPrefix = "bufferpool: "

var (
	// ErrNoVictim is returned by FetchPage/NewPage when every frame is
	// pinned: there is no free slot and the replacer has nothing to
	// evict.
	ErrNoVictim = errors.New("buffer: no free frame available (all pinned)")

	// ErrNotFound is returned by UnpinPage/FlushPage/DeletePage when the
	// page is not currently resident in the pool.
	ErrNotFound = errors.New("buffer: page not in buffer pool")

	// ErrPinCountUnderflow is returned by UnpinPage when called on a
	// page whose pin count is already zero. This is a client logic
	// error, not a transient condition.
	ErrPinCountUnderflow = errors.New("buffer: page is not pinned")

	// ErrPagePinned is returned by DeletePage when the page is still
	// pinned by some client.
	ErrPagePinned = errors.New("buffer: cannot delete a pinned page")
)

// Pool is a fixed-size buffer pool manager backed by one disk.Manager.
// Every public method takes the pool's single mutex for its entire
// duration, guaranteeing linearizable behavior across fetch/new/unpin.
type Pool struct {
	mu sync.Mutex

	disk *disk.Manager

	frames    []page.Frame
	pageTable map[page.ID]page.FrameID
	freeList  *list.List // holds page.FrameID; starts in ascending order, freed frames go to the back
	lru       *replacer.LRU

	poolSize int
}

// NewPool creates a buffer pool of poolSize frames backed by d. All
// frames start out free.
func NewPool(d *disk.Manager, poolSize int) *Pool {
	p := &Pool{
		disk:      d,
		frames:    make([]page.Frame, poolSize),
		pageTable: make(map[page.ID]page.FrameID),
		freeList:  list.New(),
		lru:       replacer.New(poolSize),
		poolSize:  poolSize,
	}
	for i := range p.frames {
		p.frames[i].PageID = page.InvalidID
		p.freeList.PushBack(page.FrameID(i))
	}
	return p
}

// acquireFrame picks a frame to hold a new page identity: first from
// the free list, otherwise by asking the LRU replacer for a victim. If
// the victim is dirty, its contents are flushed to disk before the
// frame is handed back; if that write fails, the frame stays dirty and
// goes back into the replacer. It does NOT remove the victim's old page id
// from the page table; the caller owns deciding the frame's new
// identity and must do that itself. ok is false only when neither the
// free list nor the replacer had anything to offer (every frame
// pinned).
func (p *Pool) acquireFrame() (frameID page.FrameID, ok bool, err error) {
	if front := p.freeList.Front(); front != nil {
		p.freeList.Remove(front)
		return front.Value.(page.FrameID), true, nil
	}

	frameID, found := p.lru.Victim()
	if !found {
		return 0, false, nil
	}

	frame := &p.frames[frameID]
	if frame.Dirty {
		if err := p.disk.WritePage(frame.PageID, frame.Data[:]); err != nil {
			p.lru.Unpin(frameID)
			return 0, false, fmt.Errorf("buffer: evict flush page %d: %w", frame.PageID, err)
		}
		frame.Dirty = false
	}
	return frameID, true, nil
}

// FetchPage returns the page identified by id, pinning it. On a cache
// hit the existing frame is reused; on a miss a frame is acquired (free
// list, then LRU eviction) and the page is loaded from disk. Returns
// ErrNoVictim if every frame is pinned.
func (p *Pool) FetchPage(id page.ID) (*page.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.pageTable[id]; ok {
		frame := &p.frames[frameID]
		frame.PinCount++
		p.lru.Pin(frameID)
		slog.Debug(logPrefix+"fetch hit", "pageID", id, "frameID", frameID, "pinCount", frame.PinCount)
		return frame, nil
	}

	frameID, ok, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoVictim
	}

	frame := &p.frames[frameID]
	if frame.PageID != page.InvalidID {
		delete(p.pageTable, frame.PageID)
	}

	frame.PageID = id
	frame.PinCount = 1
	frame.Dirty = false

	if err := p.disk.ReadPage(id, frame.Data[:]); err != nil {
		frame.Reset()
		p.freeList.PushBack(frameID)
		return nil, fmt.Errorf("buffer: fetch page %d: %w", id, err)
	}

	p.pageTable[id] = frameID
	p.lru.Pin(frameID)

	slog.Debug(logPrefix+"fetch miss loaded", "pageID", id, "frameID", frameID)
	return frame, nil
}

// NewPage allocates a fresh page on disk, loads it into a pinned,
// zeroed frame, and returns it along with the id that was assigned.
// Returns ErrNoVictim if every frame is pinned.
func (p *Pool) NewPage() (*page.Frame, page.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok, err := p.acquireFrame()
	if err != nil {
		return nil, page.InvalidID, err
	}
	if !ok {
		return nil, page.InvalidID, ErrNoVictim
	}

	newID, err := p.disk.AllocatePage()
	if err != nil {
		return nil, page.InvalidID, fmt.Errorf("buffer: allocate page: %w", err)
	}

	frame := &p.frames[frameID]
	if frame.PageID != page.InvalidID {
		delete(p.pageTable, frame.PageID)
	}

	frame.Reset()
	frame.PageID = newID
	frame.PinCount = 1
	frame.Dirty = false

	p.pageTable[newID] = frameID
	p.lru.Pin(frameID)

	slog.Debug(logPrefix+"new page", "pageID", newID, "frameID", frameID)
	return frame, newID, nil
}

// UnpinPage decrements the pin count of a resident page, OR-ing isDirty
// onto its sticky dirty flag. Once the pin count reaches zero the frame
// becomes evictable. Returns ErrNotFound if the page isn't resident, or
// ErrPinCountUnderflow if its pin count is already zero.
func (p *Pool) UnpinPage(id page.ID, isDirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[id]
	if !ok {
		return ErrNotFound
	}

	frame := &p.frames[frameID]
	if frame.PinCount <= 0 {
		return ErrPinCountUnderflow
	}

	if isDirty {
		frame.Dirty = true
	}
	frame.PinCount--
	if frame.PinCount == 0 {
		p.lru.Unpin(frameID)
	}

	slog.Debug(logPrefix+"unpin", "pageID", id, "pinCount", frame.PinCount, "dirty", frame.Dirty)
	return nil
}

// FlushPage writes a resident page's current bytes to disk and clears
// its dirty flag, regardless of pin count. Returns ErrNotFound if the
// page isn't resident.
func (p *Pool) FlushPage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[id]
	if !ok {
		return ErrNotFound
	}

	frame := &p.frames[frameID]
	if err := p.disk.WritePage(id, frame.Data[:]); err != nil {
		return fmt.Errorf("buffer: flush page %d: %w", id, err)
	}
	frame.Dirty = false
	return nil
}

// DeletePage removes a page from the in-memory pool (not from disk).
// It rejects deletion of a pinned page: the caller must unpin every
// outstanding reference first. A dirty page is flushed before its
// frame is freed, so no modification is silently lost. Returns
// ErrNotFound if the page isn't resident.
func (p *Pool) DeletePage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[id]
	if !ok {
		return ErrNotFound
	}

	frame := &p.frames[frameID]
	if frame.PinCount != 0 {
		return ErrPagePinned
	}

	if frame.Dirty {
		if err := p.disk.WritePage(id, frame.Data[:]); err != nil {
			return fmt.Errorf("buffer: delete flush page %d: %w", id, err)
		}
	}

	p.lru.Pin(frameID) // remove from replacer tracking, if present
	delete(p.pageTable, id)
	frame.Reset()
	p.freeList.PushBack(frameID)

	slog.Debug(logPrefix+"delete page", "pageID", id, "frameID", frameID)
	return nil
}
