// Package replacer tracks which buffer pool frames are currently
// eligible for eviction, in least-recently-used order.
package replacer

import (
	"container/list"
	"sync"

	"github.com/tuannm99/pagekit/internal/page"
)

// LRU is the ordered set of evictable frame ids. Insertion order into
// the list IS the LRU order: a frame that re-enters the replacer after
// being pinned and unpinned again is treated as most recently used.
// There is no reference-bit update while a frame stays in the
// replacer; pinned frames are simply outside its universe.
//
// LRU carries its own mutex so it is safe to call from multiple
// goroutines, but in normal use it is always additionally guarded by
// the buffer pool's mutex.
type LRU struct {
	mu       sync.Mutex
	list     *list.List
	elements map[page.FrameID]*list.Element
	capacity int
}

// New creates a replacer that will track at most capacity frames at
// once (normally the buffer pool's frame count).
func New(capacity int) *LRU {
	return &LRU{
		list:     list.New(),
		elements: make(map[page.FrameID]*list.Element),
		capacity: capacity,
	}
}

// Unpin marks a frame as evictable, appending it to the back (most
// recently used end) of the LRU order. A no-op if the frame is already
// tracked, or if the replacer is already at capacity.
func (r *LRU) Unpin(frameID page.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.elements[frameID]; ok {
		return
	}
	if r.list.Len() >= r.capacity {
		return
	}
	r.elements[frameID] = r.list.PushBack(frameID)
}

// Pin removes a frame from the replacer, taking it out of eviction
// consideration. A no-op if the frame is not tracked.
func (r *LRU) Pin(frameID page.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, ok := r.elements[frameID]
	if !ok {
		return
	}
	r.list.Remove(elem)
	delete(r.elements, frameID)
}

// Victim removes and returns the least-recently-used tracked frame, or
// ok=false if the replacer is empty.
func (r *LRU) Victim() (frameID page.FrameID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	front := r.list.Front()
	if front == nil {
		return 0, false
	}
	r.list.Remove(front)
	id := front.Value.(page.FrameID)
	delete(r.elements, id)
	return id, true
}

// Size returns the number of frames currently tracked as evictable.
func (r *LRU) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Len()
}
