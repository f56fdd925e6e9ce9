// Package slotted views a buffer pool frame's raw bytes as a slotted
// page: a growing-forward slot directory paired with a growing-backward
// tuple heap. It borrows a frame's bytes for the duration of a single
// operation and owns none of them.
package slotted

import (
	"github.com/tuannm99/pagekit/internal/bx"
	"github.com/tuannm99/pagekit/internal/page"
)

const (
	offsetNextPageID = 0
	offsetPrevPageID = 4
	offsetNumSlots   = 8
	offsetFreeSpace  = 10

	// HeaderSize is the fixed byte length of the page header: two u32
	// neighbor ids followed by two u16 counters.
	HeaderSize = 12

	// SlotSize is the byte length of one slot directory entry: a u16
	// offset followed by a u16 length.
	SlotSize = 4
)

// Page is a non-owning view over a frame's byte buffer, interpreting it
// as a slot directory plus tuple heap. Callers construct one per
// operation; it holds no state beyond the slice it was given.
type Page struct {
	buf []byte
}

// View wraps buf (expected to be a frame's full page.Size buffer) as a
// slotted page. It does not validate or initialize the header; call
// Init for a fresh page or use View directly on a page already
// initialized by a prior Init.
func View(buf []byte) Page {
	return Page{buf: buf}
}

// Init writes a fresh header: zero slots, a free space pointer at the
// very end of the page, and the given neighbor ids. It does not zero
// the rest of the page; callers must supply an already-zeroed frame
// (as buffer-pool-allocated frames are).
func (p Page) Init(prevID, nextID page.ID) {
	bx.PutU32At(p.buf, offsetNextPageID, uint32(nextID))
	bx.PutU32At(p.buf, offsetPrevPageID, uint32(prevID))
	bx.PutU16At(p.buf, offsetNumSlots, 0)
	bx.PutU16At(p.buf, offsetFreeSpace, page.Size)
}

func (p Page) NextPageID() page.ID { return page.ID(bx.U32At(p.buf, offsetNextPageID)) }
func (p Page) PrevPageID() page.ID { return page.ID(bx.U32At(p.buf, offsetPrevPageID)) }
func (p Page) NumSlots() int       { return int(bx.U16At(p.buf, offsetNumSlots)) }
func (p Page) FreeSpacePointer() int {
	return int(bx.U16At(p.buf, offsetFreeSpace))
}

func (p Page) setNumSlots(n int)         { bx.PutU16At(p.buf, offsetNumSlots, uint16(n)) }
func (p Page) setFreeSpacePointer(v int) { bx.PutU16At(p.buf, offsetFreeSpace, uint16(v)) }

func (p Page) slotOffset(slotID int) int { return HeaderSize + slotID*SlotSize }

func (p Page) slot(slotID int) (offset, length int) {
	o := p.slotOffset(slotID)
	return int(bx.U16At(p.buf, o)), int(bx.U16At(p.buf, o+2))
}

func (p Page) putSlot(slotID, offset, length int) {
	o := p.slotOffset(slotID)
	bx.PutU16At(p.buf, o, uint16(offset))
	bx.PutU16At(p.buf, o+2, uint16(length))
}

func (p Page) freeSpaceRemaining() int {
	return p.FreeSpacePointer() - (HeaderSize + p.NumSlots()*SlotSize)
}

// InsertTuple appends tup to the tuple heap and a matching slot to the
// directory, returning the newly assigned (stable) slot id. Returns
// ok=false if there is not enough free space for the tuple plus one
// slot entry.
func (p Page) InsertTuple(tup []byte) (slotID int, ok bool) {
	needed := len(tup) + SlotSize
	if needed > p.freeSpaceRemaining() {
		return 0, false
	}

	newFree := p.FreeSpacePointer() - len(tup)
	copy(p.buf[newFree:newFree+len(tup)], tup)
	p.setFreeSpacePointer(newFree)

	id := p.NumSlots()
	p.putSlot(id, newFree, len(tup))
	p.setNumSlots(id + 1)
	return id, true
}

// GetTuple returns a copy of the tuple bytes stored at slotID. Returns
// ok=false if slotID is out of range or the slot was soft-deleted.
func (p Page) GetTuple(slotID int) (tup []byte, ok bool) {
	if slotID < 0 || slotID >= p.NumSlots() {
		return nil, false
	}
	offset, length := p.slot(slotID)
	if length == 0 {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, p.buf[offset:offset+length])
	return out, true
}

// MarkDelete soft-deletes slotID by zeroing its offset and length.
// Tuple bytes are not reclaimed or compacted; the slot id itself stays
// assigned and is never reused. Returns ok=false if slotID is out of
// range or already deleted.
func (p Page) MarkDelete(slotID int) (ok bool) {
	if slotID < 0 || slotID >= p.NumSlots() {
		return false
	}
	_, length := p.slot(slotID)
	if length == 0 {
		return false
	}
	p.putSlot(slotID, 0, 0)
	return true
}
