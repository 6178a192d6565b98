// Package heap implements the VM's object heap: a fixed-size free-list
// arena (spec.md §3.2) holding reference-counted environments, closures,
// and call frames (spec.md §3.3, §4.1-4.3).
//
// Every object lives at a uint32 byte offset into a single backing
// []byte, the same representation a Box of Kind pointer carries (see
// internal/nanbox). Headers are overlaid onto that backing array with
// unsafe.Pointer, in the same spirit as a bump arena that hands out typed
// views over a raw byte buffer, except that blocks here can also be
// freed and reused.
package heap

import (
	"fmt"

	"github.com/zhongfu/sinter/internal/unsafe2"
)

// Arena is a fixed-capacity heap. A zero Arena is not usable; construct
// one with NewArena.
type Arena struct {
	mem       []byte
	firstFree uint32
}

// NewArena allocates an Arena backed by a single contiguous buffer of the
// given size, matching spec.md's SINTER_HEAP_SIZE default when a caller
// just wants the reference configuration.
func NewArena(size int) *Arena {
	if size < minBlockSize {
		panic("heap: arena too small")
	}
	a := &Arena{mem: make([]byte, size), firstFree: 0}
	fh := a.freeHeaderAt(0)
	fh.kind = KindFree
	fh.prevNode = Nil
	fh.size = uint32(size)
	fh.prevFree = Nil
	fh.nextFree = Nil
	return a
}

// Len returns the arena's total capacity in bytes.
func (a *Arena) Len() int { return len(a.mem) }

// Reset wipes every block and reinstalls a single free block spanning the
// whole arena, letting a Machine recycle an Arena from a pool between Run
// calls instead of reallocating its backing array each time.
func (a *Arena) Reset() {
	clear(a.mem)
	a.firstFree = 0
	fh := a.freeHeaderAt(0)
	fh.kind = KindFree
	fh.prevNode = Nil
	fh.size = uint32(len(a.mem))
	fh.prevFree = Nil
	fh.nextFree = Nil
}

func (a *Arena) headerAt(off uint32) *header {
	return unsafe2.Cast[header](&a.mem[off])
}

func (a *Arena) freeHeaderAt(off uint32) *freeHeader {
	return unsafe2.Cast[freeHeader](&a.mem[off])
}

// bytesAt returns the payload bytes of the block at off, i.e. everything
// after its header, navigated the way unsafe2's VLA idiom accesses a
// variable-length array trailing a fixed struct rather than by reslicing
// a.mem by hand.
func (a *Arena) bytesAt(off uint32) []byte {
	h := a.headerAt(off)
	return unsafe2.Beyond[byte](h).Slice(int(h.size) - headerSize)
}

func (a *Arena) hasNext(off uint32) bool {
	h := a.headerAt(off)
	return off+h.size < uint32(len(a.mem))
}

func (a *Arena) nextOf(off uint32) uint32 {
	return off + a.headerAt(off).size
}

// freeListRemove unlinks the free block at off from the free list.
func (a *Arena) freeListRemove(off uint32) {
	fh := a.freeHeaderAt(off)
	if fh.prevFree == Nil {
		a.firstFree = fh.nextFree
	} else {
		a.freeHeaderAt(fh.prevFree).nextFree = fh.nextFree
	}
	if fh.nextFree != Nil {
		a.freeHeaderAt(fh.nextFree).prevFree = fh.prevFree
	}
}

// freeListInsert pushes the free block at off onto the front of the free
// list.
func (a *Arena) freeListInsert(off uint32) {
	fh := a.freeHeaderAt(off)
	fh.prevFree = Nil
	fh.nextFree = a.firstFree
	if a.firstFree != Nil {
		a.freeHeaderAt(a.firstFree).prevFree = off
	}
	a.firstFree = off
}

// fixNextPrevNode updates the prevNode of the block following off (if
// any) to point back at off, used after a block at off changes size or
// identity.
func (a *Arena) fixNextPrevNode(off uint32) {
	if a.hasNext(off) {
		a.headerAt(a.nextOf(off)).prevNode = off
	}
}

// Malloc reserves a block of at least size payload bytes and returns its
// offset. ok is false if the arena has no free block large enough,
// mirroring siheap_malloc's failure mode (spec.md §3.2: allocation
// failure is a fault the caller raises, not something this package
// decides).
func (a *Arena) Malloc(size int, kind Kind) (uint32, bool) {
	total := uint32(headerSize + align4(size))
	if total < minBlockSize {
		total = minBlockSize
	}

	off := a.firstFree
	for off != Nil {
		fh := a.freeHeaderAt(off)
		if fh.size >= total {
			break
		}
		off = fh.nextFree
	}
	if off == Nil {
		return 0, false
	}

	fh := a.freeHeaderAt(off)
	remainder := fh.size - total
	a.freeListRemove(off)

	if remainder >= minBlockSize {
		h := a.headerAt(off)
		h.size = total
		splitOff := off + total
		sh := a.freeHeaderAt(splitOff)
		sh.kind = KindFree
		sh.prevNode = off
		sh.size = remainder
		sh.prevFree = Nil
		sh.nextFree = Nil
		a.freeListInsert(splitOff)
		a.fixNextPrevNode(splitOff)
	}

	h := a.headerAt(off)
	h.kind = kind
	h.refcount = 0
	clear(a.bytesAt(off))
	return off, true
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Free returns the block at off to the free list, coalescing with an
// adjacent free neighbour on either side (spec.md §3.2's three-way
// coalescing: both neighbours free, only the next, only the previous, or
// neither).
func (a *Arena) Free(off uint32) {
	h := a.headerAt(off)
	prevOff := h.prevNode
	prevFree := prevOff != Nil && a.headerAt(prevOff).kind == KindFree
	nextOff := uint32(0)
	nextFree := false
	if a.hasNext(off) {
		nextOff = a.nextOf(off)
		nextFree = a.headerAt(nextOff).kind == KindFree
	}

	// Mark the block free before coalescing, so its header reads as free
	// even when it is absorbed into the previous block below.
	h.kind = KindFree

	switch {
	case prevFree && nextFree:
		a.freeListRemove(prevOff)
		a.freeListRemove(nextOff)
		ph := a.headerAt(prevOff)
		ph.size += h.size + a.headerAt(nextOff).size
		a.freeListInsert(prevOff)
		a.fixNextPrevNode(prevOff)

	case prevFree:
		a.freeListRemove(prevOff)
		ph := a.headerAt(prevOff)
		ph.size += h.size
		a.freeListInsert(prevOff)
		a.fixNextPrevNode(prevOff)

	case nextFree:
		a.freeListRemove(nextOff)
		h.size += a.headerAt(nextOff).size
		a.freeListInsert(off)
		a.fixNextPrevNode(off)

	default:
		a.freeListInsert(off)
	}
}

// Refcount returns the current reference count of the block at off.
func (a *Arena) Refcount(off uint32) uint16 {
	return a.headerAt(off).refcount
}

// Kind returns the Kind of the block at off.
func (a *Arena) Kind(off uint32) Kind {
	return a.headerAt(off).kind
}

// maxRefcount is the ceiling on a block's reference count. spec.md treats
// overflowing it as a fatal condition rather than silently wrapping,
// since a wrapped count that reaches zero while still aliased would free
// a block still in use.
const maxRefcount = 0xFFFF

// OverflowError is panicked by Retain when a block's reference count would
// overflow. internal/vm's top-level recover (Run) specifically recognizes
// this type and turns it into a ReasonInternalError Fault instead of
// letting it escape as an uncaught panic, the way any other *fault is
// turned into an error at that same boundary.
type OverflowError struct {
	Kind   Kind
	Offset uint32
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("heap: refcount overflow on %s block at %#x", e.Kind, e.Offset)
}

// Retain increments the reference count of the block at off. It panics
// with *OverflowError if the count would overflow; spec.md requires this
// to surface as a fault, and internal/vm's fault-recovery boundary is
// responsible for turning that panic into one.
func (a *Arena) Retain(off uint32) {
	h := a.headerAt(off)
	if h.refcount == maxRefcount {
		panic(&OverflowError{Kind: h.kind, Offset: off})
	}
	h.refcount++
}

// Release decrements the reference count of the block at off, destroying
// and freeing it once the count reaches zero. destroy is called with the
// block's own offset and kind so the caller (internal/vm, via Destroyer)
// can release any pointers the object itself owns before the block's
// bytes are reclaimed.
func (a *Arena) Release(off uint32, destroy func(kind Kind, off uint32)) {
	h := a.headerAt(off)
	if h.refcount == 0 {
		panic(fmt.Sprintf("heap: release of already-dead %s block at %#x", h.kind, off))
	}
	h.refcount--
	if h.refcount == 0 {
		if destroy != nil {
			destroy(h.kind, off)
		}
		a.Free(off)
	}
}

// View returns the payload bytes of the block at off, for use by
// environment.go/function.go/frame.go's typed accessors.
func (a *Arena) View(off uint32) []byte {
	return a.bytesAt(off)
}
