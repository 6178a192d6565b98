package heap

import "math"

// Kind classifies the object stored in a heap block (spec.md §3.3).
type Kind uint8

const (
	// KindFree marks a block on the free list. It never appears as the
	// Kind of a block a caller holds a reference to.
	KindFree Kind = iota
	// KindEnv is an environment: a parent pointer plus a slice of slots.
	KindEnv
	// KindFunction is a closure: a code pointer plus a captured environment.
	KindFunction
	// KindFrame is a saved call activation: a return address plus a saved
	// operand-stack window and environment.
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindEnv:
		return "env"
	case KindFunction:
		return "function"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Nil is the sentinel offset meaning "no block", used in place of a null
// pointer for prevNode/parent/free-list links. It is never a valid block
// offset because it would require an arena larger than 4 GiB.
const Nil uint32 = math.MaxUint32

// headerSize is the size in bytes of a block header, common to every
// block regardless of Kind.
const headerSize = 12

// header is the fixed preamble of every heap block: 12 bytes laid out as
// kind(1) + pad(1) + refcount(2) + prevNode(4) + size(4). prevNode is the
// offset of the block immediately preceding this one in address order,
// which Malloc/Free use to find a block's backward neighbour for
// coalescing without walking the whole arena.
type header struct {
	kind     Kind
	_        [1]byte
	refcount uint16
	prevNode uint32
	size     uint32 // total block size, header included
}

// freeHeader extends header with the doubly linked free-list pointers.
// Every free block's bytes beyond headerSize are owned by the allocator,
// not by any object, so this layout is only ever read through a block
// whose kind is KindFree.
type freeHeader struct {
	header
	prevFree uint32
	nextFree uint32
}

const freeHeaderSize = headerSize + 8

// minBlockSize is the smallest block Malloc will ever split off, equal to
// the size of a free block's own bookkeeping. A remainder smaller than
// this is left attached to the allocated block instead of becoming a new
// free block.
const minBlockSize = freeHeaderSize
