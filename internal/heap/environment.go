package heap

import (
	"encoding/binary"

	"github.com/zhongfu/sinter/internal/nanbox"
)

// envHeaderSize is the size of an environment's payload fields before its
// flexible slot array: parent(4) + count(4).
const envHeaderSize = 8

// NewEnv allocates an environment with the given number of slots, parented
// to parent (which may be Nil for the root environment). Every slot starts
// out holding EmptyBox, matching spec.md's "an environment slot that has
// never been stored to reads as empty" rule. If parent is not Nil, its
// reference count is bumped: an environment owns a reference to its
// parent for as long as it lives (spec.md §4.1's "sienv_new retains
// parent").
func (a *Arena) NewEnv(parent uint32, slotCount int) (uint32, bool) {
	off, ok := a.Malloc(envHeaderSize+slotCount*4, KindEnv)
	if !ok {
		return 0, false
	}
	v := a.View(off)
	binary.LittleEndian.PutUint32(v[0:4], parent)
	binary.LittleEndian.PutUint32(v[4:8], uint32(slotCount))
	empty := nanbox.EmptyBox()
	for i := 0; i < slotCount; i++ {
		binary.LittleEndian.PutUint32(v[envHeaderSize+i*4:], uint32(empty))
	}
	if parent != Nil {
		a.Retain(parent)
	}
	return off, true
}

// EnvParent returns the offset of env's parent environment, or Nil if it
// has none.
func (a *Arena) EnvParent(env uint32) uint32 {
	return binary.LittleEndian.Uint32(a.View(env)[0:4])
}

// EnvSlotCount returns the number of slots env has.
func (a *Arena) EnvSlotCount(env uint32) int {
	return int(binary.LittleEndian.Uint32(a.View(env)[4:8]))
}

// EnvGet returns the value in env's slot at index, and whether index was
// in range. An out-of-range index is an INVALID_LOAD fault at the
// internal/vm layer (spec.md §4.5's "out-of-bounds env access faults"),
// not something this package decides how to report.
func (a *Arena) EnvGet(env uint32, index int) (nanbox.Box, bool) {
	if index < 0 || index >= a.EnvSlotCount(env) {
		return 0, false
	}
	v := a.View(env)
	return nanbox.Box(binary.LittleEndian.Uint32(v[envHeaderSize+index*4:])), true
}

// EnvPut stores value into env's slot at index, releasing whatever pointer
// value previously occupied the slot. It reports whether index was in
// range.
//
// EnvPut consumes the reference embedded in value rather than retaining a
// new one (spec.md §4.2: "Environment put consumes the incoming
// reference"): a caller that wants to keep its own copy of a pointer box
// after handing it to EnvPut must Retain it first. This is what lets a
// straight pop-then-put (stl/stp, call argument binding) move a value
// into a slot with no extra retain/release pair.
func (a *Arena) EnvPut(env uint32, index int, value nanbox.Box, destroy func(Kind, uint32)) bool {
	if index < 0 || index >= a.EnvSlotCount(env) {
		return false
	}
	v := a.View(env)
	off := envHeaderSize + index*4
	old := nanbox.Box(binary.LittleEndian.Uint32(v[off:]))
	if old.IsPointer() {
		a.Release(old.Pointer(), destroy)
	}
	binary.LittleEndian.PutUint32(v[off:], uint32(value))
	return true
}

// EnvAncestor walks depth parent links up from env and returns the
// environment found there, and whether the chain was long enough.
func (a *Arena) EnvAncestor(env uint32, depth int) (uint32, bool) {
	for ; depth > 0; depth-- {
		env = a.EnvParent(env)
		if env == Nil {
			return 0, false
		}
	}
	return env, true
}

// DestroyEnv releases every slot in env that holds a pointer, then
// releases env's parent. Called by Arena.Release's destroy callback when
// an environment's reference count reaches zero (spec.md §4.1's
// "sienv_destroy").
func (a *Arena) DestroyEnv(env uint32, destroy func(Kind, uint32)) {
	count := a.EnvSlotCount(env)
	for i := 0; i < count; i++ {
		b, _ := a.EnvGet(env, i)
		if b.IsPointer() {
			a.Release(b.Pointer(), destroy)
		}
	}
	parent := a.EnvParent(env)
	if parent != Nil {
		a.Release(parent, destroy)
	}
}
