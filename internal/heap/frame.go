package heap

import "encoding/binary"

// frameSize is the size of a frame object's payload: returnAddress(4) +
// savedBottom(4) + savedLimit(4) + savedTop(4) + savedEnv(4).
const frameSize = 20

// NewFrame allocates a saved call activation: the address execution
// resumes at on return, the caller's operand-stack window, and the
// caller's environment. A frame does not retain savedEnv — ownership of
// that reference transfers from the "current environment" register into
// the frame and back again on return, it is never duplicated (spec.md
// §4.3, §4.6's call/return algorithm).
func (a *Arena) NewFrame(returnAddress, savedBottom, savedLimit, savedTop, savedEnv uint32) (uint32, bool) {
	off, ok := a.Malloc(frameSize, KindFrame)
	if !ok {
		return 0, false
	}
	v := a.View(off)
	binary.LittleEndian.PutUint32(v[0:4], returnAddress)
	binary.LittleEndian.PutUint32(v[4:8], savedBottom)
	binary.LittleEndian.PutUint32(v[8:12], savedLimit)
	binary.LittleEndian.PutUint32(v[12:16], savedTop)
	binary.LittleEndian.PutUint32(v[16:20], savedEnv)
	return off, true
}

// FrameReturnAddress returns the saved return address.
func (a *Arena) FrameReturnAddress(fr uint32) uint32 {
	return binary.LittleEndian.Uint32(a.View(fr)[0:4])
}

// FrameSavedWindow returns the saved operand-stack window (bottom, limit,
// top).
func (a *Arena) FrameSavedWindow(fr uint32) (bottom, limit, top uint32) {
	v := a.View(fr)
	return binary.LittleEndian.Uint32(v[4:8]),
		binary.LittleEndian.Uint32(v[8:12]),
		binary.LittleEndian.Uint32(v[12:16])
}

// FrameSavedEnv returns the saved environment.
func (a *Arena) FrameSavedEnv(fr uint32) uint32 {
	return binary.LittleEndian.Uint32(a.View(fr)[16:20])
}

// DestroyFrame is a no-op: a frame does not own any reference beyond what
// NewFrame captured by value, so there is nothing to release when one
// dies (spec.md §4.3's "siframe_destroy").
func (a *Arena) DestroyFrame(uint32, func(Kind, uint32)) {}
