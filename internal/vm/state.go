package vm

import (
	"github.com/zhongfu/sinter/internal/bytecode"
	"github.com/zhongfu/sinter/internal/heap"
	"github.com/zhongfu/sinter/internal/opstack"
)

// State is everything one dispatch loop invocation mutates: the heap
// arena, the operand stack, a cursor positioned at the next instruction to
// decode, the environment chain's current link, and the stack of
// outstanding call-frame heap objects. A State is used by exactly one Run
// call and discarded afterward; spec.md §5 rules out sharing either the
// arena or the stack array between concurrent runs.
type State struct {
	Arena *heap.Arena
	Stack *opstack.Stack
	Code  []byte

	PC  bytecode.Cursor
	Env uint32

	// Frames is the LIFO of live heap.KindFrame offsets, one per currently
	// suspended caller activation, outermost first. The top of this slice
	// is the frame that a ret_*/call_t will pop next. A plain call pushes
	// onto it; a ret_* or call_t pops from it. Tail calls keep this slice's
	// length bounded regardless of call depth, which is what gives
	// tail-recursive loops O(1) frames (spec.md §4.5).
	Frames []uint32

	// SafetyChecks gates whether an out-of-range ldl/stl/ldp/stp access
	// raises a clean ReasonInvalidLoad (true, the default) or is treated as
	// a ReasonInternalError (false): spec.md §4.3 only requires the bounds
	// check "when safety checks enabled", leaving an implementation free to
	// assume well-formed bytecode otherwise. This VM always performs the
	// underlying bounds comparison either way -- Go has no safe way to skip
	// it and still recover from a bad index -- so disabling it only
	// changes which fault reason surfaces, not whether the access is
	// memory-safe.
	SafetyChecks bool
}

// pushFrame records a newly created call frame as the one to restore when
// the activation that follows it completes.
func (s *State) pushFrame(off uint32) {
	s.Frames = append(s.Frames, off)
}

// popFrame pops and destroys the most recently pushed call frame, clearing
// every slot left in the current operand-stack window, restoring the
// window and environment it saved, and reporting the return address that
// was saved there (heap.Nil at the root frame, signalling that the program
// has finished).
func (s *State) popFrame() (returnAddress uint32, savedEnv uint32) {
	n := len(s.Frames)
	frame := s.Frames[n-1]
	s.Frames = s.Frames[:n-1]

	for {
		v, ok := s.Stack.Pop()
		if !ok {
			break
		}
		s.Arena.ReleaseBox(v)
	}

	returnAddress = s.Arena.FrameReturnAddress(frame)
	bottom, limit, top := s.Arena.FrameSavedWindow(frame)
	savedEnv = s.Arena.FrameSavedEnv(frame)
	s.Stack.RestoreWindow(bottom, limit, top)
	s.Arena.Release(frame, s.Arena.Destroy)
	return returnAddress, savedEnv
}
