// Package opstack implements the VM's operand stack: a single
// fixed-capacity array holding a movable [bottom, top, limit) window per
// call activation (spec.md §3.4, §4.4).
//
// A call narrows the window to the callee's declared stack budget before
// jumping into it; a return restores the caller's window. The window
// bounds themselves are saved inside a heap.Frame, not inside this
// package, so opstack only ever operates on "the current window".
package opstack

import "github.com/zhongfu/sinter/internal/nanbox"

// Stack is the VM's single operand stack.
type Stack struct {
	values []nanbox.Box

	bottom uint32
	top    uint32
	limit  uint32
}

// New returns a Stack with the given total capacity, with its initial
// window spanning the whole array.
func New(capacity int) *Stack {
	return &Stack{
		values: make([]nanbox.Box, capacity),
		bottom: 0,
		top:    0,
		limit:  uint32(capacity),
	}
}

// Bottom, Top and Limit report the current window bounds.
func (s *Stack) Bottom() uint32 { return s.bottom }
func (s *Stack) Top() uint32    { return s.top }
func (s *Stack) Limit() uint32  { return s.limit }

// Depth returns the number of values currently on the stack within the
// active window.
func (s *Stack) Depth() int { return int(s.top - s.bottom) }

// Push appends a value to the stack. ok is false if doing so would exceed
// the current window's limit, which internal/vm turns into a
// STACK_OVERFLOW fault.
func (s *Stack) Push(v nanbox.Box) bool {
	if s.top >= s.limit {
		return false
	}
	s.values[s.top] = v
	s.top++
	return true
}

// Pop removes and returns the top value. ok is false if the window is
// empty, which internal/vm turns into a ReasonInternalError fault.
func (s *Stack) Pop() (nanbox.Box, bool) {
	if s.top <= s.bottom {
		return 0, false
	}
	s.top--
	v := s.values[s.top]
	s.values[s.top] = 0
	return v, true
}

// Peek returns the value at depth slots below the top without removing
// it; depth 0 is the top of the stack.
func (s *Stack) Peek(depth int) (nanbox.Box, bool) {
	idx := int(s.top) - 1 - depth
	if idx < int(s.bottom) || idx >= int(s.top) {
		return 0, false
	}
	return s.values[idx], true
}

// NewFrame narrows the window to a fresh activation of stackSize slots
// starting right after the current top, returning the new window's
// bounds. ok is false if the stack array doesn't have room, which
// internal/vm turns into a STACK_OVERFLOW fault.
func (s *Stack) NewFrame(stackSize uint32) (bottom, limit uint32, ok bool) {
	newBottom := s.top
	newLimit := newBottom + stackSize
	if newLimit > uint32(len(s.values)) {
		return 0, 0, false
	}
	return newBottom, newLimit, true
}

// EnterFrame installs a new window, as a call does after NewFrame reports
// it fits.
func (s *Stack) EnterFrame(bottom, limit uint32) {
	s.bottom = bottom
	s.top = bottom
	s.limit = limit
}

// RestoreWindow reinstalls a previously saved window, as a return does.
// top is set explicitly rather than to bottom, since the caller's window
// may have had values on it below the callee's activation.
func (s *Stack) RestoreWindow(bottom, limit, top uint32) {
	s.bottom = bottom
	s.limit = limit
	s.top = top
}

// Reset clears every slot and reinstalls the full-capacity window, so a
// Stack can be recycled from a pool between Machine.Run calls instead of
// reallocating its backing array each time.
func (s *Stack) Reset() {
	clear(s.values)
	s.bottom = 0
	s.top = 0
	s.limit = uint32(len(s.values))
}
