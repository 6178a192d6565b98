package sinter

import (
	"fmt"

	"github.com/zhongfu/sinter/internal/bytecode"
	"github.com/zhongfu/sinter/internal/heap"
	"github.com/zhongfu/sinter/internal/opstack"
	"github.com/zhongfu/sinter/internal/sync2"
	"github.com/zhongfu/sinter/internal/vm"
)

// scratch bundles one Run call's arena and operand stack so a Machine can
// recycle both from a pool instead of reallocating them on every call.
type scratch struct {
	arena *heap.Arena
	stack *opstack.Stack
}

// Machine runs bytecode images under one fixed resource configuration. A
// Machine is safe for concurrent use: spec.md §5 forbids sharing an arena
// or operand stack between concurrent runs, not sharing the Machine that
// configures them, so each Run call draws its own scratch pair from an
// internal pool.
type Machine struct {
	opts options
	pool sync2.Pool[scratch]
}

// New returns a Machine configured by opts, or with spec.md's reference
// defaults (a 64KiB heap, 1024 operand-stack entries, safety checks
// enabled) for anything opts doesn't override.
func New(opts ...Option) *Machine {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	m := &Machine{opts: o}
	m.pool.New = func() *scratch {
		return &scratch{
			arena: heap.NewArena(m.opts.heapSize),
			// +1 reserves the slot the entry function's return value is
			// pushed into once its own window unwinds (spec.md §4.7).
			stack: opstack.New(m.opts.stackSize + 1),
		}
	}
	m.pool.Reset = func(s *scratch) {
		s.arena.Reset()
		s.stack.Reset()
	}
	return m
}

// Run validates image's header, builds a fresh root environment and call
// frame for its entry function, and drives the instruction dispatcher
// until the entry function returns or a Fault aborts it.
func (m *Machine) Run(image []byte) (Result, error) {
	if len(image) < bytecode.HeaderSize {
		return Result{}, &invalidImageError{ReasonInvalidProgram, "image shorter than the header"}
	}
	header := bytecode.DecodeHeader(image)
	if header.Magic != bytecode.Magic {
		return Result{}, &invalidImageError{ReasonInvalidProgram, fmt.Sprintf("bad magic %#08x", header.Magic)}
	}
	if uint32(len(image)) < bytecode.CodeOffset(header.EntryOffset) {
		return Result{}, &invalidImageError{ReasonInvalidProgram, "entry function header out of range"}
	}
	entry := bytecode.DecodeFunctionHeader(image, header.EntryOffset)

	s, drop := m.pool.Get()
	defer drop()

	// The reserved top-of-stack slot is marked "in use" before the entry
	// function's own window is carved out after it, so that window starts
	// one slot higher than the array's true bottom; nothing is ever
	// pushed into this reservation directly; it exists only so the
	// eventual top-level return has somewhere to land (spec.md §4.7).
	s.stack.RestoreWindow(0, 1, 1)

	rootEnv, ok := s.arena.NewEnv(heap.Nil, int(entry.EnvSize))
	if !ok {
		return Result{}, &invalidImageError{ReasonOutOfMemory, "heap too small for the entry function's environment"}
	}
	s.arena.Retain(rootEnv)

	bottom, limit, ok := s.stack.NewFrame(uint32(entry.StackSize))
	if !ok {
		return Result{}, &invalidImageError{ReasonStackOverflow, "stack too small for the entry function's activation"}
	}
	// The root frame's saved window is (0, 1, 0): on final return,
	// RestoreWindow(0, 1, 0) leaves top one below limit, so the Push of
	// the returned value lands exactly in the reserved slot.
	rootFrame, ok := s.arena.NewFrame(heap.Nil, 0, 1, 0, heap.Nil)
	if !ok {
		s.arena.Release(rootEnv, s.arena.Destroy)
		return Result{}, &invalidImageError{ReasonOutOfMemory, "heap too small for the root call frame"}
	}
	s.arena.Retain(rootFrame)
	s.stack.EnterFrame(bottom, limit)

	st := &vm.State{
		Arena:        s.arena,
		Stack:        s.stack,
		Code:         image,
		PC:           bytecode.NewCursor(image, bytecode.CodeOffset(header.EntryOffset)),
		Env:          rootEnv,
		Frames:       []uint32{rootFrame},
		SafetyChecks: m.opts.safetyChecks,
	}

	box, hasResult, err := vm.Run(st)
	if err != nil {
		return Result{}, err
	}
	if !hasResult {
		return Result{Kind: ResultNone}, nil
	}
	return resultFromBox(box), nil
}

// invalidImageError is returned by Run when image cannot be started before
// the dispatcher ever runs: a malformed header (ReasonInvalidProgram), or
// an entry activation that the configured heap or stack cannot hold. It
// satisfies Fault, so errors.As recovers its Reason the same way as for a
// fault raised mid-execution.
type invalidImageError struct {
	reason Reason
	detail string
}

func (e *invalidImageError) Error() string { return "sinter: invalid image: " + e.detail }

func (e *invalidImageError) Reason() Reason { return e.reason }
