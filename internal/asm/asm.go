// Package asm is a tiny in-process bytecode assembler used only by this
// module's own tests: it builds a program image byte-for-byte in the
// format internal/bytecode decodes, without requiring a real compiler
// front end or an on-disk fixture for every test case.
package asm

import (
	"encoding/binary"
	"math"

	"github.com/zhongfu/sinter/internal/bytecode"
)

// fixup records a 4-byte address operand that must be patched once its
// target's final position in the built image is known: a branch/jump
// target within the same function, or another function's header offset
// for new_c.
type fixup struct {
	pos    int
	target *Func  // set for a new_c operand (always absolute)
	label  *label // set for a branch/jump operand

	// relative is true for br/br_t/br_f, whose operand internal/vm's
	// dispatch loop adds to the cursor position just after the operand
	// (spec.md §4.5's relative branch encoding), and false for jmp, whose
	// operand dispatch seeks to directly as an absolute code address.
	relative bool
}

// label marks a position within a Func's own instruction stream, resolved
// once every instruction before it has been emitted.
type label struct {
	pos int
	set bool
}

// Func is one function record under construction: its declared arity,
// environment size, operand-stack budget, and instruction bytes.
type Func struct {
	NumArgs   uint16
	EnvSize   uint16
	StackSize uint16

	code   []byte
	fixups []fixup

	// headerOffset is filled in by Program.Build once every function's
	// position in the final image is known.
	headerOffset uint32
}

// NewFunc starts a function record with the given signature.
func NewFunc(numArgs, envSize, stackSize uint16) *Func {
	return &Func{NumArgs: numArgs, EnvSize: envSize, StackSize: stackSize}
}

func (f *Func) op(op bytecode.Opcode) *Func {
	f.code = append(f.code, byte(op))
	return f
}

func (f *Func) u16(v uint16) *Func {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	f.code = append(f.code, b[:]...)
	return f
}

func (f *Func) u32(v uint32) *Func {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	f.code = append(f.code, b[:]...)
	return f
}

// Label creates a branch target that a later Bind call fixes to the
// instruction about to be emitted.
func (f *Func) Label() *label { return &label{} }

// Bind fixes l to the current end of the instruction stream.
func (f *Func) Bind(l *label) *Func {
	l.pos = len(f.code)
	l.set = true
	return f
}

// Nop emits a nop.
func (f *Func) Nop() *Func { return f.op(bytecode.OpNop) }

// PushInt emits ldc_i with the given immediate.
func (f *Func) PushInt(v int32) *Func { return f.op(bytecode.OpLdcInt).u32(uint32(v)) }

// PushFloat32 emits ldc_f32 with the given immediate.
func (f *Func) PushFloat32(v float32) *Func {
	return f.op(bytecode.OpLdcFloat32).u32(math.Float32bits(v))
}

// PushBool emits ldc_b_0/ldc_b_1.
func (f *Func) PushBool(v bool) *Func {
	if v {
		return f.op(bytecode.OpLdcBoolTrue)
	}
	return f.op(bytecode.OpLdcBoolFalse)
}

// PushUndefined emits lgc_u.
func (f *Func) PushUndefined() *Func { return f.op(bytecode.OpLgcUndefined) }

// PushNull emits lgc_n.
func (f *Func) PushNull() *Func { return f.op(bytecode.OpLgcNull) }

// Pop emits pop_g.
func (f *Func) Pop() *Func { return f.op(bytecode.OpPopGeneral) }

// Add, Sub, Mul, Div, Mod, Not emit the general-kind arithmetic opcodes.
func (f *Func) Add() *Func { return f.op(bytecode.OpAddGeneral) }
func (f *Func) Sub() *Func { return f.op(bytecode.OpSubGeneral) }
func (f *Func) Mul() *Func { return f.op(bytecode.OpMulGeneral) }
func (f *Func) Div() *Func { return f.op(bytecode.OpDivGeneral) }
func (f *Func) Mod() *Func { return f.op(bytecode.OpModGeneral) }
func (f *Func) Not() *Func { return f.op(bytecode.OpNotGeneral) }

// Lt, Gt, Le, Ge, Eq emit the general-kind comparison/equality opcodes.
func (f *Func) Lt() *Func { return f.op(bytecode.OpLessThan) }
func (f *Func) Gt() *Func { return f.op(bytecode.OpGreaterThan) }
func (f *Func) Le() *Func { return f.op(bytecode.OpLessEqual) }
func (f *Func) Ge() *Func { return f.op(bytecode.OpGreaterEqual) }
func (f *Func) Eq() *Func { return f.op(bytecode.OpEqualGeneral) }

// NewClosure emits new_c targeting the function registered at target
// within the enclosing Program that eventually builds f.
func (f *Func) NewClosure(target *Func) *Func {
	f.op(bytecode.OpNewClosure)
	f.code = append(f.code, 0, 0, 0, 0)
	f.fixups = append(f.fixups, fixup{pos: len(f.code) - 4, target: target})
	return f
}

// LoadLocal/StoreLocal emit ldl_g/stl_g for the given slot index.
func (f *Func) LoadLocal(index uint16) *Func  { return f.op(bytecode.OpLoadLocalGeneral).u16(index) }
func (f *Func) StoreLocal(index uint16) *Func { return f.op(bytecode.OpStoreLocalGeneral).u16(index) }

// LoadParent/StoreParent emit ldp_g/stp_g for the given (depth, index).
func (f *Func) LoadParent(depth, index uint16) *Func {
	return f.op(bytecode.OpLoadParentGeneral).u16(depth).u16(index)
}
func (f *Func) StoreParent(depth, index uint16) *Func {
	return f.op(bytecode.OpStoreParentGeneral).u16(depth).u16(index)
}

// BranchTrue/BranchFalse/Branch emit br_t/br_f/br to l, encoded as an
// offset relative to the instruction following the operand. Jump emits
// jmp to l, encoded as an absolute code address. l must eventually be
// Bind'ed within the same Func.
func (f *Func) BranchTrue(l *label) *Func  { return f.branch(bytecode.OpBranchTrue, l, true) }
func (f *Func) BranchFalse(l *label) *Func { return f.branch(bytecode.OpBranchFalse, l, true) }
func (f *Func) Branch(l *label) *Func      { return f.branch(bytecode.OpBranch, l, true) }
func (f *Func) Jump(l *label) *Func        { return f.branch(bytecode.OpJump, l, false) }

func (f *Func) branch(op bytecode.Opcode, l *label, relative bool) *Func {
	f.op(op)
	f.code = append(f.code, 0, 0, 0, 0)
	f.fixups = append(f.fixups, fixup{pos: len(f.code) - 4, label: l, relative: relative})
	return f
}

// Call/CallTail emit call(n)/call_t(n).
func (f *Func) Call(numArgs uint16) *Func     { return f.op(bytecode.OpCall).u16(numArgs) }
func (f *Func) CallTail(numArgs uint16) *Func { return f.op(bytecode.OpCallTail).u16(numArgs) }

// Return, ReturnUndefined, ReturnNull emit the ret_* family.
func (f *Func) Return() *Func          { return f.op(bytecode.OpReturnGeneral) }
func (f *Func) ReturnUndefined() *Func { return f.op(bytecode.OpReturnUndefined) }
func (f *Func) ReturnNull() *Func      { return f.op(bytecode.OpReturnNull) }

// NewEnv/PopEnv emit newenv(n)/popenv.
func (f *Func) NewEnv(slotCount uint16) *Func { return f.op(bytecode.OpNewEnv).u16(slotCount) }
func (f *Func) PopEnv() *Func                 { return f.op(bytecode.OpPopEnv) }

// Program is an ordered set of functions sharing one bytecode image; its
// first-registered function is the entry point.
type Program struct {
	funcs []*Func
}

// NewProgram starts a program whose first function is the entry point.
func NewProgram(entry *Func, rest ...*Func) *Program {
	return &Program{funcs: append([]*Func{entry}, rest...)}
}

// Build lays out every function's header and code, resolves new_c and
// branch/jump fixups, and returns the finished image in the format
// internal/bytecode.DecodeHeader expects.
func (p *Program) Build() []byte {
	// Pass 1: assign a header offset to every function, leaving room for
	// its FunctionHeader, followed immediately by its code.
	image := make([]byte, bytecode.HeaderSize) // top-level Header, filled in last
	for _, fn := range p.funcs {
		fn.headerOffset = uint32(len(image))
		image = append(image, make([]byte, bytecode.FunctionHeaderSize)...)
		image = append(image, fn.code...)
	}

	// Pass 2: resolve fixups now that every function's headerOffset (and
	// hence its code's absolute base) is known.
	for _, fn := range p.funcs {
		codeBase := bytecode.CodeOffset(fn.headerOffset)
		for _, fx := range fn.fixups {
			var value uint32
			switch {
			case fx.target != nil:
				// new_c: absolute header offset of the target function.
				value = fx.target.headerOffset
			case fx.relative:
				// br/br_t/br_f: offset from the position just after this
				// operand to the label, in the same local coordinates on
				// both sides, so codeBase cancels out.
				value = uint32(int32(fx.label.pos) - int32(fx.pos+4))
			default:
				// jmp: absolute code address of the label.
				value = codeBase + uint32(fx.label.pos)
			}
			binary.LittleEndian.PutUint32(image[int(codeBase)+fx.pos:], value)
		}
	}

	// Pass 3: write each function's header now that codeBase is fixed.
	for _, fn := range p.funcs {
		h := image[fn.headerOffset : fn.headerOffset+bytecode.FunctionHeaderSize]
		binary.LittleEndian.PutUint16(h[0:2], fn.NumArgs)
		binary.LittleEndian.PutUint16(h[2:4], fn.EnvSize)
		binary.LittleEndian.PutUint16(h[4:6], fn.StackSize)
	}

	binary.LittleEndian.PutUint32(image[0:4], bytecode.Magic)
	binary.LittleEndian.PutUint32(image[4:8], p.funcs[0].headerOffset)
	return image
}
