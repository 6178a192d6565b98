// Package vm implements the instruction dispatch loop: the component that
// decodes a function's instruction stream and mutates the operand stack,
// the environment chain, and the program counter in response (spec.md
// §4.5, §4.6). It is the only package that interprets bytecode.Opcode
// values; internal/heap and internal/opstack only know about the objects
// and windows that this package arranges into a running program.
package vm

import (
	"math"

	"github.com/zhongfu/sinter/internal/bytecode"
	"github.com/zhongfu/sinter/internal/debug"
	"github.com/zhongfu/sinter/internal/heap"
	"github.com/zhongfu/sinter/internal/nanbox"
)

// Run drives st's dispatch loop to completion: either the program's entry
// function returns (in which case hasResult is true and result is its
// return value), or a fault aborts execution (in which case err is a
// Fault and result/hasResult are zero). Run never leaves a panic to
// propagate past it unless that panic did not originate from this
// package's own raise -- a fault is the only sanctioned form of abnormal
// exit from a running program.
func Run(st *State) (result nanbox.Box, hasResult bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if oe, ok := r.(*heap.OverflowError); ok {
				err = &fault{reason: ReasonInternalError, detail: oe.Error()}
				return
			}
			f, ok := r.(*fault)
			if !ok {
				if debug.Enabled {
					debug.Log(nil, "dispatch", "non-fault panic %v\n%s", r, debug.Stack(3))
				}
				panic(r)
			}
			err = f
		}
	}()

	dispatch(st)

	if st.Stack.Depth() == 1 {
		v, _ := st.Stack.Peek(0)
		return v, true, nil
	}
	return 0, false, nil
}

func dispatch(st *State) {
	for {
		op, ok := st.PC.ReadOpcode()
		if !ok {
			raise(ReasonInvalidProgram, "truncated instruction stream at %#x", st.PC.Pos())
		}
		if !op.Valid() || op.Reserved() {
			raise(ReasonInvalidProgram, "unimplemented opcode %s at %#x", op, st.PC.Pos())
		}

		switch op {
		case bytecode.OpNop:
			// advance only

		case bytecode.OpLdcInt, bytecode.OpLgcInt:
			v, ok := st.PC.ReadInt32()
			mustDecode(ok, st, "int32 immediate")
			push(st, nanbox.WrapInt(int64(v)))

		case bytecode.OpLdcFloat32, bytecode.OpLgcFloat32:
			v, ok := st.PC.ReadFloat32()
			mustDecode(ok, st, "float32 immediate")
			push(st, nanbox.FloatBox(v))

		case bytecode.OpLdcFloat64, bytecode.OpLgcFloat64:
			v, ok := st.PC.ReadFloat64()
			mustDecode(ok, st, "float64 immediate")
			push(st, nanbox.FloatBox(float32(v)))

		case bytecode.OpLdcBoolFalse, bytecode.OpLgcBoolFalse:
			push(st, nanbox.BoolBox(false))

		case bytecode.OpLdcBoolTrue, bytecode.OpLgcBoolTrue:
			push(st, nanbox.BoolBox(true))

		case bytecode.OpLgcUndefined:
			push(st, nanbox.UndefinedBox())

		case bytecode.OpLgcNull:
			push(st, nanbox.NullBox())

		case bytecode.OpPopGeneral, bytecode.OpPopBool, bytecode.OpPopFloat:
			v := pop(st)
			st.Arena.ReleaseBox(v)

		case bytecode.OpAddGeneral, bytecode.OpAddFloat:
			v1, v0 := pop(st), pop(st)
			push(st, arithWrap(st, v0, v1,
				func(a, b int64) int64 { return a + b },
				func(a, b float32) float32 { return a + b }))
			st.Arena.ReleaseBox(v0)
			st.Arena.ReleaseBox(v1)

		case bytecode.OpSubGeneral, bytecode.OpSubFloat:
			v1, v0 := pop(st), pop(st)
			push(st, arithWrap(st, v0, v1,
				func(a, b int64) int64 { return a - b },
				func(a, b float32) float32 { return a - b }))
			st.Arena.ReleaseBox(v0)
			st.Arena.ReleaseBox(v1)

		case bytecode.OpMulGeneral, bytecode.OpMulFloat:
			v1, v0 := pop(st), pop(st)
			push(st, arithWrap(st, v0, v1,
				func(a, b int64) int64 { return a * b },
				func(a, b float32) float32 { return a * b }))
			st.Arena.ReleaseBox(v0)
			st.Arena.ReleaseBox(v1)

		case bytecode.OpDivGeneral, bytecode.OpDivFloat:
			v1, v0 := pop(st), pop(st)
			requireNumeric(st, v0, v1)
			push(st, nanbox.FloatBox(v0.Float()/v1.Float()))
			st.Arena.ReleaseBox(v0)
			st.Arena.ReleaseBox(v1)

		case bytecode.OpModGeneral, bytecode.OpModFloat:
			v1, v0 := pop(st), pop(st)
			requireNumeric(st, v0, v1)
			push(st, nanbox.FloatBox(float32Mod(v0.Float(), v1.Float())))
			st.Arena.ReleaseBox(v0)
			st.Arena.ReleaseBox(v1)

		case bytecode.OpNotGeneral, bytecode.OpNotBool:
			v := pop(st)
			if !v.IsBool() {
				raise(ReasonType, "not: operand is %s, not boolean", v.Kind())
			}
			push(st, nanbox.BoolBox(!v.Bool()))

		case bytecode.OpLessThan, bytecode.OpLessThanFloat:
			compare(st, func(a, b int64) bool { return a < b }, func(a, b float32) bool { return a < b })
		case bytecode.OpGreaterThan, bytecode.OpGreaterThanFloat:
			compare(st, func(a, b int64) bool { return a > b }, func(a, b float32) bool { return a > b })
		case bytecode.OpLessEqual, bytecode.OpLessEqualFloat:
			compare(st, func(a, b int64) bool { return a <= b }, func(a, b float32) bool { return a <= b })
		case bytecode.OpGreaterEqual, bytecode.OpGreaterEqualFloat:
			compare(st, func(a, b int64) bool { return a >= b }, func(a, b float32) bool { return a >= b })

		case bytecode.OpEqualGeneral, bytecode.OpEqualFloat, bytecode.OpEqualBool:
			v0, v1 := pop(st), pop(st)
			push(st, nanbox.BoolBox(equal(v0, v1)))
			st.Arena.ReleaseBox(v0)
			st.Arena.ReleaseBox(v1)

		case bytecode.OpNewClosure:
			addr, ok := st.PC.ReadAddress()
			mustDecode(ok, st, "closure address")
			fn, ok := st.Arena.NewFunction(addr, st.Env)
			if !ok {
				raise(ReasonOutOfMemory, "no room for a closure object")
			}
			st.Arena.Retain(fn)
			push(st, nanbox.PointerBox(fn))

		case bytecode.OpLoadLocalGeneral, bytecode.OpLoadLocalFloat, bytecode.OpLoadLocalBool:
			idx, ok := st.PC.ReadIndex()
			mustDecode(ok, st, "local index")
			v := envGet(st, st.Env, int(idx))
			st.Arena.RetainBox(v)
			push(st, v)

		case bytecode.OpStoreLocalGeneral, bytecode.OpStoreLocalBool, bytecode.OpStoreLocalFloat:
			idx, ok := st.PC.ReadIndex()
			mustDecode(ok, st, "local index")
			v := pop(st)
			envPut(st, st.Env, int(idx), v)

		case bytecode.OpLoadParentGeneral, bytecode.OpLoadParentFloat, bytecode.OpLoadParentBool:
			depth, idx, ok := st.PC.ReadDepthIndex()
			mustDecode(ok, st, "parent depth/index")
			env, ok := st.Arena.EnvAncestor(st.Env, int(depth))
			if !ok {
				raise(ReasonInvalidLoad, "parent chain shorter than depth %d", depth)
			}
			v := envGet(st, env, int(idx))
			st.Arena.RetainBox(v)
			push(st, v)

		case bytecode.OpStoreParentGeneral, bytecode.OpStoreParentFloat, bytecode.OpStoreParentBool:
			depth, idx, ok := st.PC.ReadDepthIndex()
			mustDecode(ok, st, "parent depth/index")
			env, ok := st.Arena.EnvAncestor(st.Env, int(depth))
			if !ok {
				raise(ReasonInvalidLoad, "parent chain shorter than depth %d", depth)
			}
			v := pop(st)
			envPut(st, env, int(idx), v)

		case bytecode.OpBranchTrue, bytecode.OpBranchFalse:
			offset, ok := st.PC.ReadAddress()
			mustDecode(ok, st, "branch offset")
			after := st.PC.Pos()
			v := pop(st)
			if !v.IsBool() {
				raise(ReasonType, "branch: condition is %s, not boolean", v.Kind())
			}
			if v.Bool() == (op == bytecode.OpBranchTrue) {
				st.PC.Seek(after + offset)
			}

		case bytecode.OpBranch:
			offset, ok := st.PC.ReadAddress()
			mustDecode(ok, st, "branch offset")
			st.PC.Seek(st.PC.Pos() + offset)

		case bytecode.OpJump:
			addr, ok := st.PC.ReadAddress()
			mustDecode(ok, st, "jump address")
			st.PC.Seek(addr)

		case bytecode.OpCall, bytecode.OpCallTail:
			doCall(st, op == bytecode.OpCallTail)

		case bytecode.OpReturnGeneral, bytecode.OpReturnFloat, bytecode.OpReturnBool:
			v := pop(st)
			if doReturn(st, v) {
				return
			}

		case bytecode.OpReturnUndefined:
			if doReturn(st, nanbox.UndefinedBox()) {
				return
			}

		case bytecode.OpReturnNull:
			if doReturn(st, nanbox.NullBox()) {
				return
			}

		case bytecode.OpNewEnv:
			idx, ok := st.PC.ReadIndex()
			mustDecode(ok, st, "newenv slot count")
			env, ok := st.Arena.NewEnv(st.Env, int(idx))
			if !ok {
				raise(ReasonOutOfMemory, "no room for a new environment")
			}
			st.Arena.Retain(env)
			st.Env = env

		case bytecode.OpPopEnv:
			old := st.Env
			st.Env = st.Arena.EnvParent(old)
			st.Arena.Release(old, st.Arena.Destroy)

		default:
			raise(ReasonInternalError, "opcode %s decoded but has no handler", op)
		}
	}
}

func push(st *State, v nanbox.Box) {
	if !st.Stack.Push(v) {
		st.Arena.ReleaseBox(v)
		raise(ReasonStackOverflow, "operand stack exhausted")
	}
}

func pop(st *State) nanbox.Box {
	v, ok := st.Stack.Pop()
	if !ok {
		raise(ReasonInternalError, "operand stack underflow")
	}
	return v
}

func mustDecode(ok bool, st *State, what string) {
	if !ok {
		raise(ReasonInvalidProgram, "truncated %s at %#x", what, st.PC.Pos())
	}
}

func requireNumeric(st *State, v0, v1 nanbox.Box) {
	if !v0.IsNumeric() || !v1.IsNumeric() {
		raise(ReasonType, "arithmetic on %s and %s", v0.Kind(), v1.Kind())
	}
}

// arithWrap implements the add/sub/mul family: integer arithmetic when
// both operands are integers (widened to float only if the result falls
// outside the 21-bit integer range), float arithmetic otherwise. Box's own
// Float accessor already widens an integer operand, so there is no need
// to enumerate all four int/float combinations by hand the way vm.c does.
func arithWrap(st *State, v0, v1 nanbox.Box, iop func(a, b int64) int64, fop func(a, b float32) float32) nanbox.Box {
	requireNumeric(st, v0, v1)
	if v0.IsInt() && v1.IsInt() {
		return nanbox.WrapInt(iop(int64(v0.Int()), int64(v1.Int())))
	}
	return nanbox.FloatBox(fop(v0.Float(), v1.Float()))
}

func compare(st *State, iop func(a, b int64) bool, fop func(a, b float32) bool) {
	v1, v0 := pop(st), pop(st)
	requireNumeric(st, v0, v1)
	var r bool
	if v0.IsInt() && v1.IsInt() {
		r = iop(int64(v0.Int()), int64(v1.Int()))
	} else {
		r = fop(v0.Float(), v1.Float())
	}
	push(st, nanbox.BoolBox(r))
	st.Arena.ReleaseBox(v0)
	st.Arena.ReleaseBox(v1)
}

// equal implements spec.md §4.5's equality rule: bitwise identity (except
// for the canonical NaN pattern, which must compare unequal to itself),
// then numeric widening, then pointer identity; values of unrelated kinds
// are always unequal. This core carries no string kind, so the "compare
// strings by content" extension point in the original never applies here.
func equal(v0, v1 nanbox.Box) bool {
	if nanbox.Identical(v0, v1) && !nanbox.IsCanonicalNaN(v0) {
		return true
	}
	if v0.IsNumeric() && v1.IsNumeric() {
		if v0.IsInt() && v1.IsInt() {
			return v0.Int() == v1.Int()
		}
		return v0.Float() == v1.Float()
	}
	if v0.IsPointer() && v1.IsPointer() {
		return v0.Pointer() == v1.Pointer()
	}
	return false
}

func float32Mod(a, b float32) float32 {
	// fmodf's float32 remainder is matched by widening through float64.
	return float32(math.Mod(float64(a), float64(b)))
}

func envGet(st *State, env uint32, index int) nanbox.Box {
	v, ok := st.Arena.EnvGet(env, index)
	if !ok {
		if st.SafetyChecks {
			raise(ReasonInvalidLoad, "local index %d out of range", index)
		}
		raise(ReasonInternalError, "local index %d out of range", index)
	}
	return v
}

func envPut(st *State, env uint32, index int, v nanbox.Box) {
	if !st.Arena.EnvPut(env, index, v, st.Arena.Destroy) {
		st.Arena.ReleaseBox(v)
		if st.SafetyChecks {
			raise(ReasonInvalidLoad, "local index %d out of range", index)
		}
		raise(ReasonInternalError, "local index %d out of range", index)
	}
}

// doCall implements spec.md §4.5's call algorithm, used for both call and
// call_t. For a tail call, the caller's own frame is destroyed (its
// operand window released and its saved PC/env restored) before the
// callee's frame is allocated, so a chain of tail calls never grows the
// frame stack.
//
// vm.c's op_call_t does not itself release sistate.env before overwriting
// it with the grandparent's saved env; read literally that would leak one
// environment reference per tail call, which contradicts spec.md §4.2's
// "sum of retains minus releases is zero" invariant and the symmetric
// handling in ret_*, which explicitly releases the current env first. This
// implementation releases it, matching ret_*.
func doCall(st *State, tail bool) {
	arity, ok := st.PC.ReadArity()
	mustDecode(ok, st, "call arity")

	fnBox, ok := st.Stack.Peek(int(arity))
	if !ok || !fnBox.IsPointer() || st.Arena.Kind(fnBox.Pointer()) != heap.KindFunction {
		raise(ReasonType, "call target is not a function")
	}
	fn := fnBox.Pointer()

	code := st.Arena.FunctionCode(fn)
	capturedEnv := st.Arena.FunctionEnv(fn)
	header := bytecode.DecodeFunctionHeader(st.Code, code)

	newEnv, ok := st.Arena.NewEnv(capturedEnv, int(header.EnvSize))
	if !ok {
		raise(ReasonOutOfMemory, "no room for a call environment")
	}
	st.Arena.Retain(newEnv)

	bind := int(arity)
	if int(header.NumArgs) < bind {
		bind = int(header.NumArgs)
	}
	// Discard arguments beyond what the callee declared, popped from the
	// top (the most recently pushed, i.e. rightmost argument) down.
	for i := int(arity); i > bind; i-- {
		st.Arena.ReleaseBox(pop(st))
	}
	// Bind the remaining bind arguments left-to-right into slots
	// 0..bind-1: the next pop is the last bound argument (slot bind-1),
	// descending to the first (slot 0).
	for i := bind - 1; i >= 0; i-- {
		v := pop(st)
		if !st.Arena.EnvPut(newEnv, i, v, st.Arena.Destroy) {
			raise(ReasonInternalError, "callee environment too small for its own declared arity")
		}
	}

	// Pop the function itself; its reference drops and it may be freed
	// here, but the environment it captured stays live through newEnv's
	// parent link (spec.md §4.5 step 4).
	st.Arena.ReleaseBox(pop(st))

	if tail {
		st.Arena.Release(st.Env, st.Arena.Destroy)
		returnAddress, savedEnv := st.popFrame()
		st.PC.Seek(returnAddress)
		st.Env = savedEnv
	} else {
		// The callee frame's saved PC is the address right after this call
		// instruction, where execution resumes once the callee returns.
	}

	bottom, limit, ok := st.Stack.NewFrame(uint32(header.StackSize))
	if !ok {
		raise(ReasonStackOverflow, "no room for callee's stack frame")
	}

	frame, ok := st.Arena.NewFrame(st.PC.Pos(), st.Stack.Bottom(), st.Stack.Limit(), st.Stack.Top(), st.Env)
	if !ok {
		raise(ReasonOutOfMemory, "no room for a call frame")
	}
	st.Arena.Retain(frame)
	st.pushFrame(frame)

	st.Stack.EnterFrame(bottom, limit)
	st.Env = newEnv
	st.PC.Seek(bytecode.CodeOffset(code))
}

// doReturn implements the ret_* family: v is the return value already
// popped (or synthesized) by the caller in dispatch. It reports whether
// the program has finished (the frame it just destroyed was the root
// frame).
func doReturn(st *State, v nanbox.Box) bool {
	st.Arena.Release(st.Env, st.Arena.Destroy)
	returnAddress, savedEnv := st.popFrame()
	st.Env = savedEnv
	push(st, v)
	if returnAddress == heap.Nil {
		return true
	}
	st.PC.Seek(returnAddress)
	return false
}
