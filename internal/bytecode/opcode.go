package bytecode

// Opcode is a single bytecode instruction's tag byte. The numbering follows
// the families laid out in spec.md §3.5: constant loads, stack
// manipulation, arithmetic, comparisons, equality, object construction,
// environment load/store, control flow, calls, returns, and environment
// push/pop.
//
// A handful of opcodes (lgc_s, new_a, the lda_*/sta_* family, call_p,
// call_t_p, call_v and call_t_v) are reserved for string, array,
// addressable-slot and varargs support that spec.md's Non-goals explicitly
// exclude from this core; they decode fine but internal/vm's dispatch loop
// faults with ReasonInvalidProgram if it ever reaches one, exactly as an
// unimplemented instruction would.
type Opcode byte

const (
	OpNop Opcode = iota

	// Constant loads. The "ldc_*" forms push a constant; the "lgc_*" forms
	// push it without consuming an operand beyond the immediate already
	// embedded in the instruction (spec.md's naming for "load constant,
	// general" vs a future addressable-slot variant).
	OpLdcInt
	OpLgcInt
	OpLdcFloat32
	OpLgcFloat32
	OpLdcFloat64 // f64 immediate, narrowed to float32 on load
	OpLgcFloat64
	OpLdcBoolFalse
	OpLdcBoolTrue
	OpLgcBoolFalse
	OpLgcBoolTrue
	OpLgcUndefined
	OpLgcNull
	OpLgcString // reserved: string constants are a Non-goal

	// Stack manipulation.
	OpPopGeneral
	OpPopBool
	OpPopFloat

	// Arithmetic. The "_g" suffix operates on whichever numeric kind the
	// operands already have (widening per spec.md's integer-overflow
	// rule); the "_f" forms are dispatched exactly like their "_g"
	// counterparts, so two integer operands still give an integer result.
	OpAddGeneral
	OpAddFloat
	OpSubGeneral
	OpSubFloat
	OpMulGeneral
	OpMulFloat
	OpDivGeneral
	OpDivFloat
	OpModGeneral
	OpModFloat
	OpNotGeneral
	OpNotBool

	// Comparisons, all general (numeric-widening) semantics.
	OpLessThan
	OpGreaterThan
	OpLessEqual
	OpGreaterEqual
	OpLessThanFloat
	OpGreaterThanFloat
	OpLessEqualFloat
	OpGreaterEqualFloat

	// Equality.
	OpEqualGeneral
	OpEqualFloat
	OpEqualBool

	// Object construction.
	OpNewClosure
	OpNewArray // reserved: arrays are a Non-goal

	// Environment load/store by (depth, index). The "_g/_f/_b" suffix
	// mirrors the arithmetic family's general/float/bool split for the
	// value being moved.
	OpLoadLocalGeneral
	OpLoadLocalFloat
	OpLoadLocalBool
	OpStoreLocalGeneral
	OpStoreLocalBool
	OpStoreLocalFloat
	OpLoadParentGeneral
	OpLoadParentFloat
	OpLoadParentBool
	OpStoreParentGeneral
	OpStoreParentFloat
	OpStoreParentBool

	// Addressable-slot load/store: reserved, a Non-goal.
	OpLoadAddrGeneral
	OpLoadAddrFloat
	OpLoadAddrBool
	OpStoreAddrGeneral
	OpStoreAddrFloat
	OpStoreAddrBool

	// Control flow.
	OpBranchTrue
	OpBranchFalse
	OpBranch
	OpJump

	// Calls.
	OpCall
	OpCallTail
	OpCallAddr     // reserved: addressable-slot calls, a Non-goal
	OpCallAddrTail // reserved
	OpCallVar      // reserved: varargs calls, a Non-goal
	OpCallVarTail  // reserved

	// Returns. The "_u"/"_n" forms return the undefined/null literal
	// without consuming a stack value.
	OpReturnGeneral
	OpReturnFloat
	OpReturnBool
	OpReturnUndefined
	OpReturnNull

	// Environment push/pop.
	OpNewEnv
	OpPopEnv

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	OpNop:                "nop",
	OpLdcInt:             "ldc_i",
	OpLgcInt:             "lgc_i",
	OpLdcFloat32:         "ldc_f32",
	OpLgcFloat32:         "lgc_f32",
	OpLdcFloat64:         "ldc_f64",
	OpLgcFloat64:         "lgc_f64",
	OpLdcBoolFalse:       "ldc_b_0",
	OpLdcBoolTrue:        "ldc_b_1",
	OpLgcBoolFalse:       "lgc_b_0",
	OpLgcBoolTrue:        "lgc_b_1",
	OpLgcUndefined:       "lgc_u",
	OpLgcNull:            "lgc_n",
	OpLgcString:          "lgc_s",
	OpPopGeneral:         "pop_g",
	OpPopBool:            "pop_b",
	OpPopFloat:           "pop_f",
	OpAddGeneral:         "add_g",
	OpAddFloat:           "add_f",
	OpSubGeneral:         "sub_g",
	OpSubFloat:           "sub_f",
	OpMulGeneral:         "mul_g",
	OpMulFloat:           "mul_f",
	OpDivGeneral:         "div_g",
	OpDivFloat:           "div_f",
	OpModGeneral:         "mod_g",
	OpModFloat:           "mod_f",
	OpNotGeneral:         "not_g",
	OpNotBool:            "not_b",
	OpLessThan:           "lt_g",
	OpGreaterThan:        "gt_g",
	OpLessEqual:          "le_g",
	OpGreaterEqual:       "ge_g",
	OpLessThanFloat:      "lt_f",
	OpGreaterThanFloat:   "gt_f",
	OpLessEqualFloat:     "le_f",
	OpGreaterEqualFloat:  "ge_f",
	OpEqualGeneral:       "eq_g",
	OpEqualFloat:         "eq_f",
	OpEqualBool:          "eq_b",
	OpNewClosure:         "new_c",
	OpNewArray:           "new_a",
	OpLoadLocalGeneral:   "ldl_g",
	OpLoadLocalFloat:     "ldl_f",
	OpLoadLocalBool:      "ldl_b",
	OpStoreLocalGeneral:  "stl_g",
	OpStoreLocalBool:     "stl_b",
	OpStoreLocalFloat:    "stl_f",
	OpLoadParentGeneral:  "ldp_g",
	OpLoadParentFloat:    "ldp_f",
	OpLoadParentBool:     "ldp_b",
	OpStoreParentGeneral: "stp_g",
	OpStoreParentFloat:   "stp_f",
	OpStoreParentBool:    "stp_b",
	OpLoadAddrGeneral:    "lda_g",
	OpLoadAddrFloat:      "lda_f",
	OpLoadAddrBool:       "lda_b",
	OpStoreAddrGeneral:   "sta_g",
	OpStoreAddrFloat:     "sta_f",
	OpStoreAddrBool:      "sta_b",
	OpBranchTrue:         "br_t",
	OpBranchFalse:        "br_f",
	OpBranch:             "br",
	OpJump:               "jmp",
	OpCall:               "call",
	OpCallTail:           "call_t",
	OpCallAddr:           "call_p",
	OpCallAddrTail:       "call_t_p",
	OpCallVar:            "call_v",
	OpCallVarTail:        "call_t_v",
	OpReturnGeneral:      "ret_g",
	OpReturnFloat:        "ret_f",
	OpReturnBool:         "ret_b",
	OpReturnUndefined:    "ret_u",
	OpReturnNull:         "ret_n",
	OpNewEnv:             "newenv",
	OpPopEnv:             "popenv",
}

// String returns the mnemonic for op, or "invalid" if op is not a
// recognized opcode.
func (op Opcode) String() string {
	if int(op) >= len(opcodeNames) {
		return "invalid"
	}
	name := opcodeNames[op]
	if name == "" {
		return "invalid"
	}
	return name
}

// Valid reports whether op is a recognized opcode byte at all (regardless
// of whether Dispatch actually implements it).
func (op Opcode) Valid() bool {
	return int(op) < int(opcodeCount) && opcodeNames[op] != ""
}

// Reserved reports whether op decodes but names a family spec.md's
// Non-goals exclude from this core (addressable slots, arrays, varargs,
// string constants). internal/vm faults with ReasonInvalidProgram on these,
// the same as it would for a byte that isn't a recognized opcode at all.
func (op Opcode) Reserved() bool {
	switch op {
	case OpLgcString, OpNewArray,
		OpLoadAddrGeneral, OpLoadAddrFloat, OpLoadAddrBool,
		OpStoreAddrGeneral, OpStoreAddrFloat, OpStoreAddrBool,
		OpCallAddr, OpCallAddrTail, OpCallVar, OpCallVarTail:
		return true
	default:
		return false
	}
}
