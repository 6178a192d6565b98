package sinter

import (
	"fmt"

	"github.com/zhongfu/sinter/internal/nanbox"
)

// ResultKind classifies a Result's value. It mirrors internal/nanbox.Kind,
// minus KindPointer and KindEmpty: a program that returns a closure or the
// uninitialized sentinel gets a ResultUndefined result (see resultFromBox),
// so a raw heap offset never reaches the caller.
type ResultKind uint8

const (
	// ResultNone means the run ended without exactly one value in the
	// stack's reserved return slot. The dispatcher only finishes normally
	// through a ret_* from the root frame, which always places one value
	// there, so a completed Run does not produce ResultNone in practice.
	ResultNone ResultKind = iota
	ResultInt
	ResultFloat
	ResultBool
	ResultNull
	ResultUndefined
)

func (k ResultKind) String() string {
	switch k {
	case ResultNone:
		return "none"
	case ResultInt:
		return "int"
	case ResultFloat:
		return "float"
	case ResultBool:
		return "bool"
	case ResultNull:
		return "null"
	case ResultUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Result is the externally visible outcome of a completed Run call.
type Result struct {
	Kind  ResultKind
	int   int32
	float float32
	bool  bool
}

// Int returns the result's integer value. It panics if Kind != ResultInt.
func (r Result) Int() int32 {
	if r.Kind != ResultInt {
		panic(fmt.Sprintf("sinter: Int called on a %s result", r.Kind))
	}
	return r.int
}

// Float returns the result's float value. It panics if Kind != ResultFloat.
func (r Result) Float() float32 {
	if r.Kind != ResultFloat {
		panic(fmt.Sprintf("sinter: Float called on a %s result", r.Kind))
	}
	return r.float
}

// Bool returns the result's boolean value. It panics if Kind != ResultBool.
func (r Result) Bool() bool {
	if r.Kind != ResultBool {
		panic(fmt.Sprintf("sinter: Bool called on a %s result", r.Kind))
	}
	return r.bool
}

func (r Result) String() string {
	switch r.Kind {
	case ResultInt:
		return fmt.Sprintf("%d", r.int)
	case ResultFloat:
		return fmt.Sprintf("%g", r.float)
	case ResultBool:
		return fmt.Sprintf("%t", r.bool)
	case ResultNull:
		return "null"
	case ResultUndefined:
		return "undefined"
	default:
		return "none"
	}
}

// resultFromBox translates a raw operand-stack value into an externally
// visible Result. It is the Go port's set_result: the boundary where a
// pointer-free NaN-boxed value is unwrapped into ordinary Go types. A
// pointer-kind box should never reach this boundary in a well-formed
// program that only returns scalars, but if one does (a program returning
// a bare closure, which this core neither forbids nor gives any other
// meaning to) it is reported as ResultUndefined rather than leaking an
// arena offset to the caller.
func resultFromBox(b nanbox.Box) Result {
	switch b.Kind() {
	case nanbox.KindInt:
		return Result{Kind: ResultInt, int: b.Int()}
	case nanbox.KindFloat:
		return Result{Kind: ResultFloat, float: b.Float()}
	case nanbox.KindBool:
		return Result{Kind: ResultBool, bool: b.Bool()}
	case nanbox.KindNull:
		return Result{Kind: ResultNull}
	default:
		return Result{Kind: ResultUndefined}
	}
}
