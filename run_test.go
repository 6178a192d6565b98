package sinter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhongfu/sinter"
	"github.com/zhongfu/sinter/internal/asm"
	"github.com/zhongfu/sinter/internal/nanbox"
)

func TestIntegerArithmetic(t *testing.T) {
	entry := asm.NewFunc(0, 0, 4)
	entry.PushInt(2).PushInt(3).Add().Return()

	m := sinter.New()
	result, err := m.Run(asm.NewProgram(entry).Build())
	require.NoError(t, err)
	require.Equal(t, sinter.ResultInt, result.Kind)
	require.Equal(t, int32(5), result.Int())
}

func TestIntegerOverflowWidensToFloat(t *testing.T) {
	entry := asm.NewFunc(0, 0, 4)
	entry.PushInt(nanbox.IntMax).PushInt(1).Add().Return()

	m := sinter.New()
	result, err := m.Run(asm.NewProgram(entry).Build())
	require.NoError(t, err)
	require.Equal(t, sinter.ResultFloat, result.Kind)
	require.Equal(t, float32(nanbox.IntMax)+1, result.Float())
}

func TestTypeMismatchFaults(t *testing.T) {
	entry := asm.NewFunc(0, 0, 4)
	entry.PushInt(1).PushBool(true).Add().Return()

	m := sinter.New()
	_, err := m.Run(asm.NewProgram(entry).Build())
	require.Error(t, err)

	var f sinter.Fault
	require.True(t, errors.As(err, &f))
	require.Equal(t, sinter.ReasonType, f.Reason())
}

func TestClosureCapturesEnclosingEnvironment(t *testing.T) {
	adder := asm.NewFunc(1, 1, 4)
	adder.LoadLocal(0).LoadParent(1, 0).Add().Return()

	entry := asm.NewFunc(0, 1, 4)
	entry.PushInt(10).StoreLocal(0).
		NewClosure(adder).
		PushInt(5).
		Call(1).
		Return()

	m := sinter.New()
	result, err := m.Run(asm.NewProgram(entry, adder).Build())
	require.NoError(t, err)
	require.Equal(t, sinter.ResultInt, result.Kind)
	require.Equal(t, int32(15), result.Int())
}

func TestLexicalShadowingViaNestedEnvironment(t *testing.T) {
	entry := asm.NewFunc(0, 1, 8)
	entry.PushInt(1).StoreLocal(0).
		NewEnv(1).
		PushInt(2).StoreLocal(0).
		LoadLocal(0). // inner x == 2
		PopEnv().
		LoadLocal(0). // outer x == 1
		Add().
		Return()

	m := sinter.New()
	result, err := m.Run(asm.NewProgram(entry).Build())
	require.NoError(t, err)
	require.Equal(t, sinter.ResultInt, result.Kind)
	require.Equal(t, int32(3), result.Int())
}

// TestTailCallDoesNotGrowFrames drives a tail-recursive countdown far
// deeper than the default 64KiB heap could hold as nested non-tail
// activations (each one keeps an environment and a frame object alive in
// the arena), demonstrating spec.md §4.5's O(1)-frames guarantee for
// call_t: the recursion runs to completion.
func TestTailCallDoesNotGrowFrames(t *testing.T) {
	countdown := asm.NewFunc(1, 1, 4)
	countdown.LoadLocal(0).PushInt(0).Eq()
	done := countdown.Label()
	countdown.BranchFalse(done)
	countdown.LoadLocal(0).Return()
	countdown.Bind(done)
	countdown.LoadParent(1, 0).LoadLocal(0).PushInt(1).Sub().CallTail(1)

	entry := asm.NewFunc(0, 1, 8)
	entry.NewClosure(countdown).StoreLocal(0).
		LoadLocal(0).
		PushInt(100000).
		Call(1).
		Return()

	m := sinter.New(sinter.WithStackSize(16))
	result, err := m.Run(asm.NewProgram(entry, countdown).Build())
	require.NoError(t, err)
	require.Equal(t, sinter.ResultInt, result.Kind)
	require.Equal(t, int32(0), result.Int())
}

func TestStackOverflowFaultsOnDeepNonTailRecursion(t *testing.T) {
	recurse := asm.NewFunc(1, 1, 4)
	recurse.LoadLocal(0).PushInt(0).Eq()
	done := recurse.Label()
	recurse.BranchFalse(done)
	recurse.LoadLocal(0).Return()
	recurse.Bind(done)
	// n stays on the caller's window across the call, so every nested
	// activation's window starts one slot higher than its caller's.
	recurse.LoadLocal(0).LoadParent(1, 0).LoadLocal(0).PushInt(1).Sub().Call(1).Add().Return()

	entry := asm.NewFunc(0, 1, 8)
	entry.NewClosure(recurse).StoreLocal(0).
		LoadLocal(0).
		PushInt(10000).
		Call(1).
		Return()

	m := sinter.New(sinter.WithStackSize(64))
	_, err := m.Run(asm.NewProgram(entry, recurse).Build())
	require.Error(t, err)

	var f sinter.Fault
	require.True(t, errors.As(err, &f))
	require.Equal(t, sinter.ReasonStackOverflow, f.Reason())
}

func TestBadMagicIsRejected(t *testing.T) {
	m := sinter.New()
	_, err := m.Run([]byte("not a sinter image"))
	require.Error(t, err)
}

func TestMachineRunIsReentrant(t *testing.T) {
	entry := asm.NewFunc(0, 0, 4)
	entry.PushInt(41).PushInt(1).Add().Return()

	image := asm.NewProgram(entry).Build()
	m := sinter.New()
	for i := 0; i < 3; i++ {
		result, err := m.Run(image)
		require.NoError(t, err)
		require.Equal(t, int32(42), result.Int())
	}
}
