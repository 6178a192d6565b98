package heap_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhongfu/sinter/internal/heap"
	"github.com/zhongfu/sinter/internal/nanbox"
)

func TestMallocReturnsDistinctBlocks(t *testing.T) {
	a := heap.NewArena(4096)
	off1, ok := a.Malloc(16, heap.KindEnv)
	require.True(t, ok)
	off2, ok := a.Malloc(16, heap.KindEnv)
	require.True(t, ok)
	require.NotEqual(t, off1, off2)
}

func TestMallocFailsWhenExhausted(t *testing.T) {
	a := heap.NewArena(64)
	// Allocate until the arena can't fit another block of this size.
	var ok bool
	for i := 0; i < 100; i++ {
		if _, ok = a.Malloc(32, heap.KindEnv); !ok {
			break
		}
	}
	require.False(t, ok)
}

func TestFreeAndReallocateReusesSpace(t *testing.T) {
	a := heap.NewArena(256)
	off, ok := a.Malloc(32, heap.KindEnv)
	require.True(t, ok)
	a.Free(off)

	off2, ok := a.Malloc(32, heap.KindEnv)
	require.True(t, ok)
	require.Equal(t, off, off2)
}

func TestCoalescingReclaimsFullArena(t *testing.T) {
	const size = 512
	a := heap.NewArena(size)
	a1, ok := a.Malloc(32, heap.KindEnv)
	require.True(t, ok)
	a2, ok := a.Malloc(32, heap.KindEnv)
	require.True(t, ok)
	a3, ok := a.Malloc(32, heap.KindEnv)
	require.True(t, ok)

	// Free the middle block first (neither neighbour free), then the
	// first (coalesces forward only), then the last (coalesces backward
	// across the merged middle+first block) -- exercising all three
	// coalescing cases.
	a.Free(a2)
	a.Free(a1)
	a.Free(a3)

	big, ok := a.Malloc(size-48, heap.KindEnv)
	require.True(t, ok, "expected coalescing to have reunified the arena into one free block")
	a.Free(big)
}

func TestRefcountRetainRelease(t *testing.T) {
	a := heap.NewArena(4096)
	env, ok := a.NewEnv(heap.Nil, 2)
	require.True(t, ok)
	require.Equal(t, uint16(0), a.Refcount(env))

	a.Retain(env)
	require.Equal(t, uint16(1), a.Refcount(env))

	destroyed := false
	a.Release(env, func(k heap.Kind, off uint32) {
		destroyed = true
		a.Destroy(k, off)
	})
	require.True(t, destroyed)
	require.Equal(t, heap.KindFree, a.Kind(env))
}

func TestRetainPanicsWithOverflowErrorAtRefcountCeiling(t *testing.T) {
	a := heap.NewArena(4096)
	env, ok := a.NewEnv(heap.Nil, 0)
	require.True(t, ok)

	for i := 0; i < 0xFFFF; i++ {
		a.Retain(env)
	}
	require.Equal(t, uint16(0xFFFF), a.Refcount(env))

	defer func() {
		r := recover()
		oe, ok := r.(*heap.OverflowError)
		require.True(t, ok, "Retain must panic with *heap.OverflowError at the ceiling")
		require.Equal(t, env, oe.Offset)
	}()
	a.Retain(env)
}

func TestEnvDestroyReleasesSlotsAndParent(t *testing.T) {
	a := heap.NewArena(4096)
	parent, ok := a.NewEnv(heap.Nil, 1)
	require.True(t, ok)
	a.Retain(parent)

	child, ok := a.NewEnv(parent, 1)
	require.True(t, ok)
	require.Equal(t, uint16(2), a.Refcount(parent), "NewEnv should retain its parent")

	inner, ok := a.NewEnv(heap.Nil, 0)
	require.True(t, ok)
	a.Retain(inner)
	require.True(t, a.EnvPut(child, 0, nanbox.PointerBox(inner), a.Destroy))
	require.Equal(t, uint16(1), a.Refcount(inner), "EnvPut consumes the caller's reference rather than adding its own")

	a.Retain(child)
	a.Release(child, a.Destroy)

	require.Equal(t, heap.KindFree, a.Kind(child))
	require.Equal(t, uint16(0), a.Refcount(inner), "destroying the env should release its slot")
	require.Equal(t, uint16(1), a.Refcount(parent), "destroying the env should release its parent")
}

func TestEnvGetPutBounds(t *testing.T) {
	a := heap.NewArena(4096)
	env, ok := a.NewEnv(heap.Nil, 3)
	require.True(t, ok)

	v, ok := a.EnvGet(env, 0)
	require.True(t, ok)
	require.True(t, v.IsEmpty())

	_, ok = a.EnvGet(env, 3)
	require.False(t, ok)
	require.False(t, a.EnvPut(env, -1, nanbox.IntBox(1), a.Destroy))

	require.True(t, a.EnvPut(env, 1, nanbox.IntBox(42), a.Destroy))
	v, ok = a.EnvGet(env, 1)
	require.True(t, ok)
	require.Equal(t, int32(42), v.Int())
}

func TestFunctionCapturesEnvWithRetain(t *testing.T) {
	a := heap.NewArena(4096)
	env, ok := a.NewEnv(heap.Nil, 0)
	require.True(t, ok)

	fn, ok := a.NewFunction(0x1000, env)
	require.True(t, ok)
	require.Equal(t, uint16(1), a.Refcount(env))
	require.Equal(t, uint32(0x1000), a.FunctionCode(fn))

	a.Retain(fn)
	a.Release(fn, a.Destroy)
	require.Equal(t, heap.KindFree, a.Kind(fn))
	require.Equal(t, uint16(0), a.Refcount(env))
}

func TestArenaRandomizedAllocFreeNeverCorrupts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := heap.NewArena(8192)
	var live []uint32

	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			a.Free(live[idx])
			live = append(live[:idx], live[idx+1:]...)
			continue
		}
		size := 4 + rng.Intn(64)
		off, ok := a.Malloc(size, heap.KindEnv)
		if !ok {
			continue
		}
		live = append(live, off)
	}

	for _, off := range live {
		a.Free(off)
	}

	// The arena should now be fully reclaimable as one block.
	big, ok := a.Malloc(8192-12, heap.KindEnv)
	require.True(t, ok)
	a.Free(big)
}
