package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhongfu/sinter/internal/heap"
)

func TestFrameSavesWindowAndEnvWithoutRetainingEnv(t *testing.T) {
	a := heap.NewArena(4096)
	env, ok := a.NewEnv(heap.Nil, 0)
	require.True(t, ok)
	a.Retain(env)

	fr, ok := a.NewFrame(0x40, 1, 9, 3, env)
	require.True(t, ok)
	require.Equal(t, uint16(1), a.Refcount(env), "a frame does not own its saved env")

	require.Equal(t, uint32(0x40), a.FrameReturnAddress(fr))
	bottom, limit, top := a.FrameSavedWindow(fr)
	require.Equal(t, uint32(1), bottom)
	require.Equal(t, uint32(9), limit)
	require.Equal(t, uint32(3), top)
	require.Equal(t, env, a.FrameSavedEnv(fr))

	a.Retain(fr)
	a.Release(fr, a.Destroy)
	require.Equal(t, heap.KindFree, a.Kind(fr))
	require.Equal(t, uint16(1), a.Refcount(env), "destroying a frame must not touch its saved env's refcount")
}
