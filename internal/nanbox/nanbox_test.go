package nanbox_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhongfu/sinter/internal/nanbox"
)

func TestIntRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, nanbox.IntMin, nanbox.IntMax, 12345, -98765} {
		b := nanbox.IntBox(v)
		require.True(t, b.IsInt())
		require.Equal(t, nanbox.KindInt, b.Kind())
		require.Equal(t, v, b.Int())
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1, -1, 3.5, -3.5, math.MaxFloat32, math.SmallestNonzeroFloat32} {
		b := nanbox.FloatBox(f)
		require.True(t, b.IsFloat())
		require.Equal(t, nanbox.KindFloat, b.Kind())
		require.Equal(t, f, b.Float())
	}
}

func TestFloatInfinitiesAreFloats(t *testing.T) {
	pos := nanbox.FloatBox(float32(math.Inf(1)))
	neg := nanbox.FloatBox(float32(math.Inf(-1)))
	require.True(t, pos.IsFloat())
	require.True(t, neg.IsFloat())
	require.True(t, math.IsInf(float64(pos.Float()), 1))
	require.True(t, math.IsInf(float64(neg.Float()), -1))
}

func TestNaNCanonicalizes(t *testing.T) {
	b := nanbox.FloatBox(float32(math.NaN()))
	require.Equal(t, nanbox.CanonicalNaN, b)
	require.True(t, nanbox.IsCanonicalNaN(b))
	require.True(t, b.IsFloat())
}

func TestNaNNotEqualToItself(t *testing.T) {
	// equals(NaN_box, NaN_box) is false: bitwise identity of the box is not
	// the equality relation the VM exposes on floats.
	a := nanbox.FloatBox(float32(math.NaN()))
	b := nanbox.FloatBox(float32(math.NaN()))
	require.True(t, nanbox.Identical(a, b))
	require.True(t, math.IsNaN(float64(a.Float())))
	require.False(t, a.Float() == b.Float())
}

func TestBoolRoundTrip(t *testing.T) {
	require.True(t, nanbox.BoolBox(true).Bool())
	require.False(t, nanbox.BoolBox(false).Bool())
	require.Equal(t, nanbox.KindBool, nanbox.BoolBox(true).Kind())
}

func TestSingletons(t *testing.T) {
	require.Equal(t, nanbox.KindNull, nanbox.NullBox().Kind())
	require.Equal(t, nanbox.KindUndefined, nanbox.UndefinedBox().Kind())
	require.Equal(t, nanbox.KindEmpty, nanbox.EmptyBox().Kind())
	require.True(t, nanbox.NullBox().IsNull())
	require.True(t, nanbox.UndefinedBox().IsUndefined())
	require.True(t, nanbox.EmptyBox().IsEmpty())
}

func TestPointerRoundTrip(t *testing.T) {
	for _, off := range []uint32{0, 1, 4096, 0x1FFFFF} {
		b := nanbox.PointerBox(off)
		require.True(t, b.IsPointer())
		require.Equal(t, off, b.Pointer())
	}
}

func TestKindsPartitionTheValueSpace(t *testing.T) {
	// Every Box produced by this package belongs to exactly one Kind, and
	// the Is* predicates agree with Kind().
	values := []nanbox.Box{
		nanbox.IntBox(42),
		nanbox.FloatBox(1.5),
		nanbox.BoolBox(true),
		nanbox.NullBox(),
		nanbox.UndefinedBox(),
		nanbox.EmptyBox(),
		nanbox.PointerBox(7),
	}
	preds := map[nanbox.Kind]func(nanbox.Box) bool{
		nanbox.KindInt:       nanbox.Box.IsInt,
		nanbox.KindFloat:     nanbox.Box.IsFloat,
		nanbox.KindBool:      nanbox.Box.IsBool,
		nanbox.KindNull:      nanbox.Box.IsNull,
		nanbox.KindUndefined: nanbox.Box.IsUndefined,
		nanbox.KindEmpty:     nanbox.Box.IsEmpty,
		nanbox.KindPointer:   nanbox.Box.IsPointer,
	}
	for _, v := range values {
		k := v.Kind()
		for otherKind, pred := range preds {
			if otherKind == k {
				require.True(t, pred(v), "Kind()=%v but %v predicate false", k, otherKind)
			} else {
				require.False(t, pred(v), "Kind()=%v but %v predicate true", k, otherKind)
			}
		}
	}
}

func TestWrapIntWidensOutOfRange(t *testing.T) {
	require.True(t, nanbox.WrapInt(nanbox.IntMax).IsInt())
	require.True(t, nanbox.WrapInt(nanbox.IntMax+1).IsFloat())
	require.True(t, nanbox.WrapInt(nanbox.IntMin).IsInt())
	require.True(t, nanbox.WrapInt(nanbox.IntMin-1).IsFloat())

	widened := nanbox.WrapInt(int64(nanbox.IntMax) + 1000)
	require.Equal(t, float32(nanbox.IntMax+1000), widened.Float())
}
