package vm

import (
	"errors"
	"math"
	"testing"

	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retConst defines a method returning the constant c.
func retConst(tb *asm.TypeBuilder, name string, params []asm.Kind, c any) {
	i := tb.DefineConst(c)
	mb := tb.DefineMethod(name, params, asm.Object)
	mb.EmitA(asm.LDC, i)
	mb.EmitK(asm.RET, asm.Object)
}

func TestArityDispatch(t *testing.T) {
	tb, err := asm.NewModule("test").DefineType("user$f")
	require.NoError(t, err)
	retConst(tb, InvokeName, []asm.Kind{asm.Object}, lang.Kw("one"))
	retConst(tb, InvokeName, []asm.Kind{asm.Object, asm.Object, asm.Object}, lang.Kw("three"))
	mb := tb.DefineMethod(VariadicName, []asm.Kind{asm.Object, asm.Object, asm.Object, asm.Object, asm.Object}, asm.Object)
	mb.EmitLocal(asm.LDLOC, 4)
	mb.EmitK(asm.RET, asm.Object)
	class, err := tb.CreateType()
	require.NoError(t, err)
	fn := New(lang.NewRuntime()).NewClosure(class, nil, nil)

	args := func(n int) []any {
		xs := make([]any, n)
		for i := range xs {
			xs[i] = int64(i)
		}
		return xs
	}
	tests := []struct {
		n    int
		want any
	}{
		{0, nil},
		{1, lang.Kw("one")},
		{2, nil},
		{3, lang.Kw("three")},
		{4, nil},
		{10, lang.NewList(int64(4), int64(5), int64(6), int64(7), int64(8), int64(9))},
	}
	for _, test := range tests {
		v, err := fn.Invoke(args(test.n)...)
		if test.n == 0 || test.n == 2 {
			var arity *lang.WrongArityError
			if assert.True(t, errors.As(err, &arity), "args %d", test.n) {
				assert.Equal(t, test.n, arity.Count)
				assert.Equal(t, "user$f", arity.Name)
			}
			continue
		}
		require.NoError(t, err, "args %d", test.n)
		assert.True(t, lang.Equal(test.want, v), "args %d: %v", test.n, v)
	}
}

// sumType builds a class whose invokePrim adds two longs with overflow
// checking and converts overflow errors into the keyword :overflow.
func sumType(t *testing.T) *asm.Class {
	tb, err := asm.NewModule("test").DefineType("user$sum")
	require.NoError(t, err)
	kw := tb.DefineConst(lang.Kw("overflow"))
	mb := tb.DefineMethod(PrimName, []asm.Kind{asm.Long, asm.Long}, asm.Object)
	start, end, handler := mb.DefineLabel(), mb.DefineLabel(), mb.DefineLabel()
	mb.MarkLabel(start)
	mb.EmitLocal(asm.LDLOC, 0)
	mb.EmitLocal(asm.LDLOC, 1)
	mb.Emit(asm.LADDOVF)
	mb.EmitK(asm.BOX, asm.Long)
	mb.MarkLabel(end)
	mb.EmitK(asm.RET, asm.Object)
	mb.MarkLabel(handler)
	mb.Emit(asm.POP)
	mb.EmitA(asm.LDC, kw)
	mb.EmitK(asm.RET, asm.Object)
	mb.AddHandler(start, end, handler, host.StandardRegistry().MustLookup("ArithmeticException"))
	class, err := tb.CreateType()
	require.NoError(t, err)
	return class
}

func TestHandlerAndPrim(t *testing.T) {
	fn := New(lang.NewRuntime()).NewClosure(sumType(t), nil, nil)
	v, err := fn.Invoke(int64(2), int64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	v, err = fn.Invoke(int64(math.MaxInt64), int64(1))
	require.NoError(t, err)
	assert.Equal(t, lang.Kw("overflow"), v)
	_, err = fn.Invoke("a", int64(1))
	assert.Error(t, err)

	s, err := fn.InvokePrim([]asm.Kind{asm.Long, asm.Long}, asm.Object, []Slot{LongSlot(-1), LongSlot(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.R)
	// A mismatched signature goes through Invoke.
	s, err = fn.InvokePrim([]asm.Kind{asm.Int, asm.Long}, asm.Long, []Slot{IntSlot(4), LongSlot(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.Long())
}

func TestClosureFields(t *testing.T) {
	mod := asm.NewModule("test")
	inner, err := mod.DefineType("user$inner")
	require.NoError(t, err)
	inner.DefineField("x", asm.Long)
	mb := inner.DefineMethod(InvokeName, nil, asm.Object)
	mb.EmitA(asm.LDFLD, 0)
	mb.EmitK(asm.BOX, asm.Long)
	mb.EmitK(asm.RET, asm.Object)
	innerClass, err := inner.CreateType()
	require.NoError(t, err)

	outer, err := mod.DefineType("user$outer")
	require.NoError(t, err)
	ci := outer.DefineConst(innerClass)
	mb = outer.DefineMethod(PrimName, []asm.Kind{asm.Long}, asm.Object)
	mb.EmitLocal(asm.LDLOC, 0)
	mb.EmitA(asm.NEWFN, ci)
	mb.EmitK(asm.RET, asm.Object)
	outerClass, err := outer.CreateType()
	require.NoError(t, err)

	m := New(lang.NewRuntime())
	f, err := m.NewClosure(outerClass, nil, nil).Invoke(int64(42))
	require.NoError(t, err)
	g, ok := f.(*Closure)
	require.True(t, ok)
	assert.Same(t, innerClass, g.Class)
	assert.Equal(t, int64(42), g.Field(0).Long())
	v, err := g.Invoke()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	meta := lang.NewMap(lang.Kw("a"), int64(1))
	h := g.WithMeta(meta).(*Closure)
	assert.Equal(t, meta, h.Meta())
	assert.Nil(t, g.Meta())
	assert.Equal(t, "#fn[user$inner]", g.String())
}

func TestDynamicBindings(t *testing.T) {
	rt := lang.NewRuntime()
	v := rt.NS().Intern("*x*")
	v.SetDynamic(true)
	v.BindRoot(int64(1))

	tb, err := asm.NewModule("test").DefineType("user$bind")
	require.NoError(t, err)
	vi := tb.DefineConst(v)
	two := tb.DefineConst(int64(2))
	mb := tb.DefineMethod(InvokeName, nil, asm.Object)
	res := mb.DeclareLocal(asm.Object)
	mb.EmitA(asm.LDC, vi)
	mb.EmitA(asm.LDC, two)
	mb.EmitA(asm.BINDPUSH, 1)
	mb.EmitA(asm.GETVAR, vi)
	mb.EmitLocal(asm.STLOC, res)
	mb.Emit(asm.BINDPOP)
	mb.EmitLocal(asm.LDLOC, res)
	mb.EmitK(asm.RET, asm.Object)
	class, err := tb.CreateType()
	require.NoError(t, err)

	x, err := New(rt).NewClosure(class, nil, nil).Invoke()
	require.NoError(t, err)
	assert.Equal(t, int64(2), x)
	root, err := v.Get(rt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		ops  []asm.Op
		x, y int64
		want int64
	}{
		{[]asm.Op{asm.LADD}, math.MaxInt64, 1, math.MinInt64},
		{[]asm.Op{asm.LSUB}, 3, 5, -2},
		{[]asm.Op{asm.LMUL}, -4, 5, -20},
		{[]asm.Op{asm.LAND}, 12, 10, 8},
		{[]asm.Op{asm.LOR}, 12, 10, 14},
		{[]asm.Op{asm.LXOR}, 12, 10, 6},
		{[]asm.Op{asm.LSHL}, 1, 62, 1 << 62},
		{[]asm.Op{asm.LSHR}, -8, 1, -4},
		{[]asm.Op{asm.LUSHR}, -1, 60, 15},
		{[]asm.Op{asm.LCMP}, 1, 2, -1},
		{[]asm.Op{asm.LCMP}, 2, 2, 0},
		{[]asm.Op{asm.LQUOT}, -7, 2, -3},
		{[]asm.Op{asm.LREM}, -7, 2, -1},
		{[]asm.Op{asm.L2D, asm.SWAP, asm.L2D, asm.SWAP, asm.DDIV, asm.D2L}, 7, 2, 3},
	}
	for i, test := range tests {
		tb, err := asm.NewModule("test").DefineType("T")
		require.NoError(t, err)
		mb := tb.DefineMethod(PrimName, []asm.Kind{asm.Long, asm.Long}, asm.Long)
		mb.EmitLocal(asm.LDLOC, 0)
		mb.EmitLocal(asm.LDLOC, 1)
		for _, op := range test.ops {
			mb.Emit(op)
		}
		mb.EmitK(asm.RET, asm.Long)
		class, err := tb.CreateType()
		require.NoError(t, err, "test %d", i)
		v, err := New(lang.NewRuntime()).NewClosure(class, nil, nil).Invoke(test.x, test.y)
		require.NoError(t, err, "test %d", i)
		assert.Equal(t, test.want, v, "test %d", i)
	}
}

func TestThrowNonError(t *testing.T) {
	tb, err := asm.NewModule("test").DefineType("T")
	require.NoError(t, err)
	mb := tb.DefineMethod(InvokeName, nil, asm.Object)
	mb.EmitA(asm.LCONST, 1)
	mb.EmitK(asm.BOX, asm.Long)
	mb.Emit(asm.THROW)
	class, err := tb.CreateType()
	require.NoError(t, err)
	_, err = New(lang.NewRuntime()).NewClosure(class, nil, nil).Invoke()
	assert.EqualError(t, err, "Long cannot be cast to Throwable")
}

func TestStackOverflow(t *testing.T) {
	rt := lang.NewRuntime(lang.WithMaxCallDepth(50))
	v := rt.NS().Intern("loop")
	tb, err := asm.NewModule("test").DefineType("T")
	require.NoError(t, err)
	vi := tb.DefineConst(v)
	mb := tb.DefineMethod(InvokeName, nil, asm.Object)
	mb.EmitA(asm.GETVAR, vi)
	mb.EmitA(asm.INVOKE, 0)
	mb.EmitK(asm.RET, asm.Object)
	class, err := tb.CreateType()
	require.NoError(t, err)
	fn := New(rt).NewClosure(class, nil, nil)
	v.BindRoot(fn)
	_, err = fn.Invoke()
	var overflow *lang.StackOverflowError
	assert.True(t, errors.As(err, &overflow))
}

func TestSlots(t *testing.T) {
	assert.Equal(t, int64(-5), LongSlot(-5).Long())
	assert.Equal(t, int32(-5), IntSlot(-5).Int())
	assert.Equal(t, int64(-5), IntSlot(-5).Long())
	assert.Equal(t, 1.5, DoubleSlot(1.5).Double())
	assert.Equal(t, float32(1.5), FloatSlot(1.5).Float())
	assert.Equal(t, 1.5, FloatSlot(1.5).Double())
	assert.True(t, BoolSlot(true).Bool())
	assert.Equal(t, int32(7), Box(IntSlot(7), asm.Int))
	s, err := Unbox(2.9, asm.Long)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Long())
	_, err = Unbox("x", asm.Double)
	assert.Error(t, err)
	s, err = Unbox(nil, asm.Bool)
	require.NoError(t, err)
	assert.False(t, s.Bool())
	assert.True(t, truthy(DoubleSlot(0), asm.Double))
	assert.False(t, truthy(Slot{R: false}, asm.Object))
}
