package asm

import (
	"testing"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateType(t *testing.T) {
	mod := NewModule("test")
	tb, err := mod.DefineType("user$abs")
	require.NoError(t, err)
	tb.SetSource("user", nil)
	tb.DefineConst(lang.Kw("neg"))
	tb.DefineField("x", Long)
	mb := tb.DefineMethod("invoke", []Kind{Long}, Long)
	done := mb.DefineLabel()
	mb.EmitLocal(LDLOC, 0)
	mb.EmitBranch(IFGE, done)
	mb.EmitLocal(LDLOC, 0)
	mb.Emit(LNEG)
	mb.EmitLocal(STLOC, 0)
	mb.MarkLabel(done)
	mb.EmitLocal(LDLOC, 0)
	mb.EmitK(RET, Long)
	c, err := tb.CreateType()
	require.NoError(t, err)

	m := c.Method("invoke", 1)
	require.NotNil(t, m)
	assert.Nil(t, c.Method("invoke", 2))
	assert.Equal(t, 5, m.Code[1].A, "branch resolved to a pc")
	assert.Equal(t, 0, c.FieldIndex("x"))
	assert.Equal(t, -1, c.FieldIndex("y"))
	found, ok := mod.Lookup("user$abs")
	assert.True(t, ok)
	assert.Same(t, c, found)
	assert.Len(t, mod.Types(), 1)

	_, err = tb.CreateType()
	assert.Error(t, err)
	_, err = mod.DefineType("user$abs")
	assert.Error(t, err)

	listing := Disassemble(c)
	assert.Contains(t, listing, "class user$abs ; ns user")
	assert.Contains(t, listing, "const 0 :neg")
	assert.Contains(t, listing, "method invoke(long) long")
	assert.Contains(t, listing, "0001  ifge 0005")
	assert.Contains(t, listing, "0006  ret long")
}

func TestCreateTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(tb *TypeBuilder)
		msg   string
	}{
		{"unmarked", func(tb *TypeBuilder) {
			mb := tb.DefineMethod("invoke", nil, Object)
			l := mb.DefineLabel()
			mb.EmitBranch(BR, l)
		}, "never marked"},
		{"fallthrough", func(tb *TypeBuilder) {
			mb := tb.DefineMethod("invoke", nil, Object)
			mb.Emit(LDNULL)
		}, "control reaches end"},
		{"empty", func(tb *TypeBuilder) {
			tb.DefineMethod("invoke", nil, Object)
		}, "empty method"},
		{"local kind", func(tb *TypeBuilder) {
			mb := tb.DefineMethod("invoke", []Kind{Long}, Object)
			mb.EmitInstr(Instr{Op: LDLOC, A: 0, K: Double})
			mb.EmitK(RET, Object)
		}, "local 0 is long not double"},
		{"const", func(tb *TypeBuilder) {
			mb := tb.DefineMethod("invoke", nil, Object)
			mb.EmitA(LDC, 3)
			mb.EmitK(RET, Object)
		}, "constant 3 out of range"},
		{"field", func(tb *TypeBuilder) {
			mb := tb.DefineMethod("invoke", nil, Object)
			mb.EmitA(LDFLD, 0)
			mb.EmitK(RET, Object)
		}, "field 0 out of range"},
		{"duplicate", func(tb *TypeBuilder) {
			for i := 0; i < 2; i++ {
				mb := tb.DefineMethod("invoke", nil, Object)
				mb.Emit(LDNULL)
				mb.EmitK(RET, Object)
			}
		}, "duplicate method invoke/0"},
	}
	for _, test := range tests {
		tb, err := NewModule("test").DefineType("T")
		require.NoError(t, err)
		test.build(tb)
		_, err = tb.CreateType()
		if assert.Error(t, err, test.name) {
			assert.Contains(t, err.Error(), test.msg, test.name)
		}
	}
}

func TestHandlers(t *testing.T) {
	tb, err := NewModule("test").DefineType("T")
	require.NoError(t, err)
	mb := tb.DefineMethod("invoke", nil, Object)
	start, end, arith, all := mb.DefineLabel(), mb.DefineLabel(), mb.DefineLabel(), mb.DefineLabel()
	mb.MarkLabel(start)
	mb.Emit(LDNULL)
	mb.Emit(THROW)
	mb.MarkLabel(end)
	mb.MarkLabel(arith)
	mb.EmitK(RET, Object)
	mb.MarkLabel(all)
	mb.EmitK(RET, Object)
	mb.AddHandler(start, end, arith, host.NewClass("ArithmeticException", nil))
	mb.AddHandler(start, end, all, nil)
	c, err := tb.CreateType()
	require.NoError(t, err)
	m := c.Method("invoke", 0)
	target, ok := m.Handler(1, &lang.IllegalStateError{Msg: "x"})
	assert.True(t, ok)
	assert.Equal(t, 3, target)
	_, ok = m.Handler(2, &lang.IllegalStateError{Msg: "x"})
	assert.False(t, ok)
}

func TestSwitchTable(t *testing.T) {
	tb, err := NewModule("test").DefineType("T")
	require.NoError(t, err)
	mb := tb.DefineMethod("invoke", []Kind{Object}, Object)
	deflt, one, kw := mb.DefineLabel(), mb.DefineLabel(), mb.DefineLabel()
	table := NewSwitchTable(deflt)
	table.Add(int64(1), one)
	table.Add(lang.Kw("k"), kw)
	mb.EmitLocal(LDLOC, 0)
	mb.EmitSwitch(table)
	mb.MarkLabel(one)
	mb.EmitA(LCONST, 1)
	mb.EmitK(RET, Long)
	mb.MarkLabel(kw)
	mb.EmitA(LCONST, 2)
	mb.EmitK(RET, Long)
	mb.MarkLabel(deflt)
	mb.EmitA(LCONST, 3)
	mb.EmitK(RET, Long)
	_, err = tb.CreateType()
	require.NoError(t, err)
	assert.Equal(t, 2, table.Target(int32(1)))
	assert.Equal(t, 4, table.Target(lang.Kw(":k")))
	assert.Equal(t, 6, table.Target(1.0))
	assert.Equal(t, 6, table.Target(nil))
}

func TestKinds(t *testing.T) {
	assert.Equal(t, Long, KindOf(host.Long))
	assert.Equal(t, Object, KindOf(host.BoxedLong))
	assert.Equal(t, Object, KindOf(nil))
	assert.Equal(t, host.Double, ClassOf(Double))
	assert.Nil(t, ClassOf(Object))
	assert.Equal(t, []Kind{Long, Object, Bool}, Kinds([]*host.Class{host.Long, host.String, host.Bool}))
	assert.True(t, Int.IsPrimitive())
	assert.False(t, Void.IsPrimitive())
	assert.Equal(t, IFLT, IFGE.Negate())
	assert.Equal(t, BRFALSE, BRTRUE.Negate())
}
