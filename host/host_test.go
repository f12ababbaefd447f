package host

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/luthersystems/eclj/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		args []*Class
		want string
		err  error
	}{
		{"add", []*Class{Long, Long}, "lang.Numbers/add(long,long)", nil},
		{"add", []*Class{Int, Long}, "lang.Numbers/add(long,long)", nil},
		{"add", []*Class{Long, Double}, "lang.Numbers/add(double,double)", nil},
		{"add", []*Class{Double, Double}, "lang.Numbers/add(double,double)", nil},
		{"add", []*Class{nil, Long}, "lang.Numbers/add(Object,Object)", nil},
		{"add", []*Class{String, Long}, "lang.Numbers/add(Object,Object)", nil},
		{"add", []*Class{BoxedLong, BoxedLong}, "lang.Numbers/add(long,long)", nil},
		{"lt", []*Class{Long, Long}, "lang.Numbers/lt(long,long)", nil},
		{"minus", []*Class{Long}, "lang.Numbers/minus(long)", nil},
		{"shiftLeftInt", []*Class{Long, Long}, "", ErrNoMatch},
		{"shiftLeftInt", []*Class{Int, Int}, "lang.Numbers/shiftLeftInt(int,int)", nil},
	}
	for i, test := range tests {
		m, err := Select(Numbers.StaticMethods(test.name, len(test.args)), test.args)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, "test %d", i)
			continue
		}
		if assert.NoError(t, err, "test %d", i) {
			assert.Equal(t, test.want, m.String(), "test %d", i)
		}
	}
}

func TestSelectAmbiguous(t *testing.T) {
	c := NewClass("Ambig", nil)
	c.AddStatic("f", func(x int64, y float64) int64 { return 0 }).
		AddStatic("f", func(x float64, y int64) int64 { return 1 })
	_, err := Select(c.StaticMethods("f", 2), []*Class{Long, Long})
	assert.ErrorIs(t, err, ErrAmbiguous)
	m, err := Select(c.StaticMethods("f", 2), []*Class{Long, Double})
	require.NoError(t, err)
	assert.Equal(t, "Ambig/f(long,double)", m.String())
}

func TestInvokeStatic(t *testing.T) {
	v, err := InvokeStatic(Numbers, "add", []any{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	v, err = InvokeStatic(Numbers, "add", []any{int64(1), 2.5})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
	_, err = InvokeStatic(Numbers, "add", []any{int64(1), "x"})
	assert.Error(t, err)
	v, err = InvokeStatic(Math, "abs", []any{int64(-4)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
	v, err = InvokeStatic(Math, "abs", []any{-4.5})
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)
	_, err = InvokeStatic(Numbers, "add", []any{int64(9223372036854775807), int64(1)})
	var arith *lang.ArithmeticError
	assert.True(t, errors.As(err, &arith))
}

type point struct {
	X int64
	Y int64
}

func (p *point) Sum() int64 { return p.X + p.Y }

func (p *point) Scale(n int64) *point { return &point{p.X * n, p.Y * n} }

func TestInvokeMethod(t *testing.T) {
	v, err := InvokeMethod("hello", "toUpperCase", nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", v)
	v, err = InvokeMethod("hello", "substring", []any{int64(1), int64(3)})
	require.NoError(t, err)
	assert.Equal(t, "el", v)
	v, err = InvokeMethod("hello", "length", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	_, err = InvokeMethod("hello", "frob", nil)
	assert.EqualError(t, err, "No matching method frob found taking 0 args for class String")
	_, err = InvokeMethod(nil, "length", nil)
	assert.Error(t, err)

	p := &point{X: 1, Y: 2}
	v, err = InvokeMethod(p, "sum", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	v, err = InvokeMethod(p, "scale", []any{int64(3)})
	require.NoError(t, err)
	assert.Equal(t, &point{3, 6}, v)

	v, err = InvokeMethod(&lang.IllegalArgumentError{Msg: "bad"}, "getMessage", nil)
	require.NoError(t, err)
	assert.Equal(t, "bad", v)
	v, err = InvokeMethod(fmt.Errorf("wrapped"), "getMessage", nil)
	require.NoError(t, err)
	assert.Equal(t, "wrapped", v)
	v, err = InvokeMethod(int64(5), "toString", nil)
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}

func TestFields(t *testing.T) {
	p := &point{X: 1, Y: 2}
	v, err := GetField(p, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, SetField(p, "y", int64(7)))
	assert.Equal(t, int64(7), p.Y)
	_, err = GetField(p, "z")
	assert.Error(t, err)

	td := lang.NewTypeDef(lang.NewSymbol("user", "Cell"), []*lang.Symbol{
		lang.NewSymbol("", "a"),
		lang.NewSymbol("", "b").WithMeta(lang.NewMap(lang.KwMutable, true)).(*lang.Symbol),
	}, false)
	in, err := New(DefClass(td), []any{int64(1), int64(2)})
	require.NoError(t, err)
	v, err = GetField(in, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.NoError(t, SetField(in, "b", int64(3)))
	assert.Error(t, SetField(in, "a", int64(3)))
	assert.Equal(t, []any{int64(1), int64(3)}, in.(*lang.Instance).Fields)

	pi := Math.StaticField("PI")
	require.NotNil(t, pi)
	assert.Equal(t, Double, pi.Type)
}

func TestNew(t *testing.T) {
	sb, err := New(StringBuilder, []any{"ab"})
	require.NoError(t, err)
	_, err = InvokeMethod(sb, "append", []any{int64(1)})
	require.NoError(t, err)
	v, err := InvokeMethod(sb, "toString", nil)
	require.NoError(t, err)
	assert.Equal(t, "ab1", v)
	_, ok := sb.(*strings.Builder)
	assert.True(t, ok)
}

func TestClasses(t *testing.T) {
	assert.True(t, Long.IsPrimitive())
	assert.Equal(t, BoxedLong, Long.Boxed())
	assert.Equal(t, Long, BoxedLong.Unboxed())
	assert.Nil(t, String.Unboxed())
	assert.Equal(t, Long, ClassOf(reflect.TypeOf(int64(0))))
	assert.Equal(t, BoxedLong, ClassOfValue(int64(1)))
	assert.Equal(t, String, ClassOfValue("x"))
	assert.Nil(t, ClassOfValue(nil))
	assert.True(t, Object.IsAssignableFrom(String))
	assert.True(t, IFn.IsAssignableFrom(Keyword))
	assert.False(t, String.IsAssignableFrom(Object))
	assert.False(t, Object.IsAssignableFrom(Long))

	err := fmt.Errorf("context: %w", &lang.ArithmeticError{Msg: "Divide by zero"})
	r := StandardRegistry()
	arith, ok := r.Lookup("ArithmeticException")
	require.True(t, ok)
	assert.True(t, arith.Catches(err))
	assert.True(t, Error.Catches(err))
	state, _ := r.Lookup("IllegalStateException")
	assert.False(t, state.Catches(err))
	assert.False(t, arith.Catches(nil))
}

func TestRegistry(t *testing.T) {
	r := StandardRegistry()
	for _, name := range []string{"long", "double", "int", "float", "boolean", "longs", "doubles", "objects"} {
		c, ok := r.Lookup(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, name, c.Name)
		}
	}
	c, ok := r.Lookup("Numbers")
	require.True(t, ok)
	assert.Same(t, Numbers, c)
	_, ok = r.Lookup("Nope")
	assert.False(t, ok)
	r.Register("Nope", Object)
	_, ok = r.Lookup("Nope")
	assert.True(t, ok)
	assert.Contains(t, r.Names(), "String")
	_, ok = NewRegistry().Lookup("String")
	assert.False(t, ok)
}
