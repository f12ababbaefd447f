package lang_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/luthersystems/eclj/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b  any
		equal bool
	}{
		{int64(1), int32(1), true},
		{int64(1), 1.0, false},
		{float32(1.5), 1.5, true},
		{"a", "a", true},
		{lang.Kw(":a"), lang.Kw("a"), true},
		{lang.NewSymbol("", "x"), lang.NewSymbol("", "x"), true},
		{lang.NewList(int64(1), int64(2)), lang.NewVector(int64(1), int64(2)), true},
		{lang.NewList(int64(1)), lang.NewVector(int64(1), int64(2)), false},
		{lang.NewMap(lang.Kw("a"), int64(1)), lang.NewMap(lang.Kw("a"), int32(1)), true},
		{lang.NewSet(int64(1), int64(2)), lang.NewSet(int64(2), int64(1)), true},
		{nil, nil, true},
		{nil, false, false},
		{lang.Char('a'), int64('a'), false},
	}
	for i, test := range tests {
		assert.Equal(t, test.equal, lang.Equal(test.a, test.b), "test %d", i)
		if test.equal {
			assert.Equal(t, lang.HashKey(test.a), lang.HashKey(test.b), "test %d", i)
		}
	}
}

func TestMap(t *testing.T) {
	m := lang.NewMap(lang.Kw("a"), int64(1), lang.Kw("b"), int64(2))
	assert.Equal(t, 2, m.Count())
	m2 := m.Assoc(lang.Kw("a"), int64(3))
	assert.Equal(t, int64(1), m.ValAt(lang.Kw("a")))
	assert.Equal(t, int64(3), m2.ValAt(lang.Kw("a")))
	m3 := m2.Dissoc(lang.Kw("a"))
	assert.False(t, m3.Contains(lang.Kw("a")))
	assert.Equal(t, `{:a 1, :b 2}`, lang.PrStr(m))

	v, err := m.Invoke(lang.Kw("c"), "none")
	require.NoError(t, err)
	assert.Equal(t, "none", v)
}

func TestPrint(t *testing.T) {
	tests := []struct {
		x   any
		pr  string
		str string
	}{
		{nil, "nil", ""},
		{int64(-3), "-3", "-3"},
		{1.0, "1.0", "1.0"},
		{math.NaN(), "NaN", "NaN"},
		{math.Inf(-1), "-Infinity", "-Infinity"},
		{"a\"b", `"a\"b"`, `a"b`},
		{lang.Char('\n'), `\newline`, "\n"},
		{lang.NewVector(int64(1), "x"), `[1 "x"]`, `[1 x]`},
		{lang.NewList(), "()", "()"},
		{lang.NewSet(lang.Kw("k")), "#{:k}", "#{:k}"},
	}
	for _, test := range tests {
		assert.Equal(t, test.pr, lang.PrStr(test.x))
		assert.Equal(t, test.str, lang.Str(test.x))
	}
}

func TestVarBindings(t *testing.T) {
	rt := lang.NewRuntime()
	v := rt.NS().Intern("*x*")
	v.BindRoot(int64(1))

	err := rt.PushBindings([]*lang.Var{v}, []any{int64(2)})
	require.Error(t, err, "non-dynamic vars cannot be bound")

	v.SetDynamic(true)
	require.NoError(t, rt.PushBindings([]*lang.Var{v}, []any{int64(2)}))
	x, err := v.Get(rt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), x)
	require.NoError(t, v.Set(rt, int64(3)))
	x, _ = v.Get(rt)
	assert.Equal(t, int64(3), x)
	rt.PopBindings()

	x, _ = v.Get(rt)
	assert.Equal(t, int64(1), x)
	assert.Error(t, v.Set(rt, int64(4)))

	other := lang.NewRuntime()
	unbound := other.NS().Intern("y")
	_, err = unbound.Get(other)
	assert.Error(t, err)
}

func TestCallDepth(t *testing.T) {
	rt := lang.NewRuntime(lang.WithMaxCallDepth(2))
	require.NoError(t, rt.Enter())
	require.NoError(t, rt.Enter())
	err := rt.Enter()
	var overflow *lang.StackOverflowError
	assert.ErrorAs(t, err, &overflow)
	rt.Leave()
	rt.Leave()
}

func TestGenSym(t *testing.T) {
	rt := lang.NewRuntime()
	a := rt.GenSym("x__")
	b := rt.GenSym("x__")
	assert.NotEqual(t, a.Name, b.Name)
}

type describer interface {
	Describe() string
}

type named string

func (n named) Describe() string { return string(n) }

func TestProtocolResolve(t *testing.T) {
	p := lang.NewProtocol(lang.NewSymbol("user", "Shape"), []string{"area"})
	circle := lang.NewTypeDef(lang.NewSymbol("user", "Circle"), []*lang.Symbol{lang.NewSymbol("", "r")}, false)
	area := lang.NewBuiltin("area", 1, 1, func(args []any) (any, error) {
		c := args[0].(*lang.Instance)
		return c.Fields[0], nil
	})
	require.NoError(t, p.Extend(circle, map[string]any{"area": area}))
	assert.True(t, circle.Declares(p))

	fn := &lang.ProtocolFn{Protocol: p, Method: "area"}
	c, err := circle.New(int64(3))
	require.NoError(t, err)
	v, err := fn.Invoke(c)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = fn.Invoke("str")
	var illegal *lang.IllegalArgumentError
	require.ErrorAs(t, err, &illegal)
	assert.Contains(t, err.Error(), "No implementation of method: area")

	require.Error(t, p.Extend(circle, map[string]any{"perimeter": area}))

	iface := reflect.TypeOf((*describer)(nil)).Elem()
	describe := lang.NewBuiltin("area", 1, 1, func(args []any) (any, error) {
		return args[0].(describer).Describe(), nil
	})
	require.NoError(t, p.Extend(iface, map[string]any{"area": describe}))
	v, err = fn.Invoke(named("n"))
	require.NoError(t, err)
	assert.Equal(t, "n", v)
}

func TestProtocolSite(t *testing.T) {
	p := lang.NewProtocol(lang.NewSymbol("user", "P"), []string{"f"})
	fn := &lang.ProtocolFn{Protocol: p, Method: "f"}
	constant := func(x any) *lang.Builtin {
		return lang.NewBuiltin("f", 1, 1, func(args []any) (any, error) { return x, nil })
	}
	require.NoError(t, p.Extend(reflect.TypeOf(int64(0)), map[string]any{"f": constant("long")}))
	require.NoError(t, p.Extend(reflect.TypeOf(""), map[string]any{"f": constant("string")}))

	site := lang.NewProtocolSite(fn)
	for i := 0; i < 3; i++ {
		v, err := site.Call(fn, []any{int64(i)})
		require.NoError(t, err)
		assert.Equal(t, "long", v)
	}
	hits, misses := site.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, lang.SiteBasic, site.Mode())

	v, err := site.Call(fn, []any{"s"})
	require.NoError(t, err)
	assert.Equal(t, "string", v)

	// an Object fallback moves the site into full mode
	require.NoError(t, p.Extend(lang.ObjectClass, map[string]any{"f": constant("object")}))
	v, err = site.Call(fn, []any{true})
	require.NoError(t, err)
	assert.Equal(t, "object", v)
	assert.Equal(t, lang.SiteFull, site.Mode())

	// extending the protocol invalidates cached entries
	require.NoError(t, p.Extend(reflect.TypeOf(true), map[string]any{"f": constant("bool")}))
	v, err = site.Call(fn, []any{true})
	require.NoError(t, err)
	assert.Equal(t, "bool", v)

	// a rebound var bypasses the cache
	v, err = site.Call(constant("other"), []any{true})
	require.NoError(t, err)
	assert.Equal(t, "other", v)
}

func TestKeywordSite(t *testing.T) {
	td := lang.NewTypeDef(lang.NewSymbol("user", "P"), []*lang.Symbol{lang.NewSymbol("", "x"), lang.NewSymbol("", "y")}, true)
	p, err := td.New(int64(1), int64(2))
	require.NoError(t, err)
	site := lang.NewKeywordSite(lang.Kw(":y"))
	assert.Equal(t, int64(2), site.Get(p, nil))
	assert.Equal(t, int64(2), site.Get(p, nil))
	assert.Equal(t, int64(5), site.Get(lang.NewMap(lang.Kw(":y"), int64(5)), nil))
	assert.Equal(t, "nf", lang.NewKeywordSite(lang.Kw(":z")).Get(p, "nf"))
	assert.Equal(t, "#user/P{:x 1, :y 2}", lang.PrStr(p))

	q, _ := td.New(int64(1), int64(2))
	assert.True(t, lang.Equal(p, q))
	assert.Error(t, p.SetField(0, int64(3)))
}

func TestInvoke(t *testing.T) {
	v, err := lang.Invoke(lang.NewVector("a", "b"), int64(1))
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = lang.Invoke(nil)
	assert.Error(t, err)

	_, err = lang.Invoke(int64(1))
	var cce *lang.ClassCastError
	assert.ErrorAs(t, err, &cce)

	list := lang.NewBuiltin("list", 0, lang.Variadic, func(args []any) (any, error) {
		return lang.NewList(args...), nil
	})
	v, err = lang.Apply(list, int64(1), lang.NewVector(int64(2), int64(3)))
	require.NoError(t, err)
	assert.Equal(t, "(1 2 3)", lang.PrStr(v))

	_, err = lang.NewBuiltin("one", 1, 1, nil).Invoke()
	var arity *lang.WrongArityError
	assert.ErrorAs(t, err, &arity)
}

type stringer interface {
	String() string
}

type both string

func (b both) Describe() string { return "describe" }
func (b both) String() string   { return "string" }

func TestProtocolResolveInterfaceOrder(t *testing.T) {
	p := lang.NewProtocol(lang.NewSymbol("user", "P"), []string{"f"})
	constant := func(x any) *lang.Builtin {
		return lang.NewBuiltin("f", 1, 1, func(args []any) (any, error) { return x, nil })
	}
	require.NoError(t, p.Extend(reflect.TypeOf((*describer)(nil)).Elem(), map[string]any{"f": constant("describer")}))
	require.NoError(t, p.Extend(reflect.TypeOf((*stringer)(nil)).Elem(), map[string]any{"f": constant("stringer")}))
	fn := &lang.ProtocolFn{Protocol: p, Method: "f"}
	for i := 0; i < 20; i++ {
		v, err := fn.Invoke(both("x"))
		require.NoError(t, err)
		assert.Equal(t, "describer", v)
	}
}

func TestCons(t *testing.T) {
	s, err := lang.Cons(int64(0), lang.NewVector(int64(1), int64(2)))
	require.NoError(t, err)
	assert.Equal(t, "(0 1 2)", lang.PrStr(s))
	assert.True(t, lang.Equal(lang.NewList(int64(0), int64(1), int64(2)), s))

	s, err = lang.Cons(int64(0), nil)
	require.NoError(t, err)
	assert.Equal(t, "(0)", lang.PrStr(s))

	s, err = lang.Cons("a", lang.NewList("b"))
	require.NoError(t, err)
	assert.Equal(t, `("a" "b")`, lang.PrStr(s))

	_, err = lang.Cons(int64(0), int64(1))
	assert.Error(t, err)
}
