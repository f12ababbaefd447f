package compiler

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser"
)

var modes = []Mode{ModeCompile, ModeInterpret}

func newTestCompiler(t testing.TB, mode Mode, opts ...Option) (*Compiler, *WarningLog) {
	var out bytes.Buffer
	warnings := &WarningLog{}
	rt := lang.NewRuntime(lang.WithStdout(&out), lang.WithStderr(&out))
	opts = append([]Option{WithRuntime(rt), WithMode(mode), WithWarnings(warnings)}, opts...)
	return New(opts...), warnings
}

func readForm(t testing.TB, src string) any {
	t.Helper()
	forms, err := parser.NewReader().Read("test", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func evalString(t testing.TB, c *Compiler, src string) (any, error) {
	t.Helper()
	return c.Eval(readForm(t, src))
}

func analyzeString(t testing.TB, c *Compiler, src string) Expr {
	t.Helper()
	e, err := c.Analyze(readForm(t, src))
	require.NoError(t, err)
	return e
}

// single returns the only expression of a body.
func single(t testing.TB, e Expr) Expr {
	t.Helper()
	if b, ok := e.(*BodyExpr); ok {
		require.Len(t, b.Exprs, 1)
		return b.Exprs[0]
	}
	return e
}

func TestConstantPoolReuse(t *testing.T) {
	pool := &ConstantPool{}
	i := pool.Index(lang.NewList(int64(1), int64(2)))
	assert.Equal(t, i, pool.Index(lang.NewList(int64(1), int64(2))))
	assert.Equal(t, i, pool.Index(lang.NewList(int64(1), int64(2))))
	j := pool.Index(lang.NewVector(int64(1), int64(2)))
	assert.Equal(t, 2, pool.Len())
	assert.NotEqual(t, i, j)
	k := pool.Index(lang.Kw("a"))
	assert.Equal(t, k, pool.Index(lang.Kw("a")))

	c, _ := newTestCompiler(t, ModeCompile)
	a := c.newAnalyzer()
	a.root(nil)
	form := readForm(t, "(quote (1 (2 \"x\") :k))")
	e1, err := a.analyze(Expression, form)
	require.NoError(t, err)
	e2, err := a.analyze(Expression, readForm(t, "(quote (1 (2 \"x\") :k))"))
	require.NoError(t, err)
	c1, ok := e1.(*ConstantExpr)
	require.True(t, ok)
	c2, ok := e2.(*ConstantExpr)
	require.True(t, ok)
	assert.Equal(t, c1.Index, c2.Index)
	assert.Equal(t, 1, a.unit.Consts.Len())
}

func TestShadowing(t *testing.T) {
	tests := []struct {
		expr   string
		result string
	}{
		{"(let [x 1] (let [x 2] x))", "2"},
		{"(let [x 1] [(let [x 2] x) x])", "[2 1]"},
		{"(let [x 1 x (+ x 1)] x)", "2"},
		{"(let [x 1] ((fn [x] x) 5))", "5"},
		{"(let [x 1] ((fn [] (let [x 3] x))) x)", "1"},
	}
	for _, mode := range modes {
		c, _ := newTestCompiler(t, mode)
		for _, test := range tests {
			v, err := evalString(t, c, test.expr)
			if assert.NoError(t, err, "%s %s", mode, test.expr) {
				assert.Equal(t, test.result, lang.PrStr(v), "%s %s", mode, test.expr)
			}
		}
	}

	c, _ := newTestCompiler(t, ModeCompile)
	outer := analyzeString(t, c, "(let [x 1] (let [x 2] x))").(*LetExpr)
	inner := single(t, outer.Body).(*LetExpr)
	ref := single(t, inner.Body).(*LocalBindingExpr)
	assert.Equal(t, inner.Bindings[0].ID, ref.ID)
	assert.NotEqual(t, outer.Bindings[0].ID, ref.ID)

	_, err := c.Analyze(readForm(t, "(do (let [y 1] y) y)"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to resolve symbol: y")
}

func TestArityDispatch(t *testing.T) {
	const def = "(def f (fn ([a] :a1) ([a b c] :a3) ([a b c d & more] [:var (count more)])))"
	calls := []struct {
		call   string
		result string
	}{
		{"(f)", ""},
		{"(f 1)", ":a1"},
		{"(f 1 2)", ""},
		{"(f 1 2 3)", ":a3"},
		{"(f 1 2 3 4)", "[:var 0]"},
		{"(f 1 2 3 4 5 6 7 8 9 10)", "[:var 6]"},
		{"(apply f (range 10))", "[:var 6]"},
	}
	for _, mode := range modes {
		c, _ := newTestCompiler(t, mode)
		_, err := evalString(t, c, def)
		require.NoError(t, err)
		for _, test := range calls {
			v, err := evalString(t, c, test.call)
			if test.result == "" {
				var arity *lang.WrongArityError
				if assert.ErrorAs(t, err, &arity, "%s %s", mode, test.call) {
					assert.Contains(t, arity.Error(), "Wrong number of args")
				}
				continue
			}
			if assert.NoError(t, err, "%s %s", mode, test.call) {
				assert.Equal(t, test.result, lang.PrStr(v), "%s %s", mode, test.call)
			}
		}
	}
}

func TestBadArities(t *testing.T) {
	tests := []struct {
		expr string
		msg  string
	}{
		{"(fn ([a] 1) ([b] 2))", "Can't have 2 overloads with same arity"},
		{"(fn ([& a] 1) ([b & c] 2))", "Can't have more than 1 variadic overload"},
		{"(fn ([a b c] 1) ([b & c] 2))", "Can't have fixed arity function with more params than variadic function"},
		{"(fn [a & b c] 1)", "Invalid parameter list"},
	}
	c, _ := newTestCompiler(t, ModeCompile)
	for _, test := range tests {
		_, err := evalString(t, c, test.expr)
		var perr *ParseError
		if assert.ErrorAs(t, err, &perr, test.expr) {
			assert.Contains(t, perr.Error(), test.msg)
		}
	}
}

func TestRecurPromotion(t *testing.T) {
	const src = `(loop [i (int 1) n 0]
	               (if (< n 2)
	                 (recur (* i 3000000000) (inc n))
	                 i))`
	for _, mode := range modes {
		c, warnings := newTestCompiler(t, mode)
		v, err := evalString(t, c, src)
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(9000000000000000000), v, mode.String())
		assert.Empty(t, warnings.Warnings())

		v, err = evalString(t, c, "(loop [i (int 5)] (if (< i 6) (recur (inc i)) i))")
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(6), v, mode.String())
	}

	c, _ := newTestCompiler(t, ModeCompile)
	loop := analyzeString(t, c, src).(*LetExpr)
	require.True(t, loop.Loop)
	i := loop.unit.Binding(loop.Bindings[0].ID)
	assert.Equal(t, host.Long, i.Prim)
}

func TestRecurBoxing(t *testing.T) {
	c, warnings := newTestCompiler(t, ModeCompile)
	v, err := evalString(t, c, `(loop [x 1] (if (= x 1) (recur "done") x))`)
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	ws := warnings.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, WarnRecur, ws[0].Kind)
	assert.Contains(t, ws[0].Message, "recur arg for primitive local: x")
}

func TestRecurNarrowing(t *testing.T) {
	for _, mode := range modes {
		c, warnings := newTestCompiler(t, mode)
		_, err := evalString(t, c, "(defn halve [^long n] (if (> n 10) n (recur 20.0)))")
		require.NoError(t, err, mode.String())
		ws := warnings.Warnings()
		require.Len(t, ws, 1, mode.String())
		assert.Equal(t, WarnNarrowing, ws[0].Kind)
		assert.Contains(t, ws[0].Message, "recur arg for primitive local: n is not matching primitive")

		v, err := evalString(t, c, "(halve 1)")
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(20), v, mode.String())
	}
}

func TestIfTypeUnification(t *testing.T) {
	c, _ := newTestCompiler(t, ModeCompile)
	typed := analyzeString(t, c, "(if true 1 2)").(*IfExpr)
	assert.True(t, typed.HasType())
	assert.Equal(t, host.Long, typed.Type())

	untyped := analyzeString(t, c, `(if true 1 "s")`).(*IfExpr)
	assert.False(t, untyped.HasType())
	assert.NotPanics(t, func() { untyped.Type() })

	doubles := analyzeString(t, c, "(if false 1.5 2.5)").(*IfExpr)
	assert.True(t, doubles.HasType())
	assert.Equal(t, host.Double, doubles.Type())

	for _, mode := range modes {
		c, _ := newTestCompiler(t, mode)
		v, err := evalString(t, c, `(let [t false] (if t 1 "s"))`)
		require.NoError(t, err)
		assert.Equal(t, "s", v)
	}
}

func TestIntrinsicTransparency(t *testing.T) {
	edges := []int64{0, -1, 1, 2, 63, 64, math.MaxInt64, math.MinInt64}
	ops := []string{
		"+", "-", "*", "quot", "rem",
		"unchecked-add", "unchecked-subtract", "unchecked-multiply",
		"bit-and", "bit-or", "bit-xor",
		"bit-shift-left", "bit-shift-right", "unsigned-bit-shift-right",
		"<", "<=", ">", ">=", "==", "max", "min",
	}
	type outcome struct {
		val string
		err string
	}
	run := func(c *Compiler, form any) outcome {
		v, err := c.Eval(form)
		if err != nil {
			return outcome{err: err.Error()}
		}
		return outcome{val: lang.PrStr(v)}
	}
	intrinsic, _ := newTestCompiler(t, ModeCompile)
	general, _ := newTestCompiler(t, ModeCompile, WithIntrinsics(false))
	interp, _ := newTestCompiler(t, ModeInterpret)
	x, y := symNamed("x"), symNamed("y")
	for _, name := range ops {
		for _, a := range edges {
			for _, b := range edges {
				bindings := lang.NewVector(x, a, y, b)
				inlined := lang.NewList(letSym, bindings, lang.NewList(symNamed(name), x, y))
				boxed := lang.NewList(letSym, bindings,
					lang.NewList(symNamed("apply"), symNamed(name), lang.NewList(symNamed("list"), x, y)))
				want := run(intrinsic, inlined)
				assert.Equal(t, want, run(general, inlined), "(%s %d %d) without intrinsics", name, a, b)
				assert.Equal(t, want, run(interp, inlined), "(%s %d %d) interpreted", name, a, b)
				assert.Equal(t, want, run(intrinsic, boxed), "(%s %d %d) boxed", name, a, b)
			}
		}
	}
}

func TestIntrinsicOverflow(t *testing.T) {
	for _, mode := range modes {
		c, _ := newTestCompiler(t, mode)
		_, err := evalString(t, c, "(let [x 9223372036854775807] (+ x 1))")
		var arith *lang.ArithmeticError
		assert.ErrorAs(t, err, &arith, mode.String())

		v, err := evalString(t, c, "(let [x 9223372036854775807] (unchecked-add x 1))")
		require.NoError(t, err)
		assert.Equal(t, int64(math.MinInt64), v)

		v, err = evalString(t, c, "(let [x 1 n 65] (bit-shift-left x n))")
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
	}
}

func TestIntShiftIntrinsics(t *testing.T) {
	tests := []struct {
		expr string
		want int32
	}{
		{"(let [x (int 1) n (int 33)] (lang.Numbers/shiftLeftInt x n))", 2},
		{"(let [x (int -8) n (int 1)] (lang.Numbers/shiftRightInt x n))", -4},
		{"(let [x (int -1) n (int 28)] (lang.Numbers/unsignedShiftRightInt x n))", 15},
	}
	compilers := map[string]*Compiler{}
	compilers["intrinsic"], _ = newTestCompiler(t, ModeCompile)
	compilers["general"], _ = newTestCompiler(t, ModeCompile, WithIntrinsics(false))
	compilers["interpret"], _ = newTestCompiler(t, ModeInterpret)
	for _, test := range tests {
		for name, c := range compilers {
			v, err := evalString(t, c, test.expr)
			require.NoError(t, err, "%s %s", name, test.expr)
			assert.Equal(t, test.want, v, "%s %s", name, test.expr)
		}
		let := analyzeString(t, compilers["intrinsic"], test.expr).(*LetExpr)
		call, ok := single(t, let.Body).(*StaticMethodExpr)
		require.True(t, ok, test.expr)
		assert.NotEmpty(t, call.value, test.expr)
	}
}

func TestUncheckedMath(t *testing.T) {
	for _, mode := range modes {
		c, warnings := newTestCompiler(t, mode)
		_, err := evalString(t, c, "(set! *unchecked-math* true)")
		require.NoError(t, err)
		v, err := evalString(t, c, "(let [x 9223372036854775807] (+ x 1))")
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(math.MinInt64), v)

		_, err = evalString(t, c, "(set! *unchecked-math* :warn-on-boxed)")
		require.NoError(t, err)
		_, err = evalString(t, c, "(fn [a] (+ a 1))")
		require.NoError(t, err)
		ws := warnings.Warnings()
		require.NotEmpty(t, ws)
		assert.Equal(t, WarnBoxedMath, ws[len(ws)-1].Kind)
	}
}

func TestEndToEnd(t *testing.T) {
	const src = "(let [x 10 y (+ x 5)] (if (> y 12) :big :small))"
	c, _ := newTestCompiler(t, ModeCompile)
	let := analyzeString(t, c, src).(*LetExpr)
	require.Len(t, let.Bindings, 2)
	y := let.unit.Binding(let.Bindings[1].ID)
	assert.Equal(t, "y", y.Sym.Name)
	assert.Equal(t, host.Long, y.Prim)
	_, ok := single(t, let.Body).(*IfExpr)
	assert.True(t, ok)

	for _, mode := range modes {
		c, _ := newTestCompiler(t, mode)
		v, err := evalString(t, c, src)
		require.NoError(t, err, mode.String())
		assert.Equal(t, lang.Kw("big"), v, mode.String())
	}
}

func closedNames(o *ObjExpr) []string {
	var names []string
	for _, b := range o.Closed() {
		names = append(names, b.Sym.Name)
	}
	return names
}

func TestClosureCapture(t *testing.T) {
	c, _ := newTestCompiler(t, ModeCompile)
	let := analyzeString(t, c, "(let [outer-var 1] (fn [] (fn [] outer-var)))").(*LetExpr)
	outer := single(t, let.Body).(*FnExpr)
	inner := single(t, outer.Unit.Methods[0].Body).(*FnExpr)
	assert.Equal(t, []string{"outer-var"}, closedNames(inner.Unit))
	assert.Empty(t, closedNames(outer.Unit))
	require.Len(t, outer.Unit.Captures(), 1)
	assert.False(t, outer.Unit.ClosesOver(let.Bindings[0].ID))
	assert.True(t, inner.Unit.ClosesOver(let.Bindings[0].ID))

	let = analyzeString(t, c, "(let [a 1 b 2] (fn [] [b a (fn [] a)]))").(*LetExpr)
	fn := single(t, let.Body).(*FnExpr)
	assert.Equal(t, []string{"b", "a"}, closedNames(fn.Unit))

	for _, mode := range modes {
		c, _ := newTestCompiler(t, mode)
		v, err := evalString(t, c, "(let [outer-var 7] (((fn [] (fn [] outer-var)))))")
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)
	}
}

func TestFunctionUnitCompiledOnce(t *testing.T) {
	c, _ := newTestCompiler(t, ModeCompile)
	_, err := evalString(t, c, "(def make (fn [n] (fn [] n)))")
	require.NoError(t, err)
	before := len(c.Module().Types())
	for i := 0; i < 3; i++ {
		v, err := evalString(t, c, "((make 4))")
		require.NoError(t, err)
		assert.Equal(t, int64(4), v)
	}
	// each top-level form adds its own class only
	assert.Equal(t, before+3, len(c.Module().Types()))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr string
		msg  string
	}{
		{"(if)", "Too few arguments to if"},
		{"(if 1 2 3 4)", "Too many arguments to if"},
		{"(let [1 2] 1)", "Bad binding form"},
		{"(let [x] x)", "expected matched symbol expression pairs"},
		{"(recur 1)", "Can only recur from tail position"},
		{"(fn [x] (inc (recur x)))", "Can only recur from tail position"},
		{"(def)", "Too few arguments to def"},
		{"undefined-thing", "Unable to resolve symbol: undefined-thing"},
		{"(quote)", "Wrong number of args (0) passed to quote"},
		{"(foo/bar)", "No such namespace: foo"},
	}
	c, _ := newTestCompiler(t, ModeCompile)
	for _, test := range tests {
		_, err := c.LoadString("bad.clj", test.expr)
		var perr *ParseError
		if assert.ErrorAs(t, err, &perr, test.expr) {
			assert.Contains(t, perr.Error(), test.msg, test.expr)
			assert.Equal(t, "bad.clj", perr.File(), test.expr)
			assert.Equal(t, 1, perr.Line(), test.expr)
		}
	}
}

func TestReflectionWarnings(t *testing.T) {
	c, warnings := newTestCompiler(t, ModeCompile, WithWarnOnReflection(true))
	_, err := evalString(t, c, "(fn [s] (.toUpperCase s))")
	require.NoError(t, err)
	ws := warnings.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, WarnReflection, ws[0].Kind)
	assert.Contains(t, ws[0].String(), "Reflection warning")

	warnings.Reset()
	_, err = evalString(t, c, "(fn [^String s] (.toUpperCase s))")
	require.NoError(t, err)
	assert.Empty(t, warnings.Warnings())

	warnings.Reset()
	_, err = evalString(t, c, "(fn [s] (.toUpperCase s) (undefined-thing))")
	require.Error(t, err)
	assert.Empty(t, warnings.Warnings(), "warnings of failed analysis are dropped")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("interpret")
	require.NoError(t, err)
	assert.Equal(t, ModeInterpret, m)
	m, err = ParseMode("Compile")
	require.NoError(t, err)
	assert.Equal(t, ModeCompile, m)
	_, err = ParseMode("jit")
	assert.Error(t, err)
}

func TestDisassemble(t *testing.T) {
	c, _ := newTestCompiler(t, ModeCompile)
	var buf bytes.Buffer
	err := c.Disassemble(&buf, readForm(t, "(let [x 1] (fn [y] (+ x y)))"))
	require.NoError(t, err)
	listing := buf.String()
	assert.Contains(t, listing, "user$eval__")
	assert.Contains(t, listing, "user$fn__")
}
