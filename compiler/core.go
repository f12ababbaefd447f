package compiler

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
)

// CoreNS is the namespace holding the builtin functions and macros.  Its
// Vars are visible from every namespace.
const CoreNS = "eclj.core"

type coreFn struct {
	name    string
	formals []string
	fn      func(c *Compiler, args []any) (any, error)
}

// formals lists parameter names.  A parameter following "&" receives the
// remaining arguments.
func formals(names ...string) []string {
	return names
}

func arity(formals []string) (min, max int) {
	for i, name := range formals {
		if name == "&" {
			return i, lang.Variadic
		}
	}
	return len(formals), len(formals)
}

func arglists(formals []string) *lang.List {
	params := make([]any, len(formals))
	for i, name := range formals {
		params[i] = symNamed(name)
	}
	return lang.NewList(lang.NewVector(params...))
}

var coreFns []*coreFn

func init() {
	coreFns = []*coreFn{
		{"=", formals("x", "&", "more"), builtinEqual},
		{"not=", formals("x", "&", "more"), builtinNotEqual},
		{"identical?", formals("x", "y"), builtinIdentical},
		{"not", formals("x"), builtinNot},
		{"identity", formals("x"), builtinIdentity},
		{"list", formals("&", "items"), builtinList},
		{"list*", formals("&", "args"), builtinListStar},
		{"vector", formals("&", "items"), builtinVector},
		{"vec", formals("coll"), builtinVec},
		{"hash-map", formals("&", "keyvals"), builtinHashMap},
		{"hash-set", formals("&", "keys"), builtinHashSet},
		{"first", formals("coll"), builtinFirst},
		{"second", formals("coll"), builtinSecond},
		{"next", formals("coll"), builtinNext},
		{"rest", formals("coll"), builtinRest},
		{"cons", formals("x", "seq"), builtinCons},
		{"conj", formals("coll", "&", "xs"), builtinConj},
		{"count", formals("coll"), builtinCount},
		{"nth", formals("coll", "index", "&", "not-found"), builtinNth},
		{"seq", formals("coll"), builtinSeq},
		{"get", formals("map", "key", "&", "not-found"), builtinGet},
		{"assoc", formals("map", "key", "val", "&", "kvs"), builtinAssoc},
		{"dissoc", formals("map", "&", "keys"), builtinDissoc},
		{"contains?", formals("coll", "key"), builtinContains},
		{"keys", formals("map"), builtinKeys},
		{"vals", formals("map"), builtinVals},
		{"concat", formals("&", "colls"), builtinConcat},
		{"range", formals("&", "args"), builtinRange},
		{"reduce", formals("f", "&", "args"), builtinReduce},
		{"map", formals("f", "coll", "&", "colls"), builtinMap},
		{"filter", formals("pred", "coll"), builtinFilter},
		{"into", formals("to", "from"), builtinInto},
		{"apply", formals("f", "&", "args"), builtinApply},
		{"str", formals("&", "xs"), builtinStr},
		{"pr-str", formals("&", "xs"), builtinPrStr},
		{"prn", formals("&", "xs"), builtinPrn},
		{"println", formals("&", "xs"), builtinPrintln},
		{"print", formals("&", "xs"), builtinPrint},
		{"ex-info", formals("msg", "map", "&", "cause"), builtinExInfo},
		{"ex-data", formals("ex"), builtinExData},
		{"ex-message", formals("ex"), builtinExMessage},
		{"gensym", formals("&", "prefix"), builtinGensym},
		{"type", formals("x"), builtinClass},
		{"class", formals("x"), builtinClass},
		{"instance?", formals("c", "x"), builtinInstance},
		{"keyword", formals("name", "&", "more"), builtinKeyword},
		{"symbol", formals("name", "&", "more"), builtinSymbol},
		{"name", formals("x"), builtinName},
		{"namespace", formals("x"), builtinNamespace},
		{"nil?", formals("x"), predicate(func(x any) bool { return x == nil })},
		{"some?", formals("x"), predicate(func(x any) bool { return x != nil })},
		{"true?", formals("x"), predicate(func(x any) bool { return x == true })},
		{"false?", formals("x"), predicate(func(x any) bool { return x == false })},
		{"number?", formals("x"), predicate(lang.IsNumber)},
		{"string?", formals("x"), predicate(isType[string])},
		{"keyword?", formals("x"), predicate(isType[*lang.Keyword])},
		{"symbol?", formals("x"), predicate(isType[*lang.Symbol])},
		{"fn?", formals("x"), predicate(isFn)},
		{"vector?", formals("x"), predicate(isType[*lang.Vector])},
		{"map?", formals("x"), predicate(isType[*lang.Map])},
		{"set?", formals("x"), predicate(isType[*lang.Set])},
		{"seq?", formals("x"), predicate(isSeq)},
		{"satisfies?", formals("protocol", "x"), builtinSatisfies},
		{"extends?", formals("protocol", "class"), builtinExtends},
		{"extend", formals("class", "&", "proto+mmaps"), builtinExtend},
		{"deref", formals("ref"), builtinDeref},
		{"var-get", formals("var"), builtinDeref},
		{"meta", formals("x"), builtinMeta},
		{"with-meta", formals("x", "meta"), builtinWithMeta},
		{"macroexpand-1", formals("form"), builtinMacroexpand1},
		{"macroexpand", formals("form"), builtinMacroexpand},
		{"eval", formals("form"), builtinEval},
		{"in-ns", formals("name"), builtinInNS},
		{"long-array", formals("size-or-seq"), builtinLongArray},
		{"double-array", formals("size-or-seq"), builtinDoubleArray},
		{"object-array", formals("size-or-seq"), builtinObjectArray},
	}
}

// numericFormals gives the parameters of the boxed fallbacks of inlined
// functions.
var numericFormals = map[string][]string{
	"+":   formals("&", "xs"),
	"*":   formals("&", "xs"),
	"-":   formals("x", "&", "ys"),
	"/":   formals("x", "&", "ys"),
	"max": formals("x", "&", "ys"),
	"min": formals("x", "&", "ys"),

	"bit-and": formals("x", "y", "&", "more"),
	"bit-or":  formals("x", "y", "&", "more"),
	"bit-xor": formals("x", "y", "&", "more"),

	"<":  formals("x", "&", "ys"),
	"<=": formals("x", "&", "ys"),
	">":  formals("x", "&", "ys"),
	">=": formals("x", "&", "ys"),
	"==": formals("x", "&", "ys"),

	"unchecked-add":            formals("x", "y"),
	"unchecked-subtract":       formals("x", "y"),
	"unchecked-multiply":       formals("x", "y"),
	"quot":                     formals("num", "div"),
	"rem":                      formals("num", "div"),
	"bit-shift-left":           formals("x", "n"),
	"bit-shift-right":          formals("x", "n"),
	"unsigned-bit-shift-right": formals("x", "n"),
	"aget":                     formals("array", "idx"),
	"aset":                     formals("array", "idx", "val"),
}

var comparisons = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true}

// numericFn returns the function bound to the Var of an inlined name.  It
// resolves the host method from the runtime classes of its arguments.
func numericFn(name string, op inlineOp) ([]string, func(c *Compiler, args []any) (any, error)) {
	fs, ok := numericFormals[name]
	if !ok {
		fs = formals("x")
	}
	call := func(args ...any) (any, error) {
		return host.InvokeStatic(op.class, op.method, args)
	}
	switch {
	case comparisons[name]:
		return fs, func(c *Compiler, args []any) (any, error) {
			for i := 1; i < len(args); i++ {
				ok, err := call(args[i-1], args[i])
				if err != nil || ok != true {
					return false, err
				}
			}
			return true, nil
		}
	case op.fold:
		return fs, func(c *Compiler, args []any) (any, error) {
			switch {
			case len(args) == 0 && name == "+":
				return int64(0), nil
			case len(args) == 0 && name == "*":
				return int64(1), nil
			case len(args) == 1 && name == "-":
				return call(args[0])
			case len(args) == 1 && name == "/":
				return call(int64(1), args[0])
			case len(args) == 1:
				if !lang.IsNumber(args[0]) {
					return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Number"}
				}
				return args[0], nil
			}
			acc := args[0]
			for _, x := range args[1:] {
				v, err := call(acc, x)
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		}
	}
	return fs, func(c *Compiler, args []any) (any, error) {
		return call(args...)
	}
}

// defineCore populates the core namespace.
func (c *Compiler) defineCore() {
	ns := c.core
	for _, f := range coreFns {
		c.defineFn(ns, f.name, f.formals, f.fn)
	}
	for name, op := range inlines {
		fs, fn := numericFn(name, op)
		c.defineFn(ns, name, fs, fn)
	}
	for _, m := range coreMacros {
		m := m
		v := c.defineFn(ns, m.name, m.formals, func(c *Compiler, args []any) (any, error) {
			return m.fn(c, args)
		})
		v.SetMeta(v.Meta().Assoc(lang.KwMacro, true))
	}
	c.warnOnReflection = c.defineDynamic(ns, "*warn-on-reflection*", false)
	c.uncheckedMath = c.defineDynamic(ns, "*unchecked-math*", false)
	c.nsVar = c.defineDynamic(ns, "*ns*", c.rt.NS())
	c.fileVar = c.defineDynamic(ns, "*file*", nil)
}

func (c *Compiler) defineFn(ns *lang.Namespace, name string, fs []string, fn func(c *Compiler, args []any) (any, error)) *lang.Var {
	min, max := arity(fs)
	v := ns.Intern(name)
	v.BindRoot(lang.NewBuiltin(name, min, max, func(args []any) (any, error) {
		return fn(c, args)
	}))
	v.SetMeta(lang.NewMap(
		lang.KwName, symNamed(name),
		lang.KwNs, ns.Name,
		lang.KwArglists, arglists(fs),
	))
	return v
}

func (c *Compiler) defineDynamic(ns *lang.Namespace, name string, val any) *lang.Var {
	v := ns.Intern(name)
	v.BindRoot(val)
	v.SetMeta(lang.NewMap(lang.KwName, symNamed(name), lang.KwDynamic, true))
	return v
}

func predicate(fn func(x any) bool) func(c *Compiler, args []any) (any, error) {
	return func(c *Compiler, args []any) (any, error) {
		return fn(args[0]), nil
	}
}

func isType[T any](x any) bool {
	_, ok := x.(T)
	return ok
}

func isFn(x any) bool {
	switch x.(type) {
	case *lang.Keyword, *lang.Vector, *lang.Map, *lang.Set, *lang.Var, *lang.TypeDef:
		return false
	}
	_, ok := x.(lang.IFn)
	return ok
}

func isSeq(x any) bool {
	switch x := x.(type) {
	case *lang.List:
		return true
	case lang.Seq:
		return x != nil
	}
	return false
}

// seqList returns the elements of coll as a list, or nil when it is empty.
func seqList(coll any) (any, error) {
	items, err := lang.SeqItems(coll)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return lang.NewList(items...), nil
}

func builtinEqual(c *Compiler, args []any) (any, error) {
	for _, x := range args[1:] {
		if !lang.Equal(args[0], x) {
			return false, nil
		}
	}
	return true, nil
}

func builtinNotEqual(c *Compiler, args []any) (any, error) {
	eq, _ := builtinEqual(c, args)
	return eq != true, nil
}

func builtinIdentical(c *Compiler, args []any) (any, error) {
	x, y := args[0], args[1]
	if x == nil || y == nil {
		return x == nil && y == nil, nil
	}
	tx := reflect.TypeOf(x)
	if tx != reflect.TypeOf(y) || !tx.Comparable() {
		return false, nil
	}
	return x == y, nil
}

func builtinNot(c *Compiler, args []any) (any, error) {
	return !lang.Truthy(args[0]), nil
}

func builtinIdentity(c *Compiler, args []any) (any, error) {
	return args[0], nil
}

func builtinList(c *Compiler, args []any) (any, error) {
	return lang.NewList(args...), nil
}

func builtinListStar(c *Compiler, args []any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	spread, err := lang.SeqItems(args[len(args)-1])
	if err != nil {
		return nil, err
	}
	items := append(append([]any{}, args[:len(args)-1]...), spread...)
	if len(items) == 0 {
		return nil, nil
	}
	return lang.NewList(items...), nil
}

func builtinVector(c *Compiler, args []any) (any, error) {
	return lang.NewVector(args...), nil
}

func builtinVec(c *Compiler, args []any) (any, error) {
	items, err := lang.SeqItems(args[0])
	if err != nil {
		return nil, err
	}
	return lang.NewVector(items...), nil
}

func builtinHashMap(c *Compiler, args []any) (any, error) {
	if len(args)%2 != 0 {
		return nil, &lang.IllegalArgumentError{Msg: "No value supplied for key: " + lang.PrStr(args[len(args)-1])}
	}
	return lang.NewMap(args...), nil
}

func builtinHashSet(c *Compiler, args []any) (any, error) {
	return lang.NewSet(args...), nil
}

func builtinFirst(c *Compiler, args []any) (any, error) {
	return lang.First(args[0]), nil
}

func builtinSecond(c *Compiler, args []any) (any, error) {
	return lang.Second(args[0]), nil
}

func builtinNext(c *Compiler, args []any) (any, error) {
	if s := lang.Next(args[0]); s != nil {
		return s, nil
	}
	return nil, nil
}

func builtinRest(c *Compiler, args []any) (any, error) {
	return lang.Rest(args[0]), nil
}

func builtinCons(c *Compiler, args []any) (any, error) {
	return lang.Cons(args[0], args[1])
}

func builtinConj(c *Compiler, args []any) (any, error) {
	coll := args[0]
	for _, x := range args[1:] {
		var err error
		if coll, err = lang.Conj(coll, x); err != nil {
			return nil, err
		}
	}
	return coll, nil
}

func builtinCount(c *Compiler, args []any) (any, error) {
	n, err := lang.Count(args[0])
	return int64(n), err
}

func builtinNth(c *Compiler, args []any) (any, error) {
	i, ok := lang.AsInt(args[1])
	if !ok {
		return nil, &lang.IllegalArgumentError{Msg: "Index must be integer"}
	}
	x, err := lang.Nth(args[0], i)
	if err != nil && len(args) > 2 {
		return args[2], nil
	}
	return x, err
}

func builtinSeq(c *Compiler, args []any) (any, error) {
	return seqList(args[0])
}

func builtinGet(c *Compiler, args []any) (any, error) {
	var notFound any
	if len(args) > 2 {
		notFound = args[2]
	}
	return lang.Get(args[0], args[1], notFound), nil
}

func builtinAssoc(c *Compiler, args []any) (any, error) {
	if len(args)%2 != 1 {
		return nil, &lang.IllegalArgumentError{Msg: "assoc expects even number of arguments after map/vector, found odd number"}
	}
	coll := args[0]
	for i := 1; i < len(args); i += 2 {
		var err error
		if coll, err = lang.Assoc(coll, args[i], args[i+1]); err != nil {
			return nil, err
		}
	}
	return coll, nil
}

func builtinDissoc(c *Compiler, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	m, ok := args[0].(*lang.Map)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Map"}
	}
	for _, k := range args[1:] {
		m = m.Dissoc(k)
	}
	return m, nil
}

func builtinContains(c *Compiler, args []any) (any, error) {
	switch coll := args[0].(type) {
	case nil:
		return false, nil
	case *lang.Map:
		return coll.Contains(args[1]), nil
	case *lang.Set:
		return coll.Contains(args[1]), nil
	case *lang.Vector:
		i, ok := lang.AsInt(args[1])
		return ok && i >= 0 && i < coll.Count(), nil
	case *lang.Instance:
		_, ok := coll.Lookup(args[1])
		return ok, nil
	}
	return nil, &lang.IllegalArgumentError{Msg: "contains? not supported on type: " + lang.TypeName(args[0])}
}

func builtinKeys(c *Compiler, args []any) (any, error) {
	switch m := args[0].(type) {
	case nil:
		return nil, nil
	case *lang.Map:
		return seqList(m.Keys())
	}
	return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Map"}
}

func builtinVals(c *Compiler, args []any) (any, error) {
	switch m := args[0].(type) {
	case nil:
		return nil, nil
	case *lang.Map:
		return seqList(m.Vals())
	}
	return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Map"}
}

func builtinConcat(c *Compiler, args []any) (any, error) {
	l, err := lang.Concat(args...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func builtinRange(c *Compiler, args []any) (any, error) {
	bounds := make([]int64, len(args))
	for i, x := range args {
		n, ok := x.(int64)
		if !ok {
			return nil, &lang.IllegalArgumentError{Msg: "range expects long arguments, got: " + lang.TypeName(x)}
		}
		bounds[i] = n
	}
	var start, end, step int64 = 0, 0, 1
	switch len(bounds) {
	case 1:
		end = bounds[0]
	case 2:
		start, end = bounds[0], bounds[1]
	case 3:
		start, end, step = bounds[0], bounds[1], bounds[2]
	default:
		return nil, &lang.WrongArityError{Name: "range", Count: len(args)}
	}
	if step == 0 {
		return nil, &lang.IllegalArgumentError{Msg: "range step must not be zero"}
	}
	var items []any
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		items = append(items, i)
	}
	return lang.NewList(items...), nil
}

func builtinReduce(c *Compiler, args []any) (any, error) {
	f := args[0]
	var acc any
	var coll any
	switch len(args) {
	case 2:
		items, err := lang.SeqItems(args[1])
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return lang.Invoke(f)
		}
		acc, coll = items[0], items[1:]
	case 3:
		acc, coll = args[1], args[2]
	default:
		return nil, &lang.WrongArityError{Name: "reduce", Count: len(args)}
	}
	items, err := lang.SeqItems(coll)
	if err != nil {
		return nil, err
	}
	for _, x := range items {
		if acc, err = lang.Invoke(f, acc, x); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func builtinMap(c *Compiler, args []any) (any, error) {
	colls := make([][]any, len(args)-1)
	n := -1
	for i, coll := range args[1:] {
		items, err := lang.SeqItems(coll)
		if err != nil {
			return nil, err
		}
		colls[i] = items
		if n < 0 || len(items) < n {
			n = len(items)
		}
	}
	out := make([]any, n)
	for i := range out {
		fargs := make([]any, len(colls))
		for j := range colls {
			fargs[j] = colls[j][i]
		}
		v, err := lang.Invoke(args[0], fargs...)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return lang.NewList(out...), nil
}

func builtinFilter(c *Compiler, args []any) (any, error) {
	items, err := lang.SeqItems(args[1])
	if err != nil {
		return nil, err
	}
	var out []any
	for _, x := range items {
		keep, err := lang.Invoke(args[0], x)
		if err != nil {
			return nil, err
		}
		if lang.Truthy(keep) {
			out = append(out, x)
		}
	}
	return lang.NewList(out...), nil
}

func builtinInto(c *Compiler, args []any) (any, error) {
	items, err := lang.SeqItems(args[1])
	if err != nil {
		return nil, err
	}
	return builtinConj(c, append([]any{args[0]}, items...))
}

func builtinApply(c *Compiler, args []any) (any, error) {
	return lang.Apply(args[0], args[1:]...)
}

func builtinStr(c *Compiler, args []any) (any, error) {
	var sb strings.Builder
	for _, x := range args {
		sb.WriteString(lang.Str(x))
	}
	return sb.String(), nil
}

func joinWith(args []any, fn func(any) string) string {
	parts := make([]string, len(args))
	for i, x := range args {
		parts[i] = fn(x)
	}
	return strings.Join(parts, " ")
}

func builtinPrStr(c *Compiler, args []any) (any, error) {
	return joinWith(args, lang.PrStr), nil
}

func (c *Compiler) print(s string) error {
	_, err := io.WriteString(c.rt.Stdout, s)
	return err
}

func builtinPrn(c *Compiler, args []any) (any, error) {
	return nil, c.print(joinWith(args, lang.PrStr) + "\n")
}

func builtinPrintln(c *Compiler, args []any) (any, error) {
	return nil, c.print(joinWith(args, lang.Str) + "\n")
}

func builtinPrint(c *Compiler, args []any) (any, error) {
	return nil, c.print(joinWith(args, lang.Str))
}

func builtinExInfo(c *Compiler, args []any) (any, error) {
	msg, ok := args[0].(string)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "String"}
	}
	data, ok := args[1].(*lang.Map)
	if !ok && args[1] != nil {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[1]), To: "Map"}
	}
	var cause error
	if len(args) > 2 {
		if cause, ok = args[2].(error); !ok && args[2] != nil {
			return nil, &lang.ClassCastError{From: lang.TypeName(args[2]), To: "Throwable"}
		}
	}
	return lang.NewExceptionInfo(msg, data, cause), nil
}

func builtinExData(c *Compiler, args []any) (any, error) {
	if ex, ok := args[0].(*lang.ExceptionInfo); ok {
		return ex.Data, nil
	}
	return nil, nil
}

func builtinExMessage(c *Compiler, args []any) (any, error) {
	switch ex := args[0].(type) {
	case *lang.ExceptionInfo:
		return ex.Msg, nil
	case error:
		return ex.Error(), nil
	}
	return nil, nil
}

func builtinGensym(c *Compiler, args []any) (any, error) {
	prefix := "G__"
	if len(args) > 0 {
		prefix = lang.Str(args[0])
	}
	return c.rt.GenSym(prefix), nil
}

func builtinClass(c *Compiler, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return host.ClassOfValue(args[0]), nil
}

func builtinInstance(c *Compiler, args []any) (any, error) {
	class, ok := args[0].(*host.Class)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Class"}
	}
	return class.IsInstance(args[1]), nil
}

func nameParts(fn string, args []any) (string, string, error) {
	for _, x := range args {
		if _, ok := x.(string); !ok && x != nil {
			return "", "", &lang.IllegalArgumentError{Msg: fmt.Sprintf("%s expects string arguments, got: %s", fn, lang.TypeName(x))}
		}
	}
	if len(args) == 1 {
		return "", lang.Str(args[0]), nil
	}
	return lang.Str(args[0]), lang.Str(args[1]), nil
}

func builtinKeyword(c *Compiler, args []any) (any, error) {
	if len(args) == 1 {
		switch x := args[0].(type) {
		case *lang.Keyword:
			return x, nil
		case *lang.Symbol:
			return lang.Intern(x.Ns, x.Name), nil
		case string:
			return lang.Kw(x), nil
		}
	}
	if len(args) > 2 {
		return nil, &lang.WrongArityError{Name: "keyword", Count: len(args)}
	}
	ns, name, err := nameParts("keyword", args)
	if err != nil {
		return nil, err
	}
	return lang.Intern(ns, name), nil
}

func builtinSymbol(c *Compiler, args []any) (any, error) {
	if len(args) == 1 {
		switch x := args[0].(type) {
		case *lang.Symbol:
			return x, nil
		case *lang.Keyword:
			return lang.NewSymbol(x.Ns, x.Name), nil
		case string:
			return lang.ParseSymbol(x), nil
		}
	}
	if len(args) > 2 {
		return nil, &lang.WrongArityError{Name: "symbol", Count: len(args)}
	}
	ns, name, err := nameParts("symbol", args)
	if err != nil {
		return nil, err
	}
	return lang.NewSymbol(ns, name), nil
}

func builtinName(c *Compiler, args []any) (any, error) {
	switch x := args[0].(type) {
	case *lang.Keyword:
		return x.Name, nil
	case *lang.Symbol:
		return x.Name, nil
	case string:
		return x, nil
	}
	return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Named"}
}

func builtinNamespace(c *Compiler, args []any) (any, error) {
	var ns string
	switch x := args[0].(type) {
	case *lang.Keyword:
		ns = x.Ns
	case *lang.Symbol:
		ns = x.Ns
	default:
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Named"}
	}
	if ns == "" {
		return nil, nil
	}
	return ns, nil
}

func builtinSatisfies(c *Compiler, args []any) (any, error) {
	p, ok := args[0].(*lang.Protocol)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Protocol"}
	}
	return p.Satisfies(args[1]), nil
}

func builtinExtends(c *Compiler, args []any) (any, error) {
	p, ok := args[0].(*lang.Protocol)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Protocol"}
	}
	class, err := dispatchClass(args[1])
	if err != nil {
		return nil, err
	}
	if td, ok := class.(*lang.TypeDef); ok && td.Declares(p) {
		return true, nil
	}
	for _, m := range p.Methods {
		if _, fallback, err := p.Resolve(class, m); err != nil || fallback {
			return false, nil
		}
	}
	return true, nil
}

// dispatchClass returns the protocol dispatch key of a class value.
func dispatchClass(x any) (any, error) {
	switch c := x.(type) {
	case nil:
		return lang.NilClass, nil
	case *lang.TypeDef:
		return c, nil
	case *host.Class:
		switch {
		case c.Def != nil:
			return c.Def, nil
		case c == host.Object:
			return lang.ObjectClass, nil
		case c.Type != nil:
			return c.Type, nil
		}
	}
	return nil, &lang.IllegalArgumentError{Msg: "Can't extend protocol to: " + lang.PrStr(x)}
}

// builtinExtend registers implementations given as maps from method
// keyword to function.
func builtinExtend(c *Compiler, args []any) (any, error) {
	class, err := dispatchClass(args[0])
	if err != nil {
		return nil, err
	}
	rest := args[1:]
	if len(rest)%2 != 0 {
		return nil, &lang.IllegalArgumentError{Msg: "extend expects protocol and method map pairs"}
	}
	for i := 0; i < len(rest); i += 2 {
		p, ok := rest[i].(*lang.Protocol)
		if !ok {
			return nil, &lang.IllegalArgumentError{Msg: lang.PrStr(rest[i]) + " is not a protocol"}
		}
		mm, ok := rest[i+1].(*lang.Map)
		if !ok && rest[i+1] != nil {
			return nil, &lang.ClassCastError{From: lang.TypeName(rest[i+1]), To: "Map"}
		}
		methods := make(map[string]any, mm.Count())
		for _, k := range mm.Keys() {
			kw, ok := k.(*lang.Keyword)
			if !ok {
				return nil, &lang.IllegalArgumentError{Msg: "Method map keys must be keywords: " + lang.PrStr(k)}
			}
			methods[kw.Name] = mm.ValAt(k)
		}
		if err := p.Extend(class, methods); err != nil {
			return nil, err
		}
		c.log.WithField("protocol", p.String()).WithField("class", lang.ClassName(class)).Debug("extended protocol")
	}
	return nil, nil
}

func builtinDeref(c *Compiler, args []any) (any, error) {
	v, ok := args[0].(*lang.Var)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "IDeref"}
	}
	return v.Get(c.rt)
}

func builtinMeta(c *Compiler, args []any) (any, error) {
	if m := lang.MetaOf(args[0]); m != nil {
		return m, nil
	}
	return nil, nil
}

func builtinWithMeta(c *Compiler, args []any) (any, error) {
	x, ok := args[0].(lang.IObj)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "IObj"}
	}
	m, ok := args[1].(*lang.Map)
	if !ok && args[1] != nil {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[1]), To: "Map"}
	}
	return x.WithMeta(m), nil
}

func builtinMacroexpand1(c *Compiler, args []any) (any, error) {
	return c.Macroexpand1(args[0])
}

func builtinMacroexpand(c *Compiler, args []any) (any, error) {
	return c.Macroexpand(args[0])
}

func builtinEval(c *Compiler, args []any) (any, error) {
	return c.Eval(args[0])
}

func builtinInNS(c *Compiler, args []any) (any, error) {
	sym, ok := args[0].(*lang.Symbol)
	if !ok || sym.Ns != "" {
		return nil, &lang.ClassCastError{From: lang.TypeName(args[0]), To: "Symbol"}
	}
	ns := c.rt.Namespaces.FindOrCreate(sym.Name)
	c.rt.SetNS(ns)
	if err := c.nsVar.Set(c.rt, ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func arrayItems(x any) (int, []any, error) {
	if n, ok := x.(int64); ok {
		if n < 0 {
			return 0, nil, &lang.IllegalArgumentError{Msg: "Negative array size"}
		}
		return int(n), nil, nil
	}
	items, err := lang.SeqItems(x)
	return len(items), items, err
}

func builtinLongArray(c *Compiler, args []any) (any, error) {
	n, items, err := arrayItems(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i, x := range items {
		if out[i], err = lang.LongCast(x); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func builtinDoubleArray(c *Compiler, args []any) (any, error) {
	n, items, err := arrayItems(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, x := range items {
		if out[i], err = lang.DoubleCast(x); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func builtinObjectArray(c *Compiler, args []any) (any, error) {
	n, items, err := arrayItems(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	copy(out, items)
	return out, nil
}
