package compiler

import (
	"fmt"

	"github.com/luthersystems/eclj/lang"
)

// A macro receives the unevaluated argument forms of a call and returns the
// form replacing it.
type macroFn func(c *Compiler, args []any) (any, error)

type coreMacro struct {
	name    string
	formals []string
	fn      macroFn
}

var coreMacros = []*coreMacro{
	{"defn", formals("name", "&", "fdecl"), macroDefn},
	{"defmacro", formals("name", "&", "fdecl"), macroDefmacro},
	{"when", formals("test", "&", "body"), macroWhen},
	{"when-not", formals("test", "&", "body"), macroWhenNot},
	{"if-not", formals("test", "then", "&", "else"), macroIfNot},
	{"cond", formals("&", "clauses"), macroCond},
	{"and", formals("&", "next"), macroAnd},
	{"or", formals("&", "next"), macroOr},
	{"->", formals("x", "&", "forms"), macroThreadFirst},
	{"->>", formals("x", "&", "forms"), macroThreadLast},
	{"if-let", formals("bindings", "then", "&", "else"), macroIfLet},
	{"when-let", formals("bindings", "&", "body"), macroWhenLet},
	{"dotimes", formals("bindings", "&", "body"), macroDotimes},
	{"comment", formals("&", "body"), macroComment},
	{"declare", formals("&", "names"), macroDeclare},
	{"defprotocol", formals("name", "&", "sigs"), macroDefprotocol},
	{"extend-type", formals("t", "&", "specs"), macroExtendType},
	{"extend-protocol", formals("p", "&", "specs"), macroExtendProtocol},
	{"ns", formals("name", "&", "references"), macroNs},
}

var (
	ifSym     = symNamed("if")
	doSym     = symNamed("do")
	defSym    = symNamed("def")
	quoteSym  = symNamed("quote")
	loopSym   = symNamed("loop*")
	recurSym  = symNamed("recur")
	extendSym = symNamed("extend")
)

func symNamed(name string) *lang.Symbol {
	return lang.NewSymbol("", name)
}

func quote(x any) *lang.List {
	return lang.NewList(quoteSym, x)
}

func macroError(format string, v ...any) error {
	return &lang.IllegalArgumentError{Msg: fmt.Sprintf(format, v...)}
}

// fnDecl splits the tail of a defn into its doc string, attribute map and
// arities.
func fnDecl(name *lang.Symbol, decl []any) (*lang.Map, []any, error) {
	meta := name.Meta()
	if meta == nil {
		meta = lang.EmptyMap
	}
	if len(decl) > 0 {
		if doc, ok := decl[0].(string); ok {
			meta = meta.Assoc(lang.KwDoc, doc)
			decl = decl[1:]
		}
	}
	if len(decl) > 0 {
		if attrs, ok := decl[0].(*lang.Map); ok {
			for _, k := range attrs.Keys() {
				meta = meta.Assoc(k, attrs.ValAt(k))
			}
			decl = decl[1:]
		}
	}
	if len(decl) == 0 {
		return nil, nil, macroError("Parameter declaration missing")
	}
	var arglists []any
	if vec, ok := decl[0].(*lang.Vector); ok {
		arglists = append(arglists, vec)
	} else {
		for _, x := range decl {
			l, ok := x.(*lang.List)
			if !ok || l.Count() == 0 {
				return nil, nil, macroError("Parameter declaration %s should be a vector", lang.PrStr(x))
			}
			vec, ok := l.First().(*lang.Vector)
			if !ok {
				return nil, nil, macroError("Parameter declaration %s should be a vector", lang.PrStr(l.First()))
			}
			arglists = append(arglists, vec)
		}
	}
	meta = meta.Assoc(lang.KwArglists, quote(lang.NewList(arglists...)))
	return meta, decl, nil
}

func defnForm(args []any, macro bool) (any, error) {
	name, ok := args[0].(*lang.Symbol)
	if !ok {
		return nil, macroError("First argument to defn must be a symbol")
	}
	meta, decl, err := fnDecl(name, args[1:])
	if err != nil {
		return nil, err
	}
	if macro {
		meta = meta.Assoc(lang.KwMacro, true)
	}
	fn := lang.NewList(append([]any{fnSym, symNamed(name.Name)}, decl...)...)
	return lang.NewList(defSym, name.WithMeta(meta), fn), nil
}

func macroDefn(c *Compiler, args []any) (any, error) {
	return defnForm(args, false)
}

func macroDefmacro(c *Compiler, args []any) (any, error) {
	return defnForm(args, true)
}

func doBlock(forms []any) *lang.List {
	return lang.NewList(append([]any{doSym}, forms...)...)
}

func macroWhen(c *Compiler, args []any) (any, error) {
	return lang.NewList(ifSym, args[0], doBlock(args[1:])), nil
}

func macroWhenNot(c *Compiler, args []any) (any, error) {
	return lang.NewList(ifSym, args[0], nil, doBlock(args[1:])), nil
}

func macroIfNot(c *Compiler, args []any) (any, error) {
	if len(args) > 3 {
		return nil, macroError("if-not takes at most one else form")
	}
	var els any
	if len(args) == 3 {
		els = args[2]
	}
	return lang.NewList(ifSym, args[0], els, args[1]), nil
}

func macroCond(c *Compiler, args []any) (any, error) {
	if len(args)%2 != 0 {
		return nil, macroError("cond requires an even number of forms")
	}
	var out any
	for i := len(args) - 2; i >= 0; i -= 2 {
		out = lang.NewList(ifSym, args[i], args[i+1], out)
	}
	return out, nil
}

func macroAnd(c *Compiler, args []any) (any, error) {
	switch len(args) {
	case 0:
		return true, nil
	case 1:
		return args[0], nil
	}
	g := c.rt.GenSym("and__")
	rest := lang.NewList(append([]any{symNamed("and")}, args[1:]...)...)
	return lang.NewList(letSym, lang.NewVector(g, args[0]), lang.NewList(ifSym, g, rest, g)), nil
}

func macroOr(c *Compiler, args []any) (any, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return args[0], nil
	}
	g := c.rt.GenSym("or__")
	rest := lang.NewList(append([]any{symNamed("or")}, args[1:]...)...)
	return lang.NewList(letSym, lang.NewVector(g, args[0]), lang.NewList(ifSym, g, g, rest)), nil
}

func thread(x any, forms []any, last bool) any {
	for _, form := range forms {
		l, ok := form.(*lang.List)
		if !ok || l.Count() == 0 {
			x = lang.NewList(form, x)
			continue
		}
		items := l.Items()
		var out []any
		if last {
			out = append(append(out, items...), x)
		} else {
			out = append(append(append(out, items[0]), x), items[1:]...)
		}
		x = lang.NewList(out...).WithLoc(l.Loc())
	}
	return x
}

func macroThreadFirst(c *Compiler, args []any) (any, error) {
	return thread(args[0], args[1:], false), nil
}

func macroThreadLast(c *Compiler, args []any) (any, error) {
	return thread(args[0], args[1:], true), nil
}

// bindingPair returns the single binding of an if-let style form.
func bindingPair(macro string, form any) (any, any, error) {
	vec, ok := form.(*lang.Vector)
	if !ok || vec.Count() != 2 {
		return nil, nil, macroError("%s requires a vector for its binding with exactly 2 forms", macro)
	}
	items := vec.Items()
	return items[0], items[1], nil
}

func macroIfLet(c *Compiler, args []any) (any, error) {
	if len(args) > 3 {
		return nil, macroError("if-let takes at most one else form")
	}
	name, test, err := bindingPair("if-let", args[0])
	if err != nil {
		return nil, err
	}
	var els any
	if len(args) == 3 {
		els = args[2]
	}
	g := c.rt.GenSym("temp__")
	then := lang.NewList(letSym, lang.NewVector(name, g), args[1])
	return lang.NewList(letSym, lang.NewVector(g, test), lang.NewList(ifSym, g, then, els)), nil
}

func macroWhenLet(c *Compiler, args []any) (any, error) {
	name, test, err := bindingPair("when-let", args[0])
	if err != nil {
		return nil, err
	}
	g := c.rt.GenSym("temp__")
	then := lang.NewList(append([]any{letSym, lang.NewVector(name, g)}, args[1:]...)...)
	return lang.NewList(letSym, lang.NewVector(g, test), lang.NewList(ifSym, g, then)), nil
}

// macroDotimes counts a primitive long loop local from zero.
func macroDotimes(c *Compiler, args []any) (any, error) {
	name, count, err := bindingPair("dotimes", args[0])
	if err != nil {
		return nil, err
	}
	n := c.rt.GenSym("n__")
	step := lang.NewList(recurSym, lang.NewList(symNamed("unchecked-inc"), name))
	loop := lang.NewList(loopSym, lang.NewVector(name, int64(0)),
		lang.NewList(ifSym, lang.NewList(symNamed("<"), name, n),
			doBlock(append(append([]any(nil), args[1:]...), step))))
	return lang.NewList(letSym, lang.NewVector(n, lang.NewList(symNamed("long"), count)), loop), nil
}

func macroComment(c *Compiler, args []any) (any, error) {
	return nil, nil
}

func macroDeclare(c *Compiler, args []any) (any, error) {
	out := []any{doSym}
	for _, name := range args {
		out = append(out, lang.NewList(defSym, name))
	}
	return lang.NewList(out...), nil
}

// macroDefprotocol creates the protocol when the form is expanded and
// binds it and its method functions in the current namespace.
func macroDefprotocol(c *Compiler, args []any) (any, error) {
	name, ok := args[0].(*lang.Symbol)
	if !ok || name.Ns != "" {
		return nil, macroError("defprotocol expects a simple symbol for its name")
	}
	sigs := args[1:]
	var doc string
	if len(sigs) > 0 {
		if s, ok := sigs[0].(string); ok {
			doc, sigs = s, sigs[1:]
		}
	}
	type sig struct {
		name     *lang.Symbol
		arglists []any
		doc      string
	}
	var methods []string
	var parsed []sig
	for _, x := range sigs {
		l, ok := x.(*lang.List)
		if !ok || l.Count() < 2 {
			return nil, macroError("Malformed protocol method signature: %s", lang.PrStr(x))
		}
		items := l.Items()
		mname, ok := items[0].(*lang.Symbol)
		if !ok {
			return nil, macroError("Malformed protocol method signature: %s", lang.PrStr(x))
		}
		s := sig{name: mname}
		for _, y := range items[1:] {
			switch y := y.(type) {
			case *lang.Vector:
				if y.Count() == 0 {
					return nil, macroError("Definition of function %s in protocol %s must take at least one arg.", mname, name)
				}
				s.arglists = append(s.arglists, y)
			case string:
				s.doc = y
			default:
				return nil, macroError("Malformed protocol method signature: %s", lang.PrStr(x))
			}
		}
		methods = append(methods, mname.Name)
		parsed = append(parsed, s)
	}
	ns := c.rt.NS()
	p := lang.NewProtocol(lang.NewSymbol(ns.Name, name.Name), methods)
	pmeta := lang.NewMap()
	if doc != "" {
		pmeta = pmeta.Assoc(lang.KwDoc, doc)
	}
	out := []any{doSym, lang.NewList(defSym, name.WithMeta(pmeta), p)}
	for _, s := range parsed {
		meta := lang.NewMap(lang.KwArglists, quote(lang.NewList(s.arglists...)))
		if s.doc != "" {
			meta = meta.Assoc(lang.KwDoc, s.doc)
		}
		pf := &lang.ProtocolFn{Protocol: p, Method: s.name.Name}
		out = append(out, lang.NewList(defSym, symNamed(s.name.Name).WithMeta(meta), pf))
	}
	out = append(out, quote(name))
	c.log.WithField("protocol", p.String()).Debug("defined protocol")
	return lang.NewList(out...), nil
}

// implMap groups method definitions by name into a map from keyword to
// function form.
func implMap(specs []*lang.List) *lang.Map {
	var names []string
	arities := make(map[string][]any)
	for _, l := range specs {
		name := l.First().(*lang.Symbol).Name
		if _, ok := arities[name]; !ok {
			names = append(names, name)
		}
		arities[name] = append(arities[name], lang.NewList(l.Items()[1:]...).WithLoc(l.Loc()))
	}
	m := lang.NewMap()
	for _, name := range names {
		m = m.Assoc(lang.Intern("", name), lang.NewList(append([]any{fnSym}, arities[name]...)...))
	}
	return m
}

// splitSpecs splits a sequence of designators each followed by method
// definitions.
func splitSpecs(specs []any) ([]any, [][]*lang.List, error) {
	var heads []any
	var groups [][]*lang.List
	for _, x := range specs {
		if l, ok := x.(*lang.List); ok {
			if len(heads) == 0 {
				return nil, nil, macroError("Method definition must follow a type or protocol: %s", lang.PrStr(x))
			}
			if _, ok := l.First().(*lang.Symbol); !ok || l.Count() < 2 {
				return nil, nil, macroError("Malformed method definition: %s", lang.PrStr(x))
			}
			groups[len(groups)-1] = append(groups[len(groups)-1], l)
			continue
		}
		heads = append(heads, x)
		groups = append(groups, nil)
	}
	return heads, groups, nil
}

func macroExtendType(c *Compiler, args []any) (any, error) {
	protos, groups, err := splitSpecs(args[1:])
	if err != nil {
		return nil, err
	}
	out := []any{extendSym, args[0]}
	for i, p := range protos {
		out = append(out, p, implMap(groups[i]))
	}
	return lang.NewList(out...), nil
}

func macroExtendProtocol(c *Compiler, args []any) (any, error) {
	types, groups, err := splitSpecs(args[1:])
	if err != nil {
		return nil, err
	}
	out := []any{doSym}
	for i, t := range types {
		out = append(out, lang.NewList(extendSym, t, args[0], implMap(groups[i])))
	}
	return lang.NewList(out...), nil
}

// macroNs switches to a namespace and processes its :import clauses.
func macroNs(c *Compiler, args []any) (any, error) {
	name, ok := args[0].(*lang.Symbol)
	if !ok {
		return nil, macroError("ns expects a symbol for its name")
	}
	out := []any{doSym, lang.NewList(symNamed("in-ns"), quote(name))}
	for _, ref := range args[1:] {
		if _, ok := ref.(string); ok {
			continue
		}
		l, ok := ref.(*lang.List)
		if !ok || l.Count() == 0 {
			return nil, macroError("Unsupported ns clause: %s", lang.PrStr(ref))
		}
		kw, ok := l.First().(*lang.Keyword)
		if !ok || kw.Name != "import" {
			return nil, macroError("Unsupported ns clause: %s", lang.PrStr(ref))
		}
		out = append(out, lang.NewList(append([]any{symNamed("import")}, l.Items()[1:]...)...))
	}
	return lang.NewList(out...), nil
}
