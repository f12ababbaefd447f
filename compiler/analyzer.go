package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// state is the part of the analyzer that follows lexical structure.  It is
// saved on entry to a nested form and restored on exit.
type state struct {
	env     *localEnv
	loop    *recurTarget
	noRecur bool
	unit    *ObjExpr
	method  *FnMethod
	// defName names functions analyzed as the init of a def.
	defName string
	loc     *token.Location
}

// analyzer turns one top-level form into an expression tree.
type analyzer struct {
	c   *Compiler
	rt  *lang.Runtime
	tab *bindingTable
	// pending holds warnings until analysis of the form succeeds.
	pending []Warning
	state
}

func (c *Compiler) newAnalyzer() *analyzer {
	return &analyzer{c: c, rt: c.rt, tab: &bindingTable{}}
}

// scope saves the lexical state and returns a function restoring it.
//
//	defer a.scope()()
func (a *analyzer) scope() func() {
	saved := a.state
	return func() { a.state = saved }
}

func (a *analyzer) errorf(form any, format string, v ...any) error {
	loc := lang.LocOf(form)
	if loc == nil {
		loc = a.loc
	}
	return &ParseError{Msg: fmt.Sprintf(format, v...), Form: form, Loc: loc}
}

func (a *analyzer) warning(kind WarningKind, loc *token.Location, msg string) Warning {
	if loc == nil {
		loc = a.loc
	}
	w := Warning{Kind: kind, Message: msg}
	if loc != nil {
		w.File, w.Line, w.Col = loc.File, loc.Line, loc.Col
	}
	return w
}

func (a *analyzer) warnf(kind WarningKind, loc *token.Location, format string, v ...any) {
	a.pending = append(a.pending, a.warning(kind, loc, fmt.Sprintf(format, v...)))
}

func (a *analyzer) constant(v any) int {
	return a.unit.Consts.Index(v)
}

// root prepares a fresh unit for a top-level form.
func (a *analyzer) root(loc *token.Location) *ObjExpr {
	ns := a.rt.NS().Name
	o := newObjExpr(fmt.Sprintf("%s$eval__%d", munge(ns), a.rt.GenID()), ns, nil, a.tab)
	o.Loc = loc
	m := &FnMethod{unit: o, Loc: loc}
	o.Methods = []*FnMethod{m}
	a.unit = o
	a.method = m
	a.loc = loc
	return o
}

func (a *analyzer) analyze(ctx Context, form any) (Expr, error) {
	switch x := form.(type) {
	case nil:
		return &NilExpr{}, nil
	case bool:
		return &BooleanExpr{Val: x}, nil
	case int:
		return a.analyze(ctx, int64(x))
	case int64, float64, int32, float32:
		return &NumberExpr{Val: x, Index: a.constant(x)}, nil
	case string:
		return &StringExpr{Val: x, Index: a.constant(x)}, nil
	case *lang.Keyword:
		return &KeywordExpr{Kw: x, Index: a.constant(x)}, nil
	case *lang.Symbol:
		return a.analyzeSymbol(x)
	case *lang.List:
		if x.Count() == 0 {
			return a.empty(x), nil
		}
		return a.analyzeSeq(ctx, x)
	case *lang.Vector:
		return a.analyzeVector(x)
	case *lang.Map:
		return a.analyzeMap(x)
	case *lang.Set:
		return a.analyzeSet(x)
	}
	return &ConstantExpr{Val: form, Index: a.constant(form)}, nil
}

func (a *analyzer) empty(coll any) Expr {
	return &EmptyExpr{Coll: coll, Index: a.constant(coll)}
}

func (a *analyzer) analyzeAll(forms []any) ([]Expr, error) {
	exprs := make([]Expr, len(forms))
	for i, form := range forms {
		e, err := a.analyze(Expression, form)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

// analyzeBody analyzes forms as an implicit do.  All but the last form are
// statements.
func (a *analyzer) analyzeBody(ctx Context, forms []any) (*BodyExpr, error) {
	if len(forms) == 0 {
		return &BodyExpr{Exprs: []Expr{&NilExpr{}}}, nil
	}
	body := &BodyExpr{Exprs: make([]Expr, len(forms))}
	for i, form := range forms {
		c := Statement
		if i == len(forms)-1 {
			c = ctx
		}
		e, err := a.analyze(c, form)
		if err != nil {
			return nil, err
		}
		body.Exprs[i] = e
	}
	return body, nil
}

func (a *analyzer) withMeta(e Expr, form any) (Expr, error) {
	meta := lang.MetaOf(form)
	if meta.Count() == 0 {
		return e, nil
	}
	m, err := a.mapExpr(meta)
	if err != nil {
		return nil, err
	}
	return &MetaExpr{Expr: e, Meta: m}, nil
}

func (a *analyzer) analyzeVector(v *lang.Vector) (Expr, error) {
	if v.Count() == 0 && lang.MetaOf(v) == nil {
		return a.empty(v), nil
	}
	items, err := a.analyzeAll(v.Items())
	if err != nil {
		return nil, err
	}
	return a.withMeta(&VectorExpr{Items: items}, v)
}

func (a *analyzer) mapExpr(m *lang.Map) (*MapExpr, error) {
	keys, err := a.analyzeAll(m.Keys())
	if err != nil {
		return nil, err
	}
	vals, err := a.analyzeAll(m.Vals())
	if err != nil {
		return nil, err
	}
	return &MapExpr{Keys: keys, Vals: vals}, nil
}

func (a *analyzer) analyzeMap(m *lang.Map) (Expr, error) {
	if m.Count() == 0 && lang.MetaOf(m) == nil {
		return a.empty(m), nil
	}
	e, err := a.mapExpr(m)
	if err != nil {
		return nil, err
	}
	return a.withMeta(e, m)
}

func (a *analyzer) analyzeSet(s *lang.Set) (Expr, error) {
	if s.Count() == 0 && lang.MetaOf(s) == nil {
		return a.empty(s), nil
	}
	items, err := a.analyzeAll(s.Items())
	if err != nil {
		return nil, err
	}
	return a.withMeta(&SetExpr{Items: items}, s)
}

// Resolution

func (a *analyzer) isLocal(sym *lang.Symbol) bool {
	if sym.Ns != "" {
		return false
	}
	_, ok := a.env.lookup(sym.Name)
	return ok
}

func (a *analyzer) findNamespace(name string) *lang.Namespace {
	if ns := a.rt.NS().LookupAlias(name); ns != nil {
		return ns
	}
	return a.rt.Namespaces.Find(name)
}

// resolveClass returns the class imported into the current namespace or
// registered as name.
func (a *analyzer) resolveClass(name string) *host.Class {
	if c, ok := a.rt.NS().Lookup(name).(*host.Class); ok {
		return c
	}
	if c, ok := a.c.registry.Lookup(name); ok {
		return c
	}
	return nil
}

// lookup returns the Var or class named by a global symbol, or nil.
// Unqualified names are looked up in the current namespace, then in the
// core namespace, then among host classes.
func (a *analyzer) lookup(sym *lang.Symbol) any {
	if sym.Ns != "" {
		if ns := a.findNamespace(sym.Ns); ns != nil {
			if v := ns.FindInterned(sym.Name); v != nil {
				return v
			}
		}
		return nil
	}
	if x := a.rt.NS().Lookup(sym.Name); x != nil {
		return x
	}
	if v, ok := a.c.core.Lookup(sym.Name).(*lang.Var); ok {
		return v
	}
	if c := a.resolveClass(sym.Name); c != nil {
		return c
	}
	return nil
}

// classOfForm returns the class named by a symbol that is not a local.
func (a *analyzer) classOfForm(form any) *host.Class {
	sym, ok := form.(*lang.Symbol)
	if !ok || a.isLocal(sym) {
		return nil
	}
	if sym.Ns != "" {
		return a.resolveClass(sym.String())
	}
	c, _ := a.lookup(sym).(*host.Class)
	return c
}

func (a *analyzer) classNamed(form any) (*host.Class, error) {
	var name string
	switch x := form.(type) {
	case *lang.Symbol:
		name = x.String()
	case string:
		name = x
	default:
		return nil, a.errorf(form, "Unable to resolve classname: %s", lang.PrStr(form))
	}
	if c := a.resolveClass(name); c != nil {
		return c, nil
	}
	return nil, a.errorf(form, "Unable to resolve classname: %s", name)
}

// tagOf returns the class named by the :tag metadata of form, or nil.
func (a *analyzer) tagOf(form any) (*host.Class, error) {
	t := lang.MetaOf(form).ValAt(lang.KwTag)
	if t == nil {
		return nil, nil
	}
	return a.classNamed(t)
}

// primTag returns long or double when form is tagged with either.
func primTag(form any) *host.Class {
	switch t := lang.MetaOf(form).ValAt(lang.KwTag).(type) {
	case *lang.Symbol:
		return primNamed(t.String())
	case string:
		return primNamed(t)
	}
	return nil
}

func primNamed(name string) *host.Class {
	switch name {
	case "long":
		return host.Long
	case "double":
		return host.Double
	}
	return nil
}

func (a *analyzer) varTag(v *lang.Var) *host.Class {
	t := v.Meta().ValAt(lang.KwTag)
	if t == nil {
		return nil
	}
	c, err := a.classNamed(t)
	if err != nil {
		return nil
	}
	return c.Boxed()
}

// Symbols

func (a *analyzer) analyzeSymbol(sym *lang.Symbol) (Expr, error) {
	tag, err := a.tagOf(sym)
	if err != nil {
		return nil, err
	}
	if tag.IsPrimitive() {
		tag = nil
	}
	if id, ok := a.env.lookup(sym.Name); ok && sym.Ns == "" {
		return a.localRef(sym, id, tag)
	}
	if sym.Ns != "" && a.findNamespace(sym.Ns) == nil {
		if c := a.resolveClass(sym.Ns); c != nil {
			f := c.StaticField(sym.Name)
			if f == nil {
				return nil, a.errorf(sym, "Unable to find static field: %s in %s", sym.Name, c)
			}
			return &StaticFieldExpr{Field: f, Loc: sym.Source}, nil
		}
	}
	switch x := a.lookup(sym).(type) {
	case *lang.Var:
		if x.IsMacro() {
			return nil, a.errorf(sym, "Can't take value of a macro: %s", x)
		}
		return a.varExpr(x, tag), nil
	case *host.Class:
		return &ConstantExpr{Val: x, Index: a.constant(x)}, nil
	case nil:
		if sym.Ns != "" && a.findNamespace(sym.Ns) == nil {
			return nil, a.errorf(sym, "No such namespace: %s", sym.Ns)
		}
		if sym.Ns != "" {
			return nil, a.errorf(sym, "No such var: %s", sym)
		}
		return nil, a.errorf(sym, "Unable to resolve symbol: %s in this context", sym)
	default:
		return &ConstantExpr{Val: x, Index: a.constant(x)}, nil
	}
}

func (a *analyzer) localRef(sym *lang.Symbol, id BindingID, tag *host.Class) (Expr, error) {
	b := a.tab.get(id)
	if err := a.closeOver(sym, b); err != nil {
		return nil, err
	}
	return &LocalBindingExpr{ID: id, Tag: tag, Loc: sym.Source, unit: a.unit}, nil
}

// closeOver records b as captured by every function between the current
// unit and the unit owning b.  Only the innermost function refers to it
// directly; the others relay it.
func (a *analyzer) closeOver(sym *lang.Symbol, b *LocalBinding) error {
	for u := a.unit; u != nil && u != b.unit; u = u.parent {
		if u.IsStatic {
			return a.errorf(sym, "Can't close over local in static fn: %s", b.Sym.Name)
		}
		u.addCapture(b.ID, u == a.unit)
	}
	return nil
}

func (a *analyzer) varExpr(v *lang.Var, tag *host.Class) *VarExpr {
	if tag == nil {
		tag = a.varTag(v)
	}
	return &VarExpr{Var: v, Tag: tag, Index: a.constant(v)}
}

// Seqs

func (a *analyzer) analyzeSeq(ctx Context, form *lang.List) (Expr, error) {
	defer a.scope()()
	if loc := form.Loc(); loc != nil {
		a.loc = loc
	}
	me, expanded, err := a.macroexpand1(form)
	if err != nil {
		return nil, err
	}
	if expanded {
		return a.analyze(ctx, me)
	}
	if sym, ok := form.First().(*lang.Symbol); ok && sym.Ns == "" {
		if p, ok := specials[sym.Name]; ok {
			return p(a, ctx, form)
		}
	}
	return a.analyzeInvoke(form)
}

var (
	dotSym = lang.NewSymbol("", ".")
	newSym = lang.NewSymbol("", "new")
)

// macroexpand1 expands a macro call or interop shorthand once.
func (a *analyzer) macroexpand1(form *lang.List) (any, bool, error) {
	sym, ok := form.First().(*lang.Symbol)
	if !ok || a.isLocal(sym) {
		return form, false, nil
	}
	if _, ok := specials[sym.Name]; ok && sym.Ns == "" {
		return form, false, nil
	}
	items := form.Items()
	if v, ok := a.lookup(sym).(*lang.Var); ok {
		if !v.IsMacro() {
			return form, false, nil
		}
		fn, err := v.Get(a.rt)
		if err != nil {
			return nil, false, a.wrap(form, "Error macroexpanding "+sym.String(), err)
		}
		a.c.log.WithField("macro", v.String()).Trace("expanding macro")
		out, err := lang.Invoke(fn, items[1:]...)
		if err != nil {
			return nil, false, a.wrap(form, "Error macroexpanding "+sym.String(), err)
		}
		if l, ok := out.(*lang.List); ok && l.Loc() == nil && form.Loc() != nil {
			out = l.WithLoc(form.Loc())
		}
		return out, true, nil
	}
	name := sym.Name
	switch {
	case sym.Ns == "" && len(name) > 1 && name[0] == '.' && name != "..":
		if len(items) < 2 {
			return nil, false, a.errorf(form, "Malformed member expression, expecting (.member target ...)")
		}
		out := append([]any{dotSym, items[1], lang.NewSymbol("", name[1:])}, items[2:]...)
		return lang.NewList(out...).WithLoc(form.Loc()), true, nil
	case sym.Ns == "" && len(name) > 1 && strings.HasSuffix(name, "."):
		out := append([]any{newSym, lang.ParseSymbol(name[:len(name)-1])}, items[1:]...)
		return lang.NewList(out...).WithLoc(form.Loc()), true, nil
	case sym.Ns != "" && a.findNamespace(sym.Ns) == nil && a.resolveClass(sym.Ns) != nil:
		out := append([]any{dotSym, lang.NewSymbol("", sym.Ns), lang.NewSymbol("", sym.Name)}, items[1:]...)
		return lang.NewList(out...).WithLoc(form.Loc()), true, nil
	}
	return form, false, nil
}

// wrap reports an error raised while analyzing form.  Errors that already
// carry a position are passed through.
func (a *analyzer) wrap(form any, msg string, err error) error {
	var perr *ParseError
	if errors.As(err, &perr) {
		return err
	}
	loc := lang.LocOf(form)
	if loc == nil {
		loc = a.loc
	}
	return &ParseError{Msg: msg, Form: form, Loc: loc, Err: err}
}

func (a *analyzer) analyzeInvoke(form *lang.List) (Expr, error) {
	items := form.Items()
	op, argForms := items[0], items[1:]
	loc := form.Loc()
	tag, err := a.tagOf(form)
	if err != nil {
		return nil, err
	}
	if kw, ok := op.(*lang.Keyword); ok && len(argForms) == 1 {
		target, err := a.analyze(Expression, argForms[0])
		if err != nil {
			return nil, err
		}
		site := lang.NewKeywordSite(kw)
		return &KeywordInvokeExpr{Kw: kw, Target: target, Site: site, Index: a.constant(site), Loc: loc}, nil
	}
	if sym, ok := op.(*lang.Symbol); ok && !a.isLocal(sym) {
		if v, ok := a.lookup(sym).(*lang.Var); ok {
			return a.analyzeVarInvoke(v, argForms, tag, loc)
		}
	}
	fn, err := a.analyze(Expression, op)
	if err != nil {
		return nil, err
	}
	args, err := a.analyzeAll(argForms)
	if err != nil {
		return nil, err
	}
	return &InvokeExpr{Fn: fn, Args: args, Tag: tag, Loc: loc}, nil
}

// analyzeVarInvoke analyzes a call of the function bound to a Var, which
// may be inlined, dispatched through a protocol cache or called through
// its primitive signature.
func (a *analyzer) analyzeVarInvoke(v *lang.Var, argForms []any, tag *host.Class, loc *token.Location) (Expr, error) {
	if v.NS == a.c.core && v.Sym.Name == "instance?" && len(argForms) == 2 {
		if c := a.classOfForm(argForms[0]); c != nil {
			x, err := a.analyze(Expression, argForms[1])
			if err != nil {
				return nil, err
			}
			return &InstanceOfExpr{Class: c, Expr: x}, nil
		}
	}
	args, err := a.analyzeAll(argForms)
	if err != nil {
		return nil, err
	}
	if v.NS == a.c.core {
		if op, ok := inlines[v.Sym.Name]; ok {
			if e := a.inline(op, args, loc); e != nil {
				return e, nil
			}
		}
	}
	if !v.IsDynamic() {
		root, _ := v.Root()
		if pf, ok := root.(*lang.ProtocolFn); ok && len(args) > 0 {
			site := lang.NewProtocolSite(pf)
			return &ProtocolInvokeExpr{
				Fn:     a.varExpr(v, nil),
				Target: args[0],
				Args:   args[1:],
				Site:   site,
				Index:  a.constant(site),
				Loc:    loc,
			}, nil
		}
		if params, ret, ok := primSignature(v, len(args)); ok {
			for i, arg := range args {
				have := primType(arg)
				if params[i] != nil && have != nil && !widening(have, params[i]) {
					a.warnf(WarnNarrowing, loc, "call to %s narrows argument %d from %s to %s", v, i, have, params[i])
				}
			}
			return &StaticInvokeExpr{Var: v, Index: a.constant(v), Args: args, Params: params, Ret: ret, Loc: loc}, nil
		}
	}
	return &InvokeExpr{Fn: a.varExpr(v, nil), Args: args, Tag: tag, Loc: loc}, nil
}

// primSignature returns the primitive signature declared by the :arglists
// of v for calls with n arguments.
func primSignature(v *lang.Var, n int) ([]*host.Class, *host.Class, bool) {
	arglists, err := lang.SeqItems(v.Meta().ValAt(lang.KwArglists))
	if err != nil {
		return nil, nil, false
	}
	for _, al := range arglists {
		vec, ok := al.(*lang.Vector)
		if !ok || vec.Count() != n {
			continue
		}
		params := make([]*host.Class, n)
		prim := false
		variadic := false
		for i, p := range vec.Items() {
			if sym, ok := p.(*lang.Symbol); ok && sym.Is("&") {
				variadic = true
				break
			}
			params[i] = primTag(p)
			prim = prim || params[i] != nil
		}
		if variadic {
			continue
		}
		ret := primTag(vec)
		if prim || ret != nil {
			return params, ret, true
		}
	}
	return nil, nil, false
}

// munge converts a name into one usable as a class name.
func munge(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch r {
		case '-':
			sb.WriteByte('_')
		case '.':
			sb.WriteByte('.')
		case '?':
			sb.WriteString("_QMARK_")
		case '!':
			sb.WriteString("_BANG_")
		case '*':
			sb.WriteString("_STAR_")
		case '+':
			sb.WriteString("_PLUS_")
		case '>':
			sb.WriteString("_GT_")
		case '<':
			sb.WriteString("_LT_")
		case '=':
			sb.WriteString("_EQ_")
		case '/':
			sb.WriteString("_SLASH_")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
