package compiler

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// maxPositional is the largest number of fixed parameters of a method.
const maxPositional = 20

type specialForm func(a *analyzer, ctx Context, form *lang.List) (Expr, error)

var specials map[string]specialForm

func init() {
	specials = map[string]specialForm{
		"if":        analyzeIf,
		"do":        analyzeDo,
		"let":       analyzeLet,
		"let*":      analyzeLet,
		"loop":      analyzeLoop,
		"loop*":     analyzeLoop,
		"fn":        analyzeFn,
		"fn*":       analyzeFn,
		"letfn":     analyzeLetFn,
		"letfn*":    analyzeLetFn,
		"def":       analyzeDef,
		"recur":     analyzeRecur,
		"quote":     analyzeQuote,
		"var":       analyzeTheVar,
		"throw":     analyzeThrow,
		"try":       analyzeTry,
		"case":      analyzeCase,
		"case*":     analyzeCase,
		"set!":      analyzeAssign,
		"binding":   analyzeBinding,
		"import":    analyzeImport,
		"new":       analyzeNew,
		".":         analyzeDot,
		"deftype":   analyzeDeftype,
		"deftype*":  analyzeDeftype,
		"defrecord": analyzeDefrecord,
		"reify":     analyzeReify,
		"reify*":    analyzeReify,
	}
}

// SpecialForms returns the names of the special forms.
func SpecialForms() []string {
	names := make([]string, 0, len(specials))
	for name := range specials {
		names = append(names, name)
	}
	return names
}

var (
	fnSym   = lang.NewSymbol("", "fn*")
	letSym  = lang.NewSymbol("", "let*")
	caseSym = lang.NewSymbol("", "case*")
)

// wrapFn returns ((fn* [] form)).  Forms that need an empty operand stack
// are wrapped when they appear outside of tail position.
func wrapFn(form *lang.List) *lang.List {
	fn := lang.NewList(fnSym, lang.NewVector(), form).WithLoc(form.Loc())
	return lang.NewList(fn).WithLoc(form.Loc())
}

func isClause(form any, name string) (*lang.List, bool) {
	l, ok := form.(*lang.List)
	if !ok || l.Count() == 0 {
		return nil, false
	}
	sym, ok := l.First().(*lang.Symbol)
	return l, ok && sym.Ns == "" && sym.Name == name
}

func className(c *host.Class) string {
	if c == nil {
		return "Object"
	}
	return c.Name
}

func argTypes(args []Expr) []*host.Class {
	types := make([]*host.Class, len(args))
	for i, arg := range args {
		types[i] = argType(arg)
	}
	return types
}

func analyzeIf(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()
	switch {
	case len(items) > 4:
		return nil, a.errorf(form, "Too many arguments to if")
	case len(items) < 3:
		return nil, a.errorf(form, "Too few arguments to if")
	}
	test, err := a.analyze(Expression, items[1])
	if err != nil {
		return nil, err
	}
	then, err := a.analyze(ctx, items[2])
	if err != nil {
		return nil, err
	}
	var elseForm any
	if len(items) == 4 {
		elseForm = items[3]
	}
	els, err := a.analyze(ctx, elseForm)
	if err != nil {
		return nil, err
	}
	return &IfExpr{Test: test, Then: then, Else: els, Loc: form.Loc()}, nil
}

func analyzeDo(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	return a.analyzeBody(ctx, form.Items()[1:])
}

func analyzeLet(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	return a.analyzeLet(ctx, form, false)
}

func analyzeLoop(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	return a.analyzeLet(ctx, form, true)
}

func (a *analyzer) bindingVector(form *lang.List) ([]any, error) {
	items := form.Items()
	if len(items) < 2 {
		return nil, a.errorf(form, "Too few arguments to %s", items[0])
	}
	vec, ok := items[1].(*lang.Vector)
	if !ok {
		return nil, a.errorf(form, "Bad binding form, expected vector")
	}
	if vec.Count()%2 != 0 {
		return nil, a.errorf(form, "Bad binding form, expected matched symbol expression pairs")
	}
	return vec.Items(), nil
}

func (a *analyzer) bindingSymbol(form any) (*lang.Symbol, error) {
	sym, ok := form.(*lang.Symbol)
	if !ok {
		return nil, a.errorf(form, "Bad binding form, expected symbol, got: %s", lang.PrStr(form))
	}
	if sym.Ns != "" {
		return nil, a.errorf(form, "Can't let qualified name: %s", sym)
	}
	return sym, nil
}

// analyzeLet analyzes let and loop.  The locals of a loop take the
// primitive type of their initializers unless a recur passes them values
// of another type, in which case the loop is analyzed again with the local
// widened, or boxed when no primitive type holds both.
func (a *analyzer) analyzeLet(ctx Context, form *lang.List, loop bool) (Expr, error) {
	pairs, err := a.bindingVector(form)
	if err != nil {
		return nil, err
	}
	if loop && !ctx.tail() {
		return a.analyze(ctx, wrapFn(form))
	}
	n := len(pairs) / 2
	widened := make([]*host.Class, n)
	boxed := make([]bool, n)
	base := len(a.method.locals)
	warnings := len(a.pending)
	for iter := 1; ; iter++ {
		a.method.locals = a.method.locals[:base]
		a.pending = a.pending[:warnings]
		e, ids, err := a.analyzeLetOnce(ctx, form, pairs, loop, widened, boxed)
		if err != nil {
			return nil, err
		}
		if !loop {
			return e, nil
		}
		changed := false
		var retry []Warning
		for i, id := range ids {
			b := a.tab.get(id)
			if !b.mismatch {
				continue
			}
			changed = true
			if t := joinPrim(b.Prim, b.recurType); t != nil {
				widened[i] = t
				continue
			}
			boxed[i] = true
			retry = append(retry, a.warning(WarnRecur, lang.LocOf(pairs[2*i]),
				fmt.Sprintf("recur arg for primitive local: %s is not matching primitive, had: %s, needed: %s",
					b.Sym.Name, className(b.recurType), b.Prim)))
		}
		if !changed {
			return e, nil
		}
		warnings += len(retry)
		a.pending = append(a.pending[:warnings-len(retry)], retry...)
		a.c.log.WithFields(logrus.Fields{
			"loop":      form.Loc().String(),
			"iteration": iter,
		}).Debug("reanalyzing loop after recur type mismatch")
	}
}

func (a *analyzer) analyzeLetOnce(ctx Context, form *lang.List, pairs []any, loop bool, widened []*host.Class, boxed []bool) (Expr, []BindingID, error) {
	defer a.scope()()
	e := &LetExpr{Loop: loop, Loc: form.Loc(), unit: a.unit}
	ids := make([]BindingID, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		sym, err := a.bindingSymbol(pairs[i])
		if err != nil {
			return nil, nil, err
		}
		init, err := a.analyze(Expression, pairs[i+1])
		if err != nil {
			return nil, nil, err
		}
		tag, err := a.tagOf(sym)
		if err != nil {
			return nil, nil, err
		}
		b := &LocalBinding{Sym: sym, Init: init, Field: -1, unit: a.unit}
		switch {
		case tag == host.Void:
			return nil, nil, a.errorf(sym, "Can't type hint a local as void: %s", sym)
		case tag.IsPrimitive():
			b.Prim = tag
		default:
			b.Tag = tag
			b.Prim = primType(init)
		}
		if loop {
			switch j := i / 2; {
			case boxed[j]:
				b.Prim = nil
				b.demoted = true
			case widened[j] != nil:
				b.Prim = widened[j]
			}
		}
		id := a.tab.add(b)
		a.method.allocLocal(b)
		a.env = a.env.bind(sym.Name, id)
		e.Bindings = append(e.Bindings, BindingInit{ID: id, Init: init})
		ids = append(ids, id)
	}
	if loop {
		e.target = &recurTarget{locals: ids, loop: true}
		a.loop = e.target
		a.noRecur = false
	}
	body, err := a.analyzeBody(ctx, form.Items()[2:])
	if err != nil {
		return nil, nil, err
	}
	e.Body = body
	return e, ids, nil
}

// joinPrim returns the primitive type holding values of both x and y, or
// nil when only a boxed local can.
func joinPrim(x, y *host.Class) *host.Class {
	switch {
	case x == nil || y == nil:
		return nil
	case x == y:
		return x
	case (x == host.Int && y == host.Long) || (x == host.Long && y == host.Int):
		return host.Long
	case (x == host.Float && y == host.Double) || (x == host.Double && y == host.Float):
		return host.Double
	}
	return nil
}

// noteRecur records that recur passed a value of primitive class t (nil
// for a boxed value) that b cannot hold.
func (b *LocalBinding) noteRecur(t *host.Class) {
	if !b.mismatch {
		b.mismatch = true
		b.recurType = t
		return
	}
	b.recurType = joinPrim(b.recurType, t)
}

func analyzeRecur(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	switch {
	case !ctx.tail() || a.loop == nil:
		return nil, a.errorf(form, "Can only recur from tail position")
	case a.noRecur:
		return nil, a.errorf(form, "Cannot recur across try")
	}
	argForms := form.Items()[1:]
	if len(argForms) != len(a.loop.locals) {
		return nil, a.errorf(form, "Mismatched argument count to recur, expected: %d args, got: %d",
			len(a.loop.locals), len(argForms))
	}
	args, err := a.analyzeAll(argForms)
	if err != nil {
		return nil, err
	}
	for i, arg := range args {
		b := a.tab.get(a.loop.locals[i])
		if b.Prim == nil {
			continue
		}
		t := primType(arg)
		switch {
		case t != nil && widening(t, b.Prim):
		case a.loop.loop:
			b.noteRecur(t)
		case t != nil:
			a.warnf(WarnNarrowing, form.Loc(), "recur arg for primitive local: %s is not matching primitive, had: %s, needed: %s",
				b.Sym.Name, t, b.Prim)
		}
	}
	return &RecurExpr{Args: args, Loc: form.Loc(), unit: a.unit, target: a.loop}, nil
}

func analyzeFn(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()[1:]
	var name *lang.Symbol
	if len(items) > 0 {
		if sym, ok := items[0].(*lang.Symbol); ok {
			name = sym
			items = items[1:]
		}
	}
	if len(items) == 0 {
		return nil, a.errorf(form, "Parameter declaration missing")
	}
	var clauses [][]any
	if _, ok := items[0].(*lang.Vector); ok {
		clauses = [][]any{items}
	} else {
		for _, x := range items {
			l, ok := x.(*lang.List)
			if !ok || l.Count() == 0 {
				return nil, a.errorf(x, "Parameter declaration %s should be a vector", lang.PrStr(x))
			}
			if _, ok := l.First().(*lang.Vector); !ok {
				return nil, a.errorf(x, "Parameter declaration %s should be a vector", lang.PrStr(l.First()))
			}
			clauses = append(clauses, l.Items())
		}
	}
	var meta Expr
	if m := lang.MetaOf(form); m.Count() > 0 {
		me, err := a.mapExpr(m)
		if err != nil {
			return nil, err
		}
		meta = me
	}

	defer a.scope()()
	base := a.defName
	if name != nil {
		base = name.Name
	}
	if base == "" {
		base = "fn"
	}
	ns := a.rt.NS().Name
	o := newObjExpr(fmt.Sprintf("%s$%s__%d", munge(ns), munge(base), a.rt.GenID()), ns, a.unit, a.tab)
	o.Loc = form.Loc()
	o.IsStatic = lang.Truthy(lang.MetaOf(form).ValAt(lang.KwStatic)) ||
		(name != nil && lang.Truthy(name.Meta().ValAt(lang.KwStatic)))
	a.defName = ""
	env := a.env
	if name != nil {
		self := &LocalBinding{Sym: name, IsThis: true, Field: -1, unit: o}
		env = env.bind(name.Name, a.tab.add(self))
	}
	for _, cl := range clauses {
		m, err := a.analyzeMethod(o, env, cl[0].(*lang.Vector), cl[1:], nil)
		if err != nil {
			return nil, err
		}
		if err := a.addMethod(o, m, form); err != nil {
			return nil, err
		}
	}
	return &FnExpr{Unit: o, Meta: meta}, nil
}

// addMethod adds an arity to o, rejecting arities that conflict.
func (a *analyzer) addMethod(o *ObjExpr, m *FnMethod, form any) error {
	if m.IsVariadic {
		if o.Variadic != nil {
			return a.errorf(form, "Can't have more than 1 variadic overload")
		}
		for _, x := range o.Methods {
			if x.Required > m.Required {
				return a.errorf(form, "Can't have fixed arity function with more params than variadic function")
			}
		}
		o.Variadic = m
	} else {
		for _, x := range o.Methods {
			if !x.IsVariadic && x.Required == m.Required {
				return a.errorf(form, "Can't have 2 overloads with same arity")
			}
		}
		if o.Variadic != nil && m.Required > o.Variadic.Required {
			return a.errorf(form, "Can't have fixed arity function with more params than variadic function")
		}
	}
	o.Methods = append(o.Methods, m)
	return nil
}

// analyzeMethod analyzes one arity of o.  Methods of deftype and reify take
// their receiver as the first parameter, which recur does not assign.  For
// a deftype method def is the type; its fields are bound after the receiver
// so parameters shadow them.
func (a *analyzer) analyzeMethod(o *ObjExpr, env *localEnv, params *lang.Vector, body []any, def *lang.TypeDef) (*FnMethod, error) {
	defer a.scope()()
	m := &FnMethod{unit: o, Loc: params.Loc()}
	if m.Loc == nil {
		m.Loc = a.loc
	}
	a.unit, a.method, a.noRecur, a.env = o, m, false, env
	ret, err := a.primHint(params)
	if err != nil {
		return nil, err
	}
	m.Ret = ret
	items := params.Items()
	for i, p := range items {
		sym, ok := p.(*lang.Symbol)
		if !ok {
			return nil, a.errorf(params, "Unsupported binding form: %s", lang.PrStr(p))
		}
		if sym.Is("&") {
			if m.IsVariadic || i != len(items)-2 {
				return nil, a.errorf(params, "Invalid parameter list")
			}
			m.IsVariadic = true
			continue
		}
		if sym.Ns != "" {
			return nil, a.errorf(sym, "Can't use qualified name as parameter: %s", sym)
		}
		prim, err := a.primHint(sym)
		if err != nil {
			return nil, err
		}
		if prim != nil && m.IsVariadic {
			return nil, a.errorf(sym, "fns taking primitives cannot be variadic")
		}
		tag, err := a.tagOf(sym)
		if err != nil {
			return nil, err
		}
		if tag.IsPrimitive() {
			tag = nil
		}
		b := &LocalBinding{Sym: sym, Tag: tag, Prim: prim, IsArg: true, Field: -1, unit: o}
		id := a.tab.add(b)
		m.allocLocal(b)
		m.Params = append(m.Params, id)
		m.ParamTypes = append(m.ParamTypes, prim)
		a.env = a.env.bind(sym.Name, id)
		if i == 0 && def != nil {
			a.bindFields(o, def, id)
		}
	}
	m.Required = len(m.Params)
	if m.IsVariadic {
		m.Required--
		if m.IsPrimitive() {
			return nil, a.errorf(params, "fns taking primitives cannot be variadic")
		}
	}
	if m.Required > maxPositional {
		return nil, a.errorf(params, "Can't specify more than %d params", maxPositional)
	}
	targets := m.Params
	if o.IsDeftype || o.IsReify {
		if len(targets) == 0 {
			return nil, a.errorf(params, "Must supply at least one argument for 'this' in: %s", o.Name)
		}
		targets = targets[1:]
	}
	m.recur = &recurTarget{locals: targets}
	a.loop = m.recur
	b, err := a.analyzeBody(Return, body)
	if err != nil {
		return nil, err
	}
	m.Body = b
	return m, nil
}

// primHint returns long or double for a form tagged with either.  Other
// primitive tags are rejected.
func (a *analyzer) primHint(form any) (*host.Class, error) {
	if t := primTag(form); t != nil {
		return t, nil
	}
	var name string
	switch t := lang.MetaOf(form).ValAt(lang.KwTag).(type) {
	case *lang.Symbol:
		name = t.String()
	case string:
		name = t
	}
	switch name {
	case "int", "float", "boolean", "short", "byte", "char":
		return nil, a.errorf(form, "Only long and double primitives are supported")
	}
	return nil, nil
}

func (a *analyzer) bindFields(o *ObjExpr, def *lang.TypeDef, this BindingID) {
	for i, f := range def.Fields {
		b := &LocalBinding{Sym: f, Field: i, Mutable: def.Mutable[i], this: this, unit: o}
		a.env = a.env.bind(f.Name, a.tab.add(b))
	}
}

func analyzeLetFn(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()
	if len(items) < 2 {
		return nil, a.errorf(form, "Too few arguments to letfn")
	}
	vec, ok := items[1].(*lang.Vector)
	if !ok {
		return nil, a.errorf(form, "Bad binding form, expected vector")
	}
	var syms []*lang.Symbol
	var inits []any
	if sym, ok := items[0].(*lang.Symbol); ok && sym.Name == "letfn" {
		// (letfn [(f [x] body) ...] body)
		for _, spec := range vec.Items() {
			l, ok := spec.(*lang.List)
			if !ok || l.Count() < 2 {
				return nil, a.errorf(spec, "Bad letfn binding: %s", lang.PrStr(spec))
			}
			name, err := a.bindingSymbol(l.First())
			if err != nil {
				return nil, err
			}
			syms = append(syms, name)
			inits = append(inits, lang.NewList(append([]any{fnSym}, l.Items()...)...).WithLoc(l.Loc()))
		}
	} else {
		pairs, err := a.bindingVector(form)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(pairs); i += 2 {
			name, err := a.bindingSymbol(pairs[i])
			if err != nil {
				return nil, err
			}
			syms = append(syms, name)
			inits = append(inits, pairs[i+1])
		}
	}

	defer a.scope()()
	e := &LetFnExpr{unit: a.unit}
	for _, sym := range syms {
		b := &LocalBinding{Sym: sym, Field: -1, unit: a.unit}
		id := a.tab.add(b)
		a.method.allocLocal(b)
		a.env = a.env.bind(sym.Name, id)
		e.Bindings = append(e.Bindings, BindingInit{ID: id})
	}
	for i, init := range inits {
		x, err := a.analyze(Expression, init)
		if err != nil {
			return nil, err
		}
		if _, ok := x.(*FnExpr); !ok {
			return nil, a.errorf(init, "letfn binding must be a function: %s", syms[i])
		}
		e.Bindings[i].Init = x
		a.tab.get(e.Bindings[i].ID).Init = x
	}
	body, err := a.analyzeBody(ctx, items[2:])
	if err != nil {
		return nil, err
	}
	e.Body = body
	return e, nil
}

func analyzeDef(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()
	switch {
	case len(items) > 4:
		return nil, a.errorf(form, "Too many arguments to def")
	case len(items) < 2:
		return nil, a.errorf(form, "Too few arguments to def")
	}
	sym, ok := items[1].(*lang.Symbol)
	if !ok {
		return nil, a.errorf(form, "First argument to def must be a Symbol")
	}
	ns := a.rt.NS()
	if sym.Ns != "" {
		target := a.findNamespace(sym.Ns)
		if target == nil || target.FindInterned(sym.Name) == nil {
			return nil, a.errorf(form, "Can't refer to qualified var that doesn't exist")
		}
		if target != ns {
			return nil, a.errorf(form, "Can't create defs outside of current ns")
		}
	}
	v := ns.Intern(sym.Name)
	meta := constantMeta(sym.Meta())
	if meta == nil {
		meta = lang.EmptyMap
	}
	if len(items) == 4 {
		doc, ok := items[2].(string)
		if !ok {
			return nil, a.errorf(form, "Doc string of def must be a String")
		}
		meta = meta.Assoc(lang.KwDoc, doc)
	}
	if loc := form.Loc(); loc != nil {
		meta = meta.Assoc(lang.KwLine, int64(loc.Line)).Assoc(lang.KwColumn, int64(loc.Col))
		if loc.File != "" {
			meta = meta.Assoc(lang.KwFile, loc.File)
		}
	}
	meta = meta.Assoc(lang.KwName, lang.NewSymbol("", sym.Name))
	v.SetMeta(meta)
	e := &DefExpr{Var: v, Index: a.constant(v), Loc: form.Loc()}
	if len(items) > 2 {
		a.defName = sym.Name
		init, err := a.analyze(Expression, items[len(items)-1])
		if err != nil {
			return nil, err
		}
		e.Init = init
	}
	return e, nil
}

// constantMeta returns the metadata of a def with quoted values unwrapped.
func constantMeta(meta *lang.Map) *lang.Map {
	if meta.Count() == 0 {
		return meta
	}
	out := meta
	for _, k := range meta.Keys() {
		if q, ok := isClause(meta.ValAt(k), "quote"); ok && q.Count() == 2 {
			out = out.Assoc(k, lang.Second(q))
		}
	}
	return out
}

func analyzeQuote(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	if form.Count() != 2 {
		return nil, a.errorf(form, "Wrong number of args (%d) passed to quote", form.Count()-1)
	}
	return a.quoted(lang.Second(form)), nil
}

// quoted returns the expression for a literal value.
func (a *analyzer) quoted(v any) Expr {
	switch x := v.(type) {
	case nil:
		return &NilExpr{}
	case bool:
		return &BooleanExpr{Val: x}
	case int64, float64, int32, float32:
		return &NumberExpr{Val: x, Index: a.constant(x)}
	case string:
		return &StringExpr{Val: x, Index: a.constant(x)}
	case *lang.Keyword:
		return &KeywordExpr{Kw: x, Index: a.constant(x)}
	}
	if n, err := lang.Count(v); err == nil && n == 0 && lang.MetaOf(v) == nil {
		return a.empty(v)
	}
	return &ConstantExpr{Val: v, Index: a.constant(v)}
}

func analyzeTheVar(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	if form.Count() != 2 {
		return nil, a.errorf(form, "Wrong number of args (%d) passed to var", form.Count()-1)
	}
	sym, ok := lang.Second(form).(*lang.Symbol)
	if !ok {
		return nil, a.errorf(form, "var expects a symbol")
	}
	v, ok := a.lookup(sym).(*lang.Var)
	if !ok {
		return nil, a.errorf(sym, "Unable to resolve var: %s in this context", sym)
	}
	return &TheVarExpr{Var: v, Index: a.constant(v)}, nil
}

func analyzeThrow(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	switch {
	case form.Count() > 2:
		return nil, a.errorf(form, "Too many arguments to throw, throw expects a single Throwable instance")
	case form.Count() < 2:
		return nil, a.errorf(form, "Too few arguments to throw, throw expects a single Throwable instance")
	}
	x, err := a.analyze(Expression, lang.Second(form))
	if err != nil {
		return nil, err
	}
	return &ThrowExpr{Expr: x, Loc: form.Loc()}, nil
}

func analyzeTry(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	if !ctx.tail() {
		return a.analyze(ctx, wrapFn(form))
	}
	var body []any
	var catches []*lang.List
	var finally *lang.List
	for _, x := range form.Items()[1:] {
		if l, ok := isClause(x, "catch"); ok {
			if finally != nil {
				return nil, a.errorf(x, "finally clause must be last in try expression")
			}
			catches = append(catches, l)
			continue
		}
		if l, ok := isClause(x, "finally"); ok {
			if finally != nil {
				return nil, a.errorf(x, "Only one finally clause allowed in try expression")
			}
			finally = l
			continue
		}
		if len(catches) > 0 || finally != nil {
			return nil, a.errorf(x, "Only catch or finally clause can follow catch in try expression")
		}
		body = append(body, x)
	}

	defer a.scope()()
	a.noRecur = true
	e := &TryExpr{Loc: form.Loc(), unit: a.unit}
	b, err := a.analyzeBody(ctx, body)
	if err != nil {
		return nil, err
	}
	e.Body = b
	env := a.env
	for _, c := range catches {
		items := c.Items()
		if len(items) < 3 {
			return nil, a.errorf(c, "Malformed catch clause, expecting (catch Class name body*)")
		}
		class, err := a.classNamed(items[1])
		if err != nil {
			return nil, err
		}
		sym, err := a.bindingSymbol(items[2])
		if err != nil {
			return nil, err
		}
		lb := &LocalBinding{Sym: sym, Tag: class, Field: -1, unit: a.unit}
		id := a.tab.add(lb)
		a.method.allocLocal(lb)
		a.env = env.bind(sym.Name, id)
		cb, err := a.analyzeBody(ctx, items[3:])
		if err != nil {
			return nil, err
		}
		e.Catches = append(e.Catches, CatchClause{Class: class, ID: id, Body: cb})
	}
	a.env = env
	if finally != nil {
		fb, err := a.analyzeBody(Statement, finally.Items()[1:])
		if err != nil {
			return nil, err
		}
		e.Finally = fb
	}
	return e, nil
}

func analyzeCase(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()
	if len(items) < 2 {
		return nil, a.errorf(form, "Too few arguments to case")
	}
	clauses := items[2:]
	sym, ok := items[1].(*lang.Symbol)
	if !ok || !a.isLocal(sym) {
		g := a.rt.GenSym("case")
		inner := lang.NewList(append([]any{caseSym, g}, clauses...)...).WithLoc(form.Loc())
		let := lang.NewList(letSym, lang.NewVector(g, items[1]), inner).WithLoc(form.Loc())
		return a.analyze(ctx, let)
	}
	local, err := a.analyzeSymbol(sym)
	if err != nil {
		return nil, err
	}
	var dflt any
	hasDefault := len(clauses)%2 == 1
	if hasDefault {
		dflt = clauses[len(clauses)-1]
		clauses = clauses[:len(clauses)-1]
	} else {
		// (throw (new IllegalArgumentException (str "No matching clause: " sym)))
		msg := lang.NewList(lang.NewSymbol("", "str"), "No matching clause: ", sym)
		dflt = lang.NewList(lang.NewSymbol("", "throw"),
			lang.NewList(newSym, lang.NewSymbol("", "IllegalArgumentException"), msg))
	}
	e := &CaseExpr{Expr: local.(*LocalBindingExpr), Loc: form.Loc()}
	for i := 0; i < len(clauses); i += 2 {
		keys := []any{clauses[i]}
		if l, ok := clauses[i].(*lang.List); ok && l.Count() > 0 {
			keys = l.Items()
		}
		then, err := a.analyze(ctx, clauses[i+1])
		if err != nil {
			return nil, err
		}
		branch := len(e.Thens)
		e.Thens = append(e.Thens, then)
		for _, k := range keys {
			for _, seen := range e.Keys {
				if lang.Equal(seen, k) {
					return nil, a.errorf(form, "Duplicate case test constant: %s", lang.PrStr(k))
				}
			}
			e.Keys = append(e.Keys, k)
			e.Branch = append(e.Branch, branch)
		}
	}
	e.Default, err = a.analyze(ctx, dflt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func analyzeAssign(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	if form.Count() != 3 {
		return nil, a.errorf(form, "Malformed assignment, expecting (set! target val)")
	}
	items := form.Items()
	target, err := a.analyze(Expression, items[1])
	if err != nil {
		return nil, err
	}
	at, ok := target.(AssignableExpr)
	if !ok {
		return nil, a.errorf(form, "Invalid assignment target")
	}
	if lb, ok := target.(*LocalBindingExpr); ok {
		b := lb.Binding()
		if !b.IsField() || !b.Mutable || b.unit != a.unit {
			return nil, a.errorf(form, "Cannot assign to non-mutable: %s", b.Sym.Name)
		}
	}
	val, err := a.analyze(Expression, items[2])
	if err != nil {
		return nil, err
	}
	return &AssignExpr{Target: at, Val: val}, nil
}

func analyzeBinding(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	pairs, err := a.bindingVector(form)
	if err != nil {
		return nil, err
	}
	if !ctx.tail() {
		return a.analyze(ctx, wrapFn(form))
	}
	defer a.scope()()
	e := &BindingExpr{Loc: form.Loc()}
	for i := 0; i < len(pairs); i += 2 {
		sym, ok := pairs[i].(*lang.Symbol)
		if !ok {
			return nil, a.errorf(pairs[i], "Bad binding form, expected symbol, got: %s", lang.PrStr(pairs[i]))
		}
		v, ok := a.lookup(sym).(*lang.Var)
		if !ok {
			return nil, a.errorf(sym, "Unable to resolve var: %s in this context", sym)
		}
		val, err := a.analyze(Expression, pairs[i+1])
		if err != nil {
			return nil, err
		}
		e.Vars = append(e.Vars, v)
		e.Index = append(e.Index, a.constant(v))
		e.Vals = append(e.Vals, val)
	}
	a.noRecur = true
	body, err := a.analyzeBody(ctx, form.Items()[2:])
	if err != nil {
		return nil, err
	}
	e.Body = body
	return e, nil
}

func unquote(form any) any {
	if q, ok := isClause(form, "quote"); ok && q.Count() == 2 {
		return lang.Second(q)
	}
	return form
}

// analyzeImport maps the short names of host classes in the current
// namespace.  The mapping is made immediately so the rest of the form can
// use it and again when the form runs.
func analyzeImport(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	var names []string
	for _, spec := range form.Items()[1:] {
		switch s := unquote(spec).(type) {
		case *lang.Symbol:
			names = append(names, s.String())
		case *lang.Vector, *lang.List:
			items, _ := lang.SeqItems(s)
			if len(items) == 0 {
				return nil, a.errorf(spec, "Unsupported import spec: %s", lang.PrStr(spec))
			}
			pkg, ok := items[0].(*lang.Symbol)
			if !ok {
				return nil, a.errorf(spec, "Unsupported import spec: %s", lang.PrStr(spec))
			}
			for _, x := range items[1:] {
				names = append(names, pkg.Name+"."+lang.Str(x))
			}
		default:
			return nil, a.errorf(spec, "Unsupported import spec: %s", lang.PrStr(spec))
		}
	}
	ns := a.rt.NS()
	classes := make([]*host.Class, len(names))
	for i, name := range names {
		c, ok := a.c.registry.Lookup(name)
		if !ok {
			return nil, a.errorf(form, "Unable to resolve classname: %s", name)
		}
		classes[i] = c
		names[i] = name[strings.LastIndexByte(name, '.')+1:]
		ns.Import(names[i], c)
	}
	fn := lang.NewBuiltin("import", 0, 0, func([]any) (any, error) {
		for i, c := range classes {
			ns.Import(names[i], c)
		}
		return nil, nil
	})
	return &HostCallExpr{Fn: fn, Index: a.constant(fn)}, nil
}

func (a *analyzer) reflectionWarning(form any, format string, v ...any) {
	if !a.c.flag(a.c.warnOnReflection) {
		return
	}
	a.warnf(WarnReflection, lang.LocOf(form), format, v...)
}

func analyzeNew(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()
	if len(items) < 2 {
		return nil, a.errorf(form, "wrong number of arguments, expecting: (new Classname args...)")
	}
	c, err := a.classNamed(items[1])
	if err != nil {
		return nil, err
	}
	args, err := a.analyzeAll(items[2:])
	if err != nil {
		return nil, err
	}
	if c.Def != nil {
		return &DynamicNewExpr{Class: c, Args: args, Loc: form.Loc()}, nil
	}
	ctors := c.Ctors(len(args))
	if len(ctors) == 0 {
		return nil, a.errorf(form, "No matching ctor found for class %s", c)
	}
	m, err := host.Select(ctors, argTypes(args))
	if err != nil {
		a.reflectionWarning(form, "call to %s ctor can't be resolved.", c)
		return &DynamicNewExpr{Class: c, Args: args, Loc: form.Loc()}, nil
	}
	return &NewExpr{Ctor: m, Args: args, Loc: form.Loc()}, nil
}

func analyzeDot(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	items := form.Items()
	if len(items) < 3 {
		return nil, a.errorf(form, "Malformed member expression, expecting (. target member ...)")
	}
	member, argForms := items[2], items[3:]
	if l, ok := member.(*lang.List); ok && len(items) == 3 && l.Count() > 0 {
		member, argForms = l.First(), l.Items()[1:]
	}
	msym, ok := member.(*lang.Symbol)
	if !ok {
		return nil, a.errorf(form, "Malformed member expression, expecting (. target member ...)")
	}
	name := msym.Name
	field := strings.HasPrefix(name, "-") && len(name) > 1
	if field {
		name = name[1:]
		if len(argForms) > 0 {
			return nil, a.errorf(form, "Field reference %s takes no arguments", name)
		}
	}
	if c := a.classOfForm(items[1]); c != nil {
		return a.analyzeStaticMember(form, c, name, field, argForms)
	}
	target, err := a.analyze(Expression, items[1])
	if err != nil {
		return nil, err
	}
	return a.analyzeInstanceMember(form, target, name, field, argForms)
}

func (a *analyzer) analyzeStaticMember(form *lang.List, c *host.Class, name string, field bool, argForms []any) (Expr, error) {
	loc := form.Loc()
	if field || (len(argForms) == 0 && !c.HasStatic(name)) {
		f := c.StaticField(name)
		if f == nil {
			return nil, a.errorf(form, "Unable to find static field: %s in %s", name, c)
		}
		return &StaticFieldExpr{Field: f, Loc: loc}, nil
	}
	args, err := a.analyzeAll(argForms)
	if err != nil {
		return nil, err
	}
	ms := c.StaticMethods(name, len(args))
	if len(ms) == 0 {
		return nil, a.errorf(form, "No matching method %s found taking %d args for class %s", name, len(args), c)
	}
	m, err := host.Select(ms, argTypes(args))
	if err != nil {
		a.reflectionWarning(form, "call to static method %s on %s can't be resolved.", name, c)
		return &DynamicStaticExpr{Class: c, Name: name, Args: args, Loc: loc}, nil
	}
	return a.staticMethod(m, args, loc), nil
}

func (a *analyzer) analyzeInstanceMember(form *lang.List, target Expr, name string, field bool, argForms []any) (Expr, error) {
	loc := form.Loc()
	class := staticType(target)
	if class == recurClass {
		class = nil
	}
	class = class.Boxed()
	if field || (len(argForms) == 0 && class != nil && !class.HasMethod(name) && class.Field(name) != nil) {
		if class != nil {
			if f := class.Field(name); f != nil {
				return &InstanceFieldExpr{Target: target, Field: f, Loc: loc}, nil
			}
			if class.Def != nil {
				return nil, a.errorf(form, "No matching field found: %s for class %s", name, class)
			}
		}
		a.reflectionWarning(form, "reference to field %s can't be resolved.", name)
		return &DynamicFieldExpr{Target: target, Name: name, Loc: loc}, nil
	}
	args, err := a.analyzeAll(argForms)
	if err != nil {
		return nil, err
	}
	if class != nil && class.Def == nil {
		if ms := class.Methods(name, len(args)); len(ms) > 0 {
			if m, err := host.Select(ms, argTypes(args)); err == nil {
				return &InstanceMethodExpr{Target: target, Method: m, Args: args, Loc: loc}, nil
			}
		}
	}
	if class == nil || class == host.Object || class.IsInterface() {
		a.reflectionWarning(form, "call to method %s can't be resolved (target class is unknown).", name)
	} else if class.Def == nil {
		a.reflectionWarning(form, "call to method %s on %s can't be resolved.", name, class)
	}
	return &DynamicMethodExpr{Target: target, Name: name, Args: args, Loc: loc}, nil
}

// staticMethod returns a call of m, using an intrinsic when enabled.
func (a *analyzer) staticMethod(m *host.Method, args []Expr, loc *token.Location) *StaticMethodExpr {
	e := &StaticMethodExpr{Method: m, Args: args, Loc: loc}
	if a.c.intrinsics {
		key := m.String()
		e.value = valueIntrinsics[key]
		e.predicate = predicateIntrinsics[key]
	}
	return e
}
