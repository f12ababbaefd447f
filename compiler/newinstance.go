package compiler

import (
	"fmt"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
)

// impls are the protocol and method specifications following the fields of
// a deftype or the head of a reify.
type impls struct {
	protocols []*lang.Protocol
	// open is set when a host class is listed; its methods are not checked.
	open    bool
	names   []string
	methods map[string][]*lang.List
}

func (a *analyzer) parseImpls(forms []any) (*impls, error) {
	out := &impls{methods: make(map[string][]*lang.List)}
	for _, form := range forms {
		switch x := form.(type) {
		case *lang.Symbol:
			switch v := a.lookup(x).(type) {
			case *lang.Var:
				root, _ := v.Root()
				p, ok := root.(*lang.Protocol)
				if !ok {
					return nil, a.errorf(x, "%s is not a protocol", x)
				}
				out.protocols = append(out.protocols, p)
			case *host.Class:
				out.open = true
			default:
				return nil, a.errorf(x, "Unable to resolve symbol: %s in this context", x)
			}
		case *lang.List:
			if x.Count() < 2 {
				return nil, a.errorf(x, "Malformed method definition: %s", lang.PrStr(x))
			}
			name, ok := x.First().(*lang.Symbol)
			if !ok || name.Ns != "" {
				return nil, a.errorf(x, "Malformed method definition: %s", lang.PrStr(x))
			}
			if _, ok := x.Items()[1].(*lang.Vector); !ok {
				return nil, a.errorf(x, "Parameter declaration %s should be a vector", lang.PrStr(x.Items()[1]))
			}
			if _, ok := out.methods[name.Name]; !ok {
				out.names = append(out.names, name.Name)
			}
			out.methods[name.Name] = append(out.methods[name.Name], x)
		default:
			return nil, a.errorf(form, "Malformed type body: %s", lang.PrStr(form))
		}
	}
	if !out.open {
		for _, name := range out.names {
			if !out.declares(name) {
				return nil, a.errorf(out.methods[name][0], "Can't define method not in interfaces: %s", name)
			}
		}
	}
	return out, nil
}

func (s *impls) declares(method string) bool {
	for _, p := range s.protocols {
		if p.HasMethod(method) {
			return true
		}
	}
	return false
}

// extend registers fns, indexed like s.names, as the implementations of
// the declared protocols for td.
func (s *impls) extend(td *lang.TypeDef, fns []any) error {
	byName := make(map[string]any, len(fns))
	for i, fn := range fns {
		byName[s.names[i]] = fn
	}
	for _, p := range s.protocols {
		ms := make(map[string]any)
		for _, name := range p.Methods {
			if fn, ok := byName[name]; ok {
				ms[name] = fn
			}
		}
		if err := p.Extend(td, ms); err != nil {
			return err
		}
	}
	return nil
}

// analyzeMethods analyzes the arities of one method name into a unit.
func (a *analyzer) analyzeMethods(o *ObjExpr, env *localEnv, specs []*lang.List, def *lang.TypeDef) error {
	for _, spec := range specs {
		items := spec.Items()
		m, err := a.analyzeMethod(o, env, items[1].(*lang.Vector), items[2:], def)
		if err != nil {
			return err
		}
		if err := a.addMethod(o, m, spec); err != nil {
			return err
		}
	}
	return nil
}

func analyzeDeftype(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	return a.analyzeDeftype(form, false)
}

func analyzeDefrecord(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	return a.analyzeDeftype(form, true)
}

// analyzeDeftype defines a named type.  The type and its constructor
// functions exist once the form is analyzed so that later forms can refer to
// them.  Evaluating the form attaches the methods.
func (a *analyzer) analyzeDeftype(form *lang.List, record bool) (Expr, error) {
	items := form.Items()
	if len(items) < 3 {
		return nil, a.errorf(form, "Too few arguments to %s", items[0])
	}
	name, ok := items[1].(*lang.Symbol)
	if !ok || name.Ns != "" {
		return nil, a.errorf(form, "%s expects a simple symbol for its name", items[0])
	}
	vec, ok := items[2].(*lang.Vector)
	if !ok {
		return nil, a.errorf(form, "%s expects a vector of fields", items[0])
	}
	fields := make([]*lang.Symbol, vec.Count())
	seen := make(map[string]bool, vec.Count())
	for i, f := range vec.Items() {
		sym, err := a.bindingSymbol(f)
		if err != nil {
			return nil, err
		}
		if seen[sym.Name] {
			return nil, a.errorf(sym, "Duplicate field name: %s", sym.Name)
		}
		seen[sym.Name] = true
		fields[i] = sym
	}
	spec, err := a.parseImpls(items[3:])
	if err != nil {
		return nil, err
	}

	ns := a.rt.NS()
	td := lang.NewTypeDef(lang.NewSymbol(ns.Name, name.Name), fields, record)
	class := host.DefClass(td)
	// The class is visible to its own methods.  A type whose methods fail
	// to analyze is never defined.
	prev := ns.Lookup(name.Name)
	ns.Import(name.Name, class)
	fns, err := a.analyzeTypeMethods(ns, name.Name, td, spec)
	if err != nil {
		if prev == nil {
			ns.Unmap(name.Name)
		} else {
			ns.Import(name.Name, prev)
		}
		return nil, err
	}
	defineCtors(ns, td, name.Name)
	n := len(spec.names)
	register := lang.NewBuiltin(name.Name, n, n, func(fns []any) (any, error) {
		for i, fn := range fns {
			td.DefineMethod(spec.names[i], fn)
		}
		if err := spec.extend(td, fns); err != nil {
			return nil, err
		}
		return class, nil
	})
	a.c.log.WithField("type", td.String()).Debug("defined type")
	return &InvokeExpr{
		Fn:   &ConstantExpr{Val: register, Index: a.constant(register)},
		Args: fns,
		Loc:  form.Loc(),
	}, nil
}

func (a *analyzer) analyzeTypeMethods(ns *lang.Namespace, name string, td *lang.TypeDef, spec *impls) ([]Expr, error) {
	defer a.scope()()
	fns := make([]Expr, len(spec.names))
	for i, mname := range spec.names {
		o := newObjExpr(fmt.Sprintf("%s$%s$%s__%d", munge(ns.Name), munge(name), munge(mname), a.rt.GenID()), ns.Name, a.unit, a.tab)
		o.Loc = spec.methods[mname][0].Loc()
		o.IsDeftype = true
		o.def = td
		if err := a.analyzeMethods(o, nil, spec.methods[mname], td); err != nil {
			return nil, err
		}
		fns[i] = &FnExpr{Unit: o}
	}
	return fns, nil
}

// defineCtors binds ->Name, and map->Name for records, in ns.
func defineCtors(ns *lang.Namespace, td *lang.TypeDef, name string) {
	n := len(td.Fields)
	params := make([]any, n)
	for i, f := range td.Fields {
		params[i] = lang.NewSymbol("", f.Name)
	}
	pos := ns.Intern("->" + name)
	pos.BindRoot(lang.NewBuiltin("->"+name, n, n, func(args []any) (any, error) {
		return td.New(args...)
	}))
	pos.SetMeta(lang.NewMap(
		lang.KwName, lang.NewSymbol("", "->"+name),
		lang.KwArglists, lang.NewList(lang.NewVector(params...)),
		lang.KwDoc, fmt.Sprintf("Positional factory function for class %s.", td),
	))
	if !td.Record {
		return
	}
	byMap := ns.Intern("map->" + name)
	byMap.BindRoot(lang.NewBuiltin("map->"+name, 1, 1, func(args []any) (any, error) {
		m, ok := args[0].(*lang.Map)
		if !ok && args[0] != nil {
			return nil, &lang.ClassCastError{From: lang.ClassName(lang.ClassOf(args[0])), To: "Map"}
		}
		vals := make([]any, n)
		for i, f := range td.Fields {
			vals[i] = m.ValAt(lang.Intern("", f.Name))
		}
		return td.New(vals...)
	}))
	byMap.SetMeta(lang.NewMap(
		lang.KwName, lang.NewSymbol("", "map->"+name),
		lang.KwArglists, lang.NewList(lang.NewVector(lang.NewSymbol("", "m"))),
		lang.KwDoc, fmt.Sprintf("Factory function for class %s, taking a map of keywords to field values.", td),
	))
}

// analyzeReify creates an anonymous type whose methods are closures over
// the enclosing locals.  Each instance holds one closure per method name
// and the type's methods forward to them.
func analyzeReify(a *analyzer, ctx Context, form *lang.List) (Expr, error) {
	spec, err := a.parseImpls(form.Items()[1:])
	if err != nil {
		return nil, err
	}
	ns := a.rt.NS()
	base := fmt.Sprintf("reify__%d", a.rt.GenID())
	fields := make([]*lang.Symbol, len(spec.names))
	for i, name := range spec.names {
		fields[i] = lang.NewSymbol("", name)
	}
	td := lang.NewTypeDef(lang.NewSymbol(ns.Name, base), fields, false)
	for i, name := range spec.names {
		i := i
		td.DefineMethod(name, lang.NewBuiltin(name, 1, lang.Variadic, func(args []any) (any, error) {
			in, ok := args[0].(*lang.Instance)
			if !ok || in.Type != td {
				return nil, &lang.ClassCastError{From: lang.ClassName(lang.ClassOf(args[0])), To: td.String()}
			}
			return lang.Invoke(in.Fields[i], args...)
		}))
	}
	trampolines := make([]any, len(spec.names))
	for i, name := range spec.names {
		trampolines[i], _ = td.Method(name)
	}
	if err := spec.extend(td, trampolines); err != nil {
		return nil, a.wrap(form, "Unable to extend protocols", err)
	}

	defer a.scope()()
	fns := make([]Expr, len(spec.names))
	for i, mname := range spec.names {
		o := newObjExpr(fmt.Sprintf("%s$%s$%s__%d", munge(ns.Name), base, munge(mname), a.rt.GenID()), ns.Name, a.unit, a.tab)
		o.Loc = spec.methods[mname][0].Loc()
		o.IsReify = true
		if err := a.analyzeMethods(o, a.env, spec.methods[mname], nil); err != nil {
			return nil, err
		}
		fns[i] = &FnExpr{Unit: o}
	}
	return &DynamicNewExpr{Class: host.DefClass(td), Args: fns, Loc: form.Loc()}, nil
}
