package compiler

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
	"github.com/luthersystems/eclj/vm"
)

// capture is a binding stored in a field of a function.  A direct capture
// is referenced by the function's own code; other captures are only
// relayed to nested functions.
type capture struct {
	id     BindingID
	direct bool
}

// ObjExpr is a function unit: the code of a fn, deftype method or reify
// method together with the bindings it captures and its constant pool.
// Once analyzed, an ObjExpr is synthesized into at most one class.
type ObjExpr struct {
	Name     string
	Loc      *token.Location
	Methods  []*FnMethod
	Variadic *FnMethod
	Consts   *ConstantPool

	IsStatic  bool
	IsDeftype bool
	IsReify   bool

	ns       string
	parent   *ObjExpr
	tab      *bindingTable
	captures []capture
	// def is the type whose fields the unit's field bindings name.
	def *lang.TypeDef

	once  sync.Once
	class *asm.Class
	err   error
}

func newObjExpr(name, ns string, parent *ObjExpr, tab *bindingTable) *ObjExpr {
	return &ObjExpr{
		Name:   name,
		ns:     ns,
		parent: parent,
		tab:    tab,
		Consts: &ConstantPool{},
	}
}

func (o *ObjExpr) addCapture(id BindingID, direct bool) {
	for i := range o.captures {
		if o.captures[i].id == id {
			o.captures[i].direct = o.captures[i].direct || direct
			return
		}
	}
	o.captures = append(o.captures, capture{id: id, direct: direct})
}

// captureIndex returns the field holding binding id, or -1.
func (o *ObjExpr) captureIndex(id BindingID) int {
	for i, c := range o.captures {
		if c.id == id {
			return i
		}
	}
	return -1
}

// ClosesOver reports whether the unit's own code refers to binding id of
// an enclosing function.
func (o *ObjExpr) ClosesOver(id BindingID) bool {
	i := o.captureIndex(id)
	return i >= 0 && o.captures[i].direct
}

// Closed returns the bindings the unit's own code captures, in the order
// they were first referenced.
func (o *ObjExpr) Closed() []*LocalBinding {
	var out []*LocalBinding
	for _, c := range o.captures {
		if c.direct {
			out = append(out, o.tab.get(c.id))
		}
	}
	return out
}

// Captures returns every captured binding in field order, including those
// only relayed to nested functions.
func (o *ObjExpr) Captures() []*LocalBinding {
	out := make([]*LocalBinding, len(o.captures))
	for i, c := range o.captures {
		out[i] = o.tab.get(c.id)
	}
	return out
}

// Binding returns the binding with handle id.
func (o *ObjExpr) Binding(id BindingID) *LocalBinding {
	return o.tab.get(id)
}

// dispatch returns the method handling n arguments.
func (o *ObjExpr) dispatch(n int) *FnMethod {
	for _, m := range o.Methods {
		if !m.IsVariadic && m.Required == n {
			return m
		}
	}
	if o.Variadic != nil && n >= o.Variadic.Required {
		return o.Variadic
	}
	return nil
}

// FnMethod is one arity of a function.
type FnMethod struct {
	Params     []BindingID
	Required   int
	IsVariadic bool
	Body       Expr
	// ParamTypes holds the primitive class of each parameter or nil.
	ParamTypes []*host.Class
	// Ret is the primitive return class or nil.
	Ret *host.Class
	Loc *token.Location

	unit   *ObjExpr
	locals []BindingID
	recur  *recurTarget
}

// IsPrimitive reports whether the method passes unboxed values.
func (m *FnMethod) IsPrimitive() bool {
	if m.Ret != nil {
		return true
	}
	for _, t := range m.ParamTypes {
		if t != nil {
			return true
		}
	}
	return false
}

func (m *FnMethod) allocLocal(b *LocalBinding) {
	b.Idx = len(m.locals)
	m.locals = append(m.locals, b.ID)
}

func (m *FnMethod) methodName() string {
	switch {
	case m.IsVariadic:
		return vm.VariadicName
	case m.IsPrimitive():
		return vm.PrimName
	}
	return vm.InvokeName
}

func (m *FnMethod) paramKinds() []asm.Kind {
	ks := make([]asm.Kind, len(m.Params))
	for i := range m.Params {
		ks[i] = asm.KindOf(m.ParamTypes[i])
	}
	return ks
}

// FnExpr creates an instance of a function unit.
type FnExpr struct {
	Unit *ObjExpr
	Meta Expr
}

func (e *FnExpr) Eval(f *Frame) (any, error) {
	closed := make([]any, len(e.Unit.captures))
	for i, c := range e.Unit.captures {
		closed[i] = f.load(e.Unit.parent, c.id)
	}
	fn := &interpFn{fn: e.Unit, closed: closed, c: f.c}
	if e.Meta != nil {
		meta, err := e.Meta.Eval(f)
		if err != nil {
			return nil, err
		}
		fn.meta, _ = meta.(*lang.Map)
	}
	return fn, nil
}

func (e *FnExpr) Emit(ctx Context, g *Gen) error {
	if ctx == Statement {
		return nil
	}
	class, err := g.c.compileUnit(e.Unit)
	if err != nil {
		return err
	}
	idx := g.constant(class)
	hasMeta := 0
	if e.Meta != nil {
		if err := e.Meta.Emit(Expression, g); err != nil {
			return err
		}
		hasMeta = 1
	}
	for _, c := range e.Unit.captures {
		g.emitLoad(c.id)
	}
	g.b.EmitInstr(asm.Instr{Op: asm.NEWFN, A: idx, B: hasMeta})
	return nil
}

func (*FnExpr) HasType() bool     { return true }
func (*FnExpr) Type() *host.Class { return host.IFn }

// interpFn is a function created by evaluating a FnExpr without compiling
// it.
type interpFn struct {
	fn     *ObjExpr
	closed []any
	meta   *lang.Map
	c      *Compiler
}

func (fn *interpFn) String() string {
	return "#fn[" + fn.fn.Name + "]"
}

func (fn *interpFn) Info() *lang.FnInfo {
	return &lang.FnInfo{NS: fn.fn.ns, Name: fn.fn.Name, Source: fn.fn.Loc}
}

func (fn *interpFn) Meta() *lang.Map {
	return fn.meta
}

func (fn *interpFn) WithMeta(meta *lang.Map) any {
	cp := *fn
	cp.meta = meta
	return &cp
}

func (fn *interpFn) Invoke(args ...any) (any, error) {
	m := fn.fn.dispatch(len(args))
	if m == nil {
		return nil, &lang.WrongArityError{Name: fn.fn.Name, Count: len(args)}
	}
	rt := fn.c.rt
	if err := rt.Enter(); err != nil {
		return nil, err
	}
	defer rt.Leave()
	if p := rt.Profiler; p != nil && p.IsEnabled() {
		defer p.Start(fn.Info())()
	}
	f := newFrame(fn.c, len(m.locals), fn.closed, fn)
	for i := 0; i < m.Required; i++ {
		v, err := coerce(args[i], nil, m.ParamTypes[i])
		if err != nil {
			return nil, err
		}
		f.locals[i] = v
	}
	if m.IsVariadic && len(args) > m.Required {
		f.locals[m.Required] = lang.NewList(args[m.Required:]...)
	}
	for {
		v, err := m.Body.Eval(f)
		if err != nil {
			return nil, err
		}
		if v != recurMark {
			return coerce(v, primType(m.Body), m.Ret)
		}
	}
}

// compileUnit returns the class of o, synthesizing it on first use.
func (c *Compiler) compileUnit(o *ObjExpr) (*asm.Class, error) {
	o.once.Do(func() {
		o.class, o.err = c.buildUnit(o)
	})
	return o.class, o.err
}

func (c *Compiler) buildUnit(o *ObjExpr) (*asm.Class, error) {
	c.log.WithFields(logrus.Fields{
		"unit":     o.Name,
		"captures": len(o.captures),
		"methods":  len(o.Methods),
	}).Debug("synthesizing function class")
	tb, err := c.module.DefineType(o.Name)
	if err != nil {
		return nil, err
	}
	tb.SetSource(o.ns, o.Loc)
	for _, cp := range o.captures {
		b := o.tab.get(cp.id)
		tb.DefineField(b.Sym.Name, asm.KindOf(b.Prim))
	}
	for _, m := range o.Methods {
		if err := c.emitMethod(tb, o, m); err != nil {
			return nil, err
		}
	}
	tb.SetConsts(o.Consts.Values())
	return tb.CreateType()
}

func (c *Compiler) emitMethod(tb *asm.TypeBuilder, o *ObjExpr, m *FnMethod) error {
	mb := tb.DefineMethod(m.methodName(), m.paramKinds(), asm.KindOf(m.Ret))
	for _, id := range m.locals[len(m.Params):] {
		mb.DeclareLocal(asm.KindOf(o.tab.get(id).Prim))
	}
	g := &Gen{
		c:      c,
		unit:   o,
		method: m,
		b:      mb,
		loops:  make(map[*recurTarget]asm.Label),
	}
	g.line(m.Loc)
	head := mb.DefineLabel()
	mb.MarkLabel(head)
	g.loops[m.recur] = head
	if m.Ret == nil {
		if err := m.Body.Emit(Return, g); err != nil {
			return err
		}
		mb.EmitK(asm.RET, asm.Object)
		return nil
	}
	if err := g.emitAs(Return, m.Body, m.Ret); err != nil {
		return err
	}
	mb.EmitK(asm.RET, asm.KindOf(m.Ret))
	return nil
}
