package compiler

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
	"github.com/luthersystems/eclj/vm"
)

// Expr is an analyzed expression.  An Expr can be evaluated directly
// against a Frame or emitted as code into the method being generated.
//
// Emit leaves a single boxed value on the operand stack unless ctx is
// Statement, in which case it leaves nothing.
type Expr interface {
	Eval(f *Frame) (any, error)
	Emit(ctx Context, g *Gen) error
	// HasType reports whether the type of the expression is known
	// statically.  A known type of nil means the expression is nil.
	HasType() bool
	Type() *host.Class
}

// MaybePrimitiveExpr is implemented by expressions that can produce an
// unboxed value of their primitive Type.
type MaybePrimitiveExpr interface {
	Expr
	CanEmitPrimitive() bool
	// EmitUnboxed leaves an unboxed value of the kind of Type().
	EmitUnboxed(ctx Context, g *Gen) error
}

// AssignableExpr is implemented by valid set! targets.
type AssignableExpr interface {
	Expr
	EvalAssign(f *Frame, val Expr) (any, error)
	EmitAssign(ctx Context, g *Gen, val Expr) error
}

// recurClass is the type of a recur expression.  Branches of type recur do
// not constrain the type of an if.
var recurClass = host.NewClass("recur", nil)

// staticType returns the known type of e, or nil.
func staticType(e Expr) *host.Class {
	if e.HasType() {
		return e.Type()
	}
	return nil
}

// primType returns the primitive type e can be emitted as, or nil.
func primType(e Expr) *host.Class {
	mp, ok := e.(MaybePrimitiveExpr)
	if !ok || !mp.CanEmitPrimitive() || !mp.HasType() {
		return nil
	}
	if t := mp.Type(); t.IsPrimitive() {
		return t
	}
	return nil
}

// argType returns the class used to resolve overloads for an argument.
func argType(e Expr) *host.Class {
	if t := primType(e); t != nil {
		return t
	}
	t := staticType(e)
	if t == recurClass {
		return nil
	}
	return t.Boxed()
}

// widening reports whether a primitive of class from converts to to without
// loss of range.
func widening(from, to *host.Class) bool {
	switch {
	case from == to:
		return true
	case to == host.Long:
		return from == host.Int
	case to == host.Double:
		return from == host.Float || from == host.Long || from == host.Int
	}
	return false
}

// widenOp returns the instruction widening from to to, or NOP.
func widenOp(from, to *host.Class) asm.Op {
	switch {
	case from == host.Int && to == host.Long:
		return asm.I2L
	case from == host.Int && to == host.Double:
		return asm.I2D
	case from == host.Long && to == host.Double:
		return asm.L2D
	case from == host.Float && to == host.Double:
		return asm.F2D
	}
	return asm.NOP
}

// widenValue applies a widening conversion to a boxed primitive.
func widenValue(v any, to *host.Class) any {
	switch to {
	case host.Long:
		if x, ok := v.(int32); ok {
			return int64(x)
		}
	case host.Double:
		switch x := v.(type) {
		case int64:
			return float64(x)
		case int32:
			return float64(x)
		case float32:
			return float64(x)
		}
	}
	return v
}

// coerce converts the boxed value v of static class from into a value of
// class to, with the semantics of emitAs.
func coerce(v any, from, to *host.Class) (any, error) {
	if to == nil || !to.IsPrimitive() {
		return v, nil
	}
	if from.IsPrimitive() && widening(from, to) {
		return widenValue(v, to), nil
	}
	k := asm.KindOf(to)
	s, err := vm.Unbox(v, k)
	if err != nil {
		return nil, err
	}
	return vm.Box(s, k), nil
}

// evalAs evaluates e and converts the result to class to.
func evalAs(f *Frame, e Expr, to *host.Class) (any, error) {
	v, err := e.Eval(f)
	if err != nil || v == recurMark {
		return v, err
	}
	return coerce(v, primType(e), to)
}

// recurSignal is returned by Eval of a recur expression.  Loops and method
// bodies restart when they receive it.
type recurSignal struct{}

var recurMark any = &recurSignal{}

// Frame holds the state of one interpreted method invocation.
type Frame struct {
	rt     *lang.Runtime
	c      *Compiler
	locals []any
	closed []any
	self   any
}

func newFrame(c *Compiler, nlocals int, closed []any, self any) *Frame {
	return &Frame{
		rt:     c.rt,
		c:      c,
		locals: make([]any, nlocals),
		closed: closed,
		self:   self,
	}
}

// Runtime returns the runtime the frame executes against.
func (f *Frame) Runtime() *lang.Runtime {
	return f.rt
}

// Gen is the state of code generation for one method.
type Gen struct {
	c      *Compiler
	unit   *ObjExpr
	method *FnMethod
	b      *asm.MethodBuilder
	loops  map[*recurTarget]asm.Label
}

// Builder returns the method builder receiving instructions.
func (g *Gen) Builder() *asm.MethodBuilder {
	return g.b
}

func (g *Gen) constant(v any) int {
	return g.unit.Consts.Index(v)
}

func (g *Gen) line(loc *token.Location) {
	if loc != nil && loc.Line > 0 {
		g.b.SetLine(loc.Line)
	}
}

// box converts the unboxed value of class t on the stack to an object.
func (g *Gen) box(t *host.Class) {
	if k := asm.KindOf(t); k.IsPrimitive() {
		g.b.EmitK(asm.BOX, k)
	}
}

// emitAs leaves the value of e on the stack represented as class want:
// unboxed when want is primitive, boxed otherwise.  ctx must not be
// Statement.
func (g *Gen) emitAs(ctx Context, e Expr, want *host.Class) error {
	if want == nil || !want.IsPrimitive() {
		return e.Emit(ctx, g)
	}
	have := primType(e)
	if have != nil && widening(have, want) {
		if err := e.(MaybePrimitiveExpr).EmitUnboxed(ctx, g); err != nil {
			return err
		}
		if op := widenOp(have, want); op != asm.NOP {
			g.b.Emit(op)
		}
		return nil
	}
	if err := e.Emit(ctx, g); err != nil {
		return err
	}
	g.b.EmitK(asm.UNBOX, asm.KindOf(want))
	return nil
}

// emitPrimitive implements Emit for expressions that also implement
// EmitUnboxed.
func emitPrimitive(ctx Context, g *Gen, e MaybePrimitiveExpr) error {
	if err := e.EmitUnboxed(ctx, g); err != nil {
		return err
	}
	if ctx == Statement {
		g.b.Emit(asm.POP)
		return nil
	}
	g.box(e.Type())
	return nil
}

// emitLoad pushes the value of binding id as stored: unboxed for primitive
// bindings.
func (g *Gen) emitLoad(id BindingID) {
	b := g.unit.tab.get(id)
	switch {
	case b.unit != g.unit:
		g.b.EmitA(asm.LDFLD, g.unit.captureIndex(id))
	case b.IsThis:
		g.b.Emit(asm.LDTHIS)
	case b.IsField():
		g.emitLoad(b.this)
		g.b.EmitInstr(asm.Instr{Op: asm.GETFIELD, X: fieldOf(b), K: asm.Object})
	default:
		g.b.EmitLocal(asm.LDLOC, b.Idx)
	}
}

// load returns the value of binding id in f.
func (f *Frame) load(unit *ObjExpr, id BindingID) any {
	b := unit.tab.get(id)
	switch {
	case b.unit != unit:
		return f.closed[unit.captureIndex(id)]
	case b.IsThis:
		return f.self
	case b.IsField():
		return f.load(unit, b.this).(*lang.Instance).Fields[b.Field]
	}
	return f.locals[b.Idx]
}

func fieldOf(b *LocalBinding) *host.Field {
	return host.DefClass(b.unit.def).Field(b.Sym.Name)
}
