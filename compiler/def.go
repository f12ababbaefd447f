package compiler

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// DefExpr interns a Var and binds its root.  The Var and its metadata are
// created during analysis so later forms can resolve it.
type DefExpr struct {
	Var   *lang.Var
	Index int
	// Init is nil for (def sym), which leaves the root untouched.
	Init Expr
	Loc  *token.Location
}

func (e *DefExpr) Eval(f *Frame) (any, error) {
	if e.Init != nil {
		v, err := e.Init.Eval(f)
		if err != nil {
			return nil, err
		}
		e.Var.BindRoot(v)
	}
	return e.Var, nil
}

func (e *DefExpr) Emit(ctx Context, g *Gen) error {
	g.line(e.Loc)
	if e.Init != nil {
		if err := e.Init.Emit(Expression, g); err != nil {
			return err
		}
		g.b.EmitA(asm.DEFVAR, e.Index)
	} else {
		g.b.EmitA(asm.LDC, e.Index)
	}
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*DefExpr) HasType() bool     { return true }
func (*DefExpr) Type() *host.Class { return host.Var }

// AssignExpr is (set! target val).
type AssignExpr struct {
	Target AssignableExpr
	Val    Expr
}

func (e *AssignExpr) Eval(f *Frame) (any, error) {
	return e.Target.EvalAssign(f, e.Val)
}

func (e *AssignExpr) Emit(ctx Context, g *Gen) error {
	return e.Target.EmitAssign(ctx, g, e.Val)
}

func (e *AssignExpr) HasType() bool     { return e.Val.HasType() && !e.Val.Type().IsPrimitive() }
func (e *AssignExpr) Type() *host.Class { return e.Val.Type() }

// BindingExpr establishes thread bindings of dynamic Vars around a body.
type BindingExpr struct {
	Vars  []*lang.Var
	Index []int
	Vals  []Expr
	Body  Expr
	Loc   *token.Location
}

func (e *BindingExpr) Eval(f *Frame) (any, error) {
	vals, err := evalAll(f, e.Vals)
	if err != nil {
		return nil, err
	}
	if err := f.rt.PushBindings(e.Vars, vals); err != nil {
		return nil, err
	}
	defer f.rt.PopBindings()
	return e.Body.Eval(f)
}

// Emit pops the bindings on every exit from the body.  A binding form is
// only analyzed in tail position so the stack is empty when a handler
// runs.
func (e *BindingExpr) Emit(ctx Context, g *Gen) error {
	g.line(e.Loc)
	b := g.b
	for i, v := range e.Vals {
		b.EmitA(asm.LDC, e.Index[i])
		if err := v.Emit(Expression, g); err != nil {
			return err
		}
	}
	b.EmitA(asm.BINDPUSH, len(e.Vars))

	ret := b.DeclareLocal(asm.Object)
	start, end, done, handler := b.DefineLabel(), b.DefineLabel(), b.DefineLabel(), b.DefineLabel()
	b.MarkLabel(start)
	if err := e.Body.Emit(Expression, g); err != nil {
		return err
	}
	b.EmitLocal(asm.STLOC, ret)
	b.MarkLabel(end)
	b.Emit(asm.BINDPOP)
	b.EmitBranch(asm.BR, done)

	b.AddHandler(start, end, handler, nil)
	b.MarkLabel(handler)
	tmp := b.DeclareLocal(asm.Object)
	b.EmitLocal(asm.STLOC, tmp)
	b.Emit(asm.BINDPOP)
	b.EmitLocal(asm.LDLOC, tmp)
	b.Emit(asm.THROW)

	b.MarkLabel(done)
	if ctx != Statement {
		b.EmitLocal(asm.LDLOC, ret)
	}
	return nil
}

func (*BindingExpr) HasType() bool     { return false }
func (*BindingExpr) Type() *host.Class { return nil }

// HostCallExpr invokes a Go function stored in the constant pool with no
// arguments.  It carries the runtime effect of forms whose work happens
// when they are reached: import, deftype registration and the like.
type HostCallExpr struct {
	Fn    *lang.Builtin
	Index int
	// Class is the static type of the result, if known.
	Class *host.Class
}

func (e *HostCallExpr) Eval(*Frame) (any, error) {
	return e.Fn.Invoke()
}

func (e *HostCallExpr) Emit(ctx Context, g *Gen) error {
	g.b.EmitA(asm.LDC, e.Index)
	g.b.EmitA(asm.INVOKE, 0)
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (e *HostCallExpr) HasType() bool     { return e.Class != nil }
func (e *HostCallExpr) Type() *host.Class { return e.Class }
