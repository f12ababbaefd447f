package compiler

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// LocalBindingExpr is a reference to a local binding.  References made from
// a function nested inside the binding's owner read the captured copy.
type LocalBindingExpr struct {
	ID  BindingID
	Tag *host.Class
	Loc *token.Location

	unit *ObjExpr
}

// Binding returns the referenced binding.
func (e *LocalBindingExpr) Binding() *LocalBinding {
	return e.unit.tab.get(e.ID)
}

func (e *LocalBindingExpr) Eval(f *Frame) (any, error) {
	return f.load(e.unit, e.ID), nil
}

func (e *LocalBindingExpr) Emit(ctx Context, g *Gen) error {
	if ctx == Statement {
		return nil
	}
	g.emitLoad(e.ID)
	g.box(e.Binding().Prim)
	return nil
}

func (e *LocalBindingExpr) CanEmitPrimitive() bool {
	return e.Tag == nil && e.Binding().Prim != nil
}

func (e *LocalBindingExpr) EmitUnboxed(ctx Context, g *Gen) error {
	g.emitLoad(e.ID)
	return nil
}

func (e *LocalBindingExpr) HasType() bool {
	return e.Type() != nil
}

func (e *LocalBindingExpr) Type() *host.Class {
	if e.Tag != nil {
		return e.Tag
	}
	return e.Binding().Type()
}

// EvalAssign sets a mutable deftype field.
func (e *LocalBindingExpr) EvalAssign(f *Frame, val Expr) (any, error) {
	b := e.Binding()
	v, err := val.Eval(f)
	if err != nil {
		return nil, err
	}
	in := f.load(e.unit, b.this).(*lang.Instance)
	if err := in.SetField(b.Field, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *LocalBindingExpr) EmitAssign(ctx Context, g *Gen, val Expr) error {
	b := e.Binding()
	g.emitLoad(b.this)
	if err := val.Emit(Expression, g); err != nil {
		return err
	}
	g.b.EmitInstr(asm.Instr{Op: asm.SETFIELD, X: fieldOf(b), K: asm.Object})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

// VarExpr is a reference to the value of a Var.
type VarExpr struct {
	Var   *lang.Var
	Tag   *host.Class
	Index int
}

func (e *VarExpr) Eval(f *Frame) (any, error) {
	return e.Var.Get(f.rt)
}

func (e *VarExpr) Emit(ctx Context, g *Gen) error {
	g.b.EmitA(asm.GETVAR, e.Index)
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (e *VarExpr) HasType() bool     { return e.Tag != nil }
func (e *VarExpr) Type() *host.Class { return e.Tag }

// EvalAssign sets the thread binding of a dynamic Var.
func (e *VarExpr) EvalAssign(f *Frame, val Expr) (any, error) {
	v, err := val.Eval(f)
	if err != nil {
		return nil, err
	}
	if err := e.Var.Set(f.rt, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *VarExpr) EmitAssign(ctx Context, g *Gen, val Expr) error {
	if err := val.Emit(Expression, g); err != nil {
		return err
	}
	g.b.EmitA(asm.SETVAR, e.Index)
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

// TheVarExpr is (var sym): the Var itself.
type TheVarExpr struct {
	Var   *lang.Var
	Index int
}

func (e *TheVarExpr) Eval(*Frame) (any, error) { return e.Var, nil }

func (e *TheVarExpr) Emit(ctx Context, g *Gen) error {
	if ctx != Statement {
		g.b.EmitA(asm.LDC, e.Index)
	}
	return nil
}

func (*TheVarExpr) HasType() bool     { return true }
func (*TheVarExpr) Type() *host.Class { return host.Var }
