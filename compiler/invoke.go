package compiler

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// InvokeExpr is a call of an arbitrary function value.
type InvokeExpr struct {
	Fn   Expr
	Args []Expr
	Tag  *host.Class
	Loc  *token.Location
}

func (e *InvokeExpr) Eval(f *Frame) (any, error) {
	fn, err := e.Fn.Eval(f)
	if err != nil {
		return nil, err
	}
	args, err := evalAll(f, e.Args)
	if err != nil {
		return nil, err
	}
	return lang.Invoke(fn, args...)
}

func (e *InvokeExpr) Emit(ctx Context, g *Gen) error {
	if err := e.Fn.Emit(Expression, g); err != nil {
		return err
	}
	if err := emitAll(g, e.Args); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitA(asm.INVOKE, len(e.Args))
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (e *InvokeExpr) HasType() bool     { return e.Tag != nil }
func (e *InvokeExpr) Type() *host.Class { return e.Tag }

// KeywordInvokeExpr is (:k target), looked up through a call site that
// remembers field positions of deftype instances.
type KeywordInvokeExpr struct {
	Kw     *lang.Keyword
	Target Expr
	Site   *lang.KeywordSite
	Index  int
	Loc    *token.Location
}

func (e *KeywordInvokeExpr) Eval(f *Frame) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	return e.Site.Get(target, nil), nil
}

func (e *KeywordInvokeExpr) Emit(ctx Context, g *Gen) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.INVOKEKW, B: e.Index})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*KeywordInvokeExpr) HasType() bool     { return false }
func (*KeywordInvokeExpr) Type() *host.Class { return nil }

// ProtocolInvokeExpr calls a protocol function through a dispatch cache.
// The function is still read from its Var on each call so redefinitions
// are observed.
type ProtocolInvokeExpr struct {
	Fn     Expr
	Target Expr
	Args   []Expr
	Site   *lang.ProtocolSite
	Index  int
	Loc    *token.Location
}

func (e *ProtocolInvokeExpr) Eval(f *Frame) (any, error) {
	fn, err := e.Fn.Eval(f)
	if err != nil {
		return nil, err
	}
	args, err := evalAll(f, append([]Expr{e.Target}, e.Args...))
	if err != nil {
		return nil, err
	}
	return e.Site.Call(fn, args)
}

func (e *ProtocolInvokeExpr) Emit(ctx Context, g *Gen) error {
	if err := e.Fn.Emit(Expression, g); err != nil {
		return err
	}
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	if err := emitAll(g, e.Args); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.INVOKEPROTO, A: 1 + len(e.Args), B: e.Index})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*ProtocolInvokeExpr) HasType() bool     { return false }
func (*ProtocolInvokeExpr) Type() *host.Class { return nil }

// StaticInvokeExpr calls the function bound to a Var through its primitive
// signature, passing and returning unboxed values.
type StaticInvokeExpr struct {
	Var   *lang.Var
	Index int
	Args  []Expr
	// Params holds the primitive class of each parameter or nil.
	Params []*host.Class
	// Ret is the primitive return class or nil.
	Ret *host.Class
	Loc *token.Location
}

func (e *StaticInvokeExpr) Eval(f *Frame) (any, error) {
	fn, err := e.Var.Get(f.rt)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(e.Args))
	for i, arg := range e.Args {
		if args[i], err = evalAs(f, arg, e.Params[i]); err != nil {
			return nil, err
		}
	}
	v, err := lang.Invoke(fn, args...)
	if err != nil {
		return nil, err
	}
	return coerce(v, nil, e.Ret)
}

func (e *StaticInvokeExpr) kinds() []asm.Kind {
	return asm.Kinds(e.Params)
}

func (e *StaticInvokeExpr) EmitUnboxed(ctx Context, g *Gen) error {
	g.b.EmitA(asm.GETVAR, e.Index)
	for i, arg := range e.Args {
		if err := g.emitAs(Expression, arg, e.Params[i]); err != nil {
			return err
		}
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.INVOKEPRIM, A: len(e.Args), X: e.kinds(), K: asm.KindOf(e.Ret)})
	return nil
}

func (e *StaticInvokeExpr) Emit(ctx Context, g *Gen) error {
	if err := e.EmitUnboxed(ctx, g); err != nil {
		return err
	}
	if ctx == Statement {
		g.b.Emit(asm.POP)
		return nil
	}
	g.box(e.Ret)
	return nil
}

func (e *StaticInvokeExpr) CanEmitPrimitive() bool { return e.Ret != nil }
func (e *StaticInvokeExpr) HasType() bool          { return e.Ret != nil }
func (e *StaticInvokeExpr) Type() *host.Class      { return e.Ret }
