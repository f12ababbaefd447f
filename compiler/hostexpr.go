package compiler

import (
	"fmt"

	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

func evalHostArgs(f *Frame, args []Expr, params []*host.Class) ([]any, error) {
	vals := make([]any, len(args))
	for i, arg := range args {
		v, err := evalAs(f, arg, params[i])
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func emitHostArgs(g *Gen, args []Expr, params []*host.Class) error {
	for i, arg := range args {
		if err := g.emitAs(Expression, arg, params[i]); err != nil {
			return err
		}
	}
	return nil
}

// resultType is the static type of a host member returning ret.  Void
// members produce nil.
func resultType(ret *host.Class) *host.Class {
	if ret == host.Void {
		return nil
	}
	return ret
}

// emitResult finishes an expression that left an unboxed value of class
// ret on the stack.
func emitResult(ctx Context, g *Gen, ret *host.Class) {
	if ctx == Statement {
		g.b.Emit(asm.POP)
		return
	}
	g.box(resultType(ret))
}

// StaticMethodExpr calls a static method resolved during analysis.  Methods
// with an intrinsic are emitted as the equivalent instructions.
type StaticMethodExpr struct {
	Method *host.Method
	Args   []Expr
	Loc    *token.Location

	value     []asm.Instr
	predicate []asm.Instr
}

func (e *StaticMethodExpr) Eval(f *Frame) (any, error) {
	args, err := evalHostArgs(f, e.Args, e.Method.Params)
	if err != nil {
		return nil, err
	}
	return e.Method.Call(args)
}

func (e *StaticMethodExpr) EmitUnboxed(ctx Context, g *Gen) error {
	if err := emitHostArgs(g, e.Args, e.Method.Params); err != nil {
		return err
	}
	g.line(e.Loc)
	if e.value != nil {
		emitInstrs(g, e.value)
		return nil
	}
	g.b.EmitX(asm.INVOKESTATIC, e.Method)
	return nil
}

func (e *StaticMethodExpr) Emit(ctx Context, g *Gen) error {
	if err := e.EmitUnboxed(ctx, g); err != nil {
		return err
	}
	emitResult(ctx, g, e.Method.Ret)
	return nil
}

func (e *StaticMethodExpr) canEmitPredicate() bool {
	return e.predicate != nil
}

func (e *StaticMethodExpr) emitPredicate(g *Gen, falseLabel asm.Label) error {
	if err := emitHostArgs(g, e.Args, e.Method.Params); err != nil {
		return err
	}
	g.line(e.Loc)
	emitPredicateInstrs(g, e.predicate, falseLabel)
	return nil
}

func (e *StaticMethodExpr) CanEmitPrimitive() bool {
	return resultType(e.Method.Ret).IsPrimitive()
}

func (*StaticMethodExpr) HasType() bool       { return true }
func (e *StaticMethodExpr) Type() *host.Class { return resultType(e.Method.Ret) }

// InstanceMethodExpr calls a method of a target whose class is known.
type InstanceMethodExpr struct {
	Target Expr
	Method *host.Method
	Args   []Expr
	Loc    *token.Location
}

func (e *InstanceMethodExpr) Eval(f *Frame) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, &lang.IllegalStateError{Msg: fmt.Sprintf("Cannot invoke method %s on nil", e.Method.Name)}
	}
	args, err := evalHostArgs(f, e.Args, e.Method.Params)
	if err != nil {
		return nil, err
	}
	return e.Method.Call(append([]any{target}, args...))
}

func (e *InstanceMethodExpr) EmitUnboxed(ctx Context, g *Gen) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	if err := emitHostArgs(g, e.Args, e.Method.Params); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitX(asm.INVOKEINST, e.Method)
	return nil
}

func (e *InstanceMethodExpr) Emit(ctx Context, g *Gen) error {
	if err := e.EmitUnboxed(ctx, g); err != nil {
		return err
	}
	emitResult(ctx, g, e.Method.Ret)
	return nil
}

func (e *InstanceMethodExpr) CanEmitPrimitive() bool {
	return resultType(e.Method.Ret).IsPrimitive()
}

func (*InstanceMethodExpr) HasType() bool       { return true }
func (e *InstanceMethodExpr) Type() *host.Class { return resultType(e.Method.Ret) }

// DynamicMethodExpr calls a method resolved from the runtime class of the
// target.
type DynamicMethodExpr struct {
	Target Expr
	Name   string
	Args   []Expr
	Loc    *token.Location
}

func (e *DynamicMethodExpr) Eval(f *Frame) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	args, err := evalAll(f, e.Args)
	if err != nil {
		return nil, err
	}
	return host.InvokeMethod(target, e.Name, args)
}

func (e *DynamicMethodExpr) Emit(ctx Context, g *Gen) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	if err := emitAll(g, e.Args); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.INVOKEDYN, S: e.Name, A: len(e.Args)})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*DynamicMethodExpr) HasType() bool     { return false }
func (*DynamicMethodExpr) Type() *host.Class { return nil }

// DynamicStaticExpr calls a static method whose overload is chosen from
// the runtime classes of the arguments.
type DynamicStaticExpr struct {
	Class *host.Class
	Name  string
	Args  []Expr
	Loc   *token.Location
}

func (e *DynamicStaticExpr) Eval(f *Frame) (any, error) {
	args, err := evalAll(f, e.Args)
	if err != nil {
		return nil, err
	}
	return host.InvokeStatic(e.Class, e.Name, args)
}

func (e *DynamicStaticExpr) Emit(ctx Context, g *Gen) error {
	if err := emitAll(g, e.Args); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.INVOKESTATICDYN, X: e.Class, S: e.Name, A: len(e.Args)})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*DynamicStaticExpr) HasType() bool     { return false }
func (*DynamicStaticExpr) Type() *host.Class { return nil }

// StaticFieldExpr reads a static field.
type StaticFieldExpr struct {
	Field *host.Field
	Loc   *token.Location
}

func (e *StaticFieldExpr) Eval(*Frame) (any, error) {
	return e.Field.Get(nil)
}

func (e *StaticFieldExpr) EmitUnboxed(ctx Context, g *Gen) error {
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.GETSTATIC, X: e.Field, K: asm.KindOf(e.Field.Type)})
	return nil
}

func (e *StaticFieldExpr) Emit(ctx Context, g *Gen) error {
	if ctx == Statement {
		return nil
	}
	return emitPrimitive(ctx, g, e)
}

func (e *StaticFieldExpr) CanEmitPrimitive() bool { return e.Field.Type.IsPrimitive() }
func (*StaticFieldExpr) HasType() bool            { return true }
func (e *StaticFieldExpr) Type() *host.Class      { return e.Field.Type }

// InstanceFieldExpr reads a field of a target whose class is known.
type InstanceFieldExpr struct {
	Target Expr
	Field  *host.Field
	Loc    *token.Location
}

func (e *InstanceFieldExpr) kind() asm.Kind {
	return asm.KindOf(e.Field.Type)
}

func (e *InstanceFieldExpr) Eval(f *Frame) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, &lang.IllegalStateError{Msg: fmt.Sprintf("Cannot read field %s of nil", e.Field.Name)}
	}
	return e.Field.Get(target)
}

func (e *InstanceFieldExpr) EmitUnboxed(ctx Context, g *Gen) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.GETFIELD, X: e.Field, K: e.kind()})
	return nil
}

func (e *InstanceFieldExpr) Emit(ctx Context, g *Gen) error {
	return emitPrimitive(ctx, g, e)
}

func (e *InstanceFieldExpr) EvalAssign(f *Frame, val Expr) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	v, err := evalAs(f, val, e.Field.Type)
	if err != nil {
		return nil, err
	}
	if err := e.Field.Set(target, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *InstanceFieldExpr) EmitAssign(ctx Context, g *Gen, val Expr) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	if err := g.emitAs(Expression, val, e.Field.Type); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.SETFIELD, X: e.Field, K: e.kind()})
	emitResult(ctx, g, e.Field.Type)
	return nil
}

func (e *InstanceFieldExpr) CanEmitPrimitive() bool { return e.Field.Type.IsPrimitive() }
func (*InstanceFieldExpr) HasType() bool            { return true }
func (e *InstanceFieldExpr) Type() *host.Class      { return e.Field.Type }

// DynamicFieldExpr reads a field found from the runtime class of the
// target.
type DynamicFieldExpr struct {
	Target Expr
	Name   string
	Loc    *token.Location
}

func (e *DynamicFieldExpr) Eval(f *Frame) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	return host.GetField(target, e.Name)
}

func (e *DynamicFieldExpr) Emit(ctx Context, g *Gen) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.GETFIELDDYN, S: e.Name})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (e *DynamicFieldExpr) EvalAssign(f *Frame, val Expr) (any, error) {
	target, err := e.Target.Eval(f)
	if err != nil {
		return nil, err
	}
	v, err := val.Eval(f)
	if err != nil {
		return nil, err
	}
	if err := host.SetField(target, e.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *DynamicFieldExpr) EmitAssign(ctx Context, g *Gen, val Expr) error {
	if err := e.Target.Emit(Expression, g); err != nil {
		return err
	}
	if err := val.Emit(Expression, g); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.SETFIELDDYN, S: e.Name})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*DynamicFieldExpr) HasType() bool     { return false }
func (*DynamicFieldExpr) Type() *host.Class { return nil }

// NewExpr calls a constructor resolved during analysis.
type NewExpr struct {
	Ctor *host.Method
	Args []Expr
	Loc  *token.Location
}

func (e *NewExpr) Eval(f *Frame) (any, error) {
	args, err := evalHostArgs(f, e.Args, e.Ctor.Params)
	if err != nil {
		return nil, err
	}
	return e.Ctor.Call(args)
}

func (e *NewExpr) Emit(ctx Context, g *Gen) error {
	if err := emitHostArgs(g, e.Args, e.Ctor.Params); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitX(asm.NEW, e.Ctor)
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*NewExpr) HasType() bool       { return true }
func (e *NewExpr) Type() *host.Class { return e.Ctor.Class }

// DynamicNewExpr constructs a value of a class choosing the constructor at
// runtime.  Instances of deftype classes are always built this way.
type DynamicNewExpr struct {
	Class *host.Class
	Args  []Expr
	Loc   *token.Location
}

func (e *DynamicNewExpr) Eval(f *Frame) (any, error) {
	args, err := evalAll(f, e.Args)
	if err != nil {
		return nil, err
	}
	return host.New(e.Class, args)
}

func (e *DynamicNewExpr) Emit(ctx Context, g *Gen) error {
	if err := emitAll(g, e.Args); err != nil {
		return err
	}
	g.line(e.Loc)
	g.b.EmitInstr(asm.Instr{Op: asm.NEWDYN, X: e.Class, A: len(e.Args)})
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (e *DynamicNewExpr) HasType() bool     { return e.Class.Def != nil }
func (e *DynamicNewExpr) Type() *host.Class { return e.Class }

// InstanceOfExpr is (instance? Class x).
type InstanceOfExpr struct {
	Class *host.Class
	Expr  Expr
}

func (e *InstanceOfExpr) Eval(f *Frame) (any, error) {
	v, err := e.Expr.Eval(f)
	if err != nil {
		return nil, err
	}
	return e.Class.IsInstance(v), nil
}

func (e *InstanceOfExpr) EmitUnboxed(ctx Context, g *Gen) error {
	if err := e.Expr.Emit(Expression, g); err != nil {
		return err
	}
	g.b.EmitX(asm.INSTANCEOF, e.Class)
	return nil
}

func (e *InstanceOfExpr) Emit(ctx Context, g *Gen) error {
	return emitPrimitive(ctx, g, e)
}

func (*InstanceOfExpr) CanEmitPrimitive() bool { return true }
func (*InstanceOfExpr) HasType() bool          { return true }
func (*InstanceOfExpr) Type() *host.Class      { return host.Bool }
