package compiler

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
)

// NilExpr is the literal nil.
type NilExpr struct{}

func (*NilExpr) Eval(*Frame) (any, error) { return nil, nil }

func (*NilExpr) Emit(ctx Context, g *Gen) error {
	if ctx != Statement {
		g.b.Emit(asm.LDNULL)
	}
	return nil
}

func (*NilExpr) HasType() bool     { return true }
func (*NilExpr) Type() *host.Class { return nil }

// BooleanExpr is the literal true or false.
type BooleanExpr struct {
	Val bool
}

func (e *BooleanExpr) Eval(*Frame) (any, error) { return e.Val, nil }

func (e *BooleanExpr) Emit(ctx Context, g *Gen) error {
	if ctx == Statement {
		return nil
	}
	g.b.EmitA(asm.LDC, g.constant(e.Val))
	return nil
}

func (*BooleanExpr) HasType() bool     { return true }
func (*BooleanExpr) Type() *host.Class { return host.BoxedBool }

// NumberExpr is a numeric literal.  Integers are longs and floating point
// numbers are doubles; both are emitted unboxed when possible.
type NumberExpr struct {
	Val   any
	Index int
}

func (e *NumberExpr) Eval(*Frame) (any, error) { return e.Val, nil }

func (e *NumberExpr) Emit(ctx Context, g *Gen) error {
	if ctx == Statement {
		return nil
	}
	g.b.EmitA(asm.LDC, e.Index)
	return nil
}

func (e *NumberExpr) EmitUnboxed(ctx Context, g *Gen) error {
	g.b.EmitInstr(asm.Instr{Op: asm.LDCPRIM, A: e.Index, K: asm.KindOf(e.Type())})
	return nil
}

func (e *NumberExpr) CanEmitPrimitive() bool { return e.Type().IsPrimitive() }
func (*NumberExpr) HasType() bool            { return true }

func (e *NumberExpr) Type() *host.Class {
	switch e.Val.(type) {
	case int64:
		return host.Long
	case float64:
		return host.Double
	case int32:
		return host.Int
	case float32:
		return host.Float
	}
	return host.ClassOfValue(e.Val)
}

// StringExpr is a string literal.
type StringExpr struct {
	Val   string
	Index int
}

func (e *StringExpr) Eval(*Frame) (any, error) { return e.Val, nil }

func (e *StringExpr) Emit(ctx Context, g *Gen) error {
	if ctx != Statement {
		g.b.EmitA(asm.LDC, e.Index)
	}
	return nil
}

func (*StringExpr) HasType() bool     { return true }
func (*StringExpr) Type() *host.Class { return host.String }

// KeywordExpr is a keyword literal.
type KeywordExpr struct {
	Kw    *lang.Keyword
	Index int
}

func (e *KeywordExpr) Eval(*Frame) (any, error) { return e.Kw, nil }

func (e *KeywordExpr) Emit(ctx Context, g *Gen) error {
	if ctx != Statement {
		g.b.EmitA(asm.LDC, e.Index)
	}
	return nil
}

func (*KeywordExpr) HasType() bool     { return true }
func (*KeywordExpr) Type() *host.Class { return host.Keyword }

// ConstantExpr is a quoted form or another value stored in the constant
// pool.
type ConstantExpr struct {
	Val   any
	Index int
}

func (e *ConstantExpr) Eval(*Frame) (any, error) { return e.Val, nil }

func (e *ConstantExpr) Emit(ctx Context, g *Gen) error {
	if ctx != Statement {
		g.b.EmitA(asm.LDC, e.Index)
	}
	return nil
}

func (e *ConstantExpr) HasType() bool {
	_, isClass := e.Val.(*host.Class)
	return e.Val != nil && !isClass
}

func (e *ConstantExpr) Type() *host.Class {
	return host.ClassOfValue(e.Val)
}

// EmptyExpr is an empty collection literal.
type EmptyExpr struct {
	Coll  any
	Index int
}

func (e *EmptyExpr) Eval(*Frame) (any, error) { return e.Coll, nil }

func (e *EmptyExpr) Emit(ctx Context, g *Gen) error {
	if ctx != Statement {
		g.b.EmitA(asm.LDC, e.Index)
	}
	return nil
}

func (*EmptyExpr) HasType() bool       { return true }
func (e *EmptyExpr) Type() *host.Class { return host.ClassOfValue(e.Coll) }

// VectorExpr is a vector literal with at least one non-constant element.
type VectorExpr struct {
	Items []Expr
}

func (e *VectorExpr) Eval(f *Frame) (any, error) {
	items, err := evalAll(f, e.Items)
	if err != nil {
		return nil, err
	}
	return lang.NewVector(items...), nil
}

func (e *VectorExpr) Emit(ctx Context, g *Gen) error {
	if err := emitAll(g, e.Items); err != nil {
		return err
	}
	g.b.EmitA(asm.MKVEC, len(e.Items))
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*VectorExpr) HasType() bool     { return true }
func (*VectorExpr) Type() *host.Class { return host.Vector }

// MapExpr is a map literal with at least one non-constant key or value.
type MapExpr struct {
	Keys []Expr
	Vals []Expr
}

func (e *MapExpr) Eval(f *Frame) (any, error) {
	kvs := make([]any, 0, 2*len(e.Keys))
	for i := range e.Keys {
		k, err := e.Keys[i].Eval(f)
		if err != nil {
			return nil, err
		}
		v, err := e.Vals[i].Eval(f)
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, k, v)
	}
	return lang.NewMap(kvs...), nil
}

func (e *MapExpr) Emit(ctx Context, g *Gen) error {
	for i := range e.Keys {
		if err := e.Keys[i].Emit(Expression, g); err != nil {
			return err
		}
		if err := e.Vals[i].Emit(Expression, g); err != nil {
			return err
		}
	}
	g.b.EmitA(asm.MKMAP, len(e.Keys))
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*MapExpr) HasType() bool     { return true }
func (*MapExpr) Type() *host.Class { return host.Map }

// SetExpr is a set literal with at least one non-constant element.
type SetExpr struct {
	Items []Expr
}

func (e *SetExpr) Eval(f *Frame) (any, error) {
	items, err := evalAll(f, e.Items)
	if err != nil {
		return nil, err
	}
	return lang.NewSet(items...), nil
}

func (e *SetExpr) Emit(ctx Context, g *Gen) error {
	if err := emitAll(g, e.Items); err != nil {
		return err
	}
	g.b.EmitA(asm.MKSET, len(e.Items))
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (*SetExpr) HasType() bool     { return true }
func (*SetExpr) Type() *host.Class { return host.Set }

// MetaExpr attaches metadata to the value of a collection literal.
type MetaExpr struct {
	Expr Expr
	Meta *MapExpr
}

func (e *MetaExpr) Eval(f *Frame) (any, error) {
	v, err := e.Expr.Eval(f)
	if err != nil {
		return nil, err
	}
	meta, err := e.Meta.Eval(f)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(lang.IObj)
	if !ok {
		return nil, &lang.ClassCastError{From: lang.TypeName(v), To: "IObj"}
	}
	return obj.WithMeta(meta.(*lang.Map)), nil
}

func (e *MetaExpr) Emit(ctx Context, g *Gen) error {
	if err := e.Expr.Emit(Expression, g); err != nil {
		return err
	}
	if err := e.Meta.Emit(Expression, g); err != nil {
		return err
	}
	g.b.Emit(asm.WITHMETA)
	if ctx == Statement {
		g.b.Emit(asm.POP)
	}
	return nil
}

func (e *MetaExpr) HasType() bool     { return e.Expr.HasType() }
func (e *MetaExpr) Type() *host.Class { return e.Expr.Type() }

func evalAll(f *Frame, exprs []Expr) ([]any, error) {
	vals := make([]any, len(exprs))
	for i, e := range exprs {
		v, err := e.Eval(f)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func emitAll(g *Gen, exprs []Expr) error {
	for _, e := range exprs {
		if err := e.Emit(Expression, g); err != nil {
			return err
		}
	}
	return nil
}
