package compiler

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// BodyExpr is a sequence of expressions evaluated for the value of the
// last.  It is never empty.
type BodyExpr struct {
	Exprs []Expr
}

func (e *BodyExpr) last() Expr {
	return e.Exprs[len(e.Exprs)-1]
}

func (e *BodyExpr) Eval(f *Frame) (any, error) {
	var v any
	for _, x := range e.Exprs {
		var err error
		v, err = x.Eval(f)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (e *BodyExpr) emitStatements(g *Gen) error {
	for _, x := range e.Exprs[:len(e.Exprs)-1] {
		if err := x.Emit(Statement, g); err != nil {
			return err
		}
	}
	return nil
}

func (e *BodyExpr) Emit(ctx Context, g *Gen) error {
	if err := e.emitStatements(g); err != nil {
		return err
	}
	return e.last().Emit(ctx, g)
}

func (e *BodyExpr) CanEmitPrimitive() bool {
	return primType(e.last()) != nil
}

func (e *BodyExpr) EmitUnboxed(ctx Context, g *Gen) error {
	if err := e.emitStatements(g); err != nil {
		return err
	}
	return e.last().(MaybePrimitiveExpr).EmitUnboxed(ctx, g)
}

func (e *BodyExpr) HasType() bool     { return e.last().HasType() }
func (e *BodyExpr) Type() *host.Class { return e.last().Type() }

// unify returns the type shared by the results of branches, ignoring
// branches that recur.  A nil branch unifies with any reference type.
func unify(branches ...Expr) (*host.Class, bool) {
	var t *host.Class
	known := false
	for _, b := range branches {
		if !b.HasType() {
			return nil, false
		}
		bt := b.Type()
		switch {
		case bt == recurClass:
			continue
		case !known:
			t, known = bt, true
		case bt == t:
		case t == nil && !bt.IsPrimitive():
			t = bt
		case bt == nil && !t.IsPrimitive():
		default:
			return nil, false
		}
	}
	if !known {
		return recurClass, true
	}
	return t, true
}

// IfExpr is (if test then else?).
type IfExpr struct {
	Test Expr
	Then Expr
	Else Expr
	Loc  *token.Location
}

func (e *IfExpr) Eval(f *Frame) (any, error) {
	t, err := e.Test.Eval(f)
	if err != nil {
		return nil, err
	}
	if lang.Truthy(t) {
		return e.Then.Eval(f)
	}
	return e.Else.Eval(f)
}

func (e *IfExpr) HasType() bool {
	_, ok := unify(e.Then, e.Else)
	return ok
}

func (e *IfExpr) Type() *host.Class {
	t, _ := unify(e.Then, e.Else)
	return t
}

func branchPrimitive(b Expr, t *host.Class) bool {
	if _, ok := b.(*RecurExpr); ok {
		return true
	}
	return primType(b) == t
}

func (e *IfExpr) CanEmitPrimitive() bool {
	t, ok := unify(e.Then, e.Else)
	return ok && t.IsPrimitive() && branchPrimitive(e.Then, t) && branchPrimitive(e.Else, t)
}

func (e *IfExpr) emit(ctx Context, g *Gen, unboxed bool) error {
	g.line(e.Loc)
	elseLabel := g.b.DefineLabel()
	end := g.b.DefineLabel()
	if err := emitTest(g, e.Test, elseLabel); err != nil {
		return err
	}
	branch := func(x Expr) error {
		if unboxed {
			return x.(MaybePrimitiveExpr).EmitUnboxed(ctx, g)
		}
		return x.Emit(ctx, g)
	}
	if err := branch(e.Then); err != nil {
		return err
	}
	g.b.EmitBranch(asm.BR, end)
	g.b.MarkLabel(elseLabel)
	if err := branch(e.Else); err != nil {
		return err
	}
	g.b.MarkLabel(end)
	return nil
}

func (e *IfExpr) Emit(ctx Context, g *Gen) error {
	return e.emit(ctx, g, false)
}

func (e *IfExpr) EmitUnboxed(ctx Context, g *Gen) error {
	return e.emit(ctx, g, true)
}

// emitTest branches to falseLabel when test is false.  Primitive
// comparisons branch on the comparison itself.
func emitTest(g *Gen, test Expr, falseLabel asm.Label) error {
	if p, ok := test.(predicateExpr); ok && p.canEmitPredicate() {
		return p.emitPredicate(g, falseLabel)
	}
	if primType(test) == host.Bool {
		if err := test.(MaybePrimitiveExpr).EmitUnboxed(Expression, g); err != nil {
			return err
		}
		g.b.EmitCondBranch(asm.BRFALSE, asm.Bool, falseLabel)
		return nil
	}
	if err := test.Emit(Expression, g); err != nil {
		return err
	}
	g.b.EmitCondBranch(asm.BRFALSE, asm.Object, falseLabel)
	return nil
}

// BindingInit pairs a local with its initializer.
type BindingInit struct {
	ID   BindingID
	Init Expr
}

// LetExpr is let or loop.  A loop is the target of recur expressions in its
// body.
type LetExpr struct {
	Bindings []BindingInit
	Body     Expr
	Loop     bool
	Loc      *token.Location

	unit   *ObjExpr
	target *recurTarget
}

func (e *LetExpr) Eval(f *Frame) (any, error) {
	for _, bi := range e.Bindings {
		b := e.unit.tab.get(bi.ID)
		v, err := evalAs(f, bi.Init, b.Prim)
		if err != nil {
			return nil, err
		}
		f.locals[b.Idx] = v
	}
	for {
		v, err := e.Body.Eval(f)
		if err != nil || !e.Loop || v != recurMark {
			return v, err
		}
	}
}

func (e *LetExpr) emitBindings(g *Gen) error {
	g.line(e.Loc)
	for _, bi := range e.Bindings {
		b := e.unit.tab.get(bi.ID)
		if err := g.emitAs(Expression, bi.Init, b.Prim); err != nil {
			return err
		}
		g.b.EmitLocal(asm.STLOC, b.Idx)
	}
	if e.Loop {
		head := g.b.DefineLabel()
		g.b.MarkLabel(head)
		g.loops[e.target] = head
	}
	return nil
}

func (e *LetExpr) Emit(ctx Context, g *Gen) error {
	if err := e.emitBindings(g); err != nil {
		return err
	}
	return e.Body.Emit(ctx, g)
}

func (e *LetExpr) CanEmitPrimitive() bool {
	return primType(e.Body) != nil
}

func (e *LetExpr) EmitUnboxed(ctx Context, g *Gen) error {
	if err := e.emitBindings(g); err != nil {
		return err
	}
	return e.Body.(MaybePrimitiveExpr).EmitUnboxed(ctx, g)
}

func (e *LetExpr) HasType() bool     { return e.Body.HasType() }
func (e *LetExpr) Type() *host.Class { return e.Body.Type() }

// LetFnExpr is letfn: local functions that may refer to each other.
type LetFnExpr struct {
	Bindings []BindingInit
	Body     Expr

	unit *ObjExpr
}

// patches returns, for the function bound by bi, the capture slots that
// hold other letfn bindings and the bindings they hold.
func (e *LetFnExpr) patches(bi BindingInit) (slots []int, ids []BindingID) {
	fn := bi.Init.(*FnExpr)
	for _, other := range e.Bindings {
		if i := fn.Unit.captureIndex(other.ID); i >= 0 {
			slots = append(slots, i)
			ids = append(ids, other.ID)
		}
	}
	return slots, ids
}

func (e *LetFnExpr) Eval(f *Frame) (any, error) {
	for _, bi := range e.Bindings {
		fn, err := bi.Init.Eval(f)
		if err != nil {
			return nil, err
		}
		f.locals[e.unit.tab.get(bi.ID).Idx] = fn
	}
	for _, bi := range e.Bindings {
		fn := f.locals[e.unit.tab.get(bi.ID).Idx].(*interpFn)
		slots, ids := e.patches(bi)
		for i, slot := range slots {
			fn.closed[slot] = f.locals[e.unit.tab.get(ids[i]).Idx]
		}
	}
	return e.Body.Eval(f)
}

func (e *LetFnExpr) Emit(ctx Context, g *Gen) error {
	for _, bi := range e.Bindings {
		if err := bi.Init.Emit(Expression, g); err != nil {
			return err
		}
		g.b.EmitLocal(asm.STLOC, e.unit.tab.get(bi.ID).Idx)
	}
	for _, bi := range e.Bindings {
		slots, ids := e.patches(bi)
		for i, slot := range slots {
			g.b.EmitLocal(asm.LDLOC, e.unit.tab.get(bi.ID).Idx)
			g.b.EmitLocal(asm.LDLOC, e.unit.tab.get(ids[i]).Idx)
			g.b.EmitA(asm.PATCHFLD, slot)
		}
	}
	return e.Body.Emit(ctx, g)
}

func (e *LetFnExpr) HasType() bool     { return e.Body.HasType() }
func (e *LetFnExpr) Type() *host.Class { return e.Body.Type() }

// RecurExpr rebinds the locals of the enclosing loop or method and jumps
// back to its start.  Arguments are evaluated before any local changes.
type RecurExpr struct {
	Args []Expr
	Loc  *token.Location

	unit   *ObjExpr
	target *recurTarget
}

func (e *RecurExpr) Eval(f *Frame) (any, error) {
	vals := make([]any, len(e.Args))
	for i, arg := range e.Args {
		b := e.unit.tab.get(e.target.locals[i])
		v, err := evalAs(f, arg, b.Prim)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	for i, id := range e.target.locals {
		f.locals[e.unit.tab.get(id).Idx] = vals[i]
	}
	return recurMark, nil
}

func (e *RecurExpr) Emit(ctx Context, g *Gen) error {
	g.line(e.Loc)
	for i, arg := range e.Args {
		b := e.unit.tab.get(e.target.locals[i])
		if err := g.emitAs(Expression, arg, b.Prim); err != nil {
			return err
		}
	}
	for i := len(e.Args) - 1; i >= 0; i-- {
		g.b.EmitLocal(asm.STLOC, e.unit.tab.get(e.target.locals[i]).Idx)
	}
	g.b.EmitBranch(asm.BR, g.loops[e.target])
	return nil
}

func (*RecurExpr) CanEmitPrimitive() bool { return true }

func (e *RecurExpr) EmitUnboxed(ctx Context, g *Gen) error {
	return e.Emit(ctx, g)
}

func (*RecurExpr) HasType() bool     { return true }
func (*RecurExpr) Type() *host.Class { return recurClass }

// CaseExpr dispatches on a local compared with constants.
type CaseExpr struct {
	Expr *LocalBindingExpr
	// Keys are test constants.  Branch[i] is the index in Thens of the
	// expression selected by Keys[i].
	Keys    []any
	Branch  []int
	Thens   []Expr
	Default Expr
	Loc     *token.Location
}

func (e *CaseExpr) Eval(f *Frame) (any, error) {
	v, err := e.Expr.Eval(f)
	if err != nil {
		return nil, err
	}
	for i, k := range e.Keys {
		if lang.Equal(k, v) {
			return e.Thens[e.Branch[i]].Eval(f)
		}
	}
	return e.Default.Eval(f)
}

func (e *CaseExpr) Emit(ctx Context, g *Gen) error {
	g.line(e.Loc)
	if err := e.Expr.Emit(Expression, g); err != nil {
		return err
	}
	deflt := g.b.DefineLabel()
	end := g.b.DefineLabel()
	labels := make([]asm.Label, len(e.Thens))
	for i := range labels {
		labels[i] = g.b.DefineLabel()
	}
	table := asm.NewSwitchTable(deflt)
	for i, k := range e.Keys {
		table.Add(k, labels[e.Branch[i]])
	}
	g.b.EmitSwitch(table)
	for i, then := range e.Thens {
		g.b.MarkLabel(labels[i])
		if err := then.Emit(ctx, g); err != nil {
			return err
		}
		g.b.EmitBranch(asm.BR, end)
	}
	g.b.MarkLabel(deflt)
	if err := e.Default.Emit(ctx, g); err != nil {
		return err
	}
	g.b.MarkLabel(end)
	return nil
}

func (e *CaseExpr) branches() []Expr {
	return append(append([]Expr(nil), e.Thens...), e.Default)
}

func (e *CaseExpr) HasType() bool {
	_, ok := unify(e.branches()...)
	return ok
}

func (e *CaseExpr) Type() *host.Class {
	t, _ := unify(e.branches()...)
	return t
}

// ThrowExpr raises the value of an expression, which must be an error.
type ThrowExpr struct {
	Expr Expr
	Loc  *token.Location
}

func (e *ThrowExpr) Eval(f *Frame) (any, error) {
	v, err := e.Expr.Eval(f)
	if err != nil {
		return nil, err
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return nil, &lang.ClassCastError{From: lang.TypeName(v), To: "Throwable"}
}

func (e *ThrowExpr) Emit(ctx Context, g *Gen) error {
	g.line(e.Loc)
	if err := e.Expr.Emit(Expression, g); err != nil {
		return err
	}
	g.b.Emit(asm.THROW)
	return nil
}

func (*ThrowExpr) HasType() bool     { return false }
func (*ThrowExpr) Type() *host.Class { return nil }

// CatchClause handles errors of a class in a try expression.
type CatchClause struct {
	Class *host.Class
	ID    BindingID
	Body  Expr
}

// TryExpr is (try body* (catch Class e body*)* (finally body*)?).
type TryExpr struct {
	Body    Expr
	Catches []CatchClause
	Finally Expr
	Loc     *token.Location

	unit *ObjExpr
}

func (e *TryExpr) Eval(f *Frame) (any, error) {
	v, err := e.Body.Eval(f)
	if err != nil {
		for _, c := range e.Catches {
			if c.Class.Catches(err) {
				f.locals[e.unit.tab.get(c.ID).Idx] = err
				v, err = c.Body.Eval(f)
				break
			}
		}
	}
	if e.Finally != nil {
		if _, ferr := e.Finally.Eval(f); ferr != nil {
			return nil, ferr
		}
	}
	return v, err
}

func (e *TryExpr) emitFinally(g *Gen) error {
	if e.Finally == nil {
		return nil
	}
	return e.Finally.Emit(Statement, g)
}

func (e *TryExpr) Emit(ctx Context, g *Gen) error {
	g.line(e.Loc)
	b := g.b
	ret := b.DeclareLocal(asm.Object)
	start, end, done := b.DefineLabel(), b.DefineLabel(), b.DefineLabel()

	b.MarkLabel(start)
	if err := e.Body.Emit(Expression, g); err != nil {
		return err
	}
	b.EmitLocal(asm.STLOC, ret)
	b.MarkLabel(end)
	if err := e.emitFinally(g); err != nil {
		return err
	}
	b.EmitBranch(asm.BR, done)

	type region struct{ start, end asm.Label }
	var regions []region
	for _, c := range e.Catches {
		handler := b.DefineLabel()
		b.AddHandler(start, end, handler, c.Class)
		b.MarkLabel(handler)
		b.EmitLocal(asm.STLOC, e.unit.tab.get(c.ID).Idx)
		r := region{b.DefineLabel(), b.DefineLabel()}
		b.MarkLabel(r.start)
		if err := c.Body.Emit(Expression, g); err != nil {
			return err
		}
		b.EmitLocal(asm.STLOC, ret)
		b.MarkLabel(r.end)
		regions = append(regions, r)
		if err := e.emitFinally(g); err != nil {
			return err
		}
		b.EmitBranch(asm.BR, done)
	}

	if e.Finally != nil {
		handler := b.DefineLabel()
		b.AddHandler(start, end, handler, nil)
		for _, r := range regions {
			b.AddHandler(r.start, r.end, handler, nil)
		}
		b.MarkLabel(handler)
		tmp := b.DeclareLocal(asm.Object)
		b.EmitLocal(asm.STLOC, tmp)
		if err := e.Finally.Emit(Statement, g); err != nil {
			return err
		}
		b.EmitLocal(asm.LDLOC, tmp)
		b.Emit(asm.THROW)
	}

	b.MarkLabel(done)
	if ctx != Statement {
		b.EmitLocal(asm.LDLOC, ret)
	}
	return nil
}

func (e *TryExpr) HasType() bool {
	return len(e.Catches) == 0 && e.Body.HasType()
}

func (e *TryExpr) Type() *host.Class {
	t := e.Body.Type()
	if t.IsPrimitive() {
		return t.Boxed()
	}
	return t
}
