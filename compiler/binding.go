package compiler

import (
	"math"
	"reflect"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
)

// Context describes how the value of an expression is used.
type Context int

const (
	// Statement expressions are evaluated for effect and their value is
	// discarded.
	Statement Context = iota
	// Expression values are consumed by an enclosing expression.
	Expression
	// Return expressions produce the value of a method body or loop.  Only
	// they may recur.
	Return
	// Eval is the context of a top-level form.
	Eval
)

var contextNames = [...]string{
	Statement:  "statement",
	Expression: "expression",
	Return:     "return",
	Eval:       "eval",
}

func (ctx Context) String() string {
	return contextNames[ctx]
}

// tail reports whether the operand stack is empty when an expression in ctx
// starts executing.
func (ctx Context) tail() bool {
	return ctx == Return || ctx == Eval
}

// BindingID is a handle on a LocalBinding in the binding table of a
// top-level analysis.
type BindingID int

// LocalBinding is a lexically scoped name.
type LocalBinding struct {
	ID   BindingID
	Sym  *lang.Symbol
	Tag  *host.Class
	Prim *host.Class
	Idx  int
	Init Expr

	IsArg   bool
	IsByRef bool
	IsThis  bool

	// Field is the deftype field index of a field binding, or -1.
	Field   int
	Mutable bool
	// this is the receiver parameter of the method owning a field binding.
	this BindingID

	// unit is the function that owns the binding.
	unit *ObjExpr
	// demoted loop locals hold boxed values whatever their initializer.
	demoted bool
	// recurType is the widest primitive type passed to a loop local by
	// recur, or nil when recur passed nothing disagreeing with Prim.
	recurType *host.Class
	mismatch  bool
}

// Type returns the static type of values of b, or nil.
func (b *LocalBinding) Type() *host.Class {
	switch {
	case b.Prim != nil:
		return b.Prim
	case b.Tag != nil:
		return b.Tag
	case b.demoted || b.Init == nil || !b.Init.HasType():
		return nil
	}
	t := b.Init.Type()
	if t != nil && t.IsPrimitive() {
		return t.Boxed()
	}
	return t
}

// IsField reports whether b names a deftype field.
func (b *LocalBinding) IsField() bool {
	return b.Field >= 0
}

type bindingTable struct {
	bindings []*LocalBinding
}

func (t *bindingTable) add(b *LocalBinding) BindingID {
	b.ID = BindingID(len(t.bindings))
	t.bindings = append(t.bindings, b)
	return b.ID
}

func (t *bindingTable) get(id BindingID) *LocalBinding {
	return t.bindings[id]
}

// localEnv is a persistent environment mapping names to bindings.
// Extending an environment never modifies it.
type localEnv struct {
	name string
	id   BindingID
	next *localEnv
}

func (env *localEnv) bind(name string, id BindingID) *localEnv {
	return &localEnv{name: name, id: id, next: env}
}

func (env *localEnv) lookup(name string) (BindingID, bool) {
	for e := env; e != nil; e = e.next {
		if e.name == name {
			return e.id, true
		}
	}
	return 0, false
}

// recurTarget is a loop head: the locals a recur assigns and then jumps
// back to.
type recurTarget struct {
	locals []BindingID
	loop   bool
}

// ConstantPool holds the constants of a function class.  Equal values of the
// same Go type share a slot.
type ConstantPool struct {
	vals []any
}

// Index returns the slot of v, adding it when no equal constant exists.
func (p *ConstantPool) Index(v any) int {
	for i, x := range p.vals {
		if sameConstant(x, v) {
			return i
		}
	}
	p.vals = append(p.vals, v)
	return len(p.vals) - 1
}

// Len returns the number of constants.
func (p *ConstantPool) Len() int {
	return len(p.vals)
}

// Values returns the constants in slot order.
func (p *ConstantPool) Values() []any {
	out := make([]any, len(p.vals))
	copy(out, p.vals)
	return out
}

func sameConstant(x, v any) bool {
	if x == nil || v == nil {
		return x == nil && v == nil
	}
	tx := reflect.TypeOf(x)
	if tx != reflect.TypeOf(v) {
		return false
	}
	switch x := x.(type) {
	case float64:
		return math.Float64bits(x) == math.Float64bits(v.(float64))
	case float32:
		return math.Float32bits(x) == math.Float32bits(v.(float32))
	case *lang.Symbol, *lang.List, *lang.Vector, *lang.Map, *lang.Set:
		// Quoted forms keep their own metadata.
		return x == v || (lang.MetaOf(x) == nil && lang.MetaOf(v) == nil && lang.Equal(x, v))
	}
	if tx.Comparable() && x == v {
		return true
	}
	switch tx.Kind() {
	case reflect.Int64, reflect.Int32, reflect.String, reflect.Bool:
		return lang.Equal(x, v)
	}
	return false
}
