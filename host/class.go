// Package host describes the host types visible to compiled code: their
// constructors, methods and fields, and the rules for choosing among
// overloads.  Classes wrap Go types and are inspected through reflect.
package host

import (
	"reflect"
	"sync"

	"github.com/luthersystems/eclj/lang"
)

// Class is a host type.  Primitive classes describe unboxed values which
// compiled code keeps outside of interface values.
type Class struct {
	Name string
	Type reflect.Type
	Def  *lang.TypeDef

	prim bool
	// boxed is the non-primitive class of a primitive's values
	boxed *Class

	mu      sync.RWMutex
	statics map[string][]*Method
	methods map[string][]*Method
	sfields map[string]*Field
	fields  map[string]*Field
	ctors   []*Method
}

func newClass(name string, t reflect.Type) *Class {
	return &Class{
		Name:    name,
		Type:    t,
		statics: make(map[string][]*Method),
		methods: make(map[string][]*Method),
		sfields: make(map[string]*Field),
		fields:  make(map[string]*Field),
	}
}

// NewClass returns a class named name describing values of type t.  The
// class has no members until they are added.
func NewClass(name string, t reflect.Type) *Class {
	return newClass(name, t)
}

func (c *Class) String() string {
	return c.Name
}

// IsPrimitive reports whether values of c are unboxed.
func (c *Class) IsPrimitive() bool {
	return c != nil && c.prim
}

// Boxed returns the class of boxed values of a primitive class, or c
// itself.
func (c *Class) Boxed() *Class {
	if c != nil && c.boxed != nil {
		return c.boxed
	}
	return c
}

// Unboxed returns the primitive class whose values c boxes, or nil.
func (c *Class) Unboxed() *Class {
	for _, p := range primitives {
		if p.boxed == c {
			return p
		}
	}
	return nil
}

// IsInterface reports whether c describes a Go interface type.
func (c *Class) IsInterface() bool {
	return c.Def == nil && c.Type != nil && c.Type.Kind() == reflect.Interface
}

// IsInstance reports whether x is a value of c.
func (c *Class) IsInstance(x any) bool {
	if x == nil {
		return false
	}
	if c.Def != nil {
		in, ok := x.(*lang.Instance)
		return ok && in.Type == c.Def
	}
	t := reflect.TypeOf(x)
	if c.IsInterface() {
		return t.Implements(c.Type)
	}
	return t == c.Type
}

// IsAssignableFrom reports whether a value of static class o may be used
// where c is expected without conversion.
func (c *Class) IsAssignableFrom(o *Class) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil || c.prim || o.prim {
		return false
	}
	if c.Def != nil || o.Def != nil {
		return c == Object
	}
	if c.IsInterface() {
		return o.Type.Implements(c.Type)
	}
	return c.Type == o.Type
}

// Catches reports whether err, or an error it wraps, is a value of c.
func (c *Class) Catches(err error) bool {
	for err != nil {
		if c.IsInstance(err) {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

var (
	// Primitive classes
	Long   = primClass("long", reflect.TypeOf(int64(0)))
	Double = primClass("double", reflect.TypeOf(float64(0)))
	Int    = primClass("int", reflect.TypeOf(int32(0)))
	Float  = primClass("float", reflect.TypeOf(float32(0)))
	Bool   = primClass("boolean", reflect.TypeOf(false))
	Void   = primClass("void", nil)

	// Boxed primitive classes
	BoxedLong   = boxClass(Long, "Long")
	BoxedDouble = boxClass(Double, "Double")
	BoxedInt    = boxClass(Int, "Integer")
	BoxedFloat  = boxClass(Float, "Float")
	BoxedBool   = boxClass(Bool, "Boolean")

	Object  = newClass("Object", reflect.TypeOf((*any)(nil)).Elem())
	String  = newClass("String", reflect.TypeOf(""))
	Char    = newClass("Character", reflect.TypeOf(lang.Char(0)))
	Keyword = newClass("Keyword", reflect.TypeOf((*lang.Keyword)(nil)))
	Symbol  = newClass("Symbol", reflect.TypeOf((*lang.Symbol)(nil)))
	Var     = newClass("Var", reflect.TypeOf((*lang.Var)(nil)))
	Error   = newClass("Throwable", reflect.TypeOf((*error)(nil)).Elem())
	IFn     = newClass("IFn", reflect.TypeOf((*lang.IFn)(nil)).Elem())

	List   = newClass("PersistentList", reflect.TypeOf((*lang.List)(nil)))
	Vector = newClass("PersistentVector", reflect.TypeOf((*lang.Vector)(nil)))
	Map    = newClass("PersistentMap", reflect.TypeOf((*lang.Map)(nil)))
	Set    = newClass("PersistentSet", reflect.TypeOf((*lang.Set)(nil)))

	Longs   = newClass("longs", reflect.TypeOf([]int64(nil)))
	Doubles = newClass("doubles", reflect.TypeOf([]float64(nil)))
	Objects = newClass("objects", reflect.TypeOf([]any(nil)))
)

var primitives = []*Class{Long, Double, Int, Float, Bool}

func primClass(name string, t reflect.Type) *Class {
	c := newClass(name, t)
	c.prim = true
	return c
}

func boxClass(prim *Class, name string) *Class {
	c := newClass(name, prim.Type)
	prim.boxed = c
	return c
}

var (
	classMu sync.RWMutex
	classes = make(map[reflect.Type]*Class)
	defs    sync.Map
)

func init() {
	for _, c := range []*Class{
		Long, Double, Int, Float, Bool, Object, String, Char, Keyword, Symbol,
		Var, Error, IFn, List, Vector, Map, Set, Longs, Doubles, Objects,
	} {
		classes[c.Type] = c
	}
	// Go int and float kinds used by registered functions map onto the
	// canonical primitives.
	classes[reflect.TypeOf(0)] = Long
}

// ClassOf returns the canonical class of a Go type.  Numeric and boolean
// types map to primitive classes.
func ClassOf(t reflect.Type) *Class {
	if t == nil {
		return Object
	}
	classMu.RLock()
	c, ok := classes[t]
	classMu.RUnlock()
	if ok {
		return c
	}
	classMu.Lock()
	defer classMu.Unlock()
	if c, ok := classes[t]; ok {
		return c
	}
	c = newClass(t.String(), t)
	classes[t] = c
	return c
}

// Canonical returns the canonical class of t, naming it name when it is
// created.
func Canonical(name string, t reflect.Type) *Class {
	classMu.Lock()
	defer classMu.Unlock()
	if c, ok := classes[t]; ok {
		return c
	}
	c := newClass(name, t)
	classes[t] = c
	return c
}

// DefClass returns the class of the instances of td.
func DefClass(td *lang.TypeDef) *Class {
	if c, ok := defs.Load(td); ok {
		return c.(*Class)
	}
	c := newClass(td.Name.String(), reflect.TypeOf((*lang.Instance)(nil)))
	c.Def = td
	actual, _ := defs.LoadOrStore(td, c)
	return actual.(*Class)
}

// ClassOfValue returns the runtime class of x.  Numbers and booleans have
// boxed classes.  Nil has no class.
func ClassOfValue(x any) *Class {
	switch x := x.(type) {
	case nil:
		return nil
	case *lang.Instance:
		return DefClass(x.Type)
	}
	return ClassOf(reflect.TypeOf(x)).Boxed()
}
