package vm

import (
	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/lang"
)

// Method naming conventions of function classes.  A class has at most one
// invoke method per arity and at most one doInvoke method whose final
// parameter receives the rest arguments as a list.  An invokePrim method
// takes and returns unboxed values.
const (
	InvokeName   = "invoke"
	VariadicName = "doInvoke"
	PrimName     = "invokePrim"
)

// Closure is an instance of a function class.  Its fields hold the values
// the function closed over.
type Closure struct {
	Class *asm.Class

	m      *Machine
	fields []Slot
	meta   *lang.Map
}

// NewClosure instantiates class with the given field values.
func (m *Machine) NewClosure(class *asm.Class, fields []Slot, meta *lang.Map) *Closure {
	return &Closure{
		Class:  class,
		m:      m,
		fields: fields,
		meta:   meta,
	}
}

// Field returns field i.
func (c *Closure) Field(i int) Slot {
	return c.fields[i]
}

func (c *Closure) String() string {
	return "#fn[" + c.Class.Name + "]"
}

// Info describes c for profilers.
func (c *Closure) Info() *lang.FnInfo {
	return &lang.FnInfo{NS: c.Class.NS, Name: c.Class.Name, Source: c.Class.Source}
}

// Meta implements lang.IMeta.
func (c *Closure) Meta() *lang.Map {
	return c.meta
}

// WithMeta implements lang.IObj.  The copy shares the class and captured
// values of c.
func (c *Closure) WithMeta(meta *lang.Map) any {
	cp := *c
	cp.meta = meta
	return &cp
}

// dispatch returns the method handling n arguments and whether it takes rest
// arguments.
func (c *Closure) dispatch(n int) (*asm.Method, bool) {
	if meth := c.Class.Method(InvokeName, n); meth != nil {
		return meth, false
	}
	if meth := c.Class.Method(PrimName, n); meth != nil {
		return meth, false
	}
	for _, meth := range c.Class.MethodsNamed(VariadicName) {
		if n >= meth.Arity()-1 {
			return meth, true
		}
	}
	return nil, false
}

// Invoke calls c with boxed arguments.
func (c *Closure) Invoke(args ...any) (any, error) {
	meth, variadic := c.dispatch(len(args))
	if meth == nil {
		return nil, &lang.WrongArityError{Name: c.Class.Name, Count: len(args)}
	}
	slots := make([]Slot, meth.Arity())
	fixed := len(args)
	if variadic {
		fixed = meth.Arity() - 1
		if len(args) > fixed {
			slots[fixed] = Ref(lang.NewList(args[fixed:]...))
		}
	}
	for i := 0; i < fixed; i++ {
		s, err := Unbox(args[i], meth.Params[i])
		if err != nil {
			return nil, err
		}
		slots[i] = s
	}
	ret, err := c.m.Call(c, meth, slots)
	if err != nil {
		return nil, err
	}
	return Box(ret, meth.Ret), nil
}

// InvokePrim calls c with unboxed arguments of the given kinds, converting
// through Invoke when c has no matching primitive method.
func (c *Closure) InvokePrim(kinds []asm.Kind, ret asm.Kind, args []Slot) (Slot, error) {
	return c.m.invokePrim(c, kinds, ret, args)
}

func (c *Closure) primMethod(kinds []asm.Kind, ret asm.Kind) *asm.Method {
	meth := c.Class.Method(PrimName, len(kinds))
	if meth == nil || meth.Ret != ret {
		return nil
	}
	for i, k := range meth.Params {
		if k != kinds[i] {
			return nil
		}
	}
	return meth
}
