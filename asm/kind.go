// Package asm builds the classes executed by the vm.  A class holds a
// static constant pool, instance fields and methods whose bodies are
// sequences of stack machine instructions.  Values on the operand stack and
// in locals are either boxed (Object) or unboxed primitives of a Kind.
package asm

import "github.com/luthersystems/eclj/host"

// Kind is the representation of a value on the operand stack.
type Kind uint8

// Value kinds
const (
	Object Kind = iota
	Long
	Double
	Int
	Float
	Bool
	Void
)

var kindNames = [...]string{
	Object: "object",
	Long:   "long",
	Double: "double",
	Int:    "int",
	Float:  "float",
	Bool:   "boolean",
	Void:   "void",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind?"
}

// IsPrimitive reports whether k is an unboxed kind.
func (k Kind) IsPrimitive() bool {
	return k != Object && k != Void
}

// KindOf returns the kind used for values of static class c.  Nil and
// every non-primitive class are Object.
func KindOf(c *host.Class) Kind {
	switch c {
	case host.Long:
		return Long
	case host.Double:
		return Double
	case host.Int:
		return Int
	case host.Float:
		return Float
	case host.Bool:
		return Bool
	case host.Void:
		return Void
	}
	return Object
}

// ClassOf returns the primitive class of k, or nil for Object.
func ClassOf(k Kind) *host.Class {
	switch k {
	case Long:
		return host.Long
	case Double:
		return host.Double
	case Int:
		return host.Int
	case Float:
		return host.Float
	case Bool:
		return host.Bool
	case Void:
		return host.Void
	}
	return nil
}

// Kinds maps KindOf over classes.
func Kinds(cs []*host.Class) []Kind {
	ks := make([]Kind, len(cs))
	for i, c := range cs {
		ks[i] = KindOf(c)
	}
	return ks
}
