package vm

import (
	"math"

	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/lang"
)

// Slot holds one operand stack or local value.  Boxed values use R.
// Primitives use N: longs and ints as sign extended two's complement bits,
// doubles and floats as IEEE 754 double bits, booleans as 0 or 1.
type Slot struct {
	R any
	N uint64
}

// Ref returns a slot holding the boxed value x.
func Ref(x any) Slot {
	return Slot{R: x}
}

// LongSlot returns a slot holding x.
func LongSlot(x int64) Slot {
	return Slot{N: uint64(x)}
}

// DoubleSlot returns a slot holding x.
func DoubleSlot(x float64) Slot {
	return Slot{N: math.Float64bits(x)}
}

// IntSlot returns a slot holding x.
func IntSlot(x int32) Slot {
	return Slot{N: uint64(int64(x))}
}

// FloatSlot returns a slot holding x.
func FloatSlot(x float32) Slot {
	return Slot{N: math.Float64bits(float64(x))}
}

// BoolSlot returns a slot holding b.
func BoolSlot(b bool) Slot {
	if b {
		return Slot{N: 1}
	}
	return Slot{}
}

func (s Slot) Long() int64 {
	return int64(s.N)
}

func (s Slot) Double() float64 {
	return math.Float64frombits(s.N)
}

func (s Slot) Int() int32 {
	return int32(int64(s.N))
}

func (s Slot) Float() float32 {
	return float32(math.Float64frombits(s.N))
}

func (s Slot) Bool() bool {
	return s.N != 0
}

// Box returns the boxed value of a slot of kind k.
func Box(s Slot, k asm.Kind) any {
	switch k {
	case asm.Long:
		return s.Long()
	case asm.Double:
		return s.Double()
	case asm.Int:
		return s.Int()
	case asm.Float:
		return s.Float()
	case asm.Bool:
		return s.Bool()
	case asm.Void:
		return nil
	}
	return s.R
}

// Unbox converts the boxed value x to a slot of kind k.
func Unbox(x any, k asm.Kind) (Slot, error) {
	switch k {
	case asm.Long:
		n, err := lang.LongCast(x)
		return LongSlot(n), err
	case asm.Double:
		d, err := lang.DoubleCast(x)
		return DoubleSlot(d), err
	case asm.Int:
		n, err := lang.IntCast(x)
		return IntSlot(n), err
	case asm.Float:
		f, err := lang.FloatCast(x)
		return FloatSlot(f), err
	case asm.Bool:
		return BoolSlot(lang.BooleanCast(x)), nil
	case asm.Void:
		return Slot{}, nil
	}
	return Slot{R: x}, nil
}

// truthy tests a slot of kind k.  Primitive numbers are always true.
func truthy(s Slot, k asm.Kind) bool {
	switch k {
	case asm.Object:
		return lang.Truthy(s.R)
	case asm.Bool:
		return s.N != 0
	}
	return true
}
