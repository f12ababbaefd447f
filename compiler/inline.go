package compiler

import (
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/parser/token"
)

// inlineOp describes a core function whose calls are compiled as calls of a
// static host method chosen by the static types of the arguments.
type inlineOp struct {
	class  *host.Class
	method string
	// unchecked replaces method while *unchecked-math* is true.
	unchecked string
	// fold applies a binary method left to right over more than two
	// arguments.
	fold bool
}

var inlines = map[string]inlineOp{
	"+":   {class: host.Numbers, method: "add", unchecked: "unchecked_add", fold: true},
	"-":   {class: host.Numbers, method: "minus", unchecked: "unchecked_minus", fold: true},
	"*":   {class: host.Numbers, method: "multiply", unchecked: "unchecked_multiply", fold: true},
	"/":   {class: host.Numbers, method: "divide", fold: true},
	"inc": {class: host.Numbers, method: "inc", unchecked: "unchecked_inc"},
	"dec": {class: host.Numbers, method: "dec", unchecked: "unchecked_dec"},

	"unchecked-add":      {class: host.Numbers, method: "unchecked_add"},
	"unchecked-subtract": {class: host.Numbers, method: "unchecked_minus"},
	"unchecked-negate":   {class: host.Numbers, method: "unchecked_minus"},
	"unchecked-multiply": {class: host.Numbers, method: "unchecked_multiply"},
	"unchecked-inc":      {class: host.Numbers, method: "unchecked_inc"},
	"unchecked-dec":      {class: host.Numbers, method: "unchecked_dec"},

	"<":     {class: host.Numbers, method: "lt"},
	"<=":    {class: host.Numbers, method: "lte"},
	">":     {class: host.Numbers, method: "gt"},
	">=":    {class: host.Numbers, method: "gte"},
	"==":    {class: host.Numbers, method: "equiv"},
	"zero?": {class: host.Numbers, method: "isZero"},
	"pos?":  {class: host.Numbers, method: "isPos"},
	"neg?":  {class: host.Numbers, method: "isNeg"},
	"quot":  {class: host.Numbers, method: "quotient"},
	"rem":   {class: host.Numbers, method: "remainder"},
	"max":   {class: host.Numbers, method: "max", fold: true},
	"min":   {class: host.Numbers, method: "min", fold: true},

	"bit-and":                  {class: host.Numbers, method: "and", fold: true},
	"bit-or":                   {class: host.Numbers, method: "or", fold: true},
	"bit-xor":                  {class: host.Numbers, method: "xor", fold: true},
	"bit-not":                  {class: host.Numbers, method: "not"},
	"bit-shift-left":           {class: host.Numbers, method: "shiftLeft"},
	"bit-shift-right":          {class: host.Numbers, method: "shiftRight"},
	"unsigned-bit-shift-right": {class: host.Numbers, method: "unsignedShiftRight"},

	"long":           {class: host.Numbers, method: "longCast"},
	"int":            {class: host.Numbers, method: "intCast"},
	"double":         {class: host.Numbers, method: "doubleCast"},
	"float":          {class: host.Numbers, method: "floatCast"},
	"boolean":        {class: host.Numbers, method: "booleanCast"},
	"unchecked-long": {class: host.Numbers, method: "uncheckedLongCast"},
	"unchecked-int":  {class: host.Numbers, method: "uncheckedIntCast"},

	"alength": {class: host.Arrays, method: "alength"},
	"aget":    {class: host.Arrays, method: "aget"},
	"aset":    {class: host.Arrays, method: "aset"},
}

// inline returns the static method call replacing a call of op, or nil when
// no overload accepts the arguments.
func (a *analyzer) inline(op inlineOp, args []Expr, loc *token.Location) Expr {
	name := op.method
	if op.unchecked != "" && a.c.flag(a.c.uncheckedMath) {
		name = op.unchecked
	}
	if op.fold && len(args) > 2 {
		acc := args[0]
		for _, arg := range args[1:] {
			e := a.staticCall(op.class, name, []Expr{acc, arg}, loc)
			if e == nil {
				return nil
			}
			acc = e
		}
		return acc
	}
	return a.staticCall(op.class, name, args, loc)
}

func (a *analyzer) staticCall(class *host.Class, name string, args []Expr, loc *token.Location) Expr {
	ms := class.StaticMethods(name, len(args))
	if len(ms) == 0 {
		return nil
	}
	m, err := host.Select(ms, argTypes(args))
	if err != nil {
		return nil
	}
	if a.c.warnOnBoxed() {
		for _, p := range m.Params {
			if !p.IsPrimitive() {
				a.warnf(WarnBoxedMath, loc, "call: %s", m)
				break
			}
		}
	}
	return a.staticMethod(m, args, loc)
}
