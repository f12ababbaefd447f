package host

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/luthersystems/eclj/lang"
)

// ErrAmbiguous is returned when more than one overload matches equally well.
var ErrAmbiguous = errors.New("ambiguous overload")

// ErrNoMatch is returned when no overload accepts the argument types.
var ErrNoMatch = errors.New("no matching overload")

const noMatch = -1

// widen returns the cost of passing a primitive of class from where a
// primitive of class to is expected.
func widen(from, to *Class) int {
	switch {
	case from == to:
		return 0
	case from == Int && to == Long, from == Float && to == Double:
		return 1
	case from == Long && to == Double, from == Int && to == Double:
		return 2
	}
	return noMatch
}

// paramCost returns the cost of passing an argument of static class arg
// (nil when unknown) to a parameter of class param, or noMatch.
func paramCost(param, arg *Class) int {
	if arg == nil {
		// Unknown arguments are boxed and never select primitive parameters.
		if param.prim {
			return noMatch
		}
		if param == Object {
			return 3
		}
		return 4
	}
	switch {
	case param == arg:
		return 0
	case param.prim && arg.prim:
		return widen(arg, param)
	case arg.prim:
		if param == arg.boxed {
			return 2
		}
		if param.IsAssignableFrom(arg.boxed) {
			return 3
		}
		return noMatch
	case param.prim:
		if param.boxed == arg {
			return 2
		}
		return noMatch
	case param.IsAssignableFrom(arg):
		if param == Object {
			return 3
		}
		return 1
	}
	return noMatch
}

// Cost returns the total cost of calling m with arguments of the given
// static classes, or -1 when m does not accept them.
func Cost(m *Method, args []*Class) int {
	if len(args) != len(m.Params) {
		return noMatch
	}
	total := 0
	for i, p := range m.Params {
		c := paramCost(p, args[i])
		if c == noMatch {
			return noMatch
		}
		total += c
	}
	return total
}

// Select chooses the unique cheapest method accepting the static argument
// classes.  When no method matches Select returns ErrNoMatch.  When the
// cheapest cost is shared Select returns ErrAmbiguous.
func Select(methods []*Method, args []*Class) (*Method, error) {
	var best *Method
	bestCost := noMatch
	tie := false
	for _, m := range methods {
		c := Cost(m, args)
		switch {
		case c == noMatch:
		case bestCost == noMatch || c < bestCost:
			best, bestCost, tie = m, c, false
		case c == bestCost:
			tie = true
		}
	}
	switch {
	case best == nil:
		return nil, ErrNoMatch
	case tie:
		return nil, ErrAmbiguous
	}
	return best, nil
}

// runtimeCost returns the cost of passing the boxed value x to param.
func runtimeCost(param *Class, x any) int {
	if x == nil {
		if param.prim {
			return noMatch
		}
		return 1
	}
	if param.Def != nil || param.IsInterface() {
		if param.IsInstance(x) {
			if param == Object {
				return 3
			}
			return 1
		}
		return noMatch
	}
	if param.Type == nil {
		return noMatch
	}
	t := reflect.TypeOf(x)
	if t == param.Type {
		return 0
	}
	if _, err := Coerce(x, param.Type); err != nil {
		return noMatch
	}
	return 2
}

// SelectRuntime chooses the method best accepting the boxed argument
// values.  Ties go to the first method.
func SelectRuntime(methods []*Method, args []any) (*Method, error) {
	var best *Method
	bestCost := noMatch
	for _, m := range methods {
		if len(m.Params) != len(args) {
			continue
		}
		total := 0
		for i, p := range m.Params {
			c := runtimeCost(p, args[i])
			if c == noMatch {
				total = noMatch
				break
			}
			total += c
		}
		if total != noMatch && (bestCost == noMatch || total < bestCost) {
			best, bestCost = m, total
		}
	}
	if best == nil {
		return nil, ErrNoMatch
	}
	return best, nil
}

func typeNames(args []any) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = lang.TypeName(a)
	}
	return strings.Join(names, ", ")
}

// InvokeMethod calls the instance method name of target with args, resolving
// the overload from the runtime classes of the values.
func InvokeMethod(target any, name string, args []any) (any, error) {
	if target == nil {
		return nil, &lang.IllegalStateError{Msg: fmt.Sprintf("Cannot invoke method %s on nil", name)}
	}
	if in, ok := target.(*lang.Instance); ok {
		if fn, ok := in.Type.Method(name); ok {
			return lang.Invoke(fn, append([]any{in}, args...)...)
		}
	}
	c := ClassOfValue(target)
	ms := c.Methods(name, len(args))
	if _, ok := target.(error); ok && len(ms) == 0 {
		ms = Error.Methods(name, len(args))
	}
	if len(ms) == 0 {
		ms = Object.Methods(name, len(args))
	}
	if len(ms) == 0 {
		if f := c.Field(name); f != nil && len(args) == 0 {
			return f.Get(target)
		}
		return nil, &lang.IllegalArgumentError{Msg: fmt.Sprintf("No matching method %s found taking %d args for class %s", name, len(args), c.Name)}
	}
	m, err := SelectRuntime(ms, args)
	if err != nil {
		return nil, &lang.IllegalArgumentError{Msg: fmt.Sprintf("No matching method %s found for class %s taking (%s)", name, c.Name, typeNames(args))}
	}
	return m.Call(append([]any{target}, args...))
}

// InvokeStatic calls a static method of c resolving the overload at runtime.
func InvokeStatic(c *Class, name string, args []any) (any, error) {
	m, err := SelectRuntime(c.StaticMethods(name, len(args)), args)
	if err != nil {
		return nil, &lang.IllegalArgumentError{Msg: fmt.Sprintf("No matching method %s found for class %s taking (%s)", name, c.Name, typeNames(args))}
	}
	return m.Call(args)
}

// New constructs a value of c resolving the constructor at runtime.
func New(c *Class, args []any) (any, error) {
	if c.Def != nil {
		return c.Def.New(args...)
	}
	m, err := SelectRuntime(c.Ctors(len(args)), args)
	if err != nil {
		return nil, &lang.IllegalArgumentError{Msg: fmt.Sprintf("No matching ctor found for class %s taking (%s)", c.Name, typeNames(args))}
	}
	return m.Call(args)
}

// GetField reads the field name of target.
func GetField(target any, name string) (any, error) {
	if target == nil {
		return nil, &lang.IllegalStateError{Msg: fmt.Sprintf("Cannot read field %s of nil", name)}
	}
	c := ClassOfValue(target)
	f := c.Field(name)
	if f == nil {
		return nil, &lang.IllegalArgumentError{Msg: fmt.Sprintf("No matching field found: %s for class %s", name, c.Name)}
	}
	return f.Get(target)
}

// SetField assigns the field name of target.
func SetField(target any, name string, v any) error {
	if target == nil {
		return &lang.IllegalStateError{Msg: fmt.Sprintf("Cannot assign field %s of nil", name)}
	}
	c := ClassOfValue(target)
	f := c.Field(name)
	if f == nil {
		return &lang.IllegalArgumentError{Msg: fmt.Sprintf("No matching field found: %s for class %s", name, c.Name)}
	}
	return f.Set(target, v)
}
