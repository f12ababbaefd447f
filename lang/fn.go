package lang

import "fmt"

// IFn is implemented by every invocable value.
type IFn interface {
	Invoke(args ...any) (any, error)
}

// Invoke calls f with args.  Maps, vectors and sets are invocable as lookup
// functions of their keys.
func Invoke(f any, args ...any) (any, error) {
	switch f := f.(type) {
	case IFn:
		return f.Invoke(args...)
	case nil:
		return nil, &IllegalStateError{Msg: "Can't call nil"}
	}
	return nil, &ClassCastError{From: TypeName(f), To: "IFn"}
}

// Apply calls f with args where the final argument is a sequence whose
// elements are spread into the call.
func Apply(f any, args ...any) (any, error) {
	if len(args) == 0 {
		return Invoke(f)
	}
	spread, err := SeqItems(args[len(args)-1])
	if err != nil {
		return nil, err
	}
	all := make([]any, 0, len(args)-1+len(spread))
	all = append(all, args[:len(args)-1]...)
	all = append(all, spread...)
	return Invoke(f, all...)
}

// Invoke looks a key up in m.
func (m *Map) Invoke(args ...any) (any, error) {
	switch len(args) {
	case 1:
		return Get(m, args[0], nil), nil
	case 2:
		return Get(m, args[0], args[1]), nil
	}
	return nil, &WrongArityError{Name: "PersistentMap", Count: len(args)}
}

// Invoke returns the element of v at an index.
func (v *Vector) Invoke(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, &WrongArityError{Name: "PersistentVector", Count: len(args)}
	}
	i, ok := AsInt(args[0])
	if !ok {
		return nil, &IllegalArgumentError{Msg: "Key must be integer"}
	}
	x, ok := v.Nth(i)
	if !ok {
		return nil, &IndexOutOfBoundsError{Index: i}
	}
	return x, nil
}

// Variadic is the Max of a Builtin accepting any number of arguments beyond
// Min.
const Variadic = -1

// Builtin is a function implemented in Go.
type Builtin struct {
	Name string
	Min  int
	Max  int
	Fn   func(args []any) (any, error)
}

// NewBuiltin returns a builtin function accepting between min and max
// arguments.
func NewBuiltin(name string, min, max int, fn func(args []any) (any, error)) *Builtin {
	return &Builtin{Name: name, Min: min, Max: max, Fn: fn}
}

func (b *Builtin) String() string {
	return fmt.Sprintf("#builtin[%s]", b.Name)
}

func (b *Builtin) Invoke(args ...any) (any, error) {
	if len(args) < b.Min || (b.Max != Variadic && len(args) > b.Max) {
		return nil, &WrongArityError{Name: b.Name, Count: len(args)}
	}
	return b.Fn(args)
}

// Info describes b for profilers.
func (b *Builtin) Info() *FnInfo {
	return &FnInfo{NS: "eclj.core", Name: b.Name}
}

// Described is implemented by functions that can describe themselves to a
// profiler.
type Described interface {
	Info() *FnInfo
}
