package lang

import "fmt"

// ToSeq returns a Seq over x or nil when x is empty.  Values that cannot be
// viewed as a sequence produce an IllegalArgumentError.
func ToSeq(x any) (Seq, error) {
	switch x := x.(type) {
	case nil:
		return nil, nil
	case *List:
		return x.Seq(), nil
	case Seq:
		return x, nil
	case Seqable:
		return x.Seq(), nil
	case string:
		if x == "" {
			return nil, nil
		}
		runes := []rune(x)
		items := make([]any, len(runes))
		for i, r := range runes {
			items[i] = Char(r)
		}
		return &sliceSeq{items: items}, nil
	case []any:
		if len(x) == 0 {
			return nil, nil
		}
		return &sliceSeq{items: x}, nil
	case []int64:
		items := make([]any, len(x))
		for i := range x {
			items[i] = x[i]
		}
		return ToSeq(items)
	case []float64:
		items := make([]any, len(x))
		for i := range x {
			items[i] = x[i]
		}
		return ToSeq(items)
	}
	return nil, &IllegalArgumentError{Msg: fmt.Sprintf("Don't know how to create ISeq from: %s", TypeName(x))}
}

// MustSeq is ToSeq for values known to be sequential, such as forms produced
// by the reader.  It returns nil for anything else.
func MustSeq(x any) Seq {
	s, err := ToSeq(x)
	if err != nil {
		return nil
	}
	return s
}

// First returns the first element of x or nil.
func First(x any) any {
	s := MustSeq(x)
	if s == nil {
		return nil
	}
	return s.First()
}

// Second returns the second element of x or nil.
func Second(x any) any {
	return First(Next(x))
}

// Next returns the seq after the first element of x or nil.
func Next(x any) Seq {
	s := MustSeq(x)
	if s == nil {
		return nil
	}
	return s.Next()
}

// Rest is Next, but returns the empty list instead of nil.
func Rest(x any) any {
	n := Next(x)
	if n == nil {
		return EmptyList
	}
	return n
}

// Count returns the number of elements in x.
func Count(x any) (int, error) {
	switch x := x.(type) {
	case nil:
		return 0, nil
	case Counted:
		return x.Count(), nil
	case string:
		return len([]rune(x)), nil
	case []any:
		return len(x), nil
	case []int64:
		return len(x), nil
	case []float64:
		return len(x), nil
	}
	s, err := ToSeq(x)
	if err != nil {
		return 0, &IllegalArgumentError{Msg: fmt.Sprintf("count not supported on this type: %s", TypeName(x))}
	}
	n := 0
	for ; s != nil; s = s.Next() {
		n++
	}
	return n, nil
}

// Len is Count for forms; it returns 0 for values without a count.
func Len(x any) int {
	n, _ := Count(x)
	return n
}

// Nth returns the element of x at index i.
func Nth(x any, i int) (any, error) {
	switch x := x.(type) {
	case *Vector:
		if v, ok := x.Nth(i); ok {
			return v, nil
		}
		return nil, &IndexOutOfBoundsError{Index: i}
	case []any:
		if i >= 0 && i < len(x) {
			return x[i], nil
		}
		return nil, &IndexOutOfBoundsError{Index: i}
	case string:
		runes := []rune(x)
		if i >= 0 && i < len(runes) {
			return Char(runes[i]), nil
		}
		return nil, &IndexOutOfBoundsError{Index: i}
	}
	s, err := ToSeq(x)
	if err != nil {
		return nil, err
	}
	for j := 0; s != nil; j, s = j+1, s.Next() {
		if j == i {
			return s.First(), nil
		}
	}
	return nil, &IndexOutOfBoundsError{Index: i}
}

// NthForm is Nth for forms, returning nil when i is out of range.
func NthForm(x any, i int) any {
	v, _ := Nth(x, i)
	return v
}

// Cons prepends x to coll.
func Cons(x any, coll any) (Seq, error) {
	switch c := coll.(type) {
	case nil:
		return NewList(x), nil
	case *List:
		return c.Cons(x), nil
	}
	s, err := ToSeq(coll)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return NewList(x), nil
	}
	return &consCell{first: x, more: s}, nil
}

// Conj adds x to coll in the position natural for the collection.
func Conj(coll any, x any) (any, error) {
	switch c := coll.(type) {
	case nil:
		return NewList(x), nil
	case *List:
		return c.Cons(x), nil
	case *Vector:
		return c.Conj(x), nil
	case *Set:
		return c.Conj(x), nil
	case *Map:
		e, ok := x.(*Vector)
		if !ok || e.Count() != 2 {
			return nil, &IllegalArgumentError{Msg: "Vector arg to map conj must be a pair"}
		}
		return c.Assoc(e.items[0], e.items[1]), nil
	case Seq:
		return &consCell{first: x, more: c}, nil
	}
	return nil, &IllegalArgumentError{Msg: fmt.Sprintf("Don't know how to conj onto: %s", TypeName(coll))}
}

// Get looks k up in coll returning notFound when absent.
func Get(coll any, k any, notFound any) any {
	switch c := coll.(type) {
	case *Map:
		if v, ok := c.Get(k); ok {
			return v
		}
	case *Set:
		if c.Contains(k) {
			return k
		}
	case *Vector:
		if i, ok := AsInt(k); ok {
			if v, ok := c.Nth(i); ok {
				return v
			}
		}
	case *Instance:
		if v, ok := c.Lookup(k); ok {
			return v
		}
	}
	return notFound
}

// Assoc maps k to v in a map or vector.
func Assoc(coll any, k, v any) (any, error) {
	switch c := coll.(type) {
	case nil:
		return NewMap(k, v), nil
	case *Map:
		return c.Assoc(k, v), nil
	case *Vector:
		i, ok := AsInt(k)
		if !ok {
			return nil, &IllegalArgumentError{Msg: "Key must be integer"}
		}
		out, ok := c.AssocN(i, v)
		if !ok {
			return nil, &IndexOutOfBoundsError{Index: i}
		}
		return out, nil
	}
	return nil, &IllegalArgumentError{Msg: fmt.Sprintf("Don't know how to assoc onto: %s", TypeName(coll))}
}

// SeqItems collects the elements of x into a slice.
func SeqItems(x any) ([]any, error) {
	switch x := x.(type) {
	case *Vector:
		return x.items, nil
	case *List:
		return x.Items(), nil
	}
	s, err := ToSeq(x)
	if err != nil {
		return nil, err
	}
	var items []any
	for ; s != nil; s = s.Next() {
		items = append(items, s.First())
	}
	return items, nil
}

// Concat returns a list of the elements of each collection in order.
func Concat(colls ...any) (*List, error) {
	var items []any
	for _, c := range colls {
		cs, err := SeqItems(c)
		if err != nil {
			return nil, err
		}
		items = append(items, cs...)
	}
	return NewList(items...), nil
}

// AsInt converts an integral number to int.
func AsInt(x any) (int, bool) {
	switch x := x.(type) {
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case int:
		return x, true
	}
	return 0, false
}
