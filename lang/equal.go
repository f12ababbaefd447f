package lang

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Char is a unicode character value.
type Char rune

// Truthy returns false only for nil and false.
func Truthy(x any) bool {
	switch x := x.(type) {
	case nil:
		return false
	case bool:
		return x
	}
	return true
}

// Equal implements value equality.  Integral numbers compare equal across
// widths, as do floating point numbers, but integers never equal floats.
// Sequential collections compare element-wise regardless of concrete type.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case int64, int32, int:
		xi, _ := integral(x)
		yi, ok := integral(b)
		return ok && xi == yi
	case float64, float32:
		xf, _ := floating(x)
		yf, ok := floating(b)
		return ok && xf == yf
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case Char:
		y, ok := b.(Char)
		return ok && x == y
	case *Keyword:
		return a == b
	case *Symbol:
		y, ok := b.(*Symbol)
		return ok && x.Equal(y)
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Count() != y.Count() {
			return false
		}
		for i, k := range x.keys {
			v, ok := y.Get(k)
			if !ok || !Equal(x.vals[i], v) {
				return false
			}
		}
		return true
	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Count() != y.Count() {
			return false
		}
		for _, k := range x.Items() {
			if !y.Contains(k) {
				return false
			}
		}
		return true
	case *Instance:
		y, ok := b.(*Instance)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if x.Type != y.Type || !x.Type.Record {
			return false
		}
		for i := range x.Fields {
			if !Equal(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	}
	if isSequential(a) {
		if !isSequential(b) {
			return false
		}
		sa, sb := MustSeq(a), MustSeq(b)
		for ; sa != nil && sb != nil; sa, sb = sa.Next(), sb.Next() {
			if !Equal(sa.First(), sb.First()) {
				return false
			}
		}
		return sa == nil && sb == nil
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return false
}

func isSequential(x any) bool {
	switch x.(type) {
	case *List, *Vector, Seq:
		return true
	}
	return false
}

func integral(x any) (int64, bool) {
	switch x := x.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	}
	return 0, false
}

func floating(x any) (float64, bool) {
	switch x := x.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

type nilKey struct{}

type symKey struct{ ns, name string }

type collKey string

// HashKey returns a comparable Go value such that Equal values have equal
// keys.  It is used to index maps and sets and for case dispatch tables.
func HashKey(x any) any {
	switch x := x.(type) {
	case nil:
		return nilKey{}
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case *Symbol:
		return symKey{x.Ns, x.Name}
	case *Map, *Set, *List, *Vector, Seq, *Instance:
		return collKey(collHash(x))
	}
	if t := reflect.TypeOf(x); t.Comparable() {
		return x
	}
	return collKey(fmt.Sprintf("%T:%p", x, x))
}

func collHash(x any) string {
	var b strings.Builder
	switch x := x.(type) {
	case *Map:
		entries := make([]string, 0, x.Count())
		for i, k := range x.keys {
			entries = append(entries, fmt.Sprintf("%#v=%#v", HashKey(k), HashKey(x.vals[i])))
		}
		sort.Strings(entries)
		b.WriteString("{")
		b.WriteString(strings.Join(entries, ","))
		b.WriteString("}")
	case *Set:
		members := make([]string, 0, x.Count())
		for _, k := range x.Items() {
			members = append(members, fmt.Sprintf("%#v", HashKey(k)))
		}
		sort.Strings(members)
		b.WriteString("#{")
		b.WriteString(strings.Join(members, ","))
		b.WriteString("}")
	case *Instance:
		if !x.Type.Record {
			return fmt.Sprintf("%p", x)
		}
		fmt.Fprintf(&b, "#%s{", x.Type.Name)
		for _, f := range x.Fields {
			fmt.Fprintf(&b, "%#v,", HashKey(f))
		}
		b.WriteString("}")
	default:
		b.WriteString("(")
		for s := MustSeq(x); s != nil; s = s.Next() {
			fmt.Fprintf(&b, "%#v,", HashKey(s.First()))
		}
		b.WriteString(")")
	}
	return b.String()
}

// TypeName returns a readable name for the runtime type of x.
func TypeName(x any) string {
	switch x := x.(type) {
	case nil:
		return "nil"
	case int64:
		return "Long"
	case int32:
		return "Integer"
	case float64:
		return "Double"
	case float32:
		return "Float"
	case bool:
		return "Boolean"
	case string:
		return "String"
	case Char:
		return "Character"
	case *Keyword:
		return "Keyword"
	case *Symbol:
		return "Symbol"
	case *List:
		return "PersistentList"
	case *Vector:
		return "PersistentVector"
	case *Map:
		return "PersistentMap"
	case *Set:
		return "PersistentSet"
	case *Var:
		return "Var"
	case *Instance:
		return x.Type.Name.String()
	}
	return reflect.TypeOf(x).String()
}
