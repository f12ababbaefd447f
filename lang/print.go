package lang

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var charNames = map[Char]string{
	'\n': "newline",
	' ':  "space",
	'\t': "tab",
	'\r': "return",
	'\b': "backspace",
	'\f': "formfeed",
}

// PrStr returns the readable representation of x.  Strings are quoted and
// characters escaped.
func PrStr(x any) string {
	var b strings.Builder
	write(&b, x, true)
	return b.String()
}

// Str returns the display representation of x.  Strings and characters are
// written verbatim and nil is the empty string.
func Str(x any) string {
	switch x := x.(type) {
	case nil:
		return ""
	case string:
		return x
	case Char:
		return string(rune(x))
	}
	var b strings.Builder
	write(&b, x, false)
	return b.String()
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func write(b *strings.Builder, x any, readably bool) {
	switch x := x.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int:
		b.WriteString(strconv.Itoa(x))
	case float64:
		b.WriteString(formatDouble(x))
	case float32:
		b.WriteString(formatDouble(float64(x)))
	case string:
		if readably {
			b.WriteString(strconv.Quote(x))
		} else {
			b.WriteString(x)
		}
	case Char:
		if !readably {
			b.WriteRune(rune(x))
			return
		}
		b.WriteByte('\\')
		if name, ok := charNames[x]; ok {
			b.WriteString(name)
		} else {
			b.WriteRune(rune(x))
		}
	case *Keyword:
		b.WriteString(x.String())
	case *Symbol:
		b.WriteString(x.String())
	case *Var:
		b.WriteString(x.String())
	case *List:
		writeSeq(b, "(", ")", x.Items(), readably)
	case *Vector:
		writeSeq(b, "[", "]", x.items, readably)
	case *Set:
		writeSeq(b, "#{", "}", x.Items(), readably)
	case *Map:
		b.WriteString("{")
		for i, k := range x.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			write(b, k, readably)
			b.WriteString(" ")
			write(b, x.vals[i], readably)
		}
		b.WriteString("}")
	case *Instance:
		if !x.Type.Record {
			fmt.Fprintf(b, "#object[%s]", x.Type.Name)
			return
		}
		fmt.Fprintf(b, "#%s{", x.Type.Name)
		for i, f := range x.Type.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(":" + f.Name + " ")
			write(b, x.Fields[i], readably)
		}
		b.WriteString("}")
	case *TypeDef:
		b.WriteString(x.Name.String())
	case Seq:
		var items []any
		for s := Seq(x); s != nil; s = s.Next() {
			items = append(items, s.First())
		}
		writeSeq(b, "(", ")", items, readably)
	case error:
		fmt.Fprintf(b, "#error[%s]", x.Error())
	case fmt.Stringer:
		b.WriteString(x.String())
	case []int64, []float64, []any:
		fmt.Fprintf(b, "#array%v", x)
	default:
		fmt.Fprintf(b, "#object[%T]", x)
	}
}

func writeSeq(b *strings.Builder, open, close string, items []any, readably bool) {
	b.WriteString(open)
	for i, x := range items {
		if i > 0 {
			b.WriteString(" ")
		}
		write(b, x, readably)
	}
	b.WriteString(close)
}
