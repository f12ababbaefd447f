package host

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/luthersystems/eclj/lang"
)

// Registry maps class names to classes.  A Registry is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry returns a registry holding only the primitive type names.
func NewRegistry() *Registry {
	r := &Registry{classes: make(map[string]*Class)}
	for _, c := range []*Class{Long, Double, Int, Float, Bool, Void, Longs, Doubles, Objects} {
		r.classes[c.Name] = c
	}
	return r
}

// StandardRegistry returns a registry with the standard host classes.
func StandardRegistry() *Registry {
	r := NewRegistry()
	for name, c := range standard {
		r.classes[name] = c
	}
	return r
}

// Register maps name to c.
func (r *Registry) Register(name string, c *Class) {
	r.mu.Lock()
	r.classes[name] = c
	r.mu.Unlock()
}

// Lookup returns the class registered as name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// MustLookup is like Lookup but panics when name is not registered.
func (r *Registry) MustLookup(name string) *Class {
	c, ok := r.Lookup(name)
	if !ok {
		panic("host: unknown class " + name)
	}
	return c
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

var (
	standard map[string]*Class

	// Numbers holds the numeric operations targeted by inlined arithmetic.
	Numbers = newClass("lang.Numbers", nil)
	// Arrays holds primitive array operations.
	Arrays = newClass("lang.Arrays", nil)
	// Math holds floating point functions.
	Math = newClass("Math", nil)
	// System holds process level functions.
	System = newClass("System", nil)
	// StringBuilder builds strings incrementally.
	StringBuilder = Canonical("StringBuilder", reflect.TypeOf((*strings.Builder)(nil)))
	// ExceptionInfo is the class of ex-info errors.
	ExceptionInfo = Canonical("ExceptionInfo", reflect.TypeOf((*lang.ExceptionInfo)(nil)))
)

func init() {
	defineNumbers()
	defineArrays()
	defineMath()
	defineStrings()
	defineBoxes()
	defineErrors()
	standard = map[string]*Class{
		"Object":        Object,
		"String":        String,
		"Character":     Char,
		"Long":          BoxedLong,
		"Integer":       BoxedInt,
		"Double":        BoxedDouble,
		"Float":         BoxedFloat,
		"Boolean":       BoxedBool,
		"Number":        Object,
		"Keyword":       Keyword,
		"Symbol":        Symbol,
		"Var":           Var,
		"IFn":           IFn,
		"Throwable":     Error,
		"Exception":     Error,
		"Math":          Math,
		"System":        System,
		"StringBuilder": StringBuilder,
		"ExceptionInfo": ExceptionInfo,
		"lang.Numbers":  Numbers,
		"Numbers":       Numbers,
		"lang.Arrays":   Arrays,

		"PersistentList":   List,
		"PersistentVector": Vector,
		"PersistentMap":    Map,
		"PersistentSet":    Set,

		"ArithmeticException": errorClass("ArithmeticException", (*lang.ArithmeticError)(nil)).
			AddCtor(func(msg string) *lang.ArithmeticError { return &lang.ArithmeticError{Msg: msg} }),
		"IllegalArgumentException": errorClass("IllegalArgumentException", (*lang.IllegalArgumentError)(nil)).
			AddCtor(func(msg string) *lang.IllegalArgumentError { return &lang.IllegalArgumentError{Msg: msg} }),
		"IllegalStateException": errorClass("IllegalStateException", (*lang.IllegalStateError)(nil)).
			AddCtor(func(msg string) *lang.IllegalStateError { return &lang.IllegalStateError{Msg: msg} }),
		"ClassCastException":        errorClass("ClassCastException", (*lang.ClassCastError)(nil)),
		"IndexOutOfBoundsException": errorClass("IndexOutOfBoundsException", (*lang.IndexOutOfBoundsError)(nil)),
		"ArityException":            errorClass("ArityException", (*lang.WrongArityError)(nil)),
		"StackOverflowError":        errorClass("StackOverflowError", (*lang.StackOverflowError)(nil)),
	}
}

func errorClass(name string, v error) *Class {
	c := Canonical(name, reflect.TypeOf(v))
	c.AddMethod("getMessage", func(err error) string { return err.Error() })
	return c
}

func defineNumbers() {
	n := Numbers
	n.AddStatic("add", lang.AddLong).
		AddStatic("add", lang.AddDouble).
		AddStatic("add", lang.Add).
		AddStatic("unchecked_add", lang.UncheckedAddLong).
		AddStatic("unchecked_add", lang.AddDouble).
		AddStatic("unchecked_add", lang.UncheckedAdd).
		AddStatic("minus", lang.SubLong).
		AddStatic("minus", lang.SubDouble).
		AddStatic("minus", lang.Sub).
		AddStatic("minus", lang.NegateLong).
		AddStatic("minus", lang.NegateDouble).
		AddStatic("minus", lang.Negate).
		AddStatic("unchecked_minus", lang.UncheckedSubLong).
		AddStatic("unchecked_minus", lang.SubDouble).
		AddStatic("unchecked_minus", lang.UncheckedSub).
		AddStatic("unchecked_minus", lang.UncheckedNegateLong).
		AddStatic("unchecked_minus", lang.NegateDouble).
		AddStatic("unchecked_minus", lang.UncheckedNegate).
		AddStatic("multiply", lang.MulLong).
		AddStatic("multiply", lang.MulDouble).
		AddStatic("multiply", lang.Mul).
		AddStatic("unchecked_multiply", lang.UncheckedMulLong).
		AddStatic("unchecked_multiply", lang.MulDouble).
		AddStatic("unchecked_multiply", lang.UncheckedMul).
		AddStatic("divide", lang.DivLong).
		AddStatic("divide", lang.DivDouble).
		AddStatic("divide", lang.Div).
		AddStatic("quotient", lang.QuotLong).
		AddStatic("quotient", lang.QuotDouble).
		AddStatic("quotient", lang.Quot).
		AddStatic("remainder", lang.RemLong).
		AddStatic("remainder", lang.RemDouble).
		AddStatic("remainder", lang.Rem).
		AddStatic("inc", lang.IncLong).
		AddStatic("inc", lang.IncDouble).
		AddStatic("inc", lang.Inc).
		AddStatic("unchecked_inc", lang.UncheckedIncLong).
		AddStatic("unchecked_inc", lang.IncDouble).
		AddStatic("unchecked_inc", lang.UncheckedInc).
		AddStatic("dec", lang.DecLong).
		AddStatic("dec", lang.DecDouble).
		AddStatic("dec", lang.Dec).
		AddStatic("unchecked_dec", lang.UncheckedDecLong).
		AddStatic("unchecked_dec", lang.DecDouble).
		AddStatic("unchecked_dec", lang.UncheckedDec)

	n.AddStatic("lt", lang.LtLong).
		AddStatic("lt", lang.LtDouble).
		AddStatic("lt", lang.Lt).
		AddStatic("lte", lang.LteLong).
		AddStatic("lte", lang.LteDouble).
		AddStatic("lte", lang.Lte).
		AddStatic("gt", lang.GtLong).
		AddStatic("gt", lang.GtDouble).
		AddStatic("gt", lang.Gt).
		AddStatic("gte", lang.GteLong).
		AddStatic("gte", lang.GteDouble).
		AddStatic("gte", lang.Gte).
		AddStatic("equiv", lang.EquivLong).
		AddStatic("equiv", lang.EquivDouble).
		AddStatic("equiv", lang.Equiv).
		AddStatic("isZero", lang.IsZeroLong).
		AddStatic("isZero", lang.IsZeroDouble).
		AddStatic("isZero", lang.IsZero).
		AddStatic("isPos", lang.IsPosLong).
		AddStatic("isPos", lang.IsPosDouble).
		AddStatic("isPos", lang.IsPos).
		AddStatic("isNeg", lang.IsNegLong).
		AddStatic("isNeg", lang.IsNegDouble).
		AddStatic("isNeg", lang.IsNeg).
		AddStatic("max", lang.MaxLong).
		AddStatic("max", lang.MaxDouble).
		AddStatic("max", lang.Max).
		AddStatic("min", lang.MinLong).
		AddStatic("min", lang.MinDouble).
		AddStatic("min", lang.Min)

	n.AddStatic("and", lang.BitAndLong).
		AddStatic("and", lang.BitAnd).
		AddStatic("or", lang.BitOrLong).
		AddStatic("or", lang.BitOr).
		AddStatic("xor", lang.BitXorLong).
		AddStatic("xor", lang.BitXor).
		AddStatic("not", lang.BitNotLong).
		AddStatic("not", lang.BitNot).
		AddStatic("shiftLeft", lang.ShiftLeftLong).
		AddStatic("shiftLeft", lang.ShiftLeft).
		AddStatic("shiftRight", lang.ShiftRightLong).
		AddStatic("shiftRight", lang.ShiftRight).
		AddStatic("unsignedShiftRight", lang.UnsignedShiftRightLong).
		AddStatic("unsignedShiftRight", lang.UnsignedShiftRight).
		AddStatic("shiftLeftInt", lang.ShiftLeftInt).
		AddStatic("shiftRightInt", lang.ShiftRightInt).
		AddStatic("unsignedShiftRightInt", lang.UnsignedShiftRightInt)

	n.AddStatic("longCast", func(x int64) int64 { return x }).
		AddStatic("longCast", lang.LongCastInt).
		AddStatic("longCast", lang.LongCastDouble).
		AddStatic("longCast", lang.LongCast).
		AddStatic("uncheckedLongCast", func(x int64) int64 { return x }).
		AddStatic("uncheckedLongCast", lang.LongCastInt).
		AddStatic("uncheckedLongCast", lang.UncheckedLongCastDouble).
		AddStatic("uncheckedLongCast", lang.UncheckedLongCast).
		AddStatic("intCast", func(x int32) int32 { return x }).
		AddStatic("intCast", lang.IntCastLong).
		AddStatic("intCast", lang.IntCastDouble).
		AddStatic("intCast", lang.IntCast).
		AddStatic("uncheckedIntCast", func(x int32) int32 { return x }).
		AddStatic("uncheckedIntCast", lang.UncheckedIntCastLong).
		AddStatic("uncheckedIntCast", lang.UncheckedIntCastDouble).
		AddStatic("uncheckedIntCast", lang.UncheckedIntCast).
		AddStatic("doubleCast", func(x float64) float64 { return x }).
		AddStatic("doubleCast", lang.DoubleCastLong).
		AddStatic("doubleCast", lang.DoubleCastFloat).
		AddStatic("doubleCast", lang.DoubleCast).
		AddStatic("floatCast", func(x float32) float32 { return x }).
		AddStatic("floatCast", lang.FloatCastDouble).
		AddStatic("floatCast", lang.FloatCastLong).
		AddStatic("floatCast", lang.FloatCast).
		AddStatic("booleanCast", func(x bool) bool { return x }).
		AddStatic("booleanCast", lang.BooleanCast)
}

func defineArrays() {
	Arrays.AddStatic("alength", lang.AlengthLongs).
		AddStatic("alength", lang.AlengthDoubles).
		AddStatic("alength", lang.AlengthObjects).
		AddStatic("alength", lang.Alength).
		AddStatic("aget", lang.AgetLongs).
		AddStatic("aget", lang.AgetDoubles).
		AddStatic("aget", lang.AgetObjects).
		AddStatic("aget", lang.Aget).
		AddStatic("aset", lang.AsetLongs).
		AddStatic("aset", lang.AsetDoubles).
		AddStatic("aset", lang.AsetObjects).
		AddStatic("aset", lang.Aset)
}

func defineMath() {
	Math.AddStatic("abs", func(x int64) int64 {
		if x < 0 {
			return -x
		}
		return x
	}).
		AddStatic("abs", math.Abs).
		AddStatic("sqrt", math.Sqrt).
		AddStatic("pow", math.Pow).
		AddStatic("floor", math.Floor).
		AddStatic("ceil", math.Ceil).
		AddStatic("sin", math.Sin).
		AddStatic("cos", math.Cos).
		AddStatic("exp", math.Exp).
		AddStatic("log", math.Log).
		AddStatic("round", func(x float64) int64 { return int64(math.Floor(x + 0.5)) }).
		AddStaticField("PI", math.Pi).
		AddStaticField("E", math.E)

	System.AddStatic("currentTimeMillis", func() int64 { return time.Now().UnixMilli() }).
		AddStatic("nanoTime", func() int64 { return time.Now().UnixNano() }).
		AddStatic("identityHashCode", func(x any) int64 {
			v := reflect.ValueOf(x)
			if x == nil || v.Kind() != reflect.Ptr {
				return 0
			}
			return int64(v.Pointer())
		})
}

func defineStrings() {
	String.AddMethod("length", func(s string) int64 { return int64(len([]rune(s))) }).
		AddMethod("toUpperCase", strings.ToUpper).
		AddMethod("toLowerCase", strings.ToLower).
		AddMethod("trim", strings.TrimSpace).
		AddMethod("contains", strings.Contains).
		AddMethod("startsWith", strings.HasPrefix).
		AddMethod("endsWith", strings.HasSuffix).
		AddMethod("indexOf", func(s, sub string) int64 { return int64(strings.Index(s, sub)) }).
		AddMethod("substring", func(s string, start int64) (string, error) {
			return substring(s, start, int64(len([]rune(s))))
		}).
		AddMethod("substring", substring).
		AddMethod("charAt", func(s string, i int64) (lang.Char, error) {
			r := []rune(s)
			if i < 0 || i >= int64(len(r)) {
				return 0, &lang.IndexOutOfBoundsError{Index: int(i)}
			}
			return lang.Char(r[i]), nil
		}).
		AddMethod("concat", func(s, t string) string { return s + t }).
		AddMethod("toString", func(s string) string { return s }).
		AddStatic("valueOf", lang.Str).
		AddStatic("join", func(sep string, items any) (string, error) {
			xs, err := lang.SeqItems(items)
			if err != nil {
				return "", err
			}
			parts := make([]string, len(xs))
			for i, x := range xs {
				parts[i] = lang.Str(x)
			}
			return strings.Join(parts, sep), nil
		})

	StringBuilder.AddCtor(func() *strings.Builder { return &strings.Builder{} }).
		AddCtor(func(s string) *strings.Builder {
			b := &strings.Builder{}
			b.WriteString(s)
			return b
		}).
		AddMethod("append", func(b *strings.Builder, x any) *strings.Builder {
			b.WriteString(lang.Str(x))
			return b
		}).
		AddMethod("length", func(b *strings.Builder) int64 { return int64(b.Len()) }).
		AddMethod("toString", (*strings.Builder).String)

	Keyword.AddMethod("getName", func(k *lang.Keyword) string { return k.Name }).
		AddMethod("getNamespace", func(k *lang.Keyword) string { return k.Ns })
	Symbol.AddMethod("getName", func(s *lang.Symbol) string { return s.Name }).
		AddMethod("getNamespace", func(s *lang.Symbol) string { return s.Ns })
	Object.AddMethod("toString", lang.Str).
		AddMethod("equals", lang.Equal)
}

func substring(s string, start, end int64) (string, error) {
	r := []rune(s)
	if start < 0 || end > int64(len(r)) || start > end {
		return "", &lang.IndexOutOfBoundsError{Index: int(end)}
	}
	return string(r[start:end]), nil
}

func defineBoxes() {
	BoxedLong.AddStatic("parseLong", func(s string) (int64, error) {
		x, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, &lang.IllegalArgumentError{Msg: fmt.Sprintf("For input string: %q", s)}
		}
		return x, nil
	}).
		AddStatic("valueOf", func(x int64) int64 { return x }).
		AddStaticField("MAX_VALUE", int64(math.MaxInt64)).
		AddStaticField("MIN_VALUE", int64(math.MinInt64))
	BoxedInt.AddStaticField("MAX_VALUE", int32(math.MaxInt32)).
		AddStaticField("MIN_VALUE", int32(math.MinInt32))
	BoxedDouble.AddStatic("parseDouble", func(s string) (float64, error) {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &lang.IllegalArgumentError{Msg: fmt.Sprintf("For input string: %q", s)}
		}
		return x, nil
	}).
		AddStatic("isNaN", math.IsNaN).
		AddStaticField("MAX_VALUE", math.MaxFloat64).
		AddStaticField("NaN", math.NaN()).
		AddStaticField("POSITIVE_INFINITY", math.Inf(1)).
		AddStaticField("NEGATIVE_INFINITY", math.Inf(-1))
	BoxedBool.AddStaticField("TRUE", true).
		AddStaticField("FALSE", false)
}

func defineErrors() {
	Error.AddMethod("getMessage", func(err error) string { return err.Error() }).
		AddMethod("getCause", func(err error) error {
			u, ok := err.(interface{ Unwrap() error })
			if !ok {
				return nil
			}
			return u.Unwrap()
		})
	ExceptionInfo.AddCtor(func(msg string, data *lang.Map) *lang.ExceptionInfo {
		return lang.NewExceptionInfo(msg, data, nil)
	}).
		AddMethod("getMessage", func(err *lang.ExceptionInfo) string { return err.Msg }).
		AddMethod("getData", func(err *lang.ExceptionInfo) *lang.Map { return err.Data })
}
