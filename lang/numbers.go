package lang

import (
	"fmt"
	"math"
)

// The numeric tower.  Integral values are int64 (long) or int32 (int);
// floating point values are float64 (double) or float32 (float).  Mixed
// integer/float operations produce doubles.  Checked long operations fail
// with an ArithmeticError instead of wrapping.
//
// Functions suffixed Long or Double take primitive operands and are the
// exact signatures the compiler selects for statically typed arguments.
// The unsuffixed functions take boxed operands.

func errOverflow() error {
	return &ArithmeticError{Msg: "integer overflow"}
}

func errDivideByZero() error {
	return &ArithmeticError{Msg: "Divide by zero"}
}

func notANumber(x any) error {
	return &ClassCastError{From: TypeName(x), To: "Number"}
}

// num classifies a boxed number.
func num(x any) (l int64, d float64, isDouble bool, err error) {
	switch x := x.(type) {
	case int64:
		return x, 0, false, nil
	case int32:
		return int64(x), 0, false, nil
	case int:
		return int64(x), 0, false, nil
	case float64:
		return 0, x, true, nil
	case float32:
		return 0, float64(x), true, nil
	}
	return 0, 0, false, notANumber(x)
}

// IsNumber reports whether x is a boxed number.
func IsNumber(x any) bool {
	_, _, _, err := num(x)
	return err == nil
}

func num2(x, y any) (lx, ly int64, dx, dy float64, isDouble bool, err error) {
	lx, dx, fx, err := num(x)
	if err != nil {
		return
	}
	ly, dy, fy, err := num(y)
	if err != nil {
		return
	}
	if fx || fy {
		if !fx {
			dx = float64(lx)
		}
		if !fy {
			dy = float64(ly)
		}
		isDouble = true
	}
	return
}

func AddLong(x, y int64) (int64, error) {
	r := x + y
	if (r^x)&(r^y) < 0 {
		return 0, errOverflow()
	}
	return r, nil
}

func UncheckedAddLong(x, y int64) int64 { return x + y }

func AddDouble(x, y float64) float64 { return x + y }

func SubLong(x, y int64) (int64, error) {
	r := x - y
	if (r^x)&(^y^r) < 0 {
		return 0, errOverflow()
	}
	return r, nil
}

func UncheckedSubLong(x, y int64) int64 { return x - y }

func SubDouble(x, y float64) float64 { return x - y }

func MulLong(x, y int64) (int64, error) {
	if x == math.MinInt64 && y < 0 || y == math.MinInt64 && x < 0 {
		return 0, errOverflow()
	}
	r := x * y
	if y != 0 && (r/y != x) {
		return 0, errOverflow()
	}
	return r, nil
}

func UncheckedMulLong(x, y int64) int64 { return x * y }

func MulDouble(x, y float64) float64 { return x * y }

// DivLong returns an exact long quotient when y divides x and a double
// otherwise.
func DivLong(x, y int64) (any, error) {
	if y == 0 {
		return nil, errDivideByZero()
	}
	if x%y == 0 {
		if x == math.MinInt64 && y == -1 {
			return nil, errOverflow()
		}
		return x / y, nil
	}
	return float64(x) / float64(y), nil
}

func DivDouble(x, y float64) float64 { return x / y }

func QuotLong(x, y int64) (int64, error) {
	if y == 0 {
		return 0, errDivideByZero()
	}
	return x / y, nil
}

func QuotDouble(x, y float64) (float64, error) {
	if y == 0 {
		return 0, errDivideByZero()
	}
	return math.Trunc(x / y), nil
}

func RemLong(x, y int64) (int64, error) {
	if y == 0 {
		return 0, errDivideByZero()
	}
	return x % y, nil
}

func RemDouble(x, y float64) (float64, error) {
	if y == 0 {
		return 0, errDivideByZero()
	}
	return math.Mod(x, y), nil
}

func IncLong(x int64) (int64, error) {
	if x == math.MaxInt64 {
		return 0, errOverflow()
	}
	return x + 1, nil
}

func UncheckedIncLong(x int64) int64 { return x + 1 }

func IncDouble(x float64) float64 { return x + 1 }

func DecLong(x int64) (int64, error) {
	if x == math.MinInt64 {
		return 0, errOverflow()
	}
	return x - 1, nil
}

func UncheckedDecLong(x int64) int64 { return x - 1 }

func DecDouble(x float64) float64 { return x - 1 }

func NegateLong(x int64) (int64, error) {
	if x == math.MinInt64 {
		return 0, errOverflow()
	}
	return -x, nil
}

func UncheckedNegateLong(x int64) int64 { return -x }

func NegateDouble(x float64) float64 { return -x }

func LtLong(x, y int64) bool { return x < y }

func LtDouble(x, y float64) bool { return x < y }

func LteLong(x, y int64) bool { return x <= y }

func LteDouble(x, y float64) bool { return x <= y }

func GtLong(x, y int64) bool { return x > y }

func GtDouble(x, y float64) bool { return x > y }

func GteLong(x, y int64) bool { return x >= y }

func GteDouble(x, y float64) bool { return x >= y }

func EquivLong(x, y int64) bool { return x == y }

func EquivDouble(x, y float64) bool { return x == y }

func IsZeroLong(x int64) bool { return x == 0 }

func IsZeroDouble(x float64) bool { return x == 0 }

func IsPosLong(x int64) bool { return x > 0 }

func IsPosDouble(x float64) bool { return x > 0 }

func IsNegLong(x int64) bool { return x < 0 }

func IsNegDouble(x float64) bool { return x < 0 }

func MaxLong(x, y int64) int64 {
	if x > y {
		return x
	}
	return y
}

func MinLong(x, y int64) int64 {
	if x < y {
		return x
	}
	return y
}

func MaxDouble(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	if x > y {
		return x
	}
	return y
}

func MinDouble(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	if x < y {
		return x
	}
	return y
}

func BitAndLong(x, y int64) int64 { return x & y }

func BitOrLong(x, y int64) int64 { return x | y }

func BitXorLong(x, y int64) int64 { return x ^ y }

func BitNotLong(x int64) int64 { return ^x }

// Shift counts are masked to the operand width so every count is defined.

func ShiftLeftLong(x, n int64) int64 { return x << (n & 63) }

func ShiftRightLong(x, n int64) int64 { return x >> (n & 63) }
func UnsignedShiftRightLong(x, n int64) int64 {
	return int64(uint64(x) >> (n & 63))
}

func ShiftLeftInt(x, n int32) int32 { return x << (n & 31) }

func ShiftRightInt(x, n int32) int32 { return x >> (n & 31) }
func UnsignedShiftRightInt(x, n int32) int32 {
	return int32(uint32(x) >> (n & 31))
}

const (
	twoTo63 = 9223372036854775808.0
	twoTo31 = 2147483648.0
)

func outOfRange(kind string, x any) error {
	return &IllegalArgumentError{Msg: fmt.Sprintf("Value out of range for %s: %s", kind, PrStr(x))}
}

// LongCastDouble truncates x toward zero, failing when x is outside the range
// of long.
func LongCastDouble(x float64) (int64, error) {
	if math.IsNaN(x) {
		return 0, nil
	}
	if x >= twoTo63 || x < -twoTo63 {
		return 0, outOfRange("long", x)
	}
	return int64(x), nil
}

// UncheckedLongCastDouble saturates at the range of long.  NaN converts to 0.
func UncheckedLongCastDouble(x float64) int64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= twoTo63:
		return math.MaxInt64
	case x < -twoTo63:
		return math.MinInt64
	}
	return int64(x)
}

func LongCastInt(x int32) int64 { return int64(x) }

func IntCastLong(x int64) (int32, error) {
	if x < math.MinInt32 || x > math.MaxInt32 {
		return 0, outOfRange("int", x)
	}
	return int32(x), nil
}

func IntCastDouble(x float64) (int32, error) {
	if math.IsNaN(x) {
		return 0, nil
	}
	if x >= twoTo31 || x < -twoTo31 {
		return 0, outOfRange("int", x)
	}
	return int32(x), nil
}

func UncheckedIntCastLong(x int64) int32 { return int32(x) }

func UncheckedIntCastDouble(x float64) int32 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= twoTo31:
		return math.MaxInt32
	case x < -twoTo31:
		return math.MinInt32
	}
	return int32(x)
}

func DoubleCastLong(x int64) float64 { return float64(x) }

func DoubleCastFloat(x float32) float64 { return float64(x) }

func FloatCastDouble(x float64) (float32, error) {
	if !math.IsNaN(x) && !math.IsInf(x, 0) && math.Abs(x) > math.MaxFloat32 {
		return 0, outOfRange("float", x)
	}
	return float32(x), nil
}

func FloatCastLong(x int64) float32 { return float32(x) }

// Boxed operations.

func Add(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx + dy, nil
	}
	return AddLong(lx, ly)
}

func UncheckedAdd(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx + dy, nil
	}
	return lx + ly, nil
}

func Sub(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx - dy, nil
	}
	return SubLong(lx, ly)
}

func UncheckedSub(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx - dy, nil
	}
	return lx - ly, nil
}

func Mul(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx * dy, nil
	}
	return MulLong(lx, ly)
}

func UncheckedMul(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx * dy, nil
	}
	return lx * ly, nil
}

func Div(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return dx / dy, nil
	}
	return DivLong(lx, ly)
}

func Quot(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return QuotDouble(dx, dy)
	}
	return QuotLong(lx, ly)
}

func Rem(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return RemDouble(dx, dy)
	}
	return RemLong(lx, ly)
}

func Inc(x any) (any, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return nil, err
	case f:
		return d + 1, nil
	}
	return IncLong(l)
}

func UncheckedInc(x any) (any, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return nil, err
	case f:
		return d + 1, nil
	}
	return l + 1, nil
}

func Dec(x any) (any, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return nil, err
	case f:
		return d - 1, nil
	}
	return DecLong(l)
}

func UncheckedDec(x any) (any, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return nil, err
	case f:
		return d - 1, nil
	}
	return l - 1, nil
}

func Negate(x any) (any, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return nil, err
	case f:
		return -d, nil
	}
	return NegateLong(l)
}

func UncheckedNegate(x any) (any, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return nil, err
	case f:
		return -d, nil
	}
	return -l, nil
}

func compare(x, y any) (int, bool, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	if err != nil {
		return 0, false, err
	}
	if f {
		switch {
		case math.IsNaN(dx) || math.IsNaN(dy):
			return 0, false, nil
		case dx < dy:
			return -1, true, nil
		case dx > dy:
			return 1, true, nil
		}
		return 0, true, nil
	}
	switch {
	case lx < ly:
		return -1, true, nil
	case lx > ly:
		return 1, true, nil
	}
	return 0, true, nil
}

func Lt(x, y any) (bool, error) {
	c, ok, err := compare(x, y)
	return ok && c < 0, err
}

func Lte(x, y any) (bool, error) {
	c, ok, err := compare(x, y)
	return ok && c <= 0, err
}

func Gt(x, y any) (bool, error) {
	c, ok, err := compare(x, y)
	return ok && c > 0, err
}

func Gte(x, y any) (bool, error) {
	c, ok, err := compare(x, y)
	return ok && c >= 0, err
}

// Equiv is numeric equality: (== 1 1.0) is true.
func Equiv(x, y any) (bool, error) {
	c, ok, err := compare(x, y)
	return ok && c == 0, err
}

func IsZero(x any) (bool, error) {
	l, d, f, err := num(x)
	if f {
		return d == 0, err
	}
	return l == 0, err
}

func IsPos(x any) (bool, error) {
	l, d, f, err := num(x)
	if f {
		return d > 0, err
	}
	return l > 0, err
}

func IsNeg(x any) (bool, error) {
	l, d, f, err := num(x)
	if f {
		return d < 0, err
	}
	return l < 0, err
}

func Max(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return MaxDouble(dx, dy), nil
	}
	return MaxLong(lx, ly), nil
}

func Min(x, y any) (any, error) {
	lx, ly, dx, dy, f, err := num2(x, y)
	switch {
	case err != nil:
		return nil, err
	case f:
		return MinDouble(dx, dy), nil
	}
	return MinLong(lx, ly), nil
}

func integer(x any) (int64, error) {
	l, _, f, err := num(x)
	if err != nil {
		return 0, err
	}
	if f {
		return 0, &IllegalArgumentError{Msg: fmt.Sprintf("bit operation not supported for: %s", TypeName(x))}
	}
	return l, nil
}

func integers(x, y any) (int64, int64, error) {
	a, err := integer(x)
	if err != nil {
		return 0, 0, err
	}
	b, err := integer(y)
	return a, b, err
}

func BitAnd(x, y any) (any, error) {
	a, b, err := integers(x, y)
	if err != nil {
		return nil, err
	}
	return a & b, nil
}

func BitOr(x, y any) (any, error) {
	a, b, err := integers(x, y)
	if err != nil {
		return nil, err
	}
	return a | b, nil
}

func BitXor(x, y any) (any, error) {
	a, b, err := integers(x, y)
	if err != nil {
		return nil, err
	}
	return a ^ b, nil
}

func BitNot(x any) (any, error) {
	a, err := integer(x)
	if err != nil {
		return nil, err
	}
	return ^a, nil
}

func ShiftLeft(x, n any) (any, error) {
	a, b, err := integers(x, n)
	if err != nil {
		return nil, err
	}
	return ShiftLeftLong(a, b), nil
}

func ShiftRight(x, n any) (any, error) {
	a, b, err := integers(x, n)
	if err != nil {
		return nil, err
	}
	return ShiftRightLong(a, b), nil
}

func UnsignedShiftRight(x, n any) (any, error) {
	a, b, err := integers(x, n)
	if err != nil {
		return nil, err
	}
	return UnsignedShiftRightLong(a, b), nil
}

// LongCast converts a boxed number to long.
func LongCast(x any) (int64, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		if c, ok := x.(Char); ok {
			return int64(c), nil
		}
		return 0, err
	case f:
		return LongCastDouble(d)
	}
	return l, nil
}

func UncheckedLongCast(x any) (int64, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return 0, err
	case f:
		return UncheckedLongCastDouble(d), nil
	}
	return l, nil
}

func IntCast(x any) (int32, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		if c, ok := x.(Char); ok {
			return int32(c), nil
		}
		return 0, err
	case f:
		return IntCastDouble(d)
	}
	return IntCastLong(l)
}

func UncheckedIntCast(x any) (int32, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return 0, err
	case f:
		return UncheckedIntCastDouble(d), nil
	}
	return int32(l), nil
}

// DoubleCast converts a boxed number to double.
func DoubleCast(x any) (float64, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return 0, err
	case f:
		return d, nil
	}
	return float64(l), nil
}

func FloatCast(x any) (float32, error) {
	l, d, f, err := num(x)
	switch {
	case err != nil:
		return 0, err
	case f:
		return FloatCastDouble(d)
	}
	return float32(l), nil
}

// BooleanCast converts to a primitive boolean using truthiness.
func BooleanCast(x any) bool {
	return Truthy(x)
}

// Array helpers.  Typed arrays are Go slices: []int64 (longs), []float64
// (doubles) and []any (objects).

func AlengthLongs(a []int64) int64 { return int64(len(a)) }

func AlengthDoubles(a []float64) int64 { return int64(len(a)) }

func AlengthObjects(a []any) int64 { return int64(len(a)) }

func AgetLongs(a []int64, i int64) (int64, error) {
	if i < 0 || i >= int64(len(a)) {
		return 0, &IndexOutOfBoundsError{Index: int(i)}
	}
	return a[i], nil
}

func AgetDoubles(a []float64, i int64) (float64, error) {
	if i < 0 || i >= int64(len(a)) {
		return 0, &IndexOutOfBoundsError{Index: int(i)}
	}
	return a[i], nil
}

func AgetObjects(a []any, i int64) (any, error) {
	if i < 0 || i >= int64(len(a)) {
		return nil, &IndexOutOfBoundsError{Index: int(i)}
	}
	return a[i], nil
}

func AsetLongs(a []int64, i int64, v int64) (int64, error) {
	if i < 0 || i >= int64(len(a)) {
		return 0, &IndexOutOfBoundsError{Index: int(i)}
	}
	a[i] = v
	return v, nil
}

func AsetDoubles(a []float64, i int64, v float64) (float64, error) {
	if i < 0 || i >= int64(len(a)) {
		return 0, &IndexOutOfBoundsError{Index: int(i)}
	}
	a[i] = v
	return v, nil
}

func AsetObjects(a []any, i int64, v any) (any, error) {
	if i < 0 || i >= int64(len(a)) {
		return nil, &IndexOutOfBoundsError{Index: int(i)}
	}
	a[i] = v
	return v, nil
}

// Alength returns the length of any array.
func Alength(a any) (int64, error) {
	switch a := a.(type) {
	case []int64:
		return int64(len(a)), nil
	case []float64:
		return int64(len(a)), nil
	case []any:
		return int64(len(a)), nil
	}
	return 0, &IllegalArgumentError{Msg: fmt.Sprintf("Argument to alength must be an array: %s", TypeName(a))}
}

// Aget reads any array element.
func Aget(a any, i int64) (any, error) {
	switch a := a.(type) {
	case []int64:
		return AgetLongs(a, i)
	case []float64:
		return AgetDoubles(a, i)
	case []any:
		return AgetObjects(a, i)
	}
	return nil, &IllegalArgumentError{Msg: fmt.Sprintf("Argument to aget must be an array: %s", TypeName(a))}
}

// Aset writes any array element.
func Aset(a any, i int64, v any) (any, error) {
	switch a := a.(type) {
	case []int64:
		l, err := LongCast(v)
		if err != nil {
			return nil, err
		}
		return AsetLongs(a, i, l)
	case []float64:
		d, err := DoubleCast(v)
		if err != nil {
			return nil, err
		}
		return AsetDoubles(a, i, d)
	case []any:
		return AsetObjects(a, i, v)
	}
	return nil, &IllegalArgumentError{Msg: fmt.Sprintf("Argument to aset must be an array: %s", TypeName(a))}
}
