package compiler

import (
	"github.com/luthersystems/eclj/asm"
)

// Intrinsic host methods are replaced by instruction sequences with the
// same results, keyed by the String form of the method.  Only signatures
// whose parameters and result are all primitive appear.

func op(o asm.Op) asm.Instr { return asm.Instr{Op: o} }

func lconst(n int) asm.Instr { return asm.Instr{Op: asm.LCONST, A: n} }

var valueIntrinsics = map[string][]asm.Instr{
	"lang.Numbers/add(long,long)":                {op(asm.LADDOVF)},
	"lang.Numbers/add(double,double)":            {op(asm.DADD)},
	"lang.Numbers/unchecked_add(long,long)":      {op(asm.LADD)},
	"lang.Numbers/unchecked_add(double,double)":  {op(asm.DADD)},
	"lang.Numbers/minus(long,long)":              {op(asm.LSUBOVF)},
	"lang.Numbers/minus(double,double)":          {op(asm.DSUB)},
	"lang.Numbers/minus(long)":                   {op(asm.LNEGOVF)},
	"lang.Numbers/minus(double)":                 {op(asm.DNEG)},
	"lang.Numbers/unchecked_minus(long,long)":    {op(asm.LSUB)},
	"lang.Numbers/unchecked_minus(double,double)": {op(asm.DSUB)},
	"lang.Numbers/unchecked_minus(long)":         {op(asm.LNEG)},
	"lang.Numbers/unchecked_minus(double)":       {op(asm.DNEG)},
	"lang.Numbers/multiply(long,long)":           {op(asm.LMULOVF)},
	"lang.Numbers/multiply(double,double)":       {op(asm.DMUL)},
	"lang.Numbers/unchecked_multiply(long,long)": {op(asm.LMUL)},
	"lang.Numbers/unchecked_multiply(double,double)": {op(asm.DMUL)},
	"lang.Numbers/divide(double,double)":             {op(asm.DDIV)},
	"lang.Numbers/quotient(long,long)":               {op(asm.LQUOT)},
	"lang.Numbers/remainder(long,long)":              {op(asm.LREM)},
	"lang.Numbers/remainder(double,double)":          {op(asm.DREM)},

	"lang.Numbers/inc(long)":            {lconst(1), op(asm.LADDOVF)},
	"lang.Numbers/inc(double)":          {lconst(1), op(asm.L2D), op(asm.DADD)},
	"lang.Numbers/unchecked_inc(long)":  {lconst(1), op(asm.LADD)},
	"lang.Numbers/unchecked_inc(double)": {lconst(1), op(asm.L2D), op(asm.DADD)},
	"lang.Numbers/dec(long)":            {lconst(1), op(asm.LSUBOVF)},
	"lang.Numbers/dec(double)":          {lconst(1), op(asm.L2D), op(asm.DSUB)},
	"lang.Numbers/unchecked_dec(long)":  {lconst(1), op(asm.LSUB)},
	"lang.Numbers/unchecked_dec(double)": {lconst(1), op(asm.L2D), op(asm.DSUB)},

	"lang.Numbers/and(long,long)":                {op(asm.LAND)},
	"lang.Numbers/or(long,long)":                 {op(asm.LOR)},
	"lang.Numbers/xor(long,long)":                {op(asm.LXOR)},
	"lang.Numbers/not(long)":                     {op(asm.LNOT)},
	"lang.Numbers/shiftLeft(long,long)":          {lconst(63), op(asm.LAND), op(asm.LSHL)},
	"lang.Numbers/shiftRight(long,long)":         {lconst(63), op(asm.LAND), op(asm.LSHR)},
	"lang.Numbers/unsignedShiftRight(long,long)": {lconst(63), op(asm.LAND), op(asm.LUSHR)},
	// No core function inlines to the int shifts; they are reached by
	// calling lang.Numbers directly.
	"lang.Numbers/shiftLeftInt(int,int)":         {lconst(31), op(asm.LAND), op(asm.ISHL)},
	"lang.Numbers/shiftRightInt(int,int)":        {lconst(31), op(asm.LAND), op(asm.ISHR)},
	"lang.Numbers/unsignedShiftRightInt(int,int)": {lconst(31), op(asm.LAND), op(asm.IUSHR)},

	"lang.Numbers/longCast(long)":            {},
	"lang.Numbers/longCast(int)":             {op(asm.I2L)},
	"lang.Numbers/uncheckedLongCast(long)":   {},
	"lang.Numbers/uncheckedLongCast(int)":    {op(asm.I2L)},
	"lang.Numbers/uncheckedLongCast(double)": {op(asm.D2L)},
	"lang.Numbers/intCast(int)":              {},
	"lang.Numbers/intCast(long)":             {op(asm.L2IOVF)},
	"lang.Numbers/uncheckedIntCast(int)":     {},
	"lang.Numbers/uncheckedIntCast(long)":    {op(asm.L2I)},
	"lang.Numbers/doubleCast(double)":        {},
	"lang.Numbers/doubleCast(long)":          {op(asm.L2D)},
	"lang.Numbers/doubleCast(float)":         {op(asm.F2D)},
	"lang.Numbers/floatCast(float)":          {},
	"lang.Numbers/floatCast(long)":           {op(asm.L2F)},
}

// predicateIntrinsics end with a branch taken when the predicate is false.
var predicateIntrinsics = map[string][]asm.Instr{
	"lang.Numbers/lt(long,long)":    {op(asm.LCMP), op(asm.IFGE)},
	"lang.Numbers/lte(long,long)":   {op(asm.LCMP), op(asm.IFGT)},
	"lang.Numbers/gt(long,long)":    {op(asm.LCMP), op(asm.IFLE)},
	"lang.Numbers/gte(long,long)":   {op(asm.LCMP), op(asm.IFLT)},
	"lang.Numbers/equiv(long,long)": {op(asm.LCMP), op(asm.IFNE)},

	// NaN compares so that every test is false.
	"lang.Numbers/lt(double,double)":    {op(asm.DCMPG), op(asm.IFGE)},
	"lang.Numbers/lte(double,double)":   {op(asm.DCMPG), op(asm.IFGT)},
	"lang.Numbers/gt(double,double)":    {op(asm.DCMPL), op(asm.IFLE)},
	"lang.Numbers/gte(double,double)":   {op(asm.DCMPL), op(asm.IFLT)},
	"lang.Numbers/equiv(double,double)": {op(asm.DCMPL), op(asm.IFNE)},

	"lang.Numbers/isZero(long)":   {op(asm.IFNE)},
	"lang.Numbers/isPos(long)":    {op(asm.IFLE)},
	"lang.Numbers/isNeg(long)":    {op(asm.IFGE)},
	"lang.Numbers/isZero(double)": {lconst(0), op(asm.L2D), op(asm.DCMPL), op(asm.IFNE)},
	"lang.Numbers/isPos(double)":  {lconst(0), op(asm.L2D), op(asm.DCMPL), op(asm.IFLE)},
	"lang.Numbers/isNeg(double)":  {lconst(0), op(asm.L2D), op(asm.DCMPG), op(asm.IFGE)},
}

// Intrinsics reports the instruction sequences substituted for host methods.
// The returned maps must not be modified.
func Intrinsics() (value, predicate map[string][]asm.Instr) {
	return valueIntrinsics, predicateIntrinsics
}

// predicateExpr is implemented by boolean expressions that can branch on
// their own result instead of producing a value.
type predicateExpr interface {
	canEmitPredicate() bool
	// emitPredicate branches to falseLabel when the predicate is false and
	// falls through otherwise.
	emitPredicate(g *Gen, falseLabel asm.Label) error
}

// emitInstrs appends a value intrinsic.
func emitInstrs(g *Gen, ins []asm.Instr) {
	for _, in := range ins {
		g.b.EmitInstr(in)
	}
}

// emitPredicateInstrs appends a predicate intrinsic whose final branch
// targets falseLabel.
func emitPredicateInstrs(g *Gen, ins []asm.Instr, falseLabel asm.Label) {
	emitInstrs(g, ins[:len(ins)-1])
	g.b.EmitBranch(ins[len(ins)-1].Op, falseLabel)
}
