package asm

// Op is an instruction opcode.
type Op uint8

// Opcodes.  Stack effects are written [before] -> [after] with the top of
// the stack on the right.
const (
	NOP Op = iota

	LDC     // [] -> [const A]
	LDCPRIM // [] -> [const A unboxed as K]
	LCONST  // [] -> [A as long bits]
	LDNULL  // [] -> [nil]
	LDLOC   // [] -> [local A]
	STLOC   // [v] -> []; local A = v
	LDTHIS  // [] -> [this]
	LDFLD   // [] -> [this.field A]
	PATCHFLD
	POP
	DUP
	SWAP

	GETVAR   // [] -> [deref of var const A]
	SETVAR   // [v] -> [v]; set thread binding of var const A
	DEFVAR   // [v] -> [var]; bind root of var const A
	BINDPUSH // [var val ...] -> []; A pairs
	BINDPOP

	BR
	BRTRUE  // [v] -> []; branch when v of kind K is truthy
	BRFALSE // [v] -> []; branch when v of kind K is falsey
	IFEQ    // [long] -> []; branch when v == 0
	IFNE
	IFLT
	IFGE
	IFGT
	IFLE

	LCMP  // [x y] -> [-1|0|1]
	DCMPL // as LCMP; NaN gives -1
	DCMPG // as LCMP; NaN gives 1

	LADD
	LSUB
	LMUL
	LADDOVF
	LSUBOVF
	LMULOVF
	LNEG
	LNEGOVF
	LQUOT
	LREM
	LAND
	LOR
	LXOR
	LNOT
	LSHL
	LSHR
	LUSHR
	ISHL
	ISHR
	IUSHR

	DADD
	DSUB
	DMUL
	DDIV
	DREM
	DNEG

	I2L
	L2I
	L2IOVF
	L2D
	D2L
	I2D
	F2D
	D2F
	L2F

	BOX   // [prim K] -> [boxed]
	UNBOX // [boxed] -> [prim K]

	INVOKE          // [fn args...] -> [result]; A args
	INVOKESTATIC    // [args...] -> [result]; X *host.Method
	INVOKEINST      // [target args...] -> [result]; X *host.Method
	INVOKEDYN       // [target args...] -> [result]; S name, A args
	INVOKESTATICDYN // [args...] -> [result]; X *host.Class, S name, A args
	INVOKEPROTO     // [fn target args...] -> [result]; A args, B site const
	INVOKEKW        // [target] -> [result]; B site const
	INVOKEPRIM      // [fn args...] -> [result K]; A args, X []Kind

	GETSTATIC   // [] -> [v]; X *host.Field
	GETFIELD    // [target] -> [v]; X *host.Field
	SETFIELD    // [target v] -> [v]; X *host.Field
	GETFIELDDYN // [target] -> [v]; S name
	SETFIELDDYN // [target v] -> [v]; S name
	NEW         // [args...] -> [v]; X *host.Method
	NEWDYN      // [args...] -> [v]; X *host.Class, A args
	INSTANCEOF  // [v] -> [bool]; X *host.Class
	NEWFN       // [meta? fields...] -> [fn]; A class const, B 1 with meta
	WITHMETA    // [v meta] -> [v']

	MKVEC // A items
	MKMAP // A pairs
	MKSET // A items
	CASE  // [v] -> []; X *SwitchTable
	THROW // [err] -> raise
	RET   // [v] -> return v of kind K

	numOps
)

type operand uint8

const (
	operandNone operand = iota
	operandConst
	operandLocal
	operandField
	operandLabel
	operandCount
	operandLong
	operandKind
	operandMember
	operandName
	operandSite
	operandSwitch
)

type opInfo struct {
	name    string
	operand operand
}

var ops = [numOps]opInfo{
	NOP:      {"nop", operandNone},
	LDC:      {"ldc", operandConst},
	LDCPRIM:  {"ldcprim", operandConst},
	LCONST:   {"lconst", operandLong},
	LDNULL:   {"ldnull", operandNone},
	LDLOC:    {"ldloc", operandLocal},
	STLOC:    {"stloc", operandLocal},
	LDTHIS:   {"ldthis", operandNone},
	LDFLD:    {"ldfld", operandField},
	PATCHFLD: {"patchfld", operandLong},
	POP:      {"pop", operandNone},
	DUP:      {"dup", operandNone},
	SWAP:     {"swap", operandNone},

	GETVAR:   {"getvar", operandConst},
	SETVAR:   {"setvar", operandConst},
	DEFVAR:   {"defvar", operandConst},
	BINDPUSH: {"bindpush", operandCount},
	BINDPOP:  {"bindpop", operandNone},

	BR:      {"br", operandLabel},
	BRTRUE:  {"brtrue", operandLabel},
	BRFALSE: {"brfalse", operandLabel},
	IFEQ:    {"ifeq", operandLabel},
	IFNE:    {"ifne", operandLabel},
	IFLT:    {"iflt", operandLabel},
	IFGE:    {"ifge", operandLabel},
	IFGT:    {"ifgt", operandLabel},
	IFLE:    {"ifle", operandLabel},

	LCMP:  {"lcmp", operandNone},
	DCMPL: {"dcmpl", operandNone},
	DCMPG: {"dcmpg", operandNone},

	LADD:    {"ladd", operandNone},
	LSUB:    {"lsub", operandNone},
	LMUL:    {"lmul", operandNone},
	LADDOVF: {"ladd.ovf", operandNone},
	LSUBOVF: {"lsub.ovf", operandNone},
	LMULOVF: {"lmul.ovf", operandNone},
	LNEG:    {"lneg", operandNone},
	LNEGOVF: {"lneg.ovf", operandNone},
	LQUOT:   {"lquot", operandNone},
	LREM:    {"lrem", operandNone},
	LAND:    {"land", operandNone},
	LOR:     {"lor", operandNone},
	LXOR:    {"lxor", operandNone},
	LNOT:    {"lnot", operandNone},
	LSHL:    {"lshl", operandNone},
	LSHR:    {"lshr", operandNone},
	LUSHR:   {"lushr", operandNone},
	ISHL:    {"ishl", operandNone},
	ISHR:    {"ishr", operandNone},
	IUSHR:   {"iushr", operandNone},

	DADD: {"dadd", operandNone},
	DSUB: {"dsub", operandNone},
	DMUL: {"dmul", operandNone},
	DDIV: {"ddiv", operandNone},
	DREM: {"drem", operandNone},
	DNEG: {"dneg", operandNone},

	I2L:    {"i2l", operandNone},
	L2I:    {"l2i", operandNone},
	L2IOVF: {"l2i.ovf", operandNone},
	L2D:    {"l2d", operandNone},
	D2L:    {"d2l", operandNone},
	I2D:    {"i2d", operandNone},
	F2D:    {"f2d", operandNone},
	D2F:    {"d2f", operandNone},
	L2F:    {"l2f", operandNone},

	BOX:   {"box", operandKind},
	UNBOX: {"unbox", operandKind},

	INVOKE:          {"invoke", operandCount},
	INVOKESTATIC:    {"invokestatic", operandMember},
	INVOKEINST:      {"invokeinst", operandMember},
	INVOKEDYN:       {"invokedyn", operandName},
	INVOKESTATICDYN: {"invokestaticdyn", operandName},
	INVOKEPROTO:     {"invokeproto", operandSite},
	INVOKEKW:        {"invokekw", operandSite},
	INVOKEPRIM:      {"invokeprim", operandCount},

	GETSTATIC:   {"getstatic", operandMember},
	GETFIELD:    {"getfield", operandMember},
	SETFIELD:    {"setfield", operandMember},
	GETFIELDDYN: {"getfielddyn", operandName},
	SETFIELDDYN: {"setfielddyn", operandName},
	NEW:         {"new", operandMember},
	NEWDYN:      {"newdyn", operandMember},
	INSTANCEOF:  {"instanceof", operandMember},
	NEWFN:       {"newfn", operandConst},
	WITHMETA:    {"withmeta", operandNone},

	MKVEC: {"mkvec", operandCount},
	MKMAP: {"mkmap", operandCount},
	MKSET: {"mkset", operandCount},
	CASE:  {"case", operandSwitch},
	THROW: {"throw", operandNone},
	RET:   {"ret", operandKind},
}

func (op Op) String() string {
	if op < numOps && ops[op].name != "" {
		return ops[op].name
	}
	return "op?"
}

// IsBranch reports whether op transfers control to a label.
func (op Op) IsBranch() bool {
	return op < numOps && ops[op].operand == operandLabel
}

// Negate returns the conditional branch taken exactly when op is not.
func (op Op) Negate() Op {
	switch op {
	case IFEQ:
		return IFNE
	case IFNE:
		return IFEQ
	case IFLT:
		return IFGE
	case IFGE:
		return IFLT
	case IFGT:
		return IFLE
	case IFLE:
		return IFGT
	case BRTRUE:
		return BRFALSE
	case BRFALSE:
		return BRTRUE
	}
	panic("asm: not a conditional branch: " + op.String())
}
