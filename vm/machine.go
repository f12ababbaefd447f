// Package vm executes classes built by package asm.  Methods run on an
// operand stack of Slots so that primitive values are never boxed unless
// an instruction asks for it.
package vm

import (
	"fmt"
	"math"

	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
)

// Machine executes methods against a runtime.  Dynamic bindings and the call
// depth are those of the runtime, so a Machine must only be used by one
// goroutine at a time.
type Machine struct {
	rt *lang.Runtime
}

// New returns a machine executing against rt.
func New(rt *lang.Runtime) *Machine {
	return &Machine{rt: rt}
}

// Runtime returns the runtime of m.
func (m *Machine) Runtime() *lang.Runtime {
	return m.rt
}

// Call executes meth with self as its receiver.  Arguments must match the
// parameter kinds of meth.
func (m *Machine) Call(self *Closure, meth *asm.Method, args []Slot) (Slot, error) {
	if err := m.rt.Enter(); err != nil {
		return Slot{}, err
	}
	defer m.rt.Leave()
	if p := m.rt.Profiler; p != nil && p.IsEnabled() {
		defer p.Start(self.Info())()
	}
	return m.exec(self, meth, args)
}

type frame struct {
	stack []Slot
}

func (f *frame) push(s Slot) {
	f.stack = append(f.stack, s)
}

func (f *frame) pushRef(x any) {
	f.stack = append(f.stack, Slot{R: x})
}

func (f *frame) pop() Slot {
	n := len(f.stack) - 1
	s := f.stack[n]
	f.stack = f.stack[:n]
	return s
}

func (f *frame) popSlots(n int) []Slot {
	start := len(f.stack) - n
	out := make([]Slot, n)
	copy(out, f.stack[start:])
	f.stack = f.stack[:start]
	return out
}

func (f *frame) popRefs(n int) []any {
	start := len(f.stack) - n
	out := make([]any, n)
	for i, s := range f.stack[start:] {
		out[i] = s.R
	}
	f.stack = f.stack[:start]
	return out
}

// popArgs pops values for params, boxing each by the kind of its class.
func (f *frame) popArgs(params []*host.Class) []any {
	n := len(params)
	start := len(f.stack) - n
	out := make([]any, n)
	for i, s := range f.stack[start:] {
		out[i] = Box(s, asm.KindOf(params[i]))
	}
	f.stack = f.stack[:start]
	return out
}

func (m *Machine) exec(self *Closure, meth *asm.Method, args []Slot) (Slot, error) {
	locals := make([]Slot, len(meth.Locals))
	copy(locals, args)
	f := &frame{stack: make([]Slot, 0, 16)}
	code := meth.Code
	consts := meth.Class.Consts
	pc := 0
	for {
		in := &code[pc]
		cur := pc
		pc++
		var err error
		switch in.Op {
		case asm.NOP:
		case asm.LDC:
			f.pushRef(consts[in.A])
		case asm.LDCPRIM:
			var s Slot
			s, err = Unbox(consts[in.A], in.K)
			f.push(s)
		case asm.LCONST:
			f.push(LongSlot(int64(in.A)))
		case asm.LDNULL:
			f.push(Slot{})
		case asm.LDLOC:
			f.push(locals[in.A])
		case asm.STLOC:
			locals[in.A] = f.pop()
		case asm.LDTHIS:
			f.pushRef(self)
		case asm.LDFLD:
			f.push(self.fields[in.A])
		case asm.PATCHFLD:
			v := f.pop()
			target, ok := f.pop().R.(*Closure)
			if !ok {
				err = &lang.IllegalStateError{Msg: "patch target is not a compiled function"}
				break
			}
			target.fields[in.A] = v
		case asm.POP:
			f.pop()
		case asm.DUP:
			f.push(f.stack[len(f.stack)-1])
		case asm.SWAP:
			n := len(f.stack)
			f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]

		case asm.GETVAR:
			var v any
			v, err = consts[in.A].(*lang.Var).Get(m.rt)
			f.pushRef(v)
		case asm.SETVAR:
			v := f.pop()
			err = consts[in.A].(*lang.Var).Set(m.rt, v.R)
			f.push(v)
		case asm.DEFVAR:
			v := consts[in.A].(*lang.Var)
			v.BindRoot(f.pop().R)
			f.pushRef(v)
		case asm.BINDPUSH:
			pairs := f.popRefs(2 * in.A)
			vars := make([]*lang.Var, in.A)
			vals := make([]any, in.A)
			for i := range vars {
				vars[i] = pairs[2*i].(*lang.Var)
				vals[i] = pairs[2*i+1]
			}
			err = m.rt.PushBindings(vars, vals)
		case asm.BINDPOP:
			m.rt.PopBindings()

		case asm.BR:
			pc = in.A
		case asm.BRTRUE:
			if truthy(f.pop(), in.K) {
				pc = in.A
			}
		case asm.BRFALSE:
			if !truthy(f.pop(), in.K) {
				pc = in.A
			}
		case asm.IFEQ:
			if f.pop().Long() == 0 {
				pc = in.A
			}
		case asm.IFNE:
			if f.pop().Long() != 0 {
				pc = in.A
			}
		case asm.IFLT:
			if f.pop().Long() < 0 {
				pc = in.A
			}
		case asm.IFGE:
			if f.pop().Long() >= 0 {
				pc = in.A
			}
		case asm.IFGT:
			if f.pop().Long() > 0 {
				pc = in.A
			}
		case asm.IFLE:
			if f.pop().Long() <= 0 {
				pc = in.A
			}

		case asm.LCMP:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(cmpLong(x, y)))
		case asm.DCMPL, asm.DCMPG:
			y, x := f.pop().Double(), f.pop().Double()
			switch {
			case math.IsNaN(x) || math.IsNaN(y):
				if in.Op == asm.DCMPL {
					f.push(LongSlot(-1))
				} else {
					f.push(LongSlot(1))
				}
			case x < y:
				f.push(LongSlot(-1))
			case x > y:
				f.push(LongSlot(1))
			default:
				f.push(LongSlot(0))
			}

		case asm.LADD:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x + y))
		case asm.LSUB:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x - y))
		case asm.LMUL:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x * y))
		case asm.LADDOVF:
			err = f.longOp(lang.AddLong)
		case asm.LSUBOVF:
			err = f.longOp(lang.SubLong)
		case asm.LMULOVF:
			err = f.longOp(lang.MulLong)
		case asm.LQUOT:
			err = f.longOp(lang.QuotLong)
		case asm.LREM:
			err = f.longOp(lang.RemLong)
		case asm.LNEG:
			f.push(LongSlot(-f.pop().Long()))
		case asm.LNEGOVF:
			var n int64
			n, err = lang.NegateLong(f.pop().Long())
			f.push(LongSlot(n))
		case asm.LAND:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x & y))
		case asm.LOR:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x | y))
		case asm.LXOR:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x ^ y))
		case asm.LNOT:
			f.push(LongSlot(^f.pop().Long()))
		case asm.LSHL:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x << uint64(y)))
		case asm.LSHR:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(x >> uint64(y)))
		case asm.LUSHR:
			y, x := f.pop().Long(), f.pop().Long()
			f.push(LongSlot(int64(uint64(x) >> uint64(y))))
		case asm.ISHL:
			y, x := f.pop().Long(), f.pop().Int()
			f.push(IntSlot(x << uint64(y)))
		case asm.ISHR:
			y, x := f.pop().Long(), f.pop().Int()
			f.push(IntSlot(x >> uint64(y)))
		case asm.IUSHR:
			y, x := f.pop().Long(), f.pop().Int()
			f.push(IntSlot(int32(uint32(x) >> uint64(y))))

		case asm.DADD:
			y, x := f.pop().Double(), f.pop().Double()
			f.push(DoubleSlot(x + y))
		case asm.DSUB:
			y, x := f.pop().Double(), f.pop().Double()
			f.push(DoubleSlot(x - y))
		case asm.DMUL:
			y, x := f.pop().Double(), f.pop().Double()
			f.push(DoubleSlot(x * y))
		case asm.DDIV:
			y, x := f.pop().Double(), f.pop().Double()
			f.push(DoubleSlot(x / y))
		case asm.DREM:
			y, x := f.pop().Double(), f.pop().Double()
			var d float64
			d, err = lang.RemDouble(x, y)
			f.push(DoubleSlot(d))
		case asm.DNEG:
			f.push(DoubleSlot(-f.pop().Double()))

		case asm.I2L:
			// ints are stored sign extended
		case asm.L2I:
			f.push(IntSlot(int32(f.pop().Long())))
		case asm.L2IOVF:
			var n int32
			n, err = lang.IntCastLong(f.pop().Long())
			f.push(IntSlot(n))
		case asm.L2D:
			f.push(DoubleSlot(float64(f.pop().Long())))
		case asm.D2L:
			f.push(LongSlot(lang.UncheckedLongCastDouble(f.pop().Double())))
		case asm.I2D:
			f.push(DoubleSlot(float64(f.pop().Int())))
		case asm.F2D:
			// floats are stored as doubles
		case asm.D2F:
			f.push(FloatSlot(float32(f.pop().Double())))
		case asm.L2F:
			f.push(FloatSlot(float32(f.pop().Long())))

		case asm.BOX:
			f.pushRef(Box(f.pop(), in.K))
		case asm.UNBOX:
			var s Slot
			s, err = Unbox(f.pop().R, in.K)
			f.push(s)

		case asm.INVOKE:
			args := f.popRefs(in.A)
			fn := f.pop().R
			var v any
			v, err = lang.Invoke(fn, args...)
			f.pushRef(v)
		case asm.INVOKESTATIC:
			meth := in.X.(*host.Method)
			var v any
			v, err = meth.Call(f.popArgs(meth.Params))
			err = f.pushResult(v, meth.Ret, err)
		case asm.INVOKEINST:
			meth := in.X.(*host.Method)
			args := f.popArgs(meth.Params)
			target := f.pop().R
			if target == nil {
				err = &lang.IllegalStateError{Msg: fmt.Sprintf("Cannot invoke method %s on nil", meth.Name)}
				break
			}
			var v any
			v, err = meth.Call(append([]any{target}, args...))
			err = f.pushResult(v, meth.Ret, err)
		case asm.INVOKEDYN:
			args := f.popRefs(in.A)
			target := f.pop().R
			var v any
			v, err = host.InvokeMethod(target, in.S, args)
			f.pushRef(v)
		case asm.INVOKESTATICDYN:
			var v any
			v, err = host.InvokeStatic(in.X.(*host.Class), in.S, f.popRefs(in.A))
			f.pushRef(v)
		case asm.INVOKEPROTO:
			args := f.popRefs(in.A)
			fn := f.pop().R
			var v any
			v, err = consts[in.B].(*lang.ProtocolSite).Call(fn, args)
			f.pushRef(v)
		case asm.INVOKEKW:
			target := f.pop().R
			f.pushRef(consts[in.B].(*lang.KeywordSite).Get(target, nil))
		case asm.INVOKEPRIM:
			kinds := in.X.([]asm.Kind)
			args := f.popSlots(in.A)
			fn := f.pop().R
			var s Slot
			s, err = m.invokePrim(fn, kinds, in.K, args)
			f.push(s)

		case asm.GETSTATIC:
			var v any
			v, err = in.X.(*host.Field).Get(nil)
			err = f.pushKind(v, in.K, err)
		case asm.GETFIELD:
			var v any
			v, err = in.X.(*host.Field).Get(f.pop().R)
			err = f.pushKind(v, in.K, err)
		case asm.SETFIELD:
			v := f.pop()
			target := f.pop().R
			err = in.X.(*host.Field).Set(target, Box(v, in.K))
			f.push(v)
		case asm.GETFIELDDYN:
			var v any
			v, err = host.GetField(f.pop().R, in.S)
			f.pushRef(v)
		case asm.SETFIELDDYN:
			v := f.pop()
			err = host.SetField(f.pop().R, in.S, v.R)
			f.push(v)
		case asm.NEW:
			meth := in.X.(*host.Method)
			var v any
			v, err = meth.Call(f.popArgs(meth.Params))
			f.pushRef(v)
		case asm.NEWDYN:
			var v any
			v, err = host.New(in.X.(*host.Class), f.popRefs(in.A))
			f.pushRef(v)
		case asm.INSTANCEOF:
			f.push(BoolSlot(in.X.(*host.Class).IsInstance(f.pop().R)))
		case asm.NEWFN:
			class := consts[in.A].(*asm.Class)
			fields := f.popSlots(len(class.Fields))
			var meta *lang.Map
			if in.B == 1 {
				meta, _ = f.pop().R.(*lang.Map)
			}
			f.pushRef(m.NewClosure(class, fields, meta))
		case asm.WITHMETA:
			meta, _ := f.pop().R.(*lang.Map)
			v := f.pop().R
			obj, ok := v.(lang.IObj)
			if !ok {
				err = &lang.ClassCastError{From: lang.TypeName(v), To: "IObj"}
				break
			}
			f.pushRef(obj.WithMeta(meta))

		case asm.MKVEC:
			f.pushRef(lang.NewVector(f.popRefs(in.A)...))
		case asm.MKMAP:
			f.pushRef(lang.NewMap(f.popRefs(2 * in.A)...))
		case asm.MKSET:
			f.pushRef(lang.NewSet(f.popRefs(in.A)...))
		case asm.CASE:
			pc = in.X.(*asm.SwitchTable).Target(f.pop().R)
		case asm.THROW:
			v := f.pop().R
			e, ok := v.(error)
			if !ok {
				e = &lang.ClassCastError{From: lang.TypeName(v), To: "Throwable"}
			}
			err = e
		case asm.RET:
			return f.pop(), nil
		default:
			panic(fmt.Sprintf("vm: %s: unknown opcode %s at %d", meth, in.Op, cur))
		}
		if err != nil {
			target, ok := meth.Handler(cur, err)
			if !ok {
				return Slot{}, err
			}
			f.stack = append(f.stack[:0], Slot{R: err})
			pc = target
		}
	}
}

func cmpLong(x, y int64) int64 {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func (f *frame) longOp(op func(x, y int64) (int64, error)) error {
	y, x := f.pop().Long(), f.pop().Long()
	n, err := op(x, y)
	f.push(LongSlot(n))
	return err
}

// pushResult pushes the result of a host method returning class ret.
func (f *frame) pushResult(v any, ret *host.Class, err error) error {
	if err != nil {
		f.push(Slot{})
		return err
	}
	return f.pushKind(v, asm.KindOf(ret), nil)
}

func (f *frame) pushKind(v any, k asm.Kind, err error) error {
	if err != nil {
		f.push(Slot{})
		return err
	}
	if k == asm.Void {
		f.push(Slot{})
		return nil
	}
	s, err := Unbox(v, k)
	f.push(s)
	return err
}

// invokePrim calls fn with unboxed arguments, using its primitive method
// when the signature matches and boxing through Invoke otherwise.
func (m *Machine) invokePrim(fn any, kinds []asm.Kind, ret asm.Kind, args []Slot) (Slot, error) {
	if c, ok := fn.(*Closure); ok {
		if meth := c.primMethod(kinds, ret); meth != nil {
			return m.Call(c, meth, args)
		}
	}
	boxed := make([]any, len(args))
	for i, s := range args {
		boxed[i] = Box(s, kinds[i])
	}
	v, err := lang.Invoke(fn, boxed...)
	if err != nil {
		return Slot{}, err
	}
	return Unbox(v, ret)
}
