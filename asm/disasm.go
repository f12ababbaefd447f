package asm

import (
	"fmt"
	"io"
	"strings"

	"github.com/luthersystems/eclj/lang"
)

// Disassemble returns a listing of c.
func Disassemble(c *Class) string {
	var b strings.Builder
	_ = Fprint(&b, c)
	return b.String()
}

// Fprint writes a listing of c to w.
func Fprint(w io.Writer, c *Class) error {
	p := &printer{w: w}
	p.printf("class %s", c.Name)
	if c.NS != "" {
		p.printf(" ; ns %s", c.NS)
	}
	if c.Source != nil {
		p.printf(" ; %s", c.Source)
	}
	p.printf("\n")
	for i, f := range c.Fields {
		p.printf("  field %d %s %s\n", i, f.Name, f.Kind)
	}
	for i, v := range c.Consts {
		p.printf("  const %d %s\n", i, constString(v))
	}
	for _, m := range c.Methods {
		p.printf("  method %s(%s) %s\n", m.Name, kindList(m.Params), m.Ret)
		if len(m.Locals) > len(m.Params) {
			p.printf("    locals %s\n", kindList(m.Locals[len(m.Params):]))
		}
		for pc, in := range m.Code {
			p.printf("    %04d  %s\n", pc, instrString(c, in))
		}
		for _, h := range m.Handlers {
			catch := "any"
			if h.Catch != nil {
				catch = h.Catch.Name
			}
			p.printf("    handler %04d-%04d -> %04d catch %s\n", h.Start, h.End, h.Target, catch)
		}
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, v ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, v...)
}

func kindList(ks []Kind) string {
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

func constString(v any) string {
	switch v := v.(type) {
	case *Class:
		return "class " + v.Name
	case fmt.Stringer:
		return v.String()
	}
	return lang.PrStr(v)
}

func instrString(c *Class, in Instr) string {
	name := in.Op.String()
	switch ops[in.Op].operand {
	case operandConst:
		s := fmt.Sprintf("%s %d ; %s", name, in.A, constString(c.Consts[in.A]))
		if in.Op == LDCPRIM {
			s = fmt.Sprintf("%s %s %d ; %s", name, in.K, in.A, constString(c.Consts[in.A]))
		}
		return s
	case operandLocal:
		return fmt.Sprintf("%s %d %s", name, in.A, in.K)
	case operandField:
		return fmt.Sprintf("%s %d ; %s", name, in.A, c.Fields[in.A].Name)
	case operandLabel:
		if in.Op == BRTRUE || in.Op == BRFALSE {
			return fmt.Sprintf("%s %s %04d", name, in.K, in.A)
		}
		return fmt.Sprintf("%s %04d", name, in.A)
	case operandCount:
		if in.Op == INVOKEPRIM {
			ks, _ := in.X.([]Kind)
			return fmt.Sprintf("%s %d (%s) %s", name, in.A, kindList(ks), in.K)
		}
		return fmt.Sprintf("%s %d", name, in.A)
	case operandLong:
		return fmt.Sprintf("%s %d", name, in.A)
	case operandKind:
		return fmt.Sprintf("%s %s", name, in.K)
	case operandMember:
		if in.Op == NEWDYN {
			return fmt.Sprintf("%s %v %d", name, in.X, in.A)
		}
		return fmt.Sprintf("%s %v", name, in.X)
	case operandName:
		if in.Op == INVOKESTATICDYN {
			return fmt.Sprintf("%s %v/%s %d", name, in.X, in.S, in.A)
		}
		if in.Op == INVOKEDYN {
			return fmt.Sprintf("%s %s %d", name, in.S, in.A)
		}
		return fmt.Sprintf("%s %s", name, in.S)
	case operandSite:
		if in.Op == INVOKEPROTO {
			return fmt.Sprintf("%s %d ; %s", name, in.A, constString(c.Consts[in.B]))
		}
		return fmt.Sprintf("%s ; %s", name, constString(c.Consts[in.B]))
	case operandSwitch:
		t := in.X.(*SwitchTable)
		cases := make([]string, len(t.Keys))
		for i, k := range t.Keys {
			cases[i] = fmt.Sprintf("%s:%04d", lang.PrStr(k), t.targets[i])
		}
		return fmt.Sprintf("%s {%s} default:%04d", name, strings.Join(cases, " "), t.deflt)
	}
	return name
}
