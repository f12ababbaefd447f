package asm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/parser/token"
)

// Error is returned when a type fails validation.
type Error struct {
	Type   string
	Method string
	PC     int
	Msg    string
}

func (err *Error) Error() string {
	if err.Method == "" {
		return fmt.Sprintf("asm: %s: %s", err.Type, err.Msg)
	}
	return fmt.Sprintf("asm: %s.%s@%d: %s", err.Type, err.Method, err.PC, err.Msg)
}

// Module is a loadable unit collecting created types by name.
type Module struct {
	Name string

	mu      sync.Mutex
	types   map[string]*Class
	pending map[string]bool
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		types:   make(map[string]*Class),
		pending: make(map[string]bool),
	}
}

// DefineType begins the definition of a type.  Type names are unique within
// a module.
func (m *Module) DefineType(name string) (*TypeBuilder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[name] || m.types[name] != nil {
		return nil, &Error{Type: name, Msg: "duplicate type name"}
	}
	m.pending[name] = true
	return &TypeBuilder{module: m, name: name}, nil
}

// Lookup returns the created type named name.
func (m *Module) Lookup(name string) (*Class, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.types[name]
	return c, ok
}

// Types returns the created types sorted by name.
func (m *Module) Types() []*Class {
	m.mu.Lock()
	cs := make([]*Class, 0, len(m.types))
	for _, c := range m.types {
		cs = append(cs, c)
	}
	m.mu.Unlock()
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return cs
}

func (m *Module) add(c *Class) {
	m.mu.Lock()
	delete(m.pending, c.Name)
	m.types[c.Name] = c
	m.mu.Unlock()
}

// TypeBuilder accumulates the definition of one type.
type TypeBuilder struct {
	module  *Module
	name    string
	ns      string
	source  *token.Location
	fields  []Field
	consts  []any
	methods []*MethodBuilder
	created *Class
}

// Name returns the name of the type being built.
func (t *TypeBuilder) Name() string {
	return t.name
}

// SetSource records the namespace and source location the type was
// compiled from.
func (t *TypeBuilder) SetSource(ns string, loc *token.Location) {
	t.ns = ns
	t.source = loc
}

// DefineField adds an instance field and returns its index.
func (t *TypeBuilder) DefineField(name string, k Kind) int {
	t.fields = append(t.fields, Field{Name: name, Kind: k})
	return len(t.fields) - 1
}

// DefineConst appends v to the static constant pool and returns its index.
func (t *TypeBuilder) DefineConst(v any) int {
	t.consts = append(t.consts, v)
	return len(t.consts) - 1
}

// SetConsts replaces the constant pool.
func (t *TypeBuilder) SetConsts(vs []any) {
	t.consts = append([]any(nil), vs...)
}

// DefineMethod adds a method and returns the builder for its body.
func (t *TypeBuilder) DefineMethod(name string, params []Kind, ret Kind) *MethodBuilder {
	b := &MethodBuilder{
		typ:    t,
		name:   name,
		params: params,
		ret:    ret,
		locals: append([]Kind(nil), params...),
	}
	t.methods = append(t.methods, b)
	return b
}

// CreateType validates the definition and returns the immutable class.
// CreateType may be called once.
func (t *TypeBuilder) CreateType() (*Class, error) {
	if t.created != nil {
		return nil, &Error{Type: t.name, Msg: "type already created"}
	}
	c := &Class{
		Name:   t.name,
		NS:     t.ns,
		Source: t.source,
		Fields: t.fields,
		Consts: t.consts,
		byName: make(map[string][]*Method),
	}
	for _, b := range t.methods {
		m, err := b.build(c)
		if err != nil {
			return nil, err
		}
		for _, other := range c.byName[m.Name] {
			if other.Arity() == m.Arity() {
				return nil, &Error{Type: t.name, Msg: fmt.Sprintf("duplicate method %s/%d", m.Name, m.Arity())}
			}
		}
		c.Methods = append(c.Methods, m)
		c.byName[m.Name] = append(c.byName[m.Name], m)
	}
	t.created = c
	t.module.add(c)
	return c, nil
}

// Label is a position in a method body, marked once.
type Label int

type handlerDef struct {
	start, end, target Label
	catch              *host.Class
}

// MethodBuilder emits the body of one method.
type MethodBuilder struct {
	typ      *TypeBuilder
	name     string
	params   []Kind
	ret      Kind
	code     []Instr
	locals   []Kind
	labels   []int
	handlers []handlerDef
	line     int
}

// Name returns the method name.
func (b *MethodBuilder) Name() string {
	return b.name
}

// Ret returns the kind the method returns.
func (b *MethodBuilder) Ret() Kind {
	return b.ret
}

// DeclareLocal adds a local of kind k and returns its index.
func (b *MethodBuilder) DeclareLocal(k Kind) int {
	b.locals = append(b.locals, k)
	return len(b.locals) - 1
}

// LocalKind returns the kind of local i.
func (b *MethodBuilder) LocalKind(i int) Kind {
	return b.locals[i]
}

// DefineLabel returns a new unmarked label.
func (b *MethodBuilder) DefineLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// MarkLabel binds l to the position of the next emitted instruction.
func (b *MethodBuilder) MarkLabel(l Label) {
	if b.labels[l] >= 0 {
		panic(fmt.Sprintf("asm: label %d marked twice", l))
	}
	b.labels[l] = len(b.code)
}

// SetLine sets the source line recorded with subsequent instructions.
func (b *MethodBuilder) SetLine(line int) {
	b.line = line
}

// PC returns the position of the next emitted instruction.
func (b *MethodBuilder) PC() int {
	return len(b.code)
}

// EmitInstr appends in.
func (b *MethodBuilder) EmitInstr(in Instr) {
	in.Line = b.line
	b.code = append(b.code, in)
}

// Emit appends an instruction without operands.
func (b *MethodBuilder) Emit(op Op) {
	b.EmitInstr(Instr{Op: op})
}

// EmitA appends an instruction with an integer operand.
func (b *MethodBuilder) EmitA(op Op, a int) {
	b.EmitInstr(Instr{Op: op, A: a})
}

// EmitK appends an instruction with a kind operand.
func (b *MethodBuilder) EmitK(op Op, k Kind) {
	b.EmitInstr(Instr{Op: op, K: k})
}

// EmitLocal appends a load or store of local i.
func (b *MethodBuilder) EmitLocal(op Op, i int) {
	b.EmitInstr(Instr{Op: op, A: i, K: b.locals[i]})
}

// EmitX appends an instruction referencing a host member or class.
func (b *MethodBuilder) EmitX(op Op, x any) {
	b.EmitInstr(Instr{Op: op, X: x})
}

// EmitBranch appends a branch to l.
func (b *MethodBuilder) EmitBranch(op Op, l Label) {
	if !op.IsBranch() {
		panic("asm: not a branch: " + op.String())
	}
	b.EmitInstr(Instr{Op: op, A: int(l)})
}

// EmitCondBranch appends a BRTRUE or BRFALSE testing a value of kind k.
func (b *MethodBuilder) EmitCondBranch(op Op, k Kind, l Label) {
	b.EmitInstr(Instr{Op: op, A: int(l), K: k})
}

// EmitSwitch appends a CASE using t.
func (b *MethodBuilder) EmitSwitch(t *SwitchTable) {
	b.EmitInstr(Instr{Op: CASE, X: t})
}

// AddHandler routes errors raised between start and end to target.  A nil
// catch class handles every error.  Handlers added first take precedence.
func (b *MethodBuilder) AddHandler(start, end, target Label, catch *host.Class) {
	b.handlers = append(b.handlers, handlerDef{start, end, target, catch})
}

func (b *MethodBuilder) build(c *Class) (*Method, error) {
	fail := func(pc int, format string, v ...any) error {
		return &Error{Type: c.Name, Method: b.name, PC: pc, Msg: fmt.Sprintf(format, v...)}
	}
	for l, pc := range b.labels {
		if pc < 0 {
			return nil, fail(-1, "label %d never marked", l)
		}
	}
	if len(b.code) == 0 {
		return nil, fail(0, "empty method body")
	}
	switch b.code[len(b.code)-1].Op {
	case RET, THROW, BR:
	default:
		return nil, fail(len(b.code)-1, "control reaches end of method")
	}
	code := make([]Instr, len(b.code))
	copy(code, b.code)
	for pc := range code {
		in := &code[pc]
		if in.Op >= numOps {
			return nil, fail(pc, "invalid opcode %d", in.Op)
		}
		switch ops[in.Op].operand {
		case operandLabel:
			if in.A < 0 || in.A >= len(b.labels) {
				return nil, fail(pc, "undefined label %d", in.A)
			}
			in.A = b.labels[in.A]
		case operandLocal:
			if in.A < 0 || in.A >= len(b.locals) {
				return nil, fail(pc, "local %d out of range", in.A)
			}
			if in.K != b.locals[in.A] {
				return nil, fail(pc, "local %d is %s not %s", in.A, b.locals[in.A], in.K)
			}
		case operandConst:
			if in.A < 0 || in.A >= len(c.Consts) {
				return nil, fail(pc, "constant %d out of range", in.A)
			}
		case operandSite:
			if in.B < 0 || in.B >= len(c.Consts) {
				return nil, fail(pc, "call site %d out of range", in.B)
			}
		case operandField:
			if in.A < 0 || in.A >= len(c.Fields) {
				return nil, fail(pc, "field %d out of range", in.A)
			}
		case operandMember:
			if in.X == nil {
				return nil, fail(pc, "%s without member", in.Op)
			}
		case operandSwitch:
			t, ok := in.X.(*SwitchTable)
			if !ok {
				return nil, fail(pc, "case without switch table")
			}
			t.resolve(b.labels)
		}
	}
	m := &Method{
		Class:  c,
		Name:   b.name,
		Params: b.params,
		Ret:    b.ret,
		Code:   code,
		Locals: b.locals,
	}
	for _, h := range b.handlers {
		start, end := b.labels[h.start], b.labels[h.end]
		if start > end {
			return nil, fail(start, "handler range is reversed")
		}
		m.Handlers = append(m.Handlers, Handler{
			Start:  start,
			End:    end,
			Target: b.labels[h.target],
			Catch:  h.catch,
		})
	}
	return m, nil
}
