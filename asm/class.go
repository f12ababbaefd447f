package asm

import (
	"strconv"

	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

// Instr is one instruction.  The meaning of the operands depends on Op.
// Branch targets are program counters once a class has been created.
type Instr struct {
	Op   Op
	A    int
	B    int
	K    Kind
	S    string
	X    any
	Line int
}

// Handler routes errors raised by instructions in [Start, End) to Target
// when Catch is nil or catches the error.  The error is the only value on
// the stack when the handler starts.
type Handler struct {
	Start  int
	End    int
	Target int
	Catch  *host.Class
}

// Field is an instance field.
type Field struct {
	Name string
	Kind Kind
}

// Method is an immutable method body.  Params occupy the first locals.
type Method struct {
	Class    *Class
	Name     string
	Params   []Kind
	Ret      Kind
	Code     []Instr
	Locals   []Kind
	Handlers []Handler
}

// Arity returns the number of parameters.
func (m *Method) Arity() int {
	return len(m.Params)
}

// Handler returns the target of the first handler covering pc that catches
// err.
func (m *Method) Handler(pc int, err error) (int, bool) {
	for _, h := range m.Handlers {
		if pc < h.Start || pc >= h.End {
			continue
		}
		if h.Catch == nil || h.Catch.Catches(err) {
			return h.Target, true
		}
	}
	return 0, false
}

func (m *Method) String() string {
	return m.Class.Name + "." + m.Name + "/" + strconv.Itoa(len(m.Params))
}

// Class is a created type.  Classes are immutable and safe to share.
type Class struct {
	Name    string
	NS      string
	Source  *token.Location
	Fields  []Field
	Consts  []any
	Methods []*Method

	byName map[string][]*Method
}

// Method returns the method with the given name and arity, or nil.
func (c *Class) Method(name string, arity int) *Method {
	for _, m := range c.byName[name] {
		if len(m.Params) == arity {
			return m
		}
	}
	return nil
}

// MethodsNamed returns every method named name.
func (c *Class) MethodsNamed(name string) []*Method {
	return c.byName[name]
}

// FieldIndex returns the index of the named field or -1.
func (c *Class) FieldIndex(name string) int {
	for i, f := range c.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (c *Class) String() string {
	return c.Name
}

// SwitchTable maps constant keys to branch targets for CASE.
type SwitchTable struct {
	Keys    []any
	Labels  []Label
	Default Label

	targets []int
	deflt   int
	index   map[any][]int
}

// NewSwitchTable returns an empty table branching to deflt when no key
// matches.
func NewSwitchTable(deflt Label) *SwitchTable {
	return &SwitchTable{Default: deflt}
}

// Add maps key to l.
func (t *SwitchTable) Add(key any, l Label) {
	t.Keys = append(t.Keys, key)
	t.Labels = append(t.Labels, l)
}

// Target returns the program counter for v.
func (t *SwitchTable) Target(v any) int {
	for _, i := range t.index[lang.HashKey(v)] {
		if lang.Equal(t.Keys[i], v) {
			return t.targets[i]
		}
	}
	return t.deflt
}

func (t *SwitchTable) resolve(labels []int) {
	t.targets = make([]int, len(t.Labels))
	t.index = make(map[any][]int, len(t.Keys))
	for i, l := range t.Labels {
		t.targets[i] = labels[l]
		h := lang.HashKey(t.Keys[i])
		t.index[h] = append(t.index[h], i)
	}
	t.deflt = labels[t.Default]
}
