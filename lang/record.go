package lang

import (
	"fmt"
	"sync"
)

// TypeDef describes a type defined by deftype, defrecord or reify.  Field
// values of instances are stored positionally.
type TypeDef struct {
	Name    *Symbol
	Fields  []*Symbol
	Mutable []bool
	Record  bool

	index map[string]int

	mu        sync.RWMutex
	methods   map[string]any
	protocols []*Protocol
}

// NewTypeDef returns a type named name with the given fields.
func NewTypeDef(name *Symbol, fields []*Symbol, record bool) *TypeDef {
	td := &TypeDef{
		Name:    name,
		Fields:  fields,
		Mutable: make([]bool, len(fields)),
		Record:  record,
		index:   make(map[string]int, len(fields)),
		methods: make(map[string]any),
	}
	for i, f := range fields {
		td.index[f.Name] = i
		meta := f.Meta()
		td.Mutable[i] = Truthy(meta.ValAt(KwMutable)) || Truthy(meta.ValAt(KwVolatile))
	}
	return td
}

func (td *TypeDef) String() string {
	return td.Name.String()
}

// FieldIndex returns the position of the named field or -1.
func (td *TypeDef) FieldIndex(name string) int {
	i, ok := td.index[name]
	if !ok {
		return -1
	}
	return i
}

// New returns an instance with the given field values.
func (td *TypeDef) New(vals ...any) (*Instance, error) {
	if len(vals) != len(td.Fields) {
		return nil, &IllegalArgumentError{Msg: fmt.Sprintf("%s expects %d fields, got %d", td.Name, len(td.Fields), len(vals))}
	}
	fields := make([]any, len(vals))
	copy(fields, vals)
	return &Instance{Type: td, Fields: fields}, nil
}

// Invoke constructs an instance so that a TypeDef can serve as its own
// constructor function.
func (td *TypeDef) Invoke(args ...any) (any, error) {
	return td.New(args...)
}

// DefineMethod attaches a host style method implementation to td.  The
// implementation receives the instance as its first argument.
func (td *TypeDef) DefineMethod(name string, fn any) {
	td.mu.Lock()
	td.methods[name] = fn
	td.mu.Unlock()
}

// Method returns the named method implementation.
func (td *TypeDef) Method(name string) (any, bool) {
	td.mu.RLock()
	defer td.mu.RUnlock()
	fn, ok := td.methods[name]
	return fn, ok
}

// AddProtocol records that td declares conformance to p.
func (td *TypeDef) AddProtocol(p *Protocol) {
	td.mu.Lock()
	td.protocols = append(td.protocols, p)
	td.mu.Unlock()
}

// Declares reports whether td declared conformance to p.
func (td *TypeDef) Declares(p *Protocol) bool {
	td.mu.RLock()
	defer td.mu.RUnlock()
	for _, q := range td.protocols {
		if q == p {
			return true
		}
	}
	return false
}

// Instance is a value of a TypeDef.
type Instance struct {
	Type   *TypeDef
	Fields []any
}

// Lookup returns the field named by the keyword k.
func (in *Instance) Lookup(k any) (any, bool) {
	kw, ok := k.(*Keyword)
	if !ok || kw.Ns != "" {
		return nil, false
	}
	i := in.Type.FieldIndex(kw.Name)
	if i < 0 {
		return nil, false
	}
	return in.Fields[i], true
}

// SetField assigns field i which must be mutable.
func (in *Instance) SetField(i int, v any) error {
	if !in.Type.Mutable[i] {
		return &IllegalArgumentError{Msg: fmt.Sprintf("Cannot assign to non-mutable: %s", in.Type.Fields[i].Name)}
	}
	in.Fields[i] = v
	return nil
}

// Invoke calls the instance's "invoke" method, if it defines one.
func (in *Instance) Invoke(args ...any) (any, error) {
	fn, ok := in.Type.Method("invoke")
	if !ok {
		return nil, &ClassCastError{From: in.Type.Name.String(), To: "IFn"}
	}
	return Invoke(fn, append([]any{in}, args...)...)
}
