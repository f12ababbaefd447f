package lang

import (
	"fmt"
	"sort"
	"sync"
)

// Var is a named global binding.  A Var has an optional root value and, when
// dynamic, may be rebound per Runtime with PushBindings.
type Var struct {
	NS  *Namespace
	Sym *Symbol

	mu      sync.RWMutex
	root    any
	bound   bool
	dynamic bool
	macro   bool
	meta    *Map
}

// NewVar returns an unbound Var that does not belong to a namespace.
func NewVar(ns *Namespace, sym *Symbol) *Var {
	return &Var{NS: ns, Sym: sym}
}

func (v *Var) String() string {
	if v.NS == nil {
		return "#'" + v.Sym.String()
	}
	return "#'" + v.NS.Name + "/" + v.Sym.Name
}

// QualifiedSymbol returns ns/name for the Var.
func (v *Var) QualifiedSymbol() *Symbol {
	if v.NS == nil {
		return v.Sym
	}
	return NewSymbol(v.NS.Name, v.Sym.Name)
}

// Get returns the value of v visible to rt: the innermost dynamic binding
// when one exists, otherwise the root.
func (v *Var) Get(rt *Runtime) (any, error) {
	if rt != nil && v.IsDynamic() {
		if b := rt.lookupBinding(v); b != nil {
			return b.val, nil
		}
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.bound {
		return nil, &IllegalStateError{Msg: fmt.Sprintf("Attempting to use unbound var: %s", v)}
	}
	return v.root, nil
}

// Root returns the root value and whether v is bound.
func (v *Var) Root() (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.root, v.bound
}

// Set changes the innermost dynamic binding of v in rt.  Roots cannot be
// changed with Set.
func (v *Var) Set(rt *Runtime, val any) error {
	if rt != nil {
		if b := rt.lookupBinding(v); b != nil {
			b.val = val
			return nil
		}
	}
	return &IllegalStateError{Msg: fmt.Sprintf("Can't change/establish root binding of: %s with set", v.Sym.Name)}
}

// BindRoot sets the root value.
func (v *Var) BindRoot(val any) {
	v.mu.Lock()
	v.root = val
	v.bound = true
	v.mu.Unlock()
}

func (v *Var) IsBound() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bound
}

func (v *Var) IsDynamic() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dynamic
}

func (v *Var) SetDynamic(b bool) {
	v.mu.Lock()
	v.dynamic = b
	v.mu.Unlock()
}

func (v *Var) IsMacro() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.macro
}

func (v *Var) SetMacro(b bool) {
	v.mu.Lock()
	v.macro = b
	v.mu.Unlock()
}

func (v *Var) Meta() *Map {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.meta
}

// SetMeta replaces the metadata of v and applies the :dynamic and :macro
// flags it contains.
func (v *Var) SetMeta(meta *Map) {
	v.mu.Lock()
	v.meta = meta
	if Truthy(meta.ValAt(KwDynamic)) {
		v.dynamic = true
	}
	if Truthy(meta.ValAt(KwMacro)) {
		v.macro = true
	}
	v.mu.Unlock()
}

// Invoke calls the root value of v.
func (v *Var) Invoke(args ...any) (any, error) {
	f, err := v.Get(nil)
	if err != nil {
		return nil, err
	}
	return Invoke(f, args...)
}

// Namespace maps names to Vars interned in it, Vars referred from other
// namespaces, and imported classes.
type Namespace struct {
	Name string

	mu       sync.RWMutex
	mappings map[string]any
	aliases  map[string]*Namespace
}

func newNamespace(name string) *Namespace {
	return &Namespace{
		Name:     name,
		mappings: make(map[string]any),
		aliases:  make(map[string]*Namespace),
	}
}

func (ns *Namespace) String() string {
	return ns.Name
}

// Intern returns the Var named name in ns, creating it if necessary.  A
// referred Var of the same name is replaced.
func (ns *Namespace) Intern(name string) *Var {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if v, ok := ns.mappings[name].(*Var); ok && v.NS == ns {
		return v
	}
	v := NewVar(ns, NewSymbol("", name))
	ns.mappings[name] = v
	return v
}

// Lookup returns the Var, class or type mapped to name, or nil.
func (ns *Namespace) Lookup(name string) any {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.mappings[name]
}

// FindInterned returns the Var interned in ns itself, or nil.
func (ns *Namespace) FindInterned(name string) *Var {
	v, ok := ns.Lookup(name).(*Var)
	if !ok || v.NS != ns {
		return nil
	}
	return v
}

// Refer maps name to a Var from another namespace.  Names interned in ns are
// not replaced.
func (ns *Namespace) Refer(name string, v *Var) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if cur, ok := ns.mappings[name].(*Var); ok && cur.NS == ns {
		return
	}
	ns.mappings[name] = v
}

// Import maps name to a class or type value.
func (ns *Namespace) Import(name string, class any) {
	ns.mu.Lock()
	ns.mappings[name] = class
	ns.mu.Unlock()
}

// Unmap removes the mapping for name.
func (ns *Namespace) Unmap(name string) {
	ns.mu.Lock()
	delete(ns.mappings, name)
	ns.mu.Unlock()
}

// AddAlias makes alias/x resolve in other.
func (ns *Namespace) AddAlias(alias string, other *Namespace) {
	ns.mu.Lock()
	ns.aliases[alias] = other
	ns.mu.Unlock()
}

// LookupAlias returns the namespace aliased to name, or nil.
func (ns *Namespace) LookupAlias(name string) *Namespace {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.aliases[name]
}

// Names returns the sorted names mapped in ns.
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	names := make([]string, 0, len(ns.mappings))
	for name := range ns.mappings {
		names = append(names, name)
	}
	ns.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Namespaces is a registry of namespaces safe for concurrent use.
type Namespaces struct {
	mu sync.RWMutex
	m  map[string]*Namespace
}

// NewNamespaces returns an empty registry.
func NewNamespaces() *Namespaces {
	return &Namespaces{m: make(map[string]*Namespace)}
}

// Find returns the named namespace or nil.
func (r *Namespaces) Find(name string) *Namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m[name]
}

// FindOrCreate returns the named namespace, creating it if necessary.
func (r *Namespaces) FindOrCreate(name string) *Namespace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.m[name]
	if !ok {
		ns = newNamespace(name)
		r.m[name] = ns
	}
	return ns
}

// Names returns the sorted names of the registered namespaces.
func (r *Namespaces) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
