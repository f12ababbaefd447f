package lang

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

type nilClass struct{}

// NilClass is the dispatch class of nil.
var NilClass any = nilClass{}

// ObjectClass is the class every value belongs to.  Implementations
// registered for it are used when nothing more specific exists.
var ObjectClass any = reflect.TypeOf((*any)(nil)).Elem()

// ClassOf returns the dispatch class of x: the TypeDef of an Instance, NilClass
// for nil, otherwise its reflect.Type.
func ClassOf(x any) any {
	switch x := x.(type) {
	case nil:
		return NilClass
	case *Instance:
		return x.Type
	}
	return reflect.TypeOf(x)
}

// ClassName returns a readable name for a dispatch class.
func ClassName(class any) string {
	switch c := class.(type) {
	case nilClass:
		return "nil"
	case *TypeDef:
		return c.Name.String()
	case reflect.Type:
		if c == ObjectClass {
			return "Object"
		}
		return c.String()
	}
	return fmt.Sprint(class)
}

// Protocol is a named set of functions dispatched on the class of their
// first argument.
type Protocol struct {
	Name    *Symbol
	Methods []string

	mu      sync.RWMutex
	impls   map[any]map[string]any
	ifaces  []reflect.Type // interface classes in extension order
	version atomic.Uint64
}

// NewProtocol returns a protocol with no implementations.
func NewProtocol(name *Symbol, methods []string) *Protocol {
	return &Protocol{
		Name:    name,
		Methods: methods,
		impls:   make(map[any]map[string]any),
	}
}

func (p *Protocol) String() string {
	return p.Name.String()
}

// HasMethod reports whether name is one of the protocol's methods.
func (p *Protocol) HasMethod(name string) bool {
	for _, m := range p.Methods {
		if m == name {
			return true
		}
	}
	return false
}

// Extend registers implementations of protocol methods for class.  Call site
// caches observe the change on their next call.
func (p *Protocol) Extend(class any, methods map[string]any) error {
	for name := range methods {
		if !p.HasMethod(name) {
			return &IllegalArgumentError{Msg: fmt.Sprintf("%s is not a method of protocol %s", name, p.Name)}
		}
	}
	p.mu.Lock()
	m, ok := p.impls[class]
	if !ok {
		m = make(map[string]any, len(methods))
		p.impls[class] = m
		if t, ok := class.(reflect.Type); ok && t != ObjectClass && t.Kind() == reflect.Interface {
			p.ifaces = append(p.ifaces, t)
		}
	}
	for name, fn := range methods {
		m[name] = fn
	}
	p.mu.Unlock()
	if td, ok := class.(*TypeDef); ok && !td.Declares(p) {
		td.AddProtocol(p)
	}
	p.version.Add(1)
	return nil
}

// Version changes whenever an implementation is added.
func (p *Protocol) Version() uint64 {
	return p.version.Load()
}

// Resolve finds the implementation of method for class.  Resolution prefers
// an exact registration, then a Go interface implemented by class, then the
// Object implementation.  When class implements several extended interfaces
// the one extended first wins.  The fallback result reports that something other
// than an exact registration was used.
func (p *Protocol) Resolve(class any, method string) (impl any, fallback bool, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if m, ok := p.impls[class]; ok {
		if fn, ok := m[method]; ok {
			return fn, false, nil
		}
	}
	if t, ok := class.(reflect.Type); ok {
		for _, it := range p.ifaces {
			if fn, ok := p.impls[it][method]; ok && t.Implements(it) {
				return fn, true, nil
			}
		}
	}
	if m, ok := p.impls[ObjectClass]; ok {
		if fn, ok := m[method]; ok {
			return fn, true, nil
		}
	}
	return nil, false, &IllegalArgumentError{Msg: fmt.Sprintf("No implementation of method: %s of protocol: %s found for class: %s", method, p.Name, ClassName(class))}
}

// Satisfies reports whether x has an implementation of every method of p.
func (p *Protocol) Satisfies(x any) bool {
	class := ClassOf(x)
	if td, ok := class.(*TypeDef); ok && td.Declares(p) {
		return true
	}
	for _, m := range p.Methods {
		if _, _, err := p.Resolve(class, m); err != nil {
			return false
		}
	}
	return true
}

// ProtocolFn is the function bound to the Var of a protocol method.
type ProtocolFn struct {
	Protocol *Protocol
	Method   string
}

func (f *ProtocolFn) String() string {
	return fmt.Sprintf("#protocol-fn[%s/%s]", f.Protocol.Name, f.Method)
}

func (f *ProtocolFn) Invoke(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, &WrongArityError{Name: f.Method, Count: 0}
	}
	impl, _, err := f.Protocol.Resolve(ClassOf(args[0]), f.Method)
	if err != nil {
		return nil, err
	}
	return Invoke(impl, args...)
}

func (f *ProtocolFn) Info() *FnInfo {
	return &FnInfo{NS: f.Protocol.Name.Ns, Name: f.Method}
}

// SiteMode is the dispatch strategy of a ProtocolSite.
type SiteMode int32

const (
	// SiteBasic consults a single cached class.
	SiteBasic SiteMode = iota
	// SiteFull additionally keeps every class resolved at the site.
	SiteFull
)

func (m SiteMode) String() string {
	if m == SiteFull {
		return "full"
	}
	return "basic"
}

type siteEntry struct {
	class   any
	version uint64
	impl    any
}

// ProtocolSite caches protocol dispatch at one call location.  Concurrent
// callers may race to overwrite the cached entry; every entry written is a
// correct resolution so a lost update only costs another resolution.
type ProtocolSite struct {
	Fn *ProtocolFn

	last   atomic.Pointer[siteEntry]
	mode   atomic.Int32
	poly   sync.Map
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewProtocolSite returns an empty call site cache for fn.
func NewProtocolSite(fn *ProtocolFn) *ProtocolSite {
	return &ProtocolSite{Fn: fn}
}

// Mode returns the current dispatch strategy.
func (s *ProtocolSite) Mode() SiteMode {
	return SiteMode(s.mode.Load())
}

// Stats returns the number of cache hits and misses.
func (s *ProtocolSite) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

// Call invokes f with args.  When f is still the protocol function the site
// was created for, dispatch goes through the cache.  Otherwise f is invoked
// normally.
func (s *ProtocolSite) Call(f any, args []any) (any, error) {
	if pf, ok := f.(*ProtocolFn); !ok || pf != s.Fn || len(args) == 0 {
		return Invoke(f, args...)
	}
	impl, err := s.lookup(ClassOf(args[0]))
	if err != nil {
		return nil, err
	}
	return Invoke(impl, args...)
}

func (s *ProtocolSite) lookup(class any) (any, error) {
	p := s.Fn.Protocol
	version := p.Version()
	if e := s.last.Load(); e != nil && e.class == class && e.version == version {
		s.hits.Add(1)
		return e.impl, nil
	}
	if s.Mode() == SiteFull {
		if v, ok := s.poly.Load(class); ok {
			e := v.(*siteEntry)
			if e.version == version {
				s.hits.Add(1)
				s.last.Store(e)
				return e.impl, nil
			}
		}
	}
	s.misses.Add(1)
	impl, fallback, err := p.Resolve(class, s.Fn.Method)
	if err != nil {
		return nil, err
	}
	e := &siteEntry{class: class, version: version, impl: impl}
	if fallback {
		s.mode.Store(int32(SiteFull))
	}
	if s.Mode() == SiteFull {
		s.poly.Store(class, e)
	}
	s.last.Store(e)
	return impl, nil
}

type keywordEntry struct {
	def   *TypeDef
	index int
}

// KeywordSite caches keyword lookups on instances at one call location.
type KeywordSite struct {
	Kw *Keyword

	last atomic.Pointer[keywordEntry]
}

// NewKeywordSite returns an empty keyword lookup cache.
func NewKeywordSite(kw *Keyword) *KeywordSite {
	return &KeywordSite{Kw: kw}
}

// Get returns (kw target), or notFound when the key is absent.
func (s *KeywordSite) Get(target any, notFound any) any {
	in, ok := target.(*Instance)
	if !ok {
		return Get(target, s.Kw, notFound)
	}
	if e := s.last.Load(); e != nil && e.def == in.Type {
		if e.index < 0 {
			return notFound
		}
		return in.Fields[e.index]
	}
	i := -1
	if s.Kw.Ns == "" {
		i = in.Type.FieldIndex(s.Kw.Name)
	}
	s.last.Store(&keywordEntry{def: in.Type, index: i})
	if i < 0 {
		return notFound
	}
	return in.Fields[i]
}
