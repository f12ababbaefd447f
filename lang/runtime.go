package lang

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// DefaultMaxCallDepth bounds nested function calls.
const DefaultMaxCallDepth = 10000

// Runtime holds the state shared by compiled and interpreted code: the
// namespace registry, the current namespace, dynamic bindings, and identifier
// sources.  Namespaces and identifier sources are safe for concurrent use.
// Dynamic bindings and the call depth belong to a single thread of execution.
type Runtime struct {
	Namespaces *Namespaces
	Stdout     io.Writer
	Stderr     io.Writer
	Profiler   Profiler

	MaxCallDepth int

	ns       atomic.Pointer[Namespace]
	bindings *bindingFrame
	depth    int
	numid    atomicCounter
	numsym   atomicCounter
}

// Config is a functional option for NewRuntime.
type Config func(rt *Runtime)

// WithStdout directs program output to w.
func WithStdout(w io.Writer) Config {
	return func(rt *Runtime) {
		rt.Stdout = w
	}
}

// WithStderr directs diagnostic output to w.
func WithStderr(w io.Writer) Config {
	return func(rt *Runtime) {
		rt.Stderr = w
	}
}

// WithMaxCallDepth limits the depth of nested function calls.
func WithMaxCallDepth(n int) Config {
	return func(rt *Runtime) {
		rt.MaxCallDepth = n
	}
}

// WithProfiler installs a profiler notified of every function call.
func WithProfiler(p Profiler) Config {
	return func(rt *Runtime) {
		rt.Profiler = p
	}
}

// NewRuntime returns a Runtime whose current namespace is "user".
func NewRuntime(config ...Config) *Runtime {
	rt := &Runtime{
		Namespaces:   NewNamespaces(),
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		MaxCallDepth: DefaultMaxCallDepth,
	}
	for _, fn := range config {
		fn(rt)
	}
	rt.ns.Store(rt.Namespaces.FindOrCreate("user"))
	return rt
}

// NS returns the current namespace.
func (rt *Runtime) NS() *Namespace {
	return rt.ns.Load()
}

// SetNS makes ns current.
func (rt *Runtime) SetNS(ns *Namespace) {
	rt.ns.Store(ns)
}

// GenID returns a unique positive identifier.
func (rt *Runtime) GenID() uint64 {
	return rt.numid.Add(1)
}

// GenSym returns a fresh symbol with the given prefix.
func (rt *Runtime) GenSym(prefix string) *Symbol {
	return NewSymbol("", fmt.Sprintf("%s%d", prefix, rt.numsym.Add(1)))
}

type atomicCounter uint64

func (c *atomicCounter) Add(n uint64) uint64 {
	return atomic.AddUint64((*uint64)(c), n)
}

type binding struct {
	val any
}

type bindingFrame struct {
	vars map[*Var]*binding
	prev *bindingFrame
}

// PushBindings establishes new dynamic bindings.  Every Var must be dynamic.
func (rt *Runtime) PushBindings(vars []*Var, vals []any) error {
	frame := &bindingFrame{
		vars: make(map[*Var]*binding, len(vars)),
		prev: rt.bindings,
	}
	for i, v := range vars {
		if !v.IsDynamic() {
			return &IllegalStateError{Msg: fmt.Sprintf("Can't dynamically bind non-dynamic var: %s", v.QualifiedSymbol())}
		}
		frame.vars[v] = &binding{val: vals[i]}
	}
	rt.bindings = frame
	return nil
}

// PopBindings removes the bindings established by the matching
// PushBindings.
func (rt *Runtime) PopBindings() {
	if rt.bindings == nil {
		panic("PopBindings without PushBindings")
	}
	rt.bindings = rt.bindings.prev
}

func (rt *Runtime) lookupBinding(v *Var) *binding {
	for f := rt.bindings; f != nil; f = f.prev {
		if b, ok := f.vars[v]; ok {
			return b
		}
	}
	return nil
}

// IsBound reports whether v has a dynamic binding in rt.
func (rt *Runtime) IsBound(v *Var) bool {
	return rt.lookupBinding(v) != nil
}

// Enter records a nested call and fails when the call depth exceeds
// MaxCallDepth.  A successful Enter must be paired with Leave.
func (rt *Runtime) Enter() error {
	if rt.MaxCallDepth > 0 && rt.depth >= rt.MaxCallDepth {
		return &StackOverflowError{Depth: rt.MaxCallDepth}
	}
	rt.depth++
	return nil
}

// Leave ends a call recorded by Enter.
func (rt *Runtime) Leave() {
	rt.depth--
}
