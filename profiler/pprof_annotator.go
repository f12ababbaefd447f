package profiler

import (
	"context"
	"runtime/pprof"

	"github.com/luthersystems/eclj/lang"
)

// pprofAnnotator labels the running goroutine with the function being
// called so that CPU profiles taken by the caller can be broken down by
// function.  It does not start pprof itself.
type pprofAnnotator struct {
	profiler
	currentContext context.Context
}

var _ lang.Profiler = &pprofAnnotator{}

// NewPprofAnnotator returns a profiler setting pprof goroutine labels.
func NewPprofAnnotator(runtime *lang.Runtime, parentContext context.Context, opts ...Option) lang.Profiler {
	p := &pprofAnnotator{
		profiler:       profiler{runtime: runtime},
		currentContext: parentContext,
	}
	p.applyConfigs(opts...)
	return p
}

func (p *pprofAnnotator) Enable() error {
	p.runtime.Profiler = p
	if p.currentContext == nil {
		p.currentContext = context.Background()
	}
	return p.profiler.Enable()
}

func (p *pprofAnnotator) Complete() error {
	pprof.SetGoroutineLabels(context.Background())
	return nil
}

func (p *pprofAnnotator) Start(fn *lang.FnInfo) func() {
	if p.skipTrace(fn) {
		return func() {}
	}
	oldContext := p.currentContext
	label, _ := p.prettyFunName(fn)
	p.currentContext = pprof.WithLabels(p.currentContext, pprof.Labels("function", label))
	pprof.SetGoroutineLabels(p.currentContext)
	return func() {
		p.currentContext = oldContext
		pprof.SetGoroutineLabels(oldContext)
	}
}
