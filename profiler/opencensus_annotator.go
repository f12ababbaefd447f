package profiler

import (
	"context"
	"errors"

	"go.opencensus.io/trace"

	"github.com/luthersystems/eclj/lang"
)

type ocAnnotator struct {
	profiler
	currentContext context.Context
	currentSpan    *trace.Span
	contexts       []context.Context
}

var _ lang.Profiler = &ocAnnotator{}

// NewOpenCensusAnnotator returns a profiler recording an OpenCensus span
// for each call, nested under the span of parentContext.
func NewOpenCensusAnnotator(runtime *lang.Runtime, parentContext context.Context, opts ...Option) lang.Profiler {
	p := &ocAnnotator{
		profiler:       profiler{runtime: runtime},
		currentContext: parentContext,
	}
	p.applyConfigs(opts...)
	return p
}

// EnableWithContext enables p with spans nested under the span of ctx.
func (p *ocAnnotator) EnableWithContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("set a context to use this function")
	}
	p.currentContext = ctx
	return p.Enable()
}

func (p *ocAnnotator) Enable() error {
	p.runtime.Profiler = p
	if p.currentContext == nil {
		return errors.New("we can only append spans to a context that is linked to opencensus")
	}
	return p.profiler.Enable()
}

func (p *ocAnnotator) Complete() error {
	if p.currentSpan != nil {
		p.currentSpan.End()
	}
	return nil
}

func (p *ocAnnotator) Start(fn *lang.FnInfo) func() {
	if p.skipTrace(fn) {
		return func() {}
	}
	label, _ := p.prettyFunName(fn)
	p.contexts = append(p.contexts, p.currentContext)
	p.currentContext, p.currentSpan = trace.StartSpan(p.currentContext, label)
	return func() {
		file, line := "no-source", 0
		if fn.Source != nil {
			file, line = fn.Source.File, fn.Source.Line
		}
		p.currentSpan.Annotate([]trace.Attribute{
			trace.StringAttribute("file", file),
			trace.Int64Attribute("line", int64(line)),
		}, "source")
		p.currentSpan.End()
		n := len(p.contexts) - 1
		p.currentContext = p.contexts[n]
		p.contexts = p.contexts[:n]
		p.currentSpan = trace.FromContext(p.currentContext)
	}
}
