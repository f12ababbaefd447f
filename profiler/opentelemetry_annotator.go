package profiler

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/luthersystems/eclj/lang"
)

// ContextOpenTelemetryTracerKey looks up a parent tracer name from a
// context key.
const ContextOpenTelemetryTracerKey = "otelParentTracer"

type otelAnnotator struct {
	profiler
	currentContext context.Context
	currentSpan    trace.Span
}

var _ lang.Profiler = &otelAnnotator{}

// NewOpenTelemetryAnnotator returns a profiler recording a span for each
// call, nested under the span of parentContext.
func NewOpenTelemetryAnnotator(runtime *lang.Runtime, parentContext context.Context, opts ...Option) lang.Profiler {
	p := &otelAnnotator{
		profiler:       profiler{runtime: runtime},
		currentContext: parentContext,
	}
	p.applyConfigs(opts...)
	return p
}

func (p *otelAnnotator) Enable() error {
	p.runtime.Profiler = p
	if p.currentContext == nil {
		return errors.New("we can only append spans to a context that is linked to opentelemetry")
	}
	return p.profiler.Enable()
}

func (p *otelAnnotator) Complete() error {
	if p.currentSpan != nil {
		p.currentSpan.End()
	}
	return nil
}

func contextTracer(ctx context.Context) trace.Tracer {
	tracerName, ok := ctx.Value(ContextOpenTelemetryTracerKey).(string)
	if !ok {
		tracerName = "eclj"
	}
	return otel.GetTracerProvider().Tracer(tracerName)
}

func (p *otelAnnotator) Start(fn *lang.FnInfo) func() {
	if p.skipTrace(fn) {
		return func() {}
	}
	oldContext := p.currentContext
	label, name := p.prettyFunName(fn)
	p.currentContext, p.currentSpan = contextTracer(p.currentContext).Start(p.currentContext, label)
	p.addCodeAttributes(fn, name)
	return func() {
		p.currentSpan.End()
		p.currentContext = oldContext
		p.currentSpan = trace.SpanFromContext(p.currentContext)
	}
}

func (p *otelAnnotator) addCodeAttributes(fn *lang.FnInfo, name string) {
	attrs := []attribute.KeyValue{
		semconv.CodeNamespace(fn.NS),
		semconv.CodeFunction(name),
	}
	if loc := fn.Source; loc != nil {
		attrs = append(attrs,
			semconv.CodeColumn(loc.Col),
			semconv.CodeFilepath(loc.File),
			semconv.CodeLineNumber(loc.Line),
		)
	}
	p.currentSpan.SetAttributes(attrs...)
}
