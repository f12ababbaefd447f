package profiler_test

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/profiler"
)

const testSource = `
(defn add-it [x y] (+ x y))
(defn recurse-it [x]
  (if (< x 4)
    (recurse-it (- x 1))
    (add-it x 3)))
(add-it (add-it 3 (recurse-it 5)) 8)
`

func runSource(t *testing.T, rt *lang.Runtime, mode compiler.Mode) {
	t.Helper()
	c := compiler.New(compiler.WithRuntime(rt), compiler.WithMode(mode))
	v, err := c.LoadString("test.clj", testSource)
	require.NoError(t, err)
	assert.Equal(t, int64(19), v)
}

func userSpans(names []string) []string {
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, "user/") {
			out = append(out, name)
		}
	}
	return out
}

func TestOpenTelemetryAnnotator(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()))
	})
	otel.SetTracerProvider(tp)

	for _, mode := range []compiler.Mode{compiler.ModeCompile, compiler.ModeInterpret} {
		t.Run(mode.String(), func(t *testing.T) {
			exporter.Reset()
			rt := lang.NewRuntime()
			p := profiler.NewOpenTelemetryAnnotator(rt, context.Background())
			require.NoError(t, p.Enable())
			runSource(t, rt, mode)
			require.NoError(t, p.Complete())

			var names []string
			for _, span := range exporter.GetSpans() {
				names = append(names, span.Name)
			}
			spans := userSpans(names)
			assert.Equal(t, 1, countOf(spans, "user/recurse-it"), names)
			assert.Equal(t, 3, countOf(spans, "user/add-it"), names)
		})
	}
}

func TestOpenTelemetryAnnotatorSkip(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()))
	})
	otel.SetTracerProvider(tp)

	rt := lang.NewRuntime()
	p := profiler.NewOpenTelemetryAnnotator(rt, context.Background(),
		profiler.WithNameFilter(regexp.MustCompile(`add-it`)),
		profiler.WithFunLabeler(func(fn *lang.FnInfo) string { return "user/labeled" }))
	require.NoError(t, p.Enable())
	runSource(t, rt, compiler.ModeCompile)
	require.NoError(t, p.Complete())

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Equal(t, []string{"user/labeled", "user/labeled", "user/labeled"}, userSpans(names))
}

type spanCollector struct {
	mu    sync.Mutex
	names []string
}

func (c *spanCollector) ExportSpan(sd *trace.SpanData) {
	c.mu.Lock()
	c.names = append(c.names, sd.Name)
	c.mu.Unlock()
}

func TestOpenCensusAnnotator(t *testing.T) {
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	collector := &spanCollector{}
	trace.RegisterExporter(collector)
	t.Cleanup(func() { trace.UnregisterExporter(collector) })

	rt := lang.NewRuntime()
	p := profiler.NewOpenCensusAnnotator(rt, context.Background(), profiler.WithNamespaceFilter("user"))
	require.NoError(t, p.Enable())
	runSource(t, rt, compiler.ModeCompile)
	require.NoError(t, p.Complete())

	collector.mu.Lock()
	defer collector.mu.Unlock()
	assert.Equal(t, 3, countOf(collector.names, "user/add-it"), collector.names)
	assert.Equal(t, 1, countOf(collector.names, "user/recurse-it"), collector.names)
}

func TestPprofAnnotator(t *testing.T) {
	rt := lang.NewRuntime()
	p := profiler.NewPprofAnnotator(rt, nil)
	require.NoError(t, p.Enable())
	assert.True(t, p.IsEnabled())
	assert.Error(t, p.Enable(), "enabling twice")
	runSource(t, rt, compiler.ModeInterpret)
	require.NoError(t, p.Complete())
}

func TestCallgrindProfiler(t *testing.T) {
	var buf bytes.Buffer
	rt := lang.NewRuntime()
	p := profiler.NewCallgrindProfiler(rt, &buf)
	require.NoError(t, p.Enable())
	runSource(t, rt, compiler.ModeCompile)
	require.NoError(t, p.Complete())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "version: 1\ncreator: eclj "), out)
	assert.Contains(t, out, "events: Time_(ns) Memory_(bytes)")
	assert.Contains(t, out, "user/add-it")
	assert.Contains(t, out, "user/recurse-it")
	assert.Contains(t, out, "ENTRYPOINT")
	assert.Contains(t, out, "summary ")
}

func TestCallgrindProfilerNoOutput(t *testing.T) {
	p := profiler.NewCallgrindProfiler(lang.NewRuntime(), nil)
	assert.Error(t, p.Enable())
}

func countOf(names []string, name string) int {
	n := 0
	for _, x := range names {
		if x == name {
			n++
		}
	}
	return n
}
