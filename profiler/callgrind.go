package profiler

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/luthersystems/eclj/lang"
)

// Version is written to the creator line of callgrind files.
const Version = "0.1.0"

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// callgrindProfiler writes a callgrind file which KCacheGrind and
// QCacheGrind can open.  Calls from a single goroutine are assumed.
type callgrindProfiler struct {
	profiler
	sync.Mutex
	writer    io.Writer
	writeErr  error
	startTime time.Time
	refs      map[string]int
	current   *callRef
}

var _ lang.Profiler = &callgrindProfiler{}

// NewCallgrindProfiler returns a profiler writing a callgrind file to w.
// If w is an io.Closer it is closed by Complete.
func NewCallgrindProfiler(runtime *lang.Runtime, w io.Writer, opts ...Option) lang.Profiler {
	p := &callgrindProfiler{writer: w}
	p.runtime = runtime
	p.applyConfigs(opts...)
	return p
}

type callRef struct {
	prev        *callRef
	name        string
	file        string
	line        int
	children    []*callRef
	start       time.Time
	duration    time.Duration
	startMemory uint64
}

func (p *callgrindProfiler) Enable() error {
	p.Lock()
	if p.writer == nil {
		p.Unlock()
		return errors.New("no output set in profiler")
	}
	p.runtime.Profiler = p
	w := &errWriter{w: p.writer}
	w.printf("version: 1\ncreator: eclj %s (Go %s)\n", Version, runtime.Version())
	w.printf("cmd: Eval\npart: 1\npositions: line\n\n")
	w.printf("events: Time_(ns) Memory_(bytes)\n\n")
	if w.err != nil {
		p.Unlock()
		return w.err
	}
	p.startTime = time.Now()
	p.refs = make(map[string]int)
	p.push("ENTRYPOINT", "-", 0)
	p.Unlock()
	return p.profiler.Enable()
}

func (p *callgrindProfiler) Complete() error {
	p.Lock()
	defer p.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	if p.current == nil {
		return errors.New("profiler not enabled")
	}
	for p.current.prev != nil {
		p.current = p.current.prev
	}
	ref := p.current
	ref.duration = time.Since(ref.start)
	w := &errWriter{w: p.writer}
	w.printf("fl=%s\n", p.getRef(ref.file))
	w.printf("fn=%s\n", p.getRef(ref.name))
	w.printf("%d %d %d\n", 0, ref.duration, 0)
	p.writeChildren(w, ref, 0)
	w.printf("\n")
	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)
	w.printf("summary %d %d\n\n", time.Since(p.startTime).Nanoseconds(), ms.TotalAlloc)
	p.enabled = false
	if w.err != nil {
		return w.err
	}
	if c, ok := p.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *callgrindProfiler) getRef(name string) string {
	if ref, ok := p.refs[name]; ok {
		return fmt.Sprintf("(%d)", ref)
	}
	id := len(p.refs) + 1
	p.refs[name] = id
	return fmt.Sprintf("(%d) %s", id, name)
}

func (p *callgrindProfiler) Start(fn *lang.FnInfo) func() {
	if p.skipTrace(fn) {
		return func() {}
	}
	label, _ := p.prettyFunName(fn)
	file, line := "-", 0
	if fn.Source != nil {
		file, line = fn.Source.File, fn.Source.Line
	}
	p.Lock()
	p.push(label, file, line)
	p.Unlock()
	return p.end
}

func (p *callgrindProfiler) push(name, file string, line int) {
	ref := &callRef{prev: p.current, name: name, file: file, line: line}
	if p.current != nil {
		p.current.children = append(p.current.children, ref)
	}
	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)
	ref.startMemory = ms.TotalAlloc
	ref.start = time.Now()
	p.current = ref
}

func (p *callgrindProfiler) end() {
	p.Lock()
	defer p.Unlock()
	ref := p.current
	if !p.enabled || ref == nil || ref.prev == nil {
		return
	}
	p.current = ref.prev
	if p.writeErr != nil {
		return
	}
	ref.duration = time.Since(ref.start)
	if ref.duration == 0 {
		ref.duration = 1
	}
	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)
	memory := ms.TotalAlloc - ref.startMemory
	w := &errWriter{w: p.writer}
	w.printf("fl=%s\n", p.getRef(ref.file))
	w.printf("fn=%s\n", p.getRef(ref.name))
	w.printf("%d %d %d\n", ref.line, ref.duration, memory)
	p.writeChildren(w, ref, memory)
	w.printf("\n")
	p.writeErr = w.err
}

func (p *callgrindProfiler) writeChildren(w *errWriter, ref *callRef, memory uint64) {
	for _, entry := range ref.children {
		w.printf("cfl=%s\n", p.getRef(entry.file))
		w.printf("cfn=%s\n", p.getRef(entry.name))
		w.printf("calls=1 0 0\n")
		w.printf("%d %d %d\n", entry.line, entry.duration, memory)
	}
}
