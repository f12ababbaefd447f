// Package compiler analyzes forms into expression trees and either
// evaluates the trees directly or synthesizes classes for them which run on
// package vm.
package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luthersystems/eclj/asm"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser"
	"github.com/luthersystems/eclj/vm"
)

// Mode selects how evaluated forms are executed.
type Mode int

const (
	// ModeCompile synthesizes a class for each form and runs it on the vm.
	ModeCompile Mode = iota
	// ModeInterpret evaluates expression trees directly.
	ModeInterpret
)

var modeNames = [...]string{
	ModeCompile:   "compile",
	ModeInterpret: "interpret",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown mode: %q", s)
}

const tracerName = "github.com/luthersystems/eclj/compiler"

// Compiler holds the state shared by the forms it evaluates.  A Compiler
// must only be used by one goroutine at a time.
type Compiler struct {
	rt       *lang.Runtime
	vm       *vm.Machine
	module   *asm.Module
	registry *host.Registry
	reader   lang.Reader
	log      *logrus.Logger
	tracer   trace.Tracer
	sink     WarningSink
	mode     Mode
	// intrinsics enables inlining of core numeric functions.
	intrinsics bool

	core             *lang.Namespace
	warnOnReflection *lang.Var
	uncheckedMath    *lang.Var
	nsVar            *lang.Var
	fileVar          *lang.Var

	initReflection bool
	initUnchecked  any
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRuntime makes the compiler evaluate against rt.
func WithRuntime(rt *lang.Runtime) Option {
	return func(c *Compiler) {
		c.rt = rt
	}
}

// WithMode selects how forms are executed.
func WithMode(m Mode) Option {
	return func(c *Compiler) {
		c.mode = m
	}
}

// WithLogger sets the logger receiving compiler diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// WithTracer sets the tracer recording analysis and evaluation spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Compiler) {
		c.tracer = t
	}
}

// WithWarnings sets the sink receiving analysis warnings.
func WithWarnings(sink WarningSink) Option {
	return func(c *Compiler) {
		c.sink = sink
	}
}

// WithIntrinsics enables or disables the inlining of core numeric
// functions as primitive operations.
func WithIntrinsics(on bool) Option {
	return func(c *Compiler) {
		c.intrinsics = on
	}
}

// WithRegistry sets the host classes visible to unqualified names.
func WithRegistry(r *host.Registry) Option {
	return func(c *Compiler) {
		c.registry = r
	}
}

// WithReader sets the reader used by Load.
func WithReader(r lang.Reader) Option {
	return func(c *Compiler) {
		c.reader = r
	}
}

// WithWarnOnReflection sets the initial value of *warn-on-reflection*.
func WithWarnOnReflection(on bool) Option {
	return func(c *Compiler) {
		c.initReflection = on
	}
}

// WithUncheckedMath sets the initial value of *unchecked-math*: false, true
// or the keyword :warn-on-boxed.
func WithUncheckedMath(v any) Option {
	return func(c *Compiler) {
		c.initUnchecked = v
	}
}

// New returns a compiler with the core namespace defined.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		intrinsics:    true,
		initUnchecked: false,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rt == nil {
		c.rt = lang.NewRuntime()
	}
	if c.log == nil {
		c.log = logrus.New()
		c.log.SetLevel(logrus.WarnLevel)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.sink == nil {
		c.sink = NewWriterSink(c.rt.Stderr)
	}
	if c.registry == nil {
		c.registry = host.StandardRegistry()
	}
	if c.reader == nil {
		c.reader = parser.NewReader()
	}
	c.vm = vm.New(c.rt)
	c.module = asm.NewModule("eclj")
	c.core = c.rt.Namespaces.FindOrCreate(CoreNS)
	c.defineCore()
	// The outermost frame makes the compiler flags assignable with set!.
	err := c.rt.PushBindings(
		[]*lang.Var{c.warnOnReflection, c.uncheckedMath, c.nsVar, c.fileVar},
		[]any{c.initReflection, c.initUnchecked, c.rt.NS(), nil},
	)
	if err != nil {
		panic(err)
	}
	c.log.WithField("mode", c.mode.String()).Debug("compiler initialized")
	return c
}

// Runtime returns the runtime forms are evaluated against.
func (c *Compiler) Runtime() *lang.Runtime {
	return c.rt
}

// Mode returns the execution mode.
func (c *Compiler) Mode() Mode {
	return c.mode
}

// Module returns the module holding the synthesized classes.
func (c *Compiler) Module() *asm.Module {
	return c.module
}

func (c *Compiler) flag(v *lang.Var) bool {
	val, err := v.Get(c.rt)
	return err == nil && lang.Truthy(val)
}

var kwWarnOnBoxed = lang.Kw("warn-on-boxed")

func (c *Compiler) warnOnBoxed() bool {
	val, err := c.uncheckedMath.Get(c.rt)
	return err == nil && lang.Equal(val, kwWarnOnBoxed)
}

// Eval evaluates form in the current namespace.
func (c *Compiler) Eval(form any) (any, error) {
	return c.EvalContext(context.Background(), form)
}

// EvalContext is like Eval and records a span under ctx.  Top-level do
// forms are evaluated one form at a time so that definitions are visible
// to the forms that follow them.
func (c *Compiler) EvalContext(ctx context.Context, form any) (any, error) {
	ctx, span := c.tracer.Start(ctx, "eclj.eval", trace.WithAttributes(
		attribute.String("eclj.ns", c.rt.NS().Name),
		attribute.String("eclj.mode", c.mode.String()),
	))
	defer span.End()
	v, err := c.eval(ctx, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func (c *Compiler) eval(ctx context.Context, form any) (any, error) {
	form, err := c.Macroexpand(form)
	if err != nil {
		return nil, err
	}
	if l, ok := form.(*lang.List); ok && l.Count() > 0 && isSymbol(l.First(), "do") {
		var last any
		for _, x := range l.Items()[1:] {
			if last, err = c.eval(ctx, x); err != nil {
				return nil, err
			}
		}
		return last, nil
	}
	o, err := c.analyzeTop(ctx, form)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, o)
}

func isSymbol(x any, name string) bool {
	sym, ok := x.(*lang.Symbol)
	return ok && sym.Ns == "" && sym.Name == name
}

// analyzeTop analyzes form as the body of a new top-level unit.  Warnings
// reach the sink only when analysis succeeds.
func (c *Compiler) analyzeTop(ctx context.Context, form any) (*ObjExpr, error) {
	_, span := c.tracer.Start(ctx, "eclj.analyze")
	defer span.End()
	a := c.newAnalyzer()
	o := a.root(lang.LocOf(form))
	e, err := a.analyze(Eval, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	o.Methods[0].Body = e
	for _, w := range a.pending {
		c.sink.Warn(w)
	}
	span.SetAttributes(attribute.String("eclj.unit", o.Name))
	return o, nil
}

func (c *Compiler) run(ctx context.Context, o *ObjExpr) (any, error) {
	if c.mode == ModeInterpret {
		m := o.Methods[0]
		return m.Body.Eval(newFrame(c, len(m.locals), nil, nil))
	}
	_, span := c.tracer.Start(ctx, "eclj.emit", trace.WithAttributes(attribute.String("eclj.unit", o.Name)))
	class, err := c.compileUnit(o)
	span.End()
	if err != nil {
		return nil, err
	}
	return c.vm.NewClosure(class, nil, nil).Invoke()
}

// Analyze macroexpands and analyzes form without evaluating it.  Analysis
// may still define types and interned Vars named by the form.
func (c *Compiler) Analyze(form any) (Expr, error) {
	o, err := c.analyzeTop(context.Background(), form)
	if err != nil {
		return nil, err
	}
	return o.Methods[0].Body, nil
}

// Macroexpand1 expands form once if it is a macro call.
func (c *Compiler) Macroexpand1(form any) (any, error) {
	l, ok := form.(*lang.List)
	if !ok || l.Count() == 0 {
		return form, nil
	}
	out, _, err := c.newAnalyzer().macroexpand1(l)
	return out, err
}

// Macroexpand expands form until it is no longer a macro call.
func (c *Compiler) Macroexpand(form any) (any, error) {
	for {
		l, ok := form.(*lang.List)
		if !ok || l.Count() == 0 {
			return form, nil
		}
		out, expanded, err := c.newAnalyzer().macroexpand1(l)
		if err != nil || !expanded {
			return out, err
		}
		form = out
	}
}

// Read reads every form from r.
func (c *Compiler) Read(name string, r io.Reader) ([]any, error) {
	return c.reader.Read(name, r)
}

// Load evaluates every form read from r and returns the value of the last.
// The current namespace is restored afterwards.
func (c *Compiler) Load(ctx context.Context, name string, r io.Reader) (any, error) {
	forms, err := c.reader.Read(name, r)
	if err != nil {
		return nil, err
	}
	ns := c.rt.NS()
	if err := c.rt.PushBindings([]*lang.Var{c.fileVar, c.nsVar}, []any{name, ns}); err != nil {
		return nil, err
	}
	defer func() {
		c.rt.PopBindings()
		c.rt.SetNS(ns)
	}()
	c.log.WithField("file", name).WithField("forms", len(forms)).Debug("loading")
	var last any
	for _, form := range forms {
		if last, err = c.EvalContext(ctx, form); err != nil {
			return nil, err
		}
	}
	return last, nil
}

// LoadString is like Load for source held in a string.
func (c *Compiler) LoadString(name, src string) (any, error) {
	return c.Load(context.Background(), name, strings.NewReader(src))
}

// LoadFile loads the source file at path.
func (c *Compiler) LoadFile(ctx context.Context, path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.Load(ctx, path, f)
}

// Disassemble writes listings of the classes synthesized for form, the
// top-level class first.  The form is not evaluated.
func (c *Compiler) Disassemble(w io.Writer, form any) error {
	form, err := c.Macroexpand(form)
	if err != nil {
		return err
	}
	o, err := c.analyzeTop(context.Background(), form)
	if err != nil {
		return err
	}
	seen := make(map[*asm.Class]bool)
	for _, t := range c.module.Types() {
		seen[t] = true
	}
	class, err := c.compileUnit(o)
	if err != nil {
		return err
	}
	if err := asm.Fprint(w, class); err != nil {
		return err
	}
	for _, t := range c.module.Types() {
		if seen[t] || t == class {
			continue
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := asm.Fprint(w, t); err != nil {
			return err
		}
	}
	return nil
}
