package compiler

import (
	"fmt"
	"io"
	"sync"

	"github.com/luthersystems/eclj/parser/token"
)

// ParseError is returned when a form cannot be analyzed.  Analysis of the
// enclosing top-level form stops at the first ParseError.
type ParseError struct {
	Msg  string
	Form any
	Loc  *token.Location
	// Err is the underlying cause, such as an error raised by a macro.
	Err error
}

func (err *ParseError) Error() string {
	msg := err.Msg
	if err.Err != nil {
		if msg == "" {
			msg = err.Err.Error()
		} else {
			msg = msg + ": " + err.Err.Error()
		}
	}
	if err.Loc == nil {
		return "Syntax error compiling: " + msg
	}
	return fmt.Sprintf("Syntax error compiling at (%s): %s", err.Loc, msg)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

// File, Line and Col report the source position of the error, when known.
func (err *ParseError) File() string {
	if err.Loc == nil {
		return ""
	}
	return err.Loc.File
}

func (err *ParseError) Line() int {
	if err.Loc == nil {
		return 0
	}
	return err.Loc.Line
}

func (err *ParseError) Col() int {
	if err.Loc == nil {
		return 0
	}
	return err.Loc.Col
}

// WarningKind classifies warnings.
type WarningKind int

const (
	// WarnReflection reports host interop resolved at runtime.
	WarnReflection WarningKind = iota
	// WarnBoxedMath reports arithmetic on boxed operands.
	WarnBoxedMath
	// WarnNarrowing reports a conversion that may lose precision.
	WarnNarrowing
	// WarnRecur reports a recur argument whose type disagrees with its
	// loop local.
	WarnRecur
)

var warningNames = [...]string{
	WarnReflection: "Reflection warning",
	WarnBoxedMath:  "Boxed math warning",
	WarnNarrowing:  "Narrowing warning",
	WarnRecur:      "Recur warning",
}

func (k WarningKind) String() string {
	if int(k) < len(warningNames) {
		return warningNames[k]
	}
	return "Warning"
}

// Warning is a non-fatal diagnostic produced during analysis.
type Warning struct {
	File    string
	Line    int
	Col     int
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	loc := &token.Location{File: w.File, Line: w.Line, Col: w.Col}
	if w.File == "" {
		loc.File = "NO_SOURCE_PATH"
	}
	return fmt.Sprintf("%s, %s - %s", w.Kind, loc, w.Message)
}

// WarningSink receives warnings.
type WarningSink interface {
	Warn(w Warning)
}

// WarningFunc adapts a function to a WarningSink.
type WarningFunc func(w Warning)

func (fn WarningFunc) Warn(w Warning) {
	fn(w)
}

type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing one line per warning to w.
func NewWriterSink(w io.Writer) WarningSink {
	return &writerSink{w: w}
}

func (s *writerSink) Warn(w Warning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, w.String())
}

// WarningLog is a sink that records warnings in memory.
type WarningLog struct {
	mu       sync.Mutex
	warnings []Warning
}

func (log *WarningLog) Warn(w Warning) {
	log.mu.Lock()
	log.warnings = append(log.warnings, w)
	log.mu.Unlock()
}

// Warnings returns the recorded warnings.
func (log *WarningLog) Warnings() []Warning {
	log.mu.Lock()
	defer log.mu.Unlock()
	out := make([]Warning, len(log.warnings))
	copy(out, log.warnings)
	return out
}

// Reset discards recorded warnings.
func (log *WarningLog) Reset() {
	log.mu.Lock()
	log.warnings = nil
	log.mu.Unlock()
}
