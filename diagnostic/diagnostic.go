// Copyright © 2024 The ELPS authors

// Package diagnostic renders compiler errors and warnings as annotated
// source snippets for CLI output.  It does not depend on the compiler so
// any command can use it.
package diagnostic

import (
	"errors"
	"strings"
)

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based end column (0 = auto-detect from source)
	Label  string // text shown under the underline
}

// Diagnostic represents a single error, warning, or note with optional
// source annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	Message  string
	Spans    []Span
	Notes    []string // "= note:" lines
}

// Positioned is implemented by errors that know where in the source they
// occurred.
type Positioned interface {
	error
	File() string
	Line() int
	Col() int
}

// FromError returns an error diagnostic for err.  When err wraps a
// Positioned error the diagnostic carries its span, and the chain of
// wrapped causes below the positioned error become notes.
func FromError(err error) Diagnostic {
	d := Diagnostic{Severity: SeverityError, Message: err.Error()}
	var perr Positioned
	if !errors.As(err, &perr) {
		return d
	}
	d.Message = stripPosition(perr.Error())
	if perr.Line() > 0 {
		d.Spans = append(d.Spans, Span{File: perr.File(), Line: perr.Line(), Col: perr.Col()})
	}
	for cause := errors.Unwrap(perr); cause != nil; cause = errors.Unwrap(cause) {
		d.Notes = append(d.Notes, "caused by: "+cause.Error())
	}
	return d
}

// stripPosition drops a leading "... at (file:line:col): " prefix, which
// the rendered span already shows.
func stripPosition(msg string) string {
	at := strings.Index(msg, " at (")
	if at < 0 {
		return msg
	}
	end := strings.Index(msg[at:], "): ")
	if end < 0 {
		return msg
	}
	return msg[:at] + ": " + msg[at+end+3:]
}
