// Copyright © 2024 The ELPS authors

package repl

import (
	"io"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/diagnostic"
)

// renderError renders an evaluation error.  Source snippets are not
// available for typed input so the renderer shows only the location.
func renderError(w io.Writer, r *diagnostic.Renderer, err error) {
	d := diagnostic.FromError(err)
	d.Notes = append(d.Notes, "use (:arglists (meta #'name)) to show how a function is called")
	_ = r.Render(w, d)
}

// warningRenderer returns a sink rendering compiler warnings as
// diagnostics.
func warningRenderer(w io.Writer, r *diagnostic.Renderer) compiler.WarningSink {
	return compiler.WarningFunc(func(warn compiler.Warning) {
		_ = r.Render(w, WarningDiagnostic(warn))
	})
}

// WarningDiagnostic converts a compiler warning to a diagnostic.
func WarningDiagnostic(warn compiler.Warning) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: diagnostic.SeverityWarning,
		Message:  warn.Kind.String() + ": " + warn.Message,
	}
	if warn.Line > 0 {
		d.Spans = append(d.Spans, diagnostic.Span{File: warn.File, Line: warn.Line, Col: warn.Col})
	}
	return d
}
