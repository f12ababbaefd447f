// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(sources map[string]string) *Renderer {
	return &Renderer{
		Color: ColorNever,
		SourceReader: func(name string) ([]byte, error) {
			s, ok := sources[name]
			if !ok {
				return nil, os.ErrNotExist
			}
			return []byte(s), nil
		},
	}
}

func render(t *testing.T, r *Renderer, d Diagnostic) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, d))
	return buf.String()
}

func TestRenderError(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.clj": "(let [x] x)",
	})
	got := render(t, r, Diagnostic{
		Severity: SeverityError,
		Message:  "Bad binding form, expected matched symbol expression pairs",
		Spans: []Span{
			{File: "test.clj", Line: 1, Col: 6, Label: "odd number of forms"},
		},
	})
	assert.Contains(t, got, "error: Bad binding form, expected matched symbol expression pairs")
	assert.Contains(t, got, "--> test.clj:1:6")
	assert.Contains(t, got, "(let [x] x)")
	assert.Contains(t, got, "     ^^^ odd number of forms")
}

func TestRenderWarning(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.clj": "(def s \"abc\")\n(.length s)",
	})
	got := render(t, r, Diagnostic{
		Severity: SeverityWarning,
		Message:  "call to method length can't be resolved (target class is unknown).",
		Spans:    []Span{{File: "test.clj", Line: 2, Col: 1}},
	})
	assert.Contains(t, got, "warning: call to method length")
	assert.Contains(t, got, "--> test.clj:2:1")
	assert.Contains(t, got, "^^^^^^^^^^^")
}

func TestRenderNoSource(t *testing.T) {
	got := render(t, testRenderer(nil), Diagnostic{
		Severity: SeverityError,
		Message:  "some error",
		Spans:    []Span{{File: "<stdin>", Line: 5, Col: 3}},
	})
	assert.Contains(t, got, "error: some error")
	assert.Contains(t, got, "--> <stdin>:5:3")
	assert.Contains(t, got, "|")
	assert.NotContains(t, got, "^")
}

func TestRenderNotes(t *testing.T) {
	got := render(t, testRenderer(nil), Diagnostic{
		Severity: SeverityError,
		Message:  "Unable to resolve symbol: f in this context",
		Notes:    []string{"caused by: lookup failed"},
	})
	assert.Contains(t, got, "= note: caused by: lookup failed")
	assert.NotContains(t, got, "-->")
}

func TestRenderWrapsLongMessages(t *testing.T) {
	r := testRenderer(nil)
	r.Width = 40
	msg := strings.Repeat("word ", 20)
	got := render(t, r, Diagnostic{Severity: SeverityNote, Message: msg})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(strings.TrimRight(line, " ")), 40, line)
	}
	assert.True(t, strings.HasPrefix(lines[0], "note: word"))
	assert.True(t, strings.HasPrefix(lines[1], "      word"), lines[1])
}

func TestRenderMultipleDiagnostics(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.clj": "(f 1)\n(g 2)",
	})
	diags := []Diagnostic{
		{Severity: SeverityWarning, Message: "first", Spans: []Span{{File: "test.clj", Line: 1, Col: 2}}},
		{Severity: SeverityWarning, Message: "second", Spans: []Span{{File: "test.clj", Line: 2, Col: 2}}},
	}
	var buf bytes.Buffer
	require.NoError(t, r.RenderAll(&buf, diags))
	got := buf.String()
	assert.GreaterOrEqual(t, len(strings.Split(got, "\n\n")), 2)
	assert.Contains(t, got, "warning: first")
	assert.Contains(t, got, "warning: second")
}

func TestDetectEndCol(t *testing.T) {
	tests := []struct {
		source string
		col    int
		end    int
	}{
		{"(if true)", 2, 3},
		{"(f (g x) y)", 4, 8},
		{"(f [1 2] y)", 4, 8},
		{"x", 1, 1},
		{"(a", 1, 2},
	}
	for _, test := range tests {
		assert.Equal(t, test.end, detectEndCol(test.source, test.col), "%q at %d", test.source, test.col)
	}
}

type posErr struct {
	msg   string
	line  int
	cause error
}

func (e *posErr) Error() string {
	return fmt.Sprintf("Syntax error compiling at (x.clj:%d:4): %s", e.line, e.msg)
}
func (e *posErr) File() string  { return "x.clj" }
func (e *posErr) Line() int     { return e.line }
func (e *posErr) Col() int      { return 4 }
func (e *posErr) Unwrap() error { return e.cause }

func TestFromError(t *testing.T) {
	d := FromError(errors.New("plain"))
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "plain", d.Message)
	assert.Empty(t, d.Spans)

	err := fmt.Errorf("load: %w", &posErr{msg: "Error macroexpanding m", line: 3, cause: errors.New("boom")})
	d = FromError(err)
	assert.Equal(t, "Syntax error compiling: Error macroexpanding m", d.Message)
	require.Len(t, d.Spans, 1)
	assert.Equal(t, Span{File: "x.clj", Line: 3, Col: 4}, d.Spans[0])
	assert.Equal(t, []string{"caused by: boom"}, d.Notes)

	d = FromError(&posErr{msg: "m", line: 0})
	assert.Empty(t, d.Spans)
}

func TestParseColorMode(t *testing.T) {
	assert.Equal(t, ColorAlways, ParseColorMode("always"))
	assert.Equal(t, ColorNever, ParseColorMode("never"))
	assert.Equal(t, ColorAuto, ParseColorMode("auto"))
	assert.Equal(t, ColorAuto, ParseColorMode("bogus"))
}
