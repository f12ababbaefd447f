// Copyright © 2018 The ELPS authors

// Package ecljtest runs sequences of expressions against fresh compilers
// in every execution mode.
package ecljtest

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser"
)

// Modes lists the execution modes every sequence runs in.
var Modes = []compiler.Mode{compiler.ModeCompile, compiler.ModeInterpret}

// TestSequence is a sequence of expressions evaluated in order by one
// compiler.
type TestSequence []struct {
	Expr   string // an expression
	Result string // the printed result
	Output string // output written to the runtime's Stdout
	Error  string // when set, a substring of the expected error
}

// TestSuite is a set of named TestSequences.
type TestSuite []struct {
	Name string
	TestSequence
}

// NewCompiler returns a compiler whose output is captured in out and whose
// warnings are logged to t.
func NewCompiler(t testing.TB, mode compiler.Mode, out *bytes.Buffer, opts ...compiler.Option) *compiler.Compiler {
	rt := lang.NewRuntime(
		lang.WithStdout(out),
		lang.WithStderr(NewLogger(t)),
		lang.WithMaxCallDepth(10000),
	)
	opts = append([]compiler.Option{compiler.WithRuntime(rt), compiler.WithMode(mode)}, opts...)
	return compiler.New(opts...)
}

// RunTestSuite runs each TestSequence in tests on isolated compilers, once
// per mode.
func RunTestSuite(t *testing.T, tests TestSuite, opts ...compiler.Option) {
	for _, mode := range Modes {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			for _, test := range tests {
				test := test
				t.Run(test.Name, func(t *testing.T) {
					RunTestSequence(t, mode, test.TestSequence, opts...)
				})
			}
		})
	}
}

// RunTestSequence evaluates seq in order on one compiler.
func RunTestSequence(t *testing.T, mode compiler.Mode, seq TestSequence, opts ...compiler.Option) {
	var out bytes.Buffer
	c := NewCompiler(t, mode, &out, opts...)
	reader := parser.NewReader()
	for i, expr := range seq {
		out.Reset()
		forms, err := reader.Read("test", strings.NewReader(expr.Expr))
		require.NoError(t, err, "expr %d: parse error", i)
		require.Len(t, forms, 1, "expr %d: expected one expression", i)
		v, err := c.Eval(forms[0])
		if expr.Error != "" {
			if assert.Error(t, err, "expr %d: %s", i, expr.Expr) {
				assert.Contains(t, err.Error(), expr.Error, "expr %d: %s", i, expr.Expr)
			}
			continue
		}
		if !assert.NoError(t, err, "expr %d: %s", i, expr.Expr) {
			continue
		}
		assert.Equal(t, expr.Result, lang.PrStr(v), "expr %d: %s", i, expr.Expr)
		assert.Equal(t, expr.Output, out.String(), "expr %d: %s", i, expr.Expr)
	}
}

// RunTestFile loads the source file at path in every mode and fails when
// any of its forms raises an error.
func RunTestFile(t *testing.T, path string, opts ...compiler.Option) {
	source, err := os.ReadFile(path) //#nosec G304
	require.NoError(t, err, "unable to read test file")
	for _, mode := range Modes {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			var out bytes.Buffer
			c := NewCompiler(t, mode, &out, opts...)
			_, err := c.LoadString(path, string(source))
			assert.NoError(t, err)
		})
	}
}

// RunBenchmark evaluates the expressions in source b.N times on a fresh
// compiler.
func RunBenchmark(b *testing.B, mode compiler.Mode, source string) {
	b.StopTimer()
	forms, err := parser.NewReader().Read("benchmark", strings.NewReader(source))
	if err != nil {
		b.Fatalf("parse error: %v", err)
	}
	for i := 0; i < b.N; i++ {
		var out bytes.Buffer
		c := NewCompiler(b, mode, &out)
		b.StartTimer()
		for j, form := range forms {
			if _, err := c.Eval(form); err != nil {
				b.Fatalf("expr %d: %v", j, err)
			}
		}
		b.StopTimer()
	}
}
