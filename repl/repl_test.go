package repl

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/diagnostic"
)

func runReplWithString(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer inW.Close() //nolint:errcheck // test cleanup
		_, _ = io.WriteString(inW, input)
	}()

	opts = append([]Option{
		WithStdin(inR),
		WithStderr(outW),
		WithHistoryFile(""),
		WithColor(diagnostic.ColorNever),
	}, opts...)
	go func() {
		RunRepl("eclj> ", opts...)
		inR.Close()  //nolint:errcheck,gosec // test cleanup
		outW.Close() //nolint:errcheck,gosec // test cleanup
	}()

	var output bytes.Buffer
	_, _ = io.Copy(&output, outR)
	outR.Close() //nolint:errcheck,gosec // test cleanup
	return output.String()
}

func TestEnsureHistoryFilePermissions_CreatesWithRestrictedMode(t *testing.T) {
	histFile := filepath.Join(t.TempDir(), ".eclj_history")
	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err, "history file should be created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnsureHistoryFilePermissions_RestrictsExistingFile(t *testing.T) {
	histFile := filepath.Join(t.TempDir(), ".eclj_history")
	require.NoError(t, os.WriteFile(histFile, []byte("some history"), 0644))

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	data, err := os.ReadFile(histFile)
	require.NoError(t, err)
	assert.Equal(t, "some history", string(data))
}

func TestEnsureHistoryFilePermissions_EmptyPathNoOp(t *testing.T) {
	ensureHistoryFilePermissions("")
}

func TestRunRepl(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		opts     []Option
		expected string
	}{
		{
			name:     "Simple Addition",
			input:    "(+ 1 1)\n",
			expected: "2\n",
		},
		{
			name:     "Multiline Form",
			input:    "(let [x 2]\n(* x 21))\n",
			expected: "42\n",
		},
		{
			name:     "Unresolved Symbol",
			input:    "fnord\n",
			expected: "Unable to resolve symbol: fnord in this context",
		},
		{
			name:     "Recovers After Error",
			input:    "(/ 1 0)\n(str \"ok\")\n",
			expected: "\"ok\"\n",
		},
		{
			name:     "Interpret Mode",
			input:    "(defn sq [x] (* x x))\n(sq 7)\n",
			opts:     []Option{WithCompilerOptions(compiler.WithMode(compiler.ModeInterpret))},
			expected: "49\n",
		},
		{
			name:     "Reflection Warning",
			input:    "(set! *warn-on-reflection* true)\n(fn [s] (.length s))\n",
			expected: "warning: Reflection warning: call to method length",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := runReplWithString(t, tc.input, tc.opts...)
			require.Contains(t, got, tc.expected)
		})
	}
}
