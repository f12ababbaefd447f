package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/lang"
)

// execute runs cmd with args and returns its stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRunCommand_DefaultFlags(t *testing.T) {
	cmd := RunCommand()
	assert.Equal(t, "run [flags] [files...]", cmd.Use)
	for _, name := range []string{"expression", "print", "exclude", "profile", "profile-output"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestRunCommand_Expressions(t *testing.T) {
	stdout, _, err := execute(t, RunCommand(), "-p", "-e", "(+ 1 2)", "(def x 40) (+ x 2)")
	require.NoError(t, err)
	assert.Equal(t, "3\n42\n", stdout)
}

func TestRunCommand_ProgramOutput(t *testing.T) {
	stdout, _, err := execute(t, RunCommand(), "-e", `(println "hello" 7)`)
	require.NoError(t, err)
	assert.Equal(t, "hello 7\n", stdout)
}

func TestRunCommand_Files(t *testing.T) {
	lib := writeSource(t, "lib.clj", "(defn sq [x] (* x x))\n")
	main := writeSource(t, "main.clj", "(sq 9)\n")
	stdout, _, err := execute(t, RunCommand(), "-p", lib, main)
	require.NoError(t, err)
	assert.Equal(t, "#'user/sq\n81\n", stdout)
}

func TestRunCommand_RendersErrors(t *testing.T) {
	path := writeSource(t, "bad.clj", "(def x 1)\n(undefined-fn x)\n")
	_, stderr, err := execute(t, RunCommand(), path)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "error: Syntax error compiling: Unable to resolve symbol: undefined-fn in this context")
	assert.Contains(t, stderr, "--> "+path+":2:")
	assert.Contains(t, stderr, "(undefined-fn x)")
}

func TestRunCommand_MissingFile(t *testing.T) {
	_, stderr, err := execute(t, RunCommand(), filepath.Join(t.TempDir(), "missing.clj"))
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "error:")
}

func TestRunCommand_CallgrindProfile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "callgrind.out")
	_, _, err := execute(t, RunCommand(),
		"--profile=callgrind", "--profile-output="+out,
		"-e", "(defn add-it [a b] (+ a b)) (add-it 1 2)")
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "events: Time_(ns) Memory_(bytes)")
	assert.Contains(t, string(data), "add-it")
}

func TestRunCommand_UnknownProfile(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, RunCommand(),
		"--profile=flame", "--profile-output="+filepath.Join(dir, "out"), "-e", "1")
	assert.EqualError(t, err, `unknown profile kind: "flame"`)
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCommand_WithCompilerOptions(t *testing.T) {
	var warnings []compiler.Warning
	sink := compiler.WarningFunc(func(w compiler.Warning) { warnings = append(warnings, w) })
	cmd := RunCommand(WithCompilerOptions(
		compiler.WithWarnOnReflection(true),
		compiler.WithWarnings(sink),
	))
	_, _, err := execute(t, cmd, "-e", "(defn f [s] (.length s))")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, compiler.WarnReflection, warnings[0].Kind)
}

func TestRunCommand_ParsecReader(t *testing.T) {
	viper.Set("reader", "parsec")
	defer viper.Set("reader", "")
	stdout, _, err := execute(t, RunCommand(), "-p", "-e", "(let [v [1 2 3]] (count v))")
	require.NoError(t, err)
	assert.Equal(t, "3\n", stdout)
}

func TestRunCommand_BadConfig(t *testing.T) {
	viper.Set("mode", "jit")
	defer viper.Set("mode", "")
	_, _, err := execute(t, RunCommand(), "-e", "1")
	assert.EqualError(t, err, `unknown mode: "jit"`)
}

func TestParseUncheckedMath(t *testing.T) {
	v, err := parseUncheckedMath("")
	require.NoError(t, err)
	assert.Equal(t, false, v)
	v, err = parseUncheckedMath("true")
	require.NoError(t, err)
	assert.Equal(t, true, v)
	v, err = parseUncheckedMath(":warn-on-boxed")
	require.NoError(t, err)
	assert.True(t, lang.Equal(lang.Kw("warn-on-boxed"), v))
	_, err = parseUncheckedMath("maybe")
	assert.Error(t, err)
}

func TestDocCommand(t *testing.T) {
	path := writeSource(t, "lib.clj", `(defn greet
  "Returns a greeting
  for name."
  [name] (str "hello " name))`)
	stdout, _, err := execute(t, DocCommand(), "-f", path, "greet")
	require.NoError(t, err)
	assert.Equal(t, "-------------------------\nuser/greet\n([name])\n  Returns a greeting\n  for name.\n", stdout)
}

func TestDocCommand_Macro(t *testing.T) {
	stdout, _, err := execute(t, DocCommand(), "eclj.core/when")
	require.NoError(t, err)
	assert.Contains(t, stdout, "eclj.core/when\n")
	assert.Contains(t, stdout, "Macro\n")
}

func TestDocCommand_Guide(t *testing.T) {
	stdout, _, err := execute(t, DocCommand(), "--guide")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "# eclj language guide"))
	assert.Contains(t, stdout, "## Special forms")
}

func TestDocCommand_Unresolved(t *testing.T) {
	_, _, err := execute(t, DocCommand(), "no-such-var")
	assert.EqualError(t, err, "unable to resolve var: no-such-var")
	_, _, err = execute(t, DocCommand(), "nope/x")
	assert.EqualError(t, err, "no namespace: nope")
}

func TestDocCommand_ListNamespaces(t *testing.T) {
	stdout, _, err := execute(t, DocCommand(), "-l")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(stdout, "\n"), compiler.CoreNS)
	assert.Contains(t, strings.Split(stdout, "\n"), "user")
}

func TestDocCommand_ListVars(t *testing.T) {
	path := writeSource(t, "lib.clj", `(ns my.lib) (defn a "First fn.\nMore." [] 1) (defn b [] 2)`)
	stdout, _, err := execute(t, DocCommand(), "-f", path, "-n", "my.lib")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "a                        First fn.", lines[0])
	assert.Equal(t, "b", lines[1])
}

func TestFormatDoc(t *testing.T) {
	got := formatDoc("one two three four five", 12, 2)
	assert.Equal(t, "  one two\n  three four\n  five", got)
}

func TestExpandCommand(t *testing.T) {
	stdout, _, err := execute(t, ExpandCommand(), "(when x (f x))", "(when-not a b)")
	require.NoError(t, err)
	assert.Equal(t, "(if x (do (f x)))\n(if a nil (do b))\n", stdout)
}

func TestExpandCommand_Once(t *testing.T) {
	path := writeSource(t, "m.clj", "(defmacro twice [x] `(do ~x ~x))\n(defmacro my-when [c x] `(when ~c ~x))")
	stdout, _, err := execute(t, ExpandCommand(), "-f", path, "--once", "(my-when a b)")
	require.NoError(t, err)
	assert.Equal(t, "(when a b)\n", stdout)
}

func TestDisasmCommand(t *testing.T) {
	stdout, _, err := execute(t, DisasmCommand(), "(let [x 1] (fn [y] (+ x y)))")
	require.NoError(t, err)
	assert.Contains(t, stdout, "user$eval__")
	assert.Contains(t, stdout, "user$fn__")
}

func TestDisasmCommand_Eval(t *testing.T) {
	_, stderr, err := execute(t, DisasmCommand(), `(println "side effect")`)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "side effect")

	_, stderr, err = execute(t, DisasmCommand(), "--eval", `(println "side effect")`)
	require.NoError(t, err)
	assert.Contains(t, stderr, "side effect")

	stdout, _, err := execute(t, DisasmCommand(), "--eval", "(defn sq [x] (* x x))", "(sq 2)")
	require.NoError(t, err)
	assert.Contains(t, stdout, "user$sq__")
}

func TestReplCommand(t *testing.T) {
	cmd := ReplCommand()
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader("(def x 20)\n(* x 2)\n"))
	cmd.SetArgs([]string{"--history="})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "#'user/x")
	assert.Contains(t, stderr.String(), "40")
}
