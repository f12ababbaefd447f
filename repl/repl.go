// Copyright © 2018 The ELPS authors

// Package repl implements an interactive read-eval-print loop over a
// compiler.
package repl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/diagnostic"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/lexer"
	"github.com/luthersystems/eclj/parser/rdparser"
	"github.com/luthersystems/eclj/parser/token"
)

type config struct {
	stdin   io.ReadCloser
	stderr  io.Writer
	history string
	color   diagnostic.ColorMode
	opts    []compiler.Option
}

func newConfig(opts ...Option) *config {
	config := &config{history: historyPath()}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output of the REPL.  Values, errors and
// warnings are written to stderr.
func WithStderr(stderr io.Writer) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithHistoryFile sets the file used to persist line history.  An empty
// path disables history.
func WithHistoryFile(path string) Option {
	return func(c *config) {
		c.history = path
	}
}

// WithColor sets the color mode used to render errors.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

// WithCompilerOptions passes opts to the compiler created by RunRepl.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(c *config) {
		c.opts = append(c.opts, opts...)
	}
}

// RunRepl runs a repl over a new compiler.
func RunRepl(prompt string, opts ...Option) {
	cfg := newConfig(opts...)
	stderr := cfg.stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	rt := lang.NewRuntime(lang.WithStderr(stderr))
	r := &diagnostic.Renderer{Color: cfg.color}
	copts := append([]compiler.Option{
		compiler.WithRuntime(rt),
		compiler.WithWarnings(warningRenderer(stderr, r)),
	}, cfg.opts...)
	c := compiler.New(copts...)
	RunCompiler(c, prompt, strings.Repeat(" ", len(prompt)), opts...)
}

// RunCompiler runs a repl evaluating forms with c.  It returns when the
// input is exhausted.
func RunCompiler(c *compiler.Compiler, prompt, cont string, opts ...Option) {
	cfg := newConfig(opts...)
	rt := c.Runtime()
	stderr := cfg.stderr
	if stderr == nil {
		stderr = rt.Stderr
	}
	renderer := &diagnostic.Renderer{Color: cfg.color}

	p := rdparser.NewInteractive(nil)
	p.SetPrompts(prompt, cont)

	ensureHistoryFilePermissions(cfg.history)
	rlCfg := &readline.Config{
		Stdout:            stderr,
		Stderr:            stderr,
		Prompt:            p.Prompt(),
		HistoryFile:       cfg.history,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{rt: rt},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		panic(err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	line := 0
	p.Read = func() []*token.Token {
		rl.SetPrompt(p.Prompt())
		for {
			text, err := rl.ReadSlice()
			if err == readline.ErrInterrupt {
				continue
			}
			if err != nil {
				return []*token.Token{{Type: token.EOF}}
			}
			line++
			text = bytes.TrimSpace(text)
			if len(text) == 0 {
				continue
			}
			return lexLine(text, line)
		}
	}

	ctx := context.Background()
	for {
		form, err := p.Parse()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
			continue
		}
		val, err := c.EvalContext(ctx, form)
		if err != nil {
			renderError(stderr, renderer, err)
			continue
		}
		fmt.Fprintln(stderr, lang.PrStr(val)) //nolint:errcheck // best-effort REPL output
	}
}

// lexLine tokenizes one line of input.  Token locations carry the line
// number within the session.
func lexLine(text []byte, line int) []*token.Token {
	var tokens []*token.Token
	lex := lexer.New(token.NewScanner("stdin", bytes.NewReader(text)))
	for {
		tok := lex.ReadToken()
		if tok.Source != nil {
			tok.Source.Line = line
		}
		if tok.Type == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
		if tok.Type == token.ERROR {
			return tokens
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".eclj_history")
}

// ensureHistoryFilePermissions creates the history file readable only by
// its owner, or restricts an existing one.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0600)
}
