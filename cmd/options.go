// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/diagnostic"
	"github.com/luthersystems/eclj/host"
	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser"
)

var envKeyReplacer = strings.NewReplacer("-", "_")

// Option configures an exported command factory (RunCommand, DocCommand,
// ...).
type Option func(*cmdConfig)

type cmdConfig struct {
	registry *host.Registry
	opts     []compiler.Option
}

func newCmdConfig(opts ...Option) *cmdConfig {
	cfg := &cmdConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRegistry makes the host classes in reg visible to compiled code.
// Embedders use it to expose their own classes to the command line.
func WithRegistry(reg *host.Registry) Option {
	return func(c *cmdConfig) { c.registry = reg }
}

// WithCompilerOptions passes opts to every compiler a command creates.
// They are applied after the options derived from flags and config.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(c *cmdConfig) { c.opts = append(c.opts, opts...) }
}

// compilerOptions returns the compiler options selected by flags, config
// file and environment.
func (c *cmdConfig) compilerOptions(stderr io.Writer, r *diagnostic.Renderer) ([]compiler.Option, error) {
	mode := compiler.ModeCompile
	if s := viper.GetString("mode"); s != "" {
		m, err := compiler.ParseMode(s)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	unchecked, err := parseUncheckedMath(viper.GetString("unchecked-math"))
	if err != nil {
		return nil, err
	}
	log, err := newLogger(stderr, viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	reader, err := parser.NewReaderKind(parser.WithKind(viper.GetString("reader")))
	if err != nil {
		return nil, err
	}
	intrinsics := true
	if viper.IsSet("intrinsics") {
		intrinsics = viper.GetBool("intrinsics")
	}
	opts := []compiler.Option{
		compiler.WithMode(mode),
		compiler.WithLogger(log),
		compiler.WithIntrinsics(intrinsics),
		compiler.WithReader(reader),
		compiler.WithWarnOnReflection(viper.GetBool("warn-on-reflection")),
		compiler.WithUncheckedMath(unchecked),
		compiler.WithWarnings(warningSink(stderr, r)),
	}
	if c.registry != nil {
		opts = append(opts, compiler.WithRegistry(c.registry))
	}
	return append(opts, c.opts...), nil
}

// newCompiler returns a compiler evaluating against rt.
func (c *cmdConfig) newCompiler(rt *lang.Runtime, r *diagnostic.Renderer) (*compiler.Compiler, error) {
	opts, err := c.compilerOptions(rt.Stderr, r)
	if err != nil {
		return nil, err
	}
	return compiler.New(append([]compiler.Option{compiler.WithRuntime(rt)}, opts...)...), nil
}

func parseUncheckedMath(s string) (any, error) {
	switch strings.ToLower(s) {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	case "warn-on-boxed", ":warn-on-boxed":
		return lang.Kw("warn-on-boxed"), nil
	}
	return nil, fmt.Errorf("invalid unchecked-math value: %q", s)
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.WarnLevel)
	if level == "" {
		return log, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)
	return log, nil
}
