// Copyright © 2024 The ELPS authors

package cmd

import (
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/diagnostic"
	"github.com/luthersystems/eclj/repl"
)

func colorMode() diagnostic.ColorMode {
	return diagnostic.ParseColorMode(viper.GetString("color"))
}

// newRenderer returns a renderer which reads snippets for named inline
// sources from sources and everything else from disk.
func newRenderer(sources map[string]string) *diagnostic.Renderer {
	return &diagnostic.Renderer{
		Color: colorMode(),
		SourceReader: func(name string) ([]byte, error) {
			if src, ok := sources[name]; ok {
				return []byte(src), nil
			}
			return os.ReadFile(name)
		},
	}
}

// renderError writes err to w as a diagnostic and returns errReported.
func renderError(w io.Writer, r *diagnostic.Renderer, err error) error {
	_ = r.Render(w, diagnostic.FromError(err))
	return errReported
}

// warningSink renders compiler warnings to w.
func warningSink(w io.Writer, r *diagnostic.Renderer) compiler.WarningSink {
	return compiler.WarningFunc(func(warn compiler.Warning) {
		_ = r.Render(w, repl.WarningDiagnostic(warn))
	})
}
