// Copyright © 2018 The ELPS authors

package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/repl"
)

// ReplCommand returns the repl command.
func ReplCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var (
		replLoad    []string
		replHistory string
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive REPL",
		Long: `Start an interactive read-eval-print loop.

Line editing, tab completion of var names and command history are supported
via readline. Use Ctrl-D to exit. Values are printed readably and errors are
rendered with their source location.

Example REPL session:
  eclj> (+ 1 2)
  3
  eclj> (defn square [x] (* x x))
  #'user/square
  eclj> (square 5)
  25
  eclj> (:arglists (meta #'square))
  ([x])`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			r := newRenderer(nil)
			rt := lang.NewRuntime(lang.WithStdout(cmd.OutOrStdout()), lang.WithStderr(stderr))
			c, err := cfg.newCompiler(rt, r)
			if err != nil {
				return err
			}
			for _, path := range replLoad {
				if _, err := c.LoadFile(cmd.Context(), path); err != nil {
					return renderError(stderr, r, err)
				}
			}
			ropts := []repl.Option{
				repl.WithStderr(stderr),
				repl.WithColor(colorMode()),
			}
			if cmd.Flags().Changed("history") {
				ropts = append(ropts, repl.WithHistoryFile(replHistory))
			}
			if in := cmd.InOrStdin(); in != os.Stdin {
				ropts = append(ropts, repl.WithStdin(io.NopCloser(in)))
			}
			prompt := filepath.Base(os.Args[0]) + "> "
			repl.RunCompiler(c, prompt, strings.Repeat(" ", len(prompt)), ropts...)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&replLoad, "load", "l", nil,
		"Load a source file before starting (may be repeated).")
	cmd.Flags().StringVar(&replHistory, "history", "",
		"History file (default is $HOME/.eclj_history, empty disables history).")
	return cmd
}
