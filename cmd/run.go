// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/eclj/lang"
)

// RunCommand returns the run command.
func RunCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var (
		runExpression bool
		runPrint      bool
		runExcludes   []string
		runProfile    string
		runProfileOut string
	)
	cmd := &cobra.Command{
		Use:   "run [flags] [files...]",
		Short: "Run clojure code",
		Long: `Run clojure code supplied via the command line or source files.

Files are loaded in order into a single runtime, so definitions made by one
file are visible to the files after it. A directory argument ending in
"/..." loads every .clj, .cljc and .eclj file beneath it.

Examples:
  eclj run src/app.clj                    Load a file
  eclj run -p -e '(reduce + (range 10))'  Print the value of an expression
  eclj run --exclude=test ./...           Load a tree, skipping test dirs
  eclj run --profile=callgrind app.clj    Write callgrind.out for the run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			sources := make(map[string]string)
			r := newRenderer(sources)
			rt := lang.NewRuntime(lang.WithStdout(stdout), lang.WithStderr(stderr))
			c, err := cfg.newCompiler(rt, r)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			prof, err := startProfile(ctx, rt, runProfile, runProfileOut)
			if err != nil {
				return err
			}
			defer prof.Complete() //nolint:errcheck // best-effort flush

			if runExpression {
				for i, expr := range args {
					name := fmt.Sprintf("<expr-%d>", i+1)
					sources[name] = expr
					val, err := c.Load(ctx, name, strings.NewReader(expr))
					if err != nil {
						return renderError(stderr, r, err)
					}
					if runPrint {
						fmt.Fprintln(stdout, lang.PrStr(val)) //nolint:errcheck
					}
				}
				return prof.Complete()
			}
			paths, err := expandArgs(args, runExcludes)
			if err != nil {
				return err
			}
			for _, path := range paths {
				val, err := c.LoadFile(ctx, path)
				if err != nil {
					return renderError(stderr, r, err)
				}
				if runPrint {
					fmt.Fprintln(stdout, lang.PrStr(val)) //nolint:errcheck
				}
			}
			return prof.Complete()
		},
	}
	cmd.Flags().BoolVarP(&runExpression, "expression", "e", false,
		"Interpret arguments as clojure expressions")
	cmd.Flags().BoolVarP(&runPrint, "print", "p", false,
		"Print the value of each expression or file to stdout")
	cmd.Flags().StringArrayVar(&runExcludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	cmd.Flags().StringVar(&runProfile, "profile", "",
		`Profile the run: "callgrind" or "pprof".`)
	cmd.Flags().StringVar(&runProfileOut, "profile-output", "",
		"Profile output path (default is <profile>.out).")
	return cmd
}
