package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/eclj/lang"
)

// ExpandCommand returns the expand command.
func ExpandCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var (
		expandOnce  bool
		expandFiles []string
	)
	cmd := &cobra.Command{
		Use:   "expand [flags] FORM...",
		Short: "Print the macro expansion of forms",
		Long: `Print the macro expansion of each form given on the command line.

The head of each form is expanded repeatedly until it is no longer a macro
call. Use --once to expand a single step. Sub-forms are not expanded.

Examples:
  eclj expand '(when x (f x))'
  eclj expand --once '(cond a 1 :else 2)'
  eclj expand -f macros.clj '(my-macro 1 2)'`,
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
			for _, path := range expandFiles {
				if _, err := c.LoadFile(cmd.Context(), path); err != nil {
					return renderError(stderr, r, err)
				}
			}
			for i, src := range args {
				name := fmt.Sprintf("<expr-%d>", i+1)
				sources[name] = src
				forms, err := c.Read(name, strings.NewReader(src))
				if err != nil {
					return renderError(stderr, r, err)
				}
				for _, form := range forms {
					var out any
					if expandOnce {
						out, err = c.Macroexpand1(form)
					} else {
						out, err = c.Macroexpand(form)
					}
					if err != nil {
						return renderError(stderr, r, err)
					}
					fmt.Fprintln(stdout, lang.PrStr(out)) //nolint:errcheck
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&expandOnce, "once", false,
		"Expand a single step.")
	cmd.Flags().StringArrayVarP(&expandFiles, "source-file", "f", nil,
		"Load a source file defining macros first (may be repeated).")
	return cmd
}
