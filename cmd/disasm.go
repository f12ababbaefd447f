package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/eclj/lang"
)

// DisasmCommand returns the disasm command.
func DisasmCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var (
		disasmFile bool
		disasmEval bool
	)
	cmd := &cobra.Command{
		Use:   "disasm [flags] FORM...",
		Short: "List the classes compiled for forms",
		Long: `Compile each form and print a listing of the classes synthesized for it:
the top-level evaluation class first, then one class per nested function.

Forms are compiled but not evaluated, so a form which refers to a var
defined by an earlier form needs --eval to evaluate each form after it is
listed.

Examples:
  eclj disasm '(fn [x] (inc x))'
  eclj disasm --eval '(defn sq [^long x] (* x x))' '(sq 4)'
  eclj disasm --file --eval src/app.clj`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			sources := make(map[string]string)
			r := newRenderer(sources)
			rt := lang.NewRuntime(lang.WithStdout(stderr), lang.WithStderr(stderr))
			c, err := cfg.newCompiler(rt, r)
			if err != nil {
				return err
			}
			for i, arg := range args {
				var (
					name string
					src  io.Reader
				)
				if disasmFile {
					f, err := os.Open(arg)
					if err != nil {
						return err
					}
					defer f.Close() //nolint:errcheck
					name, src = arg, f
				} else {
					name = fmt.Sprintf("<expr-%d>", i+1)
					sources[name] = arg
					src = strings.NewReader(arg)
				}
				forms, err := c.Read(name, src)
				if err != nil {
					return renderError(stderr, r, err)
				}
				for _, form := range forms {
					if err := c.Disassemble(stdout, form); err != nil {
						return renderError(stderr, r, err)
					}
					if !disasmEval {
						continue
					}
					if _, err := c.EvalContext(cmd.Context(), form); err != nil {
						return renderError(stderr, r, err)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&disasmFile, "file", false,
		"Interpret arguments as source file paths.")
	cmd.Flags().BoolVar(&disasmEval, "eval", false,
		"Evaluate each form after listing it.")
	return cmd
}
