// Copyright © 2021 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/docs"
	"github.com/luthersystems/eclj/lang"
)

const docWidth = 78

// DocCommand returns the doc command.
func DocCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var (
		docNamespace      bool
		docSourceFiles    []string
		docListNamespaces bool
		docGuide          bool
	)
	cmd := &cobra.Command{
		Use:   "doc [flags] QUERY",
		Short: "Show documentation for vars and namespaces",
		Long: `Show the documentation of a var: its qualified name, argument lists and
doc string.

By default, looks up a var by name, resolved in the user namespace. Use -n
to list every var interned in a namespace. Use -f to load a source file
first (useful for documenting your own code).

Examples:
  eclj doc map                     Show docs for the map function
  eclj doc eclj.core/when          Show docs for a qualified var
  eclj doc -n eclj.core            List the vars of the core namespace
  eclj doc -f mylib.clj my-fn      Load a file, then show docs for my-fn
  eclj doc -l                      List loaded namespaces
  eclj doc --guide                 Print the language guide`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			if docGuide {
				_, err := io.WriteString(stdout, docs.Guide)
				return err
			}
			r := newRenderer(nil)
			rt := lang.NewRuntime(lang.WithStdout(stdout), lang.WithStderr(stderr))
			c, err := cfg.newCompiler(rt, r)
			if err != nil {
				return err
			}
			for _, path := range docSourceFiles {
				if _, err := c.LoadFile(cmd.Context(), path); err != nil {
					return renderError(stderr, r, err)
				}
			}
			if docListNamespaces {
				for _, name := range rt.Namespaces.Names() {
					fmt.Fprintln(stdout, name) //nolint:errcheck
				}
				return nil
			}
			if len(args) != 1 {
				return cmd.Help()
			}
			if docNamespace {
				return docListVars(stdout, rt, args[0])
			}
			return docVar(stdout, c, args[0])
		},
	}
	cmd.Flags().BoolVarP(&docNamespace, "namespace", "n", false,
		"Interpret the argument as a namespace name.")
	cmd.Flags().StringArrayVarP(&docSourceFiles, "source-file", "f", nil,
		"Load a source file before querying documentation (may be repeated).")
	cmd.Flags().BoolVarP(&docListNamespaces, "list-namespaces", "l", false,
		"List all namespaces loaded in the runtime.")
	cmd.Flags().BoolVar(&docGuide, "guide", false,
		"Print the language guide.")
	return cmd
}

// resolveVar finds the var named by query, which may be namespace
// qualified.  Unqualified names resolve in the current namespace and then
// in the core namespace.
func resolveVar(rt *lang.Runtime, query string) (*lang.Var, error) {
	nsName, name, qualified := strings.Cut(query, "/")
	if !qualified || name == "" {
		name, nsName = query, ""
	}
	var candidates []*lang.Namespace
	if nsName != "" {
		ns := rt.NS().LookupAlias(nsName)
		if ns == nil {
			ns = rt.Namespaces.Find(nsName)
		}
		if ns == nil {
			return nil, fmt.Errorf("no namespace: %s", nsName)
		}
		candidates = append(candidates, ns)
	} else {
		candidates = append(candidates, rt.NS())
		if core := rt.Namespaces.Find(compiler.CoreNS); core != nil {
			candidates = append(candidates, core)
		}
	}
	for _, ns := range candidates {
		if v, ok := ns.Lookup(name).(*lang.Var); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("unable to resolve var: %s", query)
}

func docVar(w io.Writer, c *compiler.Compiler, query string) error {
	v, err := resolveVar(c.Runtime(), query)
	if err != nil {
		return err
	}
	meta := v.Meta()
	fmt.Fprintln(w, "-------------------------") //nolint:errcheck
	fmt.Fprintln(w, v.QualifiedSymbol())         //nolint:errcheck
	if meta == nil {
		return nil
	}
	if arglists, ok := meta.Get(lang.KwArglists); ok && arglists != nil {
		fmt.Fprintln(w, lang.PrStr(arglists)) //nolint:errcheck
	}
	switch {
	case v.IsMacro():
		fmt.Fprintln(w, "Macro") //nolint:errcheck
	case v.IsDynamic():
		fmt.Fprintln(w, "Dynamic") //nolint:errcheck
	}
	if doc, ok := meta.ValAt(lang.KwDoc).(string); ok && doc != "" {
		fmt.Fprintln(w, formatDoc(doc, docWidth, 2)) //nolint:errcheck
	}
	return nil
}

func docListVars(w io.Writer, rt *lang.Runtime, nsName string) error {
	ns := rt.Namespaces.Find(nsName)
	if ns == nil {
		return fmt.Errorf("no namespace: %s", nsName)
	}
	for _, name := range ns.Names() {
		v := ns.FindInterned(name)
		if v == nil {
			continue
		}
		summary := ""
		if doc, ok := v.Meta().ValAt(lang.KwDoc).(string); ok {
			summary, _, _ = strings.Cut(strings.TrimSpace(doc), "\n")
		}
		if summary == "" {
			fmt.Fprintln(w, name) //nolint:errcheck
			continue
		}
		fmt.Fprintf(w, "%-24s %s\n", name, summary) //nolint:errcheck
	}
	return nil
}

// formatDoc reflows a doc string to width and indents every line by
// margin.  Leading indentation of continuation lines in the source string
// is dropped.
func formatDoc(doc string, width int, margin uint) string {
	lines := strings.Split(strings.TrimSpace(doc), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	wrapped := wordwrap.String(strings.Join(lines, "\n"), width-int(margin))
	return indent.String(wrapped, margin)
}
