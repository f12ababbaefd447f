// Copyright © 2018 The ELPS authors

package repl

import (
	"sort"
	"strings"

	"github.com/luthersystems/eclj/compiler"
	"github.com/luthersystems/eclj/lang"
)

// symbolCompleter implements readline.AutoCompleter by enumerating the
// names visible in the runtime's current namespace.
type symbolCompleter struct {
	rt *lang.Runtime
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' || ch == '(' || ch == '[' || ch == '{' || ch == '\n' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}
	candidates := c.collectSymbols(prefix)
	if len(candidates) == 0 {
		return nil, 0
	}
	result := make([][]rune, 0, len(candidates))
	for _, sym := range candidates {
		result = append(result, []rune(sym[len(prefix):]))
	}
	return result, len(prefix)
}

func (c *symbolCompleter) collectSymbols(prefix string) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	current := c.rt.NS()
	if nsName, _, ok := strings.Cut(prefix, "/"); ok && nsName != "" {
		ns := current.LookupAlias(nsName)
		if ns == nil {
			ns = c.rt.Namespaces.Find(nsName)
		}
		if ns != nil {
			for _, name := range ns.Names() {
				if ns.FindInterned(name) != nil {
					add(nsName + "/" + name)
				}
			}
		}
		sort.Strings(result)
		return result
	}

	for _, name := range current.Names() {
		add(name)
	}
	if core := c.rt.Namespaces.Find(compiler.CoreNS); core != nil {
		for _, name := range core.Names() {
			add(name)
		}
	}
	for _, name := range c.rt.Namespaces.Names() {
		add(name + "/")
	}
	sort.Strings(result)
	return result
}
