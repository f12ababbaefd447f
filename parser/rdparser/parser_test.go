// Copyright © 2018 The ELPS authors

package rdparser

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser(t *testing.T) {
	tests := []struct {
		source string
		output string
	}{
		{`0`, `0`},
		{`12`, `12`},
		{`-7`, `-7`},
		{`0x1F`, `31`},
		{`0.5`, `0.5`},
		{`2e3`, `2000.0`},
		{`abc`, `abc`},
		{`abc?`, `abc?`},
		{`Math/abs`, `Math/abs`},
		{`nil true false`, `nil true false`},
		{`"xyz"`, `"xyz"`},
		{`"x\nyz"`, `"x\nyz"`},
		{`"A"`, `"A"`},
		{`\a \space \B`, `\a \space \B`},
		{`:kw :ns/kw`, `:kw :ns/kw`},
		{`()`, `()`},
		{`'x`, `(quote x)`},
		{`#'x`, `(var x)`},
		{`(1 "abc" [x y z])`, `(1 "abc" [x y z])`},
		{`{:a 1, :b 2}`, `{:a 1, :b 2}`},
		{`#{1}`, `#{1}`},
		{`(a #_b c)`, `(a c)`},
		{`; comment` + "\n" + `x`, `x`},
		{"`(a ~b ~@c)", `(seq (concat (list (quote a)) (list b) c))`},
		{"`[x]", `(apply vector (concat (list (quote x))))`},
		{"`5", `5`},
	}

	for i, test := range tests {
		name := fmt.Sprintf("test%d", i)
		s := token.NewScanner(name, strings.NewReader(test.source))
		p := New(s)
		forms, err := p.ParseProgram()
		if !assert.NoError(t, err, "test %d", i) {
			continue
		}
		var printed []string
		for _, f := range forms {
			printed = append(printed, lang.PrStr(f))
		}
		assert.Equal(t, test.output, strings.Join(printed, " "), "test %d: %q", i, test.source)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []string{
		`(a b`,
		`)`,
		`{:a}`,
		`{:a 1 :a 2}`,
		`#{1 1}`,
		`"\q"`,
		`\bogus`,
		`^1 x`,
		`^:m 1`,
		"`~@x",
		`99999999999999999999`,
	}
	for _, source := range tests {
		p := New(token.NewScanner("test", strings.NewReader(source)))
		_, err := p.ParseProgram()
		assert.Error(t, err, "source: %q", source)
	}
}

func TestParserLocations(t *testing.T) {
	p := New(token.NewScanner("test.clj", strings.NewReader("\n  (f\n x)")))
	form, err := p.Parse()
	require.NoError(t, err)
	l := form.(*lang.List)
	require.NotNil(t, l.Source)
	assert.Equal(t, 2, l.Source.Line)
	assert.Equal(t, 3, l.Source.Col)
	x := lang.NthForm(l, 1).(*lang.Symbol)
	assert.Equal(t, 3, x.Source.Line)
	assert.Equal(t, "test.clj", x.Source.File)

	_, err = p.Parse()
	assert.Equal(t, io.EOF, err)
}

func TestParserMeta(t *testing.T) {
	p := New(token.NewScanner("test", strings.NewReader(`^long x ^:dynamic ^{:doc "d"} y`)))
	forms, err := p.ParseProgram()
	require.NoError(t, err)
	require.Len(t, forms, 2)
	x := forms[0].(*lang.Symbol)
	assert.Equal(t, "long", lang.PrStr(x.Meta().ValAt(lang.KwTag)))
	y := forms[1].(*lang.Symbol)
	assert.Equal(t, true, y.Meta().ValAt(lang.KwDynamic))
	assert.Equal(t, "d", y.Meta().ValAt(lang.KwDoc))
}

func TestSyntaxQuoteGensym(t *testing.T) {
	p := New(token.NewScanner("test", strings.NewReader("`(let [x# 1] x#)")))
	form, err := p.Parse()
	require.NoError(t, err)
	printed := lang.PrStr(form)
	assert.NotContains(t, printed, "x#")
	assert.Equal(t, 2, strings.Count(printed, "__auto__"))
	i := strings.Index(printed, "x__")
	j := strings.LastIndex(printed, "x__")
	end := strings.Index(printed[i:], "__auto__")
	assert.Equal(t, printed[i:i+end], printed[j:j+end])
}

func TestInteractive(t *testing.T) {
	lines := []string{"(+ 1", "2)", ""}
	p := NewInteractive(nil)
	p.SetPrompts("> ", "  ")
	var prompts []string
	p.Read = func() []*token.Token {
		prompts = append(prompts, p.Prompt())
		line := lines[0]
		lines = lines[1:]
		if line == "" {
			return []*token.Token{{Type: token.EOF}}
		}
		var toks []*token.Token
		src := NewTokenSource(token.NewScanner("stdin", strings.NewReader(line)))
		for !src.IsEOF() {
			src.Scan()
			toks = append(toks, src.Token)
		}
		return toks
	}
	form, err := p.Parse()
	require.NoError(t, err)
	assert.Equal(t, "(+ 1 2)", lang.PrStr(form))
	assert.Equal(t, []string{"> ", "  "}, prompts)
	_, err = p.Parse()
	assert.Equal(t, io.EOF, err)
}
