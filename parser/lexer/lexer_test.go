// Copyright © 2018 The ELPS authors

package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luthersystems/eclj/parser/token"
)

type tok struct {
	typ  token.Type
	text string
}

func TestLexer(t *testing.T) {
	tests := []struct {
		input  string
		tokens []tok
	}{
		{``, []tok{{token.EOF, ""}}},
		{`abc`, []tok{{token.SYMBOL, "abc"}, {token.EOF, ""}}},
		{`(+ a b)`, []tok{
			{token.PAREN_L, "("},
			{token.SYMBOL, "+"},
			{token.SYMBOL, "a"},
			{token.SYMBOL, "b"},
			{token.PAREN_R, ")"},
			{token.EOF, ""},
		}},
		{`[x 1, y 2] {:a 1} #{}`, []tok{
			{token.BRACKET_L, "["},
			{token.SYMBOL, "x"},
			{token.INT, "1"},
			{token.SYMBOL, "y"},
			{token.INT, "2"},
			{token.BRACKET_R, "]"},
			{token.BRACE_L, "{"},
			{token.KEYWORD, ":a"},
			{token.INT, "1"},
			{token.BRACE_R, "}"},
			{token.SET_L, "#{"},
			{token.BRACE_R, "}"},
			{token.EOF, ""},
		}},
		{`10 -5 0.1 12e12 1.5e-3 0x1F - -x`, []tok{
			{token.INT, "10"},
			{token.INT, "-5"},
			{token.FLOAT, "0.1"},
			{token.FLOAT, "12e12"},
			{token.FLOAT, "1.5e-3"},
			{token.INT, "0x1F"},
			{token.SYMBOL, "-"},
			{token.SYMBOL, "-x"},
			{token.EOF, ""},
		}},
		{`'a ^long x #'f ~@xs ~y`, []tok{
			{token.QUOTE, "'"},
			{token.SYMBOL, "a"},
			{token.META, "^"},
			{token.SYMBOL, "long"},
			{token.SYMBOL, "x"},
			{token.VAR_QUOTE, "#'"},
			{token.SYMBOL, "f"},
			{token.UNQUOTE_SPLICING, "~@"},
			{token.SYMBOL, "xs"},
			{token.UNQUOTE, "~"},
			{token.SYMBOL, "y"},
			{token.EOF, ""},
		}},
		{`"a\"b" \a \newline ; done`, []tok{
			{token.STRING, `"a\"b"`},
			{token.CHAR, `\a`},
			{token.CHAR, `\newline`},
			{token.COMMENT, "; done"},
			{token.EOF, ""},
		}},
		{`Math/abs .toString x#`, []tok{
			{token.SYMBOL, "Math/abs"},
			{token.SYMBOL, ".toString"},
			{token.SYMBOL, "x#"},
			{token.EOF, ""},
		}},
	}
	for _, test := range tests {
		lex := New(token.NewScanner("test", strings.NewReader(test.input)))
		var got []tok
		for {
			tk := lex.ReadToken()
			got = append(got, tok{tk.Type, tk.Text})
			if tk.Type == token.EOF || tk.Type == token.ERROR {
				break
			}
		}
		assert.Equal(t, test.tokens, got, "input: %q", test.input)
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{`"abc`, `12abc`, `#x`, `:`} {
		lex := New(token.NewScanner("test", strings.NewReader(input)))
		tk := lex.ReadToken()
		assert.Equal(t, token.ERROR, tk.Type, "input: %q", input)
	}
}
