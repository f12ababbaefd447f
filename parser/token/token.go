// Copyright © 2018 The ELPS authors

package token

import "fmt"

// Source is an abstract stream of tokens which allows one token lookahead.
type Source interface {
	// Token returns the current token.  Token returns nil if Scan has not been
	// called.
	Token() *Token
	// Peek returns the next token in the stream.  At the end of the stream
	// Peek returns a token with type EOF.
	Peek() *Token
	// Scan advances the token stream if possible.  If there are no tokens
	// remaining Scan returns false.
	Scan() bool
}

// Token is a lexeme produced by the lexer along with the location where it
// started.
type Token struct {
	Type   Type
	Text   string
	Source *Location
}

func (tok *Token) String() string {
	return fmt.Sprintf("%v %q", tok.Type, tok.Text)
}

type Type uint

// Type constants produced by the lexer.
const (
	INVALID Type = iota
	ERROR
	EOF

	// Atoms
	SYMBOL
	KEYWORD
	INT
	FLOAT
	STRING
	CHAR

	COMMENT

	// Reader macros
	QUOTE
	SYNTAX_QUOTE
	UNQUOTE
	UNQUOTE_SPLICING
	META
	VAR_QUOTE
	DISCARD

	// Delimiters
	PAREN_L
	PAREN_R
	BRACKET_L
	BRACKET_R
	BRACE_L
	BRACE_R
	SET_L

	numTokenTypes
)

var typeStrings = [numTokenTypes]string{
	INVALID:          "invalid",
	ERROR:            "error",
	EOF:              "EOF",
	SYMBOL:           "symbol",
	KEYWORD:          "keyword",
	INT:              "int",
	FLOAT:            "float",
	STRING:           "string",
	CHAR:             "char",
	COMMENT:          ";",
	QUOTE:            "'",
	SYNTAX_QUOTE:     "`",
	UNQUOTE:          "~",
	UNQUOTE_SPLICING: "~@",
	META:             "^",
	VAR_QUOTE:        "#'",
	DISCARD:          "#_",
	PAREN_L:          "(",
	PAREN_R:          ")",
	BRACKET_L:        "[",
	BRACKET_R:        "]",
	BRACE_L:          "{",
	BRACE_R:          "}",
	SET_L:            "#{",
}

func (typ Type) String() string {
	if typ >= numTokenTypes {
		return typeStrings[INVALID]
	}
	return typeStrings[typ]
}

// Location identifies a position in a named source stream.
type Location struct {
	File string // a name representing the source stream
	Path string // a physical location which may differ from File
	Pos  int
	Line int // line number (starting at 1 when tracked)
	Col  int // line column number (starting at 1 when tracked)
}

func (loc *Location) String() string {
	if loc == nil {
		return "<unknown>"
	}
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

// LocationError is an error that occurred at a known source location.
type LocationError struct {
	Err    error
	Source *Location
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
