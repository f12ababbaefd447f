// Copyright © 2018 The ELPS authors

// Package lexer splits source text into tokens for the reader.
package lexer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/luthersystems/eclj/parser/token"
)

// LexFn is a lexer state.  It scans one token.
type LexFn func(*Lexer) *token.Token

const (
	miscWordRunes   = "0123456789" + miscWordSymbols + "#:"
	miscWordSymbols = "._+-*/=<>!&%?$'"
)

// Lexer produces tokens from a token.Scanner.
type Lexer struct {
	scanner *token.Scanner
	lex     LexFn
}

// New returns a Lexer reading from s.
func New(s *token.Scanner) *Lexer {
	return &Lexer{
		scanner: s,
		lex:     (*Lexer).readToken,
	}
}

// ReadToken scans the next token.  After the end of input ReadToken always
// returns a token of type EOF.
func (lex *Lexer) ReadToken() *token.Token {
	return lex.lex(lex)
}

func (lex *Lexer) readToken() *token.Token {
	lex.scanner.AcceptSeqSpace()
	lex.scanner.Ignore()
	if err := lex.scanner.ScanRune(); err != nil {
		return lex.emitError(err)
	}
	switch c := lex.scanner.Rune(); c {
	case '(':
		return lex.emitText(token.PAREN_L)
	case ')':
		return lex.emitText(token.PAREN_R)
	case '[':
		return lex.emitText(token.BRACKET_L)
	case ']':
		return lex.emitText(token.BRACKET_R)
	case '{':
		return lex.emitText(token.BRACE_L)
	case '}':
		return lex.emitText(token.BRACE_R)
	case '\'':
		return lex.emitText(token.QUOTE)
	case '`':
		return lex.emitText(token.SYNTAX_QUOTE)
	case '^':
		return lex.emitText(token.META)
	case '~':
		if lex.scanner.AcceptRune('@') {
			return lex.emitText(token.UNQUOTE_SPLICING)
		}
		return lex.emitText(token.UNQUOTE)
	case ';':
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.emitText(token.COMMENT)
	case '#':
		return lex.readDispatch()
	case '"':
		return lex.readString()
	case '\\':
		return lex.readChar()
	case ':':
		if lex.scanner.AcceptSeq(isWord) == 0 {
			return lex.errorf("invalid keyword: %q", lex.scanner.Text())
		}
		return lex.emitText(token.KEYWORD)
	case '+', '-':
		if isDigit(lex.peekRune()) {
			return lex.readNumber()
		}
		return lex.readSymbol()
	default:
		if isDigit(c) {
			return lex.readNumber()
		}
		if isWordStart(c) {
			return lex.readSymbol()
		}
		return lex.errorf("unexpected text starting with %q", c)
	}
}

func (lex *Lexer) readDispatch() *token.Token {
	switch {
	case lex.scanner.AcceptRune('{'):
		return lex.emitText(token.SET_L)
	case lex.scanner.AcceptRune('\''):
		return lex.emitText(token.VAR_QUOTE)
	case lex.scanner.AcceptRune('_'):
		return lex.emitText(token.DISCARD)
	case lex.scanner.AcceptRune('!'):
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.emitText(token.COMMENT)
	}
	return lex.errorf("invalid dispatch macro character %q", lex.peekRune())
}

func (lex *Lexer) readString() *token.Token {
	for {
		if err := lex.scanner.ScanRune(); err != nil {
			if errors.Is(err, io.EOF) {
				return lex.errorf("unterminated string literal")
			}
			return lex.emitError(err)
		}
		switch lex.scanner.Rune() {
		case '"':
			return lex.emitText(token.STRING)
		case '\\':
			// The escape itself is validated by the parser.
			if err := lex.scanner.ScanRune(); err != nil {
				return lex.errorf("unterminated string literal")
			}
		}
	}
}

func (lex *Lexer) readChar() *token.Token {
	if err := lex.scanner.ScanRune(); err != nil {
		return lex.errorf("unexpected EOF reading character")
	}
	lex.scanner.AcceptSeq(func(c rune) bool {
		return unicode.IsLetter(c) || isDigit(c)
	})
	return lex.emitText(token.CHAR)
}

func (lex *Lexer) readSymbol() *token.Token {
	lex.scanner.AcceptSeq(isWord)
	return lex.emitText(token.SYMBOL)
}

func (lex *Lexer) readNumber() *token.Token {
	lex.scanner.AcceptSeqDigit()
	if lex.scanner.Text() == "0" || lex.scanner.Text() == "-0" || lex.scanner.Text() == "+0" {
		if lex.scanner.AcceptAny("xX") {
			if lex.scanner.AcceptSeq(isHexDigit) == 0 {
				return lex.errorf("invalid hexadecimal literal: %s", lex.scanner.Text())
			}
			return lex.endNumber(token.INT)
		}
	}
	switch {
	case lex.scanner.AcceptRune('.'):
		lex.scanner.AcceptSeqDigit()
		if lex.scanner.AcceptAny("eE") {
			return lex.readExponent()
		}
		return lex.endNumber(token.FLOAT)
	case lex.scanner.AcceptAny("eE"):
		return lex.readExponent()
	}
	return lex.endNumber(token.INT)
}

func (lex *Lexer) readExponent() *token.Token {
	lex.scanner.AcceptAny("+-")
	if lex.scanner.AcceptSeqDigit() == 0 {
		return lex.errorf("invalid floating point literal: %s", lex.scanner.Text())
	}
	return lex.endNumber(token.FLOAT)
}

// endNumber rejects numbers running directly into symbol text like 12abc.
func (lex *Lexer) endNumber(typ token.Type) *token.Token {
	if lex.scanner.Accept(isWord) {
		lex.scanner.AcceptSeq(isWord)
		return lex.errorf("invalid number: %s", lex.scanner.Text())
	}
	return lex.emitText(typ)
}

func (lex *Lexer) emitText(typ token.Type) *token.Token {
	return lex.scanner.EmitToken(typ)
}

func (lex *Lexer) emit(typ token.Type, text string) *token.Token {
	tok := &token.Token{
		Type:   typ,
		Text:   text,
		Source: lex.scanner.LocStart(),
	}
	lex.scanner.Ignore()
	return tok
}

func (lex *Lexer) emitError(err error) *token.Token {
	if errors.Is(err, io.EOF) {
		return lex.emit(token.EOF, "")
	}
	lex.lex = (*Lexer).readEOF
	return lex.emit(token.ERROR, err.Error())
}

func (lex *Lexer) errorf(format string, v ...interface{}) *token.Token {
	return lex.emit(token.ERROR, fmt.Sprintf(format, v...))
}

// readEOF is the terminal state after an unrecoverable input error.
func (lex *Lexer) readEOF() *token.Token {
	return lex.emit(token.EOF, "")
}

func (lex *Lexer) peekRune() rune {
	r, _ := lex.scanner.Peek()
	return r
}

func isWordStart(c rune) bool {
	return unicode.IsLetter(c) || strings.ContainsRune(miscWordSymbols, c)
}

func isWord(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune(miscWordRunes, c)
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
