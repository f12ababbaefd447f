// Copyright © 2018 The ELPS authors

package rdparser

import (
	"github.com/luthersystems/eclj/parser/lexer"
	"github.com/luthersystems/eclj/parser/token"
)

// TokenStream is an arbitrary sequence of tokens.  Typically, a TokenStream
// will be a *lexer.Lexer but other implementations are used by interactive
// environments.  At the end of input ReadToken returns tokens of type EOF.
type TokenStream interface {
	ReadToken() *token.Token
}

// TokenGenerator produces batches of tokens, typically one line of input at a
// time.  A generator signals the end of input with an EOF token.
type TokenGenerator func() []*token.Token

// TokenSource adds one token of lookahead to a TokenStream.
type TokenSource struct {
	lex   TokenStream
	Token *token.Token
	peek  *token.Token
}

// NewTokenStreamSource returns a TokenSource reading from stream.
func NewTokenStreamSource(stream TokenStream) *TokenSource {
	return &TokenSource{lex: stream}
}

// NewTokenSource returns a TokenSource that lexes tokens from scanner.
func NewTokenSource(scanner *token.Scanner) *TokenSource {
	return NewTokenStreamSource(lexer.New(scanner))
}

func (s *TokenSource) Peek() *token.Token {
	if s.peek == nil {
		s.peek = s.lex.ReadToken()
	}
	return s.peek
}

func (s *TokenSource) AcceptType(typ ...token.Type) bool {
	for _, typ := range typ {
		if s.Peek().Type == typ {
			s.scan()
			return true
		}
	}
	return false
}

func (s *TokenSource) Scan() bool {
	if s.IsEOF() {
		s.Token = s.Peek()
		return false
	}
	s.scan()
	return true
}

func (s *TokenSource) IsEOF() bool {
	return s.Peek().Type == token.EOF
}

func (s *TokenSource) scan() {
	s.Token = s.Peek()
	s.peek = nil
}
