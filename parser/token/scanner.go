// Copyright © 2018 The ELPS authors

package token

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scanner facilitates construction of tokens from a rune stream.  The input
// is decoded up front so tokens may be arbitrarily long.
type Scanner struct {
	file string
	path string
	src  []rune
	err  error

	start     int // index of the first rune of the current token
	next      int // index of the next rune to be scanned
	line      int // line of src[next]
	col       int // column of src[next]
	startLine int
	startCol  int
	c         rune
}

// NewScanner initializes and returns a new Scanner reading all of r.
func NewScanner(file string, r io.Reader) *Scanner {
	s := &Scanner{
		file:      file,
		line:      1,
		col:       1,
		startLine: 1,
		startCol:  1,
	}
	b, err := io.ReadAll(r)
	if err != nil {
		s.err = err
	}
	if !utf8.Valid(b) {
		i := invalidIndex(b)
		s.err = fmt.Errorf("invalid utf-8 sequence in source text starting with byte %q", b[i])
		b = b[:i]
	}
	s.src = []rune(string(b))
	return s
}

func invalidIndex(b []byte) int {
	for i := 0; i < len(b); {
		c, n := utf8.DecodeRune(b[i:])
		if c == utf8.RuneError && n == 1 {
			return i
		}
		i += n
	}
	return len(b)
}

// SetPath associates a physical location (e.g. filesystem path) with s.
func (s *Scanner) SetPath(path string) {
	s.path = path
}

// EmitToken returns a token containing the text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) EmitToken(typ Type) *Token {
	tok := &Token{
		Type:   typ,
		Text:   s.Text(),
		Source: s.LocStart(),
	}
	s.Ignore()
	return tok
}

// Ignore causes the scanner to skip all text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) Ignore() {
	s.start = s.next
	s.startLine = s.line
	s.startCol = s.col
}

// Text returns the text scanned since the last call to EmitToken or Ignore.
func (s *Scanner) Text() string {
	return string(s.src[s.start:s.next])
}

// Rune returns the last rune scanned.
func (s *Scanner) Rune() rune {
	return s.c
}

// Peek returns the next rune to be scanned.  Peek returns false at the end of
// the input.
func (s *Scanner) Peek() (rune, bool) {
	if s.next >= len(s.src) {
		return 0, false
	}
	return s.src[s.next], true
}

// ScanRune includes the next rune in the current token.  At the end of input
// ScanRune returns io.EOF, or the read error that truncated the input.
func (s *Scanner) ScanRune() error {
	if s.next >= len(s.src) {
		if s.err != nil {
			return s.err
		}
		return io.EOF
	}
	s.c = s.src[s.next]
	s.next++
	if s.c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return nil
}

// Err returns an error encountered reading the input once all valid runes
// have been scanned.
func (s *Scanner) Err() error {
	if s.next < len(s.src) {
		return nil
	}
	return s.err
}

// EOF returns true when no runes remain.
func (s *Scanner) EOF() bool {
	return s.next >= len(s.src) && (s.err == nil || errors.Is(s.err, io.EOF))
}

func (s *Scanner) Accept(fn func(rune) bool) bool {
	c, ok := s.Peek()
	if !ok || !fn(c) {
		return false
	}
	return s.ScanRune() == nil
}

func (s *Scanner) AcceptRune(c rune) bool {
	return s.Accept(func(r rune) bool { return r == c })
}

func (s *Scanner) AcceptDigit() bool {
	return s.Accept(isDigit)
}

func (s *Scanner) AcceptSpace() bool {
	return s.Accept(IsSpace)
}

func (s *Scanner) AcceptAny(charset string) bool {
	return s.Accept(func(r rune) bool { return strings.ContainsRune(charset, r) })
}

func (s *Scanner) AcceptSeq(fn func(rune) bool) int {
	var n int
	for s.Accept(fn) {
		n++
	}
	return n
}

func (s *Scanner) AcceptSeqDigit() int {
	return s.AcceptSeq(isDigit)
}

func (s *Scanner) AcceptSeqSpace() int {
	return s.AcceptSeq(IsSpace)
}

// LocStart returns a Location referencing the beginning of the current token.
func (s *Scanner) LocStart() *Location {
	return &Location{
		File: s.file,
		Path: s.path,
		Pos:  s.start,
		Line: s.startLine,
		Col:  s.startCol,
	}
}

// Loc returns a Location referencing the next rune to be scanned.
func (s *Scanner) Loc() *Location {
	return &Location{
		File: s.file,
		Path: s.path,
		Pos:  s.next,
		Line: s.line,
		Col:  s.col,
	}
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

// IsSpace reports whether c separates tokens.  Commas are whitespace.
func IsSpace(c rune) bool {
	return c == ',' || unicode.IsSpace(c)
}
