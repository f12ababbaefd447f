// Copyright © 2018 The ELPS authors

// Package rdparser is a recursive descent reader producing lang forms.
package rdparser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

type reader struct{}

// NewReader returns a lang.Reader backed by a recursive descent Parser.
func NewReader() lang.LocationReader {
	return &reader{}
}

// Read implements lang.Reader.
func (*reader) Read(name string, r io.Reader) ([]any, error) {
	p := New(token.NewScanner(name, r))
	return p.ParseProgram()
}

// ReadLocation implements lang.LocationReader.
func (*reader) ReadLocation(name string, path string, r io.Reader) ([]any, error) {
	s := token.NewScanner(name, r)
	s.SetPath(path)
	return New(s).ParseProgram()
}

// Parser reads forms from a token stream.
type Parser struct {
	parsing bool
	src     *TokenSource
}

// NewFromSource initializes and returns a Parser that reads tokens from src.
func NewFromSource(src *TokenSource) *Parser {
	return &Parser{src: src}
}

// New initializes and returns a new Parser that reads tokens from scanner.
func New(scanner *token.Scanner) *Parser {
	return NewFromSource(NewTokenSource(scanner))
}

// Parse reads one form.  At the end of input Parse returns io.EOF.
func (p *Parser) Parse() (any, error) {
	if err := p.skipIgnored(); err != nil {
		return nil, err
	}
	if p.src.IsEOF() {
		return nil, io.EOF
	}
	return p.ParseExpression()
}

// ParseProgram reads every form in the input.
func (p *Parser) ParseProgram() ([]any, error) {
	var forms []any
	for {
		form, err := p.Parse()
		if err == io.EOF {
			return forms, nil
		}
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
}

// ParseExpression reads one form.  Unlike Parse, an EOF before the form is an
// error.
func (p *Parser) ParseExpression() (any, error) {
	if err := p.skipIgnored(); err != nil {
		return nil, err
	}
	// Flag that a form is in progress so an interactive reader can pick a
	// continuation prompt.
	if !p.parsing {
		p.parsing = true
		defer func() { p.parsing = false }()
	}
	switch p.PeekType() {
	case token.INT:
		return p.parseInt()
	case token.FLOAT:
		return p.parseFloat()
	case token.STRING:
		return p.parseString()
	case token.CHAR:
		return p.parseChar()
	case token.KEYWORD:
		return p.parseKeyword()
	case token.SYMBOL:
		return p.parseSymbol()
	case token.QUOTE:
		return p.parseWrapped("quote")
	case token.UNQUOTE:
		return p.parseWrapped("unquote")
	case token.UNQUOTE_SPLICING:
		return p.parseWrapped("unquote-splicing")
	case token.VAR_QUOTE:
		return p.parseWrapped("var")
	case token.SYNTAX_QUOTE:
		return p.parseSyntaxQuote()
	case token.META:
		return p.parseMeta()
	case token.PAREN_L:
		return p.parseList()
	case token.BRACKET_L:
		return p.parseVector()
	case token.BRACE_L:
		return p.parseMap()
	case token.SET_L:
		return p.parseSet()
	case token.EOF:
		p.src.Scan()
		return nil, p.errorf("unexpected EOF while reading")
	case token.ERROR, token.INVALID:
		p.src.Scan()
		return nil, p.errorf("%s", p.TokenText())
	case token.PAREN_R, token.BRACKET_R, token.BRACE_R:
		p.src.Scan()
		return nil, p.errorf("Unmatched delimiter: %s", p.TokenText())
	default:
		p.src.Scan()
		return nil, p.errorf("unexpected token: %v", p.TokenType())
	}
}

// skipIgnored consumes comments and discarded forms.
func (p *Parser) skipIgnored() error {
	for {
		switch {
		case p.src.AcceptType(token.COMMENT):
		case p.src.AcceptType(token.DISCARD):
			if _, err := p.ParseExpression(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *Parser) parseInt() (any, error) {
	p.src.Scan()
	text := p.TokenText()
	x, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return nil, p.errorf("Invalid number: %s", text)
	}
	return x, nil
}

func (p *Parser) parseFloat() (any, error) {
	p.src.Scan()
	x, err := strconv.ParseFloat(p.TokenText(), 64)
	if err != nil {
		return nil, p.errorf("Invalid number: %s", p.TokenText())
	}
	return x, nil
}

func (p *Parser) parseString() (any, error) {
	p.src.Scan()
	text := p.TokenText()
	s, err := unescape(text[1 : len(text)-1])
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	return s, nil
}

var namedChars = map[string]lang.Char{
	"newline":   '\n',
	"space":     ' ',
	"tab":       '\t',
	"return":    '\r',
	"backspace": '\b',
	"formfeed":  '\f',
}

func (p *Parser) parseChar() (any, error) {
	p.src.Scan()
	name := p.TokenText()[1:]
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return lang.Char(r), nil
	}
	if c, ok := namedChars[name]; ok {
		return c, nil
	}
	if strings.HasPrefix(name, "u") && len(name) == 5 {
		x, err := strconv.ParseUint(name[1:], 16, 16)
		if err == nil {
			return lang.Char(rune(x)), nil
		}
	}
	return nil, p.errorf("Unsupported character: \\%s", name)
}

func (p *Parser) parseKeyword() (any, error) {
	p.src.Scan()
	text := p.TokenText()
	if strings.HasPrefix(text, "::") {
		return nil, p.errorf("Invalid token: %s", text)
	}
	sym := lang.ParseSymbol(text[1:])
	if sym.Name == "" || strings.HasSuffix(text, "/") {
		return nil, p.errorf("Invalid token: %s", text)
	}
	return lang.Intern(sym.Ns, sym.Name), nil
}

func (p *Parser) parseSymbol() (any, error) {
	p.src.Scan()
	text := p.TokenText()
	switch text {
	case "nil":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if strings.HasSuffix(text, ":") || strings.Contains(text, "::") {
		return nil, p.errorf("Invalid token: %s", text)
	}
	sym := lang.ParseSymbol(text)
	sym.Source = p.Location()
	return sym, nil
}

// parseWrapped reads a reader macro that wraps the following form as (op form).
func (p *Parser) parseWrapped(op string) (any, error) {
	p.src.Scan()
	loc := p.Location()
	form, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	sym := lang.NewSymbol("", op)
	sym.Source = loc
	return lang.NewList(sym, form).WithLoc(loc), nil
}

func (p *Parser) parseMeta() (any, error) {
	p.src.Scan()
	loc := p.Location()
	mform, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	var meta *lang.Map
	switch m := mform.(type) {
	case *lang.Symbol, string:
		meta = lang.NewMap(lang.KwTag, m)
	case *lang.Keyword:
		meta = lang.NewMap(m, true)
	case *lang.Map:
		meta = m
	default:
		return nil, &token.LocationError{
			Err:    fmt.Errorf("Metadata must be Symbol, Keyword, String or Map"),
			Source: loc,
		}
	}
	form, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	obj, ok := form.(lang.IObj)
	if !ok {
		return nil, &token.LocationError{
			Err:    fmt.Errorf("Metadata can only be applied to IMetas"),
			Source: loc,
		}
	}
	merged := obj.Meta()
	if merged == nil {
		merged = lang.EmptyMap
	}
	for _, k := range meta.Keys() {
		merged = merged.Assoc(k, meta.ValAt(k))
	}
	return obj.WithMeta(merged), nil
}

// parseForms reads forms until the closing delimiter close.
func (p *Parser) parseForms(close token.Type) ([]any, error) {
	open := p.src.Token
	var forms []any
	for {
		if err := p.skipIgnored(); err != nil {
			return nil, err
		}
		if p.src.IsEOF() {
			return nil, &token.LocationError{
				Err:    fmt.Errorf("EOF while reading, starting at %s", open.Source),
				Source: open.Source,
			}
		}
		if p.src.AcceptType(close) {
			return forms, nil
		}
		form, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
}

func (p *Parser) parseList() (any, error) {
	p.src.Scan()
	loc := p.Location()
	forms, err := p.parseForms(token.PAREN_R)
	if err != nil {
		return nil, err
	}
	return lang.NewList(forms...).WithLoc(loc), nil
}

func (p *Parser) parseVector() (any, error) {
	p.src.Scan()
	loc := p.Location()
	forms, err := p.parseForms(token.BRACKET_R)
	if err != nil {
		return nil, err
	}
	v := lang.NewVector(forms...)
	v.Source = loc
	return v, nil
}

func (p *Parser) parseMap() (any, error) {
	p.src.Scan()
	loc := p.Location()
	forms, err := p.parseForms(token.BRACE_R)
	if err != nil {
		return nil, err
	}
	if len(forms)%2 != 0 {
		return nil, &token.LocationError{
			Err:    fmt.Errorf("Map literal must contain an even number of forms"),
			Source: loc,
		}
	}
	m := lang.NewMap(forms...)
	if m.Count() != len(forms)/2 {
		return nil, &token.LocationError{
			Err:    fmt.Errorf("Duplicate key in map literal"),
			Source: loc,
		}
	}
	m.Source = loc
	return m, nil
}

func (p *Parser) parseSet() (any, error) {
	p.src.Scan()
	loc := p.Location()
	forms, err := p.parseForms(token.BRACE_R)
	if err != nil {
		return nil, err
	}
	s := lang.NewSet(forms...)
	if s.Count() != len(forms) {
		return nil, &token.LocationError{
			Err:    fmt.Errorf("Duplicate key in set literal"),
			Source: loc,
		}
	}
	s.Source = loc
	return s, nil
}

func (p *Parser) TokenText() string {
	return p.src.Token.Text
}

func (p *Parser) TokenType() token.Type {
	return p.src.Token.Type
}

func (p *Parser) Location() *token.Location {
	return p.src.Token.Source
}

func (p *Parser) PeekType() token.Type {
	return p.src.Peek().Type
}

func (p *Parser) errorf(format string, v ...interface{}) error {
	return &token.LocationError{
		Err:    fmt.Errorf(format, v...),
		Source: p.Location(),
	}
}

// unescape interprets the escape sequences of a string literal body.
func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("EOF while reading string")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'u':
			if i+5 > len(s) {
				return "", fmt.Errorf("Invalid unicode escape: \\%s", s[i:])
			}
			x, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("Invalid unicode escape: \\u%s", s[i+1:i+5])
			}
			b.WriteRune(rune(x))
			i += 4
		default:
			return "", fmt.Errorf("Unsupported escape character: \\%c", s[i])
		}
	}
	return b.String(), nil
}
