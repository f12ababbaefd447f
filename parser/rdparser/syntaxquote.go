package rdparser

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/token"
)

var gensymCounter uint64

func sym(name string) *lang.Symbol {
	return lang.NewSymbol("", name)
}

func (p *Parser) parseSyntaxQuote() (any, error) {
	p.src.Scan()
	loc := p.Location()
	form, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	return SyntaxQuote(form, loc)
}

// SyntaxQuote expands a syntax quoted form into the code constructing it.
// Symbols ending in '#' are replaced by a generated symbol, consistently
// within the form.  Symbols are not namespace qualified.
func SyntaxQuote(form any, loc *token.Location) (any, error) {
	sq := &syntaxQuoter{gensyms: make(map[string]*lang.Symbol), loc: loc}
	return sq.expand(form)
}

type syntaxQuoter struct {
	gensyms map[string]*lang.Symbol
	loc     *token.Location
}

func (sq *syntaxQuoter) expand(form any) (any, error) {
	switch f := form.(type) {
	case *lang.Symbol:
		return lang.NewList(sym("quote"), sq.symbol(f)), nil
	case *lang.List:
		if f.Count() == 0 {
			return lang.NewList(sym("list")), nil
		}
		if isCall(f, "unquote") {
			return lang.Second(f), nil
		}
		if isCall(f, "unquote-splicing") {
			return nil, sq.errorf("splice not in list")
		}
		parts, err := sq.parts(f.Items())
		if err != nil {
			return nil, err
		}
		return lang.NewList(sym("seq"), parts).WithLoc(f.Source), nil
	case *lang.Vector:
		parts, err := sq.parts(f.Items())
		if err != nil {
			return nil, err
		}
		return lang.NewList(sym("apply"), sym("vector"), parts), nil
	case *lang.Map:
		var kvs []any
		for _, k := range f.Keys() {
			kvs = append(kvs, k, f.ValAt(k))
		}
		parts, err := sq.parts(kvs)
		if err != nil {
			return nil, err
		}
		return lang.NewList(sym("apply"), sym("hash-map"), parts), nil
	case *lang.Set:
		parts, err := sq.parts(f.Items())
		if err != nil {
			return nil, err
		}
		return lang.NewList(sym("apply"), sym("hash-set"), parts), nil
	}
	// Self evaluating values.
	return form, nil
}

// parts returns (concat ...) over the expansions of items.
func (sq *syntaxQuoter) parts(items []any) (any, error) {
	forms := []any{sym("concat")}
	for _, item := range items {
		switch {
		case isCall(item, "unquote"):
			forms = append(forms, lang.NewList(sym("list"), lang.Second(item)))
		case isCall(item, "unquote-splicing"):
			forms = append(forms, lang.Second(item))
		default:
			x, err := sq.expand(item)
			if err != nil {
				return nil, err
			}
			forms = append(forms, lang.NewList(sym("list"), x))
		}
	}
	return lang.NewList(forms...), nil
}

func (sq *syntaxQuoter) symbol(s *lang.Symbol) *lang.Symbol {
	if s.Ns != "" || !strings.HasSuffix(s.Name, "#") || len(s.Name) == 1 {
		return s
	}
	if g, ok := sq.gensyms[s.Name]; ok {
		return g
	}
	n := atomic.AddUint64(&gensymCounter, 1)
	g := sym(fmt.Sprintf("%s__%d__auto__", s.Name[:len(s.Name)-1], n))
	sq.gensyms[s.Name] = g
	return g
}

func (sq *syntaxQuoter) errorf(format string, v ...interface{}) error {
	return &token.LocationError{Err: fmt.Errorf(format, v...), Source: sq.loc}
}

func isCall(form any, name string) bool {
	l, ok := form.(*lang.List)
	if !ok || l.Count() != 2 {
		return false
	}
	s, ok := l.First().(*lang.Symbol)
	return ok && s.Is(name)
}
