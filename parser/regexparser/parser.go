// Copyright © 2018 The ELPS authors

/*
Package regexparser provides an alternative reader built from parser
combinators.  It reads the same forms as rdparser but does not record source
locations beyond the stream name.

	form    := <list> | <vector> | <map> | <set> | <quoted> | <term>
	list    := '(' <form>* ')'
	vector  := '[' <form>* ']'
	map     := '{' <form>* '}'
	set     := '#{' <form>* '}'
	quoted  := '\'' <form>
	term    := <string> | <number> | <keyword> | <char> | <symbol>
*/
package regexparser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/luthersystems/eclj/lang"
	parsec "github.com/prataprc/goparsec"
)

// NewReader returns a lang.Reader.
func NewReader() lang.Reader {
	return &parsecReader{}
}

type parsecReader struct{}

func (p *parsecReader) Read(name string, r io.Reader) ([]any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	forms, _, err := ParseForms(b)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", name, err)
	}
	return forms, nil
}

// form wraps a read value so that nil can be distinguished from a missing
// node.
type form struct {
	v any
}

// ParseForms parses forms from text and returns them.  The number of bytes
// read is returned along with any error that was encountered in parsing.
func ParseForms(text []byte) ([]any, int, error) {
	var forms []any
	s := parsec.NewScanner(text)
	s = s.TrackLineno()
	parser := newParsecParser()
	root, s := parser(s)
	for root != nil {
		nodes, err := cleanParsecNodeList([]parsec.ParsecNode{root})
		if err != nil {
			return forms, s.GetCursor(), fmt.Errorf("%d: %w", s.Lineno(), err)
		}
		forms = append(forms, nodes...)
		root, s = parser(s)
	}
	_, s = s.SkipWS()
	if !s.Endof() {
		b, _ := s.Match(`.{1,16}`)
		if len(b) > 15 {
			b = append(b[:15:15], []byte("...")...)
		}
		return forms, s.GetCursor(), fmt.Errorf("%d: unexpected source text possibly starting: %s", s.Lineno(), b)
	}
	return forms, s.GetCursor(), nil
}

func newParsecParser() parsec.Parser {
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	openB := parsec.Atom("[", "OPENB")
	closeB := parsec.Atom("]", "CLOSEB")
	openC := parsec.Atom("{", "OPENC")
	openS := parsec.Atom("#{", "OPENS")
	closeC := parsec.Atom("}", "CLOSEC")
	q := parsec.Atom("'", "QUOTE")
	comment := parsec.Token(`;[^\n]*`, "COMMENT")
	comma := parsec.Token(`,+`, "COMMA")
	number := parsec.Token(`[+-]?(?:0[xX][0-9a-fA-F]+|[0-9]+(?:[.][0-9]*)?(?:[eE][+-]?[0-9]+)?)`, "NUMBER")
	keyword := parsec.Token(`:[\pL0-9._+\-*/=<>!&%?$'#:]+`, "KEYWORD")
	char := parsec.Token(`\\(?:[\pL0-9]+|.)`, "CHAR")
	symbol := parsec.Token(`[\pL._+\-*/=<>!&%?$][\pL0-9._+\-*/=<>!&%?$'#:]*`, "SYMBOL")
	term := parsec.OrdChoice(termNode,
		parsec.String(),
		number,
		keyword,
		char,
		symbol, // symbol comes last because it swallows anything
	)
	var expr parsec.Parser // forward declaration allows for recursive parsing
	forms := parsec.Kleene(nil, &expr)
	list := parsec.And(collNode(newList), openP, forms, closeP)
	vector := parsec.And(collNode(newVector), openB, forms, closeB)
	hashMap := parsec.And(collNode(newMap), openC, forms, closeC)
	hashSet := parsec.And(collNode(newSet), openS, forms, closeC)
	quoted := parsec.And(collNode(newQuote), q, &expr)
	expr = parsec.OrdChoice(nil,
		comment,
		comma,
		term,
		list,
		vector,
		hashSet,
		hashMap,
		quoted,
	)
	return expr
}

func termNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	switch term := nodes[0].(type) {
	case string:
		// goparsec unescapes the string but leaves it wrapped in quotes.
		return form{term[1 : len(term)-1]}
	case *parsec.Terminal:
		v, err := readTerm(term.Name, term.Value)
		if err != nil {
			return err
		}
		return form{v}
	}
	return fmt.Errorf("unexpected node %T", nodes[0])
}

func readTerm(name, text string) (any, error) {
	switch name {
	case "NUMBER":
		if strings.ContainsAny(text, ".eE") && !strings.ContainsAny(text, "xX") {
			return strconv.ParseFloat(text, 64)
		}
		return strconv.ParseInt(text, 0, 64)
	case "KEYWORD":
		sym := lang.ParseSymbol(text[1:])
		return lang.Intern(sym.Ns, sym.Name), nil
	case "CHAR":
		return readChar(text[1:])
	case "SYMBOL":
		switch text {
		case "nil":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return lang.ParseSymbol(text), nil
	}
	return nil, fmt.Errorf("unknown term %s", name)
}

var namedChars = map[string]lang.Char{
	"newline": '\n',
	"space":   ' ',
	"tab":     '\t',
	"return":  '\r',
}

func readChar(name string) (any, error) {
	if r := []rune(name); len(r) == 1 {
		return lang.Char(r[0]), nil
	}
	if c, ok := namedChars[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unsupported character: \\%s", name)
}

func collNode(build func([]any) (any, error)) parsec.Nodify {
	return func(nodes []parsec.ParsecNode) parsec.ParsecNode {
		items, err := cleanParsecNodeList(nodes)
		if err != nil {
			return err
		}
		v, err := build(items)
		if err != nil {
			return err
		}
		return form{v}
	}
}

func newList(items []any) (any, error) {
	return lang.NewList(items...), nil
}

func newVector(items []any) (any, error) {
	return lang.NewVector(items...), nil
}

func newMap(items []any) (any, error) {
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("map literal must contain an even number of forms")
	}
	return lang.NewMap(items...), nil
}

func newSet(items []any) (any, error) {
	return lang.NewSet(items...), nil
}

func newQuote(items []any) (any, error) {
	return lang.NewList(lang.NewSymbol("", "quote"), items[0]), nil
}

// cleanParsecNodeList collects the forms in a node tree, dropping punctuation
// and comments.  The first error node found is returned.
func cleanParsecNodeList(lis []parsec.ParsecNode) ([]any, error) {
	var forms []any
	for _, n := range lis {
		switch node := n.(type) {
		case form:
			forms = append(forms, node.v)
		case error:
			return nil, node
		case []parsec.ParsecNode:
			sub, err := cleanParsecNodeList(node)
			if err != nil {
				return nil, err
			}
			forms = append(forms, sub...)
		}
	}
	return forms, nil
}
