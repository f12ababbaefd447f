// Copyright © 2018 The ELPS authors

package rdparser

import (
	"sync"

	"github.com/luthersystems/eclj/parser/token"
)

// Interactive implements a parser that parses a single form at a time and
// defers to a TokenGenerator function when it is necessary to read more
// tokens.
type Interactive struct {
	prompt     string
	promptCont string
	Read       TokenGenerator
	buf        []*token.Token
	mut        sync.RWMutex
	p          *Parser
}

// NewInteractive initializes and returns a new Interactive parser.
func NewInteractive(read TokenGenerator) *Interactive {
	p := &Interactive{
		Read: read,
	}
	p.p = NewFromSource(NewTokenStreamSource(interactiveStream{p}))
	return p
}

// SetPrompts configures the prompts returned by Prompt.  The cont string is
// used when the parser is in the middle of a form.
func (p *Interactive) SetPrompts(prompt, cont string) {
	p.prompt = prompt
	p.promptCont = cont
}

// Prompt returns the prompt for the next line of input.
func (p *Interactive) Prompt() string {
	if p.IsParsing() {
		return p.promptCont
	}
	return p.prompt
}

// IsParsing returns true if p is in the middle of parsing a form.
func (p *Interactive) IsParsing() bool {
	if p == nil {
		return false
	}
	p.mut.RLock()
	defer p.mut.RUnlock()
	return p.p.parsing
}

type interactiveStream struct {
	p *Interactive
}

func (s interactiveStream) ReadToken() *token.Token {
	p := s.p
	if len(p.buf) == 0 {
		// Read may call Prompt which takes the read lock.
		p.mut.Unlock()
		buf := p.Read()
		p.mut.Lock()
		if len(buf) == 0 {
			panic("no tokens read")
		}
		p.buf = buf
	}
	tok := p.buf[0]
	if tok.Type != token.EOF {
		p.buf = p.buf[1:]
	}
	return tok
}

// Parse parses one form from the token stream.  If a parse error is
// encountered, buffered tokens from the current line are discarded so that
// corrected source can be entered.
func (p *Interactive) Parse() (any, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	form, err := p.p.Parse()
	if err != nil {
		p.buf = nil
		return nil, err
	}
	return form, nil
}
