// Copyright © 2018 The ELPS authors

// Package parser selects a reader implementation.
package parser

import (
	"fmt"

	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/parser/rdparser"
	"github.com/luthersystems/eclj/parser/regexparser"
)

const (
	// ReaderRD names the recursive descent reader, the default.
	ReaderRD = "rd"
	// ReaderParsec names the parser combinator reader.
	ReaderParsec = "parsec"
)

type config struct {
	kind string
}

// Option configures NewReader.
type Option func(*config)

// WithKind selects the reader by name.
func WithKind(kind string) Option {
	return func(c *config) {
		c.kind = kind
	}
}

// NewReader returns a new lang.Reader.
func NewReader(opts ...Option) lang.Reader {
	r, err := NewReaderKind(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// NewReaderKind is like NewReader but reports an unknown reader kind as an
// error.
func NewReaderKind(opts ...Option) (lang.Reader, error) {
	c := &config{kind: ReaderRD}
	for _, opt := range opts {
		opt(c)
	}
	switch c.kind {
	case ReaderRD, "":
		return rdparser.NewReader(), nil
	case ReaderParsec:
		return regexparser.NewReader(), nil
	}
	return nil, fmt.Errorf("unknown reader: %q", c.kind)
}
