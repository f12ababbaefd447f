package lang

import (
	"strings"
	"sync"

	"github.com/luthersystems/eclj/parser/token"
)

// Symbol is a possibly namespace qualified name.  Symbols are values; two
// symbols with the same namespace and name are Equal regardless of metadata.
type Symbol struct {
	Ns     string
	Name   string
	Source *token.Location
	meta   *Map
}

// NewSymbol returns a symbol with the given namespace (possibly empty) and
// name.
func NewSymbol(ns, name string) *Symbol {
	return &Symbol{Ns: ns, Name: name}
}

// ParseSymbol splits text on the first '/' that is not the whole name.
func ParseSymbol(text string) *Symbol {
	if text == "/" {
		return NewSymbol("", text)
	}
	i := strings.IndexByte(text, '/')
	if i <= 0 || i == len(text)-1 {
		return NewSymbol("", text)
	}
	return NewSymbol(text[:i], text[i+1:])
}

func (s *Symbol) String() string {
	if s.Ns == "" {
		return s.Name
	}
	return s.Ns + "/" + s.Name
}

// Equal returns true when o has the same namespace and name.
func (s *Symbol) Equal(o *Symbol) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Ns == o.Ns && s.Name == o.Name
}

// Is reports whether s is the unqualified symbol name.
func (s *Symbol) Is(name string) bool {
	return s.Ns == "" && s.Name == name
}

func (s *Symbol) Meta() *Map {
	return s.meta
}

// WithMeta returns a copy of s carrying meta.
func (s *Symbol) WithMeta(meta *Map) any {
	cp := *s
	cp.meta = meta
	return &cp
}

func (s *Symbol) Loc() *token.Location {
	return s.Source
}

// Keyword is an interned symbolic constant.  Keywords with the same name are
// identical so they may be compared with ==.
type Keyword struct {
	Ns   string
	Name string
}

var keywords sync.Map

// Intern returns the unique keyword for ns and name.
func Intern(ns, name string) *Keyword {
	key := ns + "/" + name
	if k, ok := keywords.Load(key); ok {
		return k.(*Keyword)
	}
	k, _ := keywords.LoadOrStore(key, &Keyword{Ns: ns, Name: name})
	return k.(*Keyword)
}

// Kw interns a keyword from text with or without a leading colon.
func Kw(text string) *Keyword {
	sym := ParseSymbol(strings.TrimPrefix(text, ":"))
	return Intern(sym.Ns, sym.Name)
}

func (k *Keyword) String() string {
	if k.Ns == "" {
		return ":" + k.Name
	}
	return ":" + k.Ns + "/" + k.Name
}

// Invoke looks the keyword up in its first argument, returning the optional
// second argument when the key is absent.
func (k *Keyword) Invoke(args ...any) (any, error) {
	switch len(args) {
	case 1:
		return Get(args[0], k, nil), nil
	case 2:
		return Get(args[0], k, args[1]), nil
	}
	return nil, &WrongArityError{Name: k.String(), Count: len(args)}
}

// Frequently used keywords.
var (
	KwTag         = Intern("", "tag")
	KwDoc         = Intern("", "doc")
	KwMacro       = Intern("", "macro")
	KwDynamic     = Intern("", "dynamic")
	KwArglists    = Intern("", "arglists")
	KwStatic      = Intern("", "static")
	KwLine        = Intern("", "line")
	KwColumn      = Intern("", "column")
	KwFile        = Intern("", "file")
	KwName        = Intern("", "name")
	KwNs          = Intern("", "ns")
	KwMutable     = Intern("", "unsynchronized-mutable")
	KwVolatile    = Intern("", "volatile-mutable")
	KwWarnOnBoxed = Intern("", "warn-on-boxed")
)
