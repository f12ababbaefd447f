package lang

import "github.com/luthersystems/eclj/parser/token"

// IMeta is implemented by values that carry a metadata map.
type IMeta interface {
	Meta() *Map
}

// IObj is implemented by values that can produce a copy of themselves with
// different metadata.
type IObj interface {
	IMeta
	WithMeta(meta *Map) any
}

// Located is implemented by forms which know where they were read from.
type Located interface {
	Loc() *token.Location
}

// MetaOf returns the metadata of x or nil.
func MetaOf(x any) *Map {
	if m, ok := x.(IMeta); ok {
		return m.Meta()
	}
	return nil
}

// LocOf returns the source location of x or nil.
func LocOf(x any) *token.Location {
	if l, ok := x.(Located); ok {
		return l.Loc()
	}
	return nil
}
