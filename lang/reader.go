package lang

import "io"

// Reader turns source text into forms.
type Reader interface {
	// Read reads every form from r.  The name identifies the stream in source
	// locations.
	Read(name string, r io.Reader) ([]any, error)
}

// LocationReader is a Reader that can also record the physical location of a
// stream when it differs from its name.
type LocationReader interface {
	Reader
	ReadLocation(name string, path string, r io.Reader) ([]any, error)
}
