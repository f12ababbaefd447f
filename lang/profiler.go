package lang

import "github.com/luthersystems/eclj/parser/token"

// FnInfo describes a function for profilers and error messages.
type FnInfo struct {
	NS     string
	Name   string
	Source *token.Location
}

func (info *FnInfo) String() string {
	if info.NS == "" {
		return info.Name
	}
	return info.NS + "/" + info.Name
}

// Profiler is notified of function calls.
type Profiler interface {
	// IsEnabled reports whether the profiler is collecting.
	IsEnabled() bool
	// Enable starts collection.
	Enable() error
	// Complete ends the session and flushes output.
	Complete() error
	// Start marks the beginning of a call and returns a function marking its
	// end.
	Start(fn *FnInfo) func()
}
