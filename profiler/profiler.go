// Package profiler provides lang.Profiler implementations which annotate
// function calls with trace spans, pprof labels or callgrind records.
package profiler

import (
	"errors"
	"regexp"
	"strings"

	"github.com/luthersystems/eclj/lang"
)

// profiler is the state shared by the profilers in this package.
type profiler struct {
	runtime    *lang.Runtime
	enabled    bool
	skipFilter SkipFilter
	funLabeler FunLabeler
}

var _ lang.Profiler = &profiler{}

func (p *profiler) IsEnabled() bool {
	return p.enabled
}

func (p *profiler) Enable() error {
	if p.enabled {
		return errors.New("profiler already enabled")
	}
	p.enabled = true
	return nil
}

func (p *profiler) Complete() error {
	return nil
}

func (p *profiler) Start(fn *lang.FnInfo) func() {
	return func() {}
}

// Option configures a profiler.
type Option func(*profiler)

func (p *profiler) applyConfigs(opts ...Option) {
	for _, opt := range opts {
		opt(p)
	}
}

// SkipFilter reports whether calls of a function are left out of a
// profile.
type SkipFilter func(fn *lang.FnInfo) bool

// WithSkipFilter sets the filter for traced functions.
func WithSkipFilter(skipFilter SkipFilter) Option {
	return func(p *profiler) {
		p.skipFilter = skipFilter
	}
}

// WithNamespaceFilter traces only functions defined in the named
// namespaces.
func WithNamespaceFilter(namespaces ...string) Option {
	keep := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		keep[ns] = true
	}
	return WithSkipFilter(func(fn *lang.FnInfo) bool {
		return !keep[fn.NS]
	})
}

// WithNameFilter traces only functions whose qualified source name, such
// as user/my-fn, matches re.
func WithNameFilter(re *regexp.Regexp) Option {
	return WithSkipFilter(func(fn *lang.FnInfo) bool {
		return !re.MatchString(sourceName(fn))
	})
}

// FunLabeler provides an alternative label for a function in a profile.
// An empty label falls back to the qualified name.
type FunLabeler func(fn *lang.FnInfo) string

// WithFunLabeler sets the labeler for traced functions.
func WithFunLabeler(funLabeler FunLabeler) Option {
	return func(p *profiler) {
		p.funLabeler = funLabeler
	}
}

// Function classes are named ns$name__N with the name munged.
var unitNameRegExp = regexp.MustCompile(`^(?:.*\$)?([^$]+?)(?:__\d+)?$`)

var demunger = strings.NewReplacer(
	"_QMARK_", "?",
	"_BANG_", "!",
	"_STAR_", "*",
	"_PLUS_", "+",
	"_GT_", ">",
	"_LT_", "<",
	"_EQ_", "=",
	"_SLASH_", "/",
	"_", "-",
)

// unitName recovers the source name of a function from its class name.
func unitName(name string) string {
	if m := unitNameRegExp.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	return demunger.Replace(name)
}

func sourceName(fn *lang.FnInfo) string {
	return (&lang.FnInfo{NS: fn.NS, Name: unitName(fn.Name)}).String()
}

// prettyFunName returns the label and the plain name of fn.
func (p *profiler) prettyFunName(fn *lang.FnInfo) (string, string) {
	label := ""
	if p.funLabeler != nil {
		label = p.funLabeler(fn)
	}
	if label == "" {
		label = sourceName(fn)
	}
	return label, unitName(fn.Name)
}

func (p *profiler) skipTrace(fn *lang.FnInfo) bool {
	return !p.enabled || fn == nil || p.skipFilter != nil && p.skipFilter(fn)
}
