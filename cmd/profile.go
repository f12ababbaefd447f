package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/luthersystems/eclj/lang"
	"github.com/luthersystems/eclj/profiler"
)

// profileSession is an enabled profiler together with the output it must
// flush when the run completes.
type profileSession struct {
	prof lang.Profiler
	file *os.File
	cpu  bool
	done bool
}

// startProfile enables the profiler named kind on rt.  An empty kind
// disables profiling and returns a nil session.
func startProfile(ctx context.Context, rt *lang.Runtime, kind, out string) (*profileSession, error) {
	if kind == "" {
		return nil, nil
	}
	if out == "" {
		out = kind + ".out"
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	s := &profileSession{file: f}
	switch kind {
	case "callgrind":
		s.prof = profiler.NewCallgrindProfiler(rt, f)
	case "pprof":
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpu = true
		s.prof = profiler.NewPprofAnnotator(rt, ctx)
	default:
		_ = f.Close()
		_ = os.Remove(out)
		return nil, fmt.Errorf("unknown profile kind: %q", kind)
	}
	if err := s.prof.Enable(); err != nil {
		s.stop()
		return nil, err
	}
	return s, nil
}

// Complete stops the profiler and closes its output.
func (s *profileSession) Complete() error {
	if s == nil || s.done {
		return nil
	}
	s.done = true
	err := s.prof.Complete()
	s.stop()
	return err
}

func (s *profileSession) stop() {
	if s.cpu {
		pprof.StopCPUProfile()
	}
	// The callgrind profiler closes its own output.
	_ = s.file.Close()
}
