package transcode

import (
	"context"
	"sync"

	"github.com/cuivienor/silence-cutter/internal/runner"
)

type runCall struct {
	tool string
	args []string
}

// fakeRunner records calls and answers them with respond
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runCall
	respond func(tool string, args []string, onLine runner.LineFunc) (runner.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, tool string, args []string, onLine runner.LineFunc) (runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{tool: tool, args: args})
	f.mu.Unlock()
	if f.respond == nil {
		return runner.Result{Tool: tool, Args: args}, nil
	}
	return f.respond(tool, args, onLine)
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingReporter captures everything a stage reports
type recordingReporter struct {
	mu       sync.Mutex
	lines    []string
	progress []float64
	warnings []string
}

func (r *recordingReporter) Line(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recordingReporter) Progress(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) Warning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
