// Package runner starts external tools, streams their combined output and
// terminates them cooperatively on cancellation.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var (
	// ErrToolNotFound is returned when the executable cannot be resolved
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolFailed is matched by every *ExitError
	ErrToolFailed = errors.New("tool failed")
	// ErrCancelled is returned by Wait after Terminate or context cancellation
	ErrCancelled = errors.New("cancelled")
)

// terminateGrace is how long a terminated process gets before it is killed
const terminateGrace = 5 * time.Second

// maxLineSize bounds a single output line
const maxLineSize = 1024 * 1024

// ExitError reports a tool that exited non-zero
type ExitError struct {
	Tool   string
	Code   int
	Output string // captured combined output
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// Is makes errors.Is(err, ErrToolFailed) match
func (e *ExitError) Is(target error) bool {
	return target == ErrToolFailed
}

// LineFunc receives each output line as it is produced
type LineFunc func(line string)

// Result is what a finished process resolved with
type Result struct {
	Tool      string
	Args      []string
	ExitCode  int
	Output    string
	Cancelled bool
}

// Runner starts external tools
type Runner struct {
	// execCommand allows injection of command execution for testing
	execCommand func(name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
}

// New creates a runner that executes real processes
func New() *Runner {
	return &Runner{
		execCommand: exec.Command,
		lookPath:    exec.LookPath,
	}
}

// LookPath resolves a tool to an executable path.
// Missing executables are reported as ErrToolNotFound.
func (r *Runner) LookPath(tool string) (string, error) {
	path, err := r.lookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, tool)
	}
	return path, nil
}

// Run starts a tool and waits for it to exit
func (r *Runner) Run(ctx context.Context, tool string, args []string, onLine LineFunc) (Result, error) {
	p, err := r.Start(ctx, tool, args, onLine)
	if err != nil {
		return Result{Tool: tool, Args: args, ExitCode: -1}, err
	}
	return p.Wait()
}

// Start launches a tool with stdout and stderr merged. Lines are delivered
// to onLine from a background goroutine until the process exits.
// Cancelling ctx terminates the process.
func (r *Runner) Start(ctx context.Context, tool string, args []string, onLine LineFunc) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", tool, ErrCancelled)
	}

	path, err := r.LookPath(tool)
	if err != nil {
		return nil, err
	}

	cmd := r.execCommand(path, args...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, tool)
		}
		return nil, fmt.Errorf("failed to start %s: %w", tool, err)
	}

	p := &Process{
		tool: tool,
		args: args,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go p.collect(stdout, onLine)
	go func() {
		select {
		case <-ctx.Done():
			p.Terminate()
		case <-p.done:
		}
	}()

	return p, nil
}

// Process is an owned handle on a running tool
type Process struct {
	tool string
	args []string
	cmd  *exec.Cmd
	done chan struct{}

	mu        sync.Mutex
	cancelled bool
	output    bytes.Buffer
	result    Result
	err       error
}

// Tool returns the tool name the process was started with
func (p *Process) Tool() string {
	return p.tool
}

// PID returns the operating-system process ID
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Terminate asks the process to stop. It is killed if it has not exited
// after a grace period. Calling Terminate on a finished process is a no-op.
func (p *Process) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return
	default:
	}
	if p.cancelled {
		return
	}
	p.cancelled = true

	_ = signalTerminate(p.cmd)
	time.AfterFunc(terminateGrace, func() {
		select {
		case <-p.done:
		default:
			_ = signalKill(p.cmd)
		}
	})
}

// Done is closed once the process has exited and its output is drained
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits
func (p *Process) Wait() (Result, error) {
	<-p.done
	return p.result, p.err
}

// collect drains output, then reaps the process
func (p *Process) collect(stdout io.Reader, onLine LineFunc) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" {
			continue
		}
		p.mu.Lock()
		p.output.WriteString(line)
		p.output.WriteByte('\n')
		p.mu.Unlock()
		if onLine != nil {
			onLine(line)
		}
	}
	// Drain anything left after a scanner error so the child never blocks on a full pipe
	_, _ = io.Copy(io.Discard, stdout)

	waitErr := p.cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	result := Result{
		Tool:      p.tool,
		Args:      p.args,
		Output:    p.output.String(),
		Cancelled: p.cancelled,
	}

	switch {
	case waitErr == nil:
		result.ExitCode = 0
	case p.cancelled:
		result.ExitCode = exitCode(waitErr)
		p.err = fmt.Errorf("%s: %w", p.tool, ErrCancelled)
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			p.err = &ExitError{Tool: p.tool, Code: result.ExitCode, Output: result.Output}
		} else {
			result.ExitCode = -1
			p.err = fmt.Errorf("%s failed: %w", p.tool, waitErr)
		}
	}

	p.result = result
	close(p.done)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// scanLines splits on \n, \r\n and bare \r. ffmpeg rewrites its progress
// line with \r, so splitting on it lets progress stream.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Might be the first half of \r\n
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
