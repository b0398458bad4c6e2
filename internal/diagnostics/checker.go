// Package diagnostics checks that the external tools a job needs are installed.
package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cuivienor/silence-cutter/internal/runner"
)

// Status indicates whether a single check passed
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Item is one check result with an optional hint
type Item struct {
	ID      string
	Name    string
	Status  Status
	Path    string // resolved executable, tool checks only
	Message string
	Hint    string
}

// Report aggregates startup checks
type Report struct {
	GeneratedAt time.Time
	HasFailures bool
	Items       []Item
}

// Missing returns the names of tools that could not be found
func (r Report) Missing() []string {
	var names []string
	for _, item := range r.Items {
		if item.Status == StatusFail && strings.HasPrefix(item.ID, "tool_") {
			names = append(names, item.Name)
		}
	}
	return names
}

// Err returns a ToolNotFoundError when any tool is missing
func (r Report) Err() error {
	if missing := r.Missing(); len(missing) > 0 {
		return &ToolNotFoundError{Tools: missing}
	}
	return nil
}

// ToolNotFoundError lists required executables that are missing
type ToolNotFoundError struct {
	Tools []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", runner.ErrToolNotFound, strings.Join(e.Tools, ", "))
}

// Is makes errors.Is(err, runner.ErrToolNotFound) match
func (e *ToolNotFoundError) Is(target error) bool {
	return target == runner.ErrToolNotFound
}

// Tools names the executables to check. Empty fields use the bare tool name.
type Tools struct {
	FFmpeg     string
	FFprobe    string
	AutoEditor string
}

func (t Tools) withDefaults() Tools {
	if t.FFmpeg == "" {
		t.FFmpeg = "ffmpeg"
	}
	if t.FFprobe == "" {
		t.FFprobe = "ffprobe"
	}
	if t.AutoEditor == "" {
		t.AutoEditor = "auto-editor"
	}
	return t
}

var toolHints = map[string]string{
	"ffmpeg":      "Install ffmpeg (e.g. `apt install ffmpeg`); it is needed for preprocessing.",
	"ffprobe":     "ffprobe ships with ffmpeg; it is needed to inspect input files.",
	"auto-editor": "Install auto-editor (e.g. `pip install auto-editor`); it removes the silence.",
}

// Checker validates external tools and output directories
type Checker struct {
	lookPath   func(string) (string, error)
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report
func (c *Checker) Run(tools Tools) Report {
	tools = tools.withDefaults()
	items := []Item{
		c.checkTool("ffprobe", tools.FFprobe),
		c.checkTool("ffmpeg", tools.FFmpeg),
		c.checkTool("auto-editor", tools.AutoEditor),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == StatusFail {
			hasFailures = true
			break
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// CheckTools returns a *ToolNotFoundError naming every executable that
// cannot be resolved
func (c *Checker) CheckTools(executables ...string) error {
	var missing []string
	for _, exe := range executables {
		if _, err := c.lookPath(exe); err != nil {
			missing = append(missing, exe)
		}
	}
	if len(missing) > 0 {
		return &ToolNotFoundError{Tools: missing}
	}
	return nil
}

// CheckWritableDir verifies that a file can be created in dir
func (c *Checker) CheckWritableDir(dir string) error {
	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", dir)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)
	return nil
}

// checkTool verifies a required CLI executable can be resolved
func (c *Checker) checkTool(name, executable string) Item {
	path, err := c.lookPath(executable)
	if err != nil {
		return Item{
			ID:      "tool_" + name,
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("Tool not found: %s", executable),
			Hint:    toolHints[name],
		}
	}

	return Item{
		ID:      "tool_" + name,
		Name:    name,
		Status:  StatusPass,
		Path:    path,
		Message: fmt.Sprintf("Found at %s", path),
	}
}
