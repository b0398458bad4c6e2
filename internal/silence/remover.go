// Package silence drives auto-editor to cut silent sections out of a video.
package silence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/runner"
)

// ToolRunner runs an external tool to completion
type ToolRunner interface {
	Run(ctx context.Context, tool string, args []string, onLine runner.LineFunc) (runner.Result, error)
}

// systemPaths are preferred over PATH, which often holds an older pip install
var systemPaths = []string{"/usr/bin/auto-editor", "/usr/local/bin/auto-editor"}

// ResolveExecutable picks the auto-editor to run: the configured path if
// set, else a system install, else whatever PATH finds.
func ResolveExecutable(configured string) string {
	if configured != "" {
		return configured
	}
	for _, p := range systemPaths {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return "auto-editor"
}

// BuildArgs returns the auto-editor arguments for one run
func BuildArgs(input, output string, threshold float64, margin int) []string {
	return []string{
		input,
		"-o", output,
		"--edit", "audio:threshold=" + strconv.FormatFloat(threshold, 'f', -1, 64) + "%",
		"--margin", strconv.Itoa(margin) + "f",
		"--no-open",
		"--progress", "machine",
	}
}

// Progress is one machine-readable progress update
type Progress struct {
	Title   string
	Index   float64
	Total   float64
	Percent float64
}

// ParseProgress parses a `--progress machine` line: title~index~total~eta
func ParseProgress(line string) (Progress, bool) {
	parts := strings.Split(strings.TrimSpace(line), "~")
	if len(parts) != 4 {
		return Progress{}, false
	}
	index, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Progress{}, false
	}
	total, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || total <= 0 {
		return Progress{}, false
	}
	pct := index / total * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Progress{Title: parts[0], Index: index, Total: total, Percent: pct}, true
}

var noAudioRe = regexp.MustCompile(`(?i)(no audio|audio stream \S* ?(does not|doesn't) exist|has no audio|audio track.*not found)`)

// IndicatesNoAudio reports whether auto-editor output says the input lacks audio
func IndicatesNoAudio(output string) bool {
	return noAudioRe.MatchString(output)
}

// Remover runs the silence-removal stage
type Remover struct {
	run        ToolRunner
	autoEditor string
}

// NewRemover creates a remover for the given auto-editor executable
func NewRemover(r ToolRunner, autoEditor string) *Remover {
	return &Remover{run: r, autoEditor: ResolveExecutable(autoEditor)}
}

// Executable returns the auto-editor the remover runs
func (r *Remover) Executable() string {
	return r.autoEditor
}

// Run cuts silence from input into cfg.OutputPath. Cancellation is
// returned as runner.ErrCancelled; any other failure wraps
// model.ErrSilenceRemovalFailed.
func (r *Remover) Run(ctx context.Context, cfg model.JobConfig, input string, rep model.StageReporter) (model.StageResult, error) {
	if rep == nil {
		rep = model.DiscardReporter{}
	}

	onLine := func(line string) {
		if p, ok := ParseProgress(line); ok {
			rep.Progress(p.Percent)
			return
		}
		rep.Line(line)
	}

	args := BuildArgs(input, cfg.OutputPath, cfg.Threshold, cfg.Margin)
	result, err := r.run.Run(ctx, r.autoEditor, args, onLine)
	stage := model.StageResult{
		Stage:      model.StageRemoveSilence,
		ExitCode:   result.ExitCode,
		Output:     result.Output,
		OutputPath: cfg.OutputPath,
	}
	if err != nil {
		if errors.Is(err, runner.ErrCancelled) {
			return stage, err
		}
		stageErr := &model.StageError{
			Stage:  model.StageRemoveSilence,
			Kind:   model.ErrSilenceRemovalFailed,
			Output: result.Output,
			Err:    err,
		}
		if IndicatesNoAudio(result.Output) {
			stageErr.Message = "auto-editor failed, check that the video has audio"
			stageErr.Err = fmt.Errorf("%w: %w", model.ErrNoAudioTrack, err)
		}
		return stage, stageErr
	}

	rep.Progress(100)
	return stage, nil
}
