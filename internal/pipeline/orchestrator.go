// Package pipeline sequences inspection, preprocessing and silence removal
// for one job at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/runner"
)

var (
	// ErrJobAlreadyRunning is returned when starting a second active job
	ErrJobAlreadyRunning = errors.New("job already running")
	// ErrNoRunningJob is returned when cancel is requested with nothing active
	ErrNoRunningJob = errors.New("no running job")
)

// Inspector reads media metadata
type Inspector interface {
	Inspect(ctx context.Context, path string) (model.MediaInfo, error)
}

// Preprocessor normalizes the input into an intermediate file
type Preprocessor interface {
	IntermediatePath(input string) string
	Run(ctx context.Context, cfg model.JobConfig, info model.MediaInfo, rep model.StageReporter) (model.StageResult, error)
}

// Remover cuts silence from a video into cfg.OutputPath
type Remover interface {
	Run(ctx context.Context, cfg model.JobConfig, input string, rep model.StageReporter) (model.StageResult, error)
}

// ToolChecker verifies executables and output directories
type ToolChecker interface {
	CheckTools(executables ...string) error
	CheckWritableDir(dir string) error
}

// Tools names the executables each stage runs
type Tools struct {
	FFprobe    string
	FFmpeg     string
	AutoEditor string
}

// Deps are the collaborators an Orchestrator drives
type Deps struct {
	Inspector    Inspector
	Preprocessor Preprocessor
	Remover      Remover
	Checker      ToolChecker
	Tools        Tools
	Logger       *slog.Logger
	// NewID generates job IDs; defaults to random UUIDs
	NewID func() string
}

// Snapshot is a copy of the current job's status
type Snapshot struct {
	JobID      string
	Config     model.JobConfig
	State      model.JobState
	Stage      model.Stage
	Percent    float64
	Info       model.MediaInfo
	Err        error
	Output     string // captured output of the stage that failed
	StartedAt  time.Time
	FinishedAt time.Time
}

// Orchestrator runs jobs one at a time
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	current Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an idle orchestrator
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Tools.FFprobe == "" {
		deps.Tools.FFprobe = "ffprobe"
	}
	if deps.Tools.FFmpeg == "" {
		deps.Tools.FFmpeg = "ffmpeg"
	}
	if deps.Tools.AutoEditor == "" {
		deps.Tools.AutoEditor = "auto-editor"
	}
	done := make(chan struct{})
	close(done)
	return &Orchestrator{
		deps:    deps,
		logger:  deps.Logger.With("component", "pipeline"),
		current: Snapshot{State: model.JobStateIdle},
		done:    done,
	}
}

// State returns the current job state
func (o *Orchestrator) State() model.JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.State
}

// Current returns a snapshot of the current job
func (o *Orchestrator) Current() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Done is closed when the most recently started job has finished
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// requiredTools lists the executables a job with cfg will run
func (o *Orchestrator) requiredTools(cfg model.JobConfig) []string {
	tools := []string{o.deps.Tools.FFprobe}
	if cfg.Preprocess {
		tools = append(tools, o.deps.Tools.FFmpeg)
	}
	return append(tools, o.deps.Tools.AutoEditor)
}

// Start validates cfg and launches a job in the background. Events are
// delivered on the returned channel, which is closed after the result event.
// A job that is already active is left untouched and ErrJobAlreadyRunning
// is returned.
func (o *Orchestrator) Start(ctx context.Context, cfg model.JobConfig) (string, <-chan Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current.State.IsActive() {
		return "", nil, ErrJobAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	if err := o.deps.Checker.CheckTools(o.requiredTools(cfg)...); err != nil {
		return "", nil, err
	}
	if err := o.preflight(cfg); err != nil {
		return "", nil, err
	}
	if !CanTransition(o.current.State, model.JobStateInspecting) {
		return "", nil, fmt.Errorf("invalid transition: %s -> %s", o.current.State, model.JobStateInspecting)
	}

	id := o.deps.NewID()
	jobCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, eventBuffer)
	done := make(chan struct{})

	o.current = Snapshot{
		JobID:     id,
		Config:    cfg,
		State:     model.JobStateInspecting,
		Stage:     model.StageInspect,
		StartedAt: time.Now(),
	}
	o.cancel = cancel
	o.done = done

	j := &job{
		o:      o,
		id:     id,
		cfg:    cfg,
		events: events,
		logger: o.logger.With("job_id", id),
	}

	go func() {
		defer close(done)
		defer close(events)
		defer cancel()
		j.run(jobCtx)
	}()

	return id, events, nil
}

// Cancel stops the active job. The job reaches the cancelled state once its
// running tool has exited and temporary files are removed.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.current.State.IsActive() || o.cancel == nil {
		return ErrNoRunningJob
	}
	o.logger.Info("cancel requested", "job_id", o.current.JobID)
	o.cancel()
	return nil
}

// job is the state of one run, owned by its goroutine
type job struct {
	o      *Orchestrator
	id     string
	cfg    model.JobConfig
	events chan Event
	logger *slog.Logger

	// priorOutput is the file at the output path before silence removal
	// started, nil when there was none
	priorOutput fs.FileInfo

	seqMu sync.Mutex
	seq   int64
}

// emit sends an event. Unreliable events are dropped if the consumer lags.
func (j *job) emit(ev Event, reliable bool) {
	if ev.State == "" {
		ev.State = j.o.State()
	}
	ev.JobID = j.id
	ev.Timestamp = time.Now().UTC()

	// Sequence numbers follow channel order
	j.seqMu.Lock()
	defer j.seqMu.Unlock()
	ev.Seq = j.seq + 1

	if reliable {
		j.events <- ev
		j.seq = ev.Seq
		return
	}
	select {
	case j.events <- ev:
		j.seq = ev.Seq
	default:
	}
}

func (j *job) setPercent(p float64) {
	j.o.mu.Lock()
	j.o.current.Percent = p
	j.o.mu.Unlock()
}

// transition moves the job to a new state and announces it
func (j *job) transition(to model.JobState, stage model.Stage) {
	j.o.mu.Lock()
	from := j.o.current.State
	if !CanTransition(from, to) {
		j.o.mu.Unlock()
		j.logger.Error("invalid state transition", "from", from, "to", to)
		return
	}
	j.o.current.State = to
	j.o.current.Stage = stage
	j.o.current.Percent = 0
	if to.IsTerminal() {
		j.o.current.FinishedAt = time.Now()
	}
	j.o.mu.Unlock()

	j.logger.Info("job state changed", "from", from, "to", to)
	j.emit(Event{Type: EventState, State: to, Stage: stage}, true)
}

func (j *job) run(ctx context.Context) {
	cfg := j.cfg
	j.logger.Info("job started",
		"input", cfg.InputPath,
		"output", cfg.OutputPath,
		"preprocess", cfg.Preprocess,
		"threshold", cfg.Threshold,
		"margin", cfg.Margin,
	)
	j.emit(Event{Type: EventState, State: model.JobStateInspecting, Stage: model.StageInspect}, true)

	info, err := j.o.deps.Inspector.Inspect(ctx, cfg.InputPath)
	if ctx.Err() != nil {
		j.finish(ctx, model.StageInspect, model.StageResult{}, runner.ErrCancelled, "", false)
		return
	}
	if err != nil {
		msg := fmt.Sprintf("Could not inspect input: %v", err)
		j.logger.Warn("inspection failed", "error", err)
		j.emit(Event{Type: EventWarning, Stage: model.StageInspect, Message: msg}, true)
	} else {
		j.o.mu.Lock()
		j.o.current.Info = info
		j.o.mu.Unlock()
		j.emit(Event{Type: EventInfo, Stage: model.StageInspect, Info: info}, true)
	}

	input := cfg.InputPath
	intermediate := ""
	if cfg.Preprocess {
		j.transition(model.JobStatePreprocessing, model.StagePreprocess)
		intermediate = j.o.deps.Preprocessor.IntermediatePath(cfg.InputPath)
		res, err := j.o.deps.Preprocessor.Run(ctx, cfg, info, stageReporter{job: j, stage: model.StagePreprocess})
		if err != nil || ctx.Err() != nil {
			j.finish(ctx, model.StagePreprocess, res, err, intermediate, false)
			return
		}
		input = res.OutputPath
		if input == "" {
			input = intermediate
		}
	}

	j.transition(model.JobStateRemovingSilence, model.StageRemoveSilence)
	if fi, err := os.Stat(cfg.OutputPath); err == nil {
		j.priorOutput = fi
	}
	res, err := j.o.deps.Remover.Run(ctx, cfg, input, stageReporter{job: j, stage: model.StageRemoveSilence})
	if err == nil && ctx.Err() == nil && !j.outputWritten() {
		err = &model.StageError{
			Stage:   model.StageRemoveSilence,
			Kind:    model.ErrSilenceRemovalFailed,
			Message: "auto-editor exited successfully but wrote no output",
			Output:  res.Output,
			Err:     fs.ErrNotExist,
		}
	}
	j.finish(ctx, model.StageRemoveSilence, res, err, intermediate, true)
}

// finish removes temporary files, then moves the job to its terminal state
func (j *job) finish(ctx context.Context, stage model.Stage, res model.StageResult, err error, intermediate string, removalStarted bool) {
	cancelled := ctx.Err() != nil || errors.Is(err, runner.ErrCancelled)

	if intermediate != "" {
		j.removeFile(intermediate, "intermediate")
	}
	// A file the stage never touched belongs to the user
	if removalStarted && (cancelled || err != nil) && j.outputWritten() {
		j.removeFile(j.cfg.OutputPath, "partial output")
	}

	switch {
	case cancelled:
		j.o.mu.Lock()
		j.o.current.Err = nil
		j.o.mu.Unlock()
		j.transition(model.JobStateCancelled, stage)
		j.emit(Event{Type: EventResult, State: model.JobStateCancelled, Stage: stage, Message: "Cancelled"}, true)

	case err != nil:
		output := res.Output
		var stageErr *model.StageError
		if errors.As(err, &stageErr) && stageErr.Output != "" {
			output = stageErr.Output
		}
		j.o.mu.Lock()
		j.o.current.Err = err
		j.o.current.Output = output
		j.o.mu.Unlock()
		j.logger.Error("job failed", "stage", stage.String(), "exit_code", res.ExitCode, "error", err)
		j.transition(model.JobStateFailed, stage)
		j.emit(Event{
			Type:    EventResult,
			State:   model.JobStateFailed,
			Stage:   stage,
			Message: err.Error(),
			Err:     err,
			Output:  output,
		}, true)

	default:
		j.logger.Info("job succeeded", "output", j.cfg.OutputPath)
		j.transition(model.JobStateSucceeded, stage)
		j.emit(Event{
			Type:       EventResult,
			State:      model.JobStateSucceeded,
			Stage:      stage,
			Message:    "Video saved to " + j.cfg.OutputPath,
			OutputPath: j.cfg.OutputPath,
		}, true)
	}
}

// outputWritten reports whether the output path holds a file that was
// created or modified after silence removal started
func (j *job) outputWritten() bool {
	fi, err := os.Stat(j.cfg.OutputPath)
	if err != nil {
		return false
	}
	if j.priorOutput == nil {
		return true
	}
	return !fi.ModTime().Equal(j.priorOutput.ModTime()) || fi.Size() != j.priorOutput.Size()
}

func (j *job) removeFile(path, what string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		j.logger.Warn("failed to remove "+what, "path", path, "error", err)
		return
	}
	j.logger.Debug("removed "+what, "path", path)
}
