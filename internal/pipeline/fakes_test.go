package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cuivienor/silence-cutter/internal/diagnostics"
	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/runner"
)

type fakeInspector struct {
	mu      sync.Mutex
	info    model.MediaInfo
	err     error
	called  int
	block   bool
	started chan struct{}
}

func (f *fakeInspector) Inspect(ctx context.Context, path string) (model.MediaInfo, error) {
	f.mu.Lock()
	f.called++
	info := f.info
	info.Path = path
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return model.MediaInfo{}, fmt.Errorf("ffprobe: %w", runner.ErrCancelled)
	}
	return info, f.err
}

func (f *fakeInspector) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

// fakePreprocessor writes its intermediate file like ffmpeg would
type fakePreprocessor struct {
	mu      sync.Mutex
	called  int
	err     error
	block   bool
	started chan struct{}
}

func (f *fakePreprocessor) IntermediatePath(input string) string {
	return input + ".tmp.mp4"
}

func (f *fakePreprocessor) Run(ctx context.Context, cfg model.JobConfig, info model.MediaInfo, rep model.StageReporter) (model.StageResult, error) {
	f.mu.Lock()
	f.called++
	f.mu.Unlock()

	out := f.IntermediatePath(cfg.InputPath)
	res := model.StageResult{Stage: model.StagePreprocess, OutputPath: out}
	if err := os.WriteFile(out, []byte("normalized"), 0644); err != nil {
		return res, err
	}
	rep.Line("frame=1 time=00:00:01.00")
	rep.Progress(50)

	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		res.ExitCode = -1
		return res, fmt.Errorf("ffmpeg: %w", runner.ErrCancelled)
	}
	if f.err != nil {
		res.ExitCode = 1
		res.Output = "Invalid data found when processing input\n"
		return res, &model.StageError{
			Stage:  model.StagePreprocess,
			Kind:   model.ErrPreprocessFailed,
			Output: res.Output,
			Err:    f.err,
		}
	}
	return res, nil
}

func (f *fakePreprocessor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

// fakeRemover writes (part of) the output file like auto-editor would
type fakeRemover struct {
	mu       sync.Mutex
	called   int
	input    string
	err      error
	block    bool
	noOutput bool
	started  chan struct{}
}

func (f *fakeRemover) Run(ctx context.Context, cfg model.JobConfig, input string, rep model.StageReporter) (model.StageResult, error) {
	f.mu.Lock()
	f.called++
	f.input = input
	f.mu.Unlock()

	res := model.StageResult{Stage: model.StageRemoveSilence, OutputPath: cfg.OutputPath}
	if !f.noOutput {
		if err := os.WriteFile(cfg.OutputPath, []byte("partial"), 0644); err != nil {
			return res, err
		}
	}
	rep.Progress(10)

	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return res, fmt.Errorf("auto-editor: %w", runner.ErrCancelled)
	}
	if f.err != nil {
		res.ExitCode = 1
		res.Output = "Error! something broke\n"
		return res, &model.StageError{
			Stage:  model.StageRemoveSilence,
			Kind:   model.ErrSilenceRemovalFailed,
			Output: res.Output,
			Err:    f.err,
		}
	}
	return res, nil
}

func (f *fakeRemover) snapshot() (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called, f.input
}

type fakeChecker struct {
	missing []string
}

func (f *fakeChecker) CheckTools(executables ...string) error {
	var missing []string
	for _, exe := range executables {
		for _, m := range f.missing {
			if exe == m {
				missing = append(missing, exe)
			}
		}
	}
	if len(missing) > 0 {
		return &diagnostics.ToolNotFoundError{Tools: missing}
	}
	return nil
}

func (f *fakeChecker) CheckWritableDir(dir string) error {
	return nil
}

type testEnv struct {
	dir          string
	inspector    *fakeInspector
	preprocessor *fakePreprocessor
	remover      *fakeRemover
	checker      *fakeChecker
	orch         *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		dir:          t.TempDir(),
		inspector:    &fakeInspector{info: model.MediaInfo{VideoCodec: "h264", AudioCodec: "aac", Duration: 2}},
		preprocessor: &fakePreprocessor{},
		remover:      &fakeRemover{},
		checker:      &fakeChecker{},
	}
	env.orch = New(Deps{
		Inspector:    env.inspector,
		Preprocessor: env.preprocessor,
		Remover:      env.remover,
		Checker:      env.checker,
	})
	return env
}

// config returns a valid job config with an existing input file
func (e *testEnv) config(t *testing.T) model.JobConfig {
	t.Helper()
	input := filepath.Join(e.dir, "talk.mov")
	if err := os.WriteFile(input, []byte("source"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := model.DefaultJobConfig()
	cfg.InputPath = input
	cfg.OutputPath = filepath.Join(e.dir, "talk_cleaned.mp4")
	return cfg
}

// drain collects every event until the channel closes
func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("event channel not closed; got %d events", len(out))
			return out
		}
	}
}

func statesOf(events []Event) []model.JobState {
	var states []model.JobState
	for _, ev := range events {
		if ev.Type == EventState {
			states = append(states, ev.State)
		}
	}
	return states
}

func resultOf(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events")
	}
	last := events[len(events)-1]
	if last.Type != EventResult {
		t.Fatalf("last event = %s, want result", last.Type)
	}
	return last
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
