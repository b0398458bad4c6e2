package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cuivienor/silence-cutter/internal/diagnostics"
	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/pipeline"
)

func TestJobStatus_Apply(t *testing.T) {
	s := NewJobStatus("job-1")

	events := []pipeline.Event{
		{Seq: 1, JobID: "job-1", Type: pipeline.EventState, State: model.JobStateInspecting, Stage: model.StageInspect},
		{Seq: 2, JobID: "job-1", Type: pipeline.EventInfo, Info: model.MediaInfo{VideoCodec: "h264"}},
		{Seq: 3, JobID: "job-1", Type: pipeline.EventState, State: model.JobStatePreprocessing, Stage: model.StagePreprocess},
		{Seq: 4, JobID: "job-1", Type: pipeline.EventProgress, Stage: model.StagePreprocess, Percent: 40},
		{Seq: 5, JobID: "job-1", Type: pipeline.EventLog, Stage: model.StagePreprocess, Line: "frame=1"},
		{Seq: 6, JobID: "job-1", Type: pipeline.EventState, State: model.JobStateRemovingSilence, Stage: model.StageRemoveSilence},
	}
	for _, ev := range events {
		s.Apply(ev)
	}

	if s.State != model.JobStateRemovingSilence || s.Stage != model.StageRemoveSilence {
		t.Errorf("state = %s/%s", s.State, s.Stage)
	}
	if s.Percent != 0 {
		t.Errorf("Percent = %v, want reset to 0 on stage change", s.Percent)
	}
	if s.Info == nil || s.Info.VideoCodec != "h264" {
		t.Errorf("Info = %+v", s.Info)
	}
	if !strings.Contains(s.LogText(), "frame=1") {
		t.Errorf("log = %q", s.LogText())
	}
	if !s.Active() {
		t.Error("job should be active before result")
	}

	s.Apply(pipeline.Event{Seq: 7, JobID: "job-1", Type: pipeline.EventProgress, Percent: 250})
	if s.Percent != 100 {
		t.Errorf("Percent = %v, want clamped to 100", s.Percent)
	}

	s.Apply(pipeline.Event{
		Seq: 8, JobID: "job-1", Type: pipeline.EventResult, State: model.JobStateFailed,
		Message: "remove_silence: silence removal failed", Output: "line one\nline two\n",
	})
	if s.Active() {
		t.Error("job should be finished after result")
	}
	if s.State != model.JobStateFailed {
		t.Errorf("State = %s", s.State)
	}
	log := s.LogText()
	if !strings.Contains(log, "ERROR: remove_silence") || !strings.Contains(log, "  line two") {
		t.Errorf("failure output not logged: %q", log)
	}
}

func TestJobStatus_IgnoresOtherJobsAndStaleEvents(t *testing.T) {
	s := NewJobStatus("job-2")

	if s.Apply(pipeline.Event{Seq: 1, JobID: "job-1", Type: pipeline.EventLog, Line: "old"}) {
		t.Error("event from another job applied")
	}
	s.Apply(pipeline.Event{Seq: 5, JobID: "job-2", Type: pipeline.EventLog, Line: "new"})
	if s.Apply(pipeline.Event{Seq: 3, JobID: "job-2", Type: pipeline.EventLog, Line: "late"}) {
		t.Error("out of order event applied")
	}
	if got := s.LogText(); got != "new" {
		t.Errorf("log = %q, want only the new line", got)
	}
}

func TestJobStatus_LogIsBounded(t *testing.T) {
	s := NewJobStatus("job")
	for i := 0; i < maxLogLines+50; i++ {
		s.Apply(pipeline.Event{Type: pipeline.EventLog, Line: "x"})
	}
	if len(s.Log) != maxLogLines {
		t.Errorf("len(Log) = %d, want %d", len(s.Log), maxLogLines)
	}
}

func TestStatusIcon(t *testing.T) {
	if StatusIcon(model.JobStateSucceeded) != statusCompleted.String() {
		t.Error("succeeded should use completed icon")
	}
	if StatusIcon(model.JobStatePreprocessing) != statusInProgress.String() {
		t.Error("active states should use in-progress icon")
	}
	if StatusIcon(model.JobStateIdle) != statusPending.String() {
		t.Error("idle should use pending icon")
	}
}

func TestRenderBar(t *testing.T) {
	if RenderBar(1, 0, 10) != "" {
		t.Error("zero total should render nothing")
	}
	full := RenderBar(100, 100, 4)
	if strings.Count(full, "█") != 4 {
		t.Errorf("full bar = %q", full)
	}
	half := RenderBar(50, 100, 4)
	if strings.Count(half, "█") != 2 || strings.Count(half, "░") != 2 {
		t.Errorf("half bar = %q", half)
	}
}

func TestForm_JobConfig(t *testing.T) {
	f := NewForm(model.DefaultJobConfig())
	f.SetInputPath("/videos/talk.mov")

	cfg, err := f.JobConfig()
	if err != nil {
		t.Fatalf("JobConfig() error = %v", err)
	}
	if cfg.OutputPath != "/videos/talk_cleaned.mp4" {
		t.Errorf("OutputPath = %q, want suggested path", cfg.OutputPath)
	}
	if cfg.Threshold != model.DefaultThreshold || cfg.Margin != model.DefaultMargin {
		t.Errorf("threshold/margin = %v/%v", cfg.Threshold, cfg.Margin)
	}

	f.threshold.SetValue("loud")
	if _, err := f.JobConfig(); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Errorf("expected invalid configuration for bad threshold, got %v", err)
	}
	f.threshold.SetValue("nan")
	if _, err := f.JobConfig(); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Errorf("expected invalid configuration for NaN threshold, got %v", err)
	}
	f.threshold.SetValue("4")
	f.margin.SetValue("1.5")
	if _, err := f.JobConfig(); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Errorf("expected invalid configuration for fractional margin, got %v", err)
	}
}

func TestForm_Adjust(t *testing.T) {
	f := NewForm(model.DefaultJobConfig())

	f.Focus(fieldThreshold)
	f.Adjust(1)
	f.Adjust(1)
	if f.threshold.Value() != "6" {
		t.Errorf("threshold = %q, want 6", f.threshold.Value())
	}
	for i := 0; i < 10; i++ {
		f.Adjust(-1)
	}
	if f.threshold.Value() != "0" {
		t.Errorf("threshold = %q, want clamped to 0", f.threshold.Value())
	}

	f.threshold.SetValue("NaN")
	f.Adjust(1)
	if f.threshold.Value() != "5" {
		t.Errorf("threshold = %q, want NaN replaced by default then stepped", f.threshold.Value())
	}

	f.Focus(fieldMargin)
	f.Adjust(-10)
	if f.margin.Value() != "0" {
		t.Errorf("margin = %q, want 0", f.margin.Value())
	}

	f.Focus(fieldPreset)
	f.Adjust(1)
	if f.Preset != model.PresetQuality {
		t.Errorf("Preset = %s, want quality", f.Preset)
	}
	f.Adjust(2)
	if f.Preset != model.PresetFastest {
		t.Errorf("Preset = %s, want wrap to fastest", f.Preset)
	}

	f.Focus(fieldHardware)
	f.Adjust(-1)
	if f.Hardware != model.HardwareVAAPI {
		t.Errorf("Hardware = %s, want wrap to vaapi", f.Hardware)
	}

	f.Focus(fieldPreprocess)
	f.Adjust(1)
	if f.Preprocess {
		t.Error("Preprocess should toggle off")
	}
}

func TestForm_OutputFollowsInputUntilEdited(t *testing.T) {
	f := NewForm(model.DefaultJobConfig())
	f.SetInputPath("/a/one.mp4")
	if f.OutputPath() != "/a/one_cleaned.mp4" {
		t.Fatalf("OutputPath = %q", f.OutputPath())
	}

	f.Focus(fieldOutput)
	f.update(keyRunes("x"))
	f.SetInputPath("/a/two.mp4")
	if f.OutputPath() != "/a/one_cleaned.mp4x" {
		t.Errorf("edited output should be kept, got %q", f.OutputPath())
	}
}

func TestForm_FocusWraps(t *testing.T) {
	f := NewForm(model.DefaultJobConfig())
	f.Focus(fieldInput - 1)
	if f.Focused() != fieldStart {
		t.Errorf("Focused() = %d, want start", f.Focused())
	}
	f.Focus(fieldStart + 1)
	if f.Focused() != fieldInput {
		t.Errorf("Focused() = %d, want input", f.Focused())
	}
}

// fakePipeline records calls and hands out a caller-controlled event channel
type fakePipeline struct {
	preflightErr error
	startErr     error
	events       chan pipeline.Event
	started      []model.JobConfig
	cancels      int
}

func (p *fakePipeline) Preflight(cfg model.JobConfig) error {
	return p.preflightErr
}

func (p *fakePipeline) Start(ctx context.Context, cfg model.JobConfig) (string, <-chan pipeline.Event, error) {
	if p.startErr != nil {
		return "", nil, p.startErr
	}
	p.started = append(p.started, cfg)
	p.events = make(chan pipeline.Event, 16)
	return "job-1", p.events, nil
}

func (p *fakePipeline) Cancel() error {
	p.cancels++
	return nil
}

type fakeInspector struct {
	info model.MediaInfo
	err  error
}

func (i fakeInspector) Inspect(ctx context.Context, path string) (model.MediaInfo, error) {
	info := i.info
	info.Path = path
	return info, i.err
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// newTestApp returns an app whose form points at an existing input file
func newTestApp(t *testing.T, p *fakePipeline) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "talk.mov")
	os.WriteFile(input, []byte("video"), 0644)

	defaults := model.DefaultJobConfig()
	defaults.InputPath = input
	app := NewApp(Options{
		Pipeline:  p,
		Inspector: fakeInspector{info: model.MediaInfo{VideoCodec: "h264", AudioCodec: "aac"}},
		Defaults:  defaults,
	})
	return app, dir
}

func TestApp_StartRunsJobAndPumpsEvents(t *testing.T) {
	p := &fakePipeline{}
	app, _ := newTestApp(t, p)

	app.form.Focus(fieldStart)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(p.started) != 1 {
		t.Fatalf("Start called %d times, want 1 (form error %q)", len(p.started), app.form.err)
	}
	if app.currentView != ViewJob || cmd == nil {
		t.Fatalf("view = %d, cmd = %v", app.currentView, cmd)
	}

	p.events <- pipeline.Event{Seq: 1, JobID: "job-1", Type: pipeline.EventLog, Line: "hello"}
	msg := waitForEvent(p.events)()
	app.Update(msg)
	if !strings.Contains(app.job.LogText(), "hello") {
		t.Errorf("log = %q", app.job.LogText())
	}

	p.events <- pipeline.Event{Seq: 2, JobID: "job-1", Type: pipeline.EventResult, State: model.JobStateSucceeded, OutputPath: "/out.mp4"}
	close(p.events)
	app.Update(waitForEvent(p.events)())
	if app.jobActive() {
		t.Error("job should be finished")
	}
	if msg := waitForEvent(p.events)(); msg != (eventsClosedMsg{}) {
		t.Errorf("expected eventsClosedMsg, got %T", msg)
	}
	if !strings.Contains(app.View(), "Video saved to /out.mp4") {
		t.Errorf("view missing result:\n%s", app.View())
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if app.currentView != ViewForm {
		t.Errorf("enter after finish should return to the form, view = %d", app.currentView)
	}
}

func TestApp_ExistingOutputAsksToOverwrite(t *testing.T) {
	p := &fakePipeline{}
	app, dir := newTestApp(t, p)
	os.WriteFile(filepath.Join(dir, "talk_cleaned.mp4"), []byte("old"), 0644)

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if app.currentView != ViewConfirmOverwrite {
		t.Fatalf("view = %d, want confirm", app.currentView)
	}
	if len(p.started) != 0 {
		t.Fatal("job started before confirmation")
	}

	app.Update(keyRunes("n"))
	if app.currentView != ViewForm || len(p.started) != 0 {
		t.Fatal("declining should return to the form without starting")
	}

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	app.Update(keyRunes("y"))
	if len(p.started) != 1 || app.currentView != ViewJob {
		t.Errorf("confirming should start the job, started = %d", len(p.started))
	}
}

func TestApp_InvalidConfigurationShownInline(t *testing.T) {
	p := &fakePipeline{preflightErr: model.Invalid("input file does not exist")}
	app, _ := newTestApp(t, p)

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if len(p.started) != 0 {
		t.Fatal("pipeline should not be started on invalid configuration")
	}
	if app.form.err != "input file does not exist" {
		t.Errorf("form error = %q", app.form.err)
	}
	if !strings.Contains(app.View(), "input file does not exist") {
		t.Error("error not rendered")
	}
}

func TestApp_MissingToolsDisableStart(t *testing.T) {
	p := &fakePipeline{}
	app, _ := newTestApp(t, p)
	app.diagnostics = diagnostics.Report{
		HasFailures: true,
		Items: []diagnostics.Item{{
			ID: "tool_auto-editor", Name: "auto-editor", Status: diagnostics.StatusFail,
			Message: "Tool not found: auto-editor", Hint: "Install auto-editor",
		}},
	}

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if len(p.started) != 0 {
		t.Fatal("job started despite missing tools")
	}
	view := app.View()
	if !strings.Contains(view, "Tool not found: auto-editor") || !strings.Contains(view, "unavailable") {
		t.Errorf("banner not rendered:\n%s", view)
	}
}

func TestApp_CancelKeys(t *testing.T) {
	p := &fakePipeline{}
	app, _ := newTestApp(t, p)
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	app.Update(keyRunes("x"))
	if p.cancels != 1 {
		t.Errorf("cancels = %d, want 1", p.cancels)
	}

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if p.cancels != 2 {
		t.Errorf("ctrl+c should cancel the active job, cancels = %d", p.cancels)
	}
	if isQuit(cmd) {
		t.Fatal("should wait for the job to stop before quitting")
	}

	_, cmd = app.Update(eventsClosedMsg{})
	if !isQuit(cmd) {
		t.Error("expected quit once the job's events are closed")
	}
}

func TestApp_StaleInspectionIgnored(t *testing.T) {
	p := &fakePipeline{}
	app, _ := newTestApp(t, p)

	app.scheduleInspect()
	stale := app.inspectSeq
	app.form.SetInputPath("/other.mp4")
	app.scheduleInspect()

	app.Update(inspectMsg{seq: stale, info: model.MediaInfo{VideoCodec: "mpeg2video"}})
	if app.info != nil {
		t.Fatal("stale inspection result applied")
	}

	app.Update(inspectMsg{seq: app.inspectSeq, info: model.MediaInfo{Path: "/other.mp4", VideoCodec: "mpeg2video"}})
	if app.info == nil || app.info.VideoCodec != "mpeg2video" {
		t.Fatalf("info = %+v", app.info)
	}
	if !strings.Contains(app.View(), "Pre-processing recommended") {
		t.Error("preprocess hint not shown")
	}

	app.scheduleInspect()
	app.Update(inspectMsg{seq: app.inspectSeq, err: errors.New("inspection failed: no such file")})
	if !strings.Contains(app.View(), "no such file") {
		t.Error("inspection error should be shown as a warning")
	}
}

func TestApp_TypingInputSchedulesInspection(t *testing.T) {
	p := &fakePipeline{}
	app, _ := newTestApp(t, p)
	before := app.inspectSeq

	_, cmd := app.Update(keyRunes("x"))
	if app.inspectSeq != before+1 {
		t.Errorf("inspectSeq = %d, want %d", app.inspectSeq, before+1)
	}
	if cmd == nil {
		t.Error("expected an inspection command")
	}
	if !strings.HasSuffix(app.form.InputPath(), "talk.movx") {
		t.Errorf("input = %q", app.form.InputPath())
	}
	if want := model.DefaultOutputPath(app.form.InputPath()); app.form.OutputPath() != want {
		t.Errorf("output = %q, want %q", app.form.OutputPath(), want)
	}
}

func TestApp_StartErrorShownOnForm(t *testing.T) {
	p := &fakePipeline{startErr: pipeline.ErrJobAlreadyRunning}
	app, _ := newTestApp(t, p)

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if app.currentView != ViewForm {
		t.Errorf("view = %d, want form", app.currentView)
	}
	if app.form.err != pipeline.ErrJobAlreadyRunning.Error() {
		t.Errorf("form error = %q", app.form.err)
	}
}

func TestApp_QuitFromIdleForm(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Error("ctrl+c on an idle form should quit")
	}
}
