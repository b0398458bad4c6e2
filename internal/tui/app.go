package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cuivienor/silence-cutter/internal/diagnostics"
	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/pipeline"
)

// inspectDelay debounces inspection while the input path is being typed
const inspectDelay = 300 * time.Millisecond

// View represents the current view
type View int

const (
	ViewForm View = iota
	ViewConfirmOverwrite
	ViewJob
)

// Pipeline runs silence-removal jobs
type Pipeline interface {
	Preflight(cfg model.JobConfig) error
	Start(ctx context.Context, cfg model.JobConfig) (string, <-chan pipeline.Event, error)
	Cancel() error
}

// Inspector reads media metadata for the Media Info box
type Inspector interface {
	Inspect(ctx context.Context, path string) (model.MediaInfo, error)
}

// Options are the collaborators and initial values of the App
type Options struct {
	Pipeline    Pipeline
	Inspector   Inspector
	Defaults    model.JobConfig
	Diagnostics diagnostics.Report
	// Warnings are shown above the form, e.g. bad config values
	Warnings []string
}

// App is the main application model
type App struct {
	pipeline    Pipeline
	inspector   Inspector
	diagnostics diagnostics.Report
	warnings    []string

	currentView View
	form        *Form

	// Inspection of the current input path
	inspectSeq int
	inspecting bool
	info       *model.MediaInfo
	inspectErr error

	// Current or last job
	job        *JobStatus
	events     <-chan pipeline.Event
	pendingCfg model.JobConfig
	quitting   bool

	spinner spinner.Model
	logView viewport.Model

	width  int
	height int
}

// NewApp creates a new application instance
func NewApp(opts Options) *App {
	return &App{
		pipeline:    opts.Pipeline,
		inspector:   opts.Inspector,
		diagnostics: opts.Diagnostics,
		warnings:    opts.Warnings,
		currentView: ViewForm,
		form:        NewForm(opts.Defaults),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(focusedStyle)),
		logView:     viewport.New(80, 12),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.form.Focus(fieldInput)}
	if a.form.InputPath() != "" {
		cmds = append(cmds, a.scheduleInspect())
	}
	return tea.Batch(cmds...)
}

// inspectTickMsg fires after the input path has been still for inspectDelay
type inspectTickMsg struct {
	seq  int
	path string
}

// inspectMsg carries an inspection result
type inspectMsg struct {
	seq  int
	info model.MediaInfo
	err  error
}

// eventMsg wraps one job event
type eventMsg pipeline.Event

// eventsClosedMsg is sent once a job's event channel is closed
type eventsClosedMsg struct{}

// scheduleInspect bumps the inspection sequence so earlier results are
// ignored and inspects the input after a short delay
func (a *App) scheduleInspect() tea.Cmd {
	a.inspectSeq++
	a.info = nil
	a.inspectErr = nil
	path := a.form.InputPath()
	if path == "" || a.inspector == nil {
		a.inspecting = false
		return nil
	}
	a.inspecting = true
	seq := a.inspectSeq
	return tea.Tick(inspectDelay, func(time.Time) tea.Msg {
		return inspectTickMsg{seq: seq, path: path}
	})
}

// inspect runs the inspector off the update loop
func (a *App) inspect(seq int, path string) tea.Cmd {
	insp := a.inspector
	return func() tea.Msg {
		info, err := insp.Inspect(context.Background(), path)
		return inspectMsg{seq: seq, info: info, err: err}
	}
}

// waitForEvent reads the next event from a running job
func waitForEvent(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.logView.Width = max(msg.Width-4, 20)
		a.logView.Height = max(msg.Height-14, 5)
		return a, nil

	case inspectTickMsg:
		if msg.seq != a.inspectSeq {
			return a, nil
		}
		return a, a.inspect(msg.seq, msg.path)

	case inspectMsg:
		if msg.seq != a.inspectSeq {
			return a, nil
		}
		a.inspecting = false
		if msg.err != nil {
			a.inspectErr = msg.err
			return a, nil
		}
		info := msg.info
		a.info = &info
		return a, nil

	case eventMsg:
		return a.handleEvent(pipeline.Event(msg))

	case eventsClosedMsg:
		a.events = nil
		if a.quitting {
			return a, tea.Quit
		}
		return a, nil

	case spinner.TickMsg:
		if a.job == nil || !a.job.Active() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.currentView == ViewForm {
		_, cmd := a.form.update(msg)
		return a, cmd
	}
	return a, nil
}

// handleKeyPress handles keyboard input
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if a.jobActive() {
			a.quitting = true
			a.cancelJob()
			return a, nil
		}
		return a, tea.Quit
	}

	switch a.currentView {
	case ViewConfirmOverwrite:
		return a.handleConfirmKey(msg)
	case ViewJob:
		return a.handleJobKey(msg)
	default:
		return a.handleFormKey(msg)
	}
}

func (a *App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := a.form
	focus := f.Focused()

	switch msg.String() {
	case "tab", "down":
		return a, f.Focus(focus + 1)

	case "shift+tab", "up":
		return a, f.Focus(focus - 1)

	case "ctrl+s":
		return a, a.startJob(false)

	case "enter":
		if focus == fieldStart {
			return a, a.startJob(false)
		}
		return a, f.Focus(focus + 1)

	case "left", "right":
		if focus.isPathField() {
			break
		}
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		f.Adjust(delta)
		return a, nil

	case " ":
		if !focus.isTextField() {
			f.Adjust(1)
			return a, nil
		}

	case "esc", "q":
		if !focus.isTextField() {
			return a, tea.Quit
		}
	}

	if !focus.isTextField() {
		return a, nil
	}
	inputChanged, cmd := f.update(msg)
	if inputChanged {
		return a, tea.Batch(cmd, a.scheduleInspect())
	}
	return a, cmd
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return a, a.launch(a.pendingCfg)
	case "n", "N", "esc", "q":
		a.currentView = ViewForm
		a.form.err = ""
	}
	return a, nil
}

func (a *App) handleJobKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.jobActive() {
		switch msg.String() {
		case "esc", "x":
			a.cancelJob()
			return a, nil
		}
		var cmd tea.Cmd
		a.logView, cmd = a.logView.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "enter", "esc", "n":
		a.currentView = ViewForm
		return a, a.form.Focus(fieldInput)
	case "q":
		return a, tea.Quit
	}
	var cmd tea.Cmd
	a.logView, cmd = a.logView.Update(msg)
	return a, cmd
}

// startJob validates the form and either starts the job or asks to
// overwrite an existing output file
func (a *App) startJob(overwriteConfirmed bool) tea.Cmd {
	f := a.form
	f.err = ""

	if a.diagnostics.HasFailures {
		f.err = fmt.Sprintf("Cannot start: %v", a.diagnostics.Err())
		return nil
	}
	cfg, err := f.JobConfig()
	if err != nil {
		f.err = userMessage(err)
		return nil
	}
	if err := a.pipeline.Preflight(cfg); err != nil {
		f.err = userMessage(err)
		return nil
	}
	if !overwriteConfirmed && pipeline.OutputExists(cfg) {
		a.pendingCfg = cfg
		a.currentView = ViewConfirmOverwrite
		return nil
	}
	return a.launch(cfg)
}

// launch hands cfg to the pipeline and switches to the job view
func (a *App) launch(cfg model.JobConfig) tea.Cmd {
	id, events, err := a.pipeline.Start(context.Background(), cfg)
	if err != nil {
		a.currentView = ViewForm
		a.form.err = userMessage(err)
		return nil
	}

	a.job = NewJobStatus(id)
	a.events = events
	a.currentView = ViewJob
	a.logView.SetContent("")
	return tea.Batch(waitForEvent(events), a.spinner.Tick)
}

func (a *App) handleEvent(ev pipeline.Event) (tea.Model, tea.Cmd) {
	if a.job != nil && a.job.Apply(ev) {
		a.logView.SetContent(a.job.LogText())
		a.logView.GotoBottom()
	}
	if a.job != nil && ev.Type == pipeline.EventInfo && a.info == nil {
		info := ev.Info
		a.info = &info
	}
	if a.events == nil {
		return a, nil
	}
	return a, waitForEvent(a.events)
}

func (a *App) jobActive() bool {
	return a.job != nil && a.job.Active()
}

func (a *App) cancelJob() {
	if err := a.pipeline.Cancel(); err != nil && !errors.Is(err, pipeline.ErrNoRunningJob) {
		a.job.appendLog("ERROR: " + err.Error())
		a.logView.SetContent(a.job.LogText())
		return
	}
	a.job.appendLog("Cancelling...")
	a.logView.SetContent(a.job.LogText())
	a.logView.GotoBottom()
}

// userMessage strips the error kind prefix that users don't need to read
func userMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, model.ErrInvalidConfiguration) {
		msg = strings.TrimPrefix(msg, model.ErrInvalidConfiguration.Error()+": ")
	}
	return msg
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Silence Cutter"))
	b.WriteString("\n")

	switch a.currentView {
	case ViewConfirmOverwrite:
		b.WriteString(a.renderConfirm())
	case ViewJob:
		b.WriteString(a.renderJob())
	default:
		b.WriteString(a.renderForm())
	}
	return b.String()
}

func (a *App) renderForm() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Remove silent parts from a video with auto-editor"))
	b.WriteString("\n")

	if banner := a.renderBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	b.WriteString(a.form.render(!a.diagnostics.HasFailures))
	b.WriteString(a.renderMediaInfo())
	b.WriteString(helpStyle.Render("[Tab/↑↓] Move  [←/→/Space] Change  [Enter] Next/Start  [Ctrl+S] Start  [Ctrl+C] Quit"))
	return b.String()
}

func (a *App) renderBanner() string {
	var lines []string
	if a.diagnostics.HasFailures {
		lines = append(lines, errorStyle.Render("Required tools are missing:"))
		for _, item := range a.diagnostics.Items {
			if item.Status != diagnostics.StatusFail {
				continue
			}
			lines = append(lines, fmt.Sprintf("  %s %s", statusFailed.String(), item.Message))
			if item.Hint != "" {
				lines = append(lines, mutedItemStyle.Render("    "+item.Hint))
			}
		}
	}
	for _, w := range a.warnings {
		lines = append(lines, warningStyle.Render("Config: "+w))
	}
	if len(lines) == 0 {
		return ""
	}
	style := boxStyle
	if a.diagnostics.HasFailures {
		style = bannerStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (a *App) renderMediaInfo() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Media Info"))
	b.WriteString("\n")

	switch {
	case a.inspecting:
		b.WriteString(mutedItemStyle.Render("  Inspecting..."))
		b.WriteString("\n")
	case a.inspectErr != nil:
		b.WriteString(warningStyle.Render("  " + a.inspectErr.Error()))
		b.WriteString("\n")
	case a.info == nil:
		b.WriteString(mutedItemStyle.Render("  Select a video to see its details"))
		b.WriteString("\n")
	default:
		b.WriteString(boxStyle.Render(renderInfoLines(*a.info)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderInfoLines(info model.MediaInfo) string {
	lines := []string{
		fmt.Sprintf("Format:     %s", info.FormatString()),
		fmt.Sprintf("Video:      %s, %s", info.CodecString(), info.Resolution()),
		fmt.Sprintf("Audio:      %s", info.AudioString()),
		fmt.Sprintf("Duration:   %s", info.DurationString()),
		fmt.Sprintf("Bitrate:    %s", info.BitrateString()),
	}
	if info.FPS > 0 {
		fps := fmt.Sprintf("FPS:        %.2f", info.FPS)
		if info.VariableFrameRate {
			fps += " (variable)"
		}
		lines = append(lines, fps)
	}
	if hints := info.PreprocessHints(); len(hints) > 0 {
		lines = append(lines, "", warningStyle.Render("Pre-processing recommended:"))
		for _, h := range hints {
			lines = append(lines, warningStyle.Render("  • "+h))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderConfirm() string {
	var b strings.Builder
	b.WriteString(warningStyle.Render("Output file already exists:"))
	b.WriteString("\n\n  ")
	b.WriteString(a.pendingCfg.OutputPath)
	b.WriteString("\n\n")
	b.WriteString("Overwrite it?")
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("[y] Overwrite  [n/Esc] Back"))
	return b.String()
}

func (a *App) renderJob() string {
	var b strings.Builder
	job := a.job
	if job == nil {
		return ""
	}

	icon := StatusIcon(job.State)
	if job.Active() {
		icon = a.spinner.View()
	}
	b.WriteString(fmt.Sprintf("%s %s", icon, job.State.DisplayName()))
	if job.Active() {
		b.WriteString(mutedItemStyle.Render(fmt.Sprintf("  (%s)", job.Stage.Tool())))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %3.0f%%\n", RenderBar(int(job.Percent), 100, 40), job.Percent))

	b.WriteString(sectionHeaderStyle.Render("Log"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(a.logView.View()))
	b.WriteString("\n")

	if res := job.Result; res != nil {
		switch res.State {
		case model.JobStateSucceeded:
			b.WriteString(successStyle.Render("Video saved to " + res.OutputPath))
		case model.JobStateFailed:
			b.WriteString(errorStyle.Render("Failed: " + res.Message))
		case model.JobStateCancelled:
			b.WriteString(warningStyle.Render("Cancelled"))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("[Enter] Back to form  [↑/↓] Scroll log  [q] Quit"))
		return b.String()
	}
	b.WriteString(helpStyle.Render("[Esc/x] Cancel  [↑/↓] Scroll log  [Ctrl+C] Cancel and quit"))
	return b.String()
}
