package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cuivienor/silence-cutter/internal/model"
)

// field identifies a form row, in focus order
type field int

const (
	fieldInput field = iota
	fieldOutput
	fieldThreshold
	fieldMargin
	fieldPreprocess
	fieldPreset
	fieldHardware
	fieldPreserveQuality
	fieldStart
	fieldCount
)

// Step sizes and bounds for ←/→ adjustment. Typed values are only checked
// by JobConfig.Validate.
const (
	thresholdStep = 1.0
	maxThreshold  = 100.0
	maxMarginStep = 30
)

// Form holds the job options being edited
type Form struct {
	input     textinput.Model
	output    textinput.Model
	threshold textinput.Model
	margin    textinput.Model

	Preprocess      bool
	Preset          model.Preset
	Hardware        model.HardwareEncoder
	PreserveQuality bool

	focus field
	// outputEdited stops the output path following the input path
	outputEdited bool
	err          string
}

func newTextField(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.Width = width
	ti.CharLimit = 4096
	return ti
}

// NewForm creates a form filled with defaults
func NewForm(defaults model.JobConfig) *Form {
	f := &Form{
		input:           newTextField("/path/to/video.mp4", 60),
		output:          newTextField("<input>_cleaned.mp4", 60),
		threshold:       newTextField("4", 6),
		margin:          newTextField("6", 6),
		Preprocess:      defaults.Preprocess,
		Preset:          defaults.Preset,
		Hardware:        defaults.Hardware,
		PreserveQuality: defaults.PreserveQuality,
	}
	f.threshold.SetValue(formatThreshold(defaults.Threshold))
	f.margin.SetValue(strconv.Itoa(defaults.Margin))
	if defaults.InputPath != "" {
		f.input.SetValue(defaults.InputPath)
		f.input.CursorEnd()
	}
	if defaults.OutputPath != "" {
		f.output.SetValue(defaults.OutputPath)
		f.outputEdited = true
	} else {
		f.output.SetValue(model.DefaultOutputPath(defaults.InputPath))
	}
	f.input.Focus()
	return f
}

// InputPath returns the trimmed input path
func (f *Form) InputPath() string {
	return strings.TrimSpace(f.input.Value())
}

// OutputPath returns the trimmed output path
func (f *Form) OutputPath() string {
	return strings.TrimSpace(f.output.Value())
}

// JobConfig builds a job from the form, parsing the numeric fields
func (f *Form) JobConfig() (model.JobConfig, error) {
	threshold, err := strconv.ParseFloat(strings.TrimSpace(f.threshold.Value()), 64)
	if err != nil {
		return model.JobConfig{}, model.Invalid("threshold must be a number")
	}
	margin, err := strconv.Atoi(strings.TrimSpace(f.margin.Value()))
	if err != nil {
		return model.JobConfig{}, model.Invalid("margin must be a whole number of frames")
	}

	cfg := model.JobConfig{
		InputPath:       f.InputPath(),
		OutputPath:      f.OutputPath(),
		Threshold:       threshold,
		Margin:          margin,
		Preprocess:      f.Preprocess,
		Preset:          f.Preset,
		Hardware:        f.Hardware,
		PreserveQuality: f.PreserveQuality,
	}
	return cfg, cfg.Validate()
}

// Focus moves focus to fl, wrapping around the ends
func (f *Form) Focus(fl field) tea.Cmd {
	fl = (fl%fieldCount + fieldCount) % fieldCount
	f.focus = fl
	var cmd tea.Cmd
	for _, entry := range []struct {
		fl field
		ti *textinput.Model
	}{
		{fieldInput, &f.input},
		{fieldOutput, &f.output},
		{fieldThreshold, &f.threshold},
		{fieldMargin, &f.margin},
	} {
		if entry.fl == fl {
			cmd = entry.ti.Focus()
		} else {
			entry.ti.Blur()
		}
	}
	return cmd
}

// Focused returns the focused field
func (f *Form) Focused() field {
	return f.focus
}

// Adjust changes the focused option by delta steps. Text path fields are
// not affected.
func (f *Form) Adjust(delta int) {
	switch f.focus {
	case fieldThreshold:
		v, err := strconv.ParseFloat(strings.TrimSpace(f.threshold.Value()), 64)
		if err != nil || math.IsNaN(v) {
			v = model.DefaultThreshold
		}
		v += float64(delta) * thresholdStep
		v = min(max(v, 0), maxThreshold)
		f.threshold.SetValue(formatThreshold(v))
		f.threshold.CursorEnd()
	case fieldMargin:
		v, err := strconv.Atoi(strings.TrimSpace(f.margin.Value()))
		if err != nil {
			v = model.DefaultMargin
		}
		v = min(max(v+delta, 0), maxMarginStep)
		f.margin.SetValue(strconv.Itoa(v))
		f.margin.CursorEnd()
	case fieldPreprocess:
		f.Preprocess = !f.Preprocess
	case fieldPreserveQuality:
		f.PreserveQuality = !f.PreserveQuality
	case fieldPreset:
		f.Preset = cycle(model.Presets, f.Preset, delta)
	case fieldHardware:
		f.Hardware = cycle(model.HardwareEncoders, f.Hardware, delta)
	}
}

// SetInputPath replaces the input path. The output follows it unless the
// user has edited the output.
func (f *Form) SetInputPath(path string) {
	f.input.SetValue(path)
	f.input.CursorEnd()
	f.syncOutput()
}

func (f *Form) syncOutput() {
	if f.outputEdited {
		return
	}
	f.output.SetValue(model.DefaultOutputPath(f.InputPath()))
	f.output.CursorEnd()
}

// update forwards a message to the focused text field and reports
// whether the input path changed
func (f *Form) update(msg tea.Msg) (inputChanged bool, cmd tea.Cmd) {
	switch f.focus {
	case fieldInput:
		before := f.input.Value()
		f.input, cmd = f.input.Update(msg)
		if f.input.Value() != before {
			f.syncOutput()
			return true, cmd
		}
	case fieldOutput:
		before := f.output.Value()
		f.output, cmd = f.output.Update(msg)
		if f.output.Value() != before {
			// Clearing the field hands it back to the suggestion
			f.outputEdited = strings.TrimSpace(f.output.Value()) != ""
		}
	case fieldThreshold:
		f.threshold, cmd = f.threshold.Update(msg)
	case fieldMargin:
		f.margin, cmd = f.margin.Update(msg)
	}
	return false, cmd
}

// isTextField returns true for fields that accept typed characters
func (fl field) isTextField() bool {
	return fl <= fieldMargin
}

// isPathField returns true for fields where ←/→ move the cursor
func (fl field) isPathField() bool {
	return fl == fieldInput || fl == fieldOutput
}

func cycle[T comparable](values []T, current T, delta int) T {
	idx := 0
	for i, v := range values {
		if v == current {
			idx = i
			break
		}
	}
	n := len(values)
	return values[((idx+delta)%n+n)%n]
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// render draws the form rows
func (f *Form) render(startEnabled bool) string {
	var b strings.Builder

	row := func(fl field, label, value string) {
		prefix := "  "
		l := labelStyle.Render(label)
		if f.focus == fl {
			prefix = focusedStyle.Render("> ")
			l = focusedStyle.Width(labelWidth).Render(label)
		}
		b.WriteString(prefix + l + value + "\n")
	}

	row(fieldInput, "Input video", f.input.View())
	row(fieldOutput, "Output video", f.output.View())
	row(fieldThreshold, "Threshold (%)", f.threshold.View()+mutedItemStyle.Render("  ←/→ adjust, lower = more sensitive"))
	row(fieldMargin, "Margin (frames)", f.margin.View()+mutedItemStyle.Render("  ←/→ adjust, kept around loud parts"))
	row(fieldPreprocess, "Pre-process", checkbox(f.Preprocess)+mutedItemStyle.Render("  normalize with ffmpeg first"))

	optionStyle := func(on bool) string {
		if on {
			return ""
		}
		return mutedItemStyle.Render("  (pre-process only)")
	}
	row(fieldPreset, "Preset", fmt.Sprintf("‹ %s ›", f.Preset)+optionStyle(f.Preprocess))
	row(fieldHardware, "Hardware", fmt.Sprintf("‹ %s ›", f.Hardware.DisplayName())+optionStyle(f.Preprocess))
	row(fieldPreserveQuality, "Preserve quality", checkbox(f.PreserveQuality)+optionStyle(f.Preprocess))

	b.WriteString("\n")
	button := buttonStyle
	if f.focus == fieldStart {
		button = activeButtonStyle
	}
	label := "Remove Silence"
	if !startEnabled {
		label = "Remove Silence (unavailable)"
		button = buttonStyle.Foreground(colorMuted)
	}
	b.WriteString("  " + button.Render(label) + "\n")

	if f.err != "" {
		b.WriteString("\n" + errorStyle.Render(f.err) + "\n")
	}
	return b.String()
}
