package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cuivienor/silence-cutter/internal/model"
)

const labelWidth = 18

// Colors
var (
	colorPrimary   = lipgloss.Color("39")  // Blue
	colorSecondary = lipgloss.Color("241") // Gray
	colorSuccess   = lipgloss.Color("42")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
	colorError     = lipgloss.Color("196") // Red
	colorMuted     = lipgloss.Color("240") // Dark gray
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			MarginBottom(1)

	// Status styles
	statusCompleted = lipgloss.NewStyle().
			Foreground(colorSuccess).
			SetString("✓")

	statusInProgress = lipgloss.NewStyle().
				Foreground(colorWarning).
				SetString("●")

	statusFailed = lipgloss.NewStyle().
			Foreground(colorError).
			SetString("✗")

	statusPending = lipgloss.NewStyle().
			Foreground(colorMuted).
			SetString("○")

	// Form styles
	focusedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Width(labelWidth).
			Foreground(lipgloss.Color("252"))

	mutedItemStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("252")).
			Background(colorSecondary)

	activeButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("231")).
				Background(colorPrimary).
				Bold(true)

	// Bar chart styles
	barFull = lipgloss.NewStyle().
		Foreground(colorSuccess).
		SetString("█")

	barEmpty = lipgloss.NewStyle().
			Foreground(colorMuted).
			SetString("░")

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(0, 1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				MarginTop(1)
)

// StatusIcon returns the icon for a job state
func StatusIcon(state model.JobState) string {
	switch {
	case state == model.JobStateSucceeded:
		return statusCompleted.String()
	case state.IsActive():
		return statusInProgress.String()
	case state == model.JobStateFailed, state == model.JobStateCancelled:
		return statusFailed.String()
	default:
		return statusPending.String()
	}
}

// RenderBar creates a progress bar
func RenderBar(filled, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	if filled < 0 {
		filled = 0
	}
	filledWidth := (filled * width) / total
	if filledWidth > width {
		filledWidth = width
	}

	var b strings.Builder
	for i := 0; i < filledWidth; i++ {
		b.WriteString(barFull.String())
	}
	for i := filledWidth; i < width; i++ {
		b.WriteString(barEmpty.String())
	}
	return b.String()
}
