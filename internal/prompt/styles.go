package prompt

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("86")  // Cyan
	colorSuccess = lipgloss.Color("42")  // Green
	colorWarning = lipgloss.Color("214") // Orange
	colorError   = lipgloss.Color("196") // Red
	colorMuted   = lipgloss.Color("240") // Gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(13)

	valueStyle = lipgloss.NewStyle().Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(1, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true).
			MarginTop(1)
)

const (
	iconDatabase = "📦"
	iconWarning  = "⚠"
	iconError    = "✗"
	iconArrow    = "►"
)

func renderHeader(text string) string {
	return headerStyle.Render(iconDatabase + " " + text)
}

func renderField(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func renderOption(selected bool, text string) string {
	if selected {
		return selectedStyle.Render(iconArrow + " " + text)
	}
	return unselectedStyle.Render("  " + text)
}

func renderWarning(text string) string {
	return warningStyle.Render(iconWarning + " " + text)
}

func renderError(text string) string {
	return errorStyle.Render(iconError + " " + text)
}

func renderStatusBar(text string) string {
	return statusBarStyle.Render(text)
}
