package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentTeal   = lipgloss.Color("#2EC4B6")
	accentBlue   = lipgloss.Color("#3A86FF")
	accentGreen  = lipgloss.Color("#8AC926")
	accentYellow = lipgloss.Color("#FFCA3A")
	accentOrange = lipgloss.Color("#FF924C")
	alertRed     = lipgloss.Color("#FF595E")
	panelBg      = lipgloss.Color("#1B1F2A")
	dimWhite     = lipgloss.Color("#B0B0B0")
	mutedGray    = lipgloss.Color("#626262")

	logoStyle = lipgloss.NewStyle().
			Foreground(accentTeal).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentBlue).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accentBlue).
			Foreground(panelBg).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(accentTeal).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(accentYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(accentGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true)

	queueItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	queueItemActiveStyle = lipgloss.NewStyle().
				Foreground(accentGreen).
				Bold(true)

	queueItemDoneStyle = lipgloss.NewStyle().
				Foreground(dimWhite).
				Faint(true).
				PaddingLeft(2)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(mutedGray)

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(accentOrange).
			Foreground(accentYellow).
			Bold(true).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(1, 0, 0, 2)
)

// stateStyle colours a session state label
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "succeeded":
		return successStyle
	case "failed":
		return errorStyle
	case "retry_pending":
		return warningStyle
	default:
		return statsValueStyle
	}
}
