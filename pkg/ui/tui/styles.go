package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	darkBg      = lipgloss.Color("#0A0E27")
	dimWhite    = lipgloss.Color("#B0B0B0")

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 1)

	resourceStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Width(14)

	countStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	doneStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingLeft(1)
)

// levelColor picks the color of a log level label
func levelColor(level string) lipgloss.Color {
	switch level {
	case "ERROR":
		return lipgloss.Color("#FF0000")
	case "WARN":
		return neonOrange
	case "SUCCESS":
		return neonGreen
	case "INFO":
		return neonCyan
	}
	return dimWhite
}
