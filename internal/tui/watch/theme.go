// Package watch implements the live monitor for a single replay run.
package watch

import "github.com/charmbracelet/lipgloss"

// Palette for the replay monitor.
var (
	colorGreen  = lipgloss.Color("#98C379")
	colorAmber  = lipgloss.Color("#E5C07B")
	colorRed    = lipgloss.Color("#E06C75")
	colorBlue   = lipgloss.Color("#61AFEF")
	colorGrey   = lipgloss.Color("#7F848E")
	colorShadow = lipgloss.Color("#3E4451")
	colorFrame  = lipgloss.Color("#56B6C2")
)

// Theme holds the styles shared by the header, event stream and results panes.
type Theme struct {
	Completed lipgloss.Style
	Replaying lipgloss.Style
	Failed    lipgloss.Style
	Waiting   lipgloss.Style

	Panel        lipgloss.Style
	Title        lipgloss.Style
	ColumnHeader lipgloss.Style
	Muted        lipgloss.Style
	Accent       lipgloss.Style

	PulseOn  lipgloss.Style
	PulseOff lipgloss.Style
}

func newTheme() Theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return Theme{
		Completed: fg(colorGreen),
		Replaying: fg(colorAmber),
		Failed:    fg(colorRed).Bold(true),
		Waiting:   fg(colorGrey),

		Panel:        lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(colorFrame),
		Title:        lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		ColumnHeader: fg(colorBlue).Underline(true),
		Muted:        fg(colorGrey),
		Accent:       fg(colorAmber),

		PulseOn:  fg(colorFrame),
		PulseOff: fg(colorShadow),
	}
}
