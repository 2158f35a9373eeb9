package monitor

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles for the dashboard.
type Styles struct {
	Title      lipgloss.Style
	Section    lipgloss.Style
	Panel      lipgloss.Style
	StatusLine lipgloss.Style
	FeedLine   lipgloss.Style
	FeedWarn   lipgloss.Style
	FeedError  lipgloss.Style
	Table      lipgloss.Style
	Paused     lipgloss.Style
}

// DefaultStyles returns the default dashboard styling.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1),
		Section: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		StatusLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		FeedLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		FeedWarn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		FeedError: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		Table: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Paused: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
	}
}
