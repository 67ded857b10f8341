package experiments

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	name      lipgloss.Style
	available lipgloss.Style
	waiting   lipgloss.Style
	detail    lipgloss.Style
	empty     lipgloss.Style
	section   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		name:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		available: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		waiting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		empty:     lipgloss.NewStyle().Faint(true),
		section:   lipgloss.NewStyle().MarginTop(1),
	}
}
