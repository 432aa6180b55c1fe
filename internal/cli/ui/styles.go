package ui

import "github.com/charmbracelet/lipgloss"

// Styles defines the lipgloss styles used by binctl.
var Styles = struct {
	Bold     lipgloss.Style
	Title    lipgloss.Style
	Key      lipgloss.Style
	Muted    lipgloss.Style
	Box      lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Absent   lipgloss.Style
	Boundary lipgloss.Style
}{
	Bold: lipgloss.NewStyle().Bold(true),

	Title: lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")).
		Bold(true),

	Key:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(0, 1),

	Header:   lipgloss.NewStyle().Bold(true).Padding(0, 1),
	Cell:     lipgloss.NewStyle().Padding(0, 1),
	Absent:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true).Padding(0, 1),
	Boundary: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
}
