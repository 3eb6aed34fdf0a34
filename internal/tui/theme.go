package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	title       lipgloss.Style
	card        lipgloss.Style
	cardFocused lipgloss.Style
	label       lipgloss.Style
	pending     lipgloss.Style
	ok          lipgloss.Style
	bad         lipgloss.Style
	footer      lipgloss.Style
	prompt      lipgloss.Style
}

func defaultTheme() theme {
	card := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(36)
	return theme{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		card:        card.BorderForeground(lipgloss.Color("240")),
		cardFocused: card.BorderForeground(lipgloss.Color("63")).Bold(true),
		label:       lipgloss.NewStyle().Faint(true),
		pending:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ok:          lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		bad:         lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		footer:      lipgloss.NewStyle().Faint(true),
		prompt:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("219")),
	}
}
