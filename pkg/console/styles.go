// Package console renders application documents and workflows for a terminal.
package console

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Active   lipgloss.Style
	Panel    lipgloss.Style
}

// DefaultStyles returns the colour styles.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Active:   lipgloss.NewStyle().Bold(true),
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
	}
}

// PlainStyles renders without colour or borders.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()

	return Styles{
		Title:    plain,
		Subtitle: plain,
		Muted:    plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
		Active:   plain,
		Panel:    plain,
	}
}
