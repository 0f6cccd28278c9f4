package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the pre-configured lipgloss styles for the chat view.
type Styles struct {
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Citation  lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	InputBox  lipgloss.Style
}

// DefaultStyles returns the default chat styling.
func DefaultStyles() *Styles {
	var (
		primary = lipgloss.Color("#7C3AED")
		cyan    = lipgloss.Color("#06B6D4")
		muted   = lipgloss.Color("#6C7086")
		errCol  = lipgloss.Color("#F38BA8")
		border  = lipgloss.Color("#45475A")
	)

	return &Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1),
		User:      lipgloss.NewStyle().Bold(true).Foreground(cyan),
		Assistant: lipgloss.NewStyle(),
		Citation:  lipgloss.NewStyle().Foreground(muted),
		Status:    lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		Error:     lipgloss.NewStyle().Foreground(errCol),
		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}
