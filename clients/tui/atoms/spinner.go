// Package atoms provides low-level TUI building blocks.
package atoms

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner is a labelled activity indicator, e.g. "⣾ agent is typing".
type Spinner struct {
	Model spinner.Model
	label string
	style lipgloss.Style
}

// NewSpinner creates a dot spinner followed by label.
func NewSpinner(color lipgloss.AdaptiveColor, label string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(color)
	return Spinner{
		Model: s,
		label: label,
		style: lipgloss.NewStyle().Foreground(color).Italic(true),
	}
}

// Init returns the spinner tick command.
func (s Spinner) Init() tea.Cmd {
	return s.Model.Tick
}

// Update handles spinner messages.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.Model, cmd = s.Model.Update(msg)
	return s, cmd
}

// View renders the current frame and the label.
func (s Spinner) View() string {
	if s.label == "" {
		return s.Model.View()
	}
	return s.Model.View() + " " + s.style.Render(s.label)
}
