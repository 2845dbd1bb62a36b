package atoms

import "github.com/charmbracelet/lipgloss"

// StyledLabel renders a role label (e.g. "You", "Agent") with the given style.
func StyledLabel(role string, style lipgloss.Style) string {
	return style.Render(role)
}

// Badge renders a short bracketed tag such as a task priority.
func Badge(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	return style.Render("[" + text + "]")
}
