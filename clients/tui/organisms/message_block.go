package organisms

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/taskpilot/clients/tui/atoms"
)

// MessageBlock renders one transcript entry or local notice under a role label.
type MessageBlock struct {
	label    string
	style    lipgloss.Style
	content  string
	markdown bool
	width    int
	cached   string
}

// NewMessageBlock creates a block. Markdown blocks go through glamour; the
// others are wrapped as plain text.
func NewMessageBlock(label string, style lipgloss.Style, content string, markdown bool, width int) *MessageBlock {
	return &MessageBlock{
		label:    label,
		style:    style,
		content:  content,
		markdown: markdown,
		width:    width,
	}
}

// Content returns the raw text.
func (b *MessageBlock) Content() string {
	return b.content
}

// SetWidth updates the wrapping width and drops the render cache.
func (b *MessageBlock) SetWidth(w int) {
	if w != b.width {
		b.width = w
		b.cached = ""
	}
}

// View renders the label on its own line followed by the body.
func (b *MessageBlock) View() string {
	if b.cached != "" {
		return b.cached
	}

	body := b.content
	if b.markdown {
		body = RenderMarkdown(b.content, b.width-2)
	} else if b.width > 4 {
		body = lipgloss.NewStyle().Width(b.width - 2).Render(b.content)
	}

	b.cached = atoms.StyledLabel(b.label, b.style) + "\n" + lipgloss.NewStyle().PaddingLeft(1).Render(body)
	return b.cached
}
