package organisms

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ContentBlock is one renderable entry of the conversation.
type ContentBlock interface {
	View() string
	SetWidth(w int)
}

// OutputViewport manages the scrollable conversation history. A footer line
// (the typing indicator) is rendered after the last block.
type OutputViewport struct {
	viewport viewport.Model
	blocks   []ContentBlock
	footer   string
	width    int
	height   int
}

// NewOutputViewport creates a viewport for the conversation history.
func NewOutputViewport(width, height int) OutputViewport {
	vp := viewport.New(width, height)
	vp.SetContent("")
	// Key handling stays with the root model; the viewport only scrolls on
	// explicit PageUp/PageDown.
	vp.KeyMap = viewport.KeyMap{}
	vp.MouseWheelEnabled = false
	return OutputViewport{
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// SetSize updates the viewport dimensions and re-wraps every block.
func (o *OutputViewport) SetSize(width, height int) {
	if width != o.width {
		for _, b := range o.blocks {
			b.SetWidth(width)
		}
	}
	o.width = width
	o.height = height
	o.viewport.Width = width
	o.viewport.Height = height
	o.refresh(true)
}

// AppendBlock adds a block and follows the output if the view was at the bottom.
func (o *OutputViewport) AppendBlock(block ContentBlock) {
	follow := o.viewport.AtBottom()
	o.blocks = append(o.blocks, block)
	o.refresh(follow)
}

// SetFooter replaces the trailing line. Empty removes it.
func (o *OutputViewport) SetFooter(footer string) {
	if footer == o.footer {
		return
	}
	follow := o.viewport.AtBottom()
	o.footer = footer
	o.refresh(follow)
}

// Reset drops every block.
func (o *OutputViewport) Reset() {
	o.blocks = nil
	o.footer = ""
	o.refresh(true)
}

// BlockCount returns the number of blocks.
func (o *OutputViewport) BlockCount() int {
	return len(o.blocks)
}

// PageUp scrolls up by one page.
func (o *OutputViewport) PageUp() {
	o.viewport.PageUp()
}

// PageDown scrolls down by one page.
func (o *OutputViewport) PageDown() {
	o.viewport.PageDown()
}

func (o *OutputViewport) refresh(follow bool) {
	var sb strings.Builder
	for i, block := range o.blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block.View())
	}
	if o.footer != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(o.footer)
	}
	o.viewport.SetContent(sb.String())
	if follow {
		o.viewport.GotoBottom()
	}
}

// Update handles viewport messages.
func (o OutputViewport) Update(msg tea.Msg) (OutputViewport, tea.Cmd) {
	var cmd tea.Cmd
	o.viewport, cmd = o.viewport.Update(msg)
	return o, cmd
}

// View renders the viewport.
func (o OutputViewport) View() string {
	return o.viewport.View()
}
