package organisms

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/taskpilot/clients/tui/atoms"
	"github.com/dohr-michael/taskpilot/internal/chat"
)

// ChatPanelStyles contains the styles injected into the ChatPanel.
type ChatPanelStyles struct {
	Agent  lipgloss.Style
	User   lipgloss.Style
	Error  lipgloss.Style
	Muted  lipgloss.Style
	Typing lipgloss.AdaptiveColor
}

// ChatPanel renders the transcript. It mirrors the coordinator's messages and
// keeps local notices (errors, hints) interleaved where they happened.
type ChatPanel struct {
	viewport  OutputViewport
	spinner   atoms.Spinner
	seen      int
	composing bool
	width     int
	styles    ChatPanelStyles
}

// NewChatPanel creates a new chat panel.
func NewChatPanel(width, height int, styles ChatPanelStyles) ChatPanel {
	return ChatPanel{
		viewport: NewOutputViewport(width, height),
		spinner:  atoms.NewSpinner(styles.Typing, "agent is typing"),
		width:    width,
		styles:   styles,
	}
}

// Init returns the first spinner tick command.
func (p ChatPanel) Init() tea.Cmd {
	return p.spinner.Init()
}

// Sync appends the messages the panel has not shown yet and updates the
// typing indicator. msgs is the full transcript; earlier entries never change.
func (p *ChatPanel) Sync(msgs []chat.Message, composing bool) {
	if len(msgs) < p.seen {
		// A shorter transcript means a new session; start over.
		p.seen = 0
		p.viewport.Reset()
	}
	for _, m := range msgs[p.seen:] {
		p.viewport.AppendBlock(p.messageBlock(m))
	}
	p.seen = len(msgs)
	p.composing = composing
	p.updateFooter()
}

// Seen returns the number of transcript messages already rendered.
func (p *ChatPanel) Seen() int { return p.seen }

// Clear empties the view. The transcript itself is untouched and only
// messages arriving afterwards are shown.
func (p *ChatPanel) Clear() {
	p.viewport.Reset()
	p.updateFooter()
}

// AppendNotice adds a local line that is not part of the transcript.
func (p *ChatPanel) AppendNotice(text string) {
	p.viewport.AppendBlock(NewMessageBlock("taskpilot", p.styles.Muted, text, false, p.width))
}

// AppendError adds a local error line.
func (p *ChatPanel) AppendError(text string) {
	p.viewport.AppendBlock(NewMessageBlock("Error", p.styles.Error, text, false, p.width))
}

func (p *ChatPanel) messageBlock(m chat.Message) *MessageBlock {
	if m.Role == chat.RoleUser {
		return NewMessageBlock("You", p.styles.User, m.Content, false, p.width)
	}
	return NewMessageBlock("Agent", p.styles.Agent, m.Content, true, p.width)
}

func (p *ChatPanel) updateFooter() {
	if p.composing {
		p.viewport.SetFooter(p.spinner.View())
	} else {
		p.viewport.SetFooter("")
	}
}

// PageUp scrolls up by one page.
func (p *ChatPanel) PageUp() { p.viewport.PageUp() }

// PageDown scrolls down by one page.
func (p *ChatPanel) PageDown() { p.viewport.PageDown() }

// SetSize updates the viewport dimensions.
func (p *ChatPanel) SetSize(w, h int) {
	p.width = w
	p.viewport.SetSize(w, h)
}

// Update handles spinner ticks and viewport passthrough.
func (p ChatPanel) Update(msg tea.Msg) (ChatPanel, tea.Cmd) {
	var cmds []tea.Cmd

	if _, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		cmds = append(cmds, cmd)
		p.updateFooter()
	}

	var vpCmd tea.Cmd
	p.viewport, vpCmd = p.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return p, tea.Batch(cmds...)
}

// View renders the chat viewport.
func (p ChatPanel) View() string {
	return p.viewport.View()
}
