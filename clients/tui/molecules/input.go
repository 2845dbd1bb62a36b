// Package molecules provides mid-level TUI components.
package molecules

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SubmitMsg carries a prompt for the agent, exactly as typed.
type SubmitMsg struct {
	Content string
}

// CommandMsg names a slash command handled by the client itself.
type CommandMsg struct {
	Name string
}

// Commands handled locally rather than sent to the agent.
var Commands = []string{"/refresh", "/clear", "/quit"}

// PromptInput is the single-line prompt under the chat pane.
type PromptInput struct {
	area   textarea.Model
	recall recall
}

func NewPromptInput() PromptInput {
	area := textarea.New()
	area.Placeholder = "Ask the agent..."
	area.Prompt = "> "
	area.ShowLineNumbers = false
	area.CharLimit = 0
	area.SetHeight(1)
	area.FocusedStyle.CursorLine = lipgloss.NewStyle()
	area.Focus()
	return PromptInput{area: area}
}

func (p *PromptInput) SetWidth(w int)            { p.area.SetWidth(w) }
func (p *PromptInput) SetPlaceholder(text string) { p.area.Placeholder = text }
func (p *PromptInput) Focus()                     { p.area.Focus() }
func (p *PromptInput) Blur()                      { p.area.Blur() }
func (p *PromptInput) Value() string              { return p.area.Value() }

// Update turns Enter into a SubmitMsg or CommandMsg. Up and down recall
// earlier prompts; everything else goes to the textarea.
func (p PromptInput) Update(msg tea.Msg) (PromptInput, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !p.area.Focused() {
		var cmd tea.Cmd
		p.area, cmd = p.area.Update(msg)
		return p, cmd
	}

	switch key.Type {
	case tea.KeyEnter:
		return p, p.submit()
	case tea.KeyUp:
		if text, ok := p.recall.older(p.area.Value()); ok {
			p.area.SetValue(text)
		}
		return p, nil
	case tea.KeyDown:
		if text, ok := p.recall.newer(); ok {
			p.area.SetValue(text)
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.area, cmd = p.area.Update(msg)
	return p, cmd
}

func (p *PromptInput) submit() tea.Cmd {
	raw := p.area.Value()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	p.recall.push(raw)
	p.area.Reset()

	if slices.Contains(Commands, trimmed) {
		name := strings.TrimPrefix(trimmed, "/")
		return func() tea.Msg { return CommandMsg{Name: name} }
	}
	return func() tea.Msg { return SubmitMsg{Content: raw} }
}

func (p PromptInput) View() string {
	return p.area.View()
}

// recall walks previously submitted prompts. pos == len(entries) means the
// user is editing a fresh line, saved in draft while browsing.
type recall struct {
	entries []string
	pos     int
	draft   string
}

func (r *recall) push(text string) {
	if n := len(r.entries); n == 0 || r.entries[n-1] != text {
		r.entries = append(r.entries, text)
	}
	r.pos = len(r.entries)
	r.draft = ""
}

func (r *recall) older(current string) (string, bool) {
	if r.pos == 0 {
		return "", false
	}
	if r.pos == len(r.entries) {
		r.draft = current
	}
	r.pos--
	return r.entries[r.pos], true
}

func (r *recall) newer() (string, bool) {
	if r.pos >= len(r.entries) {
		return "", false
	}
	r.pos++
	if r.pos == len(r.entries) {
		return r.draft, true
	}
	return r.entries[r.pos], true
}
