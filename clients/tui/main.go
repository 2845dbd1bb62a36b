package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/taskpilot/clients/tui/molecules"
	"github.com/dohr-michael/taskpilot/clients/tui/organisms"
	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/coordinator"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// Session is the part of the coordinator the TUI drives.
type Session interface {
	State() coordinator.State
	Submit(text string) error
	ToggleTask(id tasks.ID) error
	RequestRefresh(reason string) error
	Changed() <-chan struct{}
}

// MainModel is the root bubbletea model.
type MainModel struct {
	session Session
	state   coordinator.State
	focus   organisms.Focus
	width   int
	height  int

	chat  organisms.ChatPanel
	tasks organisms.TaskPanel
	input molecules.PromptInput
	info  organisms.InformationPanel
}

// NewMainModel creates the root model.
func NewMainModel(session Session) MainModel {
	chatStyles := organisms.ChatPanelStyles{
		Agent:  AgentStyle,
		User:   UserStyle,
		Error:  ErrorStyle,
		Muted:  MutedStyle,
		Typing: ColorMuted,
	}
	taskStyles := organisms.TaskPanelStyles{
		Title:   AgentStyle,
		Cursor:  CursorStyle,
		Done:    DoneStyle,
		Muted:   MutedStyle,
		Overdue: ErrorStyle,
		High:    HighPriorityStyle,
		Medium:  MediumPriorityStyle,
		Low:     LowPriorityStyle,
	}

	return MainModel{
		session: session,
		focus:   organisms.FocusInput,
		chat:    organisms.NewChatPanel(80, 20, chatStyles),
		tasks:   organisms.NewTaskPanel(40, 20, taskStyles),
		input:   molecules.NewPromptInput(),
		info:    organisms.NewInformationPanel(StatusBarStyle, ErrorStyle),
	}
}

// Init reads the initial state and starts the spinner.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return stateChangedMsg{} },
		m.chat.Init(),
	)
}

// waitForChange blocks until the session signals a change. Exactly one
// waiter is outstanding at a time: each stateChangedMsg schedules the next.
func (m MainModel) waitForChange() tea.Cmd {
	changed := m.session.Changed()
	return func() tea.Msg {
		<-changed
		return stateChangedMsg{}
	}
}

// Update processes all incoming messages.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateChangedMsg:
		m.applyState(m.session.State())
		return m, m.waitForChange()

	case actionResultMsg:
		m.handleActionResult(msg)
		return m, nil

	case molecules.SubmitMsg:
		text := msg.Content
		return m, m.call("submit", func() error { return m.session.Submit(text) })

	case molecules.CommandMsg:
		return m.handleCommand(msg.Name)
	}

	// Pass through to chat panel (spinner ticks, viewport).
	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

func (m *MainModel) applyState(s coordinator.State) {
	m.state = s
	m.chat.Sync(s.Messages, s.Composing)
	m.tasks.SetTasks(s.Tasks, s.TasksLoaded)

	var pending, done int
	for _, t := range s.Tasks {
		if t.Done() {
			done++
		} else {
			pending++
		}
	}
	m.info.SetInfo(organisms.StatusInfo{
		Connection: s.Connection,
		Composing:  s.Composing,
		Pending:    pending,
		Done:       done,
		LastSync:   s.LastSync,
		SyncError:  s.SyncError,
		ConnError:  s.ConnError,
		Focus:      m.focus,
	})

	switch {
	case s.Connection != channel.StatusOpen:
		m.input.SetPlaceholder("Waiting for the agent connection...")
	case s.Composing:
		m.input.SetPlaceholder("The agent is replying...")
	default:
		m.input.SetPlaceholder("Ask the agent...")
	}
}

func (m *MainModel) handleActionResult(msg actionResultMsg) {
	switch {
	case msg.err == nil:
	case errors.Is(msg.err, coordinator.ErrAgentComposing):
		m.chat.AppendNotice("Wait for the agent to finish replying.")
	case errors.Is(msg.err, coordinator.ErrNotConnected):
		m.chat.AppendNotice("Not connected to the agent.")
	case errors.Is(msg.err, coordinator.ErrClosed):
	default:
		m.chat.AppendError(fmt.Sprintf("%s: %v", msg.op, msg.err))
	}
}

// call runs a session operation off the UI loop.
func (m MainModel) call(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{op: op, err: fn()}
	}
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab":
		m.setFocus(1 - m.focus)
		return m, nil
	case "pgup":
		m.chat.PageUp()
		return m, nil
	case "pgdown":
		m.chat.PageDown()
		return m, nil
	}

	if m.focus == organisms.FocusTasks {
		return m.handleTaskKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m MainModel) handleTaskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.tasks.MoveUp()
	case "down", "j":
		m.tasks.MoveDown()
	case " ", "enter", "x":
		if t, ok := m.tasks.Selected(); ok {
			id := t.ID
			return m, m.call("toggle task", func() error { return m.session.ToggleTask(id) })
		}
	case "r":
		return m, m.call("refresh", func() error { return m.session.RequestRefresh("manual") })
	case "esc":
		m.setFocus(organisms.FocusInput)
	}
	return m, nil
}

func (m MainModel) handleCommand(name string) (tea.Model, tea.Cmd) {
	switch name {
	case "quit":
		return m, tea.Quit
	case "clear":
		m.chat.Clear()
		return m, nil
	case "refresh":
		return m, m.call("refresh", func() error { return m.session.RequestRefresh("manual") })
	}
	return m, nil
}

func (m *MainModel) setFocus(f organisms.Focus) {
	m.focus = f
	m.tasks.SetFocused(f == organisms.FocusTasks)
	if f == organisms.FocusTasks {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
	info := m.info.Info()
	info.Focus = f
	m.info.SetInfo(info)
}

// layout splits the screen: chat and tasks side by side, then the input
// line, then the status bar.
func (m *MainModel) layout() {
	paneHeight := max(m.height-2-2, 1) // input + status bar, then borders
	taskWidth := max(m.width*2/5, 24)
	chatWidth := max(m.width-taskWidth-4, 10)

	m.chat.SetSize(chatWidth, paneHeight)
	m.tasks.SetSize(taskWidth, paneHeight)
	m.input.SetWidth(m.width)
	m.info.SetWidth(m.width)
}

// View renders the full TUI layout.
func (m MainModel) View() string {
	chatStyle, taskStyle := FocusedPaneBorderStyle, PaneBorderStyle
	if m.focus == organisms.FocusTasks {
		chatStyle, taskStyle = PaneBorderStyle, FocusedPaneBorderStyle
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		chatStyle.Render(m.chat.View()),
		taskStyle.Render(m.tasks.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, panes, m.input.View(), m.info.View())
}

// Run starts the full-screen interface and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, session Session) error {
	p := tea.NewProgram(
		NewMainModel(session),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
