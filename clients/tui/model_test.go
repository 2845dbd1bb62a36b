package tui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/taskpilot/clients/tui/molecules"
	"github.com/dohr-michael/taskpilot/clients/tui/organisms"
	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/chat"
	"github.com/dohr-michael/taskpilot/internal/coordinator"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

type fakeSession struct {
	mu        sync.Mutex
	state     coordinator.State
	changed   chan struct{}
	submitErr error
	submitted []string
	toggled   []tasks.ID
	refreshes []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		changed: make(chan struct{}, 1),
		state: coordinator.State{
			Connection: channel.StatusOpen,
			Messages: []chat.Message{
				{Role: chat.RoleAgent, Content: "hello there"},
			},
			Tasks: []tasks.Task{
				{ID: "1", Title: "Buy milk", Status: tasks.StatusPending, Priority: "high"},
				{ID: "2", Title: "Walk dog", Status: tasks.StatusDone, Priority: "low"},
			},
			TasksLoaded: true,
		},
	}
}

func (f *fakeSession) State() coordinator.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) Submit(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return f.submitErr
}

func (f *fakeSession) ToggleTask(id tasks.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, id)
	return nil
}

func (f *fakeSession) RequestRefresh(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, reason)
	return nil
}

func (f *fakeSession) Changed() <-chan struct{} { return f.changed }

// step feeds msg to the model and returns the updated model.
func step(t *testing.T, m MainModel, msg tea.Msg) (MainModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(MainModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm, cmd
}

func ready(t *testing.T, s *fakeSession) MainModel {
	t.Helper()
	m := NewMainModel(s)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = step(t, m, stateChangedMsg{})
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMainModel_RendersState(t *testing.T) {
	m := ready(t, newFakeSession())

	view := m.View()
	for _, want := range []string{"hello there", "Buy milk", "Walk dog", "Tasks (1 open)", "1 pending / 1 done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMainModel_WaitsForChange(t *testing.T) {
	s := newFakeSession()
	m := NewMainModel(s)

	_, cmd := step(t, m, stateChangedMsg{})
	if cmd == nil {
		t.Fatal("expected a wait command after a state change")
	}

	s.changed <- struct{}{}
	if _, ok := cmd().(stateChangedMsg); !ok {
		t.Fatal("wait command did not report the change")
	}
}

func TestMainModel_ToggleSelectedTask(t *testing.T) {
	s := newFakeSession()
	m := ready(t, s)

	m, _ = step(t, m, key("tab"))
	m, _ = step(t, m, key("down"))
	m, cmd := step(t, m, key("x"))
	if cmd == nil {
		t.Fatal("toggle produced no command")
	}
	m, _ = step(t, m, cmd())

	if len(s.toggled) != 1 || s.toggled[0] != "2" {
		t.Fatalf("toggled = %v, want [2]", s.toggled)
	}

	_, cmd = step(t, m, key("r"))
	cmd()
	if len(s.refreshes) != 1 || s.refreshes[0] != "manual" {
		t.Fatalf("refreshes = %v", s.refreshes)
	}
}

func TestMainModel_TaskKeysIgnoredInInput(t *testing.T) {
	s := newFakeSession()
	m := ready(t, s)

	m, _ = step(t, m, key("x"))
	if got := m.input.Value(); got != "x" {
		t.Fatalf("input = %q, want x", got)
	}
	if m.focus != organisms.FocusInput {
		t.Fatal("focus moved away from the input")
	}
}

func TestMainModel_SubmitWhileComposing(t *testing.T) {
	s := newFakeSession()
	s.submitErr = coordinator.ErrAgentComposing
	m := ready(t, s)

	m, cmd := step(t, m, molecules.SubmitMsg{Content: "add bread"})
	m, _ = step(t, m, cmd())

	if len(s.submitted) != 1 || s.submitted[0] != "add bread" {
		t.Fatalf("submitted = %v", s.submitted)
	}
	if !strings.Contains(m.View(), "Wait for the agent") {
		t.Error("expected a notice about the pending reply")
	}
}

func TestMainModel_Commands(t *testing.T) {
	s := newFakeSession()
	m := ready(t, s)

	m, cmd := step(t, m, molecules.CommandMsg{Name: "refresh"})
	cmd()
	if len(s.refreshes) != 1 {
		t.Fatalf("refreshes = %v", s.refreshes)
	}

	m, _ = step(t, m, molecules.CommandMsg{Name: "clear"})
	if strings.Contains(m.View(), "hello there") {
		t.Error("clear should empty the chat view")
	}
	// Already-seen messages stay hidden after the next sync.
	m, _ = step(t, m, stateChangedMsg{})
	if strings.Contains(m.View(), "hello there") {
		t.Error("cleared messages came back")
	}

	_, cmd = step(t, m, molecules.CommandMsg{Name: "quit"})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit did not quit")
	}
}

func TestMainModel_StatusBarShowsSyncError(t *testing.T) {
	s := newFakeSession()
	s.state.SyncError = "task service returned 503"
	m := ready(t, s)

	if !strings.Contains(m.View(), "sync: task service returned 503") {
		t.Error("status bar should surface the sync error")
	}
}
