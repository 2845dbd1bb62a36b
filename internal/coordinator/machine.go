package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/chat"
)

var (
	ErrNotConnected   = errors.New("agent channel is not open")
	ErrAgentComposing = errors.New("agent is still answering")
)

// Machine is the pure transition function behind the coordinator. It holds
// only the connection status and the composing indicator; Apply never
// performs I/O.
type Machine struct {
	Connection channel.Status
	Composing  bool
}

// NewMachine returns the machine in its initial state: closed and idle.
func NewMachine() Machine {
	return Machine{Connection: channel.StatusClosed}
}

// Apply returns the next machine and the effects to run. On error the
// receiver is returned unchanged with no effects.
func (m Machine) Apply(ev Event) (Machine, []Effect, error) {
	switch e := ev.(type) {
	case ConnectionConnecting:
		m.Connection = channel.StatusConnecting
		return m, nil, nil

	case ConnectionOpened:
		m.Connection = channel.StatusOpen
		return m, []Effect{RefreshTasks{Reason: "open"}}, nil

	case ConnectionClosed:
		m.Connection = channel.StatusClosed
		m.Composing = false
		return m, nil, nil

	case AgentMessage:
		m.Composing = false
		return m, []Effect{
			AppendMessage{Role: chat.RoleAgent, Text: e.Text},
			RefreshTasks{Reason: "agent"},
		}, nil

	case UserSubmit:
		if strings.TrimSpace(e.Text) == "" {
			return m, nil, nil
		}
		if m.Connection != channel.StatusOpen {
			return m, nil, ErrNotConnected
		}
		if m.Composing {
			return m, nil, ErrAgentComposing
		}
		m.Composing = true
		return m, []Effect{
			AppendMessage{Role: chat.RoleUser, Text: e.Text},
			SendText{Text: e.Text},
		}, nil

	case ToggleTask:
		return m, []Effect{UpdateTaskStatus{ID: e.ID, Status: e.To}}, nil

	case RefreshRequested:
		return m, []Effect{RefreshTasks{Reason: e.Reason}}, nil

	case sendFailed:
		m.Composing = false
		return m, nil, nil
	}
	return m, nil, fmt.Errorf("unknown event %T", ev)
}
