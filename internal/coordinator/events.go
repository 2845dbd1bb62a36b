package coordinator

import (
	"github.com/dohr-michael/taskpilot/internal/chat"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// Event is something the coordinator reacts to. Events come from the agent
// channel, from the user, or from timers.
type Event interface {
	event()
}

// ConnectionConnecting is dispatched when the channel starts dialing.
type ConnectionConnecting struct{}

// ConnectionOpened is dispatched once the channel handshake completes.
type ConnectionOpened struct{}

// ConnectionClosed is dispatched when the channel ends. Err is nil for a
// normal closure.
type ConnectionClosed struct {
	Err error
}

// AgentMessage carries one text frame pushed by the agent.
type AgentMessage struct {
	Text string
}

// UserSubmit carries the text the user typed.
type UserSubmit struct {
	Text string
}

// ToggleTask asks for a task to be moved to status To.
type ToggleTask struct {
	ID tasks.ID
	To tasks.Status
}

// RefreshRequested asks for a task list refresh outside the chat flow.
type RefreshRequested struct {
	Reason string
}

// sendFailed reports that the text of an accepted UserSubmit never left.
type sendFailed struct {
	Err error
}

func (ConnectionConnecting) event() {}
func (ConnectionOpened) event()     {}
func (ConnectionClosed) event()     {}
func (AgentMessage) event()         {}
func (UserSubmit) event()           {}
func (ToggleTask) event()           {}
func (RefreshRequested) event()     {}
func (sendFailed) event()           {}

// Effect is work the coordinator performs after a transition.
type Effect interface {
	effect()
}

// AppendMessage appends to the transcript.
type AppendMessage struct {
	Role chat.Role
	Text string
}

// SendText writes one message to the agent channel.
type SendText struct {
	Text string
}

// RefreshTasks reloads the task snapshot.
type RefreshTasks struct {
	Reason string
}

// UpdateTaskStatus writes a task status, then reloads the snapshot whatever
// the outcome of the write.
type UpdateTaskStatus struct {
	ID     tasks.ID
	Status tasks.Status
}

func (AppendMessage) effect()    {}
func (SendText) effect()         {}
func (RefreshTasks) effect()     {}
func (UpdateTaskStatus) effect() {}
