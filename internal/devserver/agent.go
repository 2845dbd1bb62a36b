package devserver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// Greeting is sent to every chat client right after the handshake.
const Greeting = "Task Agent connected. You can ask me to create, list, or update your tasks."

const helpText = "I can create, list, complete, reopen or delete tasks. Try \"create a task to buy milk\", \"list\", \"done 1\", \"undo 1\" or \"delete 1\"."

var (
	createRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:create|add|new)(?:\s+a)?(?:\s+(?:new\s+)?task)?(?:\s+(?:to|for|called|named))?\s*:?\s+(.+)$`)
	doneRe   = regexp.MustCompile(`(?i)^(?:mark\s+)?(?:done|complete|finish|check)\s+(?:task\s+)?#?(\S+)(?:\s+as\s+done)?$`)
	markRe   = regexp.MustCompile(`(?i)^mark\s+(?:task\s+)?#?(\S+)\s+as\s+(done|complete|completed|pending|todo|not done)$`)
	undoRe   = regexp.MustCompile(`(?i)^(?:undo|reopen|uncheck)\s+(?:task\s+)?#?(\S+)$`)
	deleteRe = regexp.MustCompile(`(?i)^(?:delete|remove|drop)\s+(?:task\s+)?#?(\S+)$`)
	listRe   = regexp.MustCompile(`(?i)^(?:list|show)(?:\s+(?:my|all|the))?(?:\s+(pending|done))?(?:\s+tasks?)?$`)
	helpRe   = regexp.MustCompile(`(?i)^(?:help|\?|hi|hello|hey)$`)
)

// Agent answers chat messages by acting on the store. It understands a
// handful of fixed phrasings.
type Agent struct {
	store Store
}

func NewAgent(store Store) *Agent {
	return &Agent{store: store}
}

// Reply handles one user message and returns the single answer to send back.
func (a *Agent) Reply(ctx context.Context, text string) string {
	text = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ".!"))

	switch {
	case helpRe.MatchString(text):
		return helpText
	case listRe.MatchString(text):
		m := listRe.FindStringSubmatch(text)
		return a.list(ctx, m[1])
	case markRe.MatchString(text):
		m := markRe.FindStringSubmatch(text)
		status, err := tasks.ParseStatus(m[2])
		if err != nil {
			return err.Error()
		}
		return a.setStatus(ctx, tasks.ID(m[1]), status)
	case doneRe.MatchString(text):
		return a.setStatus(ctx, tasks.ID(doneRe.FindStringSubmatch(text)[1]), tasks.StatusDone)
	case undoRe.MatchString(text):
		return a.setStatus(ctx, tasks.ID(undoRe.FindStringSubmatch(text)[1]), tasks.StatusPending)
	case deleteRe.MatchString(text):
		return a.delete(ctx, tasks.ID(deleteRe.FindStringSubmatch(text)[1]))
	case createRe.MatchString(text):
		return a.create(ctx, createRe.FindStringSubmatch(text)[1])
	}
	return "Sorry, I did not understand that. " + helpText
}

func (a *Agent) create(ctx context.Context, title string) string {
	t, err := a.store.Create(ctx, tasks.NewTask{Title: capitalize(strings.TrimSpace(title))})
	if err != nil {
		return "Could not create the task: " + err.Error()
	}
	return "Created task: " + t.Title
}

func (a *Agent) setStatus(ctx context.Context, id tasks.ID, status tasks.Status) string {
	t, err := a.store.Update(ctx, id, Patch{Status: &status})
	if errors.Is(err, ErrTaskNotFound) {
		return fmt.Sprintf("Task %s not found.", id)
	}
	if err != nil {
		return "Could not update the task: " + err.Error()
	}
	return fmt.Sprintf("Marked task %s (%s) as %s.", t.ID, t.Title, t.Status)
}

func (a *Agent) delete(ctx context.Context, id tasks.ID) string {
	t, err := a.store.Delete(ctx, id)
	if errors.Is(err, ErrTaskNotFound) {
		return fmt.Sprintf("Task %s not found.", id)
	}
	if err != nil {
		return "Could not delete the task: " + err.Error()
	}
	return fmt.Sprintf("Deleted task: %s", t.Title)
}

func (a *Agent) list(ctx context.Context, status string) string {
	q := Query{}
	if status != "" {
		s, err := tasks.ParseStatus(status)
		if err != nil {
			return err.Error()
		}
		q.Filter.Status = s
	}
	list, err := a.store.List(ctx, q)
	if err != nil {
		return "Could not list tasks: " + err.Error()
	}
	if len(list) == 0 {
		return "You have no tasks."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d task(s):", len(list))
	for _, t := range list {
		mark := " "
		if t.Done() {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n- [%s] #%s %s (%s", mark, t.ID, t.Title, t.Priority)
		if t.DueDate != nil {
			fmt.Fprintf(&b, ", due %s", t.DueDate)
		}
		b.WriteString(")")
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
