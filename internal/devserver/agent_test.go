package devserver

import (
	"context"
	"strings"
	"testing"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

func TestAgent_Reply(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := NewAgent(s)

	steps := []struct {
		say  string
		want string
	}{
		{"hello", "I can create"},
		{"list", "You have no tasks."},
		{"create a task to buy milk", "Created task: Buy milk"},
		{"Add new task: walk the dog.", "Created task: Walk the dog"},
		{"done 1", "Marked task 1 (Buy milk) as done."},
		{"mark 2 as completed", "Marked task 2 (Walk the dog) as done."},
		{"undo #2", "Marked task 2 (Walk the dog) as pending."},
		{"list pending tasks", "You have 1 task(s):\n- [ ] #2 Walk the dog (medium)"},
		{"show my tasks", "- [x] #1 Buy milk (medium)"},
		{"done 42", "Task 42 not found."},
		{"delete task 1", "Deleted task: Buy milk"},
		{"remove 1", "Task 1 not found."},
		{"what's the weather?", "Sorry, I did not understand that."},
	}
	for _, st := range steps {
		got := a.Reply(ctx, st.say)
		if !strings.Contains(got, st.want) {
			t.Errorf("Reply(%q) = %q, want it to contain %q", st.say, got, st.want)
		}
	}

	list, _ := s.List(ctx, Query{})
	if len(list) != 1 || list[0].Title != "Walk the dog" || list[0].Status != tasks.StatusPending {
		t.Errorf("final store = %+v", list)
	}
}

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"buy milk": "Buy milk",
		"Buy":      "Buy",
		"élan":     "Élan",
		"":         "",
	}
	for in, want := range tests {
		if got := capitalize(in); got != want {
			t.Errorf("capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
