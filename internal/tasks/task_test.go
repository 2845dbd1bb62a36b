package tasks

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"done", StatusDone},
		{" Completed ", StatusDone},
		{"complete", StatusDone},
		{"pending", StatusPending},
		{"TODO", StatusPending},
		{"to-do", StatusPending},
		{"not done", StatusPending},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseStatus("archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStatusToggle(t *testing.T) {
	if StatusPending.Toggle() != StatusDone {
		t.Error("pending should toggle to done")
	}
	if StatusDone.Toggle() != StatusPending {
		t.Error("done should toggle to pending")
	}
	if Status("weird").Toggle() != StatusDone {
		t.Error("unknown status should toggle to done")
	}
}

func TestIDJSON(t *testing.T) {
	var ids []ID
	if err := json.Unmarshal([]byte(`[1, "abc", 42]`), &ids); err != nil {
		t.Fatal(err)
	}
	if ids[0] != "1" || ids[1] != "abc" || ids[2] != "42" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	out, err := json.Marshal(map[string]ID{"num": "7", "str": "t-7"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"num":7,"str":"t-7"}` {
		t.Errorf("unexpected encoding: %s", out)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2025-03-09", "2025-03-09T00:00:00", "2025-03-09T10:30:00Z"} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if d != (Date{Year: 2025, Month: time.March, Day: 9}) {
			t.Errorf("ParseDate(%q) = %v", in, d)
		}
		if d.String() != "2025-03-09" {
			t.Errorf("String() = %q", d.String())
		}
	}

	for _, in := range []string{"", "tomorrow", "2025-13-01"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q): expected error", in)
		}
	}
}

func TestTaskDecode(t *testing.T) {
	raw := `{"id":1,"title":"Buy milk","description":"","status":"pending","priority":"high","due_date":null}`

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatal(err)
	}
	if task.ID != "1" || task.Title != "Buy milk" || task.Priority != PriorityHigh {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.DueDate != nil {
		t.Errorf("expected nil due date, got %v", task.DueDate)
	}
	if task.Done() {
		t.Error("pending task reported done")
	}

	raw = `{"id":2,"title":"File taxes","status":"done","priority":"low","due_date":"2025-04-15T00:00:00"}`
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatal(err)
	}
	if task.DueDate == nil || task.DueDate.String() != "2025-04-15" {
		t.Errorf("unexpected due date: %v", task.DueDate)
	}
	if !task.Done() {
		t.Error("done task not reported done")
	}
}
