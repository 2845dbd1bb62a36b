package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

const seedYAML = `
tasks:
  - title: Buy milk
    priority: high
    due_date: 2025-01-31
  - title: Walk the dog
    description: around the block
    status: completed
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) != 2 {
		t.Fatalf("expected 2 seed tasks, got %d", len(seed))
	}
	if seed[0].DueDate != "2025-01-31" {
		t.Errorf("due_date = %q", seed[0].DueDate)
	}
	if seed[1].Status != "completed" || seed[1].Description != "around the block" {
		t.Errorf("seed[1] = %+v", seed[1])
	}
}

func TestLoadSeed_Invalid(t *testing.T) {
	if _, err := LoadSeed(writeSeed(t, "tasks:\n  - priority: high\n")); err == nil {
		t.Error("expected error for task without title")
	}
	if _, err := LoadSeed(writeSeed(t, "tasks: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()
	seed, err := LoadSeed(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatal(err)
	}

	s := NewMemoryStore()
	n, err := ApplySeed(ctx, s, seed)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("seeded %d", n)
	}

	list, _ := s.List(ctx, Query{})
	if len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}
	if list[0].DueDate == nil || list[0].DueDate.String() != "2025-01-31" {
		t.Errorf("due date = %v", list[0].DueDate)
	}
	if list[1].Status != tasks.StatusDone {
		t.Errorf("status = %s, want normalised done", list[1].Status)
	}

	n, err = ApplySeed(ctx, s, seed)
	if err != nil || n != 0 {
		t.Errorf("second seed = %d, %v; want no-op", n, err)
	}
}
