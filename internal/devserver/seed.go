package devserver

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// SeedTask is one entry of a seed file.
type SeedTask struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Priority    string `yaml:"priority"`
	Status      string `yaml:"status"`
	DueDate     string `yaml:"due_date"`
}

type seedFile struct {
	Tasks []SeedTask `yaml:"tasks"`
}

// LoadSeed reads a YAML file of the form:
//
//	tasks:
//	  - title: Buy milk
//	    priority: high
//	    due_date: 2025-01-31
func LoadSeed(path string) ([]SeedTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, t := range f.Tasks {
		if t.Title == "" {
			return nil, fmt.Errorf("seed %s: task %d has no title", path, i+1)
		}
	}
	return f.Tasks, nil
}

// ApplySeed inserts the seed tasks into an empty store. A store that already
// holds tasks is left alone so a sqlite file is only seeded once.
func ApplySeed(ctx context.Context, s Store, seed []SeedTask) (int, error) {
	existing, err := s.List(ctx, Query{PageSize: 1})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, st := range seed {
		nt := tasks.NewTask{Title: st.Title, Description: st.Description, Priority: st.Priority}
		if st.DueDate != "" {
			d, err := tasks.ParseDate(st.DueDate)
			if err != nil {
				return i, fmt.Errorf("seed task %q: %w", st.Title, err)
			}
			nt.DueDate = &d
		}
		t, err := s.Create(ctx, nt)
		if err != nil {
			return i, err
		}
		if st.Status != "" {
			status, err := tasks.ParseStatus(st.Status)
			if err != nil {
				return i, fmt.Errorf("seed task %q: %w", st.Title, err)
			}
			if status != t.Status {
				if _, err := s.Update(ctx, t.ID, Patch{Status: &status}); err != nil {
					return i, err
				}
			}
		}
	}
	return len(seed), nil
}
