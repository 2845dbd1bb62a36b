package devserver

import (
	"context"
	"errors"
	"strings"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// ErrTaskNotFound is returned when no task has the requested id.
var ErrTaskNotFound = errors.New("task not found")

// Query selects a page of tasks. Page numbers start at 1.
type Query struct {
	Filter   tasks.Filter
	Page     int
	PageSize int
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 100
	}
	return q
}

func (q Query) offset() int {
	return (q.Page - 1) * q.PageSize
}

// Patch lists the fields an update changes. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *tasks.Status
	DueDate     *tasks.Date
}

func (p Patch) apply(t *tasks.Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
}

// Store persists the task list served by the dev server. Listing order is
// creation order.
type Store interface {
	List(ctx context.Context, q Query) ([]tasks.Task, error)
	Create(ctx context.Context, t tasks.NewTask) (tasks.Task, error)
	Update(ctx context.Context, id tasks.ID, p Patch) (tasks.Task, error)
	Delete(ctx context.Context, id tasks.ID) (tasks.Task, error)
	Close() error
}

// OpenStore returns an in-memory store for "" or "memory", and a sqlite
// store at the given path otherwise.
func OpenStore(spec string) (Store, error) {
	switch strings.TrimSpace(spec) {
	case "", "memory":
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(spec)
}

func matches(f tasks.Filter, t tasks.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && !strings.EqualFold(t.Priority, f.Priority) {
		return false
	}
	if f.DueDate != nil && (t.DueDate == nil || *t.DueDate != *f.DueDate) {
		return false
	}
	return true
}

func newTaskRecord(id tasks.ID, nt tasks.NewTask) tasks.Task {
	priority := nt.Priority
	if priority == "" {
		priority = tasks.PriorityMedium
	}
	return tasks.Task{
		ID:          id,
		Title:       nt.Title,
		Description: nt.Description,
		Status:      tasks.StatusPending,
		Priority:    priority,
		DueDate:     nt.DueDate,
	}
}
