package devserver

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// MemoryStore keeps tasks in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	tasks []tasks.Task
	next  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{next: 1}
}

func (s *MemoryStore) List(_ context.Context, q Query) ([]tasks.Task, error) {
	q = q.normalized()
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []tasks.Task{}
	for _, t := range s.tasks {
		if matches(q.Filter, t) {
			matched = append(matched, t)
		}
	}
	lo := min(q.offset(), len(matched))
	hi := min(lo+q.PageSize, len(matched))
	return slices.Clone(matched[lo:hi]), nil
}

func (s *MemoryStore) Create(_ context.Context, nt tasks.NewTask) (tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTaskRecord(tasks.ID(strconv.Itoa(s.next)), nt)
	s.next++
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *MemoryStore) Update(_ context.Context, id tasks.ID, p Patch) (tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return tasks.Task{}, ErrTaskNotFound
	}
	p.apply(&s.tasks[i])
	return s.tasks[i], nil
}

func (s *MemoryStore) Delete(_ context.Context, id tasks.ID) (tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return tasks.Task{}, ErrTaskNotFound
	}
	t := s.tasks[i]
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return t, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) index(id tasks.ID) int {
	return slices.IndexFunc(s.tasks, func(t tasks.Task) bool { return t.ID == id })
}
