package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrStaleRefresh is returned when a refresh completes after a newer one
	// has already been applied and the policy discards it.
	ErrStaleRefresh = errors.New("stale refresh discarded")
	// ErrCacheClosed is returned for operations or completions after Close.
	ErrCacheClosed = errors.New("task cache is closed")
)

// Service is the part of the remote task service the cache needs.
type Service interface {
	List(ctx context.Context) ([]Task, error)
	UpdateStatus(ctx context.Context, id ID, status Status) error
}

// RefreshPolicy decides which of several overlapping refreshes wins.
type RefreshPolicy int

const (
	// LatestRequest stamps every refresh with a sequence number and discards
	// completions older than the snapshot already held.
	LatestRequest RefreshPolicy = iota
	// LatestResponse applies every completion; whichever lands last wins.
	LatestResponse
)

// ParseRefreshPolicy maps the config spelling to a policy.
func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch s {
	case "", "latest-request":
		return LatestRequest, nil
	case "latest-response":
		return LatestResponse, nil
	}
	return LatestRequest, fmt.Errorf("unknown refresh policy %q", s)
}

func (p RefreshPolicy) String() string {
	if p == LatestResponse {
		return "latest-response"
	}
	return "latest-request"
}

// RefreshResult describes an applied refresh.
type RefreshResult struct {
	Seq     uint64
	Count   int
	Coerced bool // the service answered with a non-collection; snapshot emptied
}

// Cache holds the last-known snapshot of the task list. The snapshot is only
// ever replaced wholesale by Refresh; UpdateStatus never touches it.
type Cache struct {
	svc    Service
	policy RefreshPolicy

	mu      sync.Mutex
	tasks   []Task
	issued  uint64 // last sequence number handed out
	applied uint64 // sequence number of the snapshot held
	loaded  bool
	closed  bool
}

// NewCache creates an empty cache backed by svc.
func NewCache(svc Service, policy RefreshPolicy) *Cache {
	return &Cache{svc: svc, policy: policy}
}

// Policy returns the overlap policy in use.
func (c *Cache) Policy() RefreshPolicy {
	return c.policy
}

// Refresh fetches the task list and replaces the snapshot. On any transport,
// status or decode failure the snapshot is left untouched and the error is
// returned. A well-formed non-collection response empties the snapshot.
func (c *Cache) Refresh(ctx context.Context) (RefreshResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return RefreshResult{}, ErrCacheClosed
	}
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	list, err := c.svc.List(ctx)
	coerced := false
	if errors.Is(err, ErrNotCollection) {
		list, coerced, err = []Task{}, true, nil
	}
	if err != nil {
		return RefreshResult{Seq: seq}, fmt.Errorf("refresh tasks: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return RefreshResult{Seq: seq}, ErrCacheClosed
	}
	if c.policy == LatestRequest && seq < c.applied {
		return RefreshResult{Seq: seq}, ErrStaleRefresh
	}

	c.tasks = slices.Clone(list)
	c.applied = seq
	c.loaded = true
	return RefreshResult{Seq: seq, Count: len(list), Coerced: coerced}, nil
}

// UpdateStatus writes the status of one task to the service. The snapshot is
// not modified; callers refresh afterwards.
func (c *Cache) UpdateStatus(ctx context.Context, id ID, status Status) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrCacheClosed
	}

	if err := c.svc.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

// Snapshot returns a copy of the current task list in server order.
func (c *Cache) Snapshot() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

// Get returns the cached task with the given id.
func (c *Cache) Get(id ID) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Loaded reports whether at least one refresh has been applied.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Close makes the cache discard any completion that arrives later.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
