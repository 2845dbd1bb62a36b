package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type listReply struct {
	tasks []Task
	err   error
}

// gatedService hands every List call to the test, which decides when and how
// it completes.
type gatedService struct {
	calls chan chan listReply

	mu      sync.Mutex
	updates []Task
	updErr  error
}

func newGatedService() *gatedService {
	return &gatedService{calls: make(chan chan listReply)}
}

func (s *gatedService) List(ctx context.Context) ([]Task, error) {
	reply := make(chan listReply, 1)
	s.calls <- reply
	r := <-reply
	return r.tasks, r.err
}

func (s *gatedService) UpdateStatus(_ context.Context, id ID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, Task{ID: id, Status: status})
	return s.updErr
}

type refreshOutcome struct {
	res RefreshResult
	err error
}

func startRefresh(c *Cache) <-chan refreshOutcome {
	done := make(chan refreshOutcome, 1)
	go func() {
		res, err := c.Refresh(context.Background())
		done <- refreshOutcome{res, err}
	}()
	return done
}

func refreshWith(t *testing.T, c *Cache, svc *gatedService, reply listReply) refreshOutcome {
	t.Helper()
	done := startRefresh(c)
	(<-svc.calls) <- reply
	return <-done
}

var buyMilk = Task{ID: "1", Title: "Buy milk", Status: StatusPending, Priority: PriorityHigh}

func TestCacheRefreshReplacesSnapshot(t *testing.T) {
	svc := newGatedService()
	c := NewCache(svc, LatestRequest)

	first := []Task{buyMilk, {ID: "2", Title: "Walk dog", Status: StatusDone, Priority: PriorityLow}}
	out := refreshWith(t, c, svc, listReply{tasks: first})
	if out.err != nil {
		t.Fatal(out.err)
	}
	if diff := cmp.Diff(first, c.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// Replaced, not merged.
	second := []Task{{ID: "3", Title: "Call mom", Status: StatusPending, Priority: PriorityMedium}}
	out = refreshWith(t, c, svc, listReply{tasks: second})
	if out.err != nil {
		t.Fatal(out.err)
	}
	if diff := cmp.Diff(second, c.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if out.res.Count != 1 || out.res.Seq != 2 {
		t.Errorf("unexpected result %+v", out.res)
	}
}

func TestCacheRefreshFailureKeepsSnapshot(t *testing.T) {
	svc := newGatedService()
	c := NewCache(svc, LatestRequest)
	refreshWith(t, c, svc, listReply{tasks: []Task{buyMilk}})

	for _, failure := range []error{
		errors.New("connection refused"),
		ErrMalformed,
		&HTTPError{Method: "GET", Path: "/tasks/list", StatusCode: 502},
	} {
		out := refreshWith(t, c, svc, listReply{err: failure})
		if !errors.Is(out.err, failure) {
			t.Errorf("expected %v, got %v", failure, out.err)
		}
		if diff := cmp.Diff([]Task{buyMilk}, c.Snapshot()); diff != "" {
			t.Errorf("snapshot changed after %v (-want +got):\n%s", failure, diff)
		}
	}
}

func TestCacheRefreshNotCollectionEmpties(t *testing.T) {
	svc := newGatedService()
	c := NewCache(svc, LatestRequest)
	refreshWith(t, c, svc, listReply{tasks: []Task{buyMilk}})

	out := refreshWith(t, c, svc, listReply{err: ErrNotCollection})
	if out.err != nil {
		t.Fatal(out.err)
	}
	if !out.res.Coerced {
		t.Error("expected Coerced result")
	}
	if got := c.Snapshot(); len(got) != 0 {
		t.Errorf("expected empty snapshot, got %+v", got)
	}
}

func TestCacheUpdateThenRefresh(t *testing.T) {
	svc := newGatedService()
	c := NewCache(svc, LatestRequest)
	refreshWith(t, c, svc, listReply{tasks: []Task{buyMilk}})

	if err := c.UpdateStatus(context.Background(), "1", StatusDone); err != nil {
		t.Fatal(err)
	}
	// The write alone never touches the snapshot.
	if got, _ := c.Get("1"); got.Status != StatusPending {
		t.Errorf("snapshot mutated by UpdateStatus: %+v", got)
	}

	done := buyMilk
	done.Status = StatusDone
	refreshWith(t, c, svc, listReply{tasks: []Task{done}})

	got, ok := c.Get("1")
	if !ok || got.Status != StatusDone {
		t.Errorf("expected task 1 done after refresh, got %+v", got)
	}
	if len(svc.updates) != 1 || svc.updates[0].ID != "1" || svc.updates[0].Status != StatusDone {
		t.Errorf("unexpected updates: %+v", svc.updates)
	}
}

func TestCacheUpdateStatusError(t *testing.T) {
	svc := newGatedService()
	svc.updErr = &ServiceError{Message: "Task not found."}
	c := NewCache(svc, LatestRequest)

	err := c.UpdateStatus(context.Background(), "9", StatusDone)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
}

// overlap runs two refreshes where the first one issued completes last.
func overlap(t *testing.T, policy RefreshPolicy) (*Cache, refreshOutcome, refreshOutcome) {
	t.Helper()
	svc := newGatedService()
	c := NewCache(svc, policy)
	if c.Policy() != policy {
		t.Fatalf("Policy() = %v, want %v", c.Policy(), policy)
	}

	firstDone := startRefresh(c)
	first := <-svc.calls
	secondDone := startRefresh(c)
	second := <-svc.calls

	second <- listReply{tasks: []Task{{ID: "2", Title: "newer", Status: StatusPending}}}
	secondOut := <-secondDone
	first <- listReply{tasks: []Task{{ID: "1", Title: "older", Status: StatusPending}}}
	firstOut := <-firstDone

	return c, firstOut, secondOut
}

func TestCacheOverlapLatestResponseWins(t *testing.T) {
	c, firstOut, secondOut := overlap(t, LatestResponse)
	if firstOut.err != nil || secondOut.err != nil {
		t.Fatalf("unexpected errors: %v, %v", firstOut.err, secondOut.err)
	}
	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Title != "older" {
		t.Errorf("expected the late first response to win, got %+v", snap)
	}
}

func TestCacheOverlapLatestRequestDiscardsStale(t *testing.T) {
	c, firstOut, secondOut := overlap(t, LatestRequest)
	if secondOut.err != nil {
		t.Fatal(secondOut.err)
	}
	if !errors.Is(firstOut.err, ErrStaleRefresh) {
		t.Errorf("expected ErrStaleRefresh, got %v", firstOut.err)
	}
	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Title != "newer" {
		t.Errorf("expected the newer request to win, got %+v", snap)
	}
}

func TestCacheCloseDiscardsLateCompletion(t *testing.T) {
	svc := newGatedService()
	c := NewCache(svc, LatestRequest)

	done := startRefresh(c)
	reply := <-svc.calls
	c.Close()
	reply <- listReply{tasks: []Task{buyMilk}}

	if out := <-done; !errors.Is(out.err, ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed, got %v", out.err)
	}
	if len(c.Snapshot()) != 0 || c.Loaded() {
		t.Error("late completion applied after Close")
	}
	if _, err := c.Refresh(context.Background()); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed on Refresh after Close, got %v", err)
	}
}

func TestParseRefreshPolicy(t *testing.T) {
	for in, want := range map[string]RefreshPolicy{
		"":                LatestRequest,
		"latest-request":  LatestRequest,
		"latest-response": LatestResponse,
	} {
		got, err := ParseRefreshPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseRefreshPolicy(%q) = %v, %v", in, got, err)
		}
		if in != "" && got.String() != in {
			t.Errorf("String() = %q, want %q", got.String(), in)
		}
	}
	if _, err := ParseRefreshPolicy("first"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
