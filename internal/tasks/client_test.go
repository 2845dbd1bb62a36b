package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1/", nil, 5*time.Second)
}

func TestClientList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/tasks/list" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[
			{"id":2,"title":"B","description":"","status":"done","priority":"low","due_date":null},
			{"id":1,"title":"A","description":"d","status":"pending","priority":"high","due_date":"2025-01-02"}
		]`)
	})

	list, err := c.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "2" || list[1].ID != "1" {
		t.Fatalf("server order not preserved: %+v", list)
	}
}

func TestClientListNotCollection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"detail":"nope"}`)
	})

	_, err := c.List(context.Background())
	if !errors.Is(err, ErrNotCollection) {
		t.Fatalf("expected ErrNotCollection, got %v", err)
	}
}

func TestClientListMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>oops</html>`,
		"truncated":     `[{"id":1,`,
		"wrong element": `[1, 2, 3]`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})
			_, err := c.List(context.Background())
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestClientListHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.List(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError || httpErr.Body != "boom" {
		t.Errorf("unexpected error: %+v", httpErr)
	}
}

func TestClientUpdateStatus(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/tasks/update" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"message":"ok"}`)
	})

	if err := c.UpdateStatus(context.Background(), "3", StatusDone); err != nil {
		t.Fatal(err)
	}
	if got["task_id"] != float64(3) || got["status"] != "done" {
		t.Errorf("unexpected body: %v", got)
	}
	if len(got) != 2 {
		t.Errorf("update must carry only task_id and status, got %v", got)
	}
}

func TestClientUpdateStatusServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"Task not found."}`)
	})

	err := c.UpdateStatus(context.Background(), "99", StatusDone)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Message != "Task not found." {
		t.Fatalf("expected ServiceError, got %v", err)
	}
}

func TestClientCreateAndDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/tasks/create":
			var nt NewTask
			json.NewDecoder(r.Body).Decode(&nt)
			if nt.Title != "Buy milk" || nt.DueDate == nil || nt.DueDate.String() != "2025-06-01" {
				t.Errorf("unexpected create payload: %+v", nt)
			}
			io.WriteString(w, `{"message":"created","task_id":12}`)
		case "/api/v1/tasks/delete":
			if r.Method != http.MethodDelete {
				t.Errorf("delete method = %s", r.Method)
			}
			io.WriteString(w, `{"message":"deleted"}`)
		default:
			http.NotFound(w, r)
		}
	})

	due := Date{Year: 2025, Month: time.June, Day: 1}
	id, err := c.Create(context.Background(), NewTask{Title: "Buy milk", Priority: PriorityHigh, DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}
	if id != "12" {
		t.Errorf("id = %q, want 12", id)
	}
	if err := c.Delete(context.Background(), id); err != nil {
		t.Fatal(err)
	}
}

func TestClientFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var f Filter
		json.NewDecoder(r.Body).Decode(&f)
		if f.Status != StatusDone {
			t.Errorf("filter status = %q", f.Status)
		}
		io.WriteString(w, `[{"id":5,"title":"x","status":"done","priority":"low","due_date":null}]`)
	})

	list, err := c.Filter(context.Background(), Filter{Status: StatusDone})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "5" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestClientHealth(t *testing.T) {
	healthy := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"status":"OK"}`)
	})

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	healthy = false
	var httpErr *HTTPError
	if err := c.Health(context.Background()); !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected a 503 HTTPError, got %v", err)
	}
}
