package telemetry

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	gosentry "github.com/getsentry/sentry-go"
)

type captured struct {
	mu     sync.Mutex
	events []*gosentry.Event
}

func (c *captured) list() []*gosentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*gosentry.Event(nil), c.events...)
}

// enableForTest points the SDK at a dummy DSN and keeps events in memory.
func enableForTest(t *testing.T) *captured {
	t.Helper()
	c := &captured{}
	err := initWith(gosentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *gosentry.Event, _ *gosentry.EventHint) *gosentry.Event {
			c.mu.Lock()
			c.events = append(c.events, event)
			c.mu.Unlock()
			return nil
		},
	}, "test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { enabled.Store(false) })
	return c
}

func TestInit_EmptyDSN(t *testing.T) {
	if err := Init("", "dev"); err != nil {
		t.Fatal(err)
	}
	if Enabled() {
		t.Error("empty DSN should disable reporting")
	}
	// all no-ops
	CaptureError(errors.New("ignored"))
	SetSession("s", "ws://x", "http://x")
	Flush()
}

func TestCaptureError(t *testing.T) {
	c := enableForTest(t)

	CaptureError(nil)
	CaptureError(errors.New("update task 3: boom"))

	events := c.list()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if len(events[0].Exception) == 0 {
		t.Error("expected an exception payload")
	}
	if events[0].Tags["version"] != "test" {
		t.Errorf("tags = %v", events[0].Tags)
	}
}

func TestHandler_TeesRecords(t *testing.T) {
	c := enableForTest(t)

	var buf bytes.Buffer
	log := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).With("component", "coordinator")

	log.Info("tasks refreshed", "count", 2)
	log.Warn("task sync failed", "op", "refresh", "error", errors.New("timeout"))
	if n := len(c.list()); n != 0 {
		t.Fatalf("info/warn should not create events, got %d", n)
	}

	log.Error("fatal", "error", errors.New("boom"))

	events := c.list()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Level != gosentry.LevelError {
		t.Errorf("level = %s", ev.Level)
	}
	logCtx := ev.Contexts["log"]
	if logCtx["component"] != "coordinator" || logCtx["error"] != "boom" {
		t.Errorf("log context = %v", logCtx)
	}
	if len(ev.Breadcrumbs) < 2 {
		t.Errorf("expected breadcrumbs from earlier records, got %d", len(ev.Breadcrumbs))
	}

	out := buf.String()
	for _, want := range []string{"tasks refreshed", "task sync failed", "fatal"} {
		if !strings.Contains(out, want) {
			t.Errorf("inner handler output missing %q:\n%s", want, out)
		}
	}
}

func TestHandler_Disabled(t *testing.T) {
	enabled.Store(false)

	var buf bytes.Buffer
	log := slog.New(NewHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	log.Info("hidden")
	log.Error("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("inner level filtering not respected:\n%s", buf.String())
	}
}
