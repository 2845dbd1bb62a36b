// Command sync_flow exercises the chat and task sync lifecycle against a
// running service (for example `taskpilot serve`).
//
// It opens a session, asks the agent to create a task, waits for the task to
// show up in the synced list, toggles it, and checks the refreshed status.
//
// Usage: sync_flow -chat ws://127.0.0.1:PORT/api/v1/chat -api http://127.0.0.1:PORT/api/v1
//
// Exit codes:
//
//	0 = all checks passed
//	1 = a check failed
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/coordinator"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

func main() {
	chatURL := flag.String("chat", "ws://127.0.0.1:8000/api/v1/chat", "Agent websocket URL")
	apiURL := flag.String("api", "http://127.0.0.1:8000/api/v1", "Task service base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *chatURL, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, chatURL, apiURL string) error {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	title := "E2e check " + uuid.NewString()[:8]

	// ── Step 1: Open the session ────────────────────────────────────────
	ch := channel.NewManager(chatURL, channel.Options{SessionID: uuid.NewString(), Logger: log})
	cache := tasks.NewCache(tasks.NewClient(apiURL, nil, 10*time.Second), tasks.LatestRequest)
	sess := coordinator.New(ch, cache, coordinator.Options{Logger: log})
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if _, err := waitFor(ctx, sess, func(s coordinator.State) bool {
		return s.Connection == channel.StatusOpen && s.TasksLoaded
	}); err != nil {
		return fmt.Errorf("waiting for open channel and first sync: %w", err)
	}
	fmt.Println("CHECK channel open, task list loaded")

	// ── Step 2: Ask the agent to create a task ──────────────────────────
	// The greeting may still be in flight; wait for it before sending.
	if _, err := waitFor(ctx, sess, func(s coordinator.State) bool { return len(s.Messages) > 0 }); err != nil {
		return fmt.Errorf("waiting for greeting: %w", err)
	}
	if err := sess.Submit("create a task to " + title); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Println("CHECK message sent")

	// ── Step 3: The reply triggers a refresh that includes the task ────
	var created tasks.Task
	if _, err := waitFor(ctx, sess, func(s coordinator.State) bool {
		for _, t := range s.Tasks {
			if strings.EqualFold(t.Title, title) {
				created = t
				return !s.Composing
			}
		}
		return false
	}); err != nil {
		return fmt.Errorf("waiting for created task: %w", err)
	}
	fmt.Printf("CHECK task %s synced with status %s\n", created.ID, created.Status)

	// ── Step 4: Toggle it and wait for the refreshed status ─────────────
	want := created.Status.Toggle()
	if err := sess.ToggleTask(created.ID); err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	final, err := waitFor(ctx, sess, func(s coordinator.State) bool {
		for _, t := range s.Tasks {
			if t.ID == created.ID {
				return t.Status == want
			}
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("waiting for toggled status: %w", err)
	}
	fmt.Printf("CHECK task %s is now %s\n", created.ID, want)

	if final.SyncError != "" {
		return fmt.Errorf("sync error reported: %s", final.SyncError)
	}

	fmt.Println("CHECK all flow checks passed")
	return nil
}

func waitFor(ctx context.Context, sess *coordinator.Coordinator, cond func(coordinator.State) bool) (coordinator.State, error) {
	for {
		s := sess.State()
		if cond(s) {
			return s, nil
		}
		if s.Connection == channel.StatusClosed && s.ConnError != "" {
			return s, fmt.Errorf("channel closed: %s", s.ConnError)
		}
		select {
		case <-sess.Changed():
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}
