// Package coordinator reconciles the agent channel, the chat transcript and
// the task cache. Every event goes through one serialised Dispatch.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/chat"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

var (
	ErrClosed      = errors.New("coordinator is closed")
	ErrUnknownTask = errors.New("unknown task")
)

// Channel is the agent connection the coordinator drives.
type Channel interface {
	Open(ctx context.Context, l channel.Listener) error
	Send(ctx context.Context, text string) error
	Status() channel.Status
	Close() error
}

// TaskStore is the task snapshot the coordinator refreshes.
type TaskStore interface {
	Refresh(ctx context.Context) (tasks.RefreshResult, error)
	UpdateStatus(ctx context.Context, id tasks.ID, status tasks.Status) error
	Snapshot() []tasks.Task
	Get(id tasks.ID) (tasks.Task, bool)
	Loaded() bool
	Close()
}

// Options tunes a Coordinator.
type Options struct {
	Logger *slog.Logger
	// ReportError receives every swallowed network error. Optional.
	ReportError func(error)
	// Now is used for LastSync. Defaults to time.Now.
	Now func() time.Time
}

// State is the read model handed to renderers.
type State struct {
	Version     uint64
	Connection  channel.Status
	Composing   bool
	Messages    []chat.Message
	Tasks       []tasks.Task
	TasksLoaded bool
	SyncError   string // last refresh or update failure, cleared by a successful refresh
	ConnError   string // why the channel closed, if it closed abnormally
	LastSync    time.Time
}

// Coordinator owns the session state. It implements channel.Listener.
type Coordinator struct {
	ch         Channel
	cache      TaskStore
	transcript *chat.Transcript
	log        *slog.Logger
	report     func(error)
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	machine   Machine
	version   uint64
	syncErr   string
	connErr   string
	lastSync  time.Time
	refreshes int
	started   bool
	closed    bool

	changed chan struct{}
}

// New creates a coordinator over ch and cache. Nothing happens until Start.
func New(ch Channel, cache TaskStore, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ch:         ch,
		cache:      cache,
		transcript: chat.NewTranscript(),
		log:        log.With("component", "coordinator"),
		report:     opts.ReportError,
		now:        now,
		ctx:        ctx,
		cancel:     cancel,
		machine:    NewMachine(),
		changed:    make(chan struct{}, 1),
	}
}

// Start opens the agent channel. Network work is cancelled when ctx is done
// or Close is called, whichever comes first.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return channel.ErrAlreadyOpened
	}
	c.started = true
	c.mu.Unlock()

	context.AfterFunc(ctx, c.cancel)

	if err := c.Dispatch(ConnectionConnecting{}); err != nil {
		return err
	}
	if err := c.ch.Open(c.ctx, c); err != nil {
		c.Dispatch(ConnectionClosed{Err: err})
		return fmt.Errorf("open channel: %w", err)
	}
	return nil
}

// Dispatch applies one event. Transitions and transcript appends happen in
// arrival order under a single lock; sends follow right after, network
// refreshes and updates run in the background.
func (c *Coordinator) Dispatch(ev Event) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	next, effects, err := c.machine.Apply(ev)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.machine = next

	if e, ok := ev.(ConnectionClosed); ok {
		if e.Err != nil {
			c.connErr = e.Err.Error()
		}
	}

	var outgoing []string
	for _, eff := range effects {
		switch e := eff.(type) {
		case AppendMessage:
			c.transcript.Append(e.Role, e.Text)
		case SendText:
			outgoing = append(outgoing, e.Text)
		case RefreshTasks:
			c.spawnLocked(func(ctx context.Context) { c.refresh(ctx, e.Reason) })
		case UpdateTaskStatus:
			c.spawnLocked(func(ctx context.Context) { c.update(ctx, e.ID, e.Status) })
		}
	}
	c.bumpLocked()
	c.mu.Unlock()

	for _, text := range outgoing {
		if err := c.ch.Send(c.ctx, text); err != nil {
			c.log.Warn("send failed", "error", err)
			c.Dispatch(sendFailed{Err: err})
			return fmt.Errorf("send: %w", err)
		}
	}
	return nil
}

// Submit sends user text to the agent.
func (c *Coordinator) Submit(text string) error {
	return c.Dispatch(UserSubmit{Text: text})
}

// ToggleTask flips the status of a cached task.
func (c *Coordinator) ToggleTask(id tasks.ID) error {
	t, ok := c.cache.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return c.Dispatch(ToggleTask{ID: id, To: t.Status.Toggle()})
}

// RequestRefresh reloads the task list.
func (c *Coordinator) RequestRefresh(reason string) error {
	return c.Dispatch(RefreshRequested{Reason: reason})
}

// Connection returns the channel status as seen by the state machine.
func (c *Coordinator) Connection() channel.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Connection
}

// State returns a consistent copy of the session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Version:     c.version,
		Connection:  c.machine.Connection,
		Composing:   c.machine.Composing,
		Messages:    c.transcript.Messages(),
		Tasks:       c.cache.Snapshot(),
		TasksLoaded: c.cache.Loaded(),
		SyncError:   c.syncErr,
		ConnError:   c.connErr,
		LastSync:    c.lastSync,
	}
}

// Changed is signalled after every state change. Signals coalesce: a reader
// that falls behind sees one pending signal and should re-read State.
func (c *Coordinator) Changed() <-chan struct{} {
	return c.changed
}

// RefreshCount returns how many refreshes have been started.
func (c *Coordinator) RefreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

// Wait blocks until no refresh or update is in flight.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close tears the session down: the channel is closed, in-flight network
// work is cancelled and awaited, and its results are discarded.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.ch.Close()
	c.cache.Close()
	c.cancel()
	c.wg.Wait()
	return err
}

// OnOpen implements channel.Listener.
func (c *Coordinator) OnOpen() {
	c.Dispatch(ConnectionOpened{})
}

// OnMessage implements channel.Listener.
func (c *Coordinator) OnMessage(text string) {
	c.Dispatch(AgentMessage{Text: text})
}

// OnClose implements channel.Listener.
func (c *Coordinator) OnClose(err error) {
	c.Dispatch(ConnectionClosed{Err: err})
}

// spawnLocked runs fn in a tracked goroutine. c.mu must be held and c.closed
// false, so Close cannot be waiting yet.
func (c *Coordinator) spawnLocked(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

func (c *Coordinator) refresh(ctx context.Context, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.refreshes++
	c.mu.Unlock()

	res, err := c.cache.Refresh(ctx)

	c.mu.Lock()
	if c.closed || errors.Is(err, tasks.ErrCacheClosed) {
		c.mu.Unlock()
		return
	}
	switch {
	case errors.Is(err, tasks.ErrStaleRefresh):
		c.log.Debug("stale refresh discarded", "reason", reason, "seq", res.Seq)
		c.mu.Unlock()
		return
	case err != nil:
		c.syncErr = err.Error()
	default:
		c.syncErr = ""
		c.lastSync = c.now()
		if res.Coerced {
			c.log.Warn("task service returned a non-collection, snapshot emptied", "reason", reason)
		}
		c.log.Debug("tasks refreshed", "reason", reason, "count", res.Count, "seq", res.Seq)
	}
	c.bumpLocked()
	c.mu.Unlock()

	if err != nil {
		c.fail("refresh", err)
	}
}

func (c *Coordinator) update(ctx context.Context, id tasks.ID, status tasks.Status) {
	err := c.cache.UpdateStatus(ctx, id, status)
	switch {
	case errors.Is(err, tasks.ErrCacheClosed):
		return
	case err != nil:
		c.mu.Lock()
		if !c.closed {
			c.syncErr = err.Error()
			c.bumpLocked()
		}
		c.mu.Unlock()
		c.fail("update", err)
	default:
		c.log.Debug("task updated", "id", id, "status", status)
	}
	c.refresh(ctx, "toggle")
}

func (c *Coordinator) fail(op string, err error) {
	if c.ctx.Err() != nil {
		return
	}
	c.log.Warn("task sync failed", "op", op, "error", err)
	if c.report != nil {
		c.report(err)
	}
}

func (c *Coordinator) bumpLocked() {
	c.version++
	select {
	case c.changed <- struct{}{}:
	default:
	}
}
