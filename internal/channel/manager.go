// Package channel manages the websocket session with the remote agent.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

var (
	ErrNotOpen       = errors.New("channel is not open")
	ErrAlreadyOpened = errors.New("channel already opened")
)

// Status is the lifecycle state of the session.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

// Listener receives lifecycle signals. Calls come from a single goroutine in
// arrival order. Listeners must not call Manager.Close.
type Listener interface {
	OnOpen()
	OnMessage(text string)
	// OnClose is called once. err is nil for a normal closure.
	OnClose(err error)
}

// Options tunes a Manager.
type Options struct {
	DialTimeout time.Duration
	SessionID   string // sent as X-Client-Session for server-side log correlation
	ReadLimit   int64
	Logger      *slog.Logger
}

// Manager owns exactly one websocket session for its lifetime. There is no
// reconnect: once closed, a Manager stays closed.
type Manager struct {
	url  string
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a manager for the agent endpoint at url.
func NewManager(url string, opts Options) *Manager {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		url:    url,
		opts:   opts,
		log:    log.With("component", "channel"),
		status: StatusClosed,
	}
}

// Open starts connecting in the background and returns immediately. It can
// only be called once.
func (m *Manager) Open(ctx context.Context, l Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.closed {
		return ErrAlreadyOpened
	}
	m.started = true
	m.status = StatusConnecting

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(runCtx, l)
	return nil
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Send writes one text message. It returns ErrNotOpen without writing when
// the session is not open; nothing is queued.
func (m *Manager) Send(ctx context.Context, text string) error {
	m.mu.Lock()
	conn := m.conn
	open := m.status == StatusOpen
	m.mu.Unlock()

	if !open || conn == nil {
		return ErrNotOpen
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

// Close ends the session and waits for the reader to exit. No listener call
// happens after Close returns. Calling it more than once is fine.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.status = StatusClosed
	conn, cancel, done := m.conn, m.cancel, m.done
	m.conn = nil
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "bye")
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return err
}

func (m *Manager) run(ctx context.Context, l Listener) {
	defer close(m.done)

	conn, err := m.dial(ctx)
	if err != nil {
		m.finish(l, err)
		return
	}
	conn.SetReadLimit(m.opts.ReadLimit)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "bye")
		return
	}
	m.conn = conn
	m.status = StatusOpen
	m.mu.Unlock()

	m.log.Debug("channel open", "url", m.url)
	l.OnOpen()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				err = nil
			}
			m.finish(l, err)
			return
		}
		if m.isClosed() {
			return
		}
		l.OnMessage(string(data))
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	defer cancel()

	var opts *websocket.DialOptions
	if m.opts.SessionID != "" {
		opts = &websocket.DialOptions{
			HTTPHeader: http.Header{"X-Client-Session": []string{m.opts.SessionID}},
		}
	}

	conn, _, err := websocket.Dial(dialCtx, m.url, opts)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	return conn, nil
}

// finish moves to closed and notifies the listener unless Close got there first.
func (m *Manager) finish(l Listener, err error) {
	m.mu.Lock()
	wasClosed := m.closed
	m.status = StatusClosed
	m.conn = nil
	m.mu.Unlock()

	if wasClosed {
		return
	}
	if err != nil {
		m.log.Warn("channel closed", "error", err)
	} else {
		m.log.Debug("channel closed")
	}
	l.OnClose(err)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
