package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// chatClient is one connected chat session.
type chatClient struct {
	conn     *websocket.Conn
	send     chan string
	threadID string
	hub      *Hub
}

// Hub accepts chat websockets and answers each message through the agent.
type Hub struct {
	agent *Agent
	log   *slog.Logger

	mu      sync.RWMutex
	clients map[*chatClient]struct{}
}

// NewHub creates a hub answering with agent.
func NewHub(agent *Agent, log *slog.Logger) *Hub {
	return &Hub{
		agent:   agent,
		log:     log,
		clients: make(map[*chatClient]struct{}),
	}
}

func (h *Hub) register(c *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.log.Info("chat client connected", "thread_id", c.threadID, "clients", len(h.clients))
}

func (h *Hub) unregister(c *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Info("chat client disconnected", "thread_id", c.threadID, "clients", len(h.clients))
	}
}

// Clients returns the number of connected chat sessions.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and runs the session until either side closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		h.log.Error("ws accept", "error", err)
		return
	}

	client := &chatClient{
		conn:     conn,
		send:     make(chan string, 16),
		threadID: uuid.NewString(),
		hub:      h,
	}
	if sid := r.Header.Get("X-Client-Session"); sid != "" {
		h.log.Debug("chat session", "thread_id", client.threadID, "client_session", sid)
	}

	h.register(client)
	client.send <- Greeting

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump answers every text message with exactly one reply, in order.
func (c *chatClient) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.hub.log.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				c.hub.log.Debug("ws read error", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		reply := c.hub.agent.Reply(ctx, string(data))
		c.hub.log.Debug("chat turn", "thread_id", c.threadID, "message", string(data), "reply", reply)
		select {
		case c.send <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (c *chatClient) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close disconnects every chat client.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
	}
}
