// Package devserver is a local stand-in for the remote task service: a chat
// websocket answered by a rule-based agent and the task HTTP endpoints, all
// under /api/v1.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the dev HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *Hub
	store      Store
	log        *slog.Logger
}

// NewServer wires the routes over store. Pass port 0 to pick a free port.
func NewServer(store Store, host string, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "devserver")

	s := &Server{
		hub:   NewHub(NewAgent(store), log),
		store: store,
		log:   log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/chat", s.hub.ServeWS)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/list", s.handleList)
			r.Post("/filter", s.handleFilter)
			r.Post("/create", s.handleCreate)
			r.Put("/update", s.handleUpdate)
			r.Delete("/delete", s.handleDelete)
		})
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info("taskpilot dev server listening",
		"chat_url", "ws://"+ln.Addr().String()+"/api/v1/chat",
		"api_url", "http://"+ln.Addr().String()+"/api/v1",
	)
	return s.httpServer.Serve(ln)
}

// Shutdown disconnects chat clients and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK", "message": "Service is healthy."})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
