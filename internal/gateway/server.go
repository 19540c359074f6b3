// Package gateway serves the chat participants over HTTP and websocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/gateway/ws"
	"github.com/teamsfx/tfx/internal/sessions"
)

// ChatRunner answers one conversation turn.
type ChatRunner interface {
	Run(ctx context.Context, req *chat.Request) (agent.Reply, error)
}

// Config holds the collaborators of a Server.
type Config struct {
	Bus    *events.Bus
	Store  sessions.Store
	Runner ChatRunner
	Host   string
	Port   int
}

// Server is the tfx gateway HTTP server.
type Server struct {
	httpServer  *http.Server
	hub         *ws.Hub
	bus         *events.Bus
	store       sessions.Store
	runner      ChatRunner
	metrics     *Metrics
	unsubscribe func()
}

// NewServer creates a new gateway server.
func NewServer(cfg Config) *Server {
	metrics := NewMetrics()
	hub := ws.NewHub(cfg.Bus, cfg.Store)

	s := &Server{
		hub:         hub,
		bus:         cfg.Bus,
		store:       cfg.Store,
		runner:      cfg.Runner,
		metrics:     metrics,
		unsubscribe: cfg.Bus.Subscribe(metrics.CountEvent),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", hub.ServeWS)
	r.Get("/api/events", s.handleEvents)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/sessions", s.handleSessions)
	r.Get("/api/sessions/{id}/messages", s.handleSessionMessages)
	r.Handle("/metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("tfx gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Health{Status: "ok", Clients: s.hub.ClientCount()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	history := s.bus.History(limit)
	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	Participant string            `json:"participant,omitempty"`
	Command     string            `json:"command,omitempty"`
	Prompt      string            `json:"prompt"`
	SessionID   string            `json:"session_id,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
}

type chatResponse struct {
	SessionID string          `json:"session_id,omitempty"`
	Text      string          `json:"text"`
	Parts     []chat.Part     `json:"parts"`
	Followups []chat.Followup `json:"followups"`
	Result    chat.Result     `json:"result"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not available")
		return
	}
	var body chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if body.Prompt == "" && body.Command == "" {
		writeError(w, http.StatusBadRequest, "prompt or command is required")
		return
	}

	req := &chat.Request{
		Participant:  body.Participant,
		SlashCommand: body.Command,
		Prompt:       body.Prompt,
		SessionID:    body.SessionID,
		Variables:    body.Variables,
	}
	start := time.Now()
	reply, err := s.runner.Run(r.Context(), req)
	s.metrics.ChatDuration.WithLabelValues(req.Participant).Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case err == nil:
		if reply.Result.ErrorDetails != "" {
			status = "error"
		}
	case errors.Is(err, agent.ErrUnknownParticipant):
		s.metrics.ChatRequestsTotal.WithLabelValues(body.Participant, body.Command, "rejected").Inc()
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, chat.ErrUnknownCommand), errors.Is(err, chat.ErrNotHandled):
		s.metrics.ChatRequestsTotal.WithLabelValues(req.Participant, body.Command, "rejected").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		s.metrics.ChatRequestsTotal.WithLabelValues(req.Participant, body.Command, "error").Inc()
		slog.Error("chat request failed", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.ChatRequestsTotal.WithLabelValues(req.Participant, reply.Result.Metadata.SlashCommand, status).Inc()

	parts := reply.Parts
	if parts == nil {
		parts = []chat.Part{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: reply.SessionID,
		Text:      reply.Text(),
		Parts:     parts,
		Followups: reply.Followups,
		Result:    reply.Result,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	list, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*sessions.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "sessions are not stored")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	msgs, err := s.store.LoadMessages(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []sessions.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
