package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/chat/chattest"
	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/sessions"
)

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	store := sessions.NewFileStore(t.TempDir())
	llm := chat.NewInteractor(chattest.Source{Model: chattest.NewScriptedModel()}, nil)
	runner := agent.NewRunner(store, bus,
		agent.NewTeams(agent.Deps{LLM: llm, Bus: bus}),
		agent.NewOfficeAddin(agent.Deps{LLM: llm, Bus: bus}),
	)
	srv := NewServer(Config{Bus: bus, Store: store, Runner: runner, Host: "localhost"})
	t.Cleanup(srv.close)
	return srv
}

func serve(srv *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body Health
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Clients != 0 {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestHandleEvents_Empty(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, http.MethodGet, "/api/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty array, got %d items", len(body))
	}
}

func TestHandleEvents_LimitParam(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 10; i++ {
		srv.bus.Publish(events.NewTypedEvent(events.SourceWS, events.ChatProgressPayload{Message: "step"}))
	}
	waitForEvents(srv.bus, 10)

	w := serve(srv, http.MethodGet, "/api/events?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 5 {
		t.Fatalf("expected 5 events with limit=5, got %d", len(body))
	}
	if body[0]["type"] != string(events.EventChatProgress) {
		t.Errorf("expected type %q, got %v", events.EventChatProgress, body[0]["type"])
	}

	if w := serve(srv, http.MethodGet, "/api/events?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestHandleChat_Help(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, http.MethodPost, "/api/chat", strings.NewReader(`{"participant":"teams","prompt":"/help"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body chatResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Result.Metadata.SlashCommand != "help" {
		t.Errorf("expected help result, got %q", body.Result.Metadata.SlashCommand)
	}
	if !strings.Contains(body.Text, "/create") {
		t.Errorf("expected help text, got %q", body.Text)
	}
	if !strings.HasPrefix(body.SessionID, "sess_") {
		t.Errorf("expected a session id, got %q", body.SessionID)
	}
	if len(body.Followups) != 1 || body.Followups[0] != chat.DefaultNextStep {
		t.Errorf("expected default next step, got %v", body.Followups)
	}

	// The turn is kept under the session.
	w = serve(srv, http.MethodGet, "/api/sessions/"+body.SessionID+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var msgs []sessions.Message
	if err := json.NewDecoder(w.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected messages %+v", msgs)
	}
}

func TestHandleChat_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"empty", `{}`, http.StatusBadRequest},
		{"unknown participant", `{"participant":"excel","prompt":"hi"}`, http.StatusNotFound},
		{"unknown command", `{"participant":"teams","prompt":"/deploy now"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(srv, http.MethodPost, "/api/chat", bytes.NewBufferString(tt.body))
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleChat_NoRunner(t *testing.T) {
	bus := events.NewBus(8)
	defer bus.Close()
	srv := NewServer(Config{Bus: bus})
	defer srv.close()

	w := serve(srv, http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hi"}`))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	w = serve(srv, http.MethodGet, "/api/sessions", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %d %q", w.Code, w.Body.String())
	}
}

func TestHandleSessions(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, http.MethodGet, "/api/sessions", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %q", w.Code, w.Body.String())
	}

	for _, p := range []string{agent.TeamsID, agent.OfficeAddinID} {
		if _, err := srv.store.Create(p); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	w = serve(srv, http.MethodGet, "/api/sessions", nil)
	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(body))
	}

	if w := serve(srv, http.MethodGet, "/api/sessions/sess_missing/messages", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)

	serve(srv, http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"/help"}`))

	// Bus subscribers run asynchronously.
	var text string
	for i := 0; i < 200; i++ {
		w := serve(srv, http.MethodGet, "/metrics", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		text = w.Body.String()
		if strings.Contains(text, `tfx_events_total{type="chat.result"}`) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, want := range []string{
		`tfx_chat_requests_total{command="help",participant="teams",status="ok"} 1`,
		`tfx_http_requests_total{method="POST",path="/api/chat",status="200"} 1`,
		`tfx_events_total{type="chat.request"} 1`,
		`tfx_events_total{type="chat.result"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
