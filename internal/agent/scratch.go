package agent

import (
	"log/slog"
	"sync"

	"github.com/teamsfx/tfx/internal/sessions"
)

// scratch remembers, per session, the request a step-by-step answer was
// given for and the latest code generated for it.
type scratch interface {
	Request(sessionID string) string
	Code(sessionID string) string
	SetRequest(sessionID, request string)
	SetCode(sessionID, code string)
	Reset(sessionID string)
}

func newScratch(store sessions.Store) scratch {
	if store == nil {
		return &memScratch{requests: map[string]string{}, code: map[string]string{}}
	}
	return &storeScratch{store: store, fallback: &memScratch{requests: map[string]string{}, code: map[string]string{}}}
}

type memScratch struct {
	mu       sync.Mutex
	requests map[string]string
	code     map[string]string
}

func (m *memScratch) Request(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

func (m *memScratch) Code(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code[id]
}

func (m *memScratch) SetRequest(id, request string) {
	m.mu.Lock()
	m.requests[id] = request
	m.mu.Unlock()
}

func (m *memScratch) SetCode(id, code string) {
	m.mu.Lock()
	m.code[id] = code
	m.mu.Unlock()
}

func (m *memScratch) Reset(id string) {
	m.mu.Lock()
	delete(m.requests, id)
	delete(m.code, id)
	m.mu.Unlock()
}

// storeScratch keeps state in the session store. Requests without a
// session fall back to memory.
type storeScratch struct {
	store    sessions.Store
	fallback *memScratch
}

func (s *storeScratch) Request(id string) string {
	if id == "" {
		return s.fallback.Request(id)
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return ""
	}
	return sess.LastRequest
}

func (s *storeScratch) Code(id string) string {
	if id == "" {
		return s.fallback.Code(id)
	}
	code, err := s.store.LoadCode(id)
	if err != nil {
		return ""
	}
	return code
}

func (s *storeScratch) SetRequest(id, request string) {
	if id == "" {
		s.fallback.SetRequest(id, request)
		return
	}
	sess, err := s.store.Get(id)
	if err != nil {
		slog.Warn("scratch: session not found", "session", id, "error", err)
		return
	}
	sess.LastRequest = request
	if err := s.store.UpdateMeta(sess); err != nil {
		slog.Warn("scratch: save request", "session", id, "error", err)
	}
}

func (s *storeScratch) SetCode(id, code string) {
	if id == "" {
		s.fallback.SetCode(id, code)
		return
	}
	if err := s.store.SaveCode(id, code); err != nil {
		slog.Warn("scratch: save code", "session", id, "error", err)
	}
}

func (s *storeScratch) Reset(id string) {
	s.SetRequest(id, "")
	s.SetCode(id, "")
}
