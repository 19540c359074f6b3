package storage

import (
	"log/slog"

	"github.com/teamsfx/tfx/internal/events"
)

// UsageRecorder accumulates token counts on a session.
type UsageRecorder interface {
	AddTokenUsage(sessionID string, input, output int) error
}

// CostTracker subscribes to LLM call events and adds the tokens of every
// answered call to its session.
type CostTracker struct {
	store       UsageRecorder
	unsubscribe func()
}

// NewCostTracker creates a CostTracker listening on bus.
func NewCostTracker(bus *events.Bus, store UsageRecorder) *CostTracker {
	ct := &CostTracker{store: store}
	ct.unsubscribe = bus.Subscribe(ct.handleEvent, events.EventLLMCall)
	return ct
}

// Close unsubscribes the tracker from the event bus.
func (ct *CostTracker) Close() {
	if ct.unsubscribe != nil {
		ct.unsubscribe()
	}
}

func (ct *CostTracker) handleEvent(e events.Event) {
	if e.SessionID == "" {
		return
	}
	payload, ok := events.ExtractPayload[events.LLMCallPayload](e)
	if !ok || payload.Phase != "response" {
		return
	}
	if payload.TokensInput == 0 && payload.TokensOutput == 0 {
		return
	}
	if err := ct.store.AddTokenUsage(e.SessionID, payload.TokensInput, payload.TokensOutput); err != nil {
		slog.Debug("cost tracker: update usage", "session_id", e.SessionID, "error", err)
	}
}
