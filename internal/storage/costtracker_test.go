package storage

import (
	"testing"
	"time"

	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/sessions"
)

func publishLLMEvent(bus *events.Bus, sessionID, phase string, tokensIn, tokensOut int) {
	payload := events.LLMCallPayload{
		Phase:        phase,
		Model:        "test-model",
		TokensInput:  tokensIn,
		TokensOutput: tokensOut,
	}
	bus.Publish(events.NewTypedEventWithSession(events.SourceAgent, payload, sessionID))
}

func TestCostTracker_Accumulation(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()

	store := sessions.NewFileStore(t.TempDir())
	sess, err := store.Create("teams")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	ct := NewCostTracker(bus, store)
	defer ct.Close()

	publishLLMEvent(bus, sess.ID, "response", 100, 50)
	publishLLMEvent(bus, sess.ID, "response", 200, 80)

	waitFor(t, func() bool {
		got, err := store.Get(sess.ID)
		return err == nil && got.TokenUsage.Input == 300 && got.TokenUsage.Output == 130
	})
}

func TestCostTracker_IgnoresOtherPhases(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()

	store := sessions.NewFileStore(t.TempDir())
	sess, err := store.Create("teams")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	ct := NewCostTracker(bus, store)
	defer ct.Close()

	publishLLMEvent(bus, sess.ID, "request", 100, 0)
	publishLLMEvent(bus, sess.ID, "error", 0, 0)
	publishLLMEvent(bus, sess.ID, "response", 0, 0)
	publishLLMEvent(bus, "", "response", 100, 50)

	time.Sleep(150 * time.Millisecond)

	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TokenUsage != (sessions.TokenUsage{}) {
		t.Errorf("token usage = %+v, want zero", got.TokenUsage)
	}
}

func TestCostTracker_UnknownSession(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()

	ct := NewCostTracker(bus, sessions.NewFileStore(t.TempDir()))
	defer ct.Close()

	publishLLMEvent(bus, "sess_missing", "response", 10, 5)
	time.Sleep(50 * time.Millisecond)
}
