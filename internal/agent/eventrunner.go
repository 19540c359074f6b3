package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
)

// EventBus is the part of events.Bus the EventRunner needs.
type EventBus interface {
	chat.Publisher
	Subscribe(handler events.Subscriber, eventTypes ...events.EventType) func()
}

// EventRunner answers chat requests published on the bus by the gateway,
// the websocket hub or the CLI. Response parts go back on the bus under
// the request's session.
type EventRunner struct {
	runner *Runner
	bus    EventBus

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// EventRunnerConfig contains configuration for the EventRunner.
type EventRunnerConfig struct {
	Runner   *Runner
	EventBus EventBus
}

// NewEventRunner creates a new event-driven runner.
func NewEventRunner(cfg EventRunnerConfig) *EventRunner {
	ctx, cancel := context.WithCancel(context.Background())

	er := &EventRunner{
		runner:  cfg.Runner,
		bus:     cfg.EventBus,
		running: make(map[string]bool),
		ctx:     ctx,
		cancel:  cancel,
	}

	er.unsubscribe = cfg.EventBus.Subscribe(er.handleEvent, events.EventChatRequest)
	return er
}

func (er *EventRunner) handleEvent(event events.Event) {
	// Participants echo the requests they handle; only external ones count.
	if event.Source == events.SourceAgent {
		return
	}
	payload, ok := events.ExtractPayload[events.ChatRequestPayload](event)
	if !ok || (payload.Prompt == "" && payload.SlashCommand == "") {
		return
	}

	er.mu.Lock()
	if er.running[event.SessionID] {
		er.mu.Unlock()
		slog.Warn("request dropped, session busy", "session", event.SessionID)
		return
	}
	er.running[event.SessionID] = true
	er.mu.Unlock()

	er.wg.Add(1)
	go er.process(event.SessionID, payload)
}

func (er *EventRunner) process(sessionID string, payload events.ChatRequestPayload) {
	defer er.wg.Done()
	defer func() {
		er.mu.Lock()
		delete(er.running, sessionID)
		er.mu.Unlock()
	}()

	req := &chat.Request{
		Participant:  payload.Participant,
		SlashCommand: payload.SlashCommand,
		Prompt:       payload.Prompt,
		SessionID:    sessionID,
	}
	// The session is opened first so response parts carry its id.
	if p, ok := er.runner.Participant(req.Participant); ok && er.runner.store != nil {
		if err := er.runner.prepareSession(er.ctx, p.ID, req); err != nil {
			slog.Error("chat request failed", "session", sessionID, "error", err)
			return
		}
	}
	req.Stream = chat.NewBusStream(er.bus, req.SessionID)
	if _, err := er.runner.Run(er.ctx, req); err != nil {
		slog.Error("chat request failed", "session", sessionID, "error", err)
		er.bus.Publish(events.NewTypedEventWithSession(events.SourceAgent,
			events.ChatResultPayload{SlashCommand: payload.SlashCommand, Error: err.Error()}, req.SessionID))
	}
}

// Wait blocks until in-flight requests have finished.
func (er *EventRunner) Wait() {
	er.wg.Wait()
}

// Close stops the event runner.
func (er *EventRunner) Close() {
	er.cancel()
	if er.unsubscribe != nil {
		er.unsubscribe()
	}
}
