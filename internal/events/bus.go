// Package events carries chat, skill, driver and session events between the
// agent, the gateway and the CLI.
package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
)

// EventType represents the type of event.
type EventType string

const (
	// Chat: request in, response parts out
	EventChatRequest  EventType = "chat.request"
	EventChatMarkdown EventType = "chat.markdown"
	EventChatFileTree EventType = "chat.filetree"
	EventChatButton   EventType = "chat.button"
	EventChatProgress EventType = "chat.progress"
	EventChatResult   EventType = "chat.result"

	// Skills
	EventSkillInvoked EventType = "skill.invoked"

	// Drivers
	EventDriverStarted   EventType = "driver.started"
	EventDriverCompleted EventType = "driver.completed"

	// Internal (analytics/tracing)
	EventLLMCall EventType = "internal.llm.call"

	// Session lifecycle
	EventSessionCreated EventType = "session.created"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceAgent   EventSource = "agent"
	SourceGateway EventSource = "gateway"
	SourceWS      EventSource = "ws"
	SourceDriver  EventSource = "driver"
	SourceSkill   EventSource = "skill"
	SourceCLI     EventSource = "cli"
)

// Event represents an event in the system.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

// NewEventWithSession creates a new event with session context.
func NewEventWithSession(eventType EventType, source EventSource, payload map[string]any, sessionID string) Event {
	return Event{
		ID:        generateEventID(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

func generateEventID() string {
	return uuid.NewString()
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// subscription delivers matching events to its handler one at a time, in
// publish order. A full mailbox drops events for that subscriber only.
type subscription struct {
	eventTypes []EventType
	handler    Subscriber
	mailbox    chan Event
	stop       chan struct{}
	stopOnce   sync.Once
	onExit     func()
}

func (s *subscription) matches(t EventType) bool {
	return len(s.eventTypes) == 0 || slices.Contains(s.eventTypes, t)
}

func (s *subscription) run() {
	if s.onExit != nil {
		defer s.onExit()
	}
	for {
		select {
		case <-s.stop:
			return
		case e := <-s.mailbox:
			s.handler(e)
		}
	}
}

func (s *subscription) close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// DefaultBufferSize is used when NewBus is given a non-positive size.
const DefaultBufferSize = 1024

// Bus is an in-memory event bus. Publish never blocks; a single dispatcher
// records events in the history and fans them out to subscriber mailboxes.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	eventChan   chan Event
	bufferSize  int
	history     *RingBuffer
	closed      bool
	done        chan struct{}
}

// NewBus creates an event bus keeping the last bufferSize events.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	b := &Bus{
		subscribers: make(map[int]*subscription),
		eventChan:   make(chan Event, bufferSize),
		bufferSize:  bufferSize,
		history:     NewRingBuffer(bufferSize),
		done:        make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case event := <-b.eventChan:
			b.history.Add(event)
			b.fanOut(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) fanOut(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.matches(event.Type) {
			continue
		}
		select {
		case sub.mailbox <- event:
		default:
			slog.Warn("event dropped, subscriber behind", "subscriber", id, "type", event.Type, "session_id", event.SessionID)
		}
	}
}

// Publish queues an event. It is dropped when the bus is closed or full.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return
	}

	select {
	case b.eventChan <- event:
	default:
		slog.Warn("event dropped, bus full", "type", event.Type, "session_id", event.SessionID)
	}
}

// PublishAsync queues an event, waiting for room until ctx is done.
func (b *Bus) PublishAsync(ctx context.Context, event Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return ErrBusClosed
	}

	select {
	case b.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for the given event types, or for every
// event when none is given. The returned function unsubscribes; it does
// not wait for a handler call in progress.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	return b.subscribe(handler, nil, eventTypes)
}

func (b *Bus) subscribe(handler Subscriber, onExit func(), eventTypes []EventType) func() {
	sub := &subscription{
		eventTypes: eventTypes,
		handler:    handler,
		mailbox:    make(chan Event, b.bufferSize),
		stop:       make(chan struct{}),
		onExit:     onExit,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		go sub.run()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub
	b.mu.Unlock()

	go sub.run()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		sub.close()
	}
}

// SubscribeChan returns a channel receiving the given event types. Events
// are dropped when the channel is full. The channel is closed once
// unsubscribed.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	unsubscribe := b.subscribe(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}, func() { close(ch) }, eventTypes)
	return ch, unsubscribe
}

// History returns up to limit of the most recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.history.Get(limit)
}

// Close stops dispatching and ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	// eventChan stays open: a concurrent Publish may still be sending.
	b.closed = true
	close(b.done)
	for id, sub := range b.subscribers {
		sub.close()
		delete(b.subscribers, id)
	}
}

// RingBuffer is a circular buffer for storing recent events.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

// NewRingBuffer creates a new ring buffer.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

func (r *RingBuffer) Add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = event
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *RingBuffer) Get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Event, n)
	start := (r.pos - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result[i] = r.events[(start+i)%r.size]
	}
	return result
}
