package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// CHAT EVENTS
// =============================================================================

type ChatRequestPayload struct {
	Participant  string `json:"participant"`
	SlashCommand string `json:"slash_command,omitempty"`
	Prompt       string `json:"prompt"`
}

func (ChatRequestPayload) EventType() EventType { return EventChatRequest }

type ChatMarkdownPayload struct {
	Content string `json:"content"`
}

func (ChatMarkdownPayload) EventType() EventType { return EventChatMarkdown }

type ChatFileTreePayload struct {
	BaseURI string `json:"base_uri"`
	Tree    any    `json:"tree"`
}

func (ChatFileTreePayload) EventType() EventType { return EventChatFileTree }

type ChatButtonPayload struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

func (ChatButtonPayload) EventType() EventType { return EventChatButton }

type ChatProgressPayload struct {
	Message string `json:"message"`
}

func (ChatProgressPayload) EventType() EventType { return EventChatProgress }

type ChatResultPayload struct {
	SlashCommand string   `json:"slash_command,omitempty"`
	SampleIDs    []string `json:"sample_ids,omitempty"`
	Followups    []string `json:"followups,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func (ChatResultPayload) EventType() EventType { return EventChatResult }

// =============================================================================
// SKILL / DRIVER EVENTS
// =============================================================================

type SkillInvokedPayload struct {
	Skill      string `json:"skill"`
	Capability string `json:"capability"`
	Score      int    `json:"score"`
}

func (SkillInvokedPayload) EventType() EventType { return EventSkillInvoked }

type DriverStartedPayload struct {
	Action string `json:"action"`
	Step   string `json:"step,omitempty"`
}

func (DriverStartedPayload) EventType() EventType { return EventDriverStarted }

type DriverCompletedPayload struct {
	Action   string        `json:"action"`
	Step     string        `json:"step,omitempty"`
	Outputs  []string      `json:"outputs,omitempty"` // env var names only, never values
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

func (DriverCompletedPayload) EventType() EventType { return EventDriverCompleted }

// =============================================================================
// INTERNAL EVENTS
// =============================================================================

type LLMCallPayload struct {
	Phase        string        `json:"phase"`
	Model        string        `json:"model"`
	MessageCount int           `json:"message_count,omitempty"`
	TokensInput  int           `json:"tokens_input,omitempty"`
	TokensOutput int           `json:"tokens_output,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func (LLMCallPayload) EventType() EventType { return EventLLMCall }

type SessionCreatedPayload struct {
	Participant string `json:"participant"`
}

func (SessionCreatedPayload) EventType() EventType { return EventSessionCreated }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return NewEvent(payload.EventType(), source, toMap(payload))
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	return NewEventWithSession(payload.EventType(), source, toMap(payload), sessionID)
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
