// Package sessions persists chat conversations so multi-turn flows
// (clarify, then generate, then fix) survive between requests.
package sessions

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Session holds metadata about a conversation with one participant.
type Session struct {
	ID           string     `json:"id"`
	Participant  string     `json:"participant"`
	Title        string     `json:"title,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MessageCount int        `json:"message_count"`
	// LastRequest is the user request the agent is still working on,
	// e.g. the original ask while a clarification is pending.
	LastRequest  string     `json:"last_request,omitempty"`
	LastResponse string     `json:"last_response,omitempty"`
	TokenUsage   TokenUsage `json:"token_usage"`
}

// TokenUsage is the model tokens spent answering a session.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Message is a single turn in a conversation, serializable to JSONL.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Command string    `json:"command,omitempty"`
	Ts      time.Time `json:"ts"`
}

// ToSchemaMessage converts a session Message to an Eino schema.Message.
func (m Message) ToSchemaMessage() *schema.Message {
	return &schema.Message{
		Role:    schema.RoleType(m.Role),
		Content: m.Content,
	}
}

// NewMessageFromSchema converts an Eino schema.Message to a session Message.
func NewMessageFromSchema(msg *schema.Message) Message {
	return Message{
		Role:    string(msg.Role),
		Content: msg.Content,
		Ts:      time.Now(),
	}
}

// Store defines the persistence interface for sessions.
type Store interface {
	Create(participant string) (*Session, error)
	Get(id string) (*Session, error)
	List() ([]*Session, error)
	UpdateMeta(s *Session) error
	Delete(id string) error
	AppendMessage(sessionID string, msg Message) error
	LoadMessages(sessionID string) ([]Message, error)
	// SaveCode and LoadCode hold the last generated code snippet.
	SaveCode(sessionID, code string) error
	LoadCode(sessionID string) (string, error)
}
