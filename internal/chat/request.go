// Package chat holds the request/response plumbing shared by the chat
// participants: requests, response streams, results, slash-command routing
// and the LLM interaction helpers.
package chat

import (
	"github.com/cloudwego/eino/schema"
)

// Request is one user turn addressed to a participant.
type Request struct {
	ID           string
	Participant  string
	SlashCommand string
	Prompt       string
	History      []*schema.Message
	Stream       ResponseStream
	// Model names the provider to use; empty means the registry default.
	Model     string
	Variables map[string]string
	SessionID string
}

// WithPrompt returns a shallow copy of the request carrying a different prompt.
func (r *Request) WithPrompt(prompt string) *Request {
	c := *r
	c.Prompt = prompt
	return &c
}

// WithHistory returns a shallow copy of the request with the given history.
func (r *Request) WithHistory(history []*schema.Message) *Request {
	c := *r
	c.History = history
	return &c
}

// Var returns a request variable or "".
func (r *Request) Var(key string) string {
	if r.Variables == nil {
		return ""
	}
	return r.Variables[key]
}

// LastResponse returns the content of the most recent assistant turn.
func (r *Request) LastResponse() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == schema.Assistant {
			return r.History[i].Content
		}
	}
	return ""
}

// LastRequest returns the content of the most recent user turn in history.
func (r *Request) LastRequest() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == schema.User {
			return r.History[i].Content
		}
	}
	return ""
}
