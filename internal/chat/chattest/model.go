// Package chattest provides a scripted chat model for tests.
package chattest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNoReply is returned when a ScriptedModel runs out of replies.
var ErrNoReply = errors.New("scripted model: no reply left")

// ScriptedModel replays canned replies. When Respond is set it is used
// instead of the queue.
type ScriptedModel struct {
	Respond func(msgs []*schema.Message) (string, error)

	mu      sync.Mutex
	replies []string
	calls   [][]*schema.Message
}

// NewScriptedModel returns a model answering with replies in order.
func NewScriptedModel(replies ...string) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

func (m *ScriptedModel) next(msgs []*schema.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	respond := m.Respond
	if respond == nil {
		if len(m.replies) == 0 {
			m.mu.Unlock()
			return "", ErrNoReply
		}
		r := m.replies[0]
		m.replies = m.replies[1:]
		m.mu.Unlock()
		return r, nil
	}
	m.mu.Unlock()
	return respond(msgs)
}

func (m *ScriptedModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	reply, err := m.next(msgs)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(reply, nil), nil
}

// Stream splits the reply into word chunks.
func (m *ScriptedModel) Stream(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := m.next(msgs)
	if err != nil {
		return nil, err
	}
	words := strings.SplitAfter(reply, " ")
	chunks := make([]*schema.Message, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, schema.AssistantMessage(w, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

// Calls returns the message lists received so far.
func (m *ScriptedModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// SystemPrompts returns the system prompt of every call ("" when absent).
func (m *ScriptedModel) SystemPrompts() []string {
	var out []string
	for _, msgs := range m.Calls() {
		sp := ""
		if len(msgs) > 0 && msgs[0].Role == schema.System {
			sp = msgs[0].Content
		}
		out = append(out, sp)
	}
	return out
}

// Source serves one model for every provider name.
type Source struct {
	Model model.BaseChatModel
}

func (s Source) Get(context.Context, string) (model.BaseChatModel, error) {
	return s.Model, nil
}
