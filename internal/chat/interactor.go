package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ModelSource resolves a chat model by provider name ("" = default).
type ModelSource interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Interactor runs single LLM round trips on behalf of handlers.
type Interactor struct {
	models  ModelSource
	handler callbacks.Handler
}

// NewInteractor creates an Interactor. handler, when non-nil, receives the
// eino model callbacks of every call.
func NewInteractor(models ModelSource, handler callbacks.Handler) *Interactor {
	return &Interactor{models: models, handler: handler}
}

// Messages builds the conversation sent for req: system prompt, history,
// then the user prompt.
func Messages(req *Request, systemPrompt string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.History)+2)
	if systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	msgs = append(msgs, req.History...)
	msgs = append(msgs, schema.UserMessage(req.Prompt))
	return msgs
}

// Ask sends one request and returns the full reply text.
func (i *Interactor) Ask(ctx context.Context, req *Request, systemPrompt string) (string, error) {
	m, ctx, err := i.model(ctx, req)
	if err != nil {
		return "", err
	}

	start := time.Now()
	msg, err := m.Generate(ctx, Messages(req, systemPrompt))
	slog.Debug("llm ask", "model", req.Model, "elapsed", time.Since(start), "error", err)
	if err != nil {
		return "", fmt.Errorf("llm ask: %w", err)
	}
	return msg.Content, nil
}

// Verbatim streams the reply into req.Stream as markdown and returns the
// accumulated text.
func (i *Interactor) Verbatim(ctx context.Context, req *Request, systemPrompt string) (string, error) {
	m, ctx, err := i.model(ctx, req)
	if err != nil {
		return "", err
	}
	out := req.Stream
	if out == nil {
		out = Discard
	}

	start := time.Now()
	stream, err := m.Stream(ctx, Messages(req, systemPrompt))
	if err != nil {
		return "", fmt.Errorf("llm stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sb.String(), fmt.Errorf("llm stream: %w", err)
		}
		if chunk.Content == "" {
			continue
		}
		sb.WriteString(chunk.Content)
		out.Markdown(chunk.Content)
	}
	slog.Debug("llm verbatim", "model", req.Model, "elapsed", time.Since(start), "chars", sb.Len())
	return sb.String(), nil
}

func (i *Interactor) model(ctx context.Context, req *Request) (model.BaseChatModel, context.Context, error) {
	if i.models == nil {
		return nil, ctx, errors.New("no model source configured")
	}
	m, err := i.models.Get(ctx, req.Model)
	if err != nil {
		return nil, ctx, fmt.Errorf("resolve model: %w", err)
	}
	if i.handler != nil {
		name := req.Model
		if name == "" {
			name = "default"
		}
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      name,
			Component: components.ComponentOfChatModel,
		}, i.handler)
	}
	return m, ctx, nil
}
