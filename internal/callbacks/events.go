// Package callbacks reports chat model calls made for a session on the
// event bus, where the gateway metrics and the usage tracker pick them up.
package callbacks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	ub "github.com/cloudwego/eino/utils/callbacks"

	"github.com/teamsfx/tfx/internal/events"
)

// maxErrorLen bounds the error text carried by an error event.
const maxErrorLen = 1000

// Publisher is the subset of the event bus the handler needs.
type Publisher interface {
	Publish(event events.Event)
}

type startKey struct{}

// NewEventBusHandler returns a handler publishing a request event when a
// model call starts and a response or error event when it ends. Response
// events carry the token usage and the call duration; streamed replies
// are reported once the stream is drained.
func NewEventBusHandler(bus Publisher, source events.EventSource) callbacks.Handler {
	if source == "" {
		source = events.SourceAgent
	}
	publish := func(ctx context.Context, payload events.LLMCallPayload) {
		sid := events.SessionIDFromContext(ctx)
		bus.Publish(events.NewTypedEventWithSession(source, payload, sid))
	}

	h := &ub.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *callbacks.RunInfo, input *model.CallbackInput) context.Context {
			publish(ctx, events.LLMCallPayload{
				Phase:        "request",
				Model:        info.Name,
				MessageCount: len(input.Messages),
			})
			return context.WithValue(ctx, startKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *callbacks.RunInfo, output *model.CallbackOutput) context.Context {
			p := events.LLMCallPayload{Phase: "response", Model: info.Name, Duration: elapsed(ctx)}
			addUsage(&p, output)
			publish(ctx, p)
			return ctx
		},
		OnEndWithStreamOutput: func(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()
				p := events.LLMCallPayload{Phase: "response", Model: info.Name}
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						slog.Debug("model stream callback", "model", info.Name, "error", err)
						break
					}
					addUsage(&p, chunk)
				}
				p.Duration = elapsed(ctx)
				publish(ctx, p)
			}()
			return ctx
		},
		OnError: func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			publish(ctx, events.LLMCallPayload{
				Phase:    "error",
				Model:    info.Name,
				Duration: elapsed(ctx),
				Error:    truncatePayload(err.Error(), maxErrorLen),
			})
			return ctx
		},
	}

	return ub.NewHandlerHelper().ChatModel(h).Handler()
}

// addUsage keeps the largest counts seen. Providers either repeat the
// running totals on every chunk or send them once at the end.
func addUsage(p *events.LLMCallPayload, out *model.CallbackOutput) {
	if out == nil {
		return
	}
	in, gen := 0, 0
	switch {
	case out.TokenUsage != nil:
		in, gen = out.TokenUsage.PromptTokens, out.TokenUsage.CompletionTokens
	case out.Message != nil && out.Message.ResponseMeta != nil && out.Message.ResponseMeta.Usage != nil:
		in, gen = out.Message.ResponseMeta.Usage.PromptTokens, out.Message.ResponseMeta.Usage.CompletionTokens
	}
	p.TokensInput = max(p.TokensInput, in)
	p.TokensOutput = max(p.TokensOutput, gen)
}

func elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

func truncatePayload(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
