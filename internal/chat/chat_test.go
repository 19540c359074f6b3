package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/teamsfx/tfx/internal/chat/chattest"
	"github.com/teamsfx/tfx/internal/events"
)

func TestOwner_Routing(t *testing.T) {
	var got []string
	mk := func(name string) Handler {
		return func(_ context.Context, _ *Request) (HandlerResult, error) {
			got = append(got, name)
			return NewResult(name), nil
		}
	}
	o := NewOwner("help", mk("default"))
	o.Add(
		SlashCommand{Name: "help", Handler: mk("help")},
		SlashCommand{Name: "create", Handler: mk("create")},
	)

	ctx := context.Background()
	if _, err := o.Handle(ctx, &Request{SlashCommand: "create", Prompt: "x"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, err := o.Handle(ctx, &Request{Prompt: "   "}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, err := o.Handle(ctx, &Request{Prompt: "hello"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	want := []string{"create", "help", "default"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOwner_UnknownCommand(t *testing.T) {
	o := NewOwner("", nil)
	_, err := o.Handle(context.Background(), &Request{SlashCommand: "nope"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestOwner_NoDefaultNotHandled(t *testing.T) {
	o := NewOwner("", nil)
	_, err := o.Handle(context.Background(), &Request{Prompt: "hi"})
	if !errors.Is(err, ErrNotHandled) {
		t.Errorf("expected ErrNotHandled, got %v", err)
	}
}

func TestOwner_FollowUpsCapped(t *testing.T) {
	o := NewOwner("", func(context.Context, *Request) (HandlerResult, error) {
		return NewResult("create",
			Followup{Label: "a"}, Followup{Label: "b"}, Followup{Label: "c"}, Followup{Label: "d"}), nil
	})
	res, err := o.Handle(context.Background(), &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Followups) != MaxFollowUps {
		t.Fatalf("expected %d follow-ups, got %d", MaxFollowUps, len(res.Followups))
	}
	if res.Followups[2].Label != "c" {
		t.Errorf("expected the first follow-ups kept, got %v", res.Followups)
	}
}

func TestCapFollowUps_Default(t *testing.T) {
	f := CapFollowUps(nil)
	if len(f) != 1 || f[0] != DefaultNextStep {
		t.Errorf("expected DefaultNextStep, got %v", f)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in, cmd, rest string
	}{
		{"/create a bot", "create", "a bot"},
		{"/help", "help", ""},
		{"hello /create", "", "hello /create"},
	}
	for _, tt := range tests {
		cmd, rest := ParseCommand(tt.in)
		if cmd != tt.cmd || rest != tt.rest {
			t.Errorf("ParseCommand(%q) = (%q, %q), want (%q, %q)", tt.in, cmd, rest, tt.cmd, tt.rest)
		}
	}
}

func TestRequest_HistoryAccessors(t *testing.T) {
	req := &Request{History: []*schema.Message{
		schema.UserMessage("first"),
		schema.AssistantMessage("answer one", nil),
		schema.UserMessage("second"),
	}}
	if got := req.LastResponse(); got != "answer one" {
		t.Errorf("expected %q, got %q", "answer one", got)
	}
	if got := req.LastRequest(); got != "second" {
		t.Errorf("expected %q, got %q", "second", got)
	}

	c := req.WithPrompt("changed")
	if req.Prompt != "" || c.Prompt != "changed" {
		t.Error("WithPrompt must not mutate the original request")
	}
}

func TestInteractor_Ask(t *testing.T) {
	m := chattest.NewScriptedModel("the answer")
	it := NewInteractor(chattest.Source{Model: m}, nil)

	req := &Request{Prompt: "question", History: []*schema.Message{schema.UserMessage("earlier")}}
	got, err := it.Ask(context.Background(), req, "be brief")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "the answer" {
		t.Errorf("expected %q, got %q", "the answer", got)
	}

	calls := m.Calls()
	if len(calls) != 1 || len(calls[0]) != 3 {
		t.Fatalf("expected one call with 3 messages, got %v", calls)
	}
	if calls[0][0].Role != schema.System || calls[0][0].Content != "be brief" {
		t.Errorf("expected system prompt first, got %+v", calls[0][0])
	}
	if calls[0][2].Content != "question" {
		t.Errorf("expected user prompt last, got %q", calls[0][2].Content)
	}
}

func TestInteractor_VerbatimStreams(t *testing.T) {
	m := chattest.NewScriptedModel("one two three")
	it := NewInteractor(chattest.Source{Model: m}, nil)
	rec := NewRecorder()

	got, err := it.Verbatim(context.Background(), &Request{Prompt: "go", Stream: rec}, "")
	if err != nil {
		t.Fatalf("Verbatim: %v", err)
	}
	if got != "one two three" || rec.Text() != got {
		t.Errorf("expected streamed text, got %q / %q", got, rec.Text())
	}
	if n := len(rec.Parts()); n != 3 {
		t.Errorf("expected 3 markdown chunks, got %d", n)
	}
}

func TestInteractor_Error(t *testing.T) {
	it := NewInteractor(chattest.Source{Model: chattest.NewScriptedModel()}, nil)
	_, err := it.Ask(context.Background(), &Request{Prompt: "x"}, "")
	if !errors.Is(err, chattest.ErrNoReply) {
		t.Errorf("expected ErrNoReply, got %v", err)
	}
}

func TestBusStream_PublishesEvents(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, events.EventChatMarkdown, events.EventChatButton)
	defer unsub()

	s := NewBusStream(bus, "sess_1")
	s.Markdown("hi")
	s.Button(Button{Title: "Go", Command: "tfx.create"})

	first := <-ch
	md, ok := events.ExtractPayload[events.ChatMarkdownPayload](first)
	if !ok || md.Content != "hi" || first.SessionID != "sess_1" {
		t.Errorf("unexpected markdown event: %+v", first)
	}
	second := <-ch
	btn, ok := events.ExtractPayload[events.ChatButtonPayload](second)
	if !ok || btn.Title != "Go" {
		t.Errorf("unexpected button event: %+v", second)
	}
}

func TestTee(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	s := Tee(a, nil, b)
	s.Markdown("x")
	s.FileTree([]FileTreeNode{{Name: "src"}}, "/tmp")
	if len(a.Parts()) != 2 || len(b.Parts()) != 2 {
		t.Errorf("expected both recorders to get 2 parts, got %d and %d", len(a.Parts()), len(b.Parts()))
	}
}
