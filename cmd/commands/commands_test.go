package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/chat/chattest"
	"github.com/teamsfx/tfx/internal/config"
	"github.com/teamsfx/tfx/internal/events"
	wsprotocol "github.com/teamsfx/tfx/internal/gateway/ws"
	"github.com/teamsfx/tfx/internal/render"
)

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"error=x is undefined", "code=let a = b"})
	if err != nil {
		t.Fatalf("parseVars: %v", err)
	}
	if vars["error"] != "x is undefined" || vars["code"] != "let a = b" {
		t.Errorf("unexpected vars %v", vars)
	}
	if _, err := parseVars([]string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
	if vars, err := parseVars(nil); vars != nil || err != nil {
		t.Errorf("parseVars(nil) = %v, %v", vars, err)
	}
}

func TestHasTag(t *testing.T) {
	if !hasTag([]string{"Bot", "TS"}, "bot") {
		t.Error("expected case-insensitive tag match")
	}
	if hasTag([]string{"Tab"}, "bot") {
		t.Error("unexpected tag match")
	}
}

type namedSource struct{ got []string }

func (s *namedSource) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	s.got = append(s.got, name)
	return chattest.NewScriptedModel(), nil
}

func TestPreferredModel(t *testing.T) {
	src := &namedSource{}
	p := preferredModel{src: src, name: "code"}

	if _, err := p.Get(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Get(context.Background(), "other"); err != nil {
		t.Fatal(err)
	}
	if strings.Join(src.got, ",") != "code,other" {
		t.Errorf("resolved %v, want [code other]", src.got)
	}
}

func TestBuildApp_Help(t *testing.T) {
	cfg, err := config.LoadOrDefault(t.TempDir() + "/missing.jsonc")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Sessions.Dir = t.TempDir()
	cfg.Skills.Dirs = []string{t.TempDir()}

	a := buildApp(cfg, &bytes.Buffer{})
	defer a.Close()

	if names := a.skills.Names(); len(names) != 1 || names[0] != "Code Generator" {
		t.Errorf("skills = %v", names)
	}

	var out bytes.Buffer
	reply, err := a.runner.Run(context.Background(), &chat.Request{Prompt: "/help", Stream: render.NewPlain(&out)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply.SessionID == "" {
		t.Error("expected a session")
	}
	if !strings.Contains(reply.Text(), "/create") {
		t.Errorf("unexpected help text %q", reply.Text())
	}

	reply, err = a.runner.Run(context.Background(), &chat.Request{Participant: "officeaddin", Prompt: "/help"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(reply.Text(), "/create") {
		t.Errorf("unexpected help text %q", reply.Text())
	}
}

func frame(t *testing.T, payload events.EventPayload) wsprotocol.Frame {
	t.Helper()
	e := events.NewTypedEventWithSession(events.SourceAgent, payload, "sess_1")
	f, err := wsprotocol.NewEventFrame(string(e.Type), e.SessionID, e.Payload)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRenderFrame(t *testing.T) {
	var out bytes.Buffer
	term := render.NewPlain(&out)

	for _, p := range []events.EventPayload{
		events.ChatMarkdownPayload{Content: "Here is the sample."},
		events.ChatFileTreePayload{BaseURI: "/tmp/s", Tree: []chat.FileTreeNode{{Name: "package.json"}}},
		events.ChatButtonPayload{Title: "Scaffold this sample", Command: "tfx.createSample", Arguments: []any{"/tmp/s"}},
	} {
		if done, err := renderFrame(term, frame(t, p)); done || err != nil {
			t.Fatalf("renderFrame(%T) = %v, %v", p, done, err)
		}
	}
	done, err := renderFrame(term, frame(t, events.ChatResultPayload{SlashCommand: "create", Followups: []string{"Deploy it"}}))
	if !done || err != nil {
		t.Fatalf("result frame = %v, %v", done, err)
	}

	text := out.String()
	for _, want := range []string{"Here is the sample.", "└── package.json", "[1] Scaffold this sample", "→ Deploy it"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
	if b := term.Buttons(); len(b) != 1 || b[0].Arguments[0] != "/tmp/s" {
		t.Errorf("unexpected buttons %+v", b)
	}

	done, err = renderFrame(term, frame(t, events.ChatResultPayload{Error: "boom"}))
	if !done || err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error result = %v, %v", done, err)
	}
}
