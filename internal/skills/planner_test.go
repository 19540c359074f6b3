package skills

import (
	"context"
	"strings"
	"testing"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/chat/chattest"
	"github.com/teamsfx/tfx/internal/events"
)

func newPlanner(t *testing.T, reply string, skills ...Skill) (*Planner, *chattest.ScriptedModel) {
	t.Helper()
	m := chattest.NewScriptedModel(reply)
	reg := NewRegistry(nil)
	for _, s := range skills {
		reg.Register(s)
	}
	return NewPlanner(reg, chat.NewInteractor(chattest.Source{Model: m}, nil), nil), m
}

func TestPlanner_Prompt(t *testing.T) {
	p, _ := newPlanner(t, "", &stubSkill{name: "a", capability: "How to automate a process?"})
	prompt := p.Prompt()
	if !strings.HasPrefix(prompt, "what is the most accurate description") {
		t.Errorf("unexpected prompt head: %q", prompt[:40])
	}
	if !strings.HasSuffix(prompt, "\r\n* How to automate a process?. Describe it.") {
		t.Errorf("unexpected capability line in %q", prompt)
	}
}

func TestPlanner_ProcessRequest_Invokes(t *testing.T) {
	s := &stubSkill{name: "a", capability: "How to automate a process?"}
	p, _ := newPlanner(t, "90% :: How to automate a process? :: import stock data", s)

	rec := chat.NewRecorder()
	res, err := p.ProcessRequest(context.Background(), &chat.Request{Prompt: "automate stocks", Stream: rec})
	if err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	if s.invoked != "import stock data" {
		t.Errorf("expected additional input passed, got %q", s.invoked)
	}
	if res.Result.Metadata.SlashCommand != AskOfficeAddinCommand {
		t.Errorf("expected slash command %q, got %q", AskOfficeAddinCommand, res.Result.Metadata.SlashCommand)
	}
}

func TestPlanner_NoSelection(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"low score", "70% :: How to automate a process? :: x"},
		{"no score", "How to automate a process?"},
		{"no separator", "95% How to automate a process?"},
		{"two lines", "95% :: How to automate a process? :: x\n90% :: How to automate a process? :: y"},
		{"unknown capability", "95% :: How to bake bread? :: x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubSkill{name: "a", capability: "How to automate a process?"}
			p, _ := newPlanner(t, tt.reply, s)

			res, err := p.ProcessRequest(context.Background(), &chat.Request{Prompt: "x"})
			if err != nil {
				t.Fatalf("ProcessRequest: %v", err)
			}
			if s.invoked != "" {
				t.Error("skill should not be invoked")
			}
			if res.Result.Metadata.SlashCommand != AskOfficeAddinCommand || len(res.Followups) != 0 {
				t.Errorf("expected bare askOfficeAddin result, got %+v", res)
			}
		})
	}
}

func TestPlanner_AmbiguousSkills(t *testing.T) {
	a := &stubSkill{name: "a", capability: "How to automate a process?"}
	b := &stubSkill{name: "b", capability: "How to automate a process? (alt)"}
	p, _ := newPlanner(t, "95% :: How to automate a process? :: x", a, b)

	sel, err := p.Select(context.Background(), &chat.Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel != nil {
		t.Errorf("expected no selection with two capable skills, got %v", sel.Skill.Name())
	}
}

func TestPlanner_PublishesSkillInvoked(t *testing.T) {
	bus := events.NewBus(8)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(4, events.EventSkillInvoked)
	defer unsub()

	s := &stubSkill{name: "a", capability: "How to automate a process?"}
	m := chattest.NewScriptedModel("85% :: How to automate a process? :: go")
	reg := NewRegistry(nil)
	reg.Register(s)
	p := NewPlanner(reg, chat.NewInteractor(chattest.Source{Model: m}, nil), bus)

	if _, err := p.ProcessRequest(context.Background(), &chat.Request{Prompt: "x"}); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	e := <-ch
	payload, ok := events.ExtractPayload[events.SkillInvokedPayload](e)
	if !ok || payload.Skill != "a" || payload.Score != 85 {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestParsePlannerReply(t *testing.T) {
	capability, input, ok := ParsePlannerReply("[92%] :: How to automate a process? :: fetch data, then chart it")
	if !ok {
		t.Fatal("expected a match")
	}
	if capability != "How to automate a process?" || input != "fetch data, then chart it" {
		t.Errorf("unexpected parse (%q, %q)", capability, input)
	}

	capability, input, ok = ParsePlannerReply("92% :: How to automate a process?")
	if !ok || capability != "How to automate a process?" || input != "" {
		t.Errorf("unexpected parse without input: (%q, %q, %v)", capability, input, ok)
	}
}
