// Package agent implements the chat participants: the Microsoft 365
// (Teams) participant with its create/fix/nextstep/help commands and Office
// add-in intent flow, and the Office add-in participant routing to the
// skill planner.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/sessions"
)

// Participant identifiers.
const (
	TeamsID       = "teams"
	OfficeAddinID = "officeaddin"
)

// Shown to users.
const (
	DisplayName = "Microsoft365"
	Description = "Ask about Microsoft 365 apps development"
)

const sorryMessage = "Sorry, I can't help with that right now.\n"

// LLM is the pair of calls handlers make.
type LLM interface {
	Ask(ctx context.Context, req *chat.Request, systemPrompt string) (string, error)
	Verbatim(ctx context.Context, req *chat.Request, systemPrompt string) (string, error)
}

// Gallery fetches sample and template projects.
type Gallery interface {
	FetchSampleConfig(ctx context.Context) (*gallery.SampleConfig, error)
	DownloadURLInfo(ctx context.Context, sampleID string) (gallery.SampleURLInfo, error)
	FetchInto(ctx context.Context, info gallery.SampleURLInfo, parent string) (string, []chat.FileTreeNode, error)
	DownloadTo(ctx context.Context, info gallery.SampleURLInfo, dst string) error
}

// RequestProcessor hands a request to a skill.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req *chat.Request) (chat.HandlerResult, error)
}

// Deps are the collaborators shared by both participants.
type Deps struct {
	LLM     LLM
	Gallery Gallery
	Planner RequestProcessor
	// Sessions keeps the step-by-step request and the last generated code.
	// Nil keeps them in memory.
	Sessions sessions.Store
	Bus      chat.Publisher
	// AddinFolder is where add-in projects are created by default.
	AddinFolder     string
	MaxCodeAttempts int
}

// Participant answers chat requests through its slash-command owner.
type Participant struct {
	ID          string
	Name        string
	Description string

	owner *chat.Owner
	bus   chat.Publisher
}

// Handle runs req. Handler failures are reported to the user on req.Stream
// and returned as an empty result with ErrorDetails set; only
// chat.ErrNotHandled and unknown commands are returned as errors.
func (p *Participant) Handle(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	if req.Stream == nil {
		req.Stream = chat.Discard
	}
	if req.SlashCommand == "" {
		req.SlashCommand, req.Prompt = chat.ParseCommand(req.Prompt)
	}
	req.Participant = p.ID
	p.publish(req.SessionID, events.ChatRequestPayload{
		Participant:  p.ID,
		SlashCommand: req.SlashCommand,
		Prompt:       req.Prompt,
	})

	res, err := p.owner.Handle(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrNotHandled), errors.Is(err, chat.ErrUnknownCommand):
		return res, err
	case ctx.Err() != nil:
		return res, ctx.Err()
	default:
		slog.Error("chat handler failed", "participant", p.ID, "command", req.SlashCommand, "error", err)
		req.Stream.Markdown(sorryMessage)
		res = chat.HandlerResult{Result: chat.Result{ErrorDetails: err.Error()}}
	}

	var labels []string
	for _, f := range res.Followups {
		labels = append(labels, f.Label)
	}
	p.publish(req.SessionID, events.ChatResultPayload{
		SlashCommand: res.Result.Metadata.SlashCommand,
		SampleIDs:    res.Result.Metadata.SampleIDs,
		Followups:    labels,
		Error:        res.Result.ErrorDetails,
	})
	return res, nil
}

// FollowUps returns the suggestions of res, DefaultNextStep when the
// handler offered none.
func (p *Participant) FollowUps(res chat.HandlerResult) []chat.Followup {
	return chat.CapFollowUps(res.Followups)
}

// Commands lists the participant's slash commands.
func (p *Participant) Commands() []chat.SlashCommand {
	return p.owner.Commands()
}

func (p *Participant) publish(sessionID string, payload events.EventPayload) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(events.NewTypedEventWithSession(events.SourceAgent, payload, sessionID))
}

func helpCommand(owner *chat.Owner) chat.SlashCommand {
	return chat.SlashCommand{
		Name:             "help",
		ShortDescription: "Describe what I can do",
		LongDescription:  "List the commands this participant supports.",
		Handler: func(_ context.Context, req *chat.Request) (chat.HandlerResult, error) {
			var sb strings.Builder
			sb.WriteString("Here are the commands I support:\n\n")
			for _, c := range owner.Commands() {
				fmt.Fprintf(&sb, "- `/%s`: %s\n", c.Name, c.ShortDescription)
			}
			req.Stream.Markdown(sb.String())
			return chat.NewResult("help"), nil
		},
	}
}

func nextStepCommand(llm LLM, description string) chat.SlashCommand {
	return chat.SlashCommand{
		Name:             "nextstep",
		ShortDescription: "Use this command to move to the next step anytime.",
		LongDescription:  description,
		Handler: func(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
			if llm == nil || len(req.History) == 0 {
				return chat.NewResult("nextstep"), nil
			}
			reply, err := llm.Ask(ctx, req, nextStepPrompt)
			if err != nil {
				return chat.HandlerResult{}, err
			}
			return chat.NewResult("nextstep", parseSuggestions(reply)...), nil
		},
	}
}

// parseSuggestions turns one-suggestion-per-line text into follow-ups.
func parseSuggestions(reply string) []chat.Followup {
	var out []chat.Followup
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		out = append(out, chat.Followup{Prompt: line, Label: line})
		if len(out) == chat.MaxFollowUps {
			break
		}
	}
	return out
}
