package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
)

// Office add-in project templates, one directory per host.
const (
	addinTemplateOwner = "GavinGu07"
	addinTemplateRepo  = "Office-Add-in-Templates"
	addinTemplateRef   = "main"
)

var (
	nextStepCreateDone = chat.Followup{
		Prompt: "Create the project in the current workspace.",
		Label:  "Create the project in the current workspace.",
	}
	nextStepPublish = chat.Followup{
		Prompt: "How can I distribute the add-in to more users?",
		Label:  "How can I distribute the add-in to more users?",
	}
	nextStepFix = chat.Followup{
		Prompt:  "Fix the errors in my code",
		Command: "fix",
		Label:   "Fix the errors in my code",
	}
	nextStepGenerate = chat.Followup{
		Prompt: "Generate more code",
		Label:  "Generate more code",
	}
)

type teams struct {
	Deps
	scratch scratch
}

// NewTeams creates the Microsoft 365 participant.
func NewTeams(d Deps) *Participant {
	if d.MaxCodeAttempts <= 0 {
		d.MaxCodeAttempts = 3
	}
	t := &teams{Deps: d, scratch: newScratch(d.Sessions)}

	owner := chat.NewOwner("help", t.defaultHandler)
	owner.Add(
		chat.SlashCommand{
			Name:             "create",
			ShortDescription: "Describe what kind of app you want to create in Teams",
			LongDescription:  "Describe what kind of app you want to create in Teams",
			Handler:          t.create,
		},
		chat.SlashCommand{
			Name:             "fix",
			ShortDescription: "Fix the error reported in your code",
			LongDescription:  "Pass the error message and the failing line to get corrected code.",
			Handler:          t.fix,
		},
		nextStepCommand(d.LLM, "Type this command without additional descriptions to progress to the next step at any stage of Teams apps development."),
	)
	owner.Add(helpCommand(owner))

	return &Participant{
		ID:          TeamsID,
		Name:        DisplayName,
		Description: Description,
		owner:       owner,
		bus:         d.Bus,
	}
}

// defaultHandler classifies the prompt into one of the Office add-in
// intentions and answers accordingly.
func (t *teams) defaultHandler(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	intention, err := t.LLM.Ask(ctx, req, intentionPrompt)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	slog.Debug("intention", "reply", intention)
	prompt := strings.ToLower(req.Prompt)

	switch {
	case strings.Contains(intention, intentStepByStep) || strings.Contains(prompt, "i want to"):
		return t.stepByStep(ctx, req)
	case strings.Contains(intention, intentSampleCode) ||
		strings.Contains(prompt, "format") || strings.Contains(prompt, "chart") || strings.Contains(prompt, "alpha"):
		return t.sampleCode(ctx, req)
	case strings.Contains(intention, intentCreate) ||
		(strings.Contains(prompt, "y") && strings.Contains(req.LastResponse(), "create a project")):
		return t.createFromLastCode(ctx, req)
	case strings.Contains(intention, intentPublish):
		if _, err := t.LLM.Verbatim(ctx, req, publishAddInPrompt); err != nil {
			return chat.HandlerResult{}, err
		}
		return chat.NewResult(""), nil
	case strings.Contains(intention, intentFix):
		if _, err := t.LLM.Verbatim(ctx, req, fixCodePrompt); err != nil {
			return chat.HandlerResult{}, err
		}
		return chat.NewResult("create", nextStepPublish), nil
	default:
		if _, err := t.LLM.Verbatim(ctx, req, consultantPrompt); err != nil {
			return chat.HandlerResult{}, err
		}
		return chat.NewResult(""), nil
	}
}

func (t *teams) stepByStep(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	t.scratch.Reset(req.SessionID)

	reply, err := t.LLM.Verbatim(ctx, req, stepByStepPrompt(req.Prompt))
	if err != nil {
		return chat.HandlerResult{}, err
	}
	t.scratch.SetRequest(req.SessionID, req.Prompt)
	t.scratch.SetCode(req.SessionID, chat.ExtractCodeBlocks(reply, "javascript"))
	return chat.NewResult("create", nextStepCreateDone), nil
}

func (t *teams) sampleCode(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	lastCode := t.scratch.Code(req.SessionID)
	exists := t.projectExists()

	prompt := req.Prompt
	if first := firstSentence(t.scratch.Request(req.SessionID)); first != "" {
		prompt = first + ". " + prompt
	}
	codeReq := req.WithPrompt(prompt)

	reply, err := t.LLM.Verbatim(ctx, codeReq, generateCodePrompt(lastCode, exists))
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if code := chat.ExtractCodeBlocks(reply, "javascript"); len(code) > len(lastCode) {
		t.scratch.SetCode(req.SessionID, code)
	}

	if !exists {
		return chat.NewResult("create", nextStepCreateDone), nil
	}

	var followups []chat.Followup
	for _, p := range []string{inspirePrompt1, inspirePrompt2} {
		idea, err := t.LLM.Ask(ctx, codeReq, p)
		if err != nil {
			return chat.HandlerResult{}, err
		}
		if idea = strings.TrimSpace(idea); idea != "" {
			followups = append(followups, chat.Followup{Prompt: idea, Label: idea})
		}
	}
	followups = append(followups, nextStepPublish)
	return chat.NewResult("create", followups...), nil
}

// createFromLastCode builds an add-in project around the code generated
// earlier in the session.
func (t *teams) createFromLastCode(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	lastCode := t.scratch.Code(req.SessionID)
	host := detectHost(lastCode)
	if host == "" {
		req.Stream.Markdown("I couldn't find any Word, Excel or PowerPoint code in this conversation yet. Describe what you want the add-in to do first.\n")
		return chat.NewResult(""), nil
	}

	info := gallery.SampleURLInfo{
		Owner:      addinTemplateOwner,
		Repository: addinTemplateRepo,
		Ref:        addinTemplateRef,
		Dir:        host,
	}
	req.Stream.Progress("Fetching the " + host + " add-in template")
	folder, _, err := t.Gallery.FetchInto(ctx, info, "")
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if err := gallery.ModifyFile(folder, chat.CorrectEnumSpelling(lastCode)); err != nil {
		return chat.HandlerResult{}, err
	}

	s := req.Stream
	s.Markdown(fmt.Sprintf("The %s add-in project has been created at %s.\n\n", host, t.AddinFolder))
	s.Markdown("The key files are:\n\n")
	s.Markdown("1. **manifest.xml**: This is the manifest file for the Office Add-in. It defines the settings and capabilities of the add-in.\n\n")
	s.Markdown("2. **package.json**: This is the configuration file for npm. It lists the dependencies and scripts for the project.\n\n")
	s.Markdown("3. **src/ directory**: This directory contains the source code for the add-in.\n\n")
	s.Markdown("\n\n To run the project, you need to first install all the packages needed:\n\n")
	s.Button(chat.Button{
		Title:     "Create add-in project and install dependency",
		Command:   CreateWXPProjectCommand,
		Arguments: []any{folder, t.AddinFolder},
	})
	return chat.NewResult("create", nextStepPublish), nil
}

func (t *teams) fix(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	message, code := req.Var("error"), req.Var("code")
	if message == "" {
		req.Stream.Markdown("Your code seems all good.")
		return chat.NewResult(""), nil
	}
	reply, err := t.LLM.Ask(ctx, req, fixErrorPrompt(message, code))
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if reply != "" {
		req.Stream.Markdown(reply)
	}
	return chat.NewResult(""), nil
}

func (t *teams) projectExists() bool {
	if t.AddinFolder == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(t.AddinFolder, "src", "taskpane", "taskpane.ts"))
	return err == nil
}

// detectHost names the Office host code targets, checked in Excel, Word,
// PowerPoint order.
func detectHost(code string) string {
	for _, h := range []string{"Excel", "Word", "PowerPoint"} {
		if strings.Contains(code, h) {
			return h
		}
	}
	return ""
}

func firstSentence(s string) string {
	first, _, _ := strings.Cut(s, ".")
	return strings.TrimSpace(first)
}
