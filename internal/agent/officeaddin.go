package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/skills"
)

// askOfficeAddinThreshold is the gate's minimum confidence.
const askOfficeAddinThreshold = 80

type officeAddin struct {
	Deps
	// scriptOut receives the host conversion script output.
	scriptOut io.Writer
}

// NewOfficeAddin creates the Office add-in participant.
func NewOfficeAddin(d Deps) *Participant {
	o := &officeAddin{Deps: d, scriptOut: io.Discard}

	owner := chat.NewOwner("help", o.defaultHandler)
	owner.Add(
		chat.SlashCommand{
			Name:             "create",
			ShortDescription: "Describe the add-in you want to build for Word, Excel or PowerPoint",
			LongDescription:  "Scaffold an Office add-in from the task pane or Excel custom functions template.",
			Handler:          o.create,
		},
		chat.SlashCommand{
			Name:             skills.AskOfficeAddinCommand,
			ShortDescription: "Describe what we can do for Office Add-in development",
			LongDescription:  "Describe what we can do for Office Add-in development, currently we support giving suggestions on scaffolding a template, giving code template, and what next you can do.",
			Handler:          o.askOfficeAddin,
		},
		nextStepCommand(nil, "Type this command without additional descriptions to progress to the next step at any stage of Office add-in development."),
	)
	owner.Add(helpCommand(owner))

	return &Participant{
		ID:          OfficeAddinID,
		Name:        DisplayName,
		Description: Description,
		owner:       owner,
		bus:         d.Bus,
	}
}

// defaultHandler tries the add-in gate and answers with an empty result
// when the prompt is not about Office add-ins.
func (o *officeAddin) defaultHandler(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	res, err := o.askOfficeAddin(ctx, req)
	if errors.Is(err, chat.ErrNotHandled) {
		return chat.NewResult(""), nil
	}
	return res, err
}

// askOfficeAddin forwards the request to the planner when the model is
// confident it is about Office JavaScript add-ins.
func (o *officeAddin) askOfficeAddin(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	ok, err := o.isOfficeAddinAsk(ctx, req)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if !ok {
		return chat.HandlerResult{}, chat.ErrNotHandled
	}
	if o.Planner == nil {
		return chat.NewResult(skills.AskOfficeAddinCommand), nil
	}
	return o.Planner.ProcessRequest(ctx, req)
}

func (o *officeAddin) isOfficeAddinAsk(ctx context.Context, req *chat.Request) (bool, error) {
	reply, err := o.LLM.Ask(ctx, req, askOfficeAddinGatePrompt)
	if err != nil {
		return false, err
	}
	score, _ := chat.FirstNumber(reply)
	slog.Debug("office add-in gate", "score", score, "reply", reply)
	return score >= askOfficeAddinThreshold && strings.Contains(strings.ToLower(reply), "yes"), nil
}

// create fetches the task pane template (or the Excel custom functions
// one) and converts it to the host named in the prompt.
func (o *officeAddin) create(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	lower := strings.ToLower(req.Prompt)
	customFunctions := strings.Contains(lower, "custom function")
	host := ""
	for _, h := range []string{"Excel", "Word", "PowerPoint", "Outlook"} {
		if strings.Contains(lower, strings.ToLower(h)) {
			host = h
			break
		}
	}

	info := gallery.SampleURLInfo{Owner: "OfficeDev", Repository: "Office-Addin-TaskPane-JS", Ref: "master"}
	if customFunctions {
		info.Repository = "Excel-Custom-Functions"
	}

	req.Stream.Markdown("\nHere is the files of the sample project.")
	folder, tree, err := o.Gallery.FetchInto(ctx, info, "")
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if host != "" && !customFunctions {
		if err := gallery.ConvertToSingleHost(ctx, folder, host, o.scriptOut, o.scriptOut); err != nil {
			slog.Warn("convert to single host failed", "host", host, "error", err)
			req.Stream.Markdown("\nThe project could not be converted to " + host + ", it still targets every host.\n")
		}
	}
	req.Stream.FileTree(tree, folder)
	req.Stream.Button(chat.Button{
		Title:     "Create this project",
		Command:   CreateOfficeAddinSampleCommand,
		Arguments: []any{folder},
	})
	return chat.NewResult("create"), nil
}
