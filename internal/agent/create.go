package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/projectmatch"
	"github.com/teamsfx/tfx/internal/samples"
)

// addinPlan is the reply to generateProjectPrompt.
type addinPlan struct {
	Platform string   `json:"PLATFORM"`
	Type     string   `json:"TYPE"`
	APISet   []string `json:"APISET"`
	Summary  string   `json:"SUMMARY"`
}

func (t *teams) create(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	lower := strings.ToLower(req.Prompt)
	for _, host := range []string{"word", "excel", "powerpoint"} {
		if strings.Contains(lower, host) {
			return t.createAddin(ctx, req)
		}
	}
	return t.createFromCatalog(ctx, req)
}

// createAddin plans an add-in, generates code for it in two rounds and
// drops the code into the matching host template.
func (t *teams) createAddin(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	reply, err := t.LLM.Ask(ctx, req, generateProjectPrompt(samples.WordObjectsJSON()))
	if err != nil {
		return chat.HandlerResult{}, err
	}
	var plan addinPlan
	if err := chat.ParseJSONMaybeInText(reply, &plan); err != nil || plan.Platform == "" {
		slog.Debug("add-in plan not understood", "reply", reply, "error", err)
		req.Stream.Markdown(sorryMessage)
		return chat.NewResult(""), nil
	}
	slog.Debug("add-in plan", "platform", plan.Platform, "type", plan.Type, "apis", plan.APISet)

	codePrompt := generateAPICallsPrompt(samples.APIListByObjects(plan.APISet))
	perObject := req.WithPrompt(fmt.Sprintf(" Please generate one method for each %s %s JavaScript API object.",
		strings.Join(plan.APISet, ", "), plan.Platform))

	first, err := t.generateCode(ctx, perObject, codePrompt)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	second, err := t.generateCode(ctx, req, codePrompt)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if first == "" && second == "" {
		req.Stream.Markdown(sorryMessage)
		return chat.NewResult(""), nil
	}

	info := gallery.SampleURLInfo{
		Owner:      addinTemplateOwner,
		Repository: addinTemplateRepo,
		Ref:        addinTemplateRef,
		Dir:        plan.Platform,
	}
	folder, tree, err := t.Gallery.FetchInto(ctx, info, "")
	if err != nil {
		return chat.HandlerResult{}, err
	}
	req.Stream.FileTree(tree, folder)
	req.Stream.Markdown(fmt.Sprintf("Do you want to create your add-in project at the default location %s?\n", t.AddinFolder))

	for _, code := range []string{first, second} {
		if err := gallery.ModifyFile(folder, chat.CorrectEnumSpelling(code)); err != nil {
			return chat.HandlerResult{}, err
		}
	}

	req.Stream.Button(chat.Button{
		Title:     "Create at the default location",
		Command:   CreateSampleCommand,
		Arguments: []any{folder, t.AddinFolder},
	})
	req.Stream.Button(chat.Button{
		Title:     "Create at a different location",
		Command:   CreateSampleCommand,
		Arguments: []any{folder, ""},
	})
	return chat.NewResult("create", nextStepFix, nextStepGenerate), nil
}

// generateCode asks until the reply carries a javascript block, at most
// MaxCodeAttempts times. It returns "" when every attempt came back empty.
func (t *teams) generateCode(ctx context.Context, req *chat.Request, systemPrompt string) (string, error) {
	for attempt := 1; attempt <= t.MaxCodeAttempts; attempt++ {
		reply, err := t.LLM.Ask(ctx, req, systemPrompt)
		if err != nil {
			return "", err
		}
		if code := chat.ExtractCodeBlocks(reply, "javascript"); code != "" {
			return code, nil
		}
		slog.Debug("no javascript block in reply", "attempt", attempt)
	}
	return "", nil
}

// createFromCatalog matches the ask against samples and templates.
func (t *teams) createFromCatalog(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	var catalog []projectmatch.ProjectMetadata
	cfg, err := t.Gallery.FetchSampleConfig(ctx)
	if err != nil {
		slog.Warn("samples catalog unavailable", "error", err)
	} else {
		catalog = projectmatch.SampleCatalog(cfg)
	}
	catalog = append(catalog, projectmatch.Templates()...)

	matched, err := projectmatch.Match(ctx, t.LLM, req, catalog)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if len(matched) > projectmatch.MaxPresented {
		matched = matched[:projectmatch.MaxPresented]
	}

	res := chat.NewResult("create")
	for _, p := range matched {
		res.Result.Metadata.SampleIDs = append(res.Result.Metadata.SampleIDs, p.ID)
	}

	switch len(matched) {
	case 0:
		req.Stream.Markdown(sorryMessage)
		return chat.NewResult(""), nil
	case 1:
		p := matched[0]
		if err := t.describeProject(ctx, req, p); err != nil {
			return chat.HandlerResult{}, err
		}
		if p.Type == projectmatch.TypeSample {
			folder, err := t.showFileTree(ctx, req, p)
			if err != nil {
				return chat.HandlerResult{}, err
			}
			req.Stream.Button(chat.Button{Title: "Scaffold this sample", Command: CreateSampleCommand, Arguments: []any{folder}})
		} else {
			req.Stream.Button(templateButton(p))
		}
		return res, nil
	default:
		req.Stream.Markdown(fmt.Sprintf("I found %d projects that match your description.\n", len(matched)))
		for _, p := range matched {
			intro, err := t.LLM.Ask(ctx, req.WithPrompt(projectJSON(p)).WithHistory(nil), introduceProjectPrompt)
			if err != nil {
				return chat.HandlerResult{}, err
			}
			req.Stream.Markdown(fmt.Sprintf("- %s: %s\n", p.Name, strings.TrimSpace(intro)))
			if p.Type == projectmatch.TypeSample {
				req.Stream.Button(chat.Button{Title: "Scaffold this sample", Command: CreateSampleCommand, Arguments: []any{p}})
			} else {
				req.Stream.Button(templateButton(p))
			}
		}
		return res, nil
	}
}

func (t *teams) describeProject(ctx context.Context, req *chat.Request, p projectmatch.ProjectMetadata) error {
	prompt := fmt.Sprintf("The project you are looking for is '%s'.", projectJSON(p))
	_, err := t.LLM.Verbatim(ctx, req.WithPrompt(prompt), describeProjectPrompt)
	return err
}

func (t *teams) showFileTree(ctx context.Context, req *chat.Request, p projectmatch.ProjectMetadata) (string, error) {
	req.Stream.Markdown("\nHere is the files of the sample project.")
	info, err := t.Gallery.DownloadURLInfo(ctx, p.ID)
	if err != nil {
		return "", err
	}
	folder, tree, err := t.Gallery.FetchInto(ctx, info, "")
	if err != nil {
		return "", err
	}
	req.Stream.FileTree(tree, folder)
	return folder, nil
}

func templateButton(p projectmatch.ProjectMetadata) chat.Button {
	return chat.Button{Title: "Create this template", Command: CreateTemplateCommand, Arguments: []any{p.Data}}
}

func projectJSON(p projectmatch.ProjectMetadata) string {
	data, err := json.Marshal(p)
	if err != nil {
		return p.Name
	}
	return string(data)
}
