// Package projectmatch picks the samples and templates that fit what a user
// wants to build.
package projectmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
)

// MaxPresented is how many matches a participant shows at most.
const MaxPresented = 3

// Project types.
const (
	TypeSample   = "sample"
	TypeTemplate = "template"
)

// ProjectMetadata describes one candidate project.
type ProjectMetadata struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Data        any    `json:"data,omitempty"`
}

// LLM is the single call Match needs.
type LLM interface {
	Ask(ctx context.Context, req *chat.Request, systemPrompt string) (string, error)
}

const matchPrompt = `You are an expert in determining which of the following projects the user is interested in.
The projects are: %s

Determine which projects would most appropriately serve the user's needs, based on the name and description of each project.
Respond with a JSON array of project ids only, for example ["id1", "id2"]. Respond with [] when none of the projects is relevant.`

// Match asks the LLM which catalog entries fit req.Prompt. Matches keep
// catalog order; unknown ids in the reply are ignored.
func Match(ctx context.Context, llm LLM, req *chat.Request, catalog []ProjectMetadata) ([]ProjectMetadata, error) {
	if len(catalog) == 0 {
		return nil, nil
	}

	type brief struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	briefs := make([]brief, len(catalog))
	for i, p := range catalog {
		briefs[i] = brief{ID: p.ID, Name: p.Name, Description: p.Description}
	}
	listing, err := json.Marshal(briefs)
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}

	reply, err := llm.Ask(ctx, req.WithHistory(nil), fmt.Sprintf(matchPrompt, listing))
	if err != nil {
		return nil, fmt.Errorf("match project: %w", err)
	}

	var ids []string
	if err := chat.ParseJSONMaybeInText(reply, &ids); err != nil {
		slog.Debug("project match reply not a JSON array", "reply", reply, "error", err)
		return nil, nil
	}
	picked := make(map[string]bool, len(ids))
	for _, id := range ids {
		picked[id] = true
	}

	var out []ProjectMetadata
	for _, p := range catalog {
		if picked[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// SampleCatalog turns the online samples catalog into match candidates.
func SampleCatalog(cfg *gallery.SampleConfig) []ProjectMetadata {
	if cfg == nil {
		return nil
	}
	out := make([]ProjectMetadata, 0, len(cfg.Samples))
	for _, s := range cfg.Samples {
		desc := s.FullDescription
		if desc == "" {
			desc = s.ShortDescription
		}
		out = append(out, ProjectMetadata{
			ID:          s.ID,
			Type:        TypeSample,
			Name:        s.Title,
			Description: desc,
		})
	}
	return out
}

// Templates lists the built-in project templates. Data carries the
// capability passed to the scaffolder.
func Templates() []ProjectMetadata {
	return []ProjectMetadata{
		{ID: "bot", Type: TypeTemplate, Name: "Basic Bot", Description: "A simple implementation of an echo bot that's ready for customization.", Data: map[string]string{"capabilities": "bot"}},
		{ID: "notification-bot", Type: TypeTemplate, Name: "Chat Notification Message", Description: "Send notification messages to Teams chats or channels, triggered by an HTTP request or a timer.", Data: map[string]string{"capabilities": "notification"}},
		{ID: "command-bot", Type: TypeTemplate, Name: "Chat Command", Description: "Respond to simple commands in a Teams chat with an Adaptive Card.", Data: map[string]string{"capabilities": "command-bot"}},
		{ID: "workflow-bot", Type: TypeTemplate, Name: "Sequential Workflow in Chat", Description: "Let users walk through a sequence of Adaptive Card actions in a chat.", Data: map[string]string{"capabilities": "workflow-bot"}},
		{ID: "tab", Type: TypeTemplate, Name: "Basic Tab", Description: "A tab showing a web page inside Teams, ready for customization.", Data: map[string]string{"capabilities": "tab-non-sso"}},
		{ID: "sso-tab", Type: TypeTemplate, Name: "Tab with Single Sign-On", Description: "A tab that signs the user in and calls Microsoft Graph on their behalf.", Data: map[string]string{"capabilities": "tab"}},
		{ID: "message-extension", Type: TypeTemplate, Name: "Search Results from an API", Description: "A search-based message extension that lets users look up data and share it as cards in a conversation.", Data: map[string]string{"capabilities": "search-app"}},
		{ID: "api-plugin", Type: TypeTemplate, Name: "API Plugin from OpenAPI", Description: "Extend Copilot with an API described by an OpenAPI document, rendered as Adaptive Cards.", Data: map[string]string{"capabilities": "api-plugin"}},
	}
}
