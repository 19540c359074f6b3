package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/teamsfx/tfx/internal/api2teams"
)

// API2TeamsTool generates Adaptive Cards from an OpenAPI document.
type API2TeamsTool struct {
	Root string
}

// NewAPI2TeamsTool creates an api2teams_generate tool confined to root.
func NewAPI2TeamsTool(root string) *API2TeamsTool {
	return &API2TeamsTool{Root: root}
}

// API2TeamsManifest returns the manifest for the api2teams_generate tool.
func API2TeamsManifest() *Manifest {
	return &Manifest{
		Name:        "api2teams",
		Description: "Generate Teams Adaptive Cards from OpenAPI",
		Dangerous:   true,
		Tools: []ToolSpec{
			{
				Name: "api2teams_generate",
				Description: "Read an OpenAPI 3 document and write a request card per operation, a response card per JSON " +
					"response, mockApiProvider.ts and realApiProvider.ts into the output folder.",
				Parameters: map[string]ParamSpec{
					"spec": {
						Type:        "string",
						Description: "Path to the OpenAPI yaml or json file",
						Required:    true,
					},
					"output": {
						Type:        "string",
						Description: "Output folder (default: generated-cards next to the document)",
					},
					"force": {
						Type:        "boolean",
						Description: "Overwrite a non-empty output folder",
					},
				},
			},
		},
	}
}

type api2teamsInput struct {
	Spec   string `json:"spec"`
	Output string `json:"output"`
	Force  bool   `json:"force"`
}

func (t *API2TeamsTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo(&API2TeamsManifest().Tools[0]), nil
}

func (t *API2TeamsTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input api2teamsInput
	if err := decodeArgs("api2teams_generate", argumentsInJSON, &input); err != nil {
		return "", err
	}
	if input.Spec == "" {
		return "", fmt.Errorf("api2teams_generate: spec is required")
	}
	specPath, err := resolveInRoot(t.Root, input.Spec)
	if err != nil {
		return "", fmt.Errorf("api2teams_generate: %w", err)
	}
	if input.Output == "" {
		input.Output = api2teams.DefaultOutput(specPath)
	}
	output, err := resolveInRoot(t.Root, input.Output)
	if err != nil {
		return "", fmt.Errorf("api2teams_generate: %w", err)
	}

	res, err := api2teams.Generate(ctx, specPath, api2teams.Options{Output: output, Force: input.Force})
	if err != nil {
		return "", fmt.Errorf("api2teams_generate: %w", err)
	}
	return encodeResult("api2teams_generate", map[string]any{
		"title":   res.Title,
		"version": res.Version,
		"output":  output,
		"files":   res.Files,
	})
}

var _ tool.InvokableTool = (*API2TeamsTool)(nil)
