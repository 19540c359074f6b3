package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/teamsfx/tfx/internal/samples"
)

// SampleLookup finds code samples for Office JavaScript API members.
type SampleLookup interface {
	APISampleCodes(className, name string) map[string]samples.SampleData
}

// APISampleTool answers api_sample_lookup calls.
type APISampleTool struct {
	provider SampleLookup
}

// NewAPISampleTool creates an api_sample_lookup tool over provider.
func NewAPISampleTool(provider SampleLookup) *APISampleTool {
	return &APISampleTool{provider: provider}
}

// APISampleManifest returns the manifest for the api_sample_lookup tool.
func APISampleManifest() *Manifest {
	return &Manifest{
		Name:        "api_samples",
		Description: "Office JavaScript API code samples",
		Tools: []ToolSpec{
			{
				Name:        "api_sample_lookup",
				Description: "Return the code samples for members of an Office JavaScript API class, e.g. class Excel.Range and members [\"getCell\", \"format\"].",
				Parameters: map[string]ParamSpec{
					"class": {
						Type:        "string",
						Description: "Fully qualified class name, e.g. Word.Paragraph",
						Required:    true,
					},
					"members": {
						Type:        "array",
						Description: "Method or property names",
						Required:    true,
						Items:       &ParamSpec{Type: "string"},
					},
					"kind": {
						Type:        "string",
						Description: "Member kind used in the output (default: Method)",
						Enum:        []string{"Method", "Property"},
					},
				},
			},
		},
	}
}

type apiSampleInput struct {
	Class   string   `json:"class"`
	Members []string `json:"members"`
	Kind    string   `json:"kind"`
}

func (t *APISampleTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo(&APISampleManifest().Tools[0]), nil
}

func (t *APISampleTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input apiSampleInput
	if err := decodeArgs("api_sample_lookup", argumentsInJSON, &input); err != nil {
		return "", err
	}
	if input.Class == "" || len(input.Members) == 0 {
		return "", fmt.Errorf("api_sample_lookup: class and members are required")
	}
	if input.Kind == "" {
		input.Kind = "Method"
	}

	var lines, missing []string
	for _, m := range input.Members {
		codes := t.provider.APISampleCodes(input.Class, m)
		if len(codes) == 0 {
			missing = append(missing, m)
			continue
		}
		names := make([]string, 0, len(codes))
		for name := range codes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, samples.FormatSnippet(input.Class, input.Kind, m, codes[name]))
		}
	}
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("No sample found for %s: %s", input.Class, strings.Join(missing, ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

var _ tool.InvokableTool = (*APISampleTool)(nil)
