package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/teamsfx/tfx/internal/gallery"
)

// Gallery is the part of the sample gallery the scaffolding tools use.
type Gallery interface {
	FetchSampleConfig(ctx context.Context) (*gallery.SampleConfig, error)
	DownloadURLInfo(ctx context.Context, sampleID string) (gallery.SampleURLInfo, error)
	DownloadTo(ctx context.Context, info gallery.SampleURLInfo, dst string) error
}

// ScaffoldSampleTool downloads a catalog sample into a folder.
type ScaffoldSampleTool struct {
	gallery Gallery
	Root    string
}

// NewScaffoldSampleTool creates a scaffold_sample tool writing under root.
func NewScaffoldSampleTool(g Gallery, root string) *ScaffoldSampleTool {
	return &ScaffoldSampleTool{gallery: g, Root: root}
}

// ListSamplesTool lists the sample catalog.
type ListSamplesTool struct {
	gallery Gallery
}

// NewListSamplesTool creates a list_samples tool.
func NewListSamplesTool(g Gallery) *ListSamplesTool {
	return &ListSamplesTool{gallery: g}
}

// SamplesManifest returns the manifest for the sample gallery tools.
func SamplesManifest() *Manifest {
	return &Manifest{
		Name:        "samples",
		Description: "Teams and Office sample gallery",
		Tools: []ToolSpec{
			{
				Name:        "list_samples",
				Description: "List the Teams Toolkit sample catalog: id, title and short description of each sample.",
				Parameters: map[string]ParamSpec{
					"tag": {
						Type:        "string",
						Description: "Only samples carrying this tag",
					},
				},
			},
			{
				Name:        "scaffold_sample",
				Description: "Download a sample from the catalog into a new folder.",
				Parameters: map[string]ParamSpec{
					"sample_id": {
						Type:        "string",
						Description: "Sample id from list_samples",
						Required:    true,
					},
					"dst": {
						Type:        "string",
						Description: "Destination folder (default: the sample id)",
					},
				},
				Dangerous: true,
			},
		},
	}
}

type scaffoldInput struct {
	SampleID string `json:"sample_id"`
	Dst      string `json:"dst"`
}

type sampleEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

func (t *ScaffoldSampleTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo(&SamplesManifest().Tools[1]), nil
}

func (t *ScaffoldSampleTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input scaffoldInput
	if err := decodeArgs("scaffold_sample", argumentsInJSON, &input); err != nil {
		return "", err
	}
	if input.SampleID == "" {
		return "", fmt.Errorf("scaffold_sample: sample_id is required")
	}
	if input.Dst == "" {
		input.Dst = input.SampleID
	}
	dst, err := resolveInRoot(t.Root, input.Dst)
	if err != nil {
		return "", fmt.Errorf("scaffold_sample: %w", err)
	}
	if entries, err := os.ReadDir(dst); err == nil && len(entries) > 0 {
		return "", fmt.Errorf("scaffold_sample: %s is not empty", dst)
	}

	info, err := t.gallery.DownloadURLInfo(ctx, input.SampleID)
	if err != nil {
		return "", fmt.Errorf("scaffold_sample: %w", err)
	}
	if err := t.gallery.DownloadTo(ctx, info, dst); err != nil {
		return "", fmt.Errorf("scaffold_sample: %w", err)
	}
	return encodeResult("scaffold_sample", map[string]string{"sample_id": input.SampleID, "path": dst, "source": info.String()})
}

func (t *ListSamplesTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo(&SamplesManifest().Tools[0]), nil
}

func (t *ListSamplesTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Tag string `json:"tag"`
	}
	if err := decodeArgs("list_samples", argumentsInJSON, &input); err != nil {
		return "", err
	}
	cfg, err := t.gallery.FetchSampleConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("list_samples: %w", err)
	}
	out := []sampleEntry{}
	for _, s := range cfg.Samples {
		if input.Tag != "" && !contains(s.Tags, input.Tag) {
			continue
		}
		out = append(out, sampleEntry{ID: s.ID, Title: s.Title, Description: s.ShortDescription, Tags: s.Tags})
	}
	return encodeResult("list_samples", out)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var (
	_ tool.InvokableTool = (*ScaffoldSampleTool)(nil)
	_ tool.InvokableTool = (*ListSamplesTool)(nil)
)
