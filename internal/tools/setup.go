package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/skills"
)

// Deps are the collaborators of the native tools. Nil Gallery or Samples
// leave the matching tools out.
type Deps struct {
	// Root confines file-writing tools; empty allows any path.
	Root    string
	Gallery Gallery
	Samples SampleLookup
	Skills  []skills.Skill
	Bus     chat.Publisher
}

// Setup creates a registry holding every tool d can back.
func Setup(ctx context.Context, d Deps) (*Registry, error) {
	r := NewRegistry()

	if err := r.Register("write_file", NewWriteFileTool(d.Root), WriteFileManifest()); err != nil {
		return nil, err
	}
	if err := r.Register("api2teams_generate", NewAPI2TeamsTool(d.Root), API2TeamsManifest()); err != nil {
		return nil, err
	}
	if d.Samples != nil {
		if err := r.Register("api_sample_lookup", NewAPISampleTool(d.Samples), APISampleManifest()); err != nil {
			return nil, err
		}
	}
	if d.Gallery != nil {
		m := SamplesManifest()
		if err := r.Register("list_samples", NewListSamplesTool(d.Gallery), m); err != nil {
			return nil, err
		}
		if err := r.Register("scaffold_sample", NewScaffoldSampleTool(d.Gallery, d.Root), m); err != nil {
			return nil, err
		}
	}

	for _, s := range d.Skills {
		st := skills.NewSkillTool(s, d.Bus)
		spec, err := SpecFromTool(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("skill %q: %w", s.Name(), err)
		}
		m := &Manifest{Name: "skills", Description: "Chat skills", Tools: []ToolSpec{*spec}}
		if err := r.Register(spec.Name, st, m); err != nil {
			slog.Warn("skill tool not registered", "skill", s.Name(), "error", err)
		}
	}

	slog.Debug("tools registered", "count", len(r.tools))
	return r, nil
}
