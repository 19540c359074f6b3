package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/projectmatch"
)

// Button commands understood by Actions.
const (
	CreateSampleCommand            = "tfx.createSample"
	CreateWXPProjectCommand        = "tfx.createWxpProject"
	CreateOfficeAddinSampleCommand = "tfx.createOfficeAddinSample"
	CreateTemplateCommand          = "tfx.createTemplate"
)

// ErrNoDestination is returned when an action needs a target folder and
// none was given.
var ErrNoDestination = errors.New("no destination folder")

// Actions carries out the buttons offered in responses.
type Actions struct {
	gallery Gallery
	stdout  io.Writer
	stderr  io.Writer
	// Install runs npm install after an add-in project is created.
	Install bool
}

// NewActions creates Actions. Script output goes to stdout and stderr.
func NewActions(g Gallery, stdout, stderr io.Writer) *Actions {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Actions{gallery: g, stdout: stdout, stderr: stderr}
}

// Execute runs the button command with its arguments. dst overrides an
// empty destination argument.
func (a *Actions) Execute(ctx context.Context, command string, args []any, dst string) error {
	arg := func(i int) any {
		if i < len(args) {
			return args[i]
		}
		return nil
	}
	target := func(i int) string {
		if s, _ := arg(i).(string); s != "" {
			return s
		}
		return dst
	}

	switch command {
	case CreateSampleCommand:
		return a.CreateSample(ctx, arg(0), target(1))
	case CreateOfficeAddinSampleCommand:
		src, _ := arg(0).(string)
		return a.CreateSample(ctx, src, target(1))
	case CreateWXPProjectCommand:
		src, _ := arg(0).(string)
		return a.CreateWXPProject(ctx, src, target(1))
	case CreateTemplateCommand:
		return a.CreateTemplate(ctx, arg(0), target(1))
	default:
		return fmt.Errorf("unknown action %q", command)
	}
}

// CreateSample copies a local folder, or downloads a catalog sample, into
// dst. src is a folder path or a project (ProjectMetadata or its decoded
// JSON form).
func (a *Actions) CreateSample(ctx context.Context, src any, dst string) error {
	if dst == "" {
		return ErrNoDestination
	}
	if folder, ok := src.(string); ok {
		if err := gallery.CopyDir(folder, dst); err != nil {
			return fmt.Errorf("create sample: %w", err)
		}
		slog.Info("project created", "dst", dst)
		return nil
	}

	p, err := asProject(src)
	if err != nil {
		return err
	}
	info, err := a.gallery.DownloadURLInfo(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("create sample %s: %w", p.ID, err)
	}
	if err := a.gallery.DownloadTo(ctx, info, dst); err != nil {
		return fmt.Errorf("create sample %s: %w", p.ID, err)
	}
	slog.Info("sample created", "sample", p.ID, "dst", dst)
	return nil
}

// CreateWXPProject moves a prepared add-in project from src to dst and
// installs its dependencies when Install is set.
func (a *Actions) CreateWXPProject(ctx context.Context, src, dst string) error {
	if dst == "" {
		return ErrNoDestination
	}
	if err := gallery.CopyDir(src, dst); err != nil {
		return fmt.Errorf("create add-in project: %w", err)
	}
	if err := os.RemoveAll(src); err != nil {
		slog.Warn("remove staged project", "path", src, "error", err)
	}
	slog.Info("add-in project created", "dst", dst)

	if !a.Install {
		return nil
	}
	if err := gallery.RunScript(ctx, dst, "npm install", a.stdout, a.stderr); err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}
	return nil
}

// CreateTemplate scaffolds a template with the Teams Toolkit CLI. data is
// the template's Data, carrying the capability.
func (a *Actions) CreateTemplate(ctx context.Context, data any, dst string) error {
	if dst == "" {
		return ErrNoDestination
	}
	var tmpl struct {
		Capabilities string `json:"capabilities"`
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	if err := json.Unmarshal(raw, &tmpl); err != nil || tmpl.Capabilities == "" {
		return fmt.Errorf("create template: no capability in %s", raw)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	script := fmt.Sprintf("npx --yes @microsoft/teamsapp-cli new --capability %s --folder . --interactive false", tmpl.Capabilities)
	return gallery.RunScript(ctx, dst, script, a.stdout, a.stderr)
}

func asProject(v any) (projectmatch.ProjectMetadata, error) {
	switch p := v.(type) {
	case projectmatch.ProjectMetadata:
		return p, nil
	case *projectmatch.ProjectMetadata:
		return *p, nil
	case nil:
		return projectmatch.ProjectMetadata{}, errors.New("no sample given")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return projectmatch.ProjectMetadata{}, err
	}
	var p projectmatch.ProjectMetadata
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return projectmatch.ProjectMetadata{}, fmt.Errorf("not a sample: %s", raw)
	}
	return p, nil
}
