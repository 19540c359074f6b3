package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
)

// Write modes.
const (
	WriteModeOverwrite = "overwrite"
	WriteModeAddin     = "addin"
)

// WriteFileTool writes generated code into project files under Root.
type WriteFileTool struct {
	Root string
}

// NewWriteFileTool creates a write_file tool confined to root. An empty
// root allows any path.
func NewWriteFileTool(root string) *WriteFileTool {
	return &WriteFileTool{Root: root}
}

// WriteFileManifest returns the manifest for the write_file tool.
func WriteFileManifest() *Manifest {
	return &Manifest{
		Name:        "write_file",
		Description: "Write generated code into project files",
		Dangerous:   true,
		Tools: []ToolSpec{
			{
				Name: "write_file",
				Description: "Write content to a file, creating parent directories. In addin mode, path is an Office add-in project " +
					"folder and the code is merged into its task pane: appended to taskpane.ts/js with a button and click " +
					"handler per exported function.",
				Parameters: map[string]ParamSpec{
					"path": {
						Type:        "string",
						Description: "File to write, or the add-in project folder in addin mode",
						Required:    true,
					},
					"content": {
						Type:        "string",
						Description: "Content to write. Markdown code fences are stripped.",
						Required:    true,
					},
					"mode": {
						Type:        "string",
						Description: "overwrite (default) or addin",
						Enum:        []string{WriteModeOverwrite, WriteModeAddin},
					},
				},
			},
		},
	}
}

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

type writeFileOutput struct {
	Path         string   `json:"path"`
	BytesWritten int      `json:"bytes_written"`
	Functions    []string `json:"functions,omitempty"`
}

func (t *WriteFileTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo(&WriteFileManifest().Tools[0]), nil
}

func (t *WriteFileTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input writeFileInput
	if err := decodeArgs("write_file", argumentsInJSON, &input); err != nil {
		return "", err
	}
	if input.Path == "" {
		return "", fmt.Errorf("write_file: path is required")
	}
	path, err := resolveInRoot(t.Root, input.Path)
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}

	content := stripFence(input.Content)

	switch input.Mode {
	case "", WriteModeOverwrite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("write_file: create dirs: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write_file: %w", err)
		}
		return encodeResult("write_file", writeFileOutput{Path: path, BytesWritten: len(content)})
	case WriteModeAddin:
		code := chat.CorrectEnumSpelling(content)
		if err := gallery.ModifyFile(path, code); err != nil {
			return "", fmt.Errorf("write_file: %w", err)
		}
		return encodeResult("write_file", writeFileOutput{
			Path:         path,
			BytesWritten: len(code),
			Functions:    gallery.ExportedFunctions(code),
		})
	default:
		return "", fmt.Errorf("write_file: unknown mode %q", input.Mode)
	}
}

// stripFence unwraps content sent as a single fenced code block.
func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return s
	}
	body := strings.TrimSuffix(trimmed, "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return s
	}
	return strings.TrimRight(body[nl+1:], "\n") + "\n"
}

var _ tool.InvokableTool = (*WriteFileTool)(nil)
