package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/samples"
	"github.com/teamsfx/tfx/internal/skills"
)

type fakeGallery struct {
	downloaded []string
}

func (g *fakeGallery) FetchSampleConfig(context.Context) (*gallery.SampleConfig, error) {
	return &gallery.SampleConfig{Samples: []gallery.Sample{
		{ID: "hello-world-bot", Title: "Hello World Bot", ShortDescription: "A bot", Tags: []string{"Bot"}},
		{ID: "todo-list", Title: "Todo List", ShortDescription: "A tab", Tags: []string{"Tab"}},
	}}, nil
}

func (g *fakeGallery) DownloadURLInfo(_ context.Context, id string) (gallery.SampleURLInfo, error) {
	return gallery.SampleURLInfo{Owner: "OfficeDev", Repository: "TeamsFx-Samples", Ref: "dev", Dir: id}, nil
}

func (g *fakeGallery) DownloadTo(_ context.Context, info gallery.SampleURLInfo, dst string) error {
	g.downloaded = append(g.downloaded, info.Dir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dst, "README.md"), []byte("# "+info.Dir), 0o644)
}

type fakeSamples map[string]samples.SampleData

func (f fakeSamples) APISampleCodes(className, name string) map[string]samples.SampleData {
	out := map[string]samples.SampleData{}
	if s, ok := f[className+"."+name]; ok {
		out[name] = s
	}
	return out
}

type echoSkill struct{}

func (echoSkill) Name() string                     { return "Echo Skill" }
func (echoSkill) Capability() string               { return "Repeat the ask" }
func (echoSkill) PromptForAdditionalInput() string { return "Nothing" }
func (echoSkill) CanInvoke(string, string) bool    { return true }
func (echoSkill) Invoke(_ context.Context, _ string, req *chat.Request) (chat.HandlerResult, error) {
	req.Stream.Markdown("echo: " + req.Prompt)
	return chat.NewResult(""), nil
}

func setup(t *testing.T, root string) (*Registry, *fakeGallery) {
	t.Helper()
	g := &fakeGallery{}
	r, err := Setup(context.Background(), Deps{
		Root:    root,
		Gallery: g,
		Samples: fakeSamples{"Excel.Range.getCell": {Name: "getcell", Sample: "range.getCell(0, 0)", DocLink: "https://learn.microsoft.com", Scenario: "read a cell"}},
		Skills:  []skills.Skill{echoSkill{}},
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return r, g
}

func run(t *testing.T, r *Registry, name string, args any) (string, error) {
	t.Helper()
	tl := r.Tool(name)
	if tl == nil {
		t.Fatalf("tool %q not registered", name)
	}
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	return tl.InvokableRun(context.Background(), string(data))
}

func TestSetup_RegistersEveryTool(t *testing.T) {
	r, _ := setup(t, t.TempDir())

	want := "api2teams_generate,api_sample_lookup,list_samples,scaffold_sample,skill_echo_skill,write_file"
	if got := strings.Join(r.ToolNames(), ","); got != want {
		t.Errorf("ToolNames = %s, want %s", got, want)
	}
	if !r.IsDangerous("write_file") || !r.IsDangerous("scaffold_sample") {
		t.Error("expected disk-writing tools to be dangerous")
	}
	if r.IsDangerous("list_samples") || r.IsDangerous("api_sample_lookup") {
		t.Error("expected read-only tools not to be dangerous")
	}
	if got := r.GroupTools("samples"); len(got) != 2 {
		t.Errorf("GroupTools(samples) = %v, want 2 tools", got)
	}
	if len(r.Tools()) != 6 {
		t.Errorf("Tools len = %d, want 6", len(r.Tools()))
	}
}

func TestRegistry_DuplicateAndMissingSpec(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("write_file", NewWriteFileTool(""), WriteFileManifest()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("write_file", NewWriteFileTool(""), WriteFileManifest()); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := r.Register("other", NewWriteFileTool(""), WriteFileManifest()); err == nil {
		t.Error("expected registration without a spec to fail")
	}
}

func TestSkillToolSpec(t *testing.T) {
	r, _ := setup(t, t.TempDir())
	spec := r.ToolSpec("skill_echo_skill")
	if spec == nil {
		t.Fatal("expected skill spec")
	}
	if spec.Description != "Repeat the ask" {
		t.Errorf("Description = %q", spec.Description)
	}
	if p, ok := spec.Parameters["request"]; !ok || !p.Required || p.Type != "string" {
		t.Errorf("request param = %+v", p)
	}
	if _, ok := spec.Parameters["additional_input"]; !ok {
		t.Error("expected additional_input param")
	}

	out, err := run(t, r, "skill_echo_skill", map[string]string{"request": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "echo: hi" {
		t.Errorf("skill output = %q", out)
	}
}

func TestWriteFile(t *testing.T) {
	root := t.TempDir()
	r, _ := setup(t, root)

	out, err := run(t, r, "write_file", map[string]string{
		"path":    "src/index.js",
		"content": "```javascript\nconsole.log(1);\n```",
	})
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "src", "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "console.log(1);\n" {
		t.Errorf("file content = %q", data)
	}
	if !strings.Contains(out, `"bytes_written":16`) {
		t.Errorf("unexpected result %s", out)
	}

	if _, err := run(t, r, "write_file", map[string]string{"path": "../escape.txt", "content": "x"}); err == nil {
		t.Error("expected path outside root to be rejected")
	}
	if _, err := run(t, r, "write_file", map[string]string{"path": "a.txt", "content": "x", "mode": "append"}); err == nil {
		t.Error("expected unknown mode to fail")
	}
}

func TestWriteFile_AddinMode(t *testing.T) {
	root := t.TempDir()
	pane := filepath.Join(root, "addin", "src", "taskpane")
	if err := os.MkdirAll(pane, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pane, "taskpane.js"), []byte("Office.onReady(() => {});\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, _ := setup(t, root)

	out, err := run(t, r, "write_file", map[string]string{
		"path":    "addin",
		"mode":    WriteModeAddin,
		"content": "export async function setChart() {\n  sheet.charts.add(Excel.ChartType.ColumnClustered, range);\n}\n",
	})
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if !strings.Contains(out, `"functions":["setChart"]`) {
		t.Errorf("unexpected result %s", out)
	}
	data, err := os.ReadFile(filepath.Join(pane, "taskpane.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Excel.ChartType.columnClustered") {
		t.Errorf("expected enum spelling corrected, got:\n%s", data)
	}
}

func TestAPISampleLookup(t *testing.T) {
	r, _ := setup(t, t.TempDir())
	out, err := run(t, r, "api_sample_lookup", map[string]any{"class": "Excel.Range", "members": []string{"getCell", "nope"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Class: Excel.Range and Method: getCell") || !strings.Contains(out, "range.getCell(0, 0)") {
		t.Errorf("missing sample in %q", out)
	}
	if !strings.Contains(out, "No sample found for Excel.Range: nope") {
		t.Errorf("missing not-found line in %q", out)
	}
	if _, err := run(t, r, "api_sample_lookup", map[string]any{"class": "Excel.Range"}); err == nil {
		t.Error("expected members to be required")
	}
}

func TestSamplesTools(t *testing.T) {
	root := t.TempDir()
	r, g := setup(t, root)

	out, err := r.Tool("list_samples").InvokableRun(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	var list []sampleEntry
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 samples, got %d", len(list))
	}
	out, err = run(t, r, "list_samples", map[string]string{"tag": "Tab"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "todo-list") || strings.Contains(out, "hello-world-bot") {
		t.Errorf("tag filter not applied: %s", out)
	}

	if _, err := run(t, r, "scaffold_sample", map[string]string{"sample_id": "hello-world-bot"}); err != nil {
		t.Fatalf("scaffold_sample: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "hello-world-bot", "README.md")); err != nil {
		t.Errorf("expected sample on disk: %v", err)
	}
	if len(g.downloaded) != 1 || g.downloaded[0] != "hello-world-bot" {
		t.Errorf("downloaded = %v", g.downloaded)
	}
	if _, err := run(t, r, "scaffold_sample", map[string]string{"sample_id": "hello-world-bot"}); err == nil {
		t.Error("expected non-empty destination to be rejected")
	}
}

func TestAPI2TeamsTool(t *testing.T) {
	root := t.TempDir()
	spec := `openapi: 3.0.3
info:
  title: Todo
  version: 1.0.0
paths:
  /todos:
    get:
      operationId: listTodos
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                type: array
                items:
                  type: object
                  properties:
                    title:
                      type: string
`
	if err := os.WriteFile(filepath.Join(root, "todo.yaml"), []byte(spec), 0o644); err != nil {
		t.Fatal(err)
	}
	r, _ := setup(t, root)

	out, err := run(t, r, "api2teams_generate", map[string]string{"spec": "todo.yaml"})
	if err != nil {
		t.Fatalf("api2teams_generate: %v", err)
	}
	if !strings.Contains(out, "listTodosRequestCard.json") || !strings.Contains(out, "generated-cards") {
		t.Errorf("unexpected result %s", out)
	}
	if _, err := os.Stat(filepath.Join(root, "generated-cards", "mockApiProvider.ts")); err != nil {
		t.Errorf("expected provider on disk: %v", err)
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"```js\na\n```", "a\n"},
		{"```", "```"},
	}
	for _, tt := range tests {
		if got := stripFence(tt.in); got != tt.want {
			t.Errorf("stripFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
