package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/teamsfx/tfx/internal/chat"
)

func TestTerminal_BuffersMarkdownUntilNextPart(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.Markdown("Here is the ")
	term.Markdown("project.")
	if buf.Len() != 0 {
		t.Fatalf("expected markdown to be buffered, got %q", buf.String())
	}

	term.Button(chat.Button{Title: "Create this project", Command: "tfx.createSample"})
	want := "Here is the project.\n[1] Create this project (tfx.createSample)\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
	if len(term.Buttons()) != 1 {
		t.Errorf("expected 1 button, got %d", len(term.Buttons()))
	}
	term.ResetButtons()
	if len(term.Buttons()) != 0 {
		t.Error("expected buttons to be reset")
	}
}

func TestTerminal_FileTree(t *testing.T) {
	var buf bytes.Buffer
	term := NewPlain(&buf)
	term.FileTree([]chat.FileTreeNode{
		{Name: "src", Children: []chat.FileTreeNode{{Name: "index.ts"}}},
		{Name: "package.json"},
	}, "/tmp/sample")

	want := "/tmp/sample\n├── src/\n│   └── index.ts\n└── package.json\n"
	if buf.String() != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestTerminal_FollowupsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	term := NewPlain(&buf)
	term.Markdown("done")
	term.Followups([]chat.Followup{chat.DefaultNextStep, {Label: "Generate more code"}})
	term.Error(errors.New("boom"))

	out := buf.String()
	for _, s := range []string{"done\n", "→ What's next I could do? (/nextstep)\n", "→ Generate more code\n", "error: boom\n"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in %q", s, out)
		}
	}
}

func TestTerminal_FlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	term := NewPlain(&buf)
	term.Flush()
	term.Progress("Fetching the Excel add-in template")
	if buf.String() != "… Fetching the Excel add-in template\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestMarkdown_EmptyUnchanged(t *testing.T) {
	if got := Markdown("  ", 80); got != "  " {
		t.Errorf("expected blank input unchanged, got %q", got)
	}
	if got := Markdown("**bold**", 80); !strings.Contains(got, "bold") {
		t.Errorf("expected rendered text to keep content, got %q", got)
	}
}
