package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/teamsfx/tfx/internal/chat"
)

const defaultWidth = 100

// Terminal is a chat.ResponseStream writing to a terminal. Markdown is
// buffered and rendered as a whole on Flush or before any other part, so
// streamed chunks do not break block formatting.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	width   int
	styled  bool
	pending strings.Builder
	buttons []chat.Button
}

var _ chat.ResponseStream = (*Terminal)(nil)

// NewTerminal creates a Terminal. Styling is enabled when out is a
// terminal; anything else gets plain text.
func NewTerminal(out io.Writer) *Terminal {
	t := &Terminal{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.styled = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			t.width = w - 2
		}
	}
	return t
}

// NewPlain creates an unstyled Terminal.
func NewPlain(out io.Writer) *Terminal {
	return &Terminal{out: out, width: defaultWidth}
}

func (t *Terminal) Markdown(text string) {
	t.mu.Lock()
	t.pending.WriteString(text)
	t.mu.Unlock()
}

func (t *Terminal) FileTree(nodes []chat.FileTreeNode, baseURI string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()

	var sb strings.Builder
	sb.WriteString(t.style(DirStyle, baseURI) + "\n")
	writeTree(&sb, nodes, "", t)
	fmt.Fprint(t.out, sb.String())
}

func (t *Terminal) Button(b chat.Button) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()

	t.buttons = append(t.buttons, b)
	fmt.Fprintf(t.out, "%s %s\n",
		t.style(ButtonStyle, fmt.Sprintf("[%d] %s", len(t.buttons), b.Title)),
		t.style(CommandStyle, "("+b.Command+")"))
}

func (t *Terminal) Progress(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	fmt.Fprintln(t.out, t.style(ProgressStyle, "… "+message))
}

// Flush renders buffered markdown.
func (t *Terminal) Flush() {
	t.mu.Lock()
	t.flushLocked()
	t.mu.Unlock()
}

func (t *Terminal) flushLocked() {
	if t.pending.Len() == 0 {
		return
	}
	text := t.pending.String()
	t.pending.Reset()
	if t.styled {
		text = Markdown(text, t.width)
	}
	fmt.Fprintln(t.out, strings.TrimRight(text, "\n"))
}

// Buttons returns the buttons shown so far, numbered from 1 in order.
func (t *Terminal) Buttons() []chat.Button {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]chat.Button, len(t.buttons))
	copy(out, t.buttons)
	return out
}

// ResetButtons forgets the buttons of the previous turn.
func (t *Terminal) ResetButtons() {
	t.mu.Lock()
	t.buttons = nil
	t.mu.Unlock()
}

// Followups prints suggested next prompts.
func (t *Terminal) Followups(fs []chat.Followup) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	for _, f := range fs {
		label := f.Label
		if f.Command != "" {
			label += " " + t.style(CommandStyle, "(/"+f.Command+")")
		}
		fmt.Fprintln(t.out, t.style(FollowupStyle, "→ ")+label)
	}
}

// Error prints err.
func (t *Terminal) Error(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	fmt.Fprintln(t.out, t.style(ErrorStyle, "error: "+err.Error()))
}

func (t *Terminal) style(s interface{ Render(...string) string }, text string) string {
	if !t.styled {
		return text
	}
	return s.Render(text)
}

func writeTree(sb *strings.Builder, nodes []chat.FileTreeNode, indent string, t *Terminal) {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		name := n.Name
		if len(n.Children) > 0 {
			name = t.style(DirStyle, name+"/")
		}
		sb.WriteString(indent + branch + name + "\n")
		writeTree(sb, n.Children, indent+next, t)
	}
}
