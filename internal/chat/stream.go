package chat

import (
	"strings"
	"sync"

	"github.com/teamsfx/tfx/internal/events"
)

// FileTreeNode is one entry of a file tree shown to the user.
type FileTreeNode struct {
	Name     string         `json:"name"`
	Children []FileTreeNode `json:"children,omitempty"`
}

// Button is an action the user can trigger from a response.
type Button struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

// ResponseStream receives the parts of a participant's answer as they are
// produced.
type ResponseStream interface {
	Markdown(text string)
	FileTree(nodes []FileTreeNode, baseURI string)
	Button(b Button)
	Progress(message string)
}

// PartKind identifies the kind of a recorded response part.
type PartKind string

const (
	PartMarkdown PartKind = "markdown"
	PartFileTree PartKind = "filetree"
	PartButton   PartKind = "button"
	PartProgress PartKind = "progress"
)

// Part is a single recorded response part.
type Part struct {
	Kind    PartKind       `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Tree    []FileTreeNode `json:"tree,omitempty"`
	BaseURI string         `json:"base_uri,omitempty"`
	Button  *Button        `json:"button,omitempty"`
}

// Recorder collects response parts in memory.
type Recorder struct {
	mu    sync.Mutex
	parts []Part
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Markdown(text string) {
	r.add(Part{Kind: PartMarkdown, Text: text})
}

func (r *Recorder) FileTree(nodes []FileTreeNode, baseURI string) {
	r.add(Part{Kind: PartFileTree, Tree: nodes, BaseURI: baseURI})
}

func (r *Recorder) Button(b Button) {
	r.add(Part{Kind: PartButton, Button: &b})
}

func (r *Recorder) Progress(message string) {
	r.add(Part{Kind: PartProgress, Text: message})
}

func (r *Recorder) add(p Part) {
	r.mu.Lock()
	r.parts = append(r.parts, p)
	r.mu.Unlock()
}

// Parts returns a copy of the recorded parts.
func (r *Recorder) Parts() []Part {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Part, len(r.parts))
	copy(out, r.parts)
	return out
}

// Text concatenates all markdown parts.
func (r *Recorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, p := range r.parts {
		if p.Kind == PartMarkdown {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Buttons returns the recorded buttons in order.
func (r *Recorder) Buttons() []Button {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Button
	for _, p := range r.parts {
		if p.Kind == PartButton {
			out = append(out, *p.Button)
		}
	}
	return out
}

// Publisher is the subset of the event bus used by BusStream.
type Publisher interface {
	Publish(event events.Event)
}

// BusStream publishes response parts as chat events.
type BusStream struct {
	bus       Publisher
	sessionID string
}

// NewBusStream creates a stream that publishes to bus under sessionID.
func NewBusStream(bus Publisher, sessionID string) *BusStream {
	return &BusStream{bus: bus, sessionID: sessionID}
}

func (s *BusStream) Markdown(text string) {
	s.publish(events.ChatMarkdownPayload{Content: text})
}

func (s *BusStream) FileTree(nodes []FileTreeNode, baseURI string) {
	s.publish(events.ChatFileTreePayload{BaseURI: baseURI, Tree: nodes})
}

func (s *BusStream) Button(b Button) {
	s.publish(events.ChatButtonPayload{Title: b.Title, Command: b.Command, Arguments: b.Arguments})
}

func (s *BusStream) Progress(message string) {
	s.publish(events.ChatProgressPayload{Message: message})
}

func (s *BusStream) publish(p events.EventPayload) {
	s.bus.Publish(events.NewTypedEventWithSession(events.SourceAgent, p, s.sessionID))
}

type teeStream []ResponseStream

// Tee fans every part out to all streams, in order. Nil streams are skipped.
func Tee(streams ...ResponseStream) ResponseStream {
	var t teeStream
	for _, s := range streams {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

func (t teeStream) Markdown(text string) {
	for _, s := range t {
		s.Markdown(text)
	}
}

func (t teeStream) FileTree(nodes []FileTreeNode, baseURI string) {
	for _, s := range t {
		s.FileTree(nodes, baseURI)
	}
}

func (t teeStream) Button(b Button) {
	for _, s := range t {
		s.Button(b)
	}
}

func (t teeStream) Progress(message string) {
	for _, s := range t {
		s.Progress(message)
	}
}

// Discard is a ResponseStream that drops everything.
var Discard ResponseStream = discard{}

type discard struct{}

func (discard) Markdown(string)                 {}
func (discard) FileTree([]FileTreeNode, string) {}
func (discard) Button(Button)                   {}
func (discard) Progress(string)                 {}
