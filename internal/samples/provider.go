// Package samples holds the Office JavaScript API knowledge the code
// generator feeds to the model: per-API code samples, per-object API lists
// and the Word object catalog.
package samples

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

//go:embed data/*.json
var dataFS embed.FS

// SampleData is one code sample for an API member.
type SampleData struct {
	Name     string `json:"name"`
	DocLink  string `json:"docLink"`
	Sample   string `json:"sample"`
	Scenario string `json:"scenario"`
}

type sampleFile struct {
	Samples []struct {
		Namespace string `json:"namespace"`
		SampleData
	} `json:"samples"`
}

// Node is one namespace segment. Children are keyed by lower-cased segment,
// Codes by lower-cased member name.
type Node struct {
	Name     string
	Children map[string]*Node
	Codes    map[string]SampleData
}

func newNode(name string) *Node {
	return &Node{
		Name:     name,
		Children: make(map[string]*Node),
		Codes:    make(map[string]SampleData),
	}
}

// Provider answers API sample lookups. Sample data is parsed on first use.
type Provider struct {
	source []byte

	once sync.Once
	mu   sync.RWMutex
	root *Node
}

// NewProvider creates a provider over a samples JSON document
// ({"samples":[{namespace,name,docLink,sample,scenario}]}). A nil source
// yields an empty provider.
func NewProvider(source []byte) *Provider {
	return &Provider{source: source, root: newNode("root")}
}

var (
	defaultOnce     sync.Once
	defaultProvider *Provider
)

// Default returns the provider over the embedded API samples.
func Default() *Provider {
	defaultOnce.Do(func() {
		data, err := dataFS.ReadFile("data/api_samples.json")
		if err != nil {
			slog.Error("read embedded api samples", "error", err)
		}
		defaultProvider = NewProvider(data)
	})
	return defaultProvider
}

func (p *Provider) init() {
	p.once.Do(func() {
		if len(p.source) == 0 {
			return
		}
		var f sampleFile
		if err := json.Unmarshal(p.source, &f); err != nil {
			slog.Error("parse api samples", "error", err)
			return
		}
		for _, s := range f.Samples {
			p.Add(s.Namespace, s.Name, s.DocLink, s.Sample, s.Scenario)
		}
	})
}

// Add registers a sample under a dotted namespace such as "Excel.Workbook".
// Namespace segments and name are matched case-insensitively.
func (p *Provider) Add(namespace, name, docLink, code, scenario string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	node := p.root
	for _, seg := range strings.Split(strings.ToLower(namespace), ".") {
		child, ok := node.Children[seg]
		if !ok {
			child = newNode(seg)
			node.Children[seg] = child
		}
		node = child
	}
	key := strings.ToLower(name)
	node.Codes[key] = SampleData{Name: key, DocLink: docLink, Sample: code, Scenario: scenario}
}

// APISampleCodes returns the sample for member name of className, keyed by
// sample name. The map is empty when any path segment or the member is
// unknown.
func (p *Provider) APISampleCodes(className, name string) map[string]SampleData {
	p.init()

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]SampleData)
	node := p.root
	for _, seg := range strings.Split(strings.ToLower(className), ".") {
		child, ok := node.Children[seg]
		if !ok {
			return out
		}
		node = child
	}
	if s, ok := node.Codes[strings.ToLower(name)]; ok {
		out[s.Name] = s
	}
	return out
}

// Len returns the number of samples loaded.
func (p *Provider) Len() int {
	p.init()

	p.mu.RLock()
	defer p.mu.RUnlock()
	return countCodes(p.root)
}

func countCodes(n *Node) int {
	total := len(n.Codes)
	for _, c := range n.Children {
		total += countCodes(c)
	}
	return total
}

// FormatSnippet renders a sample the way the code generator quotes it.
// kind is "Method" or "Property".
func FormatSnippet(className, kind, member string, s SampleData) string {
	return fmt.Sprintf("- The code sample of Class: %s and %s: %s for the scenario: %s listed below: %s, API reference: %s",
		className, kind, member, s.Scenario, s.Sample, s.DocLink)
}
