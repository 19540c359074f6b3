package tools

import (
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
)

// Registry holds the tools by name together with the manifest that
// contributed them.
type Registry struct {
	tools     map[string]tool.InvokableTool
	manifests map[string]*Manifest // tool name → parent manifest
	specs     map[string]*ToolSpec // tool name → specific ToolSpec
	groups    map[string][]string  // manifest name → tool names
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]tool.InvokableTool),
		manifests: make(map[string]*Manifest),
		specs:     make(map[string]*ToolSpec),
		groups:    make(map[string][]string),
	}
}

// Register adds a tool under name. The manifest must carry a ToolSpec
// with the same name.
func (r *Registry) Register(name string, t tool.InvokableTool, manifest *Manifest) error {
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	var spec *ToolSpec
	for i := range manifest.Tools {
		if manifest.Tools[i].Name == name {
			spec = &manifest.Tools[i]
			break
		}
	}
	if spec == nil {
		return fmt.Errorf("tool %q: no spec in manifest %q", name, manifest.Name)
	}
	if manifest.Dangerous {
		spec.Dangerous = true
	}
	r.tools[name] = t
	r.manifests[name] = manifest
	r.specs[name] = spec
	r.groups[manifest.Name] = append(r.groups[manifest.Name], name)
	return nil
}

// Tool returns the tool registered under name, or nil.
func (r *Registry) Tool(name string) tool.InvokableTool {
	return r.tools[name]
}

// Tools returns all registered tools, ordered by name.
func (r *Registry) Tools() []tool.InvokableTool {
	out := make([]tool.InvokableTool, 0, len(r.tools))
	for _, name := range r.ToolNames() {
		out = append(out, r.tools[name])
	}
	return out
}

// Manifest returns the parent manifest for a given tool name.
func (r *Registry) Manifest(name string) *Manifest {
	return r.manifests[name]
}

// ToolSpec returns the ToolSpec for a given tool name.
func (r *Registry) ToolSpec(name string) *ToolSpec {
	return r.specs[name]
}

// GroupTools returns the tool names contributed by a manifest.
func (r *Registry) GroupTools(group string) []string {
	return r.groups[group]
}

// ToolNames returns all registered tool names, sorted.
func (r *Registry) ToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDangerous reports whether the named tool writes to disk.
func (r *Registry) IsDangerous(name string) bool {
	spec := r.specs[name]
	return spec != nil && spec.Dangerous
}
