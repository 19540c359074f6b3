package skills

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// CapabilityInfo is what the Planner shows the model for one skill.
type CapabilityInfo struct {
	Capability               string `json:"capability"`
	PromptForAdditionalInput string `json:"promptForAdditionalInput"`
}

// Registry manages skills by name.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
	llm    LLM
}

// NewRegistry creates a new skill registry. llm is bound to prompt skills
// loaded with LoadDir.
func NewRegistry(llm LLM) *Registry {
	return &Registry{
		skills: make(map[string]Skill),
		llm:    llm,
	}
}

// LoadDir scans a directory for *.jsonc prompt skill files and loads them.
// A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("skills directory not found, skipping", "dir", dir)
			return nil
		}
		return fmt.Errorf("read skills dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonc") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		skill, err := LoadSkill(path)
		if err != nil {
			slog.Warn("failed to load skill", "path", path, "error", err)
			continue
		}
		skill.llm = r.llm
		r.Register(skill)
		slog.Debug("skill loaded", "name", skill.SkillName, "path", path)
	}

	return nil
}

// Register adds a skill. A skill with the same name is replaced.
func (r *Registry) Register(s Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.Name()] = s
}

// Get returns the skill with the given name, or nil.
func (r *Registry) Get(name string) Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skills[name]
}

// All returns all registered skills sorted by name.
func (r *Registry) All() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Names returns all registered skill names sorted alphabetically.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name()
	}
	return names
}

// Capabilities lists the declared capabilities, ordered by skill name.
func (r *Registry) Capabilities() []CapabilityInfo {
	all := r.All()
	out := make([]CapabilityInfo, len(all))
	for i, s := range all {
		out[i] = CapabilityInfo{
			Capability:               s.Capability(),
			PromptForAdditionalInput: s.PromptForAdditionalInput(),
		}
	}
	return out
}

// CapableSkills returns the skills that accept capability, ordered by name.
func (r *Registry) CapableSkills(capability, additionalInput string) []Skill {
	var out []Skill
	for _, s := range r.All() {
		if s.CanInvoke(capability, additionalInput) {
			out = append(out, s)
		}
	}
	return out
}

func jsonUnmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
