package skills

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/teamsfx/tfx/internal/chat"
)

// Skill is a unit of work the Planner can dispatch to.
type Skill interface {
	Name() string
	// Capability is the task description offered to the model.
	Capability() string
	// PromptForAdditionalInput tells the model what to put in the
	// additional input segment when it picks this skill.
	PromptForAdditionalInput() string
	CanInvoke(capability, additionalInput string) bool
	Invoke(ctx context.Context, additionalInput string, req *chat.Request) (chat.HandlerResult, error)
}

// LLM is the model access skills need.
type LLM interface {
	Ask(ctx context.Context, req *chat.Request, systemPrompt string) (string, error)
	Verbatim(ctx context.Context, req *chat.Request, systemPrompt string) (string, error)
}

// capabilityMatches reports whether the declared capability contains the
// one the model picked.
func capabilityMatches(declared, picked string) bool {
	picked = strings.TrimSpace(picked)
	return picked != "" && strings.Contains(declared, picked)
}

// PromptSkill is a declarative skill: one instruction streamed to the user.
type PromptSkill struct {
	SkillName   string `json:"name"`
	Cap         string `json:"capability"`
	InputPrompt string `json:"prompt_for_additional_input"`
	Instruction string `json:"instruction"`
	// Model selects a provider; empty uses the request's model.
	Model string `json:"model,omitempty"`

	llm LLM
}

// LoadSkill reads a JSONC prompt skill definition from disk.
func LoadSkill(path string) (*PromptSkill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill %s: %w", path, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse skill %s: %w", path, err)
	}

	var s PromptSkill
	if err := jsonUnmarshalStrict(std, &s); err != nil {
		return nil, fmt.Errorf("parse skill %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate skill %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the skill definition for consistency.
func (s *PromptSkill) Validate() error {
	if s.SkillName == "" {
		return fmt.Errorf("skill name is required")
	}
	if s.Cap == "" {
		return fmt.Errorf("skill %q: capability is required", s.SkillName)
	}
	if s.Instruction == "" {
		return fmt.Errorf("skill %q: instruction is required", s.SkillName)
	}
	return nil
}

func (s *PromptSkill) Name() string                     { return s.SkillName }
func (s *PromptSkill) Capability() string               { return s.Cap }
func (s *PromptSkill) PromptForAdditionalInput() string { return s.InputPrompt }

func (s *PromptSkill) CanInvoke(capability, _ string) bool {
	return capabilityMatches(s.Cap, capability)
}

// Invoke streams the instruction's answer to the user.
func (s *PromptSkill) Invoke(ctx context.Context, additionalInput string, req *chat.Request) (chat.HandlerResult, error) {
	if s.llm == nil {
		return chat.HandlerResult{}, fmt.Errorf("skill %q: no model bound", s.SkillName)
	}
	system := s.Instruction
	if additionalInput != "" {
		system += "\n\nAdditional input: " + additionalInput
	}
	r := req
	if s.Model != "" {
		c := *req
		c.Model = s.Model
		r = &c
	}
	if _, err := s.llm.Verbatim(ctx, r, system); err != nil {
		return chat.HandlerResult{}, fmt.Errorf("skill %q: %w", s.SkillName, err)
	}
	return chat.NewResult(""), nil
}

// String returns a human-readable representation of the skill.
func (s *PromptSkill) String() string {
	return fmt.Sprintf("%s (%s)", s.SkillName, s.Cap)
}
