package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
)

// Compile-time check that SkillTool implements tool.InvokableTool.
var _ tool.InvokableTool = (*SkillTool)(nil)

// SkillTool adapts a Skill to Eino's tool.InvokableTool interface so it can
// be exposed outside the chat participants (MCP).
type SkillTool struct {
	skill Skill
	bus   chat.Publisher
}

// NewSkillTool creates a new skill tool adapter. bus may be nil.
func NewSkillTool(skill Skill, bus chat.Publisher) *SkillTool {
	return &SkillTool{skill: skill, bus: bus}
}

// ToolName derives a tool name from the skill name ("Code Generator" ->
// "skill_code_generator").
func ToolName(s Skill) string {
	b := []byte("skill_")
	for _, r := range s.Name() {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b = append(b, byte(r))
		case r >= 'A' && r <= 'Z':
			b = append(b, byte(r-'A'+'a'))
		default:
			if b[len(b)-1] != '_' {
				b = append(b, '_')
			}
		}
	}
	return string(b)
}

// Info returns the ToolInfo for Eino registration.
func (st *SkillTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolName(st.skill),
		Desc: st.skill.Capability(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"request": {
				Type:     schema.String,
				Desc:     "The user's ask",
				Required: true,
			},
			"additional_input": {
				Type: schema.String,
				Desc: st.skill.PromptForAdditionalInput(),
			},
		}),
	}, nil
}

type skillArgs struct {
	Request         string `json:"request"`
	AdditionalInput string `json:"additional_input"`
}

// InvokableRun executes the skill and returns everything it wrote as
// markdown.
func (st *SkillTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args skillArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("skill %q: parse args: %w", st.skill.Name(), err)
	}
	if args.Request == "" {
		return "", fmt.Errorf("skill %q: request is required", st.skill.Name())
	}

	rec := chat.NewRecorder()
	req := &chat.Request{
		ID:        uuid.NewString(),
		Prompt:    args.Request,
		Stream:    rec,
		SessionID: events.SessionIDFromContext(ctx),
	}

	if st.bus != nil {
		st.bus.Publish(events.NewTypedEventWithSession(events.SourceSkill, events.SkillInvokedPayload{
			Skill:      st.skill.Name(),
			Capability: st.skill.Capability(),
		}, req.SessionID))
	}

	if _, err := st.skill.Invoke(ctx, args.AdditionalInput, req); err != nil {
		return "", err
	}
	return rec.Text(), nil
}
