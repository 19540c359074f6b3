package skills

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
)

const (
	// AskOfficeAddinCommand stamps every result the Planner returns.
	AskOfficeAddinCommand = "askOfficeAddin"
	// MinConfidence is the lowest score accepted from the model.
	MinConfidence = 80
)

const plannerPrompt = `what is the most accurate description of for the current user's ask? Pick the best one from the task list below, strictly follow this format as your output: [your confidence score as xx%] :: [task description] :: [additional input]. additional input should be empty unless it be explicitly set in the task description. And not need to add any explaination for your answer.
List of tasks:`

// Selection is the skill the Planner picked for a request.
type Selection struct {
	Skill           Skill
	Capability      string
	AdditionalInput string
	Score           int
}

// Planner classifies a request against the registered capabilities and
// dispatches it to the single matching skill.
type Planner struct {
	registry *Registry
	llm      LLM
	bus      chat.Publisher
}

// NewPlanner creates a Planner. bus may be nil.
func NewPlanner(registry *Registry, llm LLM, bus chat.Publisher) *Planner {
	return &Planner{registry: registry, llm: llm, bus: bus}
}

// Prompt builds the classification system prompt.
func (p *Planner) Prompt() string {
	var sb strings.Builder
	sb.WriteString(plannerPrompt)
	for _, c := range p.registry.Capabilities() {
		fmt.Fprintf(&sb, "\r\n* %s. %s", c.Capability, c.PromptForAdditionalInput)
	}
	return sb.String()
}

// ProcessRequest selects a skill and invokes it. Without a selection the
// result is empty; in both cases it carries the askOfficeAddin command.
func (p *Planner) ProcessRequest(ctx context.Context, req *chat.Request) (chat.HandlerResult, error) {
	sel, err := p.Select(ctx, req)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	if sel == nil {
		return chat.NewResult(AskOfficeAddinCommand), nil
	}

	if p.bus != nil {
		p.bus.Publish(events.NewTypedEventWithSession(events.SourceSkill, events.SkillInvokedPayload{
			Skill:      sel.Skill.Name(),
			Capability: sel.Capability,
			Score:      sel.Score,
		}, req.SessionID))
	}

	res, err := sel.Skill.Invoke(ctx, sel.AdditionalInput, req)
	if err != nil {
		return chat.HandlerResult{}, err
	}
	res.Result.Metadata.SlashCommand = AskOfficeAddinCommand
	return res, nil
}

// Select asks the model which capability fits and returns the matching
// skill, or nil when the score is too low, the reply is malformed, or zero
// or several skills accept the capability.
func (p *Planner) Select(ctx context.Context, req *chat.Request) (*Selection, error) {
	reply, err := p.llm.Ask(ctx, req, p.Prompt())
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	slog.Debug("planner reply", "reply", reply)

	score, _ := chat.FirstNumber(reply)
	if score < MinConfidence {
		return nil, nil
	}

	capability, input, ok := ParsePlannerReply(reply)
	if !ok {
		return nil, nil
	}

	capable := p.registry.CapableSkills(capability, input)
	if len(capable) != 1 {
		slog.Debug("planner: no unique skill", "capability", capability, "candidates", len(capable))
		return nil, nil
	}

	return &Selection{
		Skill:           capable[0],
		Capability:      capability,
		AdditionalInput: input,
		Score:           score,
	}, nil
}

// ParsePlannerReply extracts task description and additional input from a
// "[xx%] :: [task] :: [input]" reply. Exactly one line may carry the
// ":: " separator.
func ParsePlannerReply(reply string) (capability, additionalInput string, ok bool) {
	var match string
	count := 0
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimRight(line, "\r")
		idx := strings.Index(line, ":: ")
		if idx < 0 {
			continue
		}
		count++
		match = line[idx+len(":: "):]
	}
	if count != 1 {
		return "", "", false
	}

	parts := strings.Split(match, "::")
	capability = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		additionalInput = strings.TrimSpace(parts[1])
	}
	return capability, additionalInput, true
}
