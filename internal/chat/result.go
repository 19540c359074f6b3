package chat

// MaxFollowUps caps the follow-ups returned with a result.
const MaxFollowUps = 3

// Metadata identifies the command that produced a result.
type Metadata struct {
	SlashCommand string   `json:"slashCommand"`
	SampleIDs    []string `json:"sampleIds,omitempty"`
}

// Result is what a participant returns for one request.
type Result struct {
	Metadata     Metadata `json:"metadata"`
	ErrorDetails string   `json:"errorDetails,omitempty"`
}

// Followup is a suggested next prompt.
type Followup struct {
	Prompt  string `json:"prompt"`
	Command string `json:"command,omitempty"`
	Label   string `json:"label"`
}

// HandlerResult pairs a Result with the follow-ups to suggest.
type HandlerResult struct {
	Result    Result     `json:"result"`
	Followups []Followup `json:"followups,omitempty"`
}

// DefaultNextStep is suggested when a handler offers no follow-ups.
var DefaultNextStep = Followup{
	Prompt:  "",
	Command: "nextstep",
	Label:   "What's next I could do?",
}

// NewResult builds a HandlerResult for slashCommand with the given follow-ups.
func NewResult(slashCommand string, followups ...Followup) HandlerResult {
	return HandlerResult{
		Result:    Result{Metadata: Metadata{SlashCommand: slashCommand}},
		Followups: followups,
	}
}

// CapFollowUps truncates follow-ups to MaxFollowUps and falls back to
// DefaultNextStep when there are none.
func CapFollowUps(f []Followup) []Followup {
	if len(f) > MaxFollowUps {
		f = f[:MaxFollowUps]
	}
	if len(f) == 0 {
		return []Followup{DefaultNextStep}
	}
	return f
}
