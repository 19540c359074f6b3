package skills

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/samples"
)

// SampleSource looks up API code samples.
type SampleSource interface {
	APISampleCodes(className, name string) map[string]samples.SampleData
}

// CodeGenerator breaks an automation ask into sub-tasks, grounds code
// generation on known API samples and streams a self-reviewed answer.
type CodeGenerator struct {
	llm     LLM
	samples SampleSource
}

// NewCodeGenerator creates the code generator skill.
func NewCodeGenerator(llm LLM, src SampleSource) *CodeGenerator {
	return &CodeGenerator{llm: llm, samples: src}
}

func (g *CodeGenerator) Name() string       { return "Code Generator" }
func (g *CodeGenerator) Capability() string { return "How to automate a process?" }

func (g *CodeGenerator) PromptForAdditionalInput() string {
	return "If this is the case, briefly descript what the process user should do, to automate using Office JavaScript add-in or api. Set the description as part of the additional input. Think how to break down that task into smaller step by step guidances, given explainations for each step, as rest part of additional input. "
}

func (g *CodeGenerator) CanInvoke(capability, _ string) bool {
	return capabilityMatches(g.Capability(), capability)
}

const (
	clarifyStart    = "Ask-for-clarification-start:"
	clarifyEnd      = "Ask-for-clarification-end"
	subTasksStart   = "Sub-tasks-start:"
	subTasksEnd     = "Sub-tasks-end"
	apiMembersStart = "Objects/Properties/Method-start:"
	apiMembersEnd   = "Objects/Properties/Method-end"
)

// Invoke runs pre-scan, first-round generation and self-reflection.
func (g *CodeGenerator) Invoke(ctx context.Context, additionalInput string, req *chat.Request) (chat.HandlerResult, error) {
	start := time.Now()
	scan, err := g.llm.Ask(ctx, req, preScanPrompt(req.Prompt, additionalInput))
	if err != nil {
		return chat.HandlerResult{}, fmt.Errorf("code generator: pre-scan: %w", err)
	}
	slog.Debug("code generator pre-scan", "elapsed", time.Since(start))

	if missing, ok := between(scan, clarifyStart, clarifyEnd); ok {
		stream(req).Markdown(clarificationHint(req.Prompt, additionalInput, missing))
		return chat.NewResult(""), nil
	}

	subTasks, ok := between(scan, subTasksStart, subTasksEnd)
	if !ok {
		subTasks = additionalInput
	}

	prompt := firstRoundPrompt(req.Prompt, subTasks)
	if members, ok := between(scan, apiMembersStart, apiMembersEnd); ok {
		if snippets := g.snippets(ParseAPIMembers(members)); len(snippets) > 0 {
			prompt += "\r\nHere are some code snippets example for you to reference:\n\n" +
				strings.Join(snippets, "\r\n") + "\n\n"
		}
	}

	start = time.Now()
	draft, err := g.llm.Ask(ctx, req, prompt)
	if err != nil {
		return chat.HandlerResult{}, fmt.Errorf("code generator: first round: %w", err)
	}
	slog.Debug("code generator first round", "elapsed", time.Since(start))

	start = time.Now()
	if _, err := g.llm.Verbatim(ctx, req, selfReflectionPrompt(req.Prompt, subTasks, draft)); err != nil {
		return chat.HandlerResult{}, fmt.Errorf("code generator: self-reflection: %w", err)
	}
	slog.Debug("code generator self-reflection", "elapsed", time.Since(start))

	return chat.NewResult(""), nil
}

func (g *CodeGenerator) snippets(members []APIMember) []string {
	if g.samples == nil {
		return nil
	}
	var out []string
	// Methods first, then properties.
	for _, kind := range []string{"Method", "Property"} {
		for _, m := range members {
			if m.Kind != kind {
				continue
			}
			for api, s := range g.samples.APISampleCodes(m.Class, m.Name) {
				out = append(out, samples.FormatSnippet(m.Class, kind, api, s))
			}
		}
	}
	return out
}

// APIMember is a class member named in the pre-scan reply.
type APIMember struct {
	Class string
	Kind  string // Method or Property
	Name  string
}

var memberPrefixRe = regexp.MustCompile(`-\s*(Class|Property|Method):\s*'?`)

// ParseAPIMembers reads "- Class: 'X'" / "- Property: 'p'" / "- Method: 'm'"
// lines. Properties and methods attach to the closest preceding class.
func ParseAPIMembers(block string) []APIMember {
	var out []APIMember
	class := ""
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		value := strings.TrimSpace(strings.ReplaceAll(memberPrefixRe.ReplaceAllString(line, ""), "'", ""))
		switch {
		case strings.Contains(line, "Class"):
			value = strings.Replace(value, "Excel.run", "", 1)
			class = strings.TrimSpace(strings.Replace(value, ",", "", 1))
		case strings.Contains(line, "Property"):
			out = append(out, APIMember{Class: class, Kind: "Property", Name: value})
		case strings.Contains(line, "Method"):
			out = append(out, APIMember{Class: class, Kind: "Method", Name: value})
		}
	}
	return out
}

// between returns the text between the first start marker and the first
// end marker after it.
func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func stream(req *chat.Request) chat.ResponseStream {
	if req.Stream == nil {
		return chat.Discard
	}
	return req.Stream
}

func clarificationHint(ask, detail, missing string) string {
	return fmt.Sprintf(`
The task is about: %s<br>
It could be detailed write down as: %s<br>
However in order to continue to process, I need **more detail or clarification**:<br>
%s<br>
Please provide the missing information in chat window, and then I can continue to process.<br>
`, ask, detail, missing)
}

func preScanPrompt(ask, detail string) string {
	return fmt.Sprintf(`The task is about: %s, and this is the detail of task: %s

Break down the task into step by step sub tasks could performed by Office add-in JavaScript APIs, and list them below. Reference to the API reference:
Add-ins API reference for Excel: https://learn.microsoft.com/en-us/javascript/api/excel?view=excel-js-preview
Add-ins API reference for Word: https://learn.microsoft.com/en-us/javascript/api/word?view=word-js-preview
Add-ins API reference for Outlook: https://learn.microsoft.com/en-us/javascript/api/outlook?view=outlook-js-preview
Add-ins API reference for PowerPoint: https://learn.microsoft.com/en-us/javascript/api/powerpoint?view=powerpoint-js-preview
Add-ins API reference for OneNote: https://learn.microsoft.com/en-us/javascript/api/onenote?view=onenote-js-1.1
Add-ins API reference for Visio: https://learn.microsoft.com/en-us/javascript/api/visio?view=visio-js-1.1
Add-ins API reference for Common: https://learn.microsoft.com/en-us/javascript/api/office?view=common-js-preview

And give a full list of Office Add-in API Class, properties of Class, and methods of Class that you would use to perform each sub task. The output of following format: [Your confidence score] [line break] %s [Your sub task description] %s [line break] %s [line break] [Your list of Class, properties, and methods] [line break] %s. No need to add any explanations for your answer.

Alternatively, if the user's ask is not clear, and you can't make a recommendation based on the context to cover those missed information, you should stop processing and ask for clarification. Indicate if you can't make a recommendation based on the context by return following context as output, formatted as:
%s [line break] I can't make a recommendation based on the context to cover following missed information. [The list of missed information]. [line break] %s.

This is a sample output for the ask to clarify:
%s
I can't make a recommendation based on the context to cover following missed information.
- The stock price API endpoint.
- The prediction algorithm or model.
%s.

This is a sample output for the ask no need ask for clarification:
95%%
%s
1. Use Office JavaScript API to create a new Excel worksheet.
2. Use a stock price API to fetch the last two week's MSFT stock price.
3. Import the fetched data into the Excel worksheet.
4. Use a prediction algorithm or model to predict the next trading day's price.
5. Display the predicted price in the Excel worksheet.
%s
%s
1. Create a new Excel worksheet:
  - Class: 'Excel.Workbook'
  - Property: 'worksheets'
  - Method: 'add'

2. Fetch the last two week's MSFT stock price:
  - Global Function: 'fetch'

3. Import the fetched data into the Excel worksheet:
  - Class: 'Excel.Worksheet'
  - Method: 'getRange'
  - Class: 'Excel.Range'
  - Property: 'values'
%s

Think that step by step.
`, ask, detail,
		subTasksStart, subTasksEnd, apiMembersStart, apiMembersEnd,
		clarifyStart, clarifyEnd,
		clarifyStart, clarifyEnd,
		subTasksStart, subTasksEnd, apiMembersStart, apiMembersEnd)
}

func firstRoundPrompt(ask, subTasks string) string {
	return fmt.Sprintf(`The user ask is: %s. And that could be break down into a few steps:
%s

Generate Office JavaScript add-in function or code snippet according to the steps you listed above. You should strickly following those rules when you generate code:
1. Use real existing or product code.
2. Do not use placeholder.
3. Do not use pseudo code or hypothetical code.
4. Do not use hypothetical API
5. Do not use hypothetical service endpoint.
6. Instead, use well-known service, algorithm, or solutions as recommendation to cover uncleared details. Generate code using that recommendation.
7. Use real world data.
8. OK to use placeholder for credentials, API keys, tokens or other sensitive information.
9. OK to reference simliar code and transpile into javascript from the existing code base.
10. Implement all the steps you listed above, do not leave EMPTY implementation.
`, ask, subTasks)
}

func selfReflectionPrompt(ask, subTasks, draft string) string {
	return fmt.Sprintf(`You're a professional in Office JavaScript Add-ins developers with a lot of experience on JavaScript, CSS, HTML, popular algrithom, and Office Add-ins API. The user is a junior engineer do not have much of experience on JavaScript, CSS, HTML, popular algrithom, and Office Add-ins API. You're asked to generate code for the user's ask, please reply with clear code structure and detail explanations.

The user ask is: %[1]s. And that could be break down into following steps: %[2]s.

The following is the code snippet you generated:
%[3]s

Code above have issues, fix them and re-generate the code snippet for the user's ask. The issues are listed below:
1. Using codes or libraries only availabe in node environment. For example, code like "require", "import", or library like "express". Those should not be used in Office JavaScript Add-in.
2. Asynchronicity issue. For example, the code is not using the "await" keyword to call the async function. Or function is not marked as async.
3. Context.sync() is called in the right place
4. The context.sync() is called in a loop.
5. Upper case set to the first letter of the enumeration, variable and function name, which should be lower case.
6. The generate code is for Office Script. Should generate for Office JavaScript Add-in.
7. The code is not following the best practice of Office JavaScript Add-in development.
8. Not all desired steps are covered.

For multiple code snippets generated for different steps, if reasonable, wrap them in a one single method.

For the output, you should strictly following the following format:
[Your confidence score] : [Explain how to get that confident score]
The ask is: %[1]s
And it could be break down into following steps: %[2]s
[Your code snippet]
[Explaination of code snippet].
`, ask, subTasks, draft)
}
