package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotHandled is returned by an Owner that declines a request so the
	// caller can try the next one.
	ErrNotHandled = errors.New("request not handled")
	// ErrUnknownCommand is returned for a slash command no owner registered.
	ErrUnknownCommand = errors.New("unknown slash command")
)

// Handler handles one request.
type Handler func(ctx context.Context, req *Request) (HandlerResult, error)

// SlashCommand is a command exposed to the user as /name.
type SlashCommand struct {
	Name              string
	ShortDescription  string
	LongDescription   string
	IntentDescription string
	Handler           Handler
}

// Owner routes requests to the slash commands it owns.
type Owner struct {
	noInput        string
	defaultHandler Handler

	mu       sync.Mutex
	commands map[string]SlashCommand
}

// NewOwner creates an Owner. noInput names the command used for an empty
// prompt without a command; defaultHandler serves prompts without a command.
// Either may be empty/nil.
func NewOwner(noInput string, defaultHandler Handler) *Owner {
	return &Owner{
		noInput:        noInput,
		defaultHandler: defaultHandler,
		commands:       make(map[string]SlashCommand),
	}
}

// Add registers commands. A later command replaces an earlier one with the
// same name.
func (o *Owner) Add(cmds ...SlashCommand) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range cmds {
		o.commands[c.Name] = c
	}
}

// Commands returns the registered commands sorted by name.
func (o *Owner) Commands() []SlashCommand {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]SlashCommand, 0, len(o.commands))
	for _, c := range o.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Command returns the named command.
func (o *Owner) Command(name string) (SlashCommand, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.commands[name]
	return c, ok
}

// Handle dispatches req: an explicit slash command goes to its handler, an
// empty prompt without command goes to the no-input command, anything else
// to the default handler. Follow-ups are capped to MaxFollowUps.
func (o *Owner) Handle(ctx context.Context, req *Request) (HandlerResult, error) {
	handler, err := o.resolve(req)
	if err != nil {
		return HandlerResult{}, err
	}

	res, err := handler(ctx, req)
	if err != nil {
		return res, err
	}
	if len(res.Followups) > MaxFollowUps {
		res.Followups = res.Followups[:MaxFollowUps]
	}
	return res, nil
}

func (o *Owner) resolve(req *Request) (Handler, error) {
	if req.SlashCommand != "" {
		c, ok := o.Command(req.SlashCommand)
		if !ok {
			return nil, fmt.Errorf("/%s: %w", req.SlashCommand, ErrUnknownCommand)
		}
		return c.Handler, nil
	}
	if strings.TrimSpace(req.Prompt) == "" && o.noInput != "" {
		if c, ok := o.Command(o.noInput); ok {
			return c.Handler, nil
		}
	}
	if o.defaultHandler == nil {
		return nil, ErrNotHandled
	}
	return o.defaultHandler, nil
}

// ParseCommand splits a "/command rest" prompt. Prompts not starting with a
// slash are returned unchanged with an empty command.
func ParseCommand(prompt string) (command, rest string) {
	trimmed := strings.TrimSpace(prompt)
	if !strings.HasPrefix(trimmed, "/") {
		return "", prompt
	}
	name, rest, _ := strings.Cut(trimmed[1:], " ")
	return name, strings.TrimSpace(rest)
}
