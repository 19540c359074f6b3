package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/render"
)

// NewChatCommand returns the chat subcommand.
func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with a participant",
		Description: "Type a message or a /command. Enter a button number to run it, " +
			"and /exit to leave.",
		Flags: append(chatFlags(),
			&cli.BoolFlag{
				Name:  "install",
				Usage: "Run npm install after creating an add-in project",
			},
		),
		Action: runChat,
	}
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	a.actions.Install = cmd.Bool("install")

	r := &repl{
		app:         a,
		term:        render.NewTerminal(os.Stdout),
		in:          bufio.NewScanner(os.Stdin),
		out:         os.Stdout,
		participant: cmd.String("participant"),
		sessionID:   cmd.String("session"),
	}
	return r.run(ctx)
}

type repl struct {
	app         *app
	term        *render.Terminal
	in          *bufio.Scanner
	out         io.Writer
	participant string
	sessionID   string
}

func (r *repl) prompt(label string) (string, bool) {
	fmt.Fprint(r.out, render.PromptStyle.Render(label))
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

func (r *repl) run(ctx context.Context) error {
	p, ok := r.app.runner.Participant(r.participant)
	if !ok {
		return fmt.Errorf("%w: %s", agent.ErrUnknownParticipant, r.participant)
	}
	fmt.Fprintf(r.out, "%s (%s). /help lists commands, /exit quits.\n", p.Name, p.ID)

	for {
		line, ok := r.prompt("> ")
		if !ok || line == "/exit" || line == "/quit" {
			return r.in.Err()
		}
		if line == "" {
			continue
		}
		if n, err := strconv.Atoi(line); err == nil {
			r.runButton(ctx, n)
			continue
		}

		r.term.ResetButtons()
		reply, err := r.app.runner.Run(ctx, &chat.Request{
			Participant: r.participant,
			Prompt:      line,
			SessionID:   r.sessionID,
			Stream:      r.term,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.term.Error(err)
			continue
		}
		r.sessionID = reply.SessionID
		r.term.Followups(reply.Followups)
	}
}

func (r *repl) runButton(ctx context.Context, n int) {
	buttons := r.term.Buttons()
	if n < 1 || n > len(buttons) {
		r.term.Error(fmt.Errorf("no button %d", n))
		return
	}
	b := buttons[n-1]
	r.term.Progress(b.Title)

	err := r.app.runAction(ctx, b, "")
	if errors.Is(err, agent.ErrNoDestination) {
		dst, ok := r.prompt("destination folder: ")
		if !ok || dst == "" {
			return
		}
		err = r.app.runAction(ctx, b, dst)
	}
	if err != nil {
		r.term.Error(err)
		return
	}
	r.term.Markdown("Done.\n")
	r.term.Flush()
}
