package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/teamsfx/tfx/clients/ws"
	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
	wsprotocol "github.com/teamsfx/tfx/internal/gateway/ws"
	"github.com/teamsfx/tfx/internal/render"
)

func chatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "participant",
			Aliases: []string{"p"},
			Usage:   "Participant to address (teams, officeaddin)",
			Value:   agent.TeamsID,
		},
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "Session ID to resume (empty = new session)",
		},
	}
}

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send one message to a participant and print the response",
		ArgsUsage: "<message>",
		Flags: append(chatFlags(),
			&cli.StringSliceFlag{
				Name:  "var",
				Usage: "Request variable as key=value, e.g. --var error=... for /fix",
			},
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway WebSocket URL; empty runs the agent in-process",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Response timeout in seconds",
				Value: 300,
			},
		),
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	message := strings.Join(cmd.Args().Slice(), " ")
	if message == "" {
		return fmt.Errorf("usage: tfx ask <message>")
	}
	vars, err := parseVars(cmd.StringSlice("var"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int("timeout"))*time.Second)
	defer cancel()

	if url := cmd.String("gateway"); url != "" {
		if len(vars) > 0 {
			return errors.New("--var is not supported through the gateway")
		}
		return askGateway(ctx, url, cmd.String("participant"), cmd.String("session"), message)
	}

	a, err := newApp(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	term := render.NewTerminal(os.Stdout)
	reply, err := a.runner.Run(ctx, &chat.Request{
		Participant: cmd.String("participant"),
		Prompt:      message,
		SessionID:   cmd.String("session"),
		Variables:   vars,
		Stream:      term,
	})
	if err != nil {
		return err
	}
	term.Followups(reply.Followups)
	if cmd.String("session") == "" && reply.SessionID != "" {
		fmt.Fprintf(os.Stderr, "session: %s\n", reply.SessionID)
	}
	return nil
}

func parseVars(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", kv)
		}
		vars[k] = v
	}
	return vars, nil
}

// askGateway sends message through a running gateway and renders the
// response events of its session.
func askGateway(ctx context.Context, url, participant, sessionID, message string) error {
	client, err := wsclient.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer client.Close()

	if sessionID == "" {
		id, err := client.OpenSession(participant)
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		res, err := client.Await(id, nil)
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		var payload map[string]string
		if err := json.Unmarshal(res.Payload, &payload); err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		sessionID = payload["session_id"]
		fmt.Fprintf(os.Stderr, "session: %s\n", sessionID)
	}

	cmdName, prompt := chat.ParseCommand(message)
	if _, err := client.SendMessage(wsprotocol.SendMessageParams{
		Content:     prompt,
		Command:     cmdName,
		Participant: participant,
		SessionID:   sessionID,
	}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	term := render.NewTerminal(os.Stdout)
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("timeout waiting for response")
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if frame.Type != wsprotocol.FrameTypeEvent || frame.SessionID != sessionID {
			continue
		}
		done, err := renderFrame(term, frame)
		if done || err != nil {
			return err
		}
	}
}

// renderFrame writes one response event to term. It reports true once
// the turn's result has arrived.
func renderFrame(term *render.Terminal, frame wsprotocol.Frame) (bool, error) {
	switch events.EventType(frame.Event) {
	case events.EventChatMarkdown:
		var p events.ChatMarkdownPayload
		if json.Unmarshal(frame.Payload, &p) == nil {
			term.Markdown(p.Content)
		}
	case events.EventChatProgress:
		var p events.ChatProgressPayload
		if json.Unmarshal(frame.Payload, &p) == nil {
			term.Progress(p.Message)
		}
	case events.EventChatButton:
		var p events.ChatButtonPayload
		if json.Unmarshal(frame.Payload, &p) == nil {
			term.Button(chat.Button{Title: p.Title, Command: p.Command, Arguments: p.Arguments})
		}
	case events.EventChatFileTree:
		var p struct {
			BaseURI string              `json:"base_uri"`
			Tree    []chat.FileTreeNode `json:"tree"`
		}
		if json.Unmarshal(frame.Payload, &p) == nil {
			term.FileTree(p.Tree, p.BaseURI)
		}
	case events.EventChatResult:
		var p events.ChatResultPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return true, fmt.Errorf("decode result: %w", err)
		}
		term.Flush()
		if p.Error != "" {
			return true, fmt.Errorf("agent error: %s", p.Error)
		}
		for _, f := range p.Followups {
			term.Followups([]chat.Followup{{Label: f}})
		}
		return true, nil
	}
	return false, nil
}
