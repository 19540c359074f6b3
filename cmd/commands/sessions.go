package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/sessions"
	"github.com/teamsfx/tfx/internal/storage"
)

// NewSessionsCommand returns the sessions subcommand.
func NewSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect chat sessions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all sessions",
				Action: runSessionsList,
			},
			{
				Name:      "show",
				Usage:     "Show messages in a session",
				ArgsUsage: "<session_id>",
				Action:    runSessionsShow,
			},
			{
				Name:      "events",
				Usage:     "Show the event journal of a session recorded by the gateway",
				ArgsUsage: "<session_id>",
				Action:    runSessionsEvents,
			},
		},
		DefaultCommand: "list",
	}
}

func newStore(cmd *cli.Command) (*sessions.FileStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return sessions.NewFileStore(cfg.Sessions.Dir), nil
}

func runSessionsList(_ context.Context, cmd *cli.Command) error {
	store, err := newStore(cmd)
	if err != nil {
		return err
	}

	list, err := store.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPARTICIPANT\tMESSAGES\tTOKENS\tUPDATED\tTITLE")
	for _, s := range list {
		title := s.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			s.ID,
			s.Participant,
			s.MessageCount,
			s.TokenUsage.Input,
			s.TokenUsage.Output,
			s.UpdatedAt.Format("2006-01-02 15:04"),
			title,
		)
	}
	return w.Flush()
}

func runSessionsShow(_ context.Context, cmd *cli.Command) error {
	sessionID := cmd.Args().First()
	if sessionID == "" {
		return fmt.Errorf("usage: tfx sessions show <session_id>")
	}

	store, err := newStore(cmd)
	if err != nil {
		return err
	}

	msgs, err := store.LoadMessages(sessionID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	if len(msgs) == 0 {
		fmt.Println("No messages in this session.")
		return nil
	}

	for _, m := range msgs {
		role := m.Role
		if m.Command != "" {
			role += " /" + m.Command
		}
		fmt.Printf("[%s] %s: %s\n", m.Ts.Format("15:04:05"), role, m.Content)
	}
	return nil
}

func runSessionsEvents(_ context.Context, cmd *cli.Command) error {
	sessionID := cmd.Args().First()
	if sessionID == "" {
		return fmt.Errorf("usage: tfx sessions events <session_id>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	evts, err := storage.ReadLog(cfg.Events.LogDir, sessionID)
	if err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	if len(evts) == 0 {
		fmt.Println("No events recorded for this session.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tSOURCE\tPAYLOAD")
	for _, e := range evts {
		payload, _ := json.Marshal(e.Payload)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("15:04:05"), e.Type, e.Source, truncatePayload(string(payload), 80))
	}
	return w.Flush()
}

func truncatePayload(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
