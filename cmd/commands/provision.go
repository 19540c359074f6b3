package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/appstudio"
	"github.com/teamsfx/tfx/internal/auth"
	"github.com/teamsfx/tfx/internal/config"
	"github.com/teamsfx/tfx/internal/drivers"
	"github.com/teamsfx/tfx/internal/drivers/apikey"
	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/lifecycle"
	"github.com/teamsfx/tfx/internal/render"
	"github.com/teamsfx/tfx/internal/secrets"
)

// NewProvisionCommand returns the provision subcommand.
func NewProvisionCommand() *cli.Command {
	return &cli.Command{
		Name:      "provision",
		Usage:     "Run a stage of the project's teamsapp.yml",
		ArgsUsage: "[project dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment name (env/.env.<name>)",
				Value:   "dev",
			},
			&cli.StringFlag{
				Name:  "stage",
				Usage: "Stage to run: provision, deploy or publish",
				Value: lifecycle.StageProvision,
			},
		},
		Action: runProvision,
	}
}

// newDriverRegistry registers every shipped driver, reporting on bus.
func newDriverRegistry(cfg *config.Config, bus *events.Bus) (*drivers.Registry, error) {
	reg := drivers.NewRegistry(bus)
	if err := reg.Register(apikey.ActionName, apikey.New(appstudio.NewClient(cfg.AppStudio, nil))); err != nil {
		return nil, err
	}
	return reg, nil
}

func runProvision(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cmd.Args().First()
	if dir == "" {
		dir = "."
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	term := render.NewTerminal(os.Stdout)
	unsubscribe := bus.Subscribe(func(e events.Event) {
		if p, ok := events.ExtractPayload[events.DriverStartedPayload](e); ok {
			term.Progress(p.Step)
		}
	}, events.EventDriverStarted)
	defer unsubscribe()

	reg, err := newDriverRegistry(cfg, bus)
	if err != nil {
		return err
	}
	identity, err := secrets.LoadOrCreateIdentity(config.KeyPath())
	if err != nil {
		return fmt.Errorf("load secrets key: %w", err)
	}

	runner := &lifecycle.Runner{
		Drivers:  reg,
		Tokens:   auth.NewEnvTokenProvider(cfg.Tokens.AppStudioEnv, cfg.Tokens.GraphEnv),
		Identity: identity,
	}
	results, err := runner.Run(ctx, dir, cmd.String("stage"), cmd.String("env"))

	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "- **%s** (`%s`)\n", r.Name, r.Action)
		for _, s := range r.Summaries {
			fmt.Fprintf(&sb, "  - %s\n", s)
		}
		if len(r.Outputs) > 0 {
			fmt.Fprintf(&sb, "  - wrote %s\n", strings.Join(r.Outputs, ", "))
		}
	}
	term.Markdown(sb.String())
	term.Flush()
	if err != nil {
		return err
	}
	envPath, _ := lifecycle.EnvFile(dir, cmd.String("env"))
	fmt.Fprintf(os.Stderr, "%s stage done, outputs in %s\n", cmd.String("stage"), envPath)
	return nil
}
