package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/config"
)

// Version is set at build time.
var Version = "dev"

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "tfx",
		Usage:   "Scaffold and provision Microsoft Teams apps and Office add-ins",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			NewAskCommand(),
			NewChatCommand(),
			NewServeCommand(),
			NewStatusCommand(),
			NewMCPServeCommand(),
			NewProvisionCommand(),
			NewAPIKeyCommand(),
			NewAPI2TeamsCommand(),
			NewNewCommand(),
			NewSamplesCommand(),
			NewSessionsCommand(),
		},
	}
}

// setupLogging logs to stderr so stdout stays free for answers and the
// MCP stdio transport.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return ctx, nil
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", path)
	return cfg, nil
}
