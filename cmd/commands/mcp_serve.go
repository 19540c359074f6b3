package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/gallery"
	tfxmcp "github.com/teamsfx/tfx/internal/mcp"
	"github.com/teamsfx/tfx/internal/models"
	"github.com/teamsfx/tfx/internal/samples"
	"github.com/teamsfx/tfx/internal/skills"
	"github.com/teamsfx/tfx/internal/tools"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose tfx tools as an MCP server (stdio)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "filter",
				UsageText: "Tool or tool group to expose (empty = all)",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "Directory file-writing tools are confined to",
				Value: ".",
			},
			&cli.BoolFlag{
				Name:  "read-only",
				Usage: "Hide tools that write to disk",
			},
			&cli.BoolFlag{
				Name:  "skills",
				Usage: "Also expose chat skills (needs a configured model)",
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP transport
	if !cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	deps := tools.Deps{
		Root:    cmd.String("root"),
		Gallery: gallery.NewClient(cfg.Samples, nil),
		Samples: samples.Default(),
	}
	if cmd.Bool("skills") {
		llm := chat.NewInteractor(preferredModel{src: models.NewRegistry(cfg.Models), name: cfg.Agent.CodeModel}, nil)
		registry := skills.NewRegistry(llm)
		registry.Register(skills.NewCodeGenerator(llm, samples.Default()))
		for _, dir := range cfg.Skills.Dirs {
			if err := registry.LoadDir(dir); err != nil {
				slog.Warn("skills not loaded", "dir", dir, "error", err)
			}
		}
		deps.Skills = registry.All()
	}

	toolRegistry, err := tools.Setup(ctx, deps)
	if err != nil {
		return err
	}

	filter := cmd.StringArg("filter")
	slog.Debug("starting MCP server", "filter", filter, "tools", len(toolRegistry.ToolNames()))

	server := tfxmcp.NewMCPServer(toolRegistry, tfxmcp.Options{
		Filter:   filter,
		ReadOnly: cmd.Bool("read-only"),
		Version:  Version,
	})
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
