package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/projectmatch"
)

// NewNewCommand returns the new subcommand.
func NewNewCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Scaffold a project from a catalog sample",
		ArgsUsage: "<sample id> [folder]",
		Action:    runNew,
	}
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().Get(0)
	if id == "" {
		return fmt.Errorf("usage: tfx new <sample id> [folder]")
	}
	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = id
	}
	if entries, err := os.ReadDir(dst); err == nil && len(entries) > 0 {
		return fmt.Errorf("%s is not empty", dst)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	actions := agent.NewActions(gallery.NewClient(cfg.Samples, nil), os.Stderr, os.Stderr)
	if err := actions.CreateSample(ctx, projectmatch.ProjectMetadata{ID: id}, dst); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "sample %s created in %s\n", id, dst)
	return nil
}
