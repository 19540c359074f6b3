package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/api2teams"
)

// NewAPI2TeamsCommand returns the api2teams subcommand.
func NewAPI2TeamsCommand() *cli.Command {
	return &cli.Command{
		Name:      "api2teams",
		Usage:     "Generate Adaptive Cards and API providers from an OpenAPI document",
		ArgsUsage: "<openapi.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output folder (default: generated-cards next to the document)",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Write into a non-empty output folder",
			},
		},
		Action: runAPI2Teams,
	}
}

func runAPI2Teams(ctx context.Context, cmd *cli.Command) error {
	spec := cmd.Args().First()
	if spec == "" {
		return fmt.Errorf("usage: tfx api2teams <openapi.yaml>")
	}
	output := cmd.String("output")
	if output == "" {
		output = api2teams.DefaultOutput(spec)
	}

	res, err := api2teams.Generate(ctx, spec, api2teams.Options{Output: output, Force: cmd.Bool("force")})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s: %d files written to %s\n", res.Title, res.Version, len(res.Files), output)
	for _, f := range res.Files {
		fmt.Println(f)
	}
	return nil
}
