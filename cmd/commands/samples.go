package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/gallery"
)

// NewSamplesCommand returns the samples subcommand.
func NewSamplesCommand() *cli.Command {
	return &cli.Command{
		Name:  "samples",
		Usage: "List the Teams samples catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Only samples carrying this tag",
			},
		},
		Action: runSamples,
	}
}

func runSamples(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := gallery.NewClient(cfg.Samples, nil).FetchSampleConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch samples: %w", err)
	}

	tag := strings.ToLower(cmd.String("tag"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTAGS")
	for _, s := range catalog.Samples {
		if tag != "" && !hasTag(s.Tags, tag) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Title, strings.Join(s.Tags, ", "))
	}
	return w.Flush()
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}
