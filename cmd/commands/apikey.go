package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/auth"
	"github.com/teamsfx/tfx/internal/drivers"
	"github.com/teamsfx/tfx/internal/drivers/apikey"
)

// NewAPIKeyCommand returns the apikey subcommand.
func NewAPIKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apikey",
		Usage: "Manage API key registrations in the Teams Developer Portal",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Register an API key (the apiKey/create action outside a lifecycle file)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Registration description", Required: true},
					&cli.StringFlag{Name: "app-id", Usage: "Teams app id the key is bound to", Required: true},
					&cli.StringFlag{
						Name:    "client-secret",
						Usage:   "One or two comma-separated secrets of 10 to 128 word characters",
						Sources: cli.EnvVars("SECRET_API_KEY"),
					},
					&cli.StringFlag{
						Name:  "registration-id",
						Usage: "Existing registration to check instead of creating one",
					},
					&cli.StringFlag{
						Name:  "output-var",
						Usage: "Env var name the registration id is reported under",
						Value: "API_KEY_REGISTRATION_ID",
					},
				},
				Action: runAPIKeyCreate,
			},
		},
	}
}

func runAPIKeyCreate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := newDriverRegistry(cfg, nil)
	if err != nil {
		return err
	}
	d, _ := reg.Get(apikey.ActionName)

	outputVar := cmd.String("output-var")
	env := map[string]string{}
	if id := cmd.String("registration-id"); id != "" {
		env[outputVar] = id
	}
	args := map[string]any{
		"name":  cmd.String("name"),
		"appId": cmd.String("app-id"),
	}
	if s := cmd.String("client-secret"); s != "" {
		args["clientSecret"] = s
	}

	res := d.Execute(ctx, args, &drivers.Context{
		Env:    env,
		Tokens: auth.NewEnvTokenProvider(cfg.Tokens.AppStudioEnv, cfg.Tokens.GraphEnv),
		Step:   apikey.ActionName,
	}, map[string]string{"registrationId": outputVar})

	for _, s := range res.Summaries {
		fmt.Fprintln(os.Stderr, s)
	}
	if res.Err != nil {
		return res.Err
	}

	keys := make([]string, 0, len(res.Outputs))
	for k := range res.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, res.Outputs[k])
	}
	fmt.Print(sb.String())
	return nil
}
