// Package apikey implements the apiKey/create driver, which registers an
// API secret in the Teams Developer Portal.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/teamsfx/tfx/internal/appstudio"
	"github.com/teamsfx/tfx/internal/auth"
	"github.com/teamsfx/tfx/internal/drivers"
)

// ActionName is the action name used in lifecycle files.
const ActionName = "apiKey/create"

const (
	helpLink = "https://aka.ms/teamsfx-actions/apiKey-create"

	// MaxSecrets is the number of secrets one registration holds.
	MaxSecrets = 2

	outputRegistrationID = "registrationId"
)

// One to MaxSecrets comma-separated secrets of 10 to 128 word characters.
var clientSecretRe = regexp.MustCompile(`^\w{10,128}(,\s*\w{10,128})*$`)

// ErrRegistrationNotFound is returned when the registration id found in
// the environment no longer exists.
var ErrRegistrationNotFound = errors.New("api secret registration not found")

// AppStudio is the part of the AppStudio API the driver calls.
type AppStudio interface {
	CreateAPISecretRegistration(ctx context.Context, token string, reg appstudio.APISecretRegistration) (*appstudio.APISecretRegistration, error)
	GetAPISecretRegistration(ctx context.Context, token, id string) (*appstudio.APISecretRegistration, error)
}

// Args are the driver's with: arguments.
type Args struct {
	Name         string
	AppID        string
	ClientSecret string
}

// Driver is the apiKey/create driver.
type Driver struct {
	client AppStudio
}

// New creates the driver.
func New(client AppStudio) *Driver {
	return &Driver{client: client}
}

func (d *Driver) Description() string {
	return "Create an API key registration in Developer Portal"
}

// Execute registers the API key, or checks that the registration recorded
// in the environment still exists.
func (d *Driver) Execute(ctx context.Context, raw map[string]any, dc *drivers.Context, outputEnvVarNames map[string]string) drivers.ExecutionResult {
	var summaries []string

	args, err := validateArgs(raw)
	if err != nil {
		return drivers.Fail(err, summaries...)
	}
	if outputEnvVarNames == nil {
		return drivers.Fail(&drivers.OutputEnvVarUndefinedError{Action: ActionName}, summaries...)
	}
	if dc == nil || dc.Tokens == nil {
		return drivers.Fail(fmt.Errorf("%s: no token provider", ActionName), summaries...)
	}

	state := loadStateFromEnv(dc.Env, outputEnvVarNames)

	token, err := dc.Tokens.AccessToken(ctx, auth.AppStudioScopes)
	if err != nil {
		return drivers.Fail(fmt.Errorf("get AppStudio token: %w", err), summaries...)
	}

	if id := state[outputRegistrationID]; id != "" {
		if _, err := d.client.GetAPISecretRegistration(ctx, token, id); err != nil {
			if appstudio.IsNotFound(err) {
				err = fmt.Errorf("%w: %s", ErrRegistrationNotFound, id)
			}
			return drivers.Fail(err, summaries...)
		}
		dc.Log().Info("api key registration already exists", "registration", id)
		summaries = append(summaries, fmt.Sprintf("API key registration %s already exists, skipped creation.", id))
	} else {
		if args.ClientSecret == "" {
			return drivers.Fail(invalid("clientSecret"), summaries...)
		}
		reg, err := buildRegistration(ctx, dc.Tokens, args)
		if err != nil {
			return drivers.Fail(err, summaries...)
		}
		created, err := d.client.CreateAPISecretRegistration(ctx, token, reg)
		if err != nil {
			return drivers.Fail(fmt.Errorf("create api secret registration: %w", err), summaries...)
		}
		state[outputRegistrationID] = created.ID
		summaries = append(summaries, fmt.Sprintf("API key registration %s created.", created.ID))
	}

	return drivers.OK(mapStateToEnv(state, outputEnvVarNames), summaries...)
}

func validateArgs(raw map[string]any) (Args, error) {
	var args Args
	var invalidParams []string

	name, ok := raw["name"].(string)
	if !ok || name == "" {
		invalidParams = append(invalidParams, "name")
	}
	appID, ok := raw["appId"].(string)
	if !ok || appID == "" {
		invalidParams = append(invalidParams, "appId")
	}
	if v, present := raw["clientSecret"]; present && v != nil {
		secret, ok := v.(string)
		if !ok || (secret != "" && !ValidSecret(secret)) {
			invalidParams = append(invalidParams, "clientSecret")
		}
		args.ClientSecret = secret
	}

	if len(invalidParams) > 0 {
		return Args{}, invalid(invalidParams...)
	}
	args.Name, args.AppID = name, appID
	return args, nil
}

func invalid(params ...string) error {
	return &drivers.InvalidActionInputError{Action: ActionName, Parameters: params, HelpLink: helpLink}
}

// ValidSecret reports whether s holds one to MaxSecrets well-formed
// secrets.
func ValidSecret(s string) bool {
	if !clientSecretRe.MatchString(s) {
		return false
	}
	return len(ParseSecrets(s)) <= MaxSecrets
}

// ParseSecrets splits a comma-separated secret list, trimming each entry.
func ParseSecrets(s string) []string {
	parts := strings.Split(strings.TrimSpace(s), ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func buildRegistration(ctx context.Context, tokens auth.TokenProvider, args Args) (appstudio.APISecretRegistration, error) {
	userID, err := auth.ObjectID(ctx, tokens, auth.GraphScopes)
	if err != nil {
		return appstudio.APISecretRegistration{}, fmt.Errorf("get current user: %w", err)
	}

	var secrets []appstudio.ClientSecret
	for i, s := range ParseSecrets(args.ClientSecret) {
		priority := 1
		if i == 0 {
			priority = 0
		}
		secrets = append(secrets, appstudio.ClientSecret{
			Value:           s,
			Description:     args.Name,
			Priority:        priority,
			IsValueRedacted: true,
		})
	}

	return appstudio.APISecretRegistration{
		Description:               args.Name,
		ClientSecrets:             secrets,
		TargetURLsShouldStartWith: []string{},
		ApplicableToApps:          appstudio.AppTypeSpecificApp,
		SpecificAppID:             args.AppID,
		ManageableByUser: []appstudio.ManageableByUser{
			{UserID: userID, AccessType: appstudio.AccessReadWrite},
		},
	}, nil
}

func loadStateFromEnv(env map[string]string, outputEnvVarNames map[string]string) map[string]string {
	state := make(map[string]string, len(outputEnvVarNames))
	for property, envVar := range outputEnvVarNames {
		state[property] = env[envVar]
	}
	return state
}

func mapStateToEnv(state map[string]string, outputEnvVarNames map[string]string) map[string]string {
	out := make(map[string]string, len(outputEnvVarNames))
	for property, envVar := range outputEnvVarNames {
		if v := state[property]; v != "" {
			out[envVar] = v
		}
	}
	return out
}
