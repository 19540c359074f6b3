package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/teamsfx/tfx/internal/config"
)

// AuthKind distinguishes between API key and Bearer token auth.
type AuthKind int

const (
	AuthAPIKey AuthKind = iota
	AuthBearerToken
)

// ResolvedAuth holds the resolved credentials and their kind.
type ResolvedAuth struct {
	Kind  AuthKind
	Value string
}

// driverEnv maps drivers to the env var consulted when config has no key.
var driverEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"azure":     "AZURE_OPENAI_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// ResolveAuth resolves the credentials for a provider.
// Resolution order: direct token → direct api_key → ${VAR} → driver default env.
func ResolveAuth(cfg config.ProviderConfig) (ResolvedAuth, error) {
	resolve := func(token string) string {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			return ""
		}
		if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
			return os.Getenv(trimmed[2 : len(trimmed)-1])
		}
		return trimmed
	}

	if token := resolve(cfg.Auth.Token); token != "" {
		return ResolvedAuth{Kind: AuthBearerToken, Value: token}, nil
	}

	if apiKey := resolve(cfg.Auth.APIKey); apiKey != "" {
		return ResolvedAuth{Kind: AuthAPIKey, Value: apiKey}, nil
	}

	env, ok := driverEnv[strings.ToLower(cfg.Driver)]
	if !ok {
		return ResolvedAuth{}, fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
	if key := os.Getenv(env); key != "" {
		return ResolvedAuth{Kind: AuthAPIKey, Value: key}, nil
	}
	return ResolvedAuth{}, fmt.Errorf("%s not set", env)
}
