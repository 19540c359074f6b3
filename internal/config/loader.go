package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

const (
	DefaultSamplesConfigURL = "https://raw.githubusercontent.com/OfficeDev/TeamsFx-Samples/dev/.config/samples-config-v3.json"
	DefaultGitHubAPI        = "https://api.github.com"
	DefaultRawBaseURL       = "https://raw.githubusercontent.com"
	DefaultAppStudioURL     = "https://dev.teams.microsoft.com"
)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// standardizes it to JSON, unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand before standardizing, templates live inside string literals.
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the default config.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}
	return cfg, err
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18430
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.Events.LogDir == "" {
		cfg.Events.LogDir = filepath.Join(Home(), "events")
	}
	if len(cfg.Skills.Dirs) == 0 {
		cfg.Skills.Dirs = []string{filepath.Join(Home(), "skills")}
	}
	if cfg.Sessions.Dir == "" {
		cfg.Sessions.Dir = filepath.Join(Home(), "sessions")
	}

	if cfg.Samples.ConfigURL == "" {
		cfg.Samples.ConfigURL = DefaultSamplesConfigURL
	}
	if cfg.Samples.GitHubAPI == "" {
		cfg.Samples.GitHubAPI = DefaultGitHubAPI
	}
	if cfg.Samples.RawBaseURL == "" {
		cfg.Samples.RawBaseURL = DefaultRawBaseURL
	}
	if cfg.Samples.Retries == 0 {
		cfg.Samples.Retries = 2
	}
	if cfg.Samples.Concurrency == 0 {
		cfg.Samples.Concurrency = 20
	}
	if len(cfg.Samples.Ignore) == 0 {
		cfg.Samples.Ignore = []string{"**/.git/**", "**/node_modules/**"}
	}

	if cfg.AppStudio.Endpoint == "" {
		cfg.AppStudio.Endpoint = DefaultAppStudioURL
	}
	if cfg.Tokens.AppStudioEnv == "" {
		cfg.Tokens.AppStudioEnv = "TEAMSFX_APPSTUDIO_TOKEN"
	}
	if cfg.Tokens.GraphEnv == "" {
		cfg.Tokens.GraphEnv = "TEAMSFX_GRAPH_TOKEN"
	}

	if cfg.Agent.AddinFolder == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Agent.AddinFolder = filepath.Join(home, "Office-Add-in")
		}
	}
	if cfg.Agent.MaxCodeAttempts == 0 {
		cfg.Agent.MaxCodeAttempts = 3
	}
	// Auth resolution is deferred to models.ResolveAuth() at model init time.
}
