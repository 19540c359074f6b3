package config

import "time"

// Config is the root configuration for tfx.
type Config struct {
	Models    ModelsConfig    `json:"models"`
	Agent     AgentConfig     `json:"agent"`
	Samples   SamplesConfig   `json:"samples"`
	AppStudio AppStudioConfig `json:"appstudio"`
	Tokens    TokensConfig    `json:"tokens"`
	Gateway   GatewayConfig   `json:"gateway"`
	Events    EventsConfig    `json:"events"`
	Skills    SkillsConfig    `json:"skills"`
	Sessions  SessionsConfig  `json:"sessions"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver     string         `json:"driver"` // "openai", "azure", "mistral", "ollama", "anthropic", "gemini"
	Model      string         `json:"model"`
	BaseURL    string         `json:"base_url,omitempty"`
	APIVersion string         `json:"api_version,omitempty"` // azure only
	Auth       AuthConfig     `json:"auth"`
	MaxTokens  int            `json:"max_tokens,omitempty"`
	Timeout    Duration       `json:"timeout,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
	Token  string `json:"token,omitempty"`   // Bearer token
}

// AgentConfig holds chat agent settings.
type AgentConfig struct {
	// IntentModel and CodeModel name providers in Models.Providers.
	// Empty falls back to Models.Default.
	IntentModel string `json:"intent_model,omitempty"`
	CodeModel   string `json:"code_model,omitempty"`
	// AddinFolder is where generated Office add-in projects are created by default.
	AddinFolder     string `json:"addin_folder,omitempty"`
	MaxCodeAttempts int    `json:"max_code_attempts,omitempty"`
}

// SamplesConfig configures the sample gallery.
type SamplesConfig struct {
	ConfigURL   string   `json:"config_url"`
	GitHubAPI   string   `json:"github_api"`
	RawBaseURL  string   `json:"raw_base_url"`
	Retries     int      `json:"retries"`
	Concurrency int      `json:"concurrency"`
	Ignore      []string `json:"ignore"`
	Token       string   `json:"token,omitempty"`
}

// AppStudioConfig configures the Teams Developer Portal API.
type AppStudioConfig struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout,omitempty"`
}

// TokensConfig names the environment variables holding pre-acquired bearer tokens.
type TokensConfig struct {
	AppStudioEnv string `json:"appstudio_env"`
	GraphEnv     string `json:"graph_env"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
	// LogDir receives one JSONL event journal per session.
	LogDir string `json:"log_dir"`
}

// SkillsConfig configures declarative prompt skills.
type SkillsConfig struct {
	Dirs []string `json:"dirs"`
}

// SessionsConfig configures chat history storage.
type SessionsConfig struct {
	Dir string `json:"dir"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
