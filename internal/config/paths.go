package config

import (
	"os"
	"path/filepath"
)

// Home returns the root directory for tfx data.
// It uses $TFX_PATH if set, otherwise defaults to ~/.tfx.
func Home() string {
	if v := os.Getenv("TFX_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tfx")
	}
	return filepath.Join(home, ".tfx")
}

// ConfigPath returns the path to the tfx config file.
func ConfigPath() string {
	return filepath.Join(Home(), "config.jsonc")
}

// DotenvPath returns the path to the tfx .env file.
func DotenvPath() string {
	return filepath.Join(Home(), ".env")
}

// KeyPath returns the path to the age identity used for project secrets.
func KeyPath() string {
	return filepath.Join(Home(), ".age-key")
}
