package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHome_Default(t *testing.T) {
	t.Setenv("TFX_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := Home()
	want := filepath.Join(home, ".tfx")
	if got != want {
		t.Errorf("Home() = %q, want %q", got, want)
	}
}

func TestHome_EnvOverride(t *testing.T) {
	t.Setenv("TFX_PATH", "/tmp/custom-tfx")

	if got := Home(); got != "/tmp/custom-tfx" {
		t.Errorf("Home() = %q, want %q", got, "/tmp/custom-tfx")
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("TFX_PATH", "/tmp/test-tfx")

	got := ConfigPath()
	want := "/tmp/test-tfx/config.jsonc"
	if got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestDotenvPath(t *testing.T) {
	t.Setenv("TFX_PATH", "/tmp/test-tfx")

	got := DotenvPath()
	want := "/tmp/test-tfx/.env"
	if got != want {
		t.Errorf("DotenvPath() = %q, want %q", got, want)
	}
}
