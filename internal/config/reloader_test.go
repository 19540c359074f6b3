package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeReloadFixture(t *testing.T, env, cfg string) (configPath, dotenvPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.jsonc")
	dotenvPath = filepath.Join(dir, ".env")
	if env != "" {
		if err := os.WriteFile(dotenvPath, []byte(env), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if cfg != "" {
		if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return configPath, dotenvPath
}

func TestReloader_ReloadExpandsNewEnv(t *testing.T) {
	t.Setenv("TFX_SKILLS_DIR", "")
	configPath, dotenvPath := writeReloadFixture(t,
		"TFX_SKILLS_DIR=/srv/skills\n",
		`{
			// reloaded on SIGHUP
			"skills": {"dirs": ["${{ .Env.TFX_SKILLS_DIR }}"]},
		}`)

	initial := &Config{}
	initial.Skills.Dirs = []string{"/old"}
	r := NewReloader(configPath, dotenvPath, initial)

	var gotPrev, gotNext *Config
	r.OnReload(func(prev, next *Config) { gotPrev, gotNext = prev, next })

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if gotPrev != initial {
		t.Error("listener did not receive the replaced config")
	}
	if gotNext != r.Current() {
		t.Error("listener did not receive the current config")
	}
	if dirs := r.Current().Skills.Dirs; len(dirs) != 1 || dirs[0] != "/srv/skills" {
		t.Errorf("skills dirs = %v, want [/srv/skills]", dirs)
	}
	if !SkillDirsChanged(gotPrev, gotNext) {
		t.Error("expected skill dirs to be reported as changed")
	}
}

func TestReloader_MissingFilesUseDefaults(t *testing.T) {
	configPath, dotenvPath := writeReloadFixture(t, "", "")
	r := NewReloader(configPath, dotenvPath, &Config{})

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if r.Current().Gateway.Port != 18430 {
		t.Errorf("port = %d, want default 18430", r.Current().Gateway.Port)
	}
}

func TestReloader_InvalidConfigKeepsCurrent(t *testing.T) {
	configPath, dotenvPath := writeReloadFixture(t, "", `{"gateway": `)
	initial := &Config{}
	r := NewReloader(configPath, dotenvPath, initial)

	called := false
	r.OnReload(func(_, _ *Config) { called = true })

	if err := r.Reload(); err == nil {
		t.Fatal("expected error for truncated config")
	}
	if r.Current() != initial {
		t.Error("current config replaced after a failed reload")
	}
	if called {
		t.Error("listener called after a failed reload")
	}
}

func TestReloader_Watch(t *testing.T) {
	configPath, dotenvPath := writeReloadFixture(t, "", `{"gateway": {"port": 9000}}`)
	r := NewReloader(configPath, dotenvPath, &Config{})

	reloaded := make(chan int, 1)
	r.OnReload(func(_, next *Config) { reloaded <- next.Gateway.Port })

	ctx, cancel := context.WithCancel(context.Background())
	trigger := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r.Watch(ctx, trigger)
		close(done)
	}()

	trigger <- struct{}{}
	select {
	case port := <-reloaded:
		if port != 9000 {
			t.Errorf("port = %d, want 9000", port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload not triggered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestSkillDirsChanged(t *testing.T) {
	a, b := &Config{}, &Config{}
	a.Skills.Dirs = []string{"x"}
	b.Skills.Dirs = []string{"x"}
	if SkillDirsChanged(a, b) {
		t.Error("equal dirs reported as changed")
	}
	b.Skills.Dirs = append(b.Skills.Dirs, "y")
	if !SkillDirsChanged(a, b) {
		t.Error("added dir not reported")
	}
	if !SkillDirsChanged(nil, b) {
		t.Error("nil prev not reported")
	}
}
