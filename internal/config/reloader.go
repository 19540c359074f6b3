package config

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Listener is told about a reload with the config it replaced.
type Listener func(prev, next *Config)

// Reloader re-reads .env and the config file on demand. Readers get the
// latest config without locking.
type Reloader struct {
	configPath string
	dotenvPath string
	current    atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []Listener
}

func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	r := &Reloader{configPath: configPath, dotenvPath: dotenvPath}
	r.current.Store(initial)
	return r
}

func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// OnReload registers fn to run after every successful reload.
func (r *Reloader) OnReload(fn Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Reload applies .env first so ${{ .Env.X }} templates in the config see
// the new values. A missing config file falls back to defaults. On error
// the previous config stays current.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ReloadDotenv(r.dotenvPath); err != nil {
		return fmt.Errorf("reload dotenv: %w", err)
	}
	next, err := LoadOrDefault(r.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	prev := r.current.Swap(next)
	slog.Info("config reloaded", "path", r.configPath, "skills_changed", SkillDirsChanged(prev, next))
	for _, fn := range r.listeners {
		fn(prev, next)
	}
	return nil
}

// Watch reloads on every value received from trigger until ctx is done.
// Failed reloads are logged.
func (r *Reloader) Watch(ctx context.Context, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-trigger:
			if !ok {
				return
			}
			if err := r.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
			}
		}
	}
}

// SkillDirsChanged reports whether the prompt skill directories differ.
func SkillDirsChanged(prev, next *Config) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	return !slices.Equal(prev.Skills.Dirs, next.Skills.Dirs)
}
