package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"

	"github.com/teamsfx/tfx/internal/auth"
	"github.com/teamsfx/tfx/internal/drivers"
	"github.com/teamsfx/tfx/internal/secrets"
)

// ErrUnknownDriver is returned for a step whose driver is not registered.
var ErrUnknownDriver = errors.New("unknown driver")

// StepResult reports one executed step.
type StepResult struct {
	Action    string
	Name      string
	Outputs   []string
	Summaries []string
}

// Runner executes stages of a project.
type Runner struct {
	Drivers *drivers.Registry
	Tokens  auth.TokenProvider
	// Identity decrypts ENC[age:...] values and encrypts SECRET_ outputs.
	// Nil disables both.
	Identity *age.X25519Identity
}

// EnvFile returns the env file of envName and its .user companion.
func EnvFile(projectDir, envName string) (string, string) {
	base := filepath.Join(projectDir, "env", ".env."+envName)
	return base, base + ".user"
}

// Run executes every step of stage in order, stopping at the first
// failure. Step outputs are written back to the project's env files and
// are visible to the following steps.
func (r *Runner) Run(ctx context.Context, projectDir, stage, envName string) ([]StepResult, error) {
	project, err := Load(projectDir)
	if err != nil {
		return nil, err
	}
	actions, err := project.Stage(stage)
	if err != nil {
		return nil, err
	}

	env, err := r.loadEnv(projectDir, envName)
	if err != nil {
		return nil, err
	}
	envPath, userPath := EnvFile(projectDir, envName)

	var results []StepResult
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		d, ok := r.Drivers.Get(a.Uses)
		if !ok {
			return results, fmt.Errorf("step %d (%s): %w: %s", i+1, a.Label(), ErrUnknownDriver, a.Uses)
		}

		expanded, missing := Expand(map[string]any(a.With), env)
		if len(missing) > 0 {
			slog.Warn("unresolved placeholders", "step", a.Label(), "vars", missing)
		}
		args, _ := expanded.(map[string]any)

		dc := &drivers.Context{
			Env:         env,
			Tokens:      r.Tokens,
			ProjectPath: projectDir,
			Step:        a.Label(),
			Logger:      slog.Default().With("env", envName),
		}
		res := d.Execute(ctx, args, dc, a.WriteToEnvironmentFile)
		step := StepResult{Action: a.Uses, Name: a.Name, Summaries: res.Summaries}
		if res.Err != nil {
			results = append(results, step)
			return results, fmt.Errorf("step %d (%s): %w", i+1, a.Label(), res.Err)
		}

		if err := r.writeOutputs(envPath, userPath, res.Outputs); err != nil {
			return results, err
		}
		for k, v := range res.Outputs {
			env[k] = v
			step.Outputs = append(step.Outputs, k)
		}
		sort.Strings(step.Outputs)
		results = append(results, step)
	}
	return results, nil
}

// loadEnv merges the process environment with the env files, the files
// taking precedence.
func (r *Runner) loadEnv(projectDir, envName string) (map[string]string, error) {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	envPath, userPath := EnvFile(projectDir, envName)
	for _, path := range []string{envPath, userPath} {
		entries, err := secrets.ReadEntries(path)
		if err != nil {
			return nil, err
		}
		for k, v := range entries {
			if secrets.IsEncrypted(v) && r.Identity == nil {
				return nil, fmt.Errorf("%s: %s is encrypted but no key is configured", filepath.Base(path), k)
			}
			env[k] = v
		}
	}
	if r.Identity != nil {
		if err := secrets.DecryptValues(env, r.Identity); err != nil {
			return nil, err
		}
	}
	env["TEAMSFX_ENV"] = envName
	return env, nil
}

// writeOutputs persists plain outputs to the env file and SECRET_ ones,
// encrypted, to the .user file.
func (r *Runner) writeOutputs(envPath, userPath string, outputs map[string]string) error {
	if len(outputs) == 0 {
		return nil
	}
	plain := make(map[string]string)
	secret := make(map[string]string)
	for k, v := range outputs {
		if !secrets.IsSecretKey(k) {
			plain[k] = v
			continue
		}
		if r.Identity != nil {
			enc, err := secrets.Encrypt(v, r.Identity.Recipient())
			if err != nil {
				return fmt.Errorf("encrypt %s: %w", k, err)
			}
			v = enc
		}
		secret[k] = v
	}
	if err := os.MkdirAll(filepath.Dir(envPath), 0o755); err != nil {
		return fmt.Errorf("create env dir: %w", err)
	}
	if len(plain) > 0 {
		if err := secrets.SetEntries(envPath, plain); err != nil {
			return err
		}
	}
	if len(secret) > 0 {
		if err := secrets.SetEntries(userPath, secret); err != nil {
			return err
		}
	}
	return nil
}
