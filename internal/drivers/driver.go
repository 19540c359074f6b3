// Package drivers defines lifecycle step drivers: actions such as
// apiKey/create that validate their arguments, call one cloud API and
// return environment variables to persist.
package drivers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/teamsfx/tfx/internal/auth"
	"github.com/teamsfx/tfx/internal/events"
)

// Context is what a driver may use besides its arguments.
type Context struct {
	// Env holds the environment the step runs in: process env merged with
	// the project's env files.
	Env         map[string]string
	Tokens      auth.TokenProvider
	ProjectPath string
	// Step is the step name from the lifecycle file, for logs and events.
	Step   string
	Logger *slog.Logger
}

// Log returns the step logger, falling back to the default one.
func (c *Context) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ExecutionResult is the outcome of a driver run: Outputs on success, Err
// on failure, with Summaries for the user in both cases.
type ExecutionResult struct {
	Outputs   map[string]string
	Err       error
	Summaries []string
}

// OK builds a successful result.
func OK(outputs map[string]string, summaries ...string) ExecutionResult {
	return ExecutionResult{Outputs: outputs, Summaries: summaries}
}

// Fail builds a failed result.
func Fail(err error, summaries ...string) ExecutionResult {
	return ExecutionResult{Err: err, Summaries: summaries}
}

// StepDriver runs one lifecycle action. outputEnvVarNames maps the
// driver's output names to the env vars they are written to.
type StepDriver interface {
	Description() string
	Execute(ctx context.Context, args map[string]any, dc *Context, outputEnvVarNames map[string]string) ExecutionResult
}

// Registry maps action names ("apiKey/create") to drivers.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]StepDriver
	bus     *events.Bus
}

// NewRegistry creates a Registry. Registered drivers report start and end
// on bus when it is non-nil.
func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{drivers: make(map[string]StepDriver), bus: bus}
}

// Register adds a driver under action, wrapped with telemetry.
func (r *Registry) Register(action string, d StepDriver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.drivers[action]; exists {
		return fmt.Errorf("driver %q already registered", action)
	}
	r.drivers[action] = WithTelemetry(action, d, r.bus)
	return nil
}

// Get returns the driver for action.
func (r *Registry) Get(action string) (StepDriver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[action]
	return d, ok
}

// Names returns the registered actions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for n := range r.drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
