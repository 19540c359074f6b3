package drivers

import (
	"context"
	"sort"
	"time"

	"github.com/teamsfx/tfx/internal/events"
)

type telemetryDriver struct {
	action string
	next   StepDriver
	bus    *events.Bus
}

// WithTelemetry logs the start and end of every run of d and publishes
// them on bus. Output values never leave the driver, only their names.
func WithTelemetry(action string, d StepDriver, bus *events.Bus) StepDriver {
	return &telemetryDriver{action: action, next: d, bus: bus}
}

func (t *telemetryDriver) Description() string { return t.next.Description() }

func (t *telemetryDriver) Execute(ctx context.Context, args map[string]any, dc *Context, outputEnvVarNames map[string]string) ExecutionResult {
	step := ""
	if dc != nil {
		step = dc.Step
	}
	sessionID := events.SessionIDFromContext(ctx)
	log := dc.Log().With("action", t.action, "step", step)

	log.Info("driver started")
	t.publish(sessionID, events.DriverStartedPayload{Action: t.action, Step: step})

	start := time.Now()
	res := t.next.Execute(ctx, args, dc, outputEnvVarNames)
	elapsed := time.Since(start)

	names := make([]string, 0, len(res.Outputs))
	for k := range res.Outputs {
		names = append(names, k)
	}
	sort.Strings(names)

	done := events.DriverCompletedPayload{Action: t.action, Step: step, Outputs: names, Duration: elapsed}
	if res.Err != nil {
		done.Error = res.Err.Error()
		log.Error("driver failed", "elapsed", elapsed, "error", res.Err)
	} else {
		log.Info("driver completed", "elapsed", elapsed, "outputs", names)
	}
	t.publish(sessionID, done)
	return res
}

func (t *telemetryDriver) publish(sessionID string, p events.EventPayload) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.NewTypedEventWithSession(events.SourceDriver, p, sessionID))
}
