// Package heartbeat lets `tfx status` tell whether a gateway started by
// `tfx serve` is still running, and where it listens.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the heartbeat file name under the tfx home.
const FileName = "gateway.heartbeat.json"

// DefaultInterval is how often a Writer refreshes the file.
const DefaultInterval = 30 * time.Second

// Status represents the liveness state of the gateway.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// Heartbeat is the content of the heartbeat file.
type Heartbeat struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// Uptime is the time between start and the last beat.
func (h Heartbeat) Uptime() time.Duration {
	return h.Timestamp.Sub(h.StartedAt).Truncate(time.Second)
}

// Writer refreshes a heartbeat file until its context ends.
type Writer struct {
	path     string
	interval time.Duration
	beat     Heartbeat

	once sync.Once
	done chan struct{}
}

// NewWriter creates a writer for the gateway listening on addr. A
// non-positive interval means DefaultInterval.
func NewWriter(path, addr, version string, interval time.Duration) *Writer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Writer{
		path:     path,
		interval: interval,
		beat:     Heartbeat{PID: os.Getpid(), Addr: addr, Version: version},
		done:     make(chan struct{}),
	}
}

// Run writes the file now and every interval until ctx is done, then
// removes it. It blocks.
func (w *Writer) Run(ctx context.Context) error {
	defer w.once.Do(func() { close(w.done) })

	w.beat.StartedAt = time.Now()
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("heartbeat dir: %w", err)
	}
	if err := w.write(); err != nil {
		return err
	}
	defer os.Remove(w.path)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// A missed beat shows up as stale; nothing else to do.
			_ = w.write()
		case <-ctx.Done():
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) write() error {
	w.beat.Timestamp = time.Now()
	data, err := json.MarshalIndent(w.beat, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: tmp + rename
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return os.Rename(tmp, w.path)
}

// Check reads a heartbeat file. A beat older than maxAge is stale; a
// missing file is dead.
func Check(path string, maxAge time.Duration) (Status, *Heartbeat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StatusDead, nil, nil
		}
		return StatusDead, nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return StatusDead, nil, fmt.Errorf("unmarshal heartbeat: %w", err)
	}

	if time.Since(hb.Timestamp) > maxAge {
		return StatusStale, &hb, nil
	}
	return StatusAlive, &hb, nil
}
