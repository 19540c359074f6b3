package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/storage/dirstore"
)

const globalLog = "_global"

// EventLogger persists bus events to JSONL files, one per session. Events
// outside a session, or with an unusable session id, go to _global.jsonl.
type EventLogger struct {
	mu          sync.Mutex
	dir         string
	skip        map[events.EventType]bool
	unsubscribe func()
}

// NewEventLogger subscribes to every bus event and journals it under dir.
// Progress notices are not kept.
func NewEventLogger(dir string, bus *events.Bus) *EventLogger {
	el := &EventLogger{
		dir:  dir,
		skip: map[events.EventType]bool{events.EventChatProgress: true},
	}
	el.unsubscribe = bus.Subscribe(el.handleEvent)
	return el
}

// Close unsubscribes the logger from the event bus.
func (el *EventLogger) Close() {
	if el.unsubscribe != nil {
		el.unsubscribe()
	}
}

func (el *EventLogger) handleEvent(e events.Event) {
	if el.skip[e.Type] {
		return
	}
	if err := el.writeEvent(e); err != nil {
		slog.Warn("event log write failed", "type", e.Type, "session_id", e.SessionID, "error", err)
	}
}

func (el *EventLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()

	if err := os.MkdirAll(el.dir, 0o755); err != nil {
		return err
	}
	sessionID := e.SessionID
	if sessionID != "" && !dirstore.ValidID(sessionID) {
		sessionID = ""
	}
	f, err := os.OpenFile(LogPath(el.dir, sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// LogPath returns the journal file of a session.
func LogPath(dir, sessionID string) string {
	if sessionID == "" {
		sessionID = globalLog
	}
	return filepath.Join(dir, sessionID+".jsonl")
}

// ReadLog returns the journaled events of a session in the order they
// were written. A session without a journal has no events.
func ReadLog(dir, sessionID string) ([]events.Event, error) {
	if sessionID != "" && !dirstore.ValidID(sessionID) {
		return nil, fmt.Errorf("session %q: %w", sessionID, dirstore.ErrInvalidID)
	}
	f, err := os.Open(LogPath(dir, sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []events.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return out, fmt.Errorf("%s line %d: %w", LogPath(dir, sessionID), line, err)
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}
