package heartbeat

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForFile(t *testing.T, path string) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("heartbeat file %s not written", path)
}

func TestWriteReadCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home", FileName)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWriter(path, "127.0.0.1:18430", "dev", time.Hour)
	go w.Run(ctx)
	defer func() {
		cancel()
		<-w.Done()
	}()
	waitForFile(t, path)

	status, hb, err := Check(path, 2*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusAlive {
		t.Errorf("expected alive, got %s", status)
	}
	if hb == nil {
		t.Fatal("expected heartbeat, got nil")
	}
	if hb.PID != os.Getpid() {
		t.Errorf("PID: got %d, want %d", hb.PID, os.Getpid())
	}
	if hb.Addr != "127.0.0.1:18430" {
		t.Errorf("Addr = %q, want %q", hb.Addr, "127.0.0.1:18430")
	}
}

func TestStaleDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	old := Heartbeat{
		PID:       os.Getpid(),
		Addr:      "127.0.0.1:18430",
		StartedAt: time.Now().Add(-2 * time.Hour),
		Timestamp: time.Now().Add(-1 * time.Hour),
	}
	data, _ := json.Marshal(old)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	status, hb, err := Check(path, 30*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusStale {
		t.Errorf("expected stale, got %s", status)
	}
	if hb == nil {
		t.Fatal("expected heartbeat, got nil")
	}
	if hb.Uptime() != time.Hour {
		t.Errorf("Uptime = %s, want 1h0m0s", hb.Uptime())
	}
}

func TestDeadDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	status, hb, err := Check(path, 2*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusDead {
		t.Errorf("expected dead, got %s", status)
	}
	if hb != nil {
		t.Errorf("expected nil heartbeat, got %+v", hb)
	}
}

func TestCheck_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if status, _, err := Check(path, time.Minute); err == nil || status != StatusDead {
		t.Errorf("expected dead with error, got %s, %v", status, err)
	}
}

func TestRunRemovesFileOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWriter(path, "localhost:0", "", 0)
	go w.Run(ctx)
	waitForFile(t, path)

	cancel()
	<-w.Done()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected heartbeat file to be removed after cancel")
	}
}
