package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/config"
	"github.com/teamsfx/tfx/internal/gateway"
	"github.com/teamsfx/tfx/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show whether a tfx gateway is running",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, _ *cli.Command) error {
	status, hb, err := heartbeat.Check(filepath.Join(config.Home(), heartbeat.FileName), 2*heartbeat.DefaultInterval)
	if err != nil {
		return fmt.Errorf("check heartbeat: %w", err)
	}

	switch status {
	case heartbeat.StatusDead:
		fmt.Println("Gateway: NOT RUNNING")
		return nil
	case heartbeat.StatusStale:
		fmt.Printf("Gateway: STALE on %s (PID %d, last heartbeat %s ago)\n",
			hb.Addr, hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
		return nil
	}

	fmt.Printf("Gateway: ALIVE on %s (PID %d, version %s, uptime %s)\n", hb.Addr, hb.PID, hb.Version, hb.Uptime())
	health, err := probeHealth(ctx, "http://"+hb.Addr+"/api/health")
	if err != nil {
		fmt.Printf("Health:  unreachable (%v)\n", err)
		return nil
	}
	fmt.Printf("Health:  %s, %d websocket client(s)\n", health.Status, health.Clients)
	return nil
}

func probeHealth(ctx context.Context, url string) (*gateway.Health, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var h gateway.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}
