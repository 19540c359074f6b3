package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/config"
	"github.com/teamsfx/tfx/internal/gateway"
	"github.com/teamsfx/tfx/internal/heartbeat"
	"github.com/teamsfx/tfx/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"gateway"},
		Usage:   "Start the tfx gateway server (HTTP, websocket, metrics)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event runner answers requests arriving over the websocket
	eventRunner := agent.NewEventRunner(agent.EventRunnerConfig{
		Runner:   a.runner,
		EventBus: a.bus,
	})
	defer eventRunner.Close()

	journal := storage.NewEventLogger(cfg.Events.LogDir, a.bus)
	defer journal.Close()

	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), cfg)
	reloader.OnReload(func(prev, next *config.Config) {
		if config.SkillDirsChanged(prev, next) {
			slog.Info("skill directories changed", "dirs", next.Skills.Dirs)
		}
		for _, dir := range next.Skills.Dirs {
			if err := a.skills.LoadDir(dir); err != nil {
				slog.Warn("skills not reloaded", "dir", dir, "error", err)
			}
		}
		slog.Info("skills reloaded", "skills", a.skills.Names())
	})
	go reloader.Watch(ctx, hangups(ctx))

	server := gateway.NewServer(gateway.Config{
		Bus:    a.bus,
		Store:  a.store,
		Runner: a.runner,
		Host:   cfg.Gateway.Host,
		Port:   cfg.Gateway.Port,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	hb := heartbeat.NewWriter(filepath.Join(config.Home(), heartbeat.FileName), addr, Version, 0)
	go func() {
		if err := hb.Run(ctx); err != nil {
			slog.Warn("heartbeat stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		eventRunner.Wait()
		<-hb.Done()
		return err
	case err := <-errCh:
		stop()
		<-hb.Done()
		return err
	}
}

// hangups forwards SIGHUP until ctx is done.
func hangups(ctx context.Context) <-chan struct{} {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	out := make(chan struct{})
	go func() {
		defer signal.Stop(sig)
		defer close(out)
		for {
			select {
			case <-sig:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
