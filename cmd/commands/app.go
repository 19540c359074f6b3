package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/urfave/cli/v3"

	"github.com/teamsfx/tfx/internal/agent"
	"github.com/teamsfx/tfx/internal/callbacks"
	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/config"
	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/gallery"
	"github.com/teamsfx/tfx/internal/models"
	"github.com/teamsfx/tfx/internal/samples"
	"github.com/teamsfx/tfx/internal/sessions"
	"github.com/teamsfx/tfx/internal/skills"
	"github.com/teamsfx/tfx/internal/storage"
)

// app holds the chat stack shared by ask, chat and serve.
type app struct {
	cfg     *config.Config
	bus     *events.Bus
	models  *models.Registry
	store   *sessions.FileStore
	gallery *gallery.Client
	samples *samples.Provider
	skills  *skills.Registry
	runner  *agent.Runner
	actions *agent.Actions
	usage   *storage.CostTracker
}

// preferredModel resolves the default model to a configured provider.
type preferredModel struct {
	src  chat.ModelSource
	name string
}

func (p preferredModel) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = p.name
	}
	return p.src.Get(ctx, name)
}

// newApp wires config, the event bus, models, skills and both participants.
// Script output of button actions goes to out.
func newApp(cmd *cli.Command, out io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, out), nil
}

func buildApp(cfg *config.Config, out io.Writer) *app {
	bus := events.NewBus(cfg.Events.BufferSize)
	registry := models.NewRegistry(cfg.Models)
	handler := callbacks.NewEventBusHandler(bus, events.SourceAgent)

	intent := chat.NewInteractor(preferredModel{src: registry, name: cfg.Agent.IntentModel}, handler)
	code := chat.NewInteractor(preferredModel{src: registry, name: cfg.Agent.CodeModel}, handler)

	provider := samples.Default()
	skillRegistry := skills.NewRegistry(code)
	skillRegistry.Register(skills.NewCodeGenerator(code, provider))
	for _, dir := range cfg.Skills.Dirs {
		if err := skillRegistry.LoadDir(dir); err != nil {
			slog.Warn("skills not loaded", "dir", dir, "error", err)
		}
	}
	planner := skills.NewPlanner(skillRegistry, intent, bus)

	store := sessions.NewFileStore(cfg.Sessions.Dir)
	galleryClient := gallery.NewClient(cfg.Samples, nil)

	deps := agent.Deps{
		LLM:             intent,
		Gallery:         galleryClient,
		Planner:         planner,
		Sessions:        store,
		Bus:             bus,
		AddinFolder:     cfg.Agent.AddinFolder,
		MaxCodeAttempts: cfg.Agent.MaxCodeAttempts,
	}
	runner := agent.NewRunner(store, bus, agent.NewTeams(deps), agent.NewOfficeAddin(deps))

	slog.Debug("chat stack ready",
		"default_model", registry.DefaultName(),
		"skills", skillRegistry.Names(),
		"sessions", cfg.Sessions.Dir)

	return &app{
		cfg:     cfg,
		bus:     bus,
		models:  registry,
		store:   store,
		gallery: galleryClient,
		samples: provider,
		skills:  skillRegistry,
		runner:  runner,
		actions: agent.NewActions(galleryClient, out, out),
		usage:   storage.NewCostTracker(bus, store),
	}
}

func (a *app) Close() {
	a.usage.Close()
	a.bus.Close()
}

// runAction executes a button offered by a participant.
func (a *app) runAction(ctx context.Context, b chat.Button, dst string) error {
	if err := a.actions.Execute(ctx, b.Command, b.Arguments, dst); err != nil {
		return fmt.Errorf("%s: %w", b.Title, err)
	}
	return nil
}
