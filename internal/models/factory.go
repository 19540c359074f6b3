package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/teamsfx/tfx/internal/config"
)

// CreateModel creates a chat model from a provider config.
func CreateModel(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "ollama" {
		return NewOllama(ctx, cfg)
	}

	auth, err := ResolveAuth(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve auth: %w", err)
	}

	switch driver {
	case "openai":
		return NewOpenAI(ctx, cfg, auth)
	case "azure":
		return NewAzureOpenAI(ctx, cfg, auth)
	case "mistral":
		return NewMistral(ctx, cfg, auth)
	case "anthropic":
		return NewAnthropic(ctx, cfg, auth)
	case "gemini":
		return NewGemini(ctx, cfg, auth)
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}
