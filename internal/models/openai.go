package models

import (
	"context"
	"fmt"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/teamsfx/tfx/internal/config"
)

const defaultAzureAPIVersion = "2024-06-01"

// NewOpenAI creates a new OpenAI ChatModel.
func NewOpenAI(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.BaseChatModel, error) {
	return einoopenai.NewChatModel(ctx, openAIConfig(cfg, auth))
}

// NewAzureOpenAI creates an OpenAI ChatModel against an Azure OpenAI
// deployment. base_url is the resource endpoint, model the deployment name.
func NewAzureOpenAI(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.BaseChatModel, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("azure: base_url is required")
	}
	modelConfig := openAIConfig(cfg, auth)
	modelConfig.ByAzure = true
	modelConfig.APIVersion = cfg.APIVersion
	if modelConfig.APIVersion == "" {
		modelConfig.APIVersion = defaultAzureAPIVersion
	}
	return einoopenai.NewChatModel(ctx, modelConfig)
}

func openAIConfig(cfg config.ProviderConfig, auth ResolvedAuth) *einoopenai.ChatModelConfig {
	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:  auth.Value,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}

	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}

	if cfg.Timeout.Duration() > 0 {
		modelConfig.Timeout = cfg.Timeout.Duration()
	} else {
		modelConfig.Timeout = 60 * time.Second
	}

	if cfg.Options != nil {
		if temp, ok := cfg.Options["temperature"].(float64); ok {
			t := float32(temp)
			modelConfig.Temperature = &t
		}
		if topP, ok := cfg.Options["top_p"].(float64); ok {
			p := float32(topP)
			modelConfig.TopP = &p
		}
	}
	return modelConfig
}
