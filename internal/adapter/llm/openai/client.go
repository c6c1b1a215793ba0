// Package openai implements the llm.Completer port with the go-openai
// client. Azure, Ollama, OpenRouter and Novita endpoints are all served
// through the same client with a provider-specific base configuration.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/llm"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/config"
)

// Default endpoints for providers that are OpenAI-compatible but live
// elsewhere. PLUGIN_LLM_API_BASE overrides any of them.
const (
	ollamaBaseURL     = "http://localhost:11434/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	novitaBaseURL     = "https://api.novita.ai/v3/openai"

	defaultTimeout = 90 * time.Second
)

// Client is a single-model chat completion client.
type Client struct {
	api         *goopenai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
	jsonMode    bool
}

// New builds a Client from the plugin settings.
func New(settings config.Settings) (*Client, error) {
	cfg, err := clientConfig(settings)
	if err != nil {
		return nil, err
	}
	cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}

	return &Client{
		api:         goopenai.NewClientWithConfig(cfg),
		model:       settings.LLMModel,
		temperature: settings.Temperature,
		topP:        settings.TopP,
		maxTokens:   settings.MaxTokens,
		jsonMode:    supportsJSONMode(settings.LLMModel),
	}, nil
}

// clientConfig resolves the provider into a go-openai configuration.
func clientConfig(settings config.Settings) (goopenai.ClientConfig, error) {
	base := settings.LLMAPIBase

	switch settings.LLMProvider {
	case config.ProviderOpenAI:
		cfg := goopenai.DefaultConfig(settings.LLMAPIKey)
		if base != "" {
			cfg.BaseURL = base
		}
		return cfg, nil
	case config.ProviderAzure:
		if base == "" {
			return goopenai.ClientConfig{}, fmt.Errorf("azure provider requires PLUGIN_LLM_API_BASE (the resource endpoint)")
		}
		cfg := goopenai.DefaultAzureConfig(settings.LLMAPIKey, base)
		cfg.APIVersion = settings.AzureAPIVersion
		return cfg, nil
	case config.ProviderOllama:
		if base == "" {
			base = ollamaBaseURL
		}
	case config.ProviderOpenRouter:
		if base == "" {
			base = openRouterBaseURL
		}
	case config.ProviderNovita:
		if base == "" {
			base = novitaBaseURL
		}
	default:
		return goopenai.ClientConfig{}, fmt.Errorf("unsupported LLM provider %q", settings.LLMProvider)
	}

	cfg := goopenai.DefaultConfig(settings.LLMAPIKey)
	cfg.BaseURL = base
	return cfg, nil
}

// supportsJSONMode reports whether the model accepts the json_object
// response format. The check is a name heuristic; models that reject
// the parameter would fail the whole call, so unknown names go without.
func supportsJSONMode(model string) bool {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gpt-4o"), strings.HasPrefix(m, "gpt-4-turbo"), strings.HasPrefix(m, "gpt-4.1"):
		return true
	case strings.HasPrefix(m, "gpt-3.5-turbo-1106"), strings.HasPrefix(m, "gpt-3.5-turbo-0125"):
		return true
	}
	return false
}

// Complete runs one blocking chat completion and returns the generated
// text.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
			{Role: goopenai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if c.jsonMode {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
