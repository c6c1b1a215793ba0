package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/llm"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/config"
)

func baseSettings() config.Settings {
	return config.Settings{
		LLMProvider: config.ProviderOpenAI,
		LLMModel:    "gpt-4o",
		LLMAPIKey:   "key",
		Temperature: 0.2,
		TopP:        1.0,
		MaxTokens:   700,
	}
}

func TestClientConfig_ProviderBaseURLs(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		base     string
		wantBase string
	}{
		{"openai default", config.ProviderOpenAI, "", "https://api.openai.com/v1"},
		{"openai custom base", config.ProviderOpenAI, "https://proxy.local/v1", "https://proxy.local/v1"},
		{"ollama default", config.ProviderOllama, "", "http://localhost:11434/v1"},
		{"openrouter default", config.ProviderOpenRouter, "", "https://openrouter.ai/api/v1"},
		{"novita default", config.ProviderNovita, "", "https://api.novita.ai/v3/openai"},
		{"base overrides ollama default", config.ProviderOllama, "http://gpu-box:11434/v1", "http://gpu-box:11434/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseSettings()
			s.LLMProvider = tt.provider
			s.LLMAPIBase = tt.base

			cfg, err := clientConfig(s)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, cfg.BaseURL)
		})
	}
}

func TestClientConfig_Azure(t *testing.T) {
	s := baseSettings()
	s.LLMProvider = config.ProviderAzure
	s.AzureAPIVersion = "2024-02-01"

	// Azure needs the resource endpoint.
	_, err := clientConfig(s)
	require.Error(t, err)

	s.LLMAPIBase = "https://myresource.openai.azure.com"
	cfg, err := clientConfig(s)
	require.NoError(t, err)
	assert.Equal(t, goopenai.APITypeAzure, cfg.APIType)
	assert.Equal(t, "2024-02-01", cfg.APIVersion)
}

func TestSupportsJSONMode(t *testing.T) {
	assert.True(t, supportsJSONMode("gpt-4o"))
	assert.True(t, supportsJSONMode("gpt-4o-mini"))
	assert.True(t, supportsJSONMode("gpt-3.5-turbo-1106"))
	assert.False(t, supportsJSONMode("llama3"))
	assert.False(t, supportsJSONMode("deepseek-v3"))
}

func TestComplete(t *testing.T) {
	var captured goopenai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{
				{Message: goopenai.ChatCompletionMessage{Content: `{"reviews": []}`}},
			},
		})
	}))
	defer server.Close()

	s := baseSettings()
	s.LLMAPIBase = server.URL + "/v1"
	client, err := New(s)
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), llm.Request{
		System: "review prompt",
		User:   "respond in JSON",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"reviews": []}`, out)

	assert.Equal(t, "gpt-4o", captured.Model)
	assert.InDelta(t, 0.2, captured.Temperature, 0.0001)
	assert.Equal(t, 700, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "review prompt", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONObject, captured.ResponseFormat.Type)
}

func TestComplete_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := baseSettings()
	s.LLMAPIBase = server.URL + "/v1"
	client, err := New(s)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{System: "p", User: "u"})
	assert.Error(t, err)
}
