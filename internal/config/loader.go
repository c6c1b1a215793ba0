package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Defaults for optional parameters. The variable names are fixed by the
// Drone plugin contract.
const (
	defaultTemperature    = 0.2
	defaultMaxTokens      = 700
	defaultTopP           = 1.0
	defaultMaxChunkTokens = 3000
	defaultLogLevel       = "info"
)

// Load reads PLUGIN_ prefixed environment variables into a Settings
// value. It applies defaults, infers the LLM provider from a
// provider/model prefix when one is present, and validates the result.
func Load() (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("PLUGIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	s := Settings{
		LLMProvider:     strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
		LLMModel:        strings.TrimSpace(v.GetString("llm_model")),
		LLMAPIKey:       v.GetString("llm_api_key"),
		LLMAPIBase:      strings.TrimSpace(v.GetString("llm_api_base")),
		AzureAPIVersion: strings.TrimSpace(v.GetString("azure_api_version")),

		Temperature: float32(v.GetFloat64("temperature")),
		TopP:        float32(v.GetFloat64("top_p")),
		MaxTokens:   v.GetInt("max_tokens"),

		SCMProvider: strings.ToLower(strings.TrimSpace(v.GetString("scm_provider"))),
		SCMToken:    v.GetString("scm_token"),
		SCMAPIURL:   strings.TrimSpace(v.GetString("scm_api_url")),

		IncludePatterns: splitPatterns(v.GetString("include_patterns")),
		ExcludePatterns: splitPatterns(v.GetString("exclude_patterns")),

		PromptTemplateFile: strings.TrimSpace(v.GetString("prompt_template_file")),
		MaxChunkTokens:     v.GetInt("max_chunk_tokens"),

		RedactSecrets: v.GetBool("redact_secrets"),
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
	}

	s.LLMProvider, s.LLMModel = resolveProvider(s.LLMProvider, s.LLMModel)

	if err := validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("temperature", defaultTemperature)
	v.SetDefault("max_tokens", defaultMaxTokens)
	v.SetDefault("top_p", defaultTopP)
	v.SetDefault("scm_provider", SCMGitHub)
	v.SetDefault("max_chunk_tokens", defaultMaxChunkTokens)
	v.SetDefault("redact_secrets", true)
	v.SetDefault("log_level", defaultLogLevel)
	// log_format stays empty: the logger picks human or json by TTY
	// detection when no explicit format is configured.
}

// resolveProvider handles litellm-style "provider/model" strings. An
// explicit PLUGIN_LLM_PROVIDER wins; otherwise a known provider prefix
// on the model resolves it, and the bare model is what goes to the API.
// Unknown prefixes are left on the model untouched (ollama namespaces
// models that way, e.g. "library/llama3").
func resolveProvider(provider, model string) (string, string) {
	prefix, rest, found := strings.Cut(model, "/")
	if found && knownProvider(strings.ToLower(prefix)) {
		if provider == "" {
			provider = strings.ToLower(prefix)
		}
		model = rest
	}
	if provider == "" {
		provider = ProviderOpenAI
	}
	return provider, model
}

func knownProvider(name string) bool {
	switch name {
	case ProviderOpenAI, ProviderAzure, ProviderOllama, ProviderOpenRouter, ProviderNovita:
		return true
	}
	return false
}

// splitPatterns turns a comma separated pattern list into its entries,
// trimming whitespace and dropping empties.
func splitPatterns(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// validate checks the loaded settings. All problems are reported in one
// error so a misconfigured pipeline fails with the full picture instead
// of one variable per run.
func validate(s Settings) error {
	var problems []string

	if s.LLMModel == "" {
		problems = append(problems, "PLUGIN_LLM_MODEL is required")
	}
	if s.SCMToken == "" {
		problems = append(problems, "PLUGIN_SCM_TOKEN is required")
	}
	if !knownProvider(s.LLMProvider) {
		problems = append(problems, fmt.Sprintf("unsupported LLM provider %q (want openai, azure, ollama, openrouter or novita)", s.LLMProvider))
	}
	if s.SCMProvider != SCMGitHub && s.SCMProvider != SCMGitLab {
		problems = append(problems, fmt.Sprintf("unsupported SCM provider %q (want github or gitlab)", s.SCMProvider))
	}
	if s.LLMProvider == ProviderAzure && s.AzureAPIVersion == "" {
		problems = append(problems, "PLUGIN_AZURE_API_VERSION is required for the azure provider")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("PLUGIN_TEMPERATURE %v out of range [0, 2]", s.Temperature))
	}
	if s.TopP <= 0 || s.TopP > 1 {
		problems = append(problems, fmt.Sprintf("PLUGIN_TOP_P %v out of range (0, 1]", s.TopP))
	}
	if s.MaxTokens <= 0 {
		problems = append(problems, "PLUGIN_MAX_TOKENS must be positive")
	}
	if s.MaxChunkTokens <= 0 {
		problems = append(problems, "PLUGIN_MAX_CHUNK_TOKENS must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
