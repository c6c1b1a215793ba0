// Package config loads and validates plugin settings from PLUGIN_
// prefixed environment variables.
package config

// LLM providers the plugin can talk to. All of them speak the
// OpenAI-compatible chat completion protocol.
const (
	ProviderOpenAI     = "openai"
	ProviderAzure      = "azure"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderNovita     = "novita"
)

// SCM providers.
const (
	SCMGitHub = "github"
	SCMGitLab = "gitlab"
)

// Settings is the immutable plugin configuration. It is constructed once
// by Load and handed to each component; nothing reads the environment
// after startup.
type Settings struct {
	// LLM endpoint.
	LLMProvider     string
	LLMModel        string
	LLMAPIKey       string
	LLMAPIBase      string
	AzureAPIVersion string

	// Sampling parameters passed through to the completion call.
	Temperature float32
	TopP        float32
	MaxTokens   int

	// SCM endpoint.
	SCMProvider string
	SCMToken    string
	SCMAPIURL   string

	// File eligibility.
	IncludePatterns []string
	ExcludePatterns []string

	// Prompting.
	PromptTemplateFile string
	MaxChunkTokens     int

	// Behavior.
	RedactSecrets bool
	LogLevel      string
	LogFormat     string
}
