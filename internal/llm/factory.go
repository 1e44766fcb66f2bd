package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/bookgraph/internal/model"
)

const (
	// DefaultGroqModel is the model the extraction prompt was tuned against
	DefaultGroqModel = "llama-3.3-70b-versatile"

	groqBaseURL = "https://api.groq.com/openai/v1"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "groq":
		if config.BaseURL == "" {
			config.BaseURL = groqBaseURL
		}
		if config.Model == "" {
			config.Model = DefaultGroqModel
		}
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		p.name = "groq"
		return p, nil

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: groq, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig, source model.SourceConfig) Config {
	return Config{
		Provider:    modelConfig.Provider,
		Model:       modelConfig.Model,
		APIKey:      ResolveAPIKey(modelConfig.Provider, modelConfig.APIKey),
		BaseURL:     modelConfig.BaseURL,
		Timeout:     modelConfig.Timeout,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		HTTPProxy:   source.HTTPProxy,
		HTTPSProxy:  source.HTTPSProxy,
		NoProxy:     source.NoProxy,
	}
}

// ResolveAPIKey returns the explicit key if set, otherwise the provider's
// conventional environment variable.
func ResolveAPIKey(provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if key := os.Getenv("BOOKGRAPH_LLM_API_KEY"); key != "" {
		return key
	}

	switch strings.ToLower(provider) {
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
