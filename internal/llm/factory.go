package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/invoicecheck/internal/model"
)

// NewGenerator creates a model gateway based on configuration.
// A missing credential is reported here, before any network call.
func NewGenerator(config Config) (Generator, error) {
	var (
		gen Generator
		err error
	)

	switch strings.ToLower(config.Provider) {
	case "gemini", "google":
		gen, err = NewGeminiProvider(config)
	case "openai":
		gen, err = NewOpenAIProvider(config)
	case "anthropic", "claude":
		gen, err = NewAnthropicProvider(config)
	case "ollama":
		gen, err = NewOllamaProvider(config)
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider: %s (supported: gemini, openai, anthropic, ollama)", model.ErrConfiguration, config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.Breaker {
		gen = NewBreaker(gen, DefaultBreakerSettings())
	}
	return gen, nil
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		Breaker:    modelConfig.Breaker,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
	}
}

// APIKeyEnv returns the environment variable holding the provider credential,
// or "" for providers that need none.
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini", "google":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// LoadAPIKey reads the provider credential from the environment once.
func LoadAPIKey(provider string) (string, error) {
	env := APIKeyEnv(provider)
	if env == "" {
		return "", nil
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%w: %s environment variable not set", model.ErrConfiguration, env)
	}
	return key, nil
}

func requireKey(config Config, provider string) error {
	if config.APIKey == "" {
		return fmt.Errorf("%w: %s API key is required", model.ErrConfiguration, provider)
	}
	return nil
}
