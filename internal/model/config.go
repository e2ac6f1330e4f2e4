package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete runtime configuration for invoicecheck
type Config struct {
	Policy       PolicyConfig       `yaml:"policy"`
	Invoices     InvoicesConfig     `yaml:"invoices"`
	LLM          LLMConfig          `yaml:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Output       OutputConfig       `yaml:"output"`
}

// PolicyConfig selects the policy document and how it is compiled
type PolicyConfig struct {
	Path          string `yaml:"path" validate:"required"`
	Mode          string `yaml:"mode" validate:"oneof=raw categorized"`
	FallbackToRaw bool   `yaml:"fallback_to_raw"`
}

// InvoicesConfig describes where batch invoices are discovered
type InvoicesConfig struct {
	Dir string `yaml:"dir"`
}

// LLMConfig holds model gateway settings. APIKey is never written to YAML.
type LLMConfig struct {
	Provider       string        `yaml:"provider" validate:"oneof=gemini openai anthropic claude ollama"`
	Model          string        `yaml:"model" validate:"required"`
	APIKey         string        `yaml:"-"`
	BaseURL        string        `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxTokens      int           `yaml:"max_tokens" validate:"gte=0"`
	MaxReasonWords int           `yaml:"max_reason_words" validate:"gte=1"`
	Breaker        bool          `yaml:"breaker"`
	HTTPProxy      string        `yaml:"http_proxy,omitempty" validate:"omitempty,url"`
	HTTPSProxy     string        `yaml:"https_proxy,omitempty" validate:"omitempty,url"`
}

// defaultModels is the model used per provider when none is configured
var defaultModels = map[string]string{
	"gemini":    "gemini-1.5-flash",
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-sonnet-20241022",
	"claude":    "claude-3-5-sonnet-20241022",
	"ollama":    "llava",
}

// DefaultModel returns the default model for provider, or "" when unknown
func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

// ResolveModel fills an unset Model from the provider default. Call it after
// the provider is final.
func (c *LLMConfig) ResolveModel() {
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
}

// ConcurrencyConfig bounds parallel judgments
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" validate:"gte=1"`
}

// RateLimitingConfig throttles calls to the model provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" validate:"gte=1"`
}

// OutputConfig controls presentation
type OutputConfig struct {
	Format  string `yaml:"format" validate:"oneof=text json"`
	Parse   bool   `yaml:"parse"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			Path: "ExpenseNow Sample Expense Policy.docx",
			Mode: "raw",
		},
		Invoices: InvoicesConfig{
			Dir: "./invoices",
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          DefaultModel("gemini"),
			Timeout:        60 * time.Second,
			MaxTokens:      1024,
			MaxReasonWords: 20,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

var validate = validator.New()

// Validate checks field constraints. Failures are configuration errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}
