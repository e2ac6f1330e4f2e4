package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/util"
)

// Part is one content part of a generation request: either text or an inline image.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart builds a text part
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline binary part
func ImagePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsImage reports whether the part carries binary data
func (p Part) IsImage() bool {
	return p.Data != nil
}

// Generator is the single capability the rest of the program needs from a model:
// send an ordered list of parts in one turn and get text back.
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate issues exactly one generation request
	Generate(ctx context.Context, parts []Part) (string, error)
}

// Config holds model gateway configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey read once from process configuration
	APIKey string

	// BaseURL overrides the provider endpoint (tests, proxies, Ollama)
	BaseURL string

	// Timeout for a single request; zero leaves it to the caller's context
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Breaker wraps the provider in a circuit breaker
	Breaker bool

	// HTTPProxy and HTTPSProxy override proxy environment variables
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Model:     "gemini-1.5-flash",
		Timeout:   60 * time.Second,
		MaxTokens: 1024,
	}
}

// httpClient builds the proxy-aware client shared by every adapter
func httpClient(config Config) (*http.Client, error) {
	client, err := util.NewHTTPClient(util.ProxyConfig{HTTP: config.HTTPProxy, HTTPS: config.HTTPSProxy})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	return client, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func maxTokens(n int) int {
	if n <= 0 {
		return 1024
	}
	return n
}
