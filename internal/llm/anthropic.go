package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Generator for Anthropic Claude models
type AnthropicProvider struct {
	client anthropic.Client
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if err := requireKey(config, "Anthropic"); err != nil {
		return nil, err
	}
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}

	client, err := httpClient(config)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(client),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Generate sends the parts as content blocks of a single user message
func (p *AnthropicProvider) Generate(ctx context.Context, parts []Part) (string, error) {
	ctx, cancel := withTimeout(ctx, p.config.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.config.Model),
		MaxTokens:   int64(maxTokens(p.config.MaxTokens)),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(toAnthropicBlocks(parts)...)},
		Temperature: anthropic.Float(0.2),
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func toAnthropicBlocks(parts []Part) []anthropic.ContentBlockParamUnion {
	out := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		if part.IsImage() {
			out = append(out, anthropic.NewImageBlockBase64(part.MIMEType, base64.StdEncoding.EncodeToString(part.Data)))
			continue
		}
		out = append(out, anthropic.NewTextBlock(part.Text))
	}
	return out
}
