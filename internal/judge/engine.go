// Package judge turns one encoded invoice plus the compiled policy into a
// single model call and returns the model's verdict text untouched.
package judge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/policy"
)

// Engine issues one generation call per invoice. It holds no per-call state, so
// a single Engine is safe for concurrent use.
type Engine struct {
	generator      llm.Generator
	maxReasonWords int
	logger         *zap.Logger
}

// NewEngine creates a judgment engine
func NewEngine(gen llm.Generator, maxReasonWords int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		generator:      gen,
		maxReasonWords: maxReasonWords,
		logger:         logger,
	}
}

// Judge builds the prompt and sends [prompt, image] as two separate parts.
func (e *Engine) Judge(ctx context.Context, payload invoice.Payload, rules policy.RulesArtifact) (model.Verdict, error) {
	parts := []llm.Part{
		llm.TextPart(BuildPrompt(rules.Text, e.maxReasonWords)),
		llm.ImagePart(payload.MIMEType, payload.Data),
	}

	start := time.Now()
	text, err := e.generator.Generate(ctx, parts)
	if err != nil {
		e.logger.Debug("judgment call failed",
			zap.String("provider", e.generator.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", model.ErrModelCallFailed, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", model.ErrEmptyResponse
	}

	e.logger.Debug("judgment call completed",
		zap.String("provider", e.generator.Name()),
		zap.String("prompt_version", PromptVersion),
		zap.Int("image_bytes", len(payload.Data)),
		zap.Int("response_chars", len(text)),
		zap.Duration("duration", time.Since(start)))

	return model.Verdict(text), nil
}
