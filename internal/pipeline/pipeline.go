package pipeline

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/invoicecheck/internal/cache"
	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/judge"
	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/policy"
	"github.com/ppiankov/invoicecheck/internal/worker"
)

// Pipeline wires policy compilation and batch judgment for one configuration
type Pipeline struct {
	compiler *policy.Compiler
	runner   *worker.BatchRunner
	renderer *Renderer
	config   *model.Config
	logger   *zap.Logger
}

// NewPipeline creates a pipeline. gen is shared by categorization and judgment.
func NewPipeline(cfg *model.Config, gen llm.Generator, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: no model gateway configured", model.ErrConfiguration)
	}

	mode, err := policy.ParseMode(cfg.Policy.Mode)
	if err != nil {
		return nil, err
	}

	compiler := policy.NewCompiler(mode,
		policy.WithGenerator(gen, cfg.LLM.Model),
		policy.WithFallbackToRaw(cfg.Policy.FallbackToRaw),
		policy.WithCache(cache.NewMemoryCache(0, 0)),
		policy.WithLogger(logger.Named("policy")),
	)

	engine := judge.NewEngine(gen, cfg.LLM.MaxReasonWords, logger.Named("judge"))

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	runner := worker.NewBatchRunner(engine, cfg.Concurrency.Workers,
		worker.WithLimiter(limiter, LimiterKey(cfg.LLM)),
		worker.WithTimeout(cfg.LLM.Timeout),
		worker.WithLogger(logger.Named("batch")),
	)

	return &Pipeline{
		compiler: compiler,
		runner:   runner,
		renderer: NewRenderer(cfg.Output.Format, cfg.Output.Parse),
		config:   cfg,
		logger:   logger,
	}, nil
}

// LimiterKey groups rate limiting by upstream model
func LimiterKey(c model.LLMConfig) string {
	return c.Provider + "/" + c.Model
}

// CompilePolicy loads and compiles the configured policy document.
// Errors here are fatal for the run.
func (p *Pipeline) CompilePolicy(ctx context.Context) (policy.RulesArtifact, error) {
	rules, err := p.compiler.Compile(ctx, p.config.Policy.Path)
	if err != nil {
		return policy.RulesArtifact{}, fmt.Errorf("compile policy %s: %w", p.config.Policy.Path, err)
	}
	p.logger.Info("policy compiled",
		zap.String("path", p.config.Policy.Path),
		zap.String("mode", string(rules.Mode)),
		zap.Int("chars", len(rules.Text)))
	return rules, nil
}

// Check judges sources against rules, one outcome per source in input order
func (p *Pipeline) Check(ctx context.Context, sources []invoice.Source, rules policy.RulesArtifact) model.BatchResult {
	return p.runner.Run(ctx, sources, rules)
}

// CheckOne judges a single interactive upload or newly discovered file
func (p *Pipeline) CheckOne(ctx context.Context, src invoice.Source, rules policy.RulesArtifact) model.Outcome {
	return p.runner.Run(ctx, []invoice.Source{src}, rules)[0]
}

// Renderer returns the configured renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// RenderResult writes result to w in the configured format
func (p *Pipeline) RenderResult(w io.Writer, result model.BatchResult) error {
	if err := p.renderer.Render(w, result); err != nil {
		return fmt.Errorf("render results: %w", err)
	}
	return nil
}
