package policy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/invoicecheck/internal/cache"
	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/model"
)

// Mode selects how a policy document is compiled
type Mode string

const (
	ModeRaw         Mode = "raw"         // paragraphs joined verbatim
	ModeCategorized Mode = "categorized" // one model call buckets the rules
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRaw, "":
		return ModeRaw, nil
	case ModeCategorized:
		return ModeCategorized, nil
	default:
		return "", fmt.Errorf("%w: unknown policy mode %q (supported: raw, categorized)", model.ErrConfiguration, s)
	}
}

// Categories are the fixed buckets of categorized mode, in prompt order.
var Categories = []string{
	"Acceptable Receipts",
	"Spending Limits",
	"Approval Criteria",
	"Reimbursement Process",
	"Other",
}

// RulesArtifact is the compiled policy shared read-only by all judgments.
type RulesArtifact struct {
	Mode Mode
	Text string
}

// String returns the rules text
func (a RulesArtifact) String() string {
	return a.Text
}

// Compiler turns a policy document into a RulesArtifact
type Compiler struct {
	mode          Mode
	generator     llm.Generator // only used in categorized mode
	modelName     string
	fallbackToRaw bool
	memo          cache.Cache
	logger        *zap.Logger
}

// Option configures a Compiler
type Option func(*Compiler)

// WithGenerator sets the model used for categorization
func WithGenerator(gen llm.Generator, modelName string) Option {
	return func(c *Compiler) {
		c.generator = gen
		c.modelName = modelName
	}
}

// WithFallbackToRaw degrades a failed categorization to the raw artifact
func WithFallbackToRaw(enabled bool) Option {
	return func(c *Compiler) { c.fallbackToRaw = enabled }
}

// WithCache memoizes categorized artifacts for the process lifetime
func WithCache(memo cache.Cache) Option {
	return func(c *Compiler) { c.memo = memo }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// NewCompiler creates a compiler for the given mode
func NewCompiler(mode Mode, opts ...Option) *Compiler {
	c := &Compiler{
		mode:   mode,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the configured compilation mode
func (c *Compiler) Mode() Mode {
	return c.mode
}

// Compile loads the document at path and compiles it.
func (c *Compiler) Compile(ctx context.Context, path string) (RulesArtifact, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return RulesArtifact{}, err
	}
	c.logger.Debug("policy document loaded",
		zap.String("path", path),
		zap.Int("paragraphs", len(doc)))

	return c.CompileDocument(ctx, doc)
}

// CompileDocument compiles an already loaded document.
func (c *Compiler) CompileDocument(ctx context.Context, doc Document) (RulesArtifact, error) {
	raw := RulesArtifact{Mode: ModeRaw, Text: doc.Text()}
	if c.mode != ModeCategorized {
		return raw, nil
	}

	categorized, err := c.categorize(ctx, raw.Text)
	if err != nil {
		if c.fallbackToRaw {
			c.logger.Warn("policy categorization failed, using raw rules", zap.Error(err))
			return raw, nil
		}
		return RulesArtifact{}, err
	}
	return categorized, nil
}

func (c *Compiler) categorize(ctx context.Context, text string) (RulesArtifact, error) {
	if c.generator == nil {
		return RulesArtifact{}, fmt.Errorf("%w: no model configured", model.ErrCategorizationFailed)
	}

	key := cache.Key(c.generator.Name(), c.modelName, text)
	if c.memo != nil {
		if val, ok := c.memo.Get(key); ok {
			c.logger.Debug("policy categorization served from cache")
			return RulesArtifact{Mode: ModeCategorized, Text: string(val)}, nil
		}
	}

	out, err := c.generator.Generate(ctx, []llm.Part{llm.TextPart(BuildCategorizePrompt(text))})
	if err != nil {
		return RulesArtifact{}, fmt.Errorf("%w: %w", model.ErrCategorizationFailed, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return RulesArtifact{}, fmt.Errorf("%w: %w", model.ErrCategorizationFailed, model.ErrEmptyResponse)
	}

	if c.memo != nil {
		_ = c.memo.Set(key, []byte(out), 0)
	}
	c.logger.Info("policy categorized", zap.Int("chars", len(out)))

	return RulesArtifact{Mode: ModeCategorized, Text: out}, nil
}

// BuildCategorizePrompt constructs the fixed categorization instruction
func BuildCategorizePrompt(policyText string) string {
	var b strings.Builder
	b.WriteString("You are an expert in company expense policies.\n")
	b.WriteString("Sort every rule in the policy below into exactly these categories:\n")
	for i, cat := range Categories {
		fmt.Fprintf(&b, "%d) %s\n", i+1, cat)
	}
	b.WriteString("\nKeep each rule's wording and figures. Do not drop any rule; anything that fits no category goes under Other.\n")
	b.WriteString("Return a structured breakdown with one heading per category followed by its rules as a bulleted list.\n")
	b.WriteString("\nPolicy:\n")
	b.WriteString(policyText)
	return b.String()
}
