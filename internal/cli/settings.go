package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/logging"
	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/pipeline"
)

// newGenerator is swapped in tests
var newGenerator = llm.NewGenerator

// Flags shared by check, watch and policy
var (
	flagPolicy      string
	flagMode        string
	flagFallback    bool
	flagProvider    string
	flagModel       string
	flagDir         string
	flagJSON        bool
	flagParse       bool
	flagConcurrency int
	flagTimeout     time.Duration
	flagHTTPProxy   string
	flagHTTPSProxy  string
)

// registerDefaults seeds v with the built-in configuration so env lookups resolve.
// llm.model has no default here; it depends on the final provider.
func registerDefaults(v *viper.Viper) {
	d := model.DefaultConfig()
	v.SetDefault("policy.path", d.Policy.Path)
	v.SetDefault("policy.mode", d.Policy.Mode)
	v.SetDefault("policy.fallback_to_raw", d.Policy.FallbackToRaw)
	v.SetDefault("invoices.dir", d.Invoices.Dir)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.max_reason_words", d.LLM.MaxReasonWords)
	v.SetDefault("llm.breaker", d.LLM.Breaker)
	v.SetDefault("llm.http_proxy", d.LLM.HTTPProxy)
	v.SetDefault("llm.https_proxy", d.LLM.HTTPSProxy)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.parse", d.Output.Parse)
	v.SetDefault("output.verbose", d.Output.Verbose)
}

// configFromViper resolves defaults, config file and env into a Config
func configFromViper(v *viper.Viper) *model.Config {
	cfg := model.DefaultConfig()

	cfg.Policy.Path = v.GetString("policy.path")
	cfg.Policy.Mode = v.GetString("policy.mode")
	cfg.Policy.FallbackToRaw = v.GetBool("policy.fallback_to_raw")
	cfg.Invoices.Dir = v.GetString("invoices.dir")

	cfg.LLM.Provider = v.GetString("llm.provider")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.BaseURL = v.GetString("llm.base_url")
	cfg.LLM.Timeout = v.GetDuration("llm.timeout")
	cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	cfg.LLM.MaxReasonWords = v.GetInt("llm.max_reason_words")
	cfg.LLM.Breaker = v.GetBool("llm.breaker")
	cfg.LLM.HTTPProxy = v.GetString("llm.http_proxy")
	cfg.LLM.HTTPSProxy = v.GetString("llm.https_proxy")

	cfg.Concurrency.Workers = v.GetInt("concurrency.workers")
	cfg.RateLimiting.RequestsPerSecond = v.GetFloat64("rate_limiting.requests_per_second")
	cfg.RateLimiting.BurstSize = v.GetInt("rate_limiting.burst_size")

	cfg.Output.Format = v.GetString("output.format")
	cfg.Output.Parse = v.GetBool("output.parse")
	cfg.Output.Verbose = v.GetBool("output.verbose")

	return cfg
}

// addPolicyFlags registers the flags every command that compiles a policy needs
func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPolicy, "policy", "", "policy document (.docx)")
	cmd.Flags().StringVar(&flagMode, "mode", "", "policy compilation mode (raw, categorized)")
	cmd.Flags().BoolVar(&flagFallback, "fallback-raw", false, "use raw rules if categorization fails")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "model provider (gemini, openai, anthropic, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "model name")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print results as JSON")
	cmd.Flags().StringVar(&flagHTTPProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&flagHTTPSProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// addJudgeFlags registers flags for commands that judge invoices
func addJudgeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDir, "dir", "", "invoice directory (default ./invoices)")
	cmd.Flags().BoolVar(&flagParse, "parse", false, "add a best-effort structured view of each verdict")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "number of concurrent judgments")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "timeout per invoice judgment")
}

// applyFlags overlays explicitly set flags onto cfg
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("policy") {
		cfg.Policy.Path = flagPolicy
	}
	if changed("mode") {
		cfg.Policy.Mode = flagMode
	}
	if changed("fallback-raw") {
		cfg.Policy.FallbackToRaw = flagFallback
	}
	if changed("provider") {
		cfg.LLM.Provider = flagProvider
	}
	if changed("model") {
		cfg.LLM.Model = flagModel
	}
	if changed("http-proxy") {
		cfg.LLM.HTTPProxy = flagHTTPProxy
	}
	if changed("https-proxy") {
		cfg.LLM.HTTPSProxy = flagHTTPSProxy
	}
	if changed("dir") {
		cfg.Invoices.Dir = flagDir
	}
	if changed("json") && flagJSON {
		cfg.Output.Format = "json"
	}
	if changed("parse") {
		cfg.Output.Parse = flagParse
	}
	if changed("concurrency") {
		cfg.Concurrency.Workers = flagConcurrency
	}
	if changed("timeout") {
		cfg.LLM.Timeout = flagTimeout
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}

// loadConfig resolves the effective configuration for cmd. The credential is
// read once here; a missing one fails before any network call.
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := configFromViper(viper.GetViper())
	applyFlags(cmd, cfg)
	cfg.LLM.ResolveModel()

	key, err := llm.LoadAPIKey(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	cfg.LLM.APIKey = key

	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startup builds the configured pipeline and logger. Every error is fatal.
func startup(cmd *cobra.Command) (*model.Config, *pipeline.Pipeline, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.ForVerbosity(cfg.Output.Verbose)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}

	gen, err := newGenerator(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := pipeline.NewPipeline(cfg, gen, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, p, logger, nil
}
