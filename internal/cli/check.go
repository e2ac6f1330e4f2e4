package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/model"
)

var (
	fromStdin bool
	stdinName string
	stdinMIME string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [invoice...]",
	Short: "Judge invoice images against the expense policy",
	Long: `Check compiles the policy document once, then judges every invoice:
- Invoices given as arguments, in argument order
- Otherwise every .jpg, .jpeg and .png directly inside --dir, by name
- Or a single image read from stdin with --stdin

Each invoice yields exactly one outcome in input order: the model's verdict
printed verbatim, or FAILED [kind] with the reason.

Example:
  invoicecheck check
  invoicecheck check --dir ./invoices --concurrency 8
  invoicecheck check receipt.png hotel.jpg --json
  cat lunch.png | invoicecheck check --stdin --name lunch.png --mime image/png`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	addPolicyFlags(checkCmd)
	addJudgeFlags(checkCmd)

	checkCmd.Flags().BoolVar(&fromStdin, "stdin", false, "read one invoice image from stdin")
	checkCmd.Flags().StringVar(&stdinName, "name", "upload", "display name for the stdin invoice")
	checkCmd.Flags().StringVar(&stdinMIME, "mime", invoice.MIMEJPEG, "declared MIME type of the stdin invoice")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(backgroundContext(cmd), os.Interrupt)
	defer cancel()

	cfg, p, logger, err := startup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stderr := cmd.ErrOrStderr()
	if cfg.Output.Verbose {
		fmt.Fprintf(stderr, "Policy: %s (%s)\n", cfg.Policy.Path, cfg.Policy.Mode)
		fmt.Fprintf(stderr, "Model: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}

	rules, err := p.CompilePolicy(ctx)
	if err != nil {
		return err
	}

	if fromStdin {
		src, err := invoice.FromReader(stdinName, stdinMIME, cmd.InOrStdin())
		if err != nil {
			return err
		}
		outcome := p.CheckOne(ctx, src, rules)
		return p.Renderer().RenderOutcome(cmd.OutOrStdout(), outcome)
	}

	sources, err := collectSources(cfg, args)
	if err != nil {
		return err
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(stderr, "⚙️  Judging %d invoice(s) with %d worker(s)...\n", len(sources), cfg.Concurrency.Workers)
	}

	result := p.Check(ctx, sources, rules)

	if err := p.RenderResult(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if cfg.Output.Format != "json" {
		p.Renderer().RenderSummary(stderr, result)
	}
	return nil
}

// collectSources returns explicit file arguments in order, or the invoice directory listing
func collectSources(cfg *model.Config, args []string) ([]invoice.Source, error) {
	if len(args) > 0 {
		sources := make([]invoice.Source, 0, len(args))
		for _, path := range args {
			sources = append(sources, invoice.FromFile(path))
		}
		return sources, nil
	}

	sources, err := invoice.Discover(cfg.Invoices.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	return sources, nil
}

// backgroundContext is used when a command runs without one
func backgroundContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
