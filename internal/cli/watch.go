package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/model"
)

var skipExisting bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Judge invoices as they appear in the invoice directory",
	Long: `Watch compiles the policy once, judges the invoices already in --dir,
and then judges every new invoice file dropped into the directory until
interrupted. New files are judged as they arrive, without waiting for the
initial batch to finish.

Example:
  invoicecheck watch --dir ./invoices
  invoicecheck watch --skip-existing --json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addPolicyFlags(watchCmd)
	addJudgeFlags(watchCmd)
	watchCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "only judge files created after startup")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(backgroundContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, p, logger, err := startup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rules, err := p.CompilePolicy(ctx)
	if err != nil {
		return err
	}

	watcher, err := invoice.NewWatcher(cfg.Invoices.Dir, invoice.DefaultSettle, logger.Named("watch"))
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	defer func() { _ = watcher.Close() }()

	out := &syncWriter{w: cmd.OutOrStdout()}
	renderer := p.Renderer()
	var wg sync.WaitGroup

	if !skipExisting {
		sources := watcher.Existing()
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := p.Check(ctx, sources, rules)
			out.do(func(w io.Writer) {
				if err := p.RenderResult(w, result); err != nil {
					logger.Warn("render failed", zap.Error(err))
				}
			})
		}()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for new invoices (Ctrl+C to stop)\n", cfg.Invoices.Dir)

	for src := range watcher.Watch(ctx) {
		wg.Add(1)
		go func(src invoice.Source) {
			defer wg.Done()
			outcome := p.CheckOne(ctx, src, rules)
			out.do(func(w io.Writer) {
				if err := renderer.RenderOutcome(w, outcome); err != nil {
					logger.Warn("render failed", zap.Error(err))
				}
			})
		}(src)
	}

	wg.Wait()
	return nil
}

// syncWriter serializes whole renders so concurrent outcomes never interleave
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) do(fn func(w io.Writer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.w)
}
