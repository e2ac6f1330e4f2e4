package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/policy"
)

// Judge defines the single-invoice decision step
type Judge interface {
	Judge(ctx context.Context, payload invoice.Payload, rules policy.RulesArtifact) (model.Verdict, error)
}

// InvoiceJob encodes and judges one invoice
type InvoiceJob struct {
	Index   int
	Source  invoice.Source
	Rules   policy.RulesArtifact
	Judge   Judge
	Limiter *Limiter
	Key     string
	Timeout time.Duration
}

// Execute executes the invoice job. It never returns a nil result.
func (j *InvoiceJob) Execute(ctx context.Context) Result {
	res := &InvoiceResult{Index: j.Index, ID: j.Source.ID()}

	payload, err := invoice.Encode(j.Source)
	if err != nil {
		res.Error = err
		return res
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Key); err != nil {
			res.Error = fmt.Errorf("%w: rate limiter: %w", model.ErrModelCallFailed, err)
			return res
		}
	}

	verdict, err := j.Judge.Judge(ctx, payload, j.Rules)
	if err != nil {
		res.Error = err
		return res
	}
	res.Verdict = verdict
	return res
}

// InvoiceResult represents the result of an invoice job
type InvoiceResult struct {
	Index   int
	ID      string
	Verdict model.Verdict
	Error   error
}

// GetIndex returns the submission index
func (r *InvoiceResult) GetIndex() int {
	return r.Index
}

// GetError returns the error from the invoice result
func (r *InvoiceResult) GetError() error {
	return r.Error
}

// Outcome converts the result to a batch slot
func (r *InvoiceResult) Outcome() model.Outcome {
	if r.Error != nil {
		return model.Outcome{ID: r.ID, Failure: model.NewFailure(r.Error)}
	}
	return model.Outcome{ID: r.ID, Verdict: r.Verdict}
}

// BatchRunner judges many invoices with a bounded worker pool
type BatchRunner struct {
	judge       Judge
	concurrency int
	limiter     *Limiter
	limiterKey  string
	timeout     time.Duration
	logger      *zap.Logger
}

// RunnerOption configures a BatchRunner
type RunnerOption func(*BatchRunner)

// WithLimiter throttles judgments through limiter under key
func WithLimiter(limiter *Limiter, key string) RunnerOption {
	return func(b *BatchRunner) {
		b.limiter = limiter
		b.limiterKey = key
	}
}

// WithTimeout bounds each judgment; a timeout is recorded as ModelCallFailed
func WithTimeout(d time.Duration) RunnerOption {
	return func(b *BatchRunner) { b.timeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(b *BatchRunner) { b.logger = logger }
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(judge Judge, concurrency int, opts ...RunnerOption) *BatchRunner {
	b := &BatchRunner{
		judge:       judge,
		concurrency: concurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run judges every source and returns one outcome per source in input order.
// Per-invoice failures are recorded in their slot and never stop the batch.
func (b *BatchRunner) Run(ctx context.Context, sources []invoice.Source, rules policy.RulesArtifact) model.BatchResult {
	if len(sources) == 0 {
		return model.BatchResult{}
	}

	runID := uuid.New().String()
	logger := b.logger.With(zap.String("run_id", runID))
	logger.Info("batch started",
		zap.Int("invoices", len(sources)),
		zap.Int("workers", b.concurrency))
	start := time.Now()

	jobs := make([]Job, len(sources))
	for i, src := range sources {
		jobs[i] = &InvoiceJob{
			Index:   i,
			Source:  src,
			Rules:   rules,
			Judge:   b.judge,
			Limiter: b.limiter,
			Key:     b.limiterKey,
			Timeout: b.timeout,
		}
	}

	pool := NewPool(ctx, b.concurrency)
	results := pool.Run(jobs)

	out := make(model.BatchResult, len(sources))
	filled := make([]bool, len(sources))
	for _, r := range results {
		ir := r.(*InvoiceResult)
		out[ir.Index] = ir.Outcome()
		filled[ir.Index] = true
		if ir.Error != nil {
			logger.Warn("invoice failed",
				zap.String("invoice", ir.ID),
				zap.String("kind", model.KindOf(ir.Error)),
				zap.Error(ir.Error))
		}
	}

	// every slot is filled, even for a job that produced no result
	for i, ok := range filled {
		if !ok {
			err := fmt.Errorf("%w: no result produced", model.ErrModelCallFailed)
			out[i] = model.Outcome{ID: sources[i].ID(), Failure: model.NewFailure(err)}
		}
	}

	okCount, failCount := out.Counts()
	logger.Info("batch completed",
		zap.Int("verdicts", okCount),
		zap.Int("failures", failCount),
		zap.Duration("duration", time.Since(start)))

	return out
}
