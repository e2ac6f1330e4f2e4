package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution. Index is the job's position
// in submission order so callers can reassemble results.
type Result interface {
	GetIndex() int
	GetError() error
}

// Pool manages a pool of workers that execute jobs concurrently
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers.
// Jobs see a context derived from parent.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker drains the queue until it is closed. A cancelled context is passed to
// the job rather than dropping it, so every submitted job yields a result.
func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.results <- job.Execute(p.ctx)
	}
}

// Submit queues a job. It blocks while the queue is full.
func (p *Pool) Submit(job Job) {
	p.jobQueue <- job
}

// Run submits all jobs and returns their results in completion order.
// Submission runs alongside collection so a small queue never deadlocks.
func (p *Pool) Run(jobs []Job) []Result {
	p.Start()

	go func() {
		for _, job := range jobs {
			p.Submit(job)
		}
		close(p.jobQueue)
	}()

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	results := make([]Result, 0, len(jobs))
	for result := range p.results {
		results = append(results, result)
	}
	p.cancelFunc()

	return results
}

// Shutdown cancels the context seen by in-flight and queued jobs
func (p *Pool) Shutdown() {
	p.cancelFunc()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
