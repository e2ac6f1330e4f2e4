package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockResult implements Result
type mockResult struct {
	index int
	err   error
}

func (r *mockResult) GetIndex() int {
	return r.index
}

func (r *mockResult) GetError() error {
	return r.err
}

// mockJob implements Job
type mockJob struct {
	index     int
	duration  time.Duration
	shouldErr bool
	executed  *int32 // atomic counter
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{index: j.index, err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{index: j.index, err: errors.New("job error")}
	}
	return &mockResult{index: j.index}
}

func TestNewPool(t *testing.T) {
	p1 := NewPool(context.Background(), 5)
	if p1.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p1.workers)
	}

	p2 := NewPool(context.Background(), 0)
	if p2.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.workers)
	}

	p3 := NewPool(context.Background(), -1)
	if p3.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p3.workers)
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(context.Background(), 2)

	var executed int32
	count := 10

	jobs := make([]Job, count)
	for i := range jobs {
		jobs[i] = &mockJob{index: i, executed: &executed}
	}

	results := pool.Run(jobs)

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}

	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}

	indexes := make([]int, 0, count)
	for _, r := range results {
		indexes = append(indexes, r.GetIndex())
	}
	sort.Ints(indexes)
	for i, idx := range indexes {
		if idx != i {
			t.Fatalf("expected every index once, got %v", indexes)
		}
	}
}

func TestPool_MoreJobsThanQueue(t *testing.T) {
	pool := NewPool(context.Background(), 1)

	jobs := make([]Job, 50)
	for i := range jobs {
		jobs[i] = &mockJob{index: i}
	}

	done := make(chan []Result)
	go func() { done <- pool.Run(jobs) }()

	select {
	case results := <-done:
		if len(results) != 50 {
			t.Errorf("expected 50 results, got %d", len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run deadlocked with more jobs than queue capacity")
	}
}

// concurrencyJob tracks max concurrent executions
type concurrencyJob struct {
	start    func()
	end      func()
	duration time.Duration
}

func (j *concurrencyJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	time.Sleep(j.duration)
	if j.end != nil {
		j.end()
	}
	return &mockResult{}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	pool := NewPool(context.Background(), workers)

	var current int32
	var maxConcurrent int32
	var completed int32
	var mu sync.Mutex

	totalJobs := 50
	jobs := make([]Job, totalJobs)

	for i := range jobs {
		jobs[i] = &concurrencyJob{
			start: func() {
				curr := atomic.AddInt32(&current, 1)
				mu.Lock()
				if curr > maxConcurrent {
					maxConcurrent = curr
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
				atomic.AddInt32(&completed, 1)
			},
			duration: 10 * time.Millisecond,
		}
	}

	pool.Run(jobs)

	if atomic.LoadInt32(&completed) != int32(totalJobs) {
		t.Errorf("expected %d completed jobs, got %d", totalJobs, completed)
	}

	mu.Lock()
	max := maxConcurrent
	mu.Unlock()

	if max > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", max, workers)
	}

	if max <= 1 {
		t.Logf("Warning: max concurrency was %d, expected > 1", max)
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	pool := NewPool(context.Background(), 2)

	results := pool.Run([]Job{
		&mockJob{index: 0, shouldErr: true},
		&mockJob{index: 1, shouldErr: false},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	errors := 0
	for _, res := range results {
		if res.GetError() != nil {
			errors++
		}
	}

	if errors != 1 {
		t.Errorf("expected 1 error, got %d", errors)
	}
}

func TestPool_CancelledContextStillYieldsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(ctx, 2)
	jobs := make([]Job, 6)
	for i := range jobs {
		jobs[i] = &mockJob{index: i, duration: time.Second}
	}

	done := make(chan []Result)
	go func() { done <- pool.Run(jobs) }()

	select {
	case results := <-done:
		if len(results) != len(jobs) {
			t.Fatalf("expected %d results, got %d", len(jobs), len(results))
		}
		for _, r := range results {
			if !errors.Is(r.GetError(), context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", r.GetError())
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)

	started := make(chan struct{})
	var once sync.Once

	done := make(chan []Result)
	go func() {
		done <- pool.Run([]Job{&slowJob{started: func() { once.Do(func() { close(started) }) }}})
	}()

	<-started
	pool.Shutdown()

	select {
	case results := <-done:
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if !errors.Is(results[0].GetError(), context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", results[0].GetError())
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Shutdown timed out")
	}
}

type slowJob struct {
	started func()
}

func (j *slowJob) Execute(ctx context.Context) Result {
	j.started()
	select {
	case <-ctx.Done():
		return &mockResult{err: ctx.Err()}
	case <-time.After(5 * time.Second):
		return &mockResult{}
	}
}
