package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job returns.
type Result interface {
	GetError() error
}

// Pool runs submitted jobs on a fixed number of goroutines and gathers
// their results. Results are drained as they arrive, so Submit never
// stalls on a full result channel.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc

	wg        sync.WaitGroup
	collected []Result
	collectWG sync.WaitGroup
	closeOnce sync.Once
}

// NewPool creates a pool whose jobs observe ctx. Non-positive worker counts become 1.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result collector.
func (p *Pool) Start() {
	p.collectWG.Add(1)
	go func() {
		defer p.collectWG.Done()
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns false if the pool was cancelled first.
func (p *Pool) Submit(job Job) bool {
	// cancellation wins even when the queue has room
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Wait stops accepting jobs, waits for the queued ones and returns every
// result in completion order.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	p.finish()
	p.cancel()
	return p.collected
}

// Shutdown cancels running jobs and discards anything still queued.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.finish()
}

func (p *Pool) finish() {
	p.closeOnce.Do(func() {
		close(p.results)
		p.collectWG.Wait()
	})
}
